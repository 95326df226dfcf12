package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dining/totable/internal/backup"
	"github.com/dining/totable/internal/database"
	"github.com/dining/totable/internal/logging"
	"github.com/dining/totable/internal/push"
	"github.com/dining/totable/internal/server"
)

func main() {
	generateKeys := flag.Bool("generate-vapid-keys", false, "print a new VAPID key pair and exit")
	flag.Parse()

	if *generateKeys {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("generate VAPID keys: %v", err)
		}
		fmt.Printf("TOTABLE_VAPID_PUBLIC_KEY=%s\nTOTABLE_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	logger := logging.Setup(os.Getenv("TOTABLE_LOG_LEVEL"))

	port := os.Getenv("TOTABLE_PORT")
	if port == "" {
		port = "8080"
	}
	dbPath := os.Getenv("TOTABLE_DB_PATH")
	if dbPath == "" {
		dbPath = "totable.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pushCfg := push.Config{
		VAPIDPublicKey:  os.Getenv("TOTABLE_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("TOTABLE_VAPID_PRIVATE_KEY"),
	}
	if pushCfg.VAPIDPublicKey == "" {
		logger.Info("push notifications disabled; run with -generate-vapid-keys to create a key pair")
	}

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("TOTABLE_S3_ENDPOINT"),
			Bucket:    os.Getenv("TOTABLE_S3_BUCKET"),
			Region:    os.Getenv("TOTABLE_S3_REGION"),
			AccessKey: os.Getenv("TOTABLE_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("TOTABLE_S3_SECRET_KEY"),
		},
		DBPath:     dbPath,
		Passphrase: os.Getenv("TOTABLE_BACKUP_PASSPHRASE"),
	}
	if interval := os.Getenv("TOTABLE_BACKUP_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			logger.Error("invalid TOTABLE_BACKUP_INTERVAL", "value", interval, "error", err)
			os.Exit(1)
		}
		backupCfg.Interval = d
	}

	srv := server.New(db, backupCfg, pushCfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	// Hourly housekeeping: expired sessions and stale rate-limit entries.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions removed", "count", n)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0, // websocket feed connections are long-lived
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("totable service listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

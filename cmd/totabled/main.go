package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dining/totable/internal/agent"
	"github.com/dining/totable/internal/database"
	"github.com/dining/totable/internal/deviceconfig"
	"github.com/dining/totable/internal/logging"
)

func main() {
	logger := logging.Setup(os.Getenv("TOTABLED_LOG_LEVEL"))

	cfg := agent.Config{
		ServerURL: os.Getenv("TOTABLED_SERVER_URL"),
		Email:     os.Getenv("TOTABLED_EMAIL"),
		Password:  os.Getenv("TOTABLED_PASSWORD"),
		RoleName:  os.Getenv("TOTABLED_ROLE"),
	}
	if cfg.ServerURL == "" || cfg.Email == "" || cfg.Password == "" {
		logger.Error("TOTABLED_SERVER_URL, TOTABLED_EMAIL, and TOTABLED_PASSWORD are required")
		os.Exit(1)
	}

	statePath := os.Getenv("TOTABLED_STATE_PATH")
	if statePath == "" {
		statePath = "totabled.db"
	}
	db, err := database.Open(statePath)
	if err != nil {
		logger.Error("open state database", "path", statePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := agent.New(cfg, deviceconfig.NewStore(db), logger)
	if err := a.Run(ctx); err != nil {
		logger.Error("agent stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("agent shut down")
}

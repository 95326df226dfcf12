package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dining/totable/internal/auth"
	"github.com/dining/totable/internal/feed"
)

const pingInterval = 30 * time.Second

// Handler returns an HTTP handler that upgrades the connection and streams
// order snapshots for the authenticated restaurant until the client hangs
// up. Each frame carries the full document list; the client replaces its
// state wholesale on every frame.
func Handler(hub *feed.Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID := auth.RestaurantID(r.Context())
		if restaurantID == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // device agents connect from the restaurant LAN
		})
		if err != nil {
			logger.Error("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		updates, cancel, err := hub.Subscribe(restaurantID)
		if err != nil {
			logger.Error("feed subscribe", "restaurant_id", restaurantID, "error", err)
			conn.Close(ws.StatusInternalError, "subscribe failed")
			return
		}
		defer cancel()

		ctx, stop := context.WithCancel(r.Context())
		defer stop()

		// Read pump: incoming messages are discarded, but a read error means
		// the client is gone.
		go func() {
			for {
				if _, _, err := conn.Read(ctx); err != nil {
					stop()
					return
				}
			}
		}()

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case u, ok := <-updates:
				if !ok {
					return
				}
				if err := writeFrame(ctx, conn, u); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.Ping(ctx); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *ws.Conn, u feed.Update) error {
	frame := Frame{Documents: u.Documents}
	if u.Err != nil {
		frame.Error = u.Err.Error()
	}
	if frame.Documents == nil {
		frame.Documents = []feed.Document{}
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, data)
}

package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	ws "github.com/coder/websocket"

	"github.com/dining/totable/internal/feed"
)

// Client is the device-side order feed: it dials the service's feed
// endpoint and surfaces snapshot frames as feed updates. The session token
// already fixes which restaurant the server streams; Subscribe accepts the
// restaurant id to satisfy the feed.Source contract and for logging.
type Client struct {
	baseURL string // ws:// or wss:// service address
	token   string
	logger  *slog.Logger
}

func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		logger:  logger,
	}
}

// Subscribe opens the feed connection. The returned cancel closes the
// connection; the update channel is closed once the read loop winds down.
func (c *Client) Subscribe(restaurantID string) (<-chan feed.Update, func(), error) {
	ctx, stop := context.WithCancel(context.Background())

	conn, _, err := ws.Dial(ctx, c.baseURL+"/api/orders/feed", &ws.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + c.token}},
	})
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("dial order feed: %w", err)
	}

	out := make(chan feed.Update, 1)
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			conn.Close(ws.StatusNormalClosure, "unsubscribed")
		})
	}

	go c.readLoop(ctx, conn, restaurantID, out, cancel)
	return out, cancel, nil
}

func (c *Client) readLoop(ctx context.Context, conn *ws.Conn, restaurantID string, out chan feed.Update, cancel func()) {
	defer close(out)
	defer cancel()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Error("order feed closed", "restaurant_id", restaurantID, "error", err)
				deliver(out, feed.Update{Err: err})
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Error("decode feed frame", "error", err)
			continue
		}

		u := feed.Update{Documents: frame.Documents}
		if frame.Error != "" {
			u = feed.Update{Err: errors.New(frame.Error)}
		}
		deliver(out, u)
	}
}

// deliver queues an update, replacing an undrained older one so the
// receiver always sees the newest snapshot.
func deliver(out chan feed.Update, u feed.Update) {
	select {
	case out <- u:
	default:
		select {
		case <-out:
		default:
		}
		select {
		case out <- u:
		default:
		}
	}
}

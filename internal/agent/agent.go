package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dining/totable/internal/deviceconfig"
	"github.com/dining/totable/internal/model"
	"github.com/dining/totable/internal/orders"
	"github.com/dining/totable/internal/push"
	"github.com/dining/totable/internal/websocket"
)

// Config is the agent's environment-supplied settings.
type Config struct {
	ServerURL string // http(s) base URL of the totable service
	Email     string
	Password  string
	RoleName  string // optional; empty keeps the stored role selection
}

// Agent runs one device: it signs in, persists its identity, follows the
// live order feed filtered to its role, and keeps its push topic in step
// with role changes.
type Agent struct {
	cfg     Config
	api     *APIClient
	state   *deviceconfig.Store
	engine  *orders.Engine
	tracker push.TopicTracker
	logger  *slog.Logger

	token    string // session token, set by Run after sign-in
	endpoint string // registered push endpoint, "" when off every topic
	roleID   string // role behind the current registration

	// feeds carries the newest engine subscription channel; a role change
	// replaces the subscription, so the consumer must switch channels.
	feeds chan (<-chan []model.Order)
}

func New(cfg Config, state *deviceconfig.Store, logger *slog.Logger) *Agent {
	return &Agent{
		cfg:    cfg,
		api:    NewAPIClient(cfg.ServerURL),
		state:  state,
		logger: logger,
		feeds:  make(chan (<-chan []model.Order), 1),
	}
}

// Run blocks until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	token, restaurant, err := a.api.Login(ctx, a.cfg.Email, a.cfg.Password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	a.logger.Info("signed in", "restaurant", restaurant.Name)
	a.token = token

	source := websocket.NewClient(wsBaseURL(a.cfg.ServerURL), token, a.logger.With("component", "feed"))
	a.engine = orders.NewEngine(source, a.logger.With("component", "orders"))

	// Role changes re-filter the feed and move the push topic. Saving the
	// configuration below triggers the first subscription.
	a.state.OnChange(func(cfg *model.DeviceConfiguration) {
		if cfg == nil {
			a.engine.Unsubscribe()
			a.releaseTopic(ctx)
			return
		}
		a.subscribe(ctx, *cfg)
	})

	if _, err := a.resolveConfig(ctx, token, restaurant); err != nil {
		return err
	}

	var updates <-chan []model.Order
	for {
		select {
		case <-ctx.Done():
			a.engine.Unsubscribe()
			return nil
		case ch := <-a.feeds:
			updates = ch
		case list, ok := <-updates:
			if !ok {
				// Subscription replaced; the new channel arrives on feeds.
				updates = nil
				continue
			}
			a.logger.Info("orders updated", "active", len(list))
		}
	}
}

// resolveConfig reconciles the stored device identity with the signed-in
// account and the requested role, persisting the result.
func (a *Agent) resolveConfig(ctx context.Context, token string, restaurant *model.Restaurant) (*model.DeviceConfiguration, error) {
	stored, err := a.state.Load()
	if err != nil {
		return nil, fmt.Errorf("load device config: %w", err)
	}

	cfg := model.DeviceConfiguration{
		RestaurantID:    restaurant.ID,
		RestaurantEmail: restaurant.Email,
	}
	if stored != nil {
		// The device identity outlives restaurant changes; the role does not.
		cfg.DeviceID = stored.DeviceID
		if stored.RestaurantID == restaurant.ID {
			cfg.DeviceRoleID = stored.DeviceRoleID
			cfg.DeviceRoleName = stored.DeviceRoleName
		}
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = uuid.NewString()
	}

	if a.cfg.RoleName != "" && !strings.EqualFold(a.cfg.RoleName, cfg.DeviceRoleName) {
		roles, err := a.api.Roles(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("list roles: %w", err)
		}
		role := findRole(roles, a.cfg.RoleName)
		if role == nil {
			return nil, fmt.Errorf("role %q not found", a.cfg.RoleName)
		}
		cfg.DeviceRoleID = role.ID
		cfg.DeviceRoleName = role.Name
	}

	if err := a.state.Save(cfg); err != nil {
		return nil, fmt.Errorf("save device config: %w", err)
	}
	return &cfg, nil
}

// subscribe re-points the feed and push topic at the configuration's role.
// Resubscribing replaces any previous subscription, so a stale feed never
// reaches the consumer. A device without a role sees every order and holds
// no push topic.
func (a *Agent) subscribe(ctx context.Context, cfg model.DeviceConfiguration) {
	updates, err := a.engine.Subscribe(cfg.RestaurantID, cfg.DeviceRoleID)
	if err != nil {
		a.logger.Error("subscribe to order feed", "error", err)
		return
	}
	select {
	case <-a.feeds:
	default:
	}
	a.feeds <- updates

	if !cfg.HasRole() {
		a.releaseTopic(ctx)
		return
	}

	topic := push.TopicName(cfg.RestaurantID, cfg.DeviceRoleID)
	previous, changed := a.tracker.Switch(topic)
	if !changed {
		return
	}

	endpoint := deviceEndpoint(cfg.DeviceID)
	if previous != "" {
		if err := a.api.UnsubscribePush(ctx, a.token, a.roleID, a.endpoint); err != nil {
			a.logger.Warn("unsubscribe push topic", "topic", previous, "error", err)
		}
	}
	if err := a.api.SubscribePush(ctx, a.token, cfg.DeviceRoleID, endpoint); err != nil {
		a.logger.Warn("subscribe push topic", "topic", topic, "error", err)
	}
	a.endpoint = endpoint
	a.roleID = cfg.DeviceRoleID

	if previous != "" {
		a.logger.Info("push topic switched", "from", previous, "to", topic)
	} else {
		a.logger.Info("push topic acquired", "topic", topic)
	}
}

// releaseTopic leaves the current push topic, if any: the tracker forgets it
// and the service drops the device's endpoint from every topic.
func (a *Agent) releaseTopic(ctx context.Context) {
	previous, changed := a.tracker.Clear()
	if !changed {
		return
	}
	if err := a.api.UnsubscribePush(ctx, a.token, "", a.endpoint); err != nil {
		a.logger.Warn("unsubscribe push topic", "topic", previous, "error", err)
	}
	a.endpoint = ""
	a.roleID = ""
	a.logger.Info("push topic released", "topic", previous)
}

// deviceEndpoint is the subscription endpoint identifier for a device; it is
// not a webpush URL, devices receive orders over the live feed.
func deviceEndpoint(deviceID string) string {
	return "device://" + deviceID
}

func findRole(roles []model.Role, name string) *model.Role {
	for i := range roles {
		if strings.EqualFold(roles[i].Name, name) {
			return &roles[i]
		}
	}
	return nil
}

// wsBaseURL converts the service's HTTP base URL to its websocket form.
func wsBaseURL(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	if rest, ok := strings.CutPrefix(s, "https://"); ok {
		return "wss://" + rest
	}
	if rest, ok := strings.CutPrefix(s, "http://"); ok {
		return "ws://" + rest
	}
	return s
}

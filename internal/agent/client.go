package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dining/totable/internal/model"
)

// APIClient talks to the totable service's JSON API on behalf of a device.
type APIClient struct {
	baseURL string
	http    *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type loginResponse struct {
	Token      string           `json:"token"`
	Restaurant model.Restaurant `json:"restaurant"`
}

// Login authenticates with the restaurant account credentials and returns a
// session token plus the resolved restaurant.
func (c *APIClient) Login(ctx context.Context, email, password string) (string, *model.Restaurant, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("login failed: status %d", resp.StatusCode)
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", nil, fmt.Errorf("decode login response: %w", err)
	}
	return out.Token, &out.Restaurant, nil
}

// SubscribePush registers the device's endpoint on the role's push topic.
func (c *APIClient) SubscribePush(ctx context.Context, token, roleID, endpoint string) error {
	return c.postAuthed(ctx, token, "/api/push/subscribe", map[string]string{
		"roleId":   roleID,
		"kind":     model.SubscriptionKindDevice,
		"endpoint": endpoint,
	})
}

// UnsubscribePush drops the device's endpoint from a role's push topic.
// An empty roleID drops the endpoint from every topic.
func (c *APIClient) UnsubscribePush(ctx context.Context, token, roleID, endpoint string) error {
	body := map[string]string{"endpoint": endpoint}
	if roleID != "" {
		body["roleId"] = roleID
	}
	return c.postAuthed(ctx, token, "/api/push/unsubscribe", body)
}

func (c *APIClient) postAuthed(ctx context.Context, token, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s failed: status %d", path, resp.StatusCode)
	}
	return nil
}

// Roles lists the restaurant's selectable device roles.
func (c *APIClient) Roles(ctx context.Context, token string) ([]model.Role, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/roles", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roles request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list roles failed: status %d", resp.StatusCode)
	}

	var roles []model.Role
	if err := json.NewDecoder(resp.Body).Decode(&roles); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}
	return roles, nil
}

// Package httpapi is the pull side of the game API: login, signup, and the
// read-only leaderboard/stats/categories endpoints. Failures surface as
// error messages, never as crashes in the session controller.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"mindmaze-client/internal/domain"
)

type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

func NewClient(base string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Profile is the signup request body.
type Profile struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

type userResponse struct {
	User domain.Identity `json:"user"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Login authenticates and returns the server-issued identity. A rejection's
// detail string becomes the error text shown to the player.
func (c *Client) Login(ctx context.Context, creds Credentials) (domain.Identity, error) {
	var out userResponse
	if err := c.postJSON(ctx, "/auth/login", creds, &out); err != nil {
		return domain.Identity{}, err
	}
	return out.User, nil
}

// Signup registers a new player and returns the issued identity.
func (c *Client) Signup(ctx context.Context, profile Profile) (domain.Identity, error) {
	var out userResponse
	if err := c.postJSON(ctx, "/auth/signup", profile, &out); err != nil {
		return domain.Identity{}, err
	}
	return out.User, nil
}

// Leaderboard returns the global scoreboard, best first.
func (c *Client) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	var out []domain.LeaderboardEntry
	if err := c.getJSON(ctx, "/api/leaderboard", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns aggregate server counters.
func (c *Client) Stats(ctx context.Context) (domain.Stats, error) {
	var out domain.Stats
	if err := c.getJSON(ctx, "/api/stats", &out); err != nil {
		return domain.Stats{}, err
	}
	return out, nil
}

// Categories returns the selectable question categories.
func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := c.getJSON(ctx, "/api/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("connection error: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(data, &detail); err == nil && detail.Detail != "" {
			return fmt.Errorf("%s", detail.Detail)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// Package api is the client for the platform's REST backend. All
// response decoding happens here, once, at the boundary; callers only
// ever see the typed models.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/sharat789/steam-bazaar-fev2/internal/models"
)

// envelope is the backend's standard response body. Some legacy
// endpoints answer with the object directly or under "session"; decode
// normalizes all of it in one place.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Session json.RawMessage `json:"session"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// Client talks to the REST backend. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a REST client for the given base URL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// SetToken sets the bearer token attached to subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// TokenExpired reports whether the stored bearer token is absent,
// unparseable, or past its exp claim. The signature is not verified;
// that is the server's job.
func (c *Client) TokenExpired() bool {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token == "" {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return time.Now().After(exp.Time)
}

// GetSession fetches one session's description with its creator summary.
func (c *Client) GetSession(ctx context.Context, id string) (*models.SessionWithCreator, error) {
	var s models.SessionWithCreator
	if err := c.do(ctx, http.MethodGet, "/sessions/"+id, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions lists sessions, optionally filtered to one creator.
func (c *Client) ListSessions(ctx context.Context, creatorID string) ([]models.Session, error) {
	path := "/sessions"
	if creatorID != "" {
		path += "?creatorId=" + creatorID
	}
	var out []models.Session
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSessionInput is the body for creating a session.
type CreateSessionInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ProductIDs  []string `json:"productIds,omitempty"`
}

// CreateSession creates a session. The backend has answered in three
// shapes over time (data envelope, {success, session}, bare object);
// all are normalized here.
func (c *Client) CreateSession(ctx context.Context, in CreateSessionInput) (*models.Session, error) {
	var s models.Session
	if err := c.do(ctx, http.MethodPost, "/sessions", in, &s); err != nil {
		return nil, err
	}
	if s.ID == "" {
		return nil, fmt.Errorf("create session: unrecognized response shape")
	}
	return &s, nil
}

// UpdateSessionInput is the body for updating session metadata.
type UpdateSessionInput struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// UpdateSession updates a session's metadata.
func (c *Client) UpdateSession(ctx context.Context, id string, in UpdateSessionInput) (*models.Session, error) {
	var s models.Session
	if err := c.do(ctx, http.MethodPut, "/sessions/"+id, in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSessionStatus changes the broadcast lifecycle status.
func (c *Client) UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) (*models.Session, error) {
	body := struct {
		Status models.SessionStatus `json:"status"`
	}{Status: status}
	var s models.Session
	if err := c.do(ctx, http.MethodPatch, "/sessions/"+id+"/status", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSession deletes a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+id, nil, nil)
}

// StartStream begins the creator's broadcast and returns the publisher
// token for the external video transport.
func (c *Client) StartStream(ctx context.Context, id string) (*models.StreamToken, error) {
	var t models.StreamToken
	if err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/start-stream", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// EndStream ends the broadcast.
func (c *Client) EndStream(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/sessions/"+id+"/end-stream", nil, nil)
}

// GetStreamToken returns the subscriber token for viewers.
func (c *Client) GetStreamToken(ctx context.Context, id string) (*models.StreamToken, error) {
	var t models.StreamToken
	if err := c.do(ctx, http.MethodGet, "/sessions/"+id+"/stream-token", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListProducts lists the creator's product catalog.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductInput is the body for creating or updating a product.
type ProductInput struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Category      string   `json:"category,omitempty"`
	InStock       bool     `json:"inStock"`
	ImageURL      string   `json:"imageUrl,omitempty"`
}

// CreateProduct adds a product to the catalog.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodPost, "/products", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct updates a product.
func (c *Client) UpdateProduct(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodPut, "/products/"+id, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/products/"+id, nil, nil)
}

// CreatorAnalytics fetches the creator dashboard rollup.
func (c *Client) CreatorAnalytics(ctx context.Context, creatorID int64) (*models.GlobalAnalytics, error) {
	var g models.GlobalAnalytics
	path := fmt.Sprintf("/analytics/creator/%d", creatorID)
	if err := c.do(ctx, http.MethodGet, path, nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// do performs one request and decodes the response into out (when out
// is non-nil), unwrapping the envelope if present.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		msg := errorMessage(raw)
		c.logger.Warn("api request failed",
			zap.String("method", method), zap.String("path", path),
			zap.Int("status", resp.StatusCode), zap.String("error", msg))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}
	if out == nil || len(raw) == 0 || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := decode(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// decode unwraps the {success, data} envelope (or the legacy "session"
// key) and falls back to decoding the payload directly.
func decode(raw []byte, out interface{}) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if len(env.Data) > 0 && string(env.Data) != "null" {
			return json.Unmarshal(env.Data, out)
		}
		if len(env.Session) > 0 && string(env.Session) != "null" {
			return json.Unmarshal(env.Session, out)
		}
	}
	return json.Unmarshal(raw, out)
}

func errorMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

// Package client talks to a taskboard server over its REST API and board
// websocket. *Client satisfies taskstore.Backend, so the board model runs
// unchanged against a remote server.
package client

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

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/domain"
)

const apiPrefix = "/api/v1"

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which times out after 30s.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL. token may be empty until
// Login or Register succeeds.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		token:   token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ---------------------------------------------------------------------------
// Teams and auth
// ---------------------------------------------------------------------------

func (c *Client) CreateTeam(ctx context.Context, name, slug string) (*domain.Team, error) {
	var team domain.Team
	in := map[string]string{"name": name, "slug": slug}
	if err := c.do(ctx, http.MethodPost, "/teams", in, &team); err != nil {
		return nil, fmt.Errorf("client.CreateTeam: %w", err)
	}
	return &team, nil
}

// Register creates an account and stores the returned access token.
func (c *Client) Register(ctx context.Context, teamSlug, email, password, displayName string) (*domain.User, *auth.TokenPair, error) {
	in := map[string]string{
		"team_slug":    teamSlug,
		"email":        email,
		"password":     password,
		"display_name": displayName,
	}
	var out struct {
		User *domain.User `json:"user"`
		auth.TokenPair
	}
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &out); err != nil {
		return nil, nil, fmt.Errorf("client.Register: %w", err)
	}

	c.SetToken(out.AccessToken)
	return out.User, &out.TokenPair, nil
}

// Login stores the returned access token on success.
func (c *Client) Login(ctx context.Context, teamSlug, email, password string) (*auth.TokenPair, error) {
	in := map[string]string{"team_slug": teamSlug, "email": email, "password": password}
	var pair auth.TokenPair
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &pair); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}

	c.SetToken(pair.AccessToken)
	return &pair, nil
}

func (c *Client) Me(ctx context.Context) (auth.Identity, error) {
	var id auth.Identity
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &id); err != nil {
		return auth.Identity{}, fmt.Errorf("client.Me: %w", err)
	}
	return id, nil
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

func (c *Client) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var t domain.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+id.String(), nil, &t); err != nil {
		return nil, fmt.Errorf("client.GetTask: %w", err)
	}
	return &t, nil
}

// Board fetches the team's columns once.
func (c *Client) Board(ctx context.Context) ([]domain.Column, error) {
	var out struct {
		Columns []domain.Column `json:"columns"`
	}
	if err := c.do(ctx, http.MethodGet, "/board", nil, &out); err != nil {
		return nil, fmt.Errorf("client.Board: %w", err)
	}
	return out.Columns, nil
}

// Create stores a task. The server takes team and author from the token, so
// in.TeamID and in.CreatedBy are not sent.
func (c *Client) Create(ctx context.Context, in domain.NewTask) (*domain.Task, error) {
	body := map[string]any{"title": in.Title, "description": in.Description}
	if in.AssignedTo != nil {
		body["assigned_to"] = in.AssignedTo.String()
	}

	var t domain.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", body, &t); err != nil {
		return nil, fmt.Errorf("client.Create: %w", err)
	}
	return &t, nil
}

// Update applies the whole patch. Detail-only and mixed patches go through one
// PUT; a status-only patch uses the status endpoint.
func (c *Client) Update(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
	body, hasDetails := detailsBody(patch)

	switch {
	case hasDetails:
		if patch.Status != nil {
			body["status"] = patch.Status.String()
		}
		var t domain.Task
		if err := c.do(ctx, http.MethodPut, "/tasks/"+id.String(), body, &t); err != nil {
			return nil, fmt.Errorf("client.Update: %w", err)
		}
		return &t, nil

	case patch.Status != nil:
		var out struct {
			Task *domain.Task `json:"task"`
		}
		in := map[string]string{"status": patch.Status.String()}
		if err := c.do(ctx, http.MethodPatch, "/tasks/"+id.String()+"/status", in, &out); err != nil {
			return nil, fmt.Errorf("client.Update: %w", err)
		}
		return out.Task, nil

	default:
		return nil, fmt.Errorf("client.Update: %w", patch.Validate())
	}
}

func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.do(ctx, http.MethodDelete, "/tasks/"+id.String(), nil, nil); err != nil {
		return fmt.Errorf("client.Delete: %w", err)
	}
	return nil
}

func detailsBody(p domain.TaskPatch) (map[string]any, bool) {
	body := make(map[string]any)
	if p.Title != nil {
		body["title"] = *p.Title
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.SetAssignee {
		if p.AssignedTo == nil {
			body["unassign"] = true
		} else {
			body["assigned_to"] = p.AssignedTo.String()
		}
	}
	return body, len(body) > 0
}

// ---------------------------------------------------------------------------
// transport
// ---------------------------------------------------------------------------

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", domain.ErrBackend, err)
	}
	return nil
}

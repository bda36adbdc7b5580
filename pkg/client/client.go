// Package client is a Go client for the decision-fitness worker API.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/thebtf/decision-fitness/pkg/models"
)

const (
	// HealthCheckTimeout bounds a single health probe.
	HealthCheckTimeout = 1 * time.Second

	// DefaultTimeout bounds every other request.
	DefaultTimeout = 10 * time.Second
)

// APIError is a non-2xx response from the worker.
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("request failed: %d %s", e.StatusCode, e.Message)
}

// Client talks to one worker on behalf of one user.
type Client struct {
	http    *http.Client
	baseURL string
	userID  string
	plan    string
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithUser sends X-User-ID and X-User-Plan, for workers without a JWT secret.
func WithUser(userID, plan string) Option {
	return func(c *Client) {
		c.userID = userID
		c.plan = plan
	}
}

// WithToken sends a bearer token, for workers with a JWT secret.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the worker at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForPort creates a client for a worker on the loopback interface.
func ForPort(port int, opts ...Option) *Client {
	return New(fmt.Sprintf("http://127.0.0.1:%d", port), opts...)
}

// Healthy reports whether the worker answers /health with status ready.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	var health struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &health); err != nil {
		return false
	}
	return health.Status == "ready"
}

// Version returns the running worker's version.
func (c *Client) Version(ctx context.Context) (string, error) {
	var v map[string]string
	if err := c.do(ctx, http.MethodGet, "/api/version", nil, &v); err != nil {
		return "", err
	}
	return v["version"], nil
}

// Evaluation is a scored draft that has not been saved.
type Evaluation struct {
	Title  string               `json:"title"`
	Plan   []string             `json:"plan"`
	Result models.ClarityResult `json:"result"`
}

// Evaluate scores a draft without saving it.
func (c *Client) Evaluate(ctx context.Context, draft models.Draft) (Evaluation, error) {
	var ev Evaluation
	err := c.do(ctx, http.MethodPost, "/api/evaluate", draft, &ev)
	return ev, err
}

// Save stores a draft as a new decision.
func (c *Client) Save(ctx context.Context, draft models.Draft) (models.SavedDecision, error) {
	var d models.SavedDecision
	err := c.do(ctx, http.MethodPost, "/api/decisions", draft, &d)
	return d, err
}

// Page is one page of decisions, newest first.
type Page struct {
	Decisions []models.SavedDecision `json:"decisions"`
	Total     int                    `json:"total"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
}

// List returns a page of the user's decisions. A zero limit uses the
// worker's default.
func (c *Client) List(ctx context.Context, limit, offset int) (Page, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/decisions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var p Page
	err := c.do(ctx, http.MethodGet, path, nil, &p)
	return p, err
}

// Get returns one decision.
func (c *Client) Get(ctx context.Context, decisionID string) (models.SavedDecision, error) {
	var d models.SavedDecision
	err := c.do(ctx, http.MethodGet, decisionPath(decisionID), nil, &d)
	return d, err
}

// FollowUp records what the user did and how it turned out.
func (c *Client) FollowUp(ctx context.Context, decisionID string, action models.ActionTaken, outcome models.Outcome, regret bool) (models.SavedDecision, error) {
	body := map[string]any{"actionTaken": action, "outcome": outcome, "regret": regret}
	var d models.SavedDecision
	err := c.do(ctx, http.MethodPut, decisionPath(decisionID)+"/follow-up", body, &d)
	return d, err
}

// CheckIn records the 7-day reflection.
func (c *Client) CheckIn(ctx context.Context, decisionID string, ci models.CheckIn) (models.SavedDecision, error) {
	body := map[string]any{
		"whatChanged":      ci.WhatChanged,
		"clarityDirection": ci.ClarityDirection,
		"newData":          ci.NewData,
	}
	var d models.SavedDecision
	err := c.do(ctx, http.MethodPut, decisionPath(decisionID)+"/check-in", body, &d)
	return d, err
}

// AddPlanItem appends a step to the decision's action plan.
func (c *Client) AddPlanItem(ctx context.Context, decisionID, text string) (models.SavedDecision, error) {
	var d models.SavedDecision
	err := c.do(ctx, http.MethodPost, decisionPath(decisionID)+"/plan/items", map[string]string{"text": text}, &d)
	return d, err
}

// SetPlanItemDone marks one plan step done or pending.
func (c *Client) SetPlanItemDone(ctx context.Context, decisionID, itemID string, done bool) (models.SavedDecision, error) {
	var d models.SavedDecision
	path := decisionPath(decisionID) + "/plan/items/" + url.PathEscape(itemID)
	err := c.do(ctx, http.MethodPatch, path, map[string]bool{"done": done}, &d)
	return d, err
}

// RestorePlan resets the action plan to the recommendation's template.
func (c *Client) RestorePlan(ctx context.Context, decisionID string) (models.SavedDecision, error) {
	var d models.SavedDecision
	err := c.do(ctx, http.MethodPost, decisionPath(decisionID)+"/plan/restore", nil, &d)
	return d, err
}

// Dashboard returns the user's analytics dashboard as decoded JSON.
func (c *Client) Dashboard(ctx context.Context) (map[string]any, error) {
	var dash map[string]any
	err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, &dash)
	return dash, err
}

func decisionPath(id string) string {
	return "/api/decisions/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
		if c.plan != "" {
			req.Header.Set("X-User-Plan", c.plan)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// VersionsCompatible reports whether two worker versions share a base
// version. "dev" is compatible with anything.
func VersionsCompatible(v1, v2 string) bool {
	if v1 == "dev" || v2 == "dev" {
		return true
	}
	return baseVersion(v1) == baseVersion(v2)
}

// baseVersion strips a leading v and any -suffix: "v0.3.5-2-gca711a8" -> "0.3.5".
func baseVersion(version string) string {
	v := strings.TrimPrefix(version, "v")
	if idx := strings.Index(v, "-"); idx > 0 {
		v = v[:idx]
	}
	return v
}

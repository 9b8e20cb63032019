// Package client talks to the gate control server's REST API: login,
// full-state snapshots, gate commands, and the server-push event stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/greymark/gatewatch/internal/authz"
	"github.com/greymark/gatewatch/internal/telemetry"
)

// TokenSource supplies the current bearer token, or "" when no session
// is live. Sessions come and go across revocations, so the token is read
// per request rather than captured at construction.
type TokenSource func() string

// API is the HTTP client for the control server.
type API struct {
	baseURL    string
	token      TokenSource
	httpClient *http.Client
}

// New returns an API client targeting baseURL (e.g. "http://gate.local").
func New(baseURL string, token TokenSource) *API {
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// APIError is an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401: the session is expired or
// invalid and must be revoked.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsForbidden reports whether err is a 403: the session is valid but the
// role lacks permission. A single command failure, not a revocation.
func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
}

// Login exchanges credentials for a session. No bearer token is sent.
func (c *API) Login(ctx context.Context, username, password string) (*authz.Session, error) {
	body := map[string]string{"username": username, "password": password}
	var session authz.Session
	if err := c.doJSON(ctx, http.MethodPost, "/api/login", body, &session, false); err != nil {
		return nil, err
	}
	return &session, nil
}

// Snapshot fetches the full controller state.
func (c *API) Snapshot(ctx context.Context) (*telemetry.Snapshot, error) {
	var snap telemetry.Snapshot
	if err := c.doJSON(ctx, http.MethodGet, "/api/state", nil, &snap, true); err != nil {
		return nil, err
	}
	return &snap, nil
}

// GateCommand submits one gate action.
func (c *API) GateCommand(ctx context.Context, action telemetry.Action) error {
	body := map[string]string{"action": string(action)}
	return c.doJSON(ctx, http.MethodPost, "/api/gate", body, nil, true)
}

// OpenStream connects to the server-push event stream. The caller owns
// the response body and must close it. A non-200 status is converted to
// an APIError and the body is closed.
func (c *API) OpenStream(ctx context.Context) (*http.Response, error) {
	streamURL := c.baseURL + "/events?token=" + url.QueryEscape(c.token())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "event stream rejected"}
	}
	return resp, nil
}

func (c *API) doJSON(ctx context.Context, method, path string, body any, result any, authed bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

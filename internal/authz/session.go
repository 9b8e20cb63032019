package authz

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/greymark/gatewatch/internal/activity"
)

// RoleAdmin is the only role permitted to issue gate commands. Other
// roles (viewer, ...) may watch telemetry but not command.
const RoleAdmin = "admin"

// Session is one authenticated exchange with the control server,
// persisted between runs.
type Session struct {
	Token     string `toml:"token" json:"token"`
	Role      string `toml:"role" json:"role"`
	Username  string `toml:"username" json:"username"`
	ExpiresAt int64  `toml:"expires_at,omitempty" json:"expiresAt,omitempty"`
}

// LoginFunc performs the network login exchange. Implemented by the HTTP
// API client.
type LoginFunc func(ctx context.Context, username, password string) (*Session, error)

// SessionGate authorizes through a server-issued session. At most one
// session is live; authorizing again supersedes the previous one.
//
// Resume restores a persisted session optimistically, without contacting
// the server: the first 401 the transport sees revokes it.
type SessionGate struct {
	mu       sync.Mutex
	store    Store
	login    LoginFunc
	log      *activity.Log
	session  *Session
	onRevoke func(reason string)
}

// NewSessionGate returns a gate with no live session.
func NewSessionGate(store Store, login LoginFunc, log *activity.Log) *SessionGate {
	return &SessionGate{store: store, login: login, log: log}
}

// OnRevoke registers a callback invoked after a revocation, used to
// re-prompt for credentials.
func (g *SessionGate) OnRevoke(fn func(reason string)) {
	g.mu.Lock()
	g.onRevoke = fn
	g.mu.Unlock()
}

func (g *SessionGate) Authorized() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session != nil
}

func (g *SessionGate) CanCommand() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session != nil && g.session.Role == RoleAdmin
}

// Session returns a copy of the live session, or nil.
func (g *SessionGate) Session() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil
	}
	s := *g.session
	return &s
}

// Token returns the live session token, or "".
func (g *SessionGate) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return ""
	}
	return g.session.Token
}

// Authorize logs in and installs the resulting session, superseding any
// previous one. The in-memory session and the persisted blob are updated
// together, never one without the other.
func (g *SessionGate) Authorize(ctx context.Context, cred Credentials) error {
	session, err := g.login(ctx, cred.Username, cred.Password)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(session); err != nil {
		return err
	}

	g.mu.Lock()
	g.session = session
	if err := g.store.Save(buf.Bytes()); err != nil {
		// Keep memory and storage consistent: a session we could not
		// persist is not installed.
		g.session = nil
		g.mu.Unlock()
		return err
	}
	g.mu.Unlock()

	g.log.Append("Signed in as %s (%s)", session.Username, session.Role)
	return nil
}

// Resume restores a persisted session. A blob without a token is treated
// as corrupt and cleared.
func (g *SessionGate) Resume() bool {
	data, err := g.store.Load()
	if err != nil || len(data) == 0 {
		return false
	}
	var session Session
	if err := toml.Unmarshal(data, &session); err != nil || session.Token == "" {
		_ = g.store.Clear()
		return false
	}
	g.mu.Lock()
	g.session = &session
	g.mu.Unlock()
	return true
}

// Revoke drops the session and its persisted blob.
func (g *SessionGate) Revoke(reason string) {
	g.mu.Lock()
	g.session = nil
	if err := g.store.Clear(); err != nil {
		slog.Warn("failed to clear stored session", "error", err)
	}
	onRevoke := g.onRevoke
	g.mu.Unlock()

	g.log.Append("%s", reason)
	if onRevoke != nil {
		onRevoke(reason)
	}
}

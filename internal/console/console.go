// Package console wires the dashboard core together: one authorization
// gate, one transport adapter, one reconciled view, one activity log,
// one command dispatcher. It owns the single event-pump goroutine, so
// every view mutation happens on one goroutine regardless of transport.
package console

import (
	"context"
	"errors"
	"sync"

	"github.com/greymark/gatewatch/internal/activity"
	"github.com/greymark/gatewatch/internal/authz"
	"github.com/greymark/gatewatch/internal/dispatch"
	"github.com/greymark/gatewatch/internal/state"
	"github.com/greymark/gatewatch/internal/telemetry"
	"github.com/greymark/gatewatch/internal/transport"
)

// ErrNotAuthorized is returned by Start when the variant requires a live
// session before any telemetry can flow and none could be resumed.
var ErrNotAuthorized = errors.New("not authorized")

// Console is the assembled dashboard core.
type Console struct {
	Gate       authz.Gate
	Adapter    transport.Adapter
	Log        *activity.Log
	Reconciler *state.Reconciler
	Dispatcher *dispatch.Dispatcher

	// RequiresAuth marks the server-backed variant, where even viewing
	// needs a session token. The broker variant shows telemetry freely
	// and gates only commands.
	RequiresAuth bool

	mu      sync.Mutex
	started bool
}

// New assembles a console from a gate, an adapter, and a shared log.
func New(gate authz.Gate, adapter transport.Adapter, log *activity.Log, requiresAuth bool) *Console {
	return &Console{
		Gate:         gate,
		Adapter:      adapter,
		Log:          log,
		Reconciler:   state.NewReconciler(log),
		Dispatcher:   dispatch.New(gate, adapter, log),
		RequiresAuth: requiresAuth,
	}
}

// Start resumes any persisted authorization, starts the transport, and
// begins pumping events into the reconciler. For the server variant it
// fails with ErrNotAuthorized when no session exists yet; the caller
// prompts for credentials and calls Start again.
func (c *Console) Start(ctx context.Context) error {
	if !c.Gate.Authorized() {
		c.Gate.Resume()
	}
	if c.RequiresAuth && !c.Gate.Authorized() {
		return ErrNotAuthorized
	}

	if err := c.Adapter.Start(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	alreadyPumping := c.started
	c.started = true
	c.mu.Unlock()
	if !alreadyPumping {
		go c.pump(ctx)
	}
	return nil
}

func (c *Console) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.Adapter.Events():
			c.Reconciler.Apply(&ev)
		}
	}
}

// View returns a copy of the reconciled state.
func (c *Console) View() *state.View {
	return c.Reconciler.View()
}

// Dispatch issues one gate action through the dispatcher.
func (c *Console) Dispatch(ctx context.Context, action telemetry.Action) error {
	return c.Dispatcher.Dispatch(ctx, action)
}

// Close tears down the transport.
func (c *Console) Close() error {
	return c.Adapter.Close()
}

// Package dispatch turns operator actions into gate commands, enforcing
// the authorization and connectivity preconditions first.
package dispatch

import (
	"context"
	"sync"

	"github.com/greymark/gatewatch/internal/activity"
	"github.com/greymark/gatewatch/internal/authz"
	"github.com/greymark/gatewatch/internal/telemetry"
)

// Transport is the slice of the transport adapter the dispatcher needs.
type Transport interface {
	Connected() bool
	Command(ctx context.Context, action telemetry.Action) error
}

// Dispatcher issues gate commands. Preconditions are checked in order —
// authorized first, then connected — and a failed precondition aborts
// with a log entry and no network effect. Each action is guarded while
// its command is in flight; a duplicate dispatch of the same action is
// refused until the first completes.
type Dispatcher struct {
	gate      authz.Gate
	transport Transport
	log       *activity.Log

	mu       sync.Mutex
	inflight map[telemetry.Action]bool
}

// New returns a dispatcher over the given gate and transport.
func New(gate authz.Gate, transport Transport, log *activity.Log) *Dispatcher {
	return &Dispatcher{
		gate:      gate,
		transport: transport,
		log:       log,
		inflight:  make(map[telemetry.Action]bool),
	}
}

// InFlight reports whether a command for action is currently pending,
// so UIs can disable the affordance.
func (d *Dispatcher) InFlight(action telemetry.Action) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inflight[action]
}

// Dispatch sends one gate action. Unknown actions are ignored: the
// action set is closed and statically known, so there is nothing useful
// to tell the operator.
func (d *Dispatcher) Dispatch(ctx context.Context, action telemetry.Action) error {
	if _, ok := telemetry.ActionPayload(action); !ok {
		return nil
	}

	if !d.gate.CanCommand() {
		if d.gate.Authorized() {
			d.log.Append("Admin role required for gate commands")
		} else {
			d.log.Append("Sign in required")
		}
		return nil
	}
	if !d.transport.Connected() {
		d.log.Append("Not connected — command %s dropped", action)
		return nil
	}

	d.mu.Lock()
	if d.inflight[action] {
		d.mu.Unlock()
		d.log.Append("Command %s already in flight", action)
		return nil
	}
	d.inflight[action] = true
	d.mu.Unlock()

	err := d.transport.Command(ctx, action)

	d.mu.Lock()
	delete(d.inflight, action)
	d.mu.Unlock()

	if err != nil {
		d.log.Append("Command failed: %v", err)
		return err
	}
	d.log.Append("command → %s", action)
	return nil
}

package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/greymark/gatewatch/internal/activity"
	"github.com/greymark/gatewatch/internal/authz"
	"github.com/greymark/gatewatch/internal/telemetry"
)

// fakeGate is a scriptable authz.Gate.
type fakeGate struct {
	authorized bool
	canCommand bool
}

func (g *fakeGate) Authorized() bool { return g.authorized }
func (g *fakeGate) CanCommand() bool { return g.canCommand }

func (g *fakeGate) Authorize(ctx context.Context, cred authz.Credentials) error {
	return nil
}

func (g *fakeGate) Resume() bool { return false }

func (g *fakeGate) Revoke(reason string) {}

// fakeTransport records commands.
type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	err       error
	commands  []telemetry.Action
	block     chan struct{}
}

func (t *fakeTransport) Connected() bool { return t.connected }

func (t *fakeTransport) Command(ctx context.Context, action telemetry.Action) error {
	t.mu.Lock()
	t.commands = append(t.commands, action)
	t.mu.Unlock()
	if t.block != nil {
		<-t.block
	}
	return t.err
}

func (t *fakeTransport) sent() []telemetry.Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]telemetry.Action(nil), t.commands...)
}

func logContains(log *activity.Log, substr string) bool {
	for _, entry := range log.Entries() {
		if strings.Contains(entry, substr) {
			return true
		}
	}
	return false
}

func TestDispatch_UnauthorizedAborts(t *testing.T) {
	log := activity.New()
	tr := &fakeTransport{connected: true}
	d := New(&fakeGate{}, tr, log)

	if err := d.Dispatch(context.Background(), telemetry.ActionOpen); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(tr.sent()) != 0 {
		t.Error("unauthorized dispatch must have no network effect")
	}
	if !logContains(log, "Sign in required") {
		t.Errorf("expected sign-in log entry, got %v", log.Entries())
	}
}

func TestDispatch_ViewerRoleAborts(t *testing.T) {
	log := activity.New()
	tr := &fakeTransport{connected: true}
	d := New(&fakeGate{authorized: true, canCommand: false}, tr, log)

	d.Dispatch(context.Background(), telemetry.ActionOpen)
	if len(tr.sent()) != 0 {
		t.Error("viewer dispatch must have no network effect")
	}
	if !logContains(log, "Admin role required") {
		t.Errorf("expected role log entry, got %v", log.Entries())
	}
}

func TestDispatch_DisconnectedAborts(t *testing.T) {
	log := activity.New()
	tr := &fakeTransport{connected: false}
	d := New(&fakeGate{authorized: true, canCommand: true}, tr, log)

	d.Dispatch(context.Background(), telemetry.ActionClose)
	if len(tr.sent()) != 0 {
		t.Error("disconnected dispatch must have no network effect")
	}
	if !logContains(log, "Not connected") {
		t.Errorf("expected disconnect log entry, got %v", log.Entries())
	}
}

func TestDispatch_SendsAndLogsOutcome(t *testing.T) {
	log := activity.New()
	tr := &fakeTransport{connected: true}
	d := New(&fakeGate{authorized: true, canCommand: true}, tr, log)

	if err := d.Dispatch(context.Background(), telemetry.ActionToggle); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := tr.sent(); len(got) != 1 || got[0] != telemetry.ActionToggle {
		t.Errorf("sent = %v", got)
	}
	if !logContains(log, "command → toggle") {
		t.Errorf("expected outcome log entry, got %v", log.Entries())
	}
}

func TestDispatch_FailureLoggedAndGuardCleared(t *testing.T) {
	log := activity.New()
	tr := &fakeTransport{connected: true, err: errors.New("broker down")}
	d := New(&fakeGate{authorized: true, canCommand: true}, tr, log)

	if err := d.Dispatch(context.Background(), telemetry.ActionOpen); err == nil {
		t.Fatal("expected command error")
	}
	if !logContains(log, "Command failed") {
		t.Errorf("expected failure log entry, got %v", log.Entries())
	}
	if d.InFlight(telemetry.ActionOpen) {
		t.Error("in-flight guard must clear on failure")
	}

	// The affordance is usable again: no automatic retry, but a manual
	// one goes through.
	tr.err = nil
	if err := d.Dispatch(context.Background(), telemetry.ActionOpen); err != nil {
		t.Fatalf("redispatch: %v", err)
	}
}

func TestDispatch_UnknownActionIsNoOp(t *testing.T) {
	log := activity.New()
	tr := &fakeTransport{connected: true}
	d := New(&fakeGate{authorized: true, canCommand: true}, tr, log)

	if err := d.Dispatch(context.Background(), "levitate"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(tr.sent()) != 0 || log.Len() != 0 {
		t.Error("unknown action must be silently ignored")
	}
}

func TestDispatch_DuplicateWhileInFlightRefused(t *testing.T) {
	log := activity.New()
	block := make(chan struct{})
	tr := &fakeTransport{connected: true, block: block}
	d := New(&fakeGate{authorized: true, canCommand: true}, tr, log)

	done := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), telemetry.ActionPulse)
		close(done)
	}()

	for !d.InFlight(telemetry.ActionPulse) {
		time.Sleep(time.Millisecond)
	}
	d.Dispatch(context.Background(), telemetry.ActionPulse)
	if got := len(tr.sent()); got != 1 {
		t.Errorf("duplicate dispatch reached the transport: %d sends", got)
	}

	close(block)
	<-done
	if d.InFlight(telemetry.ActionPulse) {
		t.Error("guard must clear after completion")
	}
}

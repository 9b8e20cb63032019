package main

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/greymark/gatewatch/internal/activity"
	"github.com/greymark/gatewatch/internal/authz"
	"github.com/greymark/gatewatch/internal/config"
	"github.com/greymark/gatewatch/internal/console"
	"github.com/greymark/gatewatch/internal/telemetry"
)

// stubAdapter satisfies transport.Adapter without any network.
type stubAdapter struct {
	events chan telemetry.Event
}

func newStubAdapter() *stubAdapter {
	return &stubAdapter{events: make(chan telemetry.Event, 1)}
}

func (s *stubAdapter) Start(ctx context.Context) error { return nil }

func (s *stubAdapter) Events() <-chan telemetry.Event { return s.events }

func (s *stubAdapter) Command(ctx context.Context, action telemetry.Action) error { return nil }

func (s *stubAdapter) Connected() bool { return true }

func (s *stubAdapter) Close() error { return nil }

func brokerTestApp(digest string) *app {
	log := activity.New()
	gate := authz.NewDigestGate(digest, authz.NewMemStore(), log)
	con := console.New(gate, newStubAdapter(), log, false)
	return &app{variant: config.VariantBroker, con: con, gate: gate}
}

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestDashboard_RevocationReprompts(t *testing.T) {
	a := brokerTestApp(authz.DigestPassphrase("secret"))
	d := newDashboard(context.Background(), a)
	d.Update(startedMsg{})
	if !d.running {
		t.Fatal("console should be running after a clean start")
	}

	d.Update(revokedMsg{reason: "Session expired"})

	if !d.formActive {
		t.Error("revocation should open the credential form immediately")
	}
	if d.running {
		t.Error("revocation should mark the console stopped")
	}
	if d.formErr != "Session expired" {
		t.Errorf("formErr = %q, want revocation reason", d.formErr)
	}
}

func TestDashboard_ReauthorizeRestartsConsole(t *testing.T) {
	a := brokerTestApp(authz.DigestPassphrase("secret"))
	d := newDashboard(context.Background(), a)
	d.Update(startedMsg{})
	d.Update(revokedMsg{reason: "Session expired"})

	_, cmd := d.Update(authResultMsg{})
	if d.formActive {
		t.Error("successful authorization should close the form")
	}
	if cmd == nil {
		t.Error("authorization after a revocation should restart the console")
	}
}

func TestDashboard_UnlockKeyOnOpenGate(t *testing.T) {
	a := brokerTestApp("")
	d := newDashboard(context.Background(), a)
	d.Update(startedMsg{})

	d.Update(keyMsg('l'))

	if d.formActive {
		t.Error("open gate should not prompt for a passphrase")
	}
	if d.notice == "" {
		t.Error("expected a commands-are-open notice")
	}
}

func TestDashboard_UnlockKeyWhileUnlocked(t *testing.T) {
	a := brokerTestApp(authz.DigestPassphrase("secret"))
	if err := a.gate.Authorize(context.Background(), authz.Credentials{Passphrase: "secret"}); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	d := newDashboard(context.Background(), a)
	d.Update(startedMsg{})

	d.Update(keyMsg('l'))

	if d.formActive {
		t.Error("unlocked gate should not re-prompt")
	}
	if d.notice == "" {
		t.Error("expected an already-unlocked notice")
	}
}

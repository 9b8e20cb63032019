package ui

import (
	"strings"
	"testing"

	"github.com/greymark/gatewatch/internal/state"
	"github.com/greymark/gatewatch/internal/telemetry"
)

func TestRenderView(t *testing.T) {
	ForceNoColor()
	v := state.NewView()
	v.Inputs[telemetry.InputBell] = true
	v.GateState = "closed"

	out := RenderView(v)
	if !strings.Contains(out, "Bell   ON") {
		t.Errorf("missing active bell line:\n%s", out)
	}
	if !strings.Contains(out, "Lock   OFF") {
		t.Errorf("missing idle lock line:\n%s", out)
	}
	if !strings.Contains(out, "Gate   closed") {
		t.Errorf("missing gate line:\n%s", out)
	}
	if !strings.Contains(out, "Awaiting telemetry…") {
		t.Errorf("missing awaiting line:\n%s", out)
	}
}

func TestLastSignal(t *testing.T) {
	if got := LastSignal(0); got != "Awaiting telemetry…" {
		t.Errorf("LastSignal(0) = %q", got)
	}
	if got := LastSignal(1700000000); !strings.HasPrefix(got, "Last signal ") {
		t.Errorf("LastSignal = %q", got)
	}
}

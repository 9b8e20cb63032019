package telemetry

import (
	"testing"
	"time"
)

func TestParseBool_Coercion(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"high", true},
		{"HIGH", true},
		{"on", true},
		{"ON", true},
		{" on ", true},
		{"2", true},
		{"-1", true},
		{"0.5", true},
		{"0", false},
		{"0.0", false},
		{"off", false},
		{"low", false},
		{"false", false},
		{"", false},
		{"garbage", false},
	}
	for _, c := range cases {
		if got := ParseBool(c.raw); got != c.want {
			t.Errorf("ParseBool(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestResolveStream_Input(t *testing.T) {
	ev := ResolveStream([]byte(`{"type":"input","input":"bell","value":true,"ts":1700000000}`))
	if ev == nil {
		t.Fatal("expected event, got nil")
	}
	if ev.Kind != KindInput || ev.Input != InputBell || !ev.Value {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.TS != 1700000000 {
		t.Errorf("TS = %d, want 1700000000", ev.TS)
	}
}

func TestResolveStream_InputStringValue(t *testing.T) {
	ev := ResolveStream([]byte(`{"type":"input","input":"lock","value":"HIGH"}`))
	if ev == nil || !ev.Value {
		t.Fatalf("string value %q should coerce to true, got %+v", "HIGH", ev)
	}
}

func TestResolveStream_Snapshot(t *testing.T) {
	ev := ResolveStream([]byte(`{"type":"snapshot","state":{"inputs":{"bell":true,"car":false},"gate_state":"open","last_update":1700000001}}`))
	if ev == nil || ev.Kind != KindSnapshot {
		t.Fatalf("expected snapshot event, got %+v", ev)
	}
	if !ev.Snap.Inputs[InputBell] || ev.Snap.GateState != "open" || ev.Snap.LastUpdate != 1700000001 {
		t.Errorf("unexpected snapshot: %+v", ev.Snap)
	}
}

func TestResolveStream_GateStateAndStatus(t *testing.T) {
	ev := ResolveStream([]byte(`{"type":"gate_state","value":"closing"}`))
	if ev == nil || ev.Kind != KindGateState || ev.Text != "closing" {
		t.Fatalf("unexpected gate_state event: %+v", ev)
	}
	ev = ResolveStream([]byte(`{"type":"status","value":"heartbeat"}`))
	if ev == nil || ev.Kind != KindStatus || ev.Text != "heartbeat" {
		t.Fatalf("unexpected status event: %+v", ev)
	}
}

func TestResolveStream_UnknownTypeIgnored(t *testing.T) {
	if ev := ResolveStream([]byte(`{"type":"weird"}`)); ev != nil {
		t.Errorf("unknown type should resolve to nil, got %+v", ev)
	}
	if ev := ResolveStream([]byte(`not json`)); ev != nil {
		t.Errorf("malformed frame should resolve to nil, got %+v", ev)
	}
}

func testTable() *TopicTable {
	return &TopicTable{
		Output:     "gate.output.gate",
		GateState:  "gate.status.gate_state",
		GateMotion: "gate.status.gate_motion",
		Status:     "gate.status",
		Inputs: map[InputKey]string{
			InputBell:  "gate.input.bell",
			InputLock:  "gate.input.lock",
			InputState: "gate.input.state",
			InputCar:   "gate.input.car",
		},
	}
}

func TestTopicTable_ResolveInput(t *testing.T) {
	table := testTable()
	now := time.Unix(1700000100, 0)

	ev := table.Resolve("gate.input.bell", []byte("ON"), now)
	if ev == nil || ev.Kind != KindInput || ev.Input != InputBell || !ev.Value {
		t.Fatalf("payload ON should be a true bell input, got %+v", ev)
	}
	if ev.TS != 1700000100 {
		t.Errorf("TS = %d, want receive time", ev.TS)
	}

	ev = table.Resolve("gate.input.car", []byte("2"), now)
	if ev == nil || !ev.Value {
		t.Fatalf("payload 2 should coerce true, got %+v", ev)
	}

	ev = table.Resolve("gate.input.lock", []byte("off"), now)
	if ev == nil || ev.Value {
		t.Fatalf("payload off should coerce false, got %+v", ev)
	}
}

func TestTopicTable_GateMotionResolvesToGateState(t *testing.T) {
	table := testTable()
	now := time.Now()

	for _, subject := range []string{"gate.status.gate_state", "gate.status.gate_motion"} {
		ev := table.Resolve(subject, []byte("opening"), now)
		if ev == nil || ev.Kind != KindGateState || ev.Text != "opening" {
			t.Errorf("subject %s: got %+v, want gate_state event", subject, ev)
		}
	}
}

func TestTopicTable_StatusAndUnmatched(t *testing.T) {
	table := testTable()
	now := time.Now()

	ev := table.Resolve("gate.status", []byte("boot"), now)
	if ev == nil || ev.Kind != KindStatus || ev.Text != "boot" {
		t.Fatalf("unexpected status event: %+v", ev)
	}

	if ev := table.Resolve("gate.other.topic", []byte("x"), now); ev != nil {
		t.Errorf("unmatched subject should resolve to nil, got %+v", ev)
	}
}

func TestTopicTable_Subjects(t *testing.T) {
	subs := testTable().Subjects()
	if len(subs) != 7 {
		t.Fatalf("expected 7 subjects, got %d: %v", len(subs), subs)
	}
}

func TestActionPayload(t *testing.T) {
	cases := map[Action]string{
		ActionOpen:   "on",
		ActionClose:  "off",
		ActionToggle: "toggle",
		ActionPulse:  "toggle",
	}
	for action, want := range cases {
		got, ok := ActionPayload(action)
		if !ok || got != want {
			t.Errorf("ActionPayload(%s) = %q, %v; want %q, true", action, got, ok, want)
		}
	}
	if _, ok := ActionPayload("explode"); ok {
		t.Error("unknown action should not map to a payload")
	}
}

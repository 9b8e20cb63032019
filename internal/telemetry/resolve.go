package telemetry

import (
	"encoding/json"
	"time"
)

// streamFrame is the wire shape of one event-stream message:
// {"type": ..., "value": ..., "input": ..., "state": ..., "ts": ...}.
type streamFrame struct {
	Type  string          `json:"type"`
	Input string          `json:"input,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	State *Snapshot       `json:"state,omitempty"`
	TS    int64           `json:"ts,omitempty"`
}

// ResolveStream maps one event-stream payload to a canonical event.
// Unrecognized types and malformed frames return nil: the stream variant
// ignores them silently so newer server firmware can emit event types
// this client does not know about.
func ResolveStream(data []byte) *Event {
	var f streamFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	switch f.Type {
	case "snapshot":
		if f.State == nil {
			return nil
		}
		return &Event{Kind: KindSnapshot, Snap: f.State, TS: f.TS}
	case "input":
		key := InputKey(f.Input)
		return &Event{Kind: KindInput, Input: key, Value: coerceRawBool(f.Value), TS: f.TS}
	case "gate_state":
		return &Event{Kind: KindGateState, Text: rawString(f.Value), TS: f.TS}
	case "status":
		return &Event{Kind: KindStatus, Text: rawString(f.Value), TS: f.TS}
	}
	return nil
}

// coerceRawBool applies the cross-variant boolean coercion to a JSON
// value that may arrive as a bool, a number, or a string.
func coerceRawBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	return ParseBool(rawString(raw))
}

// rawString renders a JSON value as its string form: quoted strings are
// unwrapped, anything else is used verbatim.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// TopicTable is the broker variant's configured topic map. Zero-value
// fields are simply never matched.
type TopicTable struct {
	Output     string
	GateState  string
	GateMotion string
	Status     string
	Inputs     map[InputKey]string
}

// Resolve maps a broker message to a canonical event by matching the
// subject against the table: input topics first, then the gate-state and
// gate-motion topics (both produce gate_state events), then the status
// topic. An unmatched subject returns nil; the caller logs it and moves
// on. Broker frames carry no timestamp, so receive time is stamped on
// state-bearing events.
func (t *TopicTable) Resolve(subject string, payload []byte, now time.Time) *Event {
	ts := now.Unix()
	for key, topic := range t.Inputs {
		if topic != "" && topic == subject {
			return &Event{Kind: KindInput, Input: key, Value: ParseBool(string(payload)), TS: ts}
		}
	}
	switch subject {
	case t.GateState, t.GateMotion:
		if subject == "" {
			break
		}
		return &Event{Kind: KindGateState, Text: string(payload), TS: ts}
	case t.Status:
		if subject == "" {
			break
		}
		return &Event{Kind: KindStatus, Text: string(payload)}
	}
	return nil
}

// Subjects returns every inbound subject the table subscribes to.
func (t *TopicTable) Subjects() []string {
	var subs []string
	for _, key := range InputKeys() {
		if topic := t.Inputs[key]; topic != "" {
			subs = append(subs, topic)
		}
	}
	for _, topic := range []string{t.GateState, t.GateMotion, t.Status} {
		if topic != "" {
			subs = append(subs, topic)
		}
	}
	return subs
}

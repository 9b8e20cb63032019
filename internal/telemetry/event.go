// Package telemetry defines the canonical event model shared by every
// transport: raw frames from the event stream or the broker are resolved
// into Events, which the state reconciler consumes.
package telemetry

import (
	"strconv"
	"strings"
)

// Kind classifies a canonical event.
type Kind string

const (
	KindSnapshot  Kind = "snapshot"
	KindInput     Kind = "input"
	KindGateState Kind = "gate_state"
	KindStatus    Kind = "status"
)

// InputKey identifies one of the controller's sensor inputs.
type InputKey string

const (
	InputBell  InputKey = "bell"
	InputLock  InputKey = "lock"
	InputState InputKey = "state"
	InputCar   InputKey = "car"
)

// InputKeys returns the fixed set of known input keys.
func InputKeys() []InputKey {
	return []InputKey{InputBell, InputLock, InputState, InputCar}
}

// KnownInput reports whether k is a member of the fixed input key set.
func KnownInput(k InputKey) bool {
	switch k {
	case InputBell, InputLock, InputState, InputCar:
		return true
	}
	return false
}

// Snapshot is a full controller state as returned by GET /api/state and
// carried inside snapshot events on the stream.
type Snapshot struct {
	Inputs     map[InputKey]bool `json:"inputs"`
	GateState  string            `json:"gate_state,omitempty"`
	LastUpdate int64             `json:"last_update,omitempty"`
}

// Event is a single canonical telemetry unit. Exactly one of the
// kind-specific fields is meaningful:
//
//   - KindSnapshot: Snap
//   - KindInput: Input + Value
//   - KindGateState: Text
//   - KindStatus: Text
//
// TS is the event's own timestamp in unix seconds, 0 when absent.
type Event struct {
	Kind  Kind
	Input InputKey
	Value bool
	Text  string
	Snap  *Snapshot
	TS    int64
}

// Action is a gate command issued by an operator.
type Action string

const (
	ActionOpen   Action = "open"
	ActionClose  Action = "close"
	ActionToggle Action = "toggle"
	ActionPulse  Action = "pulse"
)

// ActionPayload maps an action to the broker output payload. The action
// set is closed; unknown actions report ok=false.
func ActionPayload(a Action) (payload string, ok bool) {
	switch a {
	case ActionOpen:
		return "on", true
	case ActionClose:
		return "off", true
	case ActionToggle, ActionPulse:
		return "toggle", true
	}
	return "", false
}

// ParseBool coerces a raw input payload to a boolean. Case-insensitive
// membership in {"1","true","high","on"} is true, any other numeric
// payload is true when non-zero, everything else is false. Both variants
// depend on this exact rule.
func ParseBool(raw string) bool {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "1", "true", "high", "on":
		return true
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n != 0
	}
	return false
}

// Package state holds the authoritative view of the gate controller and
// the reconciler that folds canonical telemetry events into it.
package state

import (
	"sync"

	"github.com/greymark/gatewatch/internal/activity"
	"github.com/greymark/gatewatch/internal/telemetry"
)

// View is the reconciled controller state. Every input key is present
// from construction; unknown inputs default false, the gate state is
// "unknown" until first observed, and LastUpdate is 0 until a timestamp
// arrives.
type View struct {
	Inputs     map[telemetry.InputKey]bool
	GateState  string
	LastUpdate int64
}

// NewView returns a fully-defined view with default values.
func NewView() *View {
	inputs := make(map[telemetry.InputKey]bool, len(telemetry.InputKeys()))
	for _, key := range telemetry.InputKeys() {
		inputs[key] = false
	}
	return &View{Inputs: inputs, GateState: "unknown"}
}

// Clone returns a copy of the view, safe to hand to renderers.
func (v *View) Clone() *View {
	inputs := make(map[telemetry.InputKey]bool, len(v.Inputs))
	for k, val := range v.Inputs {
		inputs[k] = val
	}
	return &View{Inputs: inputs, GateState: v.GateState, LastUpdate: v.LastUpdate}
}

// Reconciler applies canonical events to a View. Apply is idempotent per
// event and tolerant of duplicated or reordered delivery: every mutation
// is a total replacement of a field, and the last event applied wins.
type Reconciler struct {
	mu       sync.Mutex
	view     *View
	log      *activity.Log
	onChange func()
}

// NewReconciler returns a reconciler over a fresh view, logging accepted
// events to log.
func NewReconciler(log *activity.Log) *Reconciler {
	return &Reconciler{view: NewView(), log: log}
}

// OnChange registers a callback invoked after every view mutation.
func (r *Reconciler) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// View returns a copy of the current view.
func (r *Reconciler) View() *View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view.Clone()
}

// Apply folds one canonical event into the view.
//
// Timestamps are last-write-wins: an event carrying a timestamp always
// replaces LastUpdate, even when it is older than the current value, so
// out-of-order delivery can regress the displayed time. Monotonic
// enforcement is deliberately not done; a stale snapshot completing after
// a live event is an accepted staleness window.
func (r *Reconciler) Apply(ev *telemetry.Event) {
	if ev == nil {
		return
	}
	r.mu.Lock()
	if ev.TS != 0 {
		r.view.LastUpdate = ev.TS
	}
	switch ev.Kind {
	case telemetry.KindSnapshot:
		r.applySnapshot(ev.Snap)
	case telemetry.KindInput:
		r.applyInput(ev.Input, ev.Value)
	case telemetry.KindGateState:
		r.view.GateState = ev.Text
		r.log.Append("gate state → %s", ev.Text)
	case telemetry.KindStatus:
		// Status events never touch the view.
		r.log.Append("status → %s", ev.Text)
	}
	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}

// applySnapshot replaces every reported input, then the gate state and
// last-update when present. This is the only path that sets multiple
// fields from a single event.
func (r *Reconciler) applySnapshot(snap *telemetry.Snapshot) {
	if snap == nil {
		return
	}
	for key, value := range snap.Inputs {
		r.applyInput(key, value)
	}
	if snap.GateState != "" {
		r.view.GateState = snap.GateState
		r.log.Append("gate state → %s", snap.GateState)
	}
	if snap.LastUpdate != 0 {
		r.view.LastUpdate = snap.LastUpdate
	}
}

func (r *Reconciler) applyInput(key telemetry.InputKey, value bool) {
	if !telemetry.KnownInput(key) {
		return
	}
	r.view.Inputs[key] = value
	if value {
		r.log.Append("%s HIGH", key)
	} else {
		r.log.Append("%s LOW", key)
	}
}

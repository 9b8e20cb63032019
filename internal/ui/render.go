// Package ui renders the reconciled view for the plain-text commands and
// provides terminal helpers shared with the interactive dashboard.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/greymark/gatewatch/internal/state"
	"github.com/greymark/gatewatch/internal/telemetry"
)

// inputLabels maps input keys to their dashboard captions.
var inputLabels = map[telemetry.InputKey]string{
	telemetry.InputBell:  "Bell",
	telemetry.InputLock:  "Lock",
	telemetry.InputState: "State",
	telemetry.InputCar:   "Car",
}

// RenderView formats the view as a short plain-text block for the status
// command.
func RenderView(v *state.View) string {
	var b strings.Builder
	for _, key := range telemetry.InputKeys() {
		label := inputLabels[key]
		if v.Inputs[key] {
			fmt.Fprintf(&b, "%-6s %s\n", label, RenderActive("ON"))
		} else {
			fmt.Fprintf(&b, "%-6s %s\n", label, RenderMuted("OFF"))
		}
	}
	fmt.Fprintf(&b, "Gate   %s\n", RenderAccent(v.GateState))
	fmt.Fprintf(&b, "%s\n", LastSignal(v.LastUpdate))
	return b.String()
}

// LastSignal formats the last-update timestamp the way the dashboard
// footer shows it.
func LastSignal(unixSeconds int64) string {
	if unixSeconds == 0 {
		return "Awaiting telemetry…"
	}
	return "Last signal " + time.Unix(unixSeconds, 0).Format("15:04:05")
}

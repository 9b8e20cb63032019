package ui

import "fmt"

// ANSI256 color codes for the plain-text renderings.
const (
	colorActive = 114 // green, energized inputs
	colorIdle   = 245 // medium gray
	colorAccent = 74  // blue
)

var noColor bool

// RenderActive returns s in the active (green) color.
func RenderActive(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorActive, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorIdle, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorAccent, s)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

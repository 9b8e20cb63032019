// Package authz decides whether the operator may view telemetry and issue
// gate commands. Two gates exist, selected at startup by configuration:
// SessionGate authenticates against the control server and grades access
// by role, DigestGate compares a local passphrase digest with no backend
// at all. Both persist their credential across restarts through a Store.
package authz

import (
	"context"
	"errors"
)

// Credentials carries whatever the active gate needs: username/password
// for the session gate, a passphrase for the digest gate.
type Credentials struct {
	Username   string
	Password   string
	Passphrase string
}

// ErrPassphraseMismatch is returned by DigestGate.Authorize when the
// entered passphrase does not digest to the configured value.
var ErrPassphraseMismatch = errors.New("passphrase does not match")

// Gate is the authorization surface consulted before any gate command.
type Gate interface {
	// Authorized reports whether a live credential exists. A viewer-role
	// session is authorized to view but not to command.
	Authorized() bool

	// CanCommand reports whether gate commands may be issued right now.
	CanCommand() bool

	// Authorize exchanges credentials for a live authorization and
	// persists it. A failure leaves no live authorization behind.
	Authorize(ctx context.Context, cred Credentials) error

	// Resume attempts to restore a persisted authorization without
	// contacting anything. It reports whether a credential was restored.
	Resume() bool

	// Revoke drops the live authorization and clears persisted storage,
	// atomically with respect to each other.
	Revoke(reason string)
}

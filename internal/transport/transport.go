// Package transport connects the console to a telemetry source and keeps
// the connection alive. Two adapters exist: StreamAdapter speaks to the
// control server's push event stream, BrokerAdapter subscribes straight
// to the pub/sub broker. Both emit canonical telemetry events on a
// channel and accept outbound gate commands.
package transport

import (
	"context"

	"github.com/greymark/gatewatch/internal/telemetry"
)

// Adapter is a live connection to a telemetry source. Implementations
// hold at most one live connection: Start tears down any existing
// connection, including pending retry timers, before opening a new one.
type Adapter interface {
	// Start establishes the connection and begins delivering events.
	Start(ctx context.Context) error

	// Events is the inbound canonical event channel. Events arrive in
	// transport delivery order; nothing is reordered or batched here.
	Events() <-chan telemetry.Event

	// Command sends one gate action to the controller.
	Command(ctx context.Context, action telemetry.Action) error

	// Connected reports whether the connection is currently live.
	Connected() bool

	// Close tears the connection down permanently.
	Close() error
}

// eventBuffer is the inbound channel capacity. Sends never block the
// network callback; an overflowing consumer drops events instead.
const eventBuffer = 64

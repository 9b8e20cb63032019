package transport

import (
	"bufio"
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/greymark/gatewatch/internal/activity"
	"github.com/greymark/gatewatch/internal/client"
	"github.com/greymark/gatewatch/internal/telemetry"
)

// defaultRetryDelay is how long after an interruption the stream is
// reopened. Recovery is resync-then-wait, never a tight loop.
const defaultRetryDelay = 2500 * time.Millisecond

// StreamAdapter consumes the control server's push event stream.
//
// On an unexpected disconnect it logs the interruption, resyncs once by
// fetching a full snapshot, and schedules a single reconnect attempt.
// At most one retry timer is ever pending: scheduling a new one cancels
// the old one first. A 401 from any call means the session is dead; that
// goes through the authorization failure hook instead of a retry.
type StreamAdapter struct {
	api           *client.API
	log           *activity.Log
	onAuthFailure func(reason string)
	events        chan telemetry.Event
	retryDelay    time.Duration

	mu           sync.Mutex
	baseCtx      context.Context
	streamCancel context.CancelFunc
	retryTimer   *time.Timer
	retryCancels int
	connected    bool
	closed       bool
}

// NewStream returns an adapter over the given API client. onAuthFailure
// is invoked (with a user-facing reason) whenever the server rejects the
// session; it is expected to revoke the authorization gate.
func NewStream(api *client.API, log *activity.Log, onAuthFailure func(reason string)) *StreamAdapter {
	return &StreamAdapter{
		api:           api,
		log:           log,
		onAuthFailure: onAuthFailure,
		events:        make(chan telemetry.Event, eventBuffer),
		retryDelay:    defaultRetryDelay,
	}
}

func (a *StreamAdapter) Events() <-chan telemetry.Event { return a.events }

func (a *StreamAdapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

// Start bootstraps the adapter: any previous stream and retry timer are
// torn down, a snapshot resync primes the view, then the live stream is
// consumed on its own goroutine. A snapshot failure is logged and the
// stream still starts, unless the failure was an authorization rejection.
func (a *StreamAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return context.Canceled
	}
	a.baseCtx = ctx
	a.mu.Unlock()

	a.stopStream()
	a.stopRetry()

	if err := a.resync(ctx); err != nil {
		if client.IsUnauthorized(err) {
			a.authFailure("Session expired")
			return err
		}
		a.log.Append("Failed to load snapshot: %v", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.streamCancel = cancel
	a.mu.Unlock()
	go a.consume(streamCtx)
	return nil
}

// Command posts one gate action. A 401 revokes the session through the
// failure hook; a 403 or any other failure is simply returned so the
// dispatcher can log it as a single command failure.
func (a *StreamAdapter) Command(ctx context.Context, action telemetry.Action) error {
	err := a.api.GateCommand(ctx, action)
	if client.IsUnauthorized(err) {
		a.authFailure("Session expired")
	}
	return err
}

// Close permanently tears down the stream and any pending retry.
func (a *StreamAdapter) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.stopStream()
	a.stopRetry()
	return nil
}

func (a *StreamAdapter) consume(ctx context.Context) {
	resp, err := a.api.OpenStream(ctx)
	if err != nil {
		if client.IsUnauthorized(err) {
			a.authFailure("Session expired")
			return
		}
		if ctx.Err() != nil {
			return
		}
		a.interrupted(ctx)
		return
	}
	defer resp.Body.Close()

	a.setConnected(true)
	defer a.setConnected(false)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			dataLine = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && dataLine != "":
			// Unrecognized frames resolve to nil and are dropped without
			// noise; the stream contract allows types we don't know.
			if ev := telemetry.ResolveStream([]byte(dataLine)); ev != nil {
				a.deliver(*ev)
			}
			dataLine = ""
		}
	}

	if ctx.Err() != nil {
		return
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("event stream read failed", "error", err)
	}
	a.interrupted(ctx)
}

// interrupted handles an unexpected stream end: log, one immediate
// resync, then a scheduled reconnect. Resync failures never prevent the
// reconnect from being scheduled — except an authorization rejection,
// which revokes instead.
func (a *StreamAdapter) interrupted(ctx context.Context) {
	a.log.Append("Event stream interrupted — retrying…")
	if err := a.resync(ctx); err != nil {
		if client.IsUnauthorized(err) {
			a.authFailure("Session expired")
			return
		}
		a.log.Append("Resync failed: %v", err)
	}
	a.scheduleRetry()
}

func (a *StreamAdapter) resync(ctx context.Context) error {
	snap, err := a.api.Snapshot(ctx)
	if err != nil {
		return err
	}
	a.deliver(telemetry.Event{Kind: telemetry.KindSnapshot, Snap: snap})
	return nil
}

// scheduleRetry arms the single reconnect timer, cancelling any timer
// already pending so repeated interruption cycles never accumulate.
func (a *StreamAdapter) scheduleRetry() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if a.retryTimer != nil {
		a.retryTimer.Stop()
		a.retryCancels++
	}
	ctx := a.baseCtx
	a.retryTimer = time.AfterFunc(a.retryDelay, func() {
		a.mu.Lock()
		a.retryTimer = nil
		closed := a.closed
		a.mu.Unlock()
		if closed || ctx == nil || ctx.Err() != nil {
			return
		}
		_ = a.Start(ctx)
	})
}

func (a *StreamAdapter) stopStream() {
	a.mu.Lock()
	cancel := a.streamCancel
	a.streamCancel = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (a *StreamAdapter) stopRetry() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.retryTimer != nil {
		a.retryTimer.Stop()
		a.retryTimer = nil
		a.retryCancels++
	}
}

func (a *StreamAdapter) authFailure(reason string) {
	a.setConnected(false)
	a.stopRetry()
	if a.onAuthFailure != nil {
		a.onAuthFailure(reason)
	}
}

func (a *StreamAdapter) setConnected(v bool) {
	a.mu.Lock()
	a.connected = v
	a.mu.Unlock()
}

func (a *StreamAdapter) deliver(ev telemetry.Event) {
	select {
	case a.events <- ev:
	default:
		// Drop rather than block the stream reader.
	}
}

// pendingRetry reports whether a reconnect timer is armed (test hook).
func (a *StreamAdapter) pendingRetry() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.retryTimer != nil
}

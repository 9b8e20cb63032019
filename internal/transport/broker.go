package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/greymark/gatewatch/internal/activity"
	"github.com/greymark/gatewatch/internal/telemetry"
)

// BrokerOptions configures the broker connection.
type BrokerOptions struct {
	Username      string
	Password      string
	ClientID      string
	Keepalive     time.Duration
	ReconnectWait time.Duration
}

// BrokerAdapter subscribes directly to the controller's pub/sub topics.
// Reconnection is delegated to the client library (unlimited attempts,
// configured wait); disconnects and recoveries surface as activity log
// entries, never as fatal errors. Messages on subjects outside the topic
// table are logged and otherwise ignored.
type BrokerAdapter struct {
	url    string
	opts   BrokerOptions
	table  *telemetry.TopicTable
	log    *activity.Log
	events chan telemetry.Event
	now    func() time.Time

	mu     sync.Mutex
	conn   *nats.Conn
	subs   []*nats.Subscription
	closed bool
}

// NewBroker returns an adapter for the broker at url using the given
// topic table.
func NewBroker(url string, opts BrokerOptions, table *telemetry.TopicTable, log *activity.Log) *BrokerAdapter {
	if opts.ReconnectWait == 0 {
		opts.ReconnectWait = defaultRetryDelay
	}
	return &BrokerAdapter{
		url:    url,
		opts:   opts,
		table:  table,
		log:    log,
		events: make(chan telemetry.Event, eventBuffer),
		now:    time.Now,
	}
}

func (a *BrokerAdapter) Events() <-chan telemetry.Event { return a.events }

func (a *BrokerAdapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn != nil && a.conn.IsConnected()
}

// Start connects and subscribes to every configured inbound topic. Any
// previous connection is torn down first.
func (a *BrokerAdapter) Start(ctx context.Context) error {
	a.teardown()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return context.Canceled
	}
	a.mu.Unlock()

	opts := []nats.Option{
		nats.Name(a.opts.ClientID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(a.opts.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("broker disconnected", "url", a.url, "error", err)
			a.log.Append("Broker connection interrupted — retrying…")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			a.log.Append("Broker reconnected")
		}),
	}
	if a.opts.Keepalive > 0 {
		opts = append(opts, nats.PingInterval(a.opts.Keepalive))
	}
	if a.opts.Username != "" {
		opts = append(opts, nats.UserInfo(a.opts.Username, a.opts.Password))
	}

	conn, err := nats.Connect(a.url, opts...)
	if err != nil {
		return fmt.Errorf("connecting to broker at %s: %w", a.url, err)
	}

	var subs []*nats.Subscription
	for _, subject := range a.table.Subjects() {
		sub, err := conn.Subscribe(subject, a.handleMessage)
		if err != nil {
			conn.Close()
			return fmt.Errorf("subscribing to %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}
	if err := conn.Flush(); err != nil {
		conn.Close()
		return fmt.Errorf("flushing subscriptions: %w", err)
	}

	a.mu.Lock()
	a.conn = conn
	a.subs = subs
	a.mu.Unlock()

	a.log.Append("Connected to broker")
	return nil
}

func (a *BrokerAdapter) handleMessage(msg *nats.Msg) {
	ev := a.table.Resolve(msg.Subject, msg.Data, a.now())
	if ev == nil {
		// Logged only; a misconfigured topic table must never break the
		// dashboard.
		a.log.Append("Unhandled topic %s: %s", msg.Subject, msg.Data)
		return
	}
	select {
	case a.events <- *ev:
	default:
		slog.Warn("event buffer full, dropping", "subject", msg.Subject)
	}
}

// Command publishes the action's payload to the output topic.
func (a *BrokerAdapter) Command(ctx context.Context, action telemetry.Action) error {
	payload, ok := telemetry.ActionPayload(action)
	if !ok {
		return fmt.Errorf("unknown action %q", action)
	}
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	if err := conn.Publish(a.table.Output, []byte(payload)); err != nil {
		return fmt.Errorf("publishing command: %w", err)
	}
	return conn.Flush()
}

// Close tears the connection down permanently.
func (a *BrokerAdapter) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.teardown()
	return nil
}

func (a *BrokerAdapter) teardown() {
	a.mu.Lock()
	conn := a.conn
	subs := a.subs
	a.conn = nil
	a.subs = nil
	a.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	if conn != nil {
		conn.Close()
	}
}

package infrastructure

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/draftea/order-orchestrator/shared/events"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

var (
	_ events.Publisher  = (*NATSEventBus)(nil)
	_ events.Subscriber = (*NATSEventBus)(nil)
)

// NATSConfig holds NATS connection settings
type NATSConfig struct {
	URL           string
	Name          string
	SubjectPrefix string
	QueueGroup    string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns a NATSConfig with sensible defaults
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "order-orchestrator",
		SubjectPrefix: "orders",
		QueueGroup:    "order-orchestrator",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSEventBus publishes events to <prefix>.<event type> subjects on core NATS
// and consumes them through a queue group so each event reaches one instance.
type NATSEventBus struct {
	conn   *nats.Conn
	cfg    NATSConfig
	logger *slog.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewNATSEventBus connects to NATS with the given configuration
func NewNATSEventBus(cfg NATSConfig, logger *slog.Logger) (*NATSEventBus, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to NATS")
	}

	return NewNATSEventBusWithConn(conn, cfg, logger), nil
}

// NewNATSEventBusWithConn wraps an existing connection
func NewNATSEventBusWithConn(conn *nats.Conn, cfg NATSConfig, logger *slog.Logger) *NATSEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSEventBus{conn: conn, cfg: cfg, logger: logger}
}

// Subject returns the NATS subject an event type is published on
func (b *NATSEventBus) Subject(eventType string) string {
	if b.cfg.SubjectPrefix == "" {
		return eventType
	}
	return b.cfg.SubjectPrefix + "." + eventType
}

// Publish sends each event as its JSON envelope, with metadata copied into headers
func (b *NATSEventBus) Publish(ctx context.Context, evts ...*events.Event) error {
	for _, event := range evts {
		if err := ctx.Err(); err != nil {
			return err
		}

		body, err := event.ToJSON()
		if err != nil {
			return errors.Wrap(err, "failed to marshal event")
		}

		msg := &nats.Msg{
			Subject: b.Subject(event.Type()),
			Data:    body,
			Header:  make(nats.Header),
		}
		for k, v := range event.Metadata {
			msg.Header.Set(k, v)
		}

		if err := b.conn.PublishMsg(msg); err != nil {
			return errors.Wrapf(err, "failed to publish event %s", event.ID)
		}
	}

	return nil
}

// Subscribe queue-subscribes handler to every subject under the prefix and
// filters by eventType pattern. Core NATS has no redelivery, so handler
// errors are only logged.
func (b *NATSEventBus) Subscribe(ctx context.Context, eventType string, handler events.EventHandler) error {
	pattern, err := events.NewTopic(eventType)
	if err != nil {
		return err
	}

	subject := ">"
	if b.cfg.SubjectPrefix != "" {
		subject = b.cfg.SubjectPrefix + ".>"
	}

	sub, err := b.conn.QueueSubscribe(subject, b.cfg.QueueGroup, func(msg *nats.Msg) {
		b.dispatch(ctx, pattern, handler, msg)
	})
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to NATS")
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return nil
}

func (b *NATSEventBus) dispatch(ctx context.Context, pattern events.Topic, handler events.EventHandler, msg *nats.Msg) {
	event, err := events.FromJSON(msg.Data)
	if err != nil {
		b.logger.WarnContext(ctx, "skipping malformed nats message", "subject", msg.Subject, "error", err)
		return
	}

	for k := range msg.Header {
		if _, exists := event.Metadata.Get(k); !exists {
			event.Metadata.Set(k, msg.Header.Get(k))
		}
	}

	eventType := event.Type()
	if eventType == "" {
		eventType = strings.TrimPrefix(msg.Subject, b.cfg.SubjectPrefix+".")
	}
	if !events.Topic(eventType).Matches(pattern) {
		return
	}

	if err := handler.Handle(ctx, event); err != nil {
		b.logger.ErrorContext(ctx, "nats handler failed",
			"subject", msg.Subject,
			"event_id", event.ID.String(),
			"error", err,
		)
	}
}

// Close drains subscriptions and closes the connection
func (b *NATSEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil

	if b.conn != nil && !b.conn.IsClosed() {
		if err := b.conn.Drain(); err != nil {
			b.conn.Close()
			return errors.Wrap(err, "failed to drain NATS connection")
		}
	}
	return nil
}

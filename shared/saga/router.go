package saga

import (
	"context"
	"log/slog"
	"sync"

	"github.com/draftea/order-orchestrator/shared/events"
	"github.com/pkg/errors"
)

var _ events.EventHandler = (*EventRouter)(nil)

// EventRouter fans one subscription out to the handlers registered for each
// event type. Patterns follow events.Topic matching.
type EventRouter struct {
	mu     sync.RWMutex
	id     string
	routes []route
	logger *slog.Logger
	strict bool
}

type route struct {
	pattern events.Topic
	handler events.EventHandler
}

// RouterOption configures an EventRouter
type RouterOption func(*EventRouter)

// WithRouterLogger sets the logger used for unrouted events
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *EventRouter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithStrictRouting makes the router fail events no handler is registered for
func WithStrictRouting() RouterOption {
	return func(r *EventRouter) {
		r.strict = true
	}
}

// NewEventRouter creates a new event router
func NewEventRouter(id string, opts ...RouterOption) *EventRouter {
	r := &EventRouter{
		id:     id,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterHandler registers an event handler for an event type or pattern
func (r *EventRouter) RegisterHandler(eventType string, handler events.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route{pattern: events.Topic(eventType), handler: handler})
}

// EventTypes returns the registered patterns in registration order
func (r *EventRouter) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, len(r.routes))
	for i, rt := range r.routes {
		types[i] = rt.pattern.String()
	}
	return types
}

// HandlerID implements the infrastructure.EventHandler interface
func (r *EventRouter) HandlerID() string {
	return r.id
}

// Handle dispatches the event to every matching handler in registration
// order and stops at the first error so the transport can redeliver.
func (r *EventRouter) Handle(ctx context.Context, event *events.Event) error {
	r.mu.RLock()
	routes := append([]route(nil), r.routes...)
	r.mu.RUnlock()

	topic := events.Topic(event.Type())
	matched := false
	for _, rt := range routes {
		if !topic.Matches(rt.pattern) {
			continue
		}
		matched = true

		if err := rt.handler.Handle(ctx, event); err != nil {
			return errors.Wrapf(err, "handler for %s failed", rt.pattern)
		}
	}

	if !matched {
		if r.strict {
			return errors.Errorf("no handlers registered for event type: %s", topic)
		}
		r.logger.DebugContext(ctx, "no handlers registered for event type", "event_type", topic.String())
	}

	return nil
}

// SubscribeAll subscribes the router to everything its handlers care about
// with a single catch-all subscription.
func (r *EventRouter) SubscribeAll(ctx context.Context, subscriber events.Subscriber) error {
	return subscriber.Subscribe(ctx, "#", r)
}

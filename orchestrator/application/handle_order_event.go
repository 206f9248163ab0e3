package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/draftea/order-orchestrator/orchestrator/domain"
	"github.com/draftea/order-orchestrator/shared/events"
	"github.com/draftea/order-orchestrator/shared/models"
	"github.com/draftea/order-orchestrator/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxConflictRetries bounds how often a lost compare-and-swap is re-evaluated
const DefaultMaxConflictRetries = 5

// Disposition tells what the engine did with an event
type Disposition string

const (
	// DispositionApplied means a record was created or a transition committed
	DispositionApplied Disposition = "applied"
	// DispositionIgnored means the event does not match the record's state
	DispositionIgnored Disposition = "ignored"
	// DispositionDiscarded means no record exists for a non-initial event
	DispositionDiscarded Disposition = "discarded"
)

// HandleOrderEventCommand is one inbound order workflow event. Payload and
// CreatedAt are only read from the initial event that creates the record.
type HandleOrderEventCommand struct {
	CorrelationID string          `json:"correlation_id"`
	EventType     string          `json:"event_type"`
	CurrentState  string          `json:"current_state,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	RetryCount    int             `json:"retry_count,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// HandleOrderEventResult reports the outcome of handling one event
type HandleOrderEventResult struct {
	CorrelationID string          `json:"correlation_id"`
	PreviousState string          `json:"previous_state,omitempty"`
	CurrentState  string          `json:"current_state,omitempty"`
	Disposition   Disposition     `json:"disposition"`
	Published     []*events.Event `json:"-"`
}

// HandleOrderEvent is the saga engine: it loads the order, evaluates the
// transition table, persists with compare-and-swap and publishes what the
// transition emits only after the write committed.
type HandleOrderEvent struct {
	orderRepository    domain.OrderRepository
	eventPublisher     events.Publisher
	locks              *keyedMutex
	source             string
	maxConflictRetries int
	logger             *slog.Logger
	now                func() time.Time
}

// HandleOrderEventOption configures HandleOrderEvent
type HandleOrderEventOption func(*HandleOrderEvent)

// WithSource sets the value of the source metadata stamped on emitted events
func WithSource(source string) HandleOrderEventOption {
	return func(uc *HandleOrderEvent) {
		uc.source = source
	}
}

// WithMaxConflictRetries sets how many lost writes are re-evaluated before giving up
func WithMaxConflictRetries(n int) HandleOrderEventOption {
	return func(uc *HandleOrderEvent) {
		if n >= 0 {
			uc.maxConflictRetries = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) HandleOrderEventOption {
	return func(uc *HandleOrderEvent) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

// WithClock overrides the time source used for UpdatedAt
func WithClock(now func() time.Time) HandleOrderEventOption {
	return func(uc *HandleOrderEvent) {
		uc.now = now
	}
}

// NewHandleOrderEvent creates a new HandleOrderEvent use case
func NewHandleOrderEvent(
	orderRepository domain.OrderRepository,
	eventPublisher events.Publisher,
	opts ...HandleOrderEventOption,
) *HandleOrderEvent {
	uc := &HandleOrderEvent{
		orderRepository:    orderRepository,
		eventPublisher:     eventPublisher,
		locks:              newKeyedMutex(),
		source:             telemetry.OrchestratorServiceConfig.ServiceName,
		maxConflictRetries: DefaultMaxConflictRetries,
		logger:             slog.Default(),
		now:                func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Source returns the source metadata value of events this engine emits
func (uc *HandleOrderEvent) Source() string {
	return uc.source
}

// Execute handles one event. Ignored and discarded events are not errors.
// Errors are returned when the store or the publisher fail, so the caller
// can leave the event for redelivery.
func (uc *HandleOrderEvent) Execute(ctx context.Context, cmd *HandleOrderEventCommand) (*HandleOrderEventResult, error) {
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "HandleOrderEvent",
		trace.WithAttributes(
			attribute.String("order.correlation_id", cmd.CorrelationID),
			attribute.String("order.event_type", cmd.EventType),
			attribute.Int("order.retry_count", cmd.RetryCount),
		),
	)
	defer span.End()

	result, err := uc.execute(ctx, cmd)

	outcome := "error"
	if err == nil {
		outcome = string(result.Disposition)
		span.SetAttributes(
			attribute.String("order.disposition", outcome),
			attribute.String("order.state", result.CurrentState),
		)
	} else {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.logger.ErrorContext(ctx, "failed to handle order event",
			"correlation_id", cmd.CorrelationID,
			"event_type", cmd.EventType,
			"error", err,
		)
	}

	telemetry.RecordCounter(ctx, "order_events_processed_total", "Total order events processed", 1,
		attribute.String("event_type", cmd.EventType),
		attribute.String("outcome", outcome),
	)
	telemetry.RecordHistogram(ctx, "order_event_duration_seconds", "Order event handling duration", time.Since(start).Seconds(),
		attribute.String("event_type", cmd.EventType),
		attribute.String("outcome", outcome),
	)

	return result, err
}

func (uc *HandleOrderEvent) execute(ctx context.Context, cmd *HandleOrderEventCommand) (*HandleOrderEventResult, error) {
	if err := uc.validateCommand(cmd); err != nil {
		return nil, errors.Wrap(err, "invalid command")
	}

	correlationID, err := models.NewID(cmd.CorrelationID)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrInvalidCorrelationID, "%q: %v", cmd.CorrelationID, err)
	}

	result, emissions, err := uc.commit(ctx, correlationID, cmd)
	if err != nil {
		return nil, err
	}

	published, err := uc.publish(ctx, emissions)
	if err != nil {
		return nil, errors.Wrap(err, "failed to publish events")
	}
	result.Published = published

	return result, nil
}

// commit runs load, evaluate and compare-and-swap while holding the order's
// lock. The lock is released before anything is published.
func (uc *HandleOrderEvent) commit(ctx context.Context, correlationID models.ID, cmd *HandleOrderEventCommand) (*HandleOrderEventResult, []domain.Emission, error) {
	unlock := uc.locks.Lock(correlationID)
	defer unlock()
	telemetry.RecordGauge(ctx, "order_locks_active", "Orders currently locked or awaiting their lock", float64(uc.locks.Len()))

	for attempt := 0; ; attempt++ {
		order, err := uc.orderRepository.FindByID(ctx, correlationID)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to find order")
		}

		if order == nil {
			result, retry, err := uc.start(ctx, correlationID, cmd, attempt)
			if retry {
				continue
			}
			return result, nil, err
		}

		transition, ok := domain.Lookup(order.CurrentState, cmd.EventType)
		if !ok {
			uc.logger.InfoContext(ctx, "order event ignored",
				"correlation_id", correlationID.String(),
				"event_type", cmd.EventType,
				"state", order.CurrentState.String(),
			)
			return &HandleOrderEventResult{
				CorrelationID: correlationID.String(),
				PreviousState: order.CurrentState.String(),
				CurrentState:  order.CurrentState.String(),
				Disposition:   DispositionIgnored,
			}, nil, nil
		}

		decision := transition.Decide(order, domain.Incoming{EventType: cmd.EventType, RetryCount: cmd.RetryCount})

		updated, err := order.Advance(decision.Next, decision.RetryCount, uc.now())
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to advance order")
		}

		if err := uc.orderRepository.CompareAndSwap(ctx, correlationID, order.CurrentState, updated); err != nil {
			if errors.Is(err, domain.ErrOrderConflict) && attempt < uc.maxConflictRetries {
				uc.logger.DebugContext(ctx, "order changed concurrently, re-evaluating",
					"correlation_id", correlationID.String(),
					"attempt", attempt+1,
				)
				continue
			}
			return nil, nil, errors.Wrap(err, "failed to update order")
		}

		uc.logger.InfoContext(ctx, "order transitioned",
			"correlation_id", correlationID.String(),
			"event_type", cmd.EventType,
			"from", decision.From.String(),
			"to", decision.Next.String(),
			"retry_count", decision.RetryCount,
			"dead_lettered", decision.DeadLettered,
		)
		telemetry.RecordCounter(ctx, "order_transitions_total", "Total committed order transitions", 1,
			attribute.String("from", decision.From.String()),
			attribute.String("to", decision.Next.String()),
		)

		return &HandleOrderEventResult{
			CorrelationID: correlationID.String(),
			PreviousState: decision.From.String(),
			CurrentState:  decision.Next.String(),
			Disposition:   DispositionApplied,
		}, decision.Emissions, nil
	}
}

// start creates the record for an initial event. Any other event for an
// unknown order is discarded. retry is true when a concurrent create won
// and the caller should reload.
func (uc *HandleOrderEvent) start(ctx context.Context, correlationID models.ID, cmd *HandleOrderEventCommand, attempt int) (*HandleOrderEventResult, bool, error) {
	if cmd.EventType != events.OrderInitialEvent {
		uc.logger.WarnContext(ctx, "discarding event for unknown order",
			"correlation_id", correlationID.String(),
			"event_type", cmd.EventType,
		)
		return &HandleOrderEventResult{
			CorrelationID: correlationID.String(),
			Disposition:   DispositionDiscarded,
		}, false, nil
	}

	order, err := domain.NewOrder(correlationID, cmd.Payload, cmd.CreatedAt)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to create order")
	}

	if err := uc.orderRepository.Create(ctx, order); err != nil {
		if errors.Is(err, domain.ErrOrderAlreadyExists) && attempt < uc.maxConflictRetries {
			return nil, true, nil
		}
		return nil, false, errors.Wrap(err, "failed to save order")
	}

	uc.logger.InfoContext(ctx, "order created",
		"correlation_id", correlationID.String(),
		"state", order.CurrentState.String(),
	)

	return &HandleOrderEventResult{
		CorrelationID: correlationID.String(),
		CurrentState:  order.CurrentState.String(),
		Disposition:   DispositionApplied,
	}, false, nil
}

func (uc *HandleOrderEvent) publish(ctx context.Context, emissions []domain.Emission) ([]*events.Event, error) {
	if len(emissions) == 0 {
		return nil, nil
	}

	evts := buildEvents(emissions, uc.source)
	if err := uc.eventPublisher.Publish(ctx, evts...); err != nil {
		return nil, err
	}
	return evts, nil
}

// validateCommand validates the handle order event command
func (uc *HandleOrderEvent) validateCommand(cmd *HandleOrderEventCommand) error {
	if cmd.CorrelationID == "" {
		return errors.Wrap(domain.ErrInvalidCorrelationID, "correlation ID is required")
	}

	if cmd.EventType == "" {
		return errors.New("event type is required")
	}

	if cmd.RetryCount < 0 {
		return domain.ErrInvalidRetryCount
	}

	return nil
}

// buildEvents turns emissions into envelopes stamped with the emitting source
func buildEvents(emissions []domain.Emission, source string) []*events.Event {
	evts := make([]*events.Event, len(emissions))
	for i, emission := range emissions {
		event := events.NewOrderEvent(emission.EventType, emission.Data)
		if source != "" {
			event.WithMetadata(events.MetadataSource, source)
		}
		evts[i] = event
	}
	return evts
}

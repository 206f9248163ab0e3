package infrastructure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/draftea/order-orchestrator/shared/events"
	"github.com/pkg/errors"
)

var _ events.Subscriber = (*SQSSubscriberAdapter)(nil)

// SQSSubscriberAdapter adapts SQSEventSubscriber to work with events.Subscriber interface.
// A queue is consumed by a single subscription.
type SQSSubscriberAdapter struct {
	mu            sync.Mutex
	client        SQSAPI
	sqsSubscriber *SQSEventSubscriber
	queueURL      string
	opts          []SQSSubscriberOption
}

// NewSQSSubscriberAdapter creates a new SQS subscriber adapter
func NewSQSSubscriberAdapter(ctx context.Context, cfg AWSConfig, queueURL string, logger *slog.Logger, opts ...SQSSubscriberOption) (*SQSSubscriberAdapter, error) {
	if queueURL == "" {
		return nil, errors.New("SQS queue URL is required")
	}

	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewSQSSubscriberAdapterWithClient(client, queueURL, append([]SQSSubscriberOption{WithLogger(logger)}, opts...)...), nil
}

// NewSQSSubscriberAdapterWithClient creates an adapter around an existing client
func NewSQSSubscriberAdapterWithClient(client SQSAPI, queueURL string, opts ...SQSSubscriberOption) *SQSSubscriberAdapter {
	return &SQSSubscriberAdapter{
		client:   client,
		queueURL: queueURL,
		opts:     opts,
	}
}

// eventHandlerAdapter adapts events.EventHandler to the SQS EventHandler.
// Events outside eventType are acknowledged untouched.
type eventHandlerAdapter struct {
	eventType string
	handler   events.EventHandler
}

func (a *eventHandlerAdapter) HandlerID() string {
	if h, ok := a.handler.(interface{ HandlerID() string }); ok {
		return h.HandlerID()
	}
	return "event-handler-adapter"
}

func (a *eventHandlerAdapter) Handle(ctx context.Context, event *events.Event) error {
	if !events.Topic(event.Type()).Matches(events.Topic(a.eventType)) {
		return nil
	}
	return a.handler.Handle(ctx, event)
}

// Subscribe implements events.Subscriber interface
func (s *SQSSubscriberAdapter) Subscribe(ctx context.Context, eventType string, handler events.EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sqsSubscriber != nil {
		return errors.New("subscriber is already running")
	}

	adaptedHandler := &eventHandlerAdapter{eventType: eventType, handler: handler}
	subscriber := NewSQSEventSubscriber(s.client, s.queueURL, adaptedHandler, s.opts...)

	if err := subscriber.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start SQS subscriber")
	}

	s.sqsSubscriber = subscriber
	return nil
}

// Close stops the subscriber
func (s *SQSSubscriberAdapter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sqsSubscriber == nil {
		return nil
	}

	if err := s.sqsSubscriber.Stop(context.Background()); err != nil {
		return errors.Wrap(err, "failed to stop SQS subscriber")
	}

	s.sqsSubscriber = nil
	return nil
}

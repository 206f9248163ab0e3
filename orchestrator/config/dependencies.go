package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/draftea/order-orchestrator/orchestrator/application"
	"github.com/draftea/order-orchestrator/orchestrator/domain"
	"github.com/draftea/order-orchestrator/orchestrator/handlers"
	"github.com/draftea/order-orchestrator/orchestrator/infrastructure"
	"github.com/draftea/order-orchestrator/shared/events"
	sharedinfra "github.com/draftea/order-orchestrator/shared/infrastructure"
	"github.com/draftea/order-orchestrator/shared/saga"
	"github.com/draftea/order-orchestrator/shared/telemetry"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type Dependencies struct {
	Logger *slog.Logger

	// Stores
	DB          *sqlx.DB
	RedisClient *redis.Client

	// Repositories
	OrderRepository domain.OrderRepository
	EventJournal    events.Journal

	// Use Cases
	HandleOrderEvent     *application.HandleOrderEvent
	GetOrder             *application.GetOrder
	RepublishOrderEvents *application.RepublishOrderEvents
	ListOrderEvents      *application.ListOrderEvents

	// HTTP Handlers
	OrderHandlers *handlers.OrderHandlers

	// Event Handlers
	OrderEventHandlers *handlers.OrderEventHandlers
	EventRouter        *saga.EventRouter

	// Infrastructure
	EventPublisher  events.Publisher
	EventSubscriber events.Subscriber
	closers         []namedCloser

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()
}

type namedCloser struct {
	name   string
	closer io.Closer
}

func BuildDependencies(ctx context.Context, config *Config) (deps *Dependencies, err error) {
	deps = &Dependencies{}
	defer func() {
		if err != nil {
			deps.Close()
		}
	}()

	deps.Logger = telemetry.InitLogger(telemetry.LoggerConfig{
		Level:  config.Log.Level,
		Format: config.Log.Format,
	}, config.ServiceName)

	// Initialize telemetry first
	if config.Telemetry.Enabled {
		telConfig := telemetry.OrchestratorServiceConfig.
			WithServiceName(config.ServiceName).
			WithOTLPEndpoint(config.Telemetry.OTLPEndpoint).
			WithVersion(config.Telemetry.ServiceVersion)
		tel, telemetryShutdown, err := telemetry.InitTelemetry(ctx, telConfig)
		if err != nil {
			deps.Logger.WarnContext(ctx, "failed to initialize telemetry, continuing without it", "error", err)
		} else {
			deps.Telemetry = tel
			deps.TelemetryShutdown = telemetryShutdown
		}
	}

	if err := deps.buildStore(ctx, config); err != nil {
		return deps, err
	}

	publisher, err := deps.buildTransport(ctx, config)
	if err != nil {
		return deps, err
	}
	deps.EventPublisher = sharedinfra.NewJournalingPublisher(publisher, deps.EventJournal, deps.Logger)

	// Initialize use cases
	deps.HandleOrderEvent = application.NewHandleOrderEvent(deps.OrderRepository, deps.EventPublisher,
		application.WithSource(config.ServiceName),
		application.WithMaxConflictRetries(config.Orchestrator.MaxConflictRetries),
		application.WithLogger(deps.Logger),
	)
	deps.GetOrder = application.NewGetOrder(deps.OrderRepository)
	deps.RepublishOrderEvents = application.NewRepublishOrderEvents(deps.OrderRepository, deps.EventPublisher, config.ServiceName, deps.Logger)
	deps.ListOrderEvents = application.NewListOrderEvents(deps.OrderRepository, deps.EventJournal)

	// Initialize handlers
	deps.OrderHandlers = handlers.NewOrderHandlers(deps.GetOrder, deps.RepublishOrderEvents, deps.HandleOrderEvent, deps.ListOrderEvents)
	deps.OrderEventHandlers = handlers.NewOrderEventHandlers(deps.HandleOrderEvent, deps.Logger)

	deps.EventRouter = saga.NewEventRouter(config.ServiceName, saga.WithRouterLogger(deps.Logger))
	deps.OrderEventHandlers.RegisterHandlers(deps.EventRouter.RegisterHandler)

	return deps, nil
}

func (d *Dependencies) buildStore(ctx context.Context, config *Config) error {
	switch config.Store.Driver {
	case StorePostgres:
		db, err := sqlx.ConnectContext(ctx, "postgres", config.GetDatabaseURL())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		d.DB = db
		d.OrderRepository = infrastructure.NewPostgresOrderRepository(db)
		d.EventJournal = sharedinfra.NewPostgresEventJournal(db)

	case StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		d.RedisClient = client
		d.OrderRepository = infrastructure.NewRedisOrderRepository(client, config.Redis.KeyPrefix)
		d.EventJournal = sharedinfra.NewMemoryEventJournal()

	default:
		d.OrderRepository = infrastructure.NewMemoryOrderRepository()
		d.EventJournal = sharedinfra.NewMemoryEventJournal()
	}

	d.Logger.InfoContext(ctx, "order store ready", "driver", config.Store.Driver)
	return nil
}

func (d *Dependencies) buildTransport(ctx context.Context, config *Config) (events.Publisher, error) {
	switch config.Transport.Driver {
	case TransportSNS:
		awsConfig := sharedinfra.AWSConfig{Region: config.AWS.Region, Endpoint: config.AWS.Endpoint}

		publisher, err := sharedinfra.NewSNSPublisherAdapter(ctx, awsConfig, config.AWS.SNSTopicArn, d.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SNS publisher: %w", err)
		}
		d.closers = append(d.closers, namedCloser{name: "event publisher", closer: publisher})

		subscriber, err := sharedinfra.NewSQSSubscriberAdapter(ctx, awsConfig, config.AWS.SQSQueueURL, d.Logger,
			sharedinfra.WithReaders(config.AWS.Readers),
			sharedinfra.WithWorkers(config.AWS.Workers),
			sharedinfra.WithVisibilityTimeout(config.AWS.VisibilityTimeout),
			sharedinfra.WithWaitTimeSeconds(config.AWS.WaitTimeSeconds),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQS subscriber: %w", err)
		}
		// stop consuming before anything else is torn down
		d.closers = append([]namedCloser{{name: "event subscriber", closer: subscriber}}, d.closers...)
		d.EventSubscriber = subscriber
		return publisher, nil

	case TransportNATS:
		natsConfig := sharedinfra.DefaultNATSConfig()
		natsConfig.URL = config.NATS.URL
		natsConfig.Name = config.ServiceName
		natsConfig.SubjectPrefix = config.NATS.SubjectPrefix
		natsConfig.QueueGroup = config.NATS.QueueGroup

		bus, err := sharedinfra.NewNATSEventBus(natsConfig, d.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		d.closers = append(d.closers, namedCloser{name: "nats event bus", closer: bus})
		d.EventSubscriber = bus
		return bus, nil

	default:
		bus := sharedinfra.NewMemoryEventBus()
		d.closers = append(d.closers, namedCloser{name: "memory event bus", closer: bus})
		d.EventSubscriber = bus
		return bus, nil
	}
}

// StartConsuming routes every inbound event through the order event handlers
func (d *Dependencies) StartConsuming(ctx context.Context) error {
	if err := d.EventRouter.SubscribeAll(ctx, d.EventSubscriber); err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}
	return nil
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	for _, c := range d.closers {
		if err := c.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", c.name, err))
		}
	}
	d.closers = nil

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
		d.DB = nil
	}

	if d.RedisClient != nil {
		if err := d.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
		d.RedisClient = nil
	}

	if d.TelemetryShutdown != nil {
		d.TelemetryShutdown()
		d.TelemetryShutdown = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}

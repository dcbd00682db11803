package watermillx

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v4/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jackc/pgx/v5/pgxpool"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/event"
	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
)

// SubscriberConstructor builds the subscriber for one consumer group.
type SubscriberConstructor func(consumerGroup string) (message.Subscriber, error)

// SQLSubscriber returns a constructor for Postgres backed subscribers polling
// every pollInterval. A zero interval keeps the watermill default.
func SQLSubscriber(conn *pgxpool.Pool, pollInterval time.Duration, logger watermill.LoggerAdapter) SubscriberConstructor {
	return func(consumerGroup string) (message.Subscriber, error) {
		return watermillSQL.NewSubscriber(
			watermillSQL.BeginnerFromPgx(conn),
			watermillSQL.SubscriberConfig{
				ConsumerGroup:    consumerGroup,
				SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
				OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
				InitializeSchema: false,
				PollInterval:     pollInterval,
			},
			logger,
		)
	}
}

func NewEventProcessor(router *message.Router, subscribe SubscriberConstructor, logger watermill.LoggerAdapter) (*cqrs.EventProcessor, error) {
	return cqrs.NewEventProcessorWithConfig(router, cqrs.EventProcessorConfig{
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			evt, ok := params.EventHandler.NewEvent().(event.Event)
			if !ok {
				return "", fmt.Errorf("event handler %T does not implement event.Event", params.EventHandler.NewEvent())
			}
			return MessageTopic(evt)
		},
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return subscribe(params.HandlerName)
		},
		Marshaler:         cqrs.JSONMarshaler{},
		Logger:            logger,
		AckOnUnknownEvent: true,
	})
}

func NewSQLPublisher(conn *pgxpool.Pool, logger watermill.LoggerAdapter) (message.Publisher, error) {
	publisher, err := watermillSQL.NewPublisher(
		watermillSQL.BeginnerFromPgx(conn),
		watermillSQL.PublisherConfig{
			SchemaAdapter: watermillSQL.DefaultPostgreSQLSchema{},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}
	return publisher, nil
}

// NewEventBus routes every published event to the topic named by its stream.
func NewEventBus(publisher message.Publisher, logger watermill.LoggerAdapter) (*cqrs.EventBus, error) {
	eventBus, err := cqrs.NewEventBusWithConfig(publisher, cqrs.EventBusConfig{
		GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
			evt, ok := params.Event.(event.Event)
			if !ok {
				return "", fmt.Errorf("event %T does not implement event.Event", params.Event)
			}

			return MessageTopic(evt)
		},
		Marshaler: cqrs.JSONMarshaler{},
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}

	return eventBus, nil
}

func MessageTopic(event event.Event) (string, error) {
	streamName := event.GetStreamName()
	if streamName == "" {
		return "", fmt.Errorf("stream name is empty, event: %T", event)
	}

	return streamName, nil
}

// InitializeEventSchema creates the message and offset tables for every
// stream this service publishes to.
func InitializeEventSchema(ctx context.Context, conn *pgxpool.Pool, logger watermill.LoggerAdapter) error {
	subscriber, err := watermillSQL.NewSubscriber(
		watermillSQL.BeginnerFromPgx(conn),
		watermillSQL.SubscriberConfig{
			SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscriber: %w", err)
	}
	defer subscriber.Close()

	for _, stream := range []string{verification.EventStreamName} {
		if err := subscriber.SubscribeInitialize(stream); err != nil {
			return fmt.Errorf("failed to initialize event schema for %s: %w", stream, err)
		}
	}

	return nil
}

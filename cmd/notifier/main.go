package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"gitlab.com/codeauth/codeauth-backend/internal/application/notification"
	"gitlab.com/codeauth/codeauth-backend/internal/config"
	kafkaport "gitlab.com/codeauth/codeauth-backend/internal/ports/kafka"
	watermillport "gitlab.com/codeauth/codeauth-backend/internal/ports/watermill"
	"gitlab.com/codeauth/codeauth-backend/pkg/env"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
	"gitlab.com/codeauth/codeauth-backend/pkg/otelx"
	pgpkg "gitlab.com/codeauth/codeauth-backend/pkg/postgres"
	"gitlab.com/codeauth/codeauth-backend/pkg/watermillx"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("codeauth notifier stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadNotifier()
	if err != nil {
		return err
	}

	env.SetMode(cfg.Mode)
	logging.Setup(cfg.Mode, os.Stdout)

	shutdownOTel, err := otelx.SetupSDK(ctx, "codeauth-notifier", cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up OpenTelemetry SDK: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = errors.Join(err, shutdownOTel(shutdownCtx))
	}()

	handler := notification.NewHandler(notification.HandlerArgs{})

	slog.InfoContext(ctx, "starting codeauth notifier",
		slog.String("mode", cfg.Mode.String()),
		slog.String("source", cfg.Source),
	)

	if cfg.Source == config.NotifierOutbox {
		return runOutbox(ctx, cfg, handler)
	}
	return runKafka(ctx, cfg, handler)
}

func runKafka(ctx context.Context, cfg *config.NotifierConfig, handler *notification.Handler) (err error) {
	consumer := kafkaport.NewConsumer(kafkaport.ConsumerArgs{
		Reader:  kafkaport.NewReader(cfg.KafkaBrokerList(), cfg.KafkaTopic, cfg.KafkaGroupID),
		Handler: handler,
	})
	defer func() {
		err = errors.Join(err, consumer.Close())
	}()

	slog.InfoContext(ctx, "consuming kafka topic",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group_id", cfg.KafkaGroupID),
	)
	return consumer.Run(ctx)
}

func runOutbox(ctx context.Context, cfg *config.NotifierConfig, handler *notification.Handler) error {
	pool, err := pgpkg.NewPgxPool(ctx, cfg.PgDSN, cfg.Mode)
	if err != nil {
		return fmt.Errorf("failed to create database pool: %w", err)
	}
	defer pool.Close()

	wmlogger := watermillx.NewSlogAdapter(logging.Named("codeauth/watermill"))
	if err := watermillx.InitializeEventSchema(ctx, pool, wmlogger); err != nil {
		return fmt.Errorf("failed to initialize event schema: %w", err)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: shutdownTimeout}, wmlogger)
	if err != nil {
		return fmt.Errorf("failed to create watermill router: %w", err)
	}

	port, err := watermillport.NewPort(router, watermillx.SQLSubscriber(pool, cfg.OutboxPollInterval, wmlogger), wmlogger)
	if err != nil {
		return fmt.Errorf("failed to create watermill port: %w", err)
	}
	if err := port.Register(handler); err != nil {
		return err
	}

	// Run returns once ctx is cancelled and the router has closed.
	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("watermill router: %w", err)
	}
	return nil
}

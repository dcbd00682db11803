package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	codeauth "gitlab.com/codeauth/codeauth-backend"
	"gitlab.com/codeauth/codeauth-backend/internal/adapters/notify"
	"gitlab.com/codeauth/codeauth-backend/internal/adapters/repos/memory"
	"gitlab.com/codeauth/codeauth-backend/internal/adapters/repos/postgres"
	authapp "gitlab.com/codeauth/codeauth-backend/internal/application/auth"
	"gitlab.com/codeauth/codeauth-backend/internal/config"
	httpport "gitlab.com/codeauth/codeauth-backend/internal/ports/http"
	"gitlab.com/codeauth/codeauth-backend/pkg/env"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
	"gitlab.com/codeauth/codeauth-backend/pkg/otelx"
	pgpkg "gitlab.com/codeauth/codeauth-backend/pkg/postgres"
	"gitlab.com/codeauth/codeauth-backend/pkg/watermillx"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("codeauth api stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	env.SetMode(cfg.Mode)
	logging.Setup(cfg.Mode, os.Stdout)

	shutdownOTel, err := otelx.SetupSDK(ctx, "codeauth-api", cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up OpenTelemetry SDK: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = errors.Join(err, shutdownOTel(shutdownCtx))
	}()

	slog.InfoContext(ctx, "starting codeauth api",
		slog.String("mode", cfg.Mode.String()),
		slog.String("addr", cfg.HTTPAddr),
		slog.String("storage", cfg.Storage),
		slog.String("notifier", cfg.Notifier),
	)

	var pool *pgxpool.Pool
	if cfg.Storage == config.StoragePostgres || cfg.Notifier == config.NotifierOutbox {
		pool, err = setupDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	repos := setupStores(cfg, pool)

	publisher, closePublisher, err := setupPublisher(ctx, cfg, pool)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closePublisher())
	}()

	async := notify.NewAsync(publisher, cfg.NotifyTimeout, nil)
	// drain in-flight publishes before the publisher is closed
	defer async.Wait()

	app, err := authapp.NewApp(authapp.Args{
		Mode:            cfg.Mode,
		Users:           repos.users,
		Codes:           repos.codes,
		Tx:              repos.tx,
		Notifier:        async,
		CodeTTL:         cfg.CodeTTL(),
		RateLimitWindow: cfg.RateLimitWindow(),
		TokenTTL:        cfg.TokenTTL(),
		SigningSecret:   []byte(cfg.JWTSecret),
	})
	if err != nil {
		return fmt.Errorf("failed to create auth app: %w", err)
	}

	port := httpport.NewPort(ctx, httpport.Args{
		AuthApp:        app,
		Mode:           cfg.Mode,
		RateLimitRPS:   cfg.HTTPRateLimitRPS,
		RateLimitBurst: cfg.HTTPRateLimitBurst,
		AllowedOrigins: cfg.AllowedOrigins(),
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           port.Route(nil),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutting down http server")
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	slog.Info("http server stopped")
	return nil
}

func setupDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgpkg.NewPgxPool(ctx, cfg.PgDSN, cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pgpkg.Migrate(cfg.PgDSN, codeauth.Migrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return pool, nil
}

type stores struct {
	users authapp.UserRepo
	codes authapp.VerificationCodeRepo
	tx    authapp.Transactor
}

func setupStores(cfg *config.Config, pool *pgxpool.Pool) stores {
	if cfg.Storage == config.StorageMemory {
		db := memory.NewDB()
		return stores{
			users: memory.NewUserRepo(db),
			codes: memory.NewVerificationCodeRepo(db),
			tx:    memory.NewTransactor(db),
		}
	}
	return stores{
		users: postgres.NewUserRepo(pool, nil, nil),
		codes: postgres.NewVerificationCodeRepo(pool, nil, nil),
		tx:    postgres.NewTransactor(pool),
	}
}

func setupPublisher(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (notify.Publisher, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Notifier {
	case config.NotifierKafka:
		p := notify.NewKafkaPublisher(notify.NewKafkaWriter(cfg.KafkaBrokerList(), cfg.KafkaTopic), nil)
		return p, p.Close, nil

	case config.NotifierOutbox:
		wmlogger := watermillx.NewSlogAdapter(logging.Named("codeauth/watermill"))
		if err := watermillx.InitializeEventSchema(ctx, pool, wmlogger); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize event schema: %w", err)
		}
		wmpub, err := watermillx.NewSQLPublisher(pool, wmlogger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create outbox publisher: %w", err)
		}
		bus, err := watermillx.NewEventBus(wmpub, wmlogger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create event bus: %w", err)
		}
		return notify.NewOutboxPublisher(bus, nil), wmpub.Close, nil

	case config.NotifierSNS:
		client, err := notify.NewSNSClient(ctx, notify.SNSClientArgs{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.AWSEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create sns client: %w", err)
		}
		p, err := notify.NewSNSPublisher(client, cfg.SNSTopicARN, nil)
		if err != nil {
			return nil, nil, err
		}
		return p, noop, nil

	default:
		return notify.NewLogPublisher(cfg.Mode, nil), noop, nil
	}
}

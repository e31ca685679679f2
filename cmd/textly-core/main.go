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

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/tesla254/textly-core/internal/messaging/adapters/natsbridge"
	"github.com/tesla254/textly-core/internal/messaging/app"
	"github.com/tesla254/textly-core/internal/messaging/events"
	"github.com/tesla254/textly-core/internal/messaging/repository/postgres"
	transporthttp "github.com/tesla254/textly-core/internal/messaging/transport/http"
	"github.com/tesla254/textly-core/internal/platform/config"
	"github.com/tesla254/textly-core/internal/platform/database"
	"github.com/tesla254/textly-core/internal/platform/logger"
	"github.com/tesla254/textly-core/internal/platform/messagebroker"
)

func main() {
	cfg, err := config.Load("textly-core")
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("textly messaging core starting", "log_level", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewDBPool(ctx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("connected to PostgreSQL")

	natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, "textly-core", appLogger)
	if err != nil {
		appLogger.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	appLogger.Info("connected to NATS")

	// Persistence gateway.
	messageRepo := postgres.NewPgMessageRepository(dbPool)
	threadRepo := postgres.NewPgThreadRepository(dbPool)
	attachmentRepo := postgres.NewPgAttachmentRepository(dbPool)
	contactRepo := postgres.NewPgContactRepository(dbPool)
	settingsRepo := postgres.NewPgSettingsRepository(dbPool)

	// Event fan-out; the registry is memory-only and rebuilt on restart.
	bus := events.NewBus(cfg.EventBufferSize)
	defer bus.Close()

	// Core services, wired explicitly.
	aggregator := app.NewThreadAggregator(threadRepo, appLogger)
	tracker := app.NewDeliveryTracker(messageRepo, bus, appLogger)
	transmitter := natsbridge.NewTransmitter(natsClient, appLogger)
	notifier := natsbridge.NewNotifier(natsClient, appLogger)
	dispatch := app.NewDispatchService(
		messageRepo, attachmentRepo, contactRepo, settingsRepo,
		aggregator, tracker, transmitter, bus, appLogger,
	)
	inbound := app.NewInboundProcessor(messageRepo, contactRepo, aggregator, notifier, bus, appLogger)

	// Bridge consumers.
	callbackConsumer := natsbridge.NewCallbackConsumer(natsClient, tracker, appLogger)
	if err := callbackConsumer.Start(ctx); err != nil {
		appLogger.Error("failed to start delivery callback consumer", "error", err)
		os.Exit(1)
	}
	defer callbackConsumer.Stop()

	inboundConsumer := natsbridge.NewInboundConsumer(natsClient, inbound, appLogger)
	if err := inboundConsumer.Start(ctx); err != nil {
		appLogger.Error("failed to start inbound consumer", "error", err)
		os.Exit(1)
	}
	defer inboundConsumer.Stop()

	// HTTP surface.
	validate := validator.New()
	messageHandler := transporthttp.NewMessageHandler(dispatch, messageRepo, attachmentRepo, appLogger, validate)
	threadHandler := transporthttp.NewThreadHandler(aggregator, threadRepo, messageRepo, appLogger)
	settingsHandler := transporthttp.NewSettingsHandler(settingsRepo, contactRepo, appLogger, validate)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           transporthttp.NewRouter(messageHandler, threadHandler, settingsHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownGraceSeconds)*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("service exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("textly messaging core shut down")
}

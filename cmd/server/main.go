package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/bootstrap"
	"github.com/iliyamo/library-seat-reservation/internal/config"
	"github.com/iliyamo/library-seat-reservation/internal/handler"
	"github.com/iliyamo/library-seat-reservation/internal/logger"
	"github.com/iliyamo/library-seat-reservation/internal/queue"
	"github.com/iliyamo/library-seat-reservation/internal/router"
	"github.com/iliyamo/library-seat-reservation/internal/sweeper"
)

func main() {
	cfg, err := config.Load()
	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "seat-api",
	})
	if err != nil {
		log.Fatal("configuration error", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open stores", "err", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("close failed", "err", err)
		}
	}()

	if cfg.EventBroker == config.BrokerRabbitMQ && cfg.EventConsumerEnabled {
		consumer := &queue.Consumer{
			URL:    cfg.RabbitMQURL,
			Queue:  cfg.EventQueue,
			LogDir: cfg.EventLogDir,
			Log:    log.With("component", "event-consumer"),
		}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", "err", err)
			}
		}()
	}

	if cfg.SweepInterval > 0 {
		go sweeper.Run(ctx, cfg.SweepInterval, log.With("component", "sweeper"), app.Sweep)
	}

	h := handler.NewReservationHandler(app.Service, log)
	h.AdminHeader = cfg.AdminEmailHeader
	e, err := router.New(h, log)
	if err != nil {
		log.Fatal("failed to build router", "err", err)
	}

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver, "nonces", cfg.NonceDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
}

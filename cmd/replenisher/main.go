package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-parts-fulfillment/internal/config"
	"github.com/ariefcatur/go-parts-fulfillment/internal/events"
	"github.com/ariefcatur/go-parts-fulfillment/internal/inventory"
	kafkax "github.com/ariefcatur/go-parts-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-parts-fulfillment/internal/logging"
	"github.com/ariefcatur/go-parts-fulfillment/internal/metrics"
	"github.com/ariefcatur/go-parts-fulfillment/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	service := cfg.ServiceName + "-replenisher"

	log, err := logging.New(cfg.LogLevel, service)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Fatal("redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start()

	reg := prometheus.NewRegistry()
	ops := chi.NewRouter()
	ops.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	ops.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: ops, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops listener", zap.Error(err))
		}
	}()

	svc := &inventory.Replenisher{
		Dedup:       redisx.NewDedup(rdb),
		Events:      prod,
		Metrics:     metrics.NewFulfillment(reg),
		Logger:      log.Named("replenisher"),
		ServiceName: service,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ReplenishGroup, events.TopicInventoryAllocated, cfg.ReplenishWorkers, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("consumer started",
			zap.String("group", cfg.ReplenishGroup),
			zap.String("topic", events.TopicInventoryAllocated),
			zap.Int("workers", cfg.ReplenishWorkers),
		)
		if err := cons.Start(ctx, svc.HandleAllocated); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
	<-done
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
	prod.Close()
	prod.WaitClosed()
}

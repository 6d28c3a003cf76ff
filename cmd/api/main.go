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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-parts-fulfillment/internal/config"
	"github.com/ariefcatur/go-parts-fulfillment/internal/events"
	"github.com/ariefcatur/go-parts-fulfillment/internal/httpx"
	"github.com/ariefcatur/go-parts-fulfillment/internal/inventory"
	kafkax "github.com/ariefcatur/go-parts-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-parts-fulfillment/internal/logging"
	"github.com/ariefcatur/go-parts-fulfillment/internal/memstore"
	"github.com/ariefcatur/go-parts-fulfillment/internal/metrics"
	"github.com/ariefcatur/go-parts-fulfillment/internal/orders"
	"github.com/ariefcatur/go-parts-fulfillment/internal/postgres"
	"github.com/ariefcatur/go-parts-fulfillment/internal/redisx"
	"github.com/ariefcatur/go-parts-fulfillment/internal/rejections"
)

type stores struct {
	orders     orders.Store
	rejections rejections.Store
	stock      inventory.StockReader
	close      func()
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.close()

	// Redis is a cache only; the API keeps serving without it.
	var cache orders.TrackCache
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Warn("redis unavailable, tracking cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	} else {
		cache = redisx.NewTrackCache(rdb, log)
	}

	var publisher events.Publisher
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
		prod.Start()
		publisher = prod
	} else {
		log.Warn("no kafka brokers configured, events are not published")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engineMetrics := metrics.NewFulfillment(reg)

	orderSvc, err := orders.NewService(orders.ServiceDeps{
		Store:       st.orders,
		Events:      publisher,
		Cache:       cache,
		Metrics:     engineMetrics,
		Logger:      log,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		log.Fatal("orders service", zap.Error(err))
	}
	tracker, err := rejections.NewTracker(rejections.ServiceDeps{
		Store:       st.rejections,
		Events:      publisher,
		Metrics:     engineMetrics,
		Logger:      log,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		log.Fatal("rejection tracker", zap.Error(err))
	}

	router := httpx.NewRouter(httpx.RouterDeps{
		Orders:     orderSvc,
		Rejections: tracker,
		Inventory:  &inventory.Catalog{Reader: st.stock},
		Logger:     log,
		Metrics:    metrics.NewServerMetrics(reg, cfg.ServiceName),
		Gatherer:   reg,
		Timeout:    cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if prod != nil {
		prod.Close()
		prod.WaitClosed()
	}
	cancel()
}

func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		db := memstore.New(cfg.LockTimeout)
		db.SeedCatalog(time.Now().UTC())
		log.Warn("using in-memory store, data is lost on exit")
		return stores{
			orders:     db.Orders(),
			rejections: db.Rejections(),
			stock:      db.Inventory(),
			close:      func() {},
		}, nil
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return stores{}, fmt.Errorf("db connect: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return stores{}, err
		}
		return stores{
			orders:     &postgres.OrderRepo{DB: pool, LockTimeout: cfg.LockTimeout},
			rejections: &postgres.RejectionRepo{DB: pool, LockTimeout: cfg.LockTimeout},
			stock:      &postgres.InventoryRepo{DB: pool},
			close:      pool.Close,
		}, nil
	default:
		return stores{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

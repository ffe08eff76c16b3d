package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_cart/restock-service/internal/cache"
	"github.com/fjod/go_cart/restock-service/internal/catalog"
	"github.com/fjod/go_cart/restock-service/internal/config"
	"github.com/fjod/go_cart/restock-service/internal/domain"
	restockgrpc "github.com/fjod/go_cart/restock-service/internal/grpc"
	h "github.com/fjod/go_cart/restock-service/internal/http"
	"github.com/fjod/go_cart/restock-service/internal/logger"
	"github.com/fjod/go_cart/restock-service/internal/publisher"
	"github.com/fjod/go_cart/restock-service/internal/restock"
	"github.com/fjod/go_cart/restock-service/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New("restock-service", "info", "json")
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New("restock-service", cfg.LogLevel, cfg.LogFormat)

	items, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("failed to load catalog")
	}
	log.Info().Int("items", items.Len()).Msg("catalog loaded")

	memStore, err := store.NewMemoryStore(items, cfg.RestockIntervalSeconds)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create inventory store")
	}

	engine := restock.NewEngine(items, memStore, restock.Config{
		TickInterval:      cfg.TickInterval,
		MaxWaiters:        cfg.MaxWaiters,
		MaxWait:           cfg.MaxWait,
		NotifyOnStockEdit: cfg.NotifyOnStockEdit,
	}, restock.WithLogger(log.With().Str("component", "engine").Logger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Event sinks
	var sinks []publisher.Sink

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis connection failed")
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis ping succeeded")

		mirror := cache.NewRedisSnapshotCache(redisClient)
		reportMirror(ctx, mirror, log)
		sinks = append(sinks, mirror)

		engine.OnIntervalChange(func(seconds int) {
			go func() {
				tctx, tcancel := context.WithTimeout(ctx, 5*time.Second)
				defer tcancel()
				if err := mirror.ExtendTTL(tctx, seconds); err != nil {
					log.Warn().Err(err).Msg("failed to extend mirrored restock ttl")
				}
			}()
		})
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink := publisher.NewKafkaSink(cfg.KafkaTopic, cfg.KafkaBrokers...)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("kafka publishing enabled")
	}

	dispatcher := publisher.NewDispatcher(publisher.DefaultBufferSize, log.With().Str("component", "publisher").Logger(), sinks...)
	if len(sinks) > 0 {
		engine.OnRestock(func(evt domain.RestockEvent) { dispatcher.Enqueue(evt) })
	}

	// Populate the inventory before serving traffic
	engine.Start()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		engine.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()

	var healthServer *restockgrpc.HealthServer
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			log.Fatal().Err(err).Str("port", cfg.GRPCPort).Msg("failed to listen")
		}
		healthServer = restockgrpc.NewHealthServer(log.With().Str("component", "grpc").Logger())
		healthServer.SetServing(true)

		go func() {
			if err := healthServer.Serve(lis); err != nil {
				log.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	handler := h.NewHandler(engine, log.With().Str("component", "http").Logger())
	router := h.NewRouter(handler, h.RouterConfig{
		SecretKey:          cfg.SecretKey,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		AdminRatePerMinute: cfg.AdminRatePerMinute,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
	}, log)

	// No WriteTimeout: long-poll and websocket responses stay open until
	// the next restock
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("restock service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	if healthServer != nil {
		healthServer.SetServing(false)
	}

	// Request contexts derive from ctx, so this also releases pending
	// long-polls and streams before Shutdown waits on them
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if healthServer != nil {
		healthServer.GracefulStop()
	}
	wg.Wait()

	log.Info().Msg("server exited")
}

// reportMirror logs what the Redis mirror holds before this process restocks,
// which is the last restock of the previous run if it has not expired
func reportMirror(ctx context.Context, mirror cache.SnapshotCache, log zerolog.Logger) {
	latest, err := mirror.Latest(ctx)
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
		log.Info().Msg("no mirrored restock found")
	case err != nil:
		log.Warn().Err(err).Msg("failed to read mirrored restock")
	default:
		log.Info().
			Str("restock_id", latest.RestockID).
			Uint64("sequence", latest.Sequence).
			Time("at", latest.At).
			Msg("previous restock found in mirror, it will be replaced")
	}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

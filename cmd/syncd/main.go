package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zentikhq/zentik-sync/api/routes"
	"github.com/zentikhq/zentik-sync/internal/cache"
	"github.com/zentikhq/zentik-sync/internal/device"
	"github.com/zentikhq/zentik-sync/internal/entity"
	"github.com/zentikhq/zentik-sync/internal/importer"
	"github.com/zentikhq/zentik-sync/internal/notifications"
	"github.com/zentikhq/zentik-sync/internal/recovery"
	"github.com/zentikhq/zentik-sync/internal/stats"
	syncsvc "github.com/zentikhq/zentik-sync/internal/sync"
	"github.com/zentikhq/zentik-sync/internal/sync/remote"
	"github.com/zentikhq/zentik-sync/pkg/config"
	"github.com/zentikhq/zentik-sync/pkg/db"
	"github.com/zentikhq/zentik-sync/pkg/instance"
	"github.com/zentikhq/zentik-sync/pkg/logger"
	"github.com/zentikhq/zentik-sync/pkg/metrics"
	"github.com/zentikhq/zentik-sync/pkg/migrate"
	"github.com/zentikhq/zentik-sync/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "syncd"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "syncd",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to open local database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.RunOnStartup(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	syncMetrics := metrics.NewSyncMetrics(registry)

	store, err := cache.NewRedisStore(redisClient)
	if err != nil {
		logg.Error(ctx, "failed to build cache store", err)
		os.Exit(1)
	}
	writer, err := cache.NewWriter(logg, syncMetrics)
	if err != nil {
		logg.Error(ctx, "failed to build cache writer", err)
		os.Exit(1)
	}

	bus := recovery.NewBus(logg)
	bridge, err := recovery.NewBridge(bus, redisClient, logg, cfg.Recovery.Channel, instance.GetID())
	if err != nil {
		logg.Error(ctx, "failed to build recovery bridge", err)
		os.Exit(1)
	}

	deviceStore, err := device.NewStore(redisClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to build device store", err)
		os.Exit(1)
	}
	deviceStore.BindBus(bus)

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), logg, bridge)
	if err != nil {
		logg.Error(ctx, "failed to build notifications service", err)
		os.Exit(1)
	}

	statsService, err := stats.NewService(store, logg)
	if err != nil {
		logg.Error(ctx, "failed to build stats service", err)
		os.Exit(1)
	}

	imp, err := importer.New(store, writer, logg, syncMetrics, importer.Options{
		BatchSize:  cfg.Import.BatchSize,
		BatchDelay: cfg.Import.BatchDelay,
	})
	if err != nil {
		logg.Error(ctx, "failed to build importer", err)
		os.Exit(1)
	}
	exp, err := importer.NewExporter(store)
	if err != nil {
		logg.Error(ctx, "failed to build exporter", err)
		os.Exit(1)
	}

	var source syncsvc.RemoteSource
	if cfg.Sync.Enabled {
		client, err := remote.NewClient(cfg.Sync.Endpoint, remote.WithTimeout(cfg.Sync.Timeout))
		if err != nil {
			logg.Error(ctx, "failed to build sync client", err)
			os.Exit(1)
		}
		source = client
	}

	coordinator, err := syncsvc.NewCoordinator(source, store, writer, logg, syncMetrics, cfg.Sync.Enabled)
	if err != nil {
		logg.Error(ctx, "failed to build sync coordinator", err)
		os.Exit(1)
	}

	go func() {
		if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "recovery bridge stopped", err)
		}
	}()

	go func() {
		synced, err := coordinator.Run(ctx)
		if err != nil {
			return
		}
		logg.Info(logg.WithField(ctx, "synced", synced), "startup sync finished")
		set, ok := feedSet(ctx, store)
		if !ok {
			return
		}
		if count, err := notificationsService.Ingest(ctx, set); err != nil {
			logg.Error(ctx, "persisting synced notifications", err)
		} else {
			logg.Info(logg.WithField(ctx, "count", count), "synced notifications persisted")
		}
	}()

	addr := ":" + cfg.App.Port
	bootCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(bootCtx, "starting sync daemon")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, dbClient, redisClient, registry,
			notificationsService, statsService, imp, exp, coordinator,
		),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(bootCtx, "sync daemon stopped unexpectedly", err)
		os.Exit(1)
	}
}

// feedSet rebuilds an entity set from the cached notification feed so
// the durable store can be refreshed after a sync.
func feedSet(ctx context.Context, store cache.Store) (*entity.Set, bool) {
	keys, ok, err := store.ListResult(ctx, cache.DomainNotifications)
	if err != nil || !ok {
		return nil, false
	}
	set := entity.NewSet()
	for _, key := range keys {
		e, found, err := store.Get(ctx, key)
		if err != nil || !found {
			continue
		}
		set.Put(key, e)
	}
	return set, true
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/zentikhq/zentik-sync/internal/cache"
	"github.com/zentikhq/zentik-sync/internal/importer"
	"github.com/zentikhq/zentik-sync/pkg/config"
	"github.com/zentikhq/zentik-sync/pkg/logger"
	"github.com/zentikhq/zentik-sync/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "zentik-import"})

	_ = godotenv.Load()

	in := flag.String("in", "", "path of a notification export to import")
	out := flag.String("out", "", "path to write a redacted export to")
	flag.Parse()

	if *in == "" && *out == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -in and/or -out")
		os.Exit(1)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "zentik-import",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	store, err := cache.NewRedisStore(redisClient)
	requireResource(ctx, logg, "cache store", err)

	if *in != "" {
		body, err := os.ReadFile(*in)
		requireResource(ctx, logg, "input file", err)

		writer, err := cache.NewWriter(logg, nil)
		requireResource(ctx, logg, "cache writer", err)

		imp, err := importer.New(store, writer, logg, nil, importer.Options{
			BatchSize:  cfg.Import.BatchSize,
			BatchDelay: cfg.Import.BatchDelay,
		})
		requireResource(ctx, logg, "importer", err)

		result, err := imp.ImportJSON(ctx, string(body))
		if err != nil {
			logg.Error(ctx, "import failed", err)
			os.Exit(1)
		}
		fmt.Printf("imported %d notifications in %d batches (%d skipped)\n",
			result.Imported, result.Batches, result.Skipped)
	}

	if *out != "" {
		exp, err := importer.NewExporter(store)
		requireResource(ctx, logg, "exporter", err)

		doc, err := exp.Export(ctx)
		if err != nil {
			logg.Error(ctx, "export failed", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, []byte(doc), 0o644); err != nil {
			logg.Error(ctx, "writing export file", err)
			os.Exit(1)
		}
		fmt.Println("wrote redacted export:", *out)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

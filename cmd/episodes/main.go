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
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/meteocat-episodes-service/internal/adapter/catalog"
	httpadapter "github.com/couchcryptid/meteocat-episodes-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/meteocat-episodes-service/internal/adapter/kafka"
	"github.com/couchcryptid/meteocat-episodes-service/internal/adapter/meteocat"
	"github.com/couchcryptid/meteocat-episodes-service/internal/config"
	"github.com/couchcryptid/meteocat-episodes-service/internal/domain"
	"github.com/couchcryptid/meteocat-episodes-service/internal/observability"
	"github.com/couchcryptid/meteocat-episodes-service/internal/pipeline"
	"github.com/couchcryptid/meteocat-episodes-service/internal/selection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	regions, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to load region catalogue", "error", err)
		os.Exit(1)
	}

	client := meteocat.NewClient(cfg.MeteocatBaseURL, cfg.MeteocatAPIKey, cfg.MeteocatTimeout, logger)
	source := meteocat.NewCachedSource(client, cfg.CacheSize, cfg.CacheTTL, clockwork.NewRealClock(), metrics)
	logger.Info("meteocat source configured",
		"base_url", cfg.MeteocatBaseURL,
		"api_key_set", cfg.MeteocatAPIKey != "",
		"cache_size", cfg.CacheSize,
		"cache_ttl", cfg.CacheTTL,
	)

	sel := selection.New(source,
		selection.WithLocation(cfg.Location),
		selection.WithMaxDayOffset(cfg.MaxDayOffset),
		selection.WithKnownRegions(domain.RegionIDs(regions)),
		selection.WithLogger(logger),
		selection.WithMetrics(metrics),
	)

	// Snapshot publishing is feature-flagged via KAFKA_ENABLED.
	var (
		publisher pipeline.Publisher
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, regions, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	p := pipeline.New(sel, publisher, logger, metrics, cfg.RefreshInterval)

	opts := []httpadapter.Option{httpadapter.WithChangeHook(p.SelectionChanged)}
	if regions != nil {
		opts = append(opts, httpadapter.WithCatalog(regions))
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, sel, p, logger, opts...)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return p.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// loadCatalog reads the region catalogue from Postgres when DATABASE_URL is
// set, else from CATALOG_PATH. Without either it returns a nil catalogue.
func loadCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.RegionCatalog, error) {
	switch {
	case cfg.DatabaseURL != "":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		c, err := catalog.LoadPostgres(ctx, pool)
		if err != nil {
			return nil, err
		}
		logger.Info("region catalogue loaded", "source", "postgres", "regions", c.Len())
		return c, nil

	case cfg.CatalogPath != "":
		c, err := catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		logger.Info("region catalogue loaded", "source", cfg.CatalogPath, "regions", c.Len())
		return c, nil

	default:
		logger.Warn("no region catalogue configured, only affected regions will be reported")
		return nil, nil
	}
}

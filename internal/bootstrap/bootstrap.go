package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/catalog-search/internal/config"
	"github.com/kirillkom/catalog-search/internal/core/domain"
	"github.com/kirillkom/catalog-search/internal/core/ports"
	"github.com/kirillkom/catalog-search/internal/core/sqlcompose"
	"github.com/kirillkom/catalog-search/internal/core/usecase"
	"github.com/kirillkom/catalog-search/internal/infrastructure/embedding/alloydb"
	"github.com/kirillkom/catalog-search/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/catalog-search/internal/infrastructure/queue/nats"
	"github.com/kirillkom/catalog-search/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/catalog-search/internal/infrastructure/resilience"
	"github.com/kirillkom/catalog-search/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Repo        *postgres.CatalogRepository
	Events      *nats.EventBus
	Searcher    ports.CatalogSearcher
	HTTPMetrics *metrics.HTTPServerMetrics

	closeFn func()
}

// New wires the search service. The event bus is optional: with an empty
// NATS URL searches are not published.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewCatalogRepository(db, cfg.ProductsTable)
	if cfg.DBEnsureSchema {
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	httpMetrics := metrics.NewHTTPServerMetrics("catalog-search-api")
	executors := newExecutors(cfg, httpMetrics)

	embedder, err := newEmbedder(cfg, repo, executors)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var (
		events    *nats.EventBus
		publisher ports.SearchEventPublisher
	)
	if strings.TrimSpace(cfg.NATSURL) != "" {
		events, err = nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executors.events,
			ClientName:         "catalog-search-api",
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init event bus: %w", err)
		}
		publisher = events
	} else {
		slog.Info("search_events_disabled", "reason", "empty NATS_URL")
	}

	searcher := usecase.NewSearchUseCase(repo, embedder, publisher, httpMetrics, ComposeOptions(cfg))

	return &App{
		Config:      cfg,
		Repo:        repo,
		Events:      events,
		Searcher:    searcher,
		HTTPMetrics: httpMetrics,
		closeFn: func() {
			if events != nil {
				events.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// executors holds one resilience policy per class of outbound call, each
// with its own breakers.
type executors struct {
	queryEmbedding *resilience.Executor
	inDatabase     *resilience.Executor
	events         *resilience.Executor
}

func newExecutors(cfg config.Config, observer resilience.Observer) executors {
	build := func(c resilience.Config) *resilience.Executor {
		exec := resilience.NewExecutor(c)
		if observer != nil {
			exec = exec.WithObserver(observer)
		}
		return exec
	}
	return executors{
		queryEmbedding: build(QueryEmbeddingResilience(cfg)),
		inDatabase:     build(resilience.InDatabaseEmbeddingConfig()),
		// Search events ride on the request path; a broker fault must not
		// add backoff to the response.
		events: build(resilience.EventPublishConfig()),
	}
}

func newEmbedder(cfg config.Config, repo *postgres.CatalogRepository, exec executors) (ports.Embedder, error) {
	inDatabase := alloydb.NewEmbedder(repo, alloydb.Config{
		TextModel:     cfg.TextEmbeddingModel,
		ImageModel:    cfg.ImageEmbeddingModel,
		ImageMimeType: cfg.ImageMimeType,
		Resilience:    exec.inDatabase,
	})
	switch cfg.Embedder {
	case "", "alloydb":
		return inDatabase, nil
	case "ollama":
		client := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, ollama.Options{
			Timeout:            time.Duration(cfg.OllamaTimeoutSeconds) * time.Second,
			ResilienceExecutor: exec.queryEmbedding,
		})
		return ollama.NewEmbedder(client, inDatabase), nil
	default:
		return nil, fmt.Errorf("unknown embedder %q", cfg.Embedder)
	}
}

// ComposeOptions maps service configuration onto statement composition
// settings. Unknown fusion signals are dropped with a warning.
func ComposeOptions(cfg config.Config) sqlcompose.Options {
	offsets := make(map[domain.Signal]int, len(cfg.FusionOffsets))
	for name, offset := range cfg.FusionOffsets {
		switch signal := domain.Signal(strings.ToUpper(name)); signal {
		case domain.SignalLexical, domain.SignalFullText, domain.SignalVector:
			offsets[signal] = offset
		default:
			slog.Warn("fusion_offset_ignored", "signal", name)
		}
	}
	return sqlcompose.Options{
		Table:                  cfg.ProductsTable,
		PageSize:               cfg.SearchPageSize,
		HybridPageSize:         cfg.HybridPageSize,
		VectorPool:             cfg.VectorPoolSize,
		HybridPool:             cfg.HybridPoolSize,
		TextDistanceThreshold:  cfg.TextDistanceThreshold,
		ImageDistanceThreshold: cfg.ImageDistanceThreshold,
		TextSearchConfig:       cfg.TextSearchConfig,
		Fusion: sqlcompose.FusionWeights{
			K:       cfg.FusionRRFK,
			Offsets: offsets,
		},
	}
}

// QueryEmbeddingResilience applies the operator overrides to the policy for
// embedding calls made by the API process.
func QueryEmbeddingResilience(cfg config.Config) resilience.Config {
	out := resilience.QueryEmbeddingConfig()
	out.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	out.BreakerEnabled = cfg.ResilienceBreakerEnabled
	return out
}

package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/minervaai/minerva/internal/config"
	"github.com/minervaai/minerva/internal/embed"
	"github.com/minervaai/minerva/internal/httpapi"
	"github.com/minervaai/minerva/internal/index"
	"github.com/minervaai/minerva/internal/kv"
	"github.com/minervaai/minerva/internal/llm"
	"github.com/minervaai/minerva/internal/memory"
	"github.com/minervaai/minerva/internal/observability"
	"github.com/minervaai/minerva/internal/parents"
	"github.com/minervaai/minerva/internal/pipeline"
	"github.com/minervaai/minerva/internal/rerank"
	"github.com/minervaai/minerva/internal/semcache"
	"github.com/minervaai/minerva/internal/sparse"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Pipeline *pipeline.Pipeline
	Metrics  *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

// Build wires the service from config. Required collaborators (embedding,
// index, generation) come from config or, in dev mode, from deterministic
// mocks; optional ones (sparse stats, parent chunks, reranker) are simply
// absent when unconfigured and the pipeline degrades around them.
func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := kv.NewStore(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("kv store init failed: %w", err)
	}

	embedder := buildEmbedder(cfg)
	querier, closeIndex, err := buildIndex(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	chat := buildChat(cfg)

	var scorer rerank.Scorer
	if cfg.RerankAPIKey != "" {
		scorer = rerank.NewHTTPScorer(rerank.Config{
			APIKey:  cfg.RerankAPIKey,
			BaseURL: cfg.RerankBaseURL,
			Model:   cfg.RerankModel,
		})
	}

	parentStore, err := parents.Load(cfg.ParentChunksFile)
	if err != nil {
		_ = store.Close()
		if closeIndex != nil {
			_ = closeIndex()
		}
		return nil, fmt.Errorf("parent chunks load failed: %w", err)
	}

	var encoder *sparse.Encoder
	if enc, err := sparse.Load(cfg.SparseStatsFile); err != nil {
		log.Printf("sparse stats unavailable, queries stay dense-only: %v", err)
	} else {
		encoder = enc
	}

	cache := semcache.New(store, cfg.SemanticCacheThreshold, cfg.SemanticCacheTTL)
	mem := memory.NewStore(store, memory.Options{
		TTL:              cfg.MemoryTTL,
		SummaryTrigger:   cfg.SummaryTrigger,
		KeepAfterSummary: cfg.KeepAfterSummary,
	})

	pipe := pipeline.New(pipeline.Deps{
		Embedder: embedder,
		Index:    querier,
		Sparse:   encoder,
		Reranker: scorer,
		Parents:  parentStore,
		Cache:    cache,
		Memory:   mem,
		Chat:     chat,
		Metrics:  metrics,
	}, pipeline.Options{
		TopK:            cfg.TopK,
		RerankThreshold: cfg.RerankScoreThreshold,
		RerankKeep:      cfg.RerankKeep,
	})

	api := httpapi.New(cfg, pipe, metrics)

	cleanup := func() error {
		var errs []string
		if closeIndex != nil {
			if err := closeIndex(); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if err := store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Pipeline: pipe,
		Metrics:  metrics,
		Cleanup:  cleanup,
	}, nil
}

func buildEmbedder(cfg config.Config) embed.Client {
	if cfg.EmbeddingAPIKey != "" || cfg.EmbeddingBaseURL != "" {
		return embed.NewHTTPClient(embed.Config{
			APIKey:  cfg.EmbeddingAPIKey,
			BaseURL: cfg.EmbeddingBaseURL,
			Model:   cfg.EmbeddingModel,
		})
	}
	if cfg.DevMode {
		return embed.NewMockClient(cfg.EmbeddingDim)
	}
	return nil
}

func buildIndex(ctx context.Context, cfg config.Config) (index.Querier, func() error, error) {
	if cfg.IndexURL != "" {
		q := index.NewHTTPQuerier(index.HTTPConfig{
			URL:    cfg.IndexURL,
			APIKey: cfg.IndexAPIKey,
		})
		return q, nil, nil
	}
	if cfg.DatabaseURL != "" {
		q, err := index.NewPostgresQuerier(ctx, cfg.DatabaseURL, cfg.EmbeddingDim)
		if err != nil {
			return nil, nil, fmt.Errorf("vector index init failed: %w", err)
		}
		return q, q.Close, nil
	}
	if cfg.DevMode {
		return index.NewMockQuerier(nil), nil, nil
	}
	return nil, nil, nil
}

func buildChat(cfg config.Config) llm.Client {
	if cfg.ChatAPIKey != "" || cfg.ChatBaseURL != "" {
		return llm.NewHTTPClient(llm.Config{
			APIKey:      cfg.ChatAPIKey,
			BaseURL:     cfg.ChatBaseURL,
			Model:       cfg.ChatModel,
			Temperature: cfg.ChatTemperature,
		})
	}
	if cfg.DevMode {
		return llm.NewMockClient()
	}
	return nil
}

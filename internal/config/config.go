package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the question-answering service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	// DevMode wires mock embedding/index/generation backends so the binary
	// runs end to end without external services.
	DevMode bool

	RedisURL    string
	DatabaseURL string

	IndexURL    string
	IndexAPIKey string

	EmbeddingAPIKey  string
	EmbeddingBaseURL string
	EmbeddingModel   string
	EmbeddingDim     int

	ChatAPIKey      string
	ChatBaseURL     string
	ChatModel       string
	ChatTemperature float64

	RerankAPIKey  string
	RerankBaseURL string
	RerankModel   string

	ParentChunksFile string
	SparseStatsFile  string

	TopK                   int
	RerankScoreThreshold   float64
	RerankKeep             int
	SemanticCacheThreshold float64
	SemanticCacheTTL       time.Duration
	MemoryTTL              time.Duration
	SummaryTrigger         int
	KeepAfterSummary       int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "minerva"),
		ShutdownTimeout:  15 * time.Second,

		RedisURL:    envTrimmed("REDIS_URL"),
		DatabaseURL: envTrimmed("DATABASE_URL"),

		IndexURL:    envTrimmed("VECTOR_INDEX_URL"),
		IndexAPIKey: envTrimmed("VECTOR_INDEX_API_KEY"),

		EmbeddingAPIKey:  envTrimmed("EMBEDDING_API_KEY"),
		EmbeddingBaseURL: envTrimmed("EMBEDDING_BASE_URL"),
		EmbeddingModel:   envOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDim:     1536,

		ChatAPIKey:      envTrimmed("CHAT_API_KEY"),
		ChatBaseURL:     envTrimmed("CHAT_BASE_URL"),
		ChatModel:       envOrDefault("CHAT_MODEL", "gpt-3.5-turbo"),
		ChatTemperature: 0.2,

		RerankAPIKey:  envTrimmed("RERANK_API_KEY"),
		RerankBaseURL: envTrimmed("RERANK_BASE_URL"),
		RerankModel:   envOrDefault("RERANK_MODEL", "rerank-v3.5"),

		ParentChunksFile: envOrDefault("PARENT_CHUNKS_FILE", "data/parent_chunks.jsonl"),
		SparseStatsFile:  envOrDefault("SPARSE_STATS_FILE", "data/bm25_stats.json"),

		TopK:                   10,
		RerankScoreThreshold:   0.5,
		RerankKeep:             3,
		SemanticCacheThreshold: 0.6,
		SemanticCacheTTL:       time.Hour,
		MemoryTTL:              5 * time.Minute,
		SummaryTrigger:         5,
		KeepAfterSummary:       2,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.DevMode, err = boolFromEnv("APP_DEV_MODE", cfg.DevMode)
	if err != nil {
		return Config{}, err
	}
	cfg.EmbeddingDim, err = intFromEnv("EMBEDDING_DIM", cfg.EmbeddingDim)
	if err != nil {
		return Config{}, err
	}
	cfg.TopK, err = intFromEnv("RAG_TOP_K", cfg.TopK)
	if err != nil {
		return Config{}, err
	}
	cfg.RerankScoreThreshold, err = floatFromEnv("RERANK_SCORE_THRESHOLD", cfg.RerankScoreThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.RerankKeep, err = intFromEnv("RERANK_KEEP", cfg.RerankKeep)
	if err != nil {
		return Config{}, err
	}
	cfg.SemanticCacheThreshold, err = floatFromEnv("SEMANTIC_CACHE_THRESHOLD", cfg.SemanticCacheThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.SemanticCacheTTL, err = durationFromEnv("SEMANTIC_CACHE_TTL", cfg.SemanticCacheTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryTTL, err = durationFromEnv("MEMORY_TTL", cfg.MemoryTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.SummaryTrigger, err = intFromEnv("SUMMARY_TRIGGER", cfg.SummaryTrigger)
	if err != nil {
		return Config{}, err
	}
	cfg.KeepAfterSummary, err = intFromEnv("KEEP_AFTER_SUMMARY", cfg.KeepAfterSummary)
	if err != nil {
		return Config{}, err
	}

	if cfg.EmbeddingDim <= 0 {
		return Config{}, fmt.Errorf("EMBEDDING_DIM must be positive")
	}
	if cfg.TopK <= 0 {
		return Config{}, fmt.Errorf("RAG_TOP_K must be positive")
	}
	if cfg.RerankKeep <= 0 {
		return Config{}, fmt.Errorf("RERANK_KEEP must be positive")
	}
	if cfg.SemanticCacheThreshold <= 0 || cfg.SemanticCacheThreshold > 1 {
		return Config{}, fmt.Errorf("SEMANTIC_CACHE_THRESHOLD must be in (0, 1]")
	}
	if cfg.RerankScoreThreshold < 0 || cfg.RerankScoreThreshold > 1 {
		return Config{}, fmt.Errorf("RERANK_SCORE_THRESHOLD must be in [0, 1]")
	}
	if cfg.SummaryTrigger <= 0 {
		return Config{}, fmt.Errorf("SUMMARY_TRIGGER must be positive")
	}
	if cfg.KeepAfterSummary <= 0 || cfg.KeepAfterSummary > cfg.SummaryTrigger {
		return Config{}, fmt.Errorf("KEEP_AFTER_SUMMARY must be in [1, SUMMARY_TRIGGER]")
	}
	if cfg.MemoryTTL < time.Second {
		return Config{}, fmt.Errorf("MEMORY_TTL must be at least 1s")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: invalid boolean %q", key, v)
	}
}

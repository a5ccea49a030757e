package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.TopK != 10 {
		t.Fatalf("TopK = %d", cfg.TopK)
	}
	if cfg.RerankScoreThreshold != 0.5 {
		t.Fatalf("RerankScoreThreshold = %v", cfg.RerankScoreThreshold)
	}
	if cfg.SemanticCacheThreshold != 0.6 {
		t.Fatalf("SemanticCacheThreshold = %v", cfg.SemanticCacheThreshold)
	}
	if cfg.SemanticCacheTTL != time.Hour {
		t.Fatalf("SemanticCacheTTL = %v", cfg.SemanticCacheTTL)
	}
	if cfg.MemoryTTL != 5*time.Minute {
		t.Fatalf("MemoryTTL = %v", cfg.MemoryTTL)
	}
	if cfg.SummaryTrigger != 5 || cfg.KeepAfterSummary != 2 {
		t.Fatalf("summary options = %d/%d", cfg.SummaryTrigger, cfg.KeepAfterSummary)
	}
	if cfg.EmbeddingModel != "text-embedding-3-small" {
		t.Fatalf("EmbeddingModel = %q", cfg.EmbeddingModel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RAG_TOP_K", "4")
	t.Setenv("SEMANTIC_CACHE_TTL", "30m")
	t.Setenv("APP_DEV_MODE", "true")
	t.Setenv("SEMANTIC_CACHE_THRESHOLD", "0.8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TopK != 4 {
		t.Fatalf("TopK = %d", cfg.TopK)
	}
	if cfg.SemanticCacheTTL != 30*time.Minute {
		t.Fatalf("SemanticCacheTTL = %v", cfg.SemanticCacheTTL)
	}
	if !cfg.DevMode {
		t.Fatalf("DevMode = false")
	}
	if cfg.SemanticCacheThreshold != 0.8 {
		t.Fatalf("SemanticCacheThreshold = %v", cfg.SemanticCacheThreshold)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"RAG_TOP_K":                "zero",
		"SEMANTIC_CACHE_THRESHOLD": "1.5",
		"APP_DEV_MODE":             "maybe",
		"MEMORY_TTL":               "10ms",
		"KEEP_AFTER_SUMMARY":       "9",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}

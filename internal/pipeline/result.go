package pipeline

import "math"

// Result is the outcome of one ask. Metrics is populated only when the
// caller requested extended output.
type Result struct {
	Answer  string   `json:"answer"`
	Metrics *Metrics `json:"-"`
}

// Metrics is the extended payload for answer-with-metrics. Stage fields that
// did not run (cache hit, empty retrieval) are omitted.
type Metrics struct {
	Latency Latency   `json:"latency"`
	Usage   Usage     `json:"usage"`
	Cache   CacheInfo `json:"cache"`
}

// Latency is per-stage wall-clock time in seconds, rounded to milliseconds.
type Latency struct {
	Total     float64  `json:"total"`
	Embedding float64  `json:"embedding"`
	Retrieval *float64 `json:"retrieval,omitempty"`
	Reranker  *float64 `json:"reranker,omitempty"`
	LLM       *float64 `json:"llm,omitempty"`
}

type Usage struct {
	EmbeddingTokens int `json:"embedding_tokens"`
	LLMInputTokens  int `json:"llm_input_tokens"`
	LLMOutputTokens int `json:"llm_output_tokens"`
	RerankerCalls   int `json:"reranker_calls"`
}

type CacheInfo struct {
	SemanticCacheHit bool `json:"semantic_cache_hit"`
}

// seconds rounds a duration in seconds to 3 decimals for the JSON payload.
func seconds(s float64) float64 {
	return math.Round(s*1000) / 1000
}

func secondsPtr(s float64) *float64 {
	v := seconds(s)
	return &v
}

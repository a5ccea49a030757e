package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/minervaai/minerva/internal/embed"
	"github.com/minervaai/minerva/internal/index"
	"github.com/minervaai/minerva/internal/llm"
	"github.com/minervaai/minerva/internal/memory"
	"github.com/minervaai/minerva/internal/observability"
	"github.com/minervaai/minerva/internal/parents"
	"github.com/minervaai/minerva/internal/rerank"
	"github.com/minervaai/minerva/internal/semcache"
	"github.com/minervaai/minerva/internal/sparse"
)

// NoDataAnswer is the terminal response when retrieval finds nothing the
// caller's role may see. It is returned without a generation call and is
// never cached.
const NoDataAnswer = "No data found"

const answerInstruction = "Answer only from context."

// ErrNotConfigured reports that a required collaborator (embedding service,
// vector index or generation service) is missing. The request cannot
// proceed at all.
var ErrNotConfigured = errors.New("pipeline not configured")

// Identity is the authenticated requester, resolved upstream. The session
// is derived from the user: one rolling conversation per user.
type Identity struct {
	UserID string
	Role   string
}

// Options tunes retrieval and selection. Zero values take the defaults.
type Options struct {
	TopK            int     // index matches requested, default 10
	RerankThreshold float64 // minimum relevance kept, default 0.5
	RerankKeep      int     // fragments passed to generation, default 3
}

// Deps are the pipeline collaborators. Embedder, Index and Chat are
// required; the rest are optional and their absence or failure degrades the
// pipeline instead of failing it.
type Deps struct {
	Embedder embed.Client
	Index    index.Querier
	Sparse   *sparse.Encoder
	Reranker rerank.Scorer
	Parents  *parents.Store
	Cache    *semcache.Cache
	Memory   *memory.Store
	Chat     llm.Client
	Metrics  *observability.Metrics
}

// Pipeline coordinates one ask from question to answer.
type Pipeline struct {
	deps Deps
	opts Options
}

func New(deps Deps, opts Options) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	if opts.RerankThreshold <= 0 {
		opts.RerankThreshold = 0.5
	}
	if opts.RerankKeep <= 0 {
		opts.RerankKeep = 3
	}
	return &Pipeline{deps: deps, opts: opts}
}

// Ask runs the query pipeline. withMetrics controls whether the extended
// metrics payload is attached to the result.
func (p *Pipeline) Ask(ctx context.Context, id Identity, question string, withMetrics bool) (Result, error) {
	operation := "ask"
	if withMetrics {
		operation = "ask_with_metrics"
	}

	if p.deps.Embedder == nil || p.deps.Index == nil || p.deps.Chat == nil {
		p.countRequest(operation, "not_configured")
		return Result{}, ErrNotConfigured
	}

	start := time.Now()

	embedStart := time.Now()
	embedded, err := p.deps.Embedder.Embed(ctx, question)
	if err != nil {
		p.countRequest(operation, "error")
		return Result{}, fmt.Errorf("embed question: %w", err)
	}
	embedDur := time.Since(embedStart)
	p.observeStage(observability.StageEmbedding, embedDur)
	p.countTokens("embedding", embedded.Tokens)

	if p.deps.Cache != nil {
		hit, err := p.deps.Cache.Lookup(ctx, id.Role, embedded.Vector)
		if err != nil {
			log.Printf("semantic cache lookup failed: %v", err)
		}
		p.countCacheLookup(hit != nil)
		if hit != nil {
			p.countRequest(operation, "cache_hit")
			p.observeIndicator("semantic_cache_hit")
			p.observeStage(observability.StageTotal, time.Since(start))
			res := Result{Answer: hit.Answer}
			if withMetrics {
				res.Metrics = &Metrics{
					Latency: Latency{
						Total:     seconds(time.Since(start).Seconds()),
						Embedding: seconds(embedDur.Seconds()),
					},
					Usage: Usage{EmbeddingTokens: embedded.Tokens},
					Cache: CacheInfo{SemanticCacheHit: true},
				}
			}
			return res, nil
		}
	}

	// Best-effort sparse encoding: a failure degrades to dense-only.
	var sparseVec *sparse.Vector
	if p.deps.Sparse != nil {
		vec, err := p.deps.Sparse.EncodeQuery(question)
		if err != nil {
			p.observeIndicator("sparse_fallback")
		} else {
			sparseVec = &vec
		}
	}

	retrievalStart := time.Now()
	matches, err := p.deps.Index.Query(ctx, index.Query{
		Dense:  embedded.Vector,
		Sparse: sparseVec,
		TopK:   p.opts.TopK,
		Role:   id.Role,
	})
	if err != nil {
		p.countRequest(operation, "error")
		return Result{}, fmt.Errorf("query index: %w", err)
	}
	retrievalDur := time.Since(retrievalStart)
	p.observeStage(observability.StageRetrieval, retrievalDur)

	if len(matches) == 0 {
		p.countRequest(operation, "no_data")
		p.observeIndicator("no_data")
		p.observeStage(observability.StageTotal, time.Since(start))
		res := Result{Answer: NoDataAnswer}
		if withMetrics {
			res.Metrics = &Metrics{
				Latency: Latency{
					Total:     seconds(time.Since(start).Seconds()),
					Embedding: seconds(embedDur.Seconds()),
					Retrieval: secondsPtr(retrievalDur.Seconds()),
				},
				Usage: Usage{EmbeddingTokens: embedded.Tokens},
				Cache: CacheInfo{SemanticCacheHit: false},
			}
		}
		return res, nil
	}

	rerankStart := time.Now()
	rerankerCalls := 0
	if p.deps.Reranker != nil {
		rerankerCalls = 1
	}
	selection := rerank.Select(ctx, p.deps.Reranker, question, matches, p.opts.RerankThreshold, p.opts.RerankKeep)
	if p.deps.Reranker != nil && !selection.Scored {
		p.countRerankFallback()
	}
	rerankDur := time.Since(rerankStart)
	p.observeStage(observability.StageReranker, rerankDur)

	evidence := BuildContext(p.deps.Parents, selection.Matches)
	messages := p.promptMessages(ctx, id, question, evidence)

	llmStart := time.Now()
	completion, err := p.deps.Chat.Invoke(ctx, messages)
	if err != nil {
		p.countRequest(operation, "error")
		return Result{}, fmt.Errorf("generate answer: %w", err)
	}
	llmDur := time.Since(llmStart)
	p.observeStage(observability.StageLLM, llmDur)
	p.countTokens("llm_input", completion.InputTokens)
	p.countTokens("llm_output", completion.OutputTokens)

	answer := completion.Content

	// Cache store and memory maintenance are fire-and-forget: the answer is
	// already decided and their failure must not surface.
	if p.deps.Cache != nil {
		if err := p.deps.Cache.Store(ctx, id.Role, question, embedded.Vector, answer); err != nil {
			log.Printf("semantic cache store failed: %v", err)
		}
	}
	if p.deps.Memory != nil {
		if err := p.deps.Memory.AppendTurn(ctx, id.UserID, memory.Turn{User: question, Assistant: answer}); err != nil {
			log.Printf("memory append failed: %v", err)
		}
		if err := p.deps.Memory.MaybeSummarize(ctx, id.UserID, memory.NewLLMSummarizer(p.deps.Chat)); err != nil {
			log.Printf("memory summarization failed: %v", err)
		}
	}

	p.countRequest(operation, "answered")
	p.observeStage(observability.StageTotal, time.Since(start))

	res := Result{Answer: answer}
	if withMetrics {
		res.Metrics = &Metrics{
			Latency: Latency{
				Total:     seconds(time.Since(start).Seconds()),
				Embedding: seconds(embedDur.Seconds()),
				Retrieval: secondsPtr(retrievalDur.Seconds()),
				Reranker:  secondsPtr(rerankDur.Seconds()),
				LLM:       secondsPtr(llmDur.Seconds()),
			},
			Usage: Usage{
				EmbeddingTokens: embedded.Tokens,
				LLMInputTokens:  completion.InputTokens,
				LLMOutputTokens: completion.OutputTokens,
				RerankerCalls:   rerankerCalls,
			},
			Cache: CacheInfo{SemanticCacheHit: false},
		}
	}
	return res, nil
}

// promptMessages builds the ordered generation prompt: memory context first
// (summary before retained turns), then the fixed instruction, then the
// evidence block and the question.
func (p *Pipeline) promptMessages(ctx context.Context, id Identity, question, evidence string) []llm.Message {
	var messages []llm.Message
	if p.deps.Memory != nil {
		mem, err := p.deps.Memory.PromptContext(ctx, id.UserID)
		if err != nil {
			log.Printf("memory context unavailable: %v", err)
		} else {
			messages = mem
		}
	}
	messages = append(messages,
		llm.System(answerInstruction),
		llm.User(fmt.Sprintf("Context:\n%s\n\nQuestion: %s", evidence, question)),
	)
	return messages
}

func (p *Pipeline) countRequest(operation, outcome string) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.Requests.WithLabelValues(operation, outcome).Inc()
	}
}

func (p *Pipeline) countCacheLookup(hit bool) {
	if p.deps.Metrics == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	p.deps.Metrics.CacheLookups.WithLabelValues(result).Inc()
}

func (p *Pipeline) countTokens(kind string, n int) {
	if p.deps.Metrics != nil && n > 0 {
		p.deps.Metrics.Tokens.WithLabelValues(kind).Add(float64(n))
	}
}

func (p *Pipeline) countRerankFallback() {
	if p.deps.Metrics != nil {
		p.deps.Metrics.RerankFallbacks.Inc()
		p.deps.Metrics.ObserveIndicator("rerank_fallback")
	}
}

func (p *Pipeline) observeStage(stage string, d time.Duration) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.ObserveStage(stage, d)
	}
}

func (p *Pipeline) observeIndicator(name string) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.ObserveIndicator(name)
	}
}

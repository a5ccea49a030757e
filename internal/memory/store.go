package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/minervaai/minerva/internal/kv"
	"github.com/minervaai/minerva/internal/llm"
)

const systemPreamble = "You are a helpful AI assistant."

// Turn is one user/assistant exchange. Immutable once stored; removed only
// by summarization trimming.
type Turn struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	At        time.Time `json:"ts"`
}

// Summarizer merges an existing summary with a batch of turns into one
// replacement summary.
type Summarizer interface {
	Summarize(ctx context.Context, existing string, turns []Turn) (string, error)
}

// Options tunes the rolling-memory behavior. Zero values take the defaults.
type Options struct {
	// TTL is the sliding expiration shared by a session's turn log and
	// summary keys; refreshed on every append. Default 5m.
	TTL time.Duration

	// SummaryTrigger is the turn count above which maintenance summarizes.
	// Default 5.
	SummaryTrigger int

	// KeepAfterSummary is how many recent turns survive a summarization.
	// Default 2.
	KeepAfterSummary int
}

// Store keeps a per-session ordered turn log plus one rolling summary in the
// keyed store.
type Store struct {
	kv      kv.Store
	ttl     time.Duration
	trigger int
	keep    int
}

func NewStore(store kv.Store, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.SummaryTrigger <= 0 {
		opts.SummaryTrigger = 5
	}
	if opts.KeepAfterSummary <= 0 {
		opts.KeepAfterSummary = 2
	}
	return &Store{
		kv:      store,
		ttl:     opts.TTL,
		trigger: opts.SummaryTrigger,
		keep:    opts.KeepAfterSummary,
	}
}

func turnsKey(session string) string   { return "chat:" + session + ":turns" }
func summaryKey(session string) string { return "chat:" + session + ":summary" }

// Turns returns the session's retained turns in append order. Turns that no
// longer parse are skipped.
func (s *Store) Turns(ctx context.Context, session string) ([]Turn, error) {
	raw, err := s.kv.ListRange(ctx, turnsKey(session), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read turn log: %w", err)
	}
	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Summary returns the session's rolling summary, empty when none exists.
func (s *Store) Summary(ctx context.Context, session string) (string, error) {
	summary, err := s.kv.Get(ctx, summaryKey(session))
	if err != nil {
		return "", fmt.Errorf("read summary: %w", err)
	}
	return summary, nil
}

// AppendTurn appends one turn and refreshes the TTL of both session keys so
// an active conversation never expires mid-use. The two expirations are not
// atomic with the append; a concurrent writer may observe an
// updated-log/stale-TTL state, which the next append repairs.
func (s *Store) AppendTurn(ctx context.Context, session string, turn Turn) error {
	if turn.At.IsZero() {
		turn.At = time.Now().UTC()
	}
	raw, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	if err := s.kv.ListAppend(ctx, turnsKey(session), string(raw)); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	if err := s.kv.Expire(ctx, turnsKey(session), s.ttl); err != nil {
		return fmt.Errorf("refresh turn log ttl: %w", err)
	}
	if err := s.kv.Expire(ctx, summaryKey(session), s.ttl); err != nil {
		return fmt.Errorf("refresh summary ttl: %w", err)
	}
	return nil
}

// SetSummary replaces the session summary.
func (s *Store) SetSummary(ctx context.Context, session, text string) error {
	if err := s.kv.Set(ctx, summaryKey(session), text, s.ttl); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// MaybeSummarize runs memory maintenance: when the turn log exceeds the
// trigger, every turn except the last KeepAfterSummary is folded into the
// summary and trimmed from the log. The read-compute-write sequence is not
// transactional; an append landing between the summary write and the trim
// can be lost if it falls inside the trimmed range.
func (s *Store) MaybeSummarize(ctx context.Context, session string, summarizer Summarizer) error {
	turns, err := s.Turns(ctx, session)
	if err != nil {
		return err
	}
	if len(turns) <= s.trigger {
		return nil
	}

	cut := len(turns) - s.keep

	existing, err := s.Summary(ctx, session)
	if err != nil {
		return err
	}

	updated, err := summarizer.Summarize(ctx, existing, turns[:cut])
	if err != nil {
		return fmt.Errorf("summarize turns: %w", err)
	}

	if err := s.SetSummary(ctx, session, updated); err != nil {
		return err
	}
	if err := s.kv.ListTrim(ctx, turnsKey(session), int64(cut), -1); err != nil {
		return fmt.Errorf("trim turn log: %w", err)
	}
	return nil
}

// PromptContext builds the memory portion of the generation prompt: the
// fixed system preamble, the summary as a labeled system note when present,
// then every retained turn as alternating user/assistant messages. Summary
// before raw turns is load-bearing: recent turns must not be dominated by
// older information.
func (s *Store) PromptContext(ctx context.Context, session string) ([]llm.Message, error) {
	messages := []llm.Message{llm.System(systemPreamble)}

	summary, err := s.Summary(ctx, session)
	if err != nil {
		return nil, err
	}
	if summary != "" {
		messages = append(messages, llm.System("Conversation summary:\n"+summary))
	}

	turns, err := s.Turns(ctx, session)
	if err != nil {
		return nil, err
	}
	for _, t := range turns {
		messages = append(messages, llm.User(t.User), llm.Assistant(t.Assistant))
	}

	return messages, nil
}

// LLMSummarizer produces merged summaries through the generation service.
type LLMSummarizer struct {
	client llm.Client
}

func NewLLMSummarizer(client llm.Client) *LLMSummarizer {
	return &LLMSummarizer{client: client}
}

const summaryInstructions = `You are maintaining a long-term memory summary of a conversation.

CRITICAL RULES:
- MERGE the existing summary with the new conversation turns into ONE unified summary.
- DO NOT append or list summaries separately.
- REMOVE redundancy.
- If new information contradicts old summary, KEEP THE MOST RECENT information.
- Preserve important decisions, preferences, constraints.
- Ignore small talk.
- Keep the result concise and factual.`

func (s *LLMSummarizer) Summarize(ctx context.Context, existing string, turns []Turn) (string, error) {
	completion, err := s.client.Invoke(ctx, []llm.Message{
		llm.User(SummaryPrompt(existing, turns)),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(completion.Content), nil
}

// SummaryPrompt assembles the summarizer input deterministically: turn order
// preserved, each turn rendered as role-tagged User:/Assistant: lines.
func SummaryPrompt(existing string, turns []Turn) string {
	var lines []string
	for _, t := range turns {
		lines = append(lines, "User: "+t.User, "Assistant: "+t.Assistant)
	}

	var b strings.Builder
	b.WriteString(summaryInstructions)
	b.WriteString("\n\nExisting summary:\n")
	b.WriteString(existing)
	b.WriteString("\n\nNew conversation turns:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nReturn a single updated summary only.")
	return b.String()
}

// ABOUTME: Builds bounded conversation contexts from stored room history
// ABOUTME: Token-budgeted assembly summarizes or drops older messages past the retain threshold

package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/parley-gateway/internal/store"
)

const (
	// DefaultFetchWindow is how many recent messages are pulled from the
	// store for token-budgeted assembly, independent of the budget itself.
	DefaultFetchWindow = 100

	// DefaultRetainFraction is the share of the token budget the retained
	// recent slice may fill before older messages become summarization
	// candidates. Heuristic carried over from the deployed behavior; not
	// tuned, kept configurable.
	DefaultRetainFraction = 0.7

	summaryPrefix = "Previous conversation summary: "
)

// Entry is one role/content pair of an assembled context.
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessageSource is what the assembler needs from storage.
type MessageSource interface {
	RecentMessages(ctx context.Context, roomID string, limit int) ([]*store.Message, error)
}

// Summarizer condenses a block of conversation text into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Assembler produces bounded, chronologically ordered conversation contexts.
type Assembler struct {
	source         MessageSource
	summarizer     Summarizer // nil disables summarization (older slice is dropped)
	fetchWindow    int
	retainFraction float64
	logger         *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithSummarizer sets the summarizer collaborator.
func WithSummarizer(s Summarizer) Option {
	return func(a *Assembler) { a.summarizer = s }
}

// WithFetchWindow overrides the history fetch window.
func WithFetchWindow(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.fetchWindow = n
		}
	}
}

// WithRetainFraction overrides the budget fraction filled by retained messages.
func WithRetainFraction(f float64) Option {
	return func(a *Assembler) {
		if f > 0 && f <= 1 {
			a.retainFraction = f
		}
	}
}

// NewAssembler creates an Assembler reading history from source.
// Pass nil logger for default.
func NewAssembler(source MessageSource, logger *slog.Logger, opts ...Option) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Assembler{
		source:         source,
		fetchWindow:    DefaultFetchWindow,
		retainFraction: DefaultRetainFraction,
		logger:         logger.With("component", "conversation"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fixed returns the most recent `limit` messages of a room, oldest first,
// with the new user message (if non-empty) appended last.
func (a *Assembler) Fixed(ctx context.Context, roomID, userMessage string, limit int) ([]Entry, error) {
	messages, err := a.source.RecentMessages(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	entries := toEntries(messages)
	if userMessage != "" {
		entries = append(entries, Entry{Role: store.RoleUser, Content: userMessage})
	}
	return entries, nil
}

// TokenBudget returns room history bounded by an approximate token budget.
//
// The most recent messages are retained verbatim until their estimated cost
// reaches the retain fraction of the budget; everything older is summarized
// into a single leading system entry, or dropped silently when no summarizer
// is available or summarization fails. The new user message is always
// appended last and is never truncated or summarized. The threshold is a
// heuristic: callers must tolerate slight overage.
func (a *Assembler) TokenBudget(ctx context.Context, roomID, userMessage string, maxTokens int) ([]Entry, error) {
	messages, err := a.source.RecentMessages(ctx, roomID, a.fetchWindow)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	entries := toEntries(messages)

	// Walk backward from the most recent message accumulating cost until the
	// retained slice fills the threshold. index ends on the newest message
	// that did NOT make the cut.
	threshold := float64(maxTokens) * a.retainFraction
	totalTokens := 0
	index := len(entries) - 1
	for index >= 0 && float64(totalTokens) < threshold {
		totalTokens += estimateTokens(entries[index].Content)
		index--
	}

	if index > 0 {
		older := entries[:index+1]
		recent := entries[index+1:]
		entries = a.condense(ctx, older, recent)
	}

	if userMessage != "" {
		entries = append(entries, Entry{Role: store.RoleUser, Content: userMessage})
	}
	return entries, nil
}

// condense folds the older slice into a leading summary entry, or drops it
// when summarization is unavailable or fails. Lossy degradation by contract.
func (a *Assembler) condense(ctx context.Context, older, recent []Entry) []Entry {
	if a.summarizer == nil {
		a.logger.Debug("no summarizer configured, dropping older messages", "dropped", len(older))
		return recent
	}

	text := ""
	for _, e := range older {
		text += e.Role + ": " + e.Content + "\n"
	}

	summary, err := a.summarizer.Summarize(ctx, text)
	if err != nil {
		a.logger.Warn("summarization failed, dropping older messages",
			"dropped", len(older),
			"error", err)
		return recent
	}

	out := make([]Entry, 0, len(recent)+1)
	out = append(out, Entry{Role: store.RoleSystem, Content: summaryPrefix + summary})
	out = append(out, recent...)
	return out
}

// estimateTokens approximates the model-token cost of a string.
// One token per four characters, rounded up.
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}

func toEntries(messages []*store.Message) []Entry {
	entries := make([]Entry, 0, len(messages))
	for _, msg := range messages {
		role := msg.Role
		if role != store.RoleUser && role != store.RoleSystem {
			role = store.RoleAssistant
		}
		entries = append(entries, Entry{Role: role, Content: msg.Content})
	}
	return entries
}

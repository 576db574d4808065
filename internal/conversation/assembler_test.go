// ABOUTME: Tests for bounded context assembly
// ABOUTME: Covers fixed-count mode, token budgets, summarization, and lossy degradation

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/parley-gateway/internal/store"
)

// mockSource implements MessageSource with canned history
type mockSource struct {
	messages []*store.Message
	err      error
	lastRoom string
	lastLim  int
}

func (m *mockSource) RecentMessages(ctx context.Context, roomID string, limit int) ([]*store.Message, error) {
	m.lastRoom = roomID
	m.lastLim = limit
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.messages) > limit {
		return m.messages[len(m.messages)-limit:], nil
	}
	return m.messages, nil
}

// mockSummarizer implements Summarizer
type mockSummarizer struct {
	summary  string
	err      error
	called   bool
	lastText string
}

func (m *mockSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	m.called = true
	m.lastText = text
	if m.err != nil {
		return "", m.err
	}
	return m.summary, nil
}

func historyOf(contents ...string) []*store.Message {
	base := time.Now().Add(-time.Hour)
	msgs := make([]*store.Message, 0, len(contents))
	for i, c := range contents {
		role := store.RoleUser
		if i%2 == 1 {
			role = store.RoleAssistant
		}
		msgs = append(msgs, &store.Message{
			ID:        fmt.Sprintf("msg-%d", i),
			RoomID:    "r1",
			Role:      role,
			Content:   c,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	return msgs
}

func TestFixed_AppendsUserMessage(t *testing.T) {
	source := &mockSource{messages: historyOf("hello", "hi, how can I help?", "what is Go?")}
	a := NewAssembler(source, nil)

	entries, err := a.Fixed(context.Background(), "r1", "hi", 50)
	require.NoError(t, err)

	require.Len(t, entries, 4)
	assert.Equal(t, Entry{Role: store.RoleUser, Content: "hello"}, entries[0])
	assert.Equal(t, Entry{Role: store.RoleUser, Content: "hi"}, entries[3])
	assert.Equal(t, 50, source.lastLim)
}

func TestFixed_NoUserMessage(t *testing.T) {
	source := &mockSource{messages: historyOf("hello", "hi there")}
	a := NewAssembler(source, nil)

	entries, err := a.Fixed(context.Background(), "r1", "", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestTokenBudget_UnderBudgetReturnsEverything(t *testing.T) {
	// Total estimated cost well under 70% of the budget: nothing is
	// summarized or dropped, history comes back verbatim, oldest first.
	source := &mockSource{messages: historyOf("one", "two", "three")}
	summarizer := &mockSummarizer{summary: "should not be used"}
	a := NewAssembler(source, nil, WithSummarizer(summarizer))

	entries, err := a.TokenBudget(context.Background(), "r1", "hi", 10000)
	require.NoError(t, err)

	require.Len(t, entries, 4)
	assert.Equal(t, "one", entries[0].Content)
	assert.Equal(t, "two", entries[1].Content)
	assert.Equal(t, "three", entries[2].Content)
	assert.Equal(t, Entry{Role: store.RoleUser, Content: "hi"}, entries[3])
	assert.False(t, summarizer.called)
}

func TestTokenBudget_SummarizesOlderSlice(t *testing.T) {
	// 10 messages of ~100 chars (~25 tokens each) against a budget of 100:
	// the retained slice stops near 70 tokens, everything older is summarized.
	contents := make([]string, 10)
	for i := range contents {
		contents[i] = strings.Repeat("x", 100)
	}
	source := &mockSource{messages: historyOf(contents...)}
	summarizer := &mockSummarizer{summary: "they talked about x"}
	a := NewAssembler(source, nil, WithSummarizer(summarizer))

	entries, err := a.TokenBudget(context.Background(), "r1", "hi", 100)
	require.NoError(t, err)

	assert.True(t, summarizer.called)
	require.NotEmpty(t, entries)
	assert.Equal(t, store.RoleSystem, entries[0].Role)
	assert.Equal(t, "Previous conversation summary: they talked about x", entries[0].Content)

	// New user message still last, untouched
	assert.Equal(t, Entry{Role: store.RoleUser, Content: "hi"}, entries[len(entries)-1])

	// The summarized text contains role-prefixed lines
	assert.Contains(t, summarizer.lastText, "user: ")
}

func TestTokenBudget_NoSummarizerDropsOlderSlice(t *testing.T) {
	contents := make([]string, 10)
	for i := range contents {
		contents[i] = strings.Repeat("x", 100)
	}
	source := &mockSource{messages: historyOf(contents...)}
	a := NewAssembler(source, nil) // no summarizer

	entries, err := a.TokenBudget(context.Background(), "r1", "", 100)
	require.NoError(t, err)

	// No partial inclusion: the result holds only whole retained messages,
	// no synthetic summary entry.
	for _, e := range entries {
		assert.NotEqual(t, store.RoleSystem, e.Role)
		assert.Len(t, e.Content, 100)
	}
	assert.Less(t, len(entries), 10)
}

func TestTokenBudget_SummarizerFailureDropsOlderSlice(t *testing.T) {
	contents := make([]string, 10)
	for i := range contents {
		contents[i] = strings.Repeat("x", 100)
	}
	source := &mockSource{messages: historyOf(contents...)}
	summarizer := &mockSummarizer{err: errors.New("model unavailable")}
	a := NewAssembler(source, nil, WithSummarizer(summarizer))

	entries, err := a.TokenBudget(context.Background(), "r1", "hi", 100)
	require.NoError(t, err)

	assert.True(t, summarizer.called)
	for _, e := range entries {
		assert.NotEqual(t, store.RoleSystem, e.Role)
	}
	assert.Equal(t, "hi", entries[len(entries)-1].Content)
}

func TestTokenBudget_FetchWindowIndependentOfBudget(t *testing.T) {
	source := &mockSource{messages: historyOf("a", "b")}
	a := NewAssembler(source, nil, WithFetchWindow(42))

	_, err := a.TokenBudget(context.Background(), "r1", "", 5)
	require.NoError(t, err)
	assert.Equal(t, 42, source.lastLim)
}

func TestTokenBudget_SourceError(t *testing.T) {
	source := &mockSource{err: errors.New("db closed")}
	a := NewAssembler(source, nil)

	_, err := a.TokenBudget(context.Background(), "r1", "hi", 100)
	assert.Error(t, err)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(""))
	assert.Equal(t, 1, estimateTokens("abc"))
	assert.Equal(t, 1, estimateTokens("abcd"))
	assert.Equal(t, 2, estimateTokens("abcde"))
	assert.Equal(t, 25, estimateTokens(strings.Repeat("x", 100)))
}

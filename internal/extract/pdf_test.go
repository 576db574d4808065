// ABOUTME: Tests for the PDF extraction state machine
// ABOUTME: Drives collectPDF with synthetic parser event streams

package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIngestor(limits Limits) *Ingestor {
	return NewIngestor(limits, slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError})))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

// feed converts a slice of events into a closed channel, the way the parser
// presents a fully consumed document.
func feed(events ...pdfEvent) <-chan pdfEvent {
	ch := make(chan pdfEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestCollectPDFBasicPages(t *testing.T) {
	ing := testIngestor(DefaultLimits())

	text, err := ing.collectPDF(context.Background(), feed(
		pdfEvent{page: 1},
		pdfEvent{text: "Hello"},
		pdfEvent{text: "world"},
		pdfEvent{page: 2},
		pdfEvent{text: "Second page"},
	), "test.pdf")
	require.NoError(t, err)

	assert.Contains(t, text, "--- Page 1 ---")
	assert.Contains(t, text, "--- Page 2 ---")
	assert.Contains(t, text, "Hello")
	assert.Contains(t, text, "Second page")
	assert.Less(t, strings.Index(text, "Hello"), strings.Index(text, "Second page"))
}

func TestCollectPDFEmptyStream(t *testing.T) {
	ing := testIngestor(DefaultLimits())

	text, err := ing.collectPDF(context.Background(), feed(), "empty.pdf")
	require.NoError(t, err)
	assert.Equal(t, pdfNoTextSentinel, text)
}

func TestCollectPDFWhitespaceOnly(t *testing.T) {
	ing := testIngestor(DefaultLimits())

	text, err := ing.collectPDF(context.Background(), feed(
		pdfEvent{page: 1},
		pdfEvent{text: "   "},
		pdfEvent{text: "\t"},
	), "blank.pdf")
	require.NoError(t, err)
	assert.Equal(t, pdfNoTextSentinel, text)
}

func TestCollectPDFParserError(t *testing.T) {
	ing := testIngestor(DefaultLimits())

	_, err := ing.collectPDF(context.Background(), feed(
		pdfEvent{page: 1},
		pdfEvent{text: "partial"},
		pdfEvent{err: errors.New("corrupt xref table")},
	), "corrupt.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
}

func TestCollectPDFTimeout(t *testing.T) {
	limits := DefaultLimits()
	limits.Timeout = 20 * time.Millisecond
	ing := testIngestor(limits)

	// Channel that never produces and never closes.
	stalled := make(chan pdfEvent)

	_, err := ing.collectPDF(context.Background(), stalled, "slow.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProcessingTimeout))
}

func TestCollectPDFContextCancel(t *testing.T) {
	ing := testIngestor(DefaultLimits())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stalled := make(chan pdfEvent)
	_, err := ing.collectPDF(ctx, stalled, "cancelled.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectPDFItemCeilingWithContent(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxItems = 5
	ing := testIngestor(limits)

	events := []pdfEvent{{page: 1}}
	for n := 0; n < 10; n++ {
		events = append(events, pdfEvent{text: fmt.Sprintf("fragment number %d", n)})
	}

	text, err := ing.collectPDF(context.Background(), feed(events...), "big.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "fragment number 0")
	assert.NotContains(t, text, "fragment number 9")
}

func TestCollectPDFItemCeilingNoContent(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxItems = 3
	ing := testIngestor(limits)

	// Only whitespace fragments: the ceiling trips with nothing accumulated.
	events := []pdfEvent{{page: 1}}
	for n := 0; n < 10; n++ {
		events = append(events, pdfEvent{text: " "})
	}

	text, err := ing.collectPDF(context.Background(), feed(events...), "noise.pdf")
	require.NoError(t, err)
	assert.Equal(t, pdfItemsTruncated, text)
}

func TestCollectPDFPageCeiling(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxPages = 2
	ing := testIngestor(limits)

	text, err := ing.collectPDF(context.Background(), feed(
		pdfEvent{page: 1},
		pdfEvent{text: "page one body"},
		pdfEvent{page: 2},
		pdfEvent{text: "page two body"},
		pdfEvent{page: 3},
		pdfEvent{text: "never reached"},
	), "long.pdf")
	require.NoError(t, err)

	assert.Contains(t, text, "page one body")
	assert.Contains(t, text, "page two body")
	assert.Contains(t, text, "[Truncated: PDF has more than 2 pages]")
	assert.NotContains(t, text, "never reached")
}

func TestCollectPDFFiltersWatermarks(t *testing.T) {
	ing := testIngestor(DefaultLimits())

	text, err := ing.collectPDF(context.Background(), feed(
		pdfEvent{page: 1},
		pdfEvent{text: "Confidential"},
		pdfEvent{text: "A genuinely unique sentence that carries real document meaning."},
	), "marked.pdf")
	require.NoError(t, err)

	assert.NotContains(t, text, "Confidential")
	assert.Contains(t, text, "genuinely unique sentence")
}

func TestCollectPDFFiltersRepeatedFragments(t *testing.T) {
	ing := testIngestor(DefaultLimits())

	events := []pdfEvent{{page: 1}}
	for n := 0; n < 8; n++ {
		events = append(events, pdfEvent{text: "ACME Corp"})
	}
	events = append(events, pdfEvent{text: "Actual paragraph content lives here."})

	text, err := ing.collectPDF(context.Background(), feed(events...), "repeated.pdf")
	require.NoError(t, err)

	// The short fragment is admitted until its occurrence count crosses the
	// threshold, then suppressed.
	assert.Equal(t, 4, strings.Count(text, "ACME Corp"))
	assert.Contains(t, text, "Actual paragraph content")
}

func TestExtractPDFSizeGuard(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxFileSize = 10
	ing := testIngestor(limits)

	_, err := ing.extractPDF(context.Background(), make([]byte, 64), "huge.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPayloadTooLarge))
}

func TestParsePDFGarbageInput(t *testing.T) {
	done := make(chan struct{})
	defer close(done)

	events := parsePDF([]byte("not a pdf at all"), done)

	var sawErr bool
	for ev := range events {
		if ev.err != nil {
			sawErr = true
		}
	}
	assert.True(t, sawErr)
}

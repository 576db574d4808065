// ABOUTME: Streaming PDF text extraction modeled as a channel-driven state machine
// ABOUTME: Enforces size, wall-clock, item-count and page-count guards while consuming parser events

package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// Sentinels returned instead of extracted text. These are successful results:
// the document was parsed, there was just nothing usable in it.
const (
	pdfNoTextSentinel = "[PDF file contains no extractable text content. It may be image-based or encrypted.]"
	pdfItemsTruncated = "[PDF processed, but content truncated due to size]"
)

// pdfEvent is one event from the underlying parser stream.
// Exactly one of page/text/err is meaningful; stream end is channel close.
type pdfEvent struct {
	page int    // > 0: page boundary
	text string // text fragment
	err  error  // parser failure
}

// extractPDF decodes a PDF payload into plain text.
//
// The size guard runs before any streaming begins. Parser events are then
// consumed from a channel, raced against a wall-clock timer: timeout fails
// the whole operation regardless of accumulated text, while the item and
// page ceilings terminate it successfully with what was gathered so far.
func (i *Ingestor) extractPDF(ctx context.Context, data []byte, filename string) (string, error) {
	if err := i.checkSize(data, filename); err != nil {
		return "", err
	}

	done := make(chan struct{})
	defer close(done)
	events := parsePDF(data, done)

	return i.collectPDF(ctx, events, filename)
}

// parsePDF streams parser events for the document on the returned channel.
// The channel is closed when the document is exhausted. The producer aborts
// once done is closed, so an early-returning consumer never leaks it.
func parsePDF(data []byte, done <-chan struct{}) <-chan pdfEvent {
	events := make(chan pdfEvent, 64)

	emit := func(ev pdfEvent) bool {
		select {
		case events <- ev:
			return true
		case <-done:
			return false
		}
	}

	go func() {
		defer close(events)
		// The parser panics on some malformed documents; surface that as a
		// parser-error event instead of killing the process.
		defer func() {
			if r := recover(); r != nil {
				emit(pdfEvent{err: fmt.Errorf("parser panic: %v", r)})
			}
		}()

		reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			emit(pdfEvent{err: err})
			return
		}

		for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
			page := reader.Page(pageNum)
			if page.V.IsNull() {
				continue
			}
			if !emit(pdfEvent{page: pageNum}) {
				return
			}
			for _, item := range page.Content().Text {
				if !emit(pdfEvent{text: item.S}) {
					return
				}
			}
		}
	}()

	return events
}

// collectPDF is the extraction state machine. It consumes events until the
// stream ends, a guard trips, or the timer fires.
func (i *Ingestor) collectPDF(ctx context.Context, events <-chan pdfEvent, filename string) (string, error) {
	timer := time.NewTimer(i.limits.Timeout)
	defer timer.Stop()

	var content strings.Builder
	currentPage := 0
	hasContent := false
	itemCount := 0

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case <-timer.C:
			i.logger.Error("PDF processing timeout exceeded",
				"filename", filename,
				"timeout", i.limits.Timeout)
			return "", fmt.Errorf("%w: PDF processing exceeded %s", ErrProcessingTimeout, i.limits.Timeout)

		case ev, ok := <-events:
			if !ok {
				// Stream end: resolve with whatever was accepted.
				if !hasContent {
					i.logger.Warn("no text content extracted from PDF", "filename", filename)
					return pdfNoTextSentinel, nil
				}
				i.logger.Info("extracted PDF text",
					"filename", filename,
					"pages", currentPage)
				return strings.TrimSpace(content.String()), nil
			}

			if ev.err != nil {
				i.logger.Error("PDF parsing error", "filename", filename, "error", ev.err)
				return "", fmt.Errorf("%w: %v", ErrParse, ev.err)
			}

			itemCount++
			if itemCount%1000 == 0 {
				i.logger.Debug("PDF items processed so far", "filename", filename, "items", itemCount)
			}
			if itemCount > i.limits.MaxItems {
				i.logger.Warn("PDF has too many items, truncating",
					"filename", filename,
					"max_items", i.limits.MaxItems)
				text := strings.TrimSpace(content.String())
				if text == "" {
					return pdfItemsTruncated, nil
				}
				return text, nil
			}

			if ev.page > 0 {
				if currentPage >= i.limits.MaxPages {
					i.logger.Warn("reached maximum page limit",
						"filename", filename,
						"max_pages", i.limits.MaxPages)
					return strings.TrimSpace(content.String()) +
						fmt.Sprintf("\n\n[Truncated: PDF has more than %d pages]", i.limits.MaxPages), nil
				}
				if currentPage > 0 {
					content.WriteString("\n\n")
				}
				currentPage = ev.page
				content.WriteString(fmt.Sprintf("--- Page %d ---\n", ev.page))
				continue
			}

			text := strings.TrimSpace(ev.text)
			if text == "" {
				continue
			}
			if isLikelyWatermark(text, content.String()) {
				i.logger.Debug("skipped likely watermark", "fragment", text)
				continue
			}
			hasContent = true
			content.WriteString(text)
			content.WriteString(" ")
		}
	}
}

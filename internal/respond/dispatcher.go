// ABOUTME: Output-flag dispatch from AI text to downloadable artifacts
// ABOUTME: Generators render bytes, upload them, and return a presigned URL

package respond

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Output flags a message may request. Anything else falls through to plain
// text.
const (
	FlagText       = "text"
	FlagPDF        = "pdf"
	FlagWord       = "word"
	FlagExcel      = "excel"
	FlagPowerPoint = "powerpoint"
	FlagChecklist  = "checklist"
)

// Result is the dispatcher's outcome. FormattedResponse always carries the
// AI content verbatim; FileURL is empty when no artifact was generated.
type Result struct {
	FormattedResponse string
	FileURL           string
}

// Uploader stores artifact bytes and hands out download URLs. Satisfied by
// the object store client.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Dispatcher routes AI output through the generator matching its flag.
type Dispatcher struct {
	uploader Uploader
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. Pass nil logger for default.
func NewDispatcher(uploader Uploader, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		uploader: uploader,
		logger:   logger.With("component", "respond"),
	}
}

// Generate produces the response for one completed message. The flag
// enumeration is closed: unknown flags behave like text. Generator failures
// propagate unchanged; there is no silent fallback to text, the caller
// decides how to surface the error.
func (d *Dispatcher) Generate(ctx context.Context, flag, content, roomID string) (Result, error) {
	var (
		data        []byte
		ext         string
		contentType string
		err         error
	)

	switch flag {
	case FlagPDF:
		data, err = renderPDF(content)
		ext, contentType = "pdf", "application/pdf"
	case FlagWord:
		data, err = renderDocx(content)
		ext, contentType = "docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FlagExcel:
		data, err = renderXlsx(content)
		ext, contentType = "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FlagPowerPoint:
		data, err = renderPptx(content)
		ext, contentType = "pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case FlagChecklist:
		data, err = renderChecklist(content)
		ext, contentType = "pdf", "application/pdf"
	default:
		// text, empty, or unrecognized: no artifact
		return Result{FormattedResponse: content}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("generating %s artifact: %w", flag, err)
	}

	key := fmt.Sprintf("%s/%s.%s", roomID, uuid.New().String(), ext)
	if _, err := d.uploader.Upload(ctx, key, data, contentType); err != nil {
		return Result{}, err
	}
	url, err := d.uploader.PresignedURL(ctx, key, 0)
	if err != nil {
		return Result{}, err
	}

	d.logger.Info("generated artifact", "flag", flag, "key", key, "size_kb", len(data)/1024)
	return Result{FormattedResponse: content, FileURL: url}, nil
}

// ABOUTME: Attachment ingestion with per-media-type extractor dispatch
// ABOUTME: Closed media-type enumeration; unsupported types yield empty text, not errors

package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Extraction errors
var (
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrProcessingTimeout = errors.New("processing timeout exceeded")
	ErrParse             = errors.New("parse error")
)

// Supported attachment media types. Anything else is silently ignored.
const (
	MimePDF  = "application/pdf"
	MimeDoc  = "application/msword"
	MimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeXls  = "application/vnd.ms-excel"
	MimeOds  = "application/vnd.oasis.opendocument.spreadsheet"
	MimeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimePpt  = "application/vnd.ms-powerpoint"
	MimePptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// Attachment is a transient file input carried on a message event.
// Data is the base64-encoded payload.
type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Limits bounds resource usage during extraction. The defaults mirror the
// deployed values; none of them are tuned, all are configurable.
type Limits struct {
	MaxFileSize int64         // decoded payload ceiling
	Timeout     time.Duration // wall-clock ceiling per extraction
	MaxItems    int           // parser event ceiling (truncates, does not fail)
	MaxPages    int           // page ceiling (truncates with marker)
}

// DefaultLimits returns the standard extraction limits.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSize: 50 * 1024 * 1024,
		Timeout:     60 * time.Second,
		MaxItems:    100_000,
		MaxPages:    500,
	}
}

// Ingestor dispatches attachments to the extractor matching their declared
// media type and returns the extracted plain text.
type Ingestor struct {
	limits Limits
	logger *slog.Logger
}

// NewIngestor creates an Ingestor. Pass nil logger for default.
func NewIngestor(limits Limits, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		limits: limits,
		logger: logger.With("component", "extract"),
	}
}

// Process extracts plain text from an attachment.
//
// The media type is matched against a closed enumeration; unmapped types
// return empty text and no error, so the pipeline ignores them rather than
// rejecting the message. Extractor errors propagate unchanged.
func (i *Ingestor) Process(ctx context.Context, att Attachment) (string, error) {
	switch att.MimeType {
	case MimePDF, MimeDoc, MimeDocx, MimeXls, MimeOds, MimeXlsx, MimePpt, MimePptx:
		// supported, fall through to decode
	default:
		i.logger.Debug("skipping unsupported attachment type",
			"filename", att.Filename,
			"mime_type", att.MimeType)
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(att.Data)
	if err != nil {
		return "", fmt.Errorf("%w: decoding attachment payload: %v", ErrParse, err)
	}

	i.logger.Info("processing attachment",
		"filename", att.Filename,
		"mime_type", att.MimeType,
		"size_kb", len(data)/1024)

	switch att.MimeType {
	case MimePDF:
		return i.extractPDF(ctx, data, att.Filename)
	case MimeDoc:
		return i.extractLegacyWord(data, att.Filename)
	case MimeDocx:
		return i.extractDocx(data, att.Filename)
	case MimeXls, MimeOds:
		return i.extractLegacySpreadsheet(data, att.Filename)
	case MimeXlsx:
		return i.extractXlsx(data, att.Filename)
	case MimePpt:
		return i.extractLegacyPowerPoint(data, att.Filename)
	case MimePptx:
		return i.extractPptx(data, att.Filename)
	}
	return "", nil
}

// checkSize enforces the decoded-size guard shared by every extractor.
func (i *Ingestor) checkSize(data []byte, filename string) error {
	if int64(len(data)) > i.limits.MaxFileSize {
		i.logger.Warn("attachment exceeds size limit",
			"filename", filename,
			"size_mb", len(data)/1024/1024)
		return fmt.Errorf("%w: %s is %d bytes, maximum is %d",
			ErrPayloadTooLarge, filename, len(data), i.limits.MaxFileSize)
	}
	return nil
}

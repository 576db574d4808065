// ABOUTME: Mapping from pipeline error taxonomy to client-visible error codes

package gateway

import (
	"context"
	"errors"

	"github.com/2389/parley-gateway/internal/ai"
	"github.com/2389/parley-gateway/internal/extract"
	"github.com/2389/parley-gateway/internal/identity"
	"github.com/2389/parley-gateway/internal/store"
)

// Client-visible error codes.
const (
	codeUnauthorized      = "unauthorized"
	codeNotFound          = "not_found"
	codePayloadTooLarge   = "payload_too_large"
	codeProcessingTimeout = "processing_timeout"
	codeParseError        = "parse_error"
	codeUpstreamFailure   = "upstream_failure"
	codeInternal          = "internal"
)

// errorCode maps an error to its client-visible code. Unrecognized errors
// collapse to internal so internals never leak to clients.
func errorCode(err error) string {
	switch {
	case errors.Is(err, identity.ErrUnauthorized):
		return codeUnauthorized
	case errors.Is(err, store.ErrNotFound):
		return codeNotFound
	case errors.Is(err, extract.ErrPayloadTooLarge):
		return codePayloadTooLarge
	case errors.Is(err, extract.ErrProcessingTimeout), errors.Is(err, context.DeadlineExceeded):
		return codeProcessingTimeout
	case errors.Is(err, extract.ErrParse):
		return codeParseError
	case errors.Is(err, ai.ErrUpstream):
		return codeUpstreamFailure
	default:
		return codeInternal
	}
}

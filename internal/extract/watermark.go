// ABOUTME: Heuristic watermark classification for extracted text fragments
// ABOUTME: Filters boilerplate, ultra-short fragments, and recurring headers/footers

package extract

import (
	"regexp"
	"strings"
)

// watermarkPatterns match boilerplate that carries no document content.
var watermarkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)confidential`),
	regexp.MustCompile(`(?i)draft`),
	regexp.MustCompile(`(?i)watermark`),
	regexp.MustCompile(`(?i)copyright`),
	regexp.MustCompile(`©`),
	regexp.MustCompile(`®`),
	regexp.MustCompile(`™`),
	regexp.MustCompile(`(?i)proprietary`),
	regexp.MustCompile(`(?i)do not (copy|distribute)`),
}

// isLikelyWatermark reports whether a trimmed text fragment should be
// excluded from extracted content.
//
// Three signals: fragments under 3 characters, fragments matching known
// boilerplate patterns, and short fragments (under 50 characters) that
// already occur more than 3 times in the accumulated text, since repeated
// short strings are running headers or footers, not content.
func isLikelyWatermark(text, existingContent string) bool {
	if len(text) < 3 {
		return true
	}

	if len(existingContent) > 0 && len(text) < 50 {
		if strings.Count(existingContent, text) > 3 {
			return true
		}
	}

	for _, pattern := range watermarkPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

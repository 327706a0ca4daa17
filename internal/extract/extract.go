// Package extract turns uploaded bytes into a markdown preview for the
// content-addressed resource row.
package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Sentinels written to the markdown field when no real extraction ran.
const (
	SentinelDisabled    = "[text extraction disabled]"
	SentinelUnsupported = "[no preview available]"
)

// TruncationMarker is appended when extracted text exceeds the ceiling.
const TruncationMarker = "..."

// Extractor produces a markdown representation of uploaded bytes.
type Extractor interface {
	// Extract returns markdown for the given content type. Unsupported
	// types return SentinelUnsupported without error.
	Extract(ctx context.Context, data []byte, contentType string) (string, error)
}

// HTMLExtractor converts HTML through html-to-markdown and passes text
// types through unchanged.
type HTMLExtractor struct {
	converter *md.Converter
}

// New creates the default extractor.
func New() *HTMLExtractor {
	return &HTMLExtractor{converter: md.NewConverter("", true, nil)}
}

// Extract implements Extractor.
func (e *HTMLExtractor) Extract(ctx context.Context, data []byte, contentType string) (string, error) {
	mime := contentType
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.TrimSpace(strings.ToLower(mime))

	switch {
	case mime == "text/html" || mime == "application/xhtml+xml":
		markdown, err := e.converter.ConvertString(string(data))
		if err != nil {
			return "", fmt.Errorf("convert html: %w", err)
		}
		return markdown, nil
	case strings.HasPrefix(mime, "text/") || mime == "application/json" || mime == "application/markdown":
		return string(data), nil
	default:
		return SentinelUnsupported, nil
	}
}

// Truncate caps markdown at maxBytes, appending the truncation marker
// when content was dropped. The cut backs up to a rune boundary so the
// result stays valid UTF-8.
func Truncate(markdown string, maxBytes int) string {
	if maxBytes <= 0 || len(markdown) <= maxBytes {
		return markdown
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(markdown[cut]) {
		cut--
	}
	return markdown[:cut] + TruncationMarker
}

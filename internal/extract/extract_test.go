package extract

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtract_HTML(t *testing.T) {
	e := New()

	markdown, err := e.Extract(context.Background(), []byte("<h1>Heading</h1><p>body</p>"), "text/html; charset=utf-8")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(markdown, "# Heading") {
		t.Errorf("heading not converted: %q", markdown)
	}
	if strings.Contains(markdown, "<h1>") {
		t.Errorf("tags leaked into markdown: %q", markdown)
	}
}

func TestExtract_PlainTextPassthrough(t *testing.T) {
	e := New()

	for _, ct := range []string{"text/plain", "text/markdown", "application/json"} {
		out, err := e.Extract(context.Background(), []byte("as-is"), ct)
		if err != nil {
			t.Fatalf("Extract(%s): %v", ct, err)
		}
		if out != "as-is" {
			t.Errorf("Extract(%s) = %q", ct, out)
		}
	}
}

func TestExtract_UnsupportedType(t *testing.T) {
	e := New()

	out, err := e.Extract(context.Background(), []byte{0x25, 0x50, 0x44, 0x46}, "application/pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out != SentinelUnsupported {
		t.Errorf("expected sentinel, got %q", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"under limit", "short", 10, "short"},
		{"at limit", "exact", 5, "exact"},
		{"over limit", "0123456789", 4, "0123" + TruncationMarker},
		{"zero max means unlimited", "anything", 0, "anything"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.max); got != tt.expected {
				t.Errorf("Truncate = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	// "aé" is three bytes; a cut at byte 2 would land inside é.
	got := Truncate("aé", 2)
	if got != "a"+TruncationMarker {
		t.Errorf("Truncate = %q, want %q", got, "a"+TruncationMarker)
	}
	if !utf8.ValidString(got) {
		t.Errorf("result is not valid UTF-8: %q", got)
	}

	long := strings.Repeat("é", 100)
	got = Truncate(long, 63)
	if !utf8.ValidString(got) {
		t.Errorf("result is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, TruncationMarker) {
		t.Errorf("marker missing: %q", got)
	}
}

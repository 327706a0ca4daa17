package service

import "testing"

func TestInferFileType(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"report.pdf", "PDF"},
		{"notes.docx", "Word"},
		{"data.xlsx", "Excel"},
		{"deck.pptx", "PowerPoint"},
		{"rows.csv", "CSV"},
		{"page.html", "HTML"},
		{"image.PNG", "PNG"},
		{"photo.jpeg", "JPG"},
		{"anim.gif", "GIF"},
		{"https://example.com/path", "Link"},
		{"https://example.com/file.pdf?token=abc", "PDF"},
		{"archive.zip", "Other"},
		{"README", "Other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferFileType(tt.name); got != tt.expected {
				t.Errorf("InferFileType(%q) = %q, want %q", tt.name, got, tt.expected)
			}
		})
	}
}

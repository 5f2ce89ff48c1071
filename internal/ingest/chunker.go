package ingest

import (
	"fmt"
	"strings"
)

// Span is one chunk of source text with its character offsets (rune-based)
// within the original document.
type Span struct {
	Text  string
	Start int
	End   int
}

// ChunkText splits text into fixed-size windows of size characters with
// overlap characters shared between consecutive windows. Whitespace-only
// windows are dropped. Deterministic for identical inputs.
func ChunkText(text string, size, overlap int) ([]Span, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap %d must be in [0, %d)", overlap, size)
	}

	runes := []rune(text)
	step := size - overlap
	var spans []Span
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := string(runes[start:end])
		if strings.TrimSpace(chunk) != "" {
			spans = append(spans, Span{Text: chunk, Start: start, End: end})
		}
		if end == len(runes) {
			break
		}
	}
	return spans, nil
}

// Package prompt assembles retrieved chunks into a bounded context and builds
// the versioned generation prompt.
package prompt

import (
	"unicode/utf8"

	"github.com/fitcoach/kotae/internal/models"
	"github.com/fitcoach/kotae/pkg/utils"
)

// excerptLen bounds the citation excerpt returned to API callers.
const excerptLen = 160

// Assemble greedily selects chunks in score order until the next chunk would
// exceed budget (characters). Chunks are never split, with one exception: when
// the single highest-scoring chunk alone exceeds the budget it is truncated to
// fit and the context is flagged as truncated. Citation markers are assigned
// 1..N in inclusion order. Deterministic for identical inputs.
func Assemble(result *models.RetrievalResult, budget int) *models.AssembledContext {
	assembled := &models.AssembledContext{}
	if result.Empty() || budget <= 0 {
		return assembled
	}

	used := 0
	for _, candidate := range result.Chunks {
		text := candidate.Chunk.Text
		if used+len(text) > budget {
			if len(assembled.Chunks) > 0 {
				continue
			}
			// Oversized top chunk: cut to fit rather than answer with nothing.
			text = truncateToBytes(text, budget)
			assembled.Truncated = true
		}
		used += len(text)

		chunk := *candidate.Chunk
		chunk.Text = text
		assembled.Chunks = append(assembled.Chunks, &models.ScoredChunk{Chunk: &chunk, Score: candidate.Score})
		assembled.Citations = append(assembled.Citations, models.Citation{
			Marker:   len(assembled.Chunks),
			ChunkID:  chunk.ID,
			SourceID: chunk.SourceID,
			Excerpt:  utils.Truncate(chunk.Text, excerptLen),
		})
		if assembled.Truncated {
			break
		}
	}
	return assembled
}

// truncateToBytes cuts s to at most n bytes without splitting a rune.
func truncateToBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

package prompt

import (
	"fmt"
	"strings"

	"github.com/fitcoach/kotae/internal/models"
	"github.com/fitcoach/kotae/pkg/utils"
)

// Version identifies the prompt template so prompt changes are reviewable
// and answers can be traced to the template that produced them.
const Version = "coach-v2"

// InsufficientInfoPhrase is what the model is instructed to say when the
// provided knowledge does not cover the question.
const InsufficientInfoPhrase = "That's outside my specific area of expertise."

const (
	maxHistoryTurns   = 3
	maxHistoryTurnLen = 300
)

// SystemPrompt returns the system instruction for the generation model.
func SystemPrompt() string {
	return `You are an expert evidence-based fitness coach. Answer client questions using your training knowledge.

INSTRUCTIONS:
- Speak directly as a coach: "I recommend...", "You should...", "Based on the science..."
- Provide specific, actionable advice with numbers and protocols
- Base ALL answers strictly on the numbered knowledge blocks provided
- Cite every claim with the matching block marker, e.g. [1] or [2]
- Never mention "the course", "materials", "context", or "according to..." - this is YOUR expertise
- If the knowledge blocks do not cover the question, say: "` + InsufficientInfoPhrase + `"
- Be confident but precise`
}

// BuildUserPrompt renders the assembled context, abbreviated history, and the
// client question into the user message. For an empty context (degraded path)
// it explicitly instructs the model to declare insufficient grounding, which
// is a correctness requirement, not a quality nicety.
func BuildUserPrompt(assembled *models.AssembledContext, query string, history []models.Turn) string {
	var sb strings.Builder

	sb.WriteString("## Your training knowledge\n")
	if assembled.Empty() {
		sb.WriteString("(no relevant knowledge was found for this question)\n")
		sb.WriteString("You have no grounded information to answer with. Respond only with: \"")
		sb.WriteString(InsufficientInfoPhrase)
		sb.WriteString("\"\n\n")
	} else {
		for i, c := range assembled.Chunks {
			fmt.Fprintf(&sb, "[%d] (source: %s)\n", i+1, c.Chunk.SourceID)
			sb.WriteString(c.Chunk.Text)
			sb.WriteString("\n\n")
		}
	}

	if len(history) > 0 {
		sb.WriteString("## Conversation so far\n")
		start := len(history) - maxHistoryTurns
		if start < 0 {
			start = 0
		}
		for _, turn := range history[start:] {
			fmt.Fprintf(&sb, "%s: %s\n", turn.Role, utils.Truncate(turn.Text, maxHistoryTurnLen))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Client question\n")
	sb.WriteString(query)
	sb.WriteString("\n")

	return sb.String()
}

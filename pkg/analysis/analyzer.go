// Package analysis turns finalized transcript segments into checklist
// coverage updates and coaching prompts.
package analysis

import (
	"context"
	"strings"

	"github.com/coachline/coachline/pkg/coach"
)

// Finding marks one checklist item as discussed, with the evidence text.
type Finding struct {
	ItemID       string
	DetectedText string
}

// PromptSuggestion proposes a coaching prompt for a still-uncovered item.
type PromptSuggestion struct {
	ItemID      string
	Type        coach.PromptType
	Message     string
	TriggerText string
}

// Result is what one analysis pass produced.
type Result struct {
	Covered []Finding
	Prompts []PromptSuggestion
}

// Analyzer judges checklist coverage from the transcript so far. It may be
// slow and may fail; callers treat failure as zero findings.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string, uncovered []coach.ChecklistItem) (Result, error)
}

// FormatTranscript renders segments as speaker-tagged lines in order.
func FormatTranscript(segs []coach.TranscriptSegment) string {
	var b strings.Builder
	for _, seg := range segs {
		b.WriteString("[")
		b.WriteString(string(seg.Speaker))
		b.WriteString("] ")
		b.WriteString(seg.Text)
		b.WriteString("\n")
	}
	return b.String()
}

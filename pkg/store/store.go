// Package store defines the persistence boundary for transcripts,
// checklist coverage and coaching prompts.
package store

import (
	"context"
	"errors"

	"github.com/coachline/coachline/pkg/coach"
)

var ErrNotFound = errors.New("not found")

// Store is the outbound persistence interface. Implementations must make
// SetCoverageCovered idempotent: re-covering an item is a no-op and never
// produces a second row.
type Store interface {
	CreateTranscriptSegment(ctx context.Context, seg *coach.TranscriptSegment) error
	// GetTranscriptSegments returns segments in finalization order.
	GetTranscriptSegments(ctx context.Context, callID string) ([]coach.TranscriptSegment, error)

	GetChecklistItems(ctx context.Context, activeOnly bool) ([]coach.ChecklistItem, error)
	GetCoverageStatus(ctx context.Context, callID string) ([]coach.CoverageStatus, error)
	SetCoverageCovered(ctx context.Context, callID, itemID, detectedText string) error

	// GetOpenPrompts returns unacknowledged prompts for a call.
	GetOpenPrompts(ctx context.Context, callID string) ([]coach.CoachingPrompt, error)
	CreatePrompt(ctx context.Context, p *coach.CoachingPrompt) error
	AcknowledgePrompt(ctx context.Context, promptID string) error
}

// Package memory is an in-process Store used in tests and local development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coachline/coachline/pkg/coach"
	"github.com/coachline/coachline/pkg/store"
)

type Store struct {
	mu        sync.Mutex
	segments  map[string][]coach.TranscriptSegment // callID -> ordered segments
	items     []coach.ChecklistItem
	coverage  map[string]map[string]coach.CoverageStatus // callID -> itemID -> status
	prompts   map[string][]coach.CoachingPrompt          // callID -> prompts
	promptIDs map[string]string                          // promptID -> callID
}

func New() *Store {
	return &Store{
		segments:  make(map[string][]coach.TranscriptSegment),
		coverage:  make(map[string]map[string]coach.CoverageStatus),
		prompts:   make(map[string][]coach.CoachingPrompt),
		promptIDs: make(map[string]string),
	}
}

// SeedChecklist replaces the checklist items. Test helper; the checklist
// is owned by an external store in production.
func (s *Store) SeedChecklist(items []coach.ChecklistItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]coach.ChecklistItem(nil), items...)
}

func (s *Store) CreateTranscriptSegment(_ context.Context, seg *coach.TranscriptSegment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seg.ID == "" {
		seg.ID = uuid.NewString()
	}
	if seg.CreatedAt.IsZero() {
		seg.CreatedAt = time.Now()
	}
	s.segments[seg.CallID] = append(s.segments[seg.CallID], *seg)
	return nil
}

func (s *Store) GetTranscriptSegments(_ context.Context, callID string) ([]coach.TranscriptSegment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]coach.TranscriptSegment(nil), s.segments[callID]...), nil
}

func (s *Store) GetChecklistItems(_ context.Context, activeOnly bool) ([]coach.ChecklistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]coach.ChecklistItem, 0, len(s.items))
	for _, it := range s.items {
		if activeOnly && !it.Active {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (s *Store) GetCoverageStatus(_ context.Context, callID string) ([]coach.CoverageStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byItem := s.coverage[callID]
	out := make([]coach.CoverageStatus, 0, len(byItem))
	for _, st := range byItem {
		out = append(out, st)
	}
	return out, nil
}

func (s *Store) SetCoverageCovered(_ context.Context, callID, itemID, detectedText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byItem := s.coverage[callID]
	if byItem == nil {
		byItem = make(map[string]coach.CoverageStatus)
		s.coverage[callID] = byItem
	}
	if existing, ok := byItem[itemID]; ok && existing.Covered {
		return nil
	}
	byItem[itemID] = coach.CoverageStatus{
		CallID:       callID,
		ItemID:       itemID,
		Covered:      true,
		DetectedText: detectedText,
		UpdatedAt:    time.Now(),
	}
	return nil
}

func (s *Store) GetOpenPrompts(_ context.Context, callID string) ([]coach.CoachingPrompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []coach.CoachingPrompt
	for _, p := range s.prompts[callID] {
		if !p.Acknowledged {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) CreatePrompt(_ context.Context, p *coach.CoachingPrompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.prompts[p.CallID] = append(s.prompts[p.CallID], *p)
	s.promptIDs[p.ID] = p.CallID
	return nil
}

func (s *Store) AcknowledgePrompt(_ context.Context, promptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	callID, ok := s.promptIDs[promptID]
	if !ok {
		return store.ErrNotFound
	}
	list := s.prompts[callID]
	for i := range list {
		if list[i].ID == promptID {
			list[i].Acknowledged = true
			return nil
		}
	}
	return store.ErrNotFound
}

var _ store.Store = (*Store)(nil)

package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/coachline/coachline/pkg/coach"
	"github.com/coachline/coachline/pkg/store"
)

func TestSegmentsKeepOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, text := range []string{"one", "two", "three"} {
		seg := &coach.TranscriptSegment{CallID: "call-1", Speaker: coach.SpeakerStaff, Text: text}
		if err := s.CreateTranscriptSegment(ctx, seg); err != nil {
			t.Fatalf("create: %v", err)
		}
		if seg.ID == "" {
			t.Fatalf("expected id assigned")
		}
	}
	segs, err := s.GetTranscriptSegments(ctx, "call-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(segs) != 3 || segs[0].Text != "one" || segs[2].Text != "three" {
		t.Fatalf("unexpected segments: %+v", segs)
	}
	other, _ := s.GetTranscriptSegments(ctx, "call-2")
	if len(other) != 0 {
		t.Fatalf("expected no segments for other call")
	}
}

func TestSetCoverageCoveredIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.SetCoverageCovered(ctx, "call-1", "item-1", "first trigger"); err != nil {
		t.Fatalf("cover: %v", err)
	}
	if err := s.SetCoverageCovered(ctx, "call-1", "item-1", "second trigger"); err != nil {
		t.Fatalf("re-cover: %v", err)
	}
	cov, err := s.GetCoverageStatus(ctx, "call-1")
	if err != nil {
		t.Fatalf("get coverage: %v", err)
	}
	if len(cov) != 1 {
		t.Fatalf("expected one status row, got %d", len(cov))
	}
	if !cov[0].Covered || cov[0].DetectedText != "first trigger" {
		t.Fatalf("expected first trigger preserved, got %+v", cov[0])
	}
}

func TestOpenPromptsAndAcknowledge(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := &coach.CoachingPrompt{CallID: "call-1", Type: coach.PromptReminder, Message: "ask about budget", ItemID: "item-1"}
	if err := s.CreatePrompt(ctx, p); err != nil {
		t.Fatalf("create prompt: %v", err)
	}
	open, _ := s.GetOpenPrompts(ctx, "call-1")
	if len(open) != 1 {
		t.Fatalf("expected one open prompt, got %d", len(open))
	}
	if err := s.AcknowledgePrompt(ctx, p.ID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	open, _ = s.GetOpenPrompts(ctx, "call-1")
	if len(open) != 0 {
		t.Fatalf("expected no open prompts after ack, got %d", len(open))
	}
	if err := s.AcknowledgePrompt(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChecklistActiveFilter(t *testing.T) {
	s := New()
	s.SeedChecklist([]coach.ChecklistItem{
		{ID: "a", Question: "Did you confirm the address?", Required: true, Active: true},
		{ID: "b", Question: "Old question", Active: false},
	})
	items, err := s.GetChecklistItems(context.Background(), true)
	if err != nil {
		t.Fatalf("get items: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Fatalf("expected only active item, got %+v", items)
	}
	all, _ := s.GetChecklistItems(context.Background(), false)
	if len(all) != 2 {
		t.Fatalf("expected both items, got %d", len(all))
	}
}

package openai

import (
	"strings"
	"testing"

	"github.com/coachline/coachline/pkg/coach"
)

func TestDecodeResult(t *testing.T) {
	content := `{"covered":[{"item_id":"item-1","detected_text":"we can come Tuesday"}],` +
		`"prompts":[{"item_id":"item-2","type":"reminder","message":"Ask about the budget","trigger_text":""}]}`
	res, err := decodeResult(content)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(res.Covered) != 1 || res.Covered[0].ItemID != "item-1" {
		t.Fatalf("unexpected covered: %+v", res.Covered)
	}
	if len(res.Prompts) != 1 || res.Prompts[0].Type != coach.PromptReminder {
		t.Fatalf("unexpected prompts: %+v", res.Prompts)
	}
}

func TestDecodeResultCodeFences(t *testing.T) {
	content := "```json\n{\"covered\":[],\"prompts\":[]}\n```"
	res, err := decodeResult(content)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(res.Covered) != 0 || len(res.Prompts) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestDecodeResultDropsBlankEntries(t *testing.T) {
	content := `{"covered":[{"item_id":"","detected_text":"x"}],` +
		`"prompts":[{"item_id":"item-1","type":"suggestion","message":"  "}]}`
	res, err := decodeResult(content)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(res.Covered) != 0 || len(res.Prompts) != 0 {
		t.Fatalf("expected blank entries dropped, got %+v", res)
	}
}

func TestDecodeResultMalformed(t *testing.T) {
	if _, err := decodeResult("not json at all"); err == nil {
		t.Fatalf("expected error for malformed response")
	}
}

func TestBuildPromptListsItems(t *testing.T) {
	_, user := buildPrompt("[staff] hello\n", []coach.ChecklistItem{
		{ID: "item-1", Question: "Did you confirm the install date?", Required: true, TriggerKeywords: []string{"date", "schedule"}},
	})
	for _, want := range []string{"item-1", "Did you confirm the install date?", "required: true", "date, schedule", "[staff] hello"} {
		if !strings.Contains(user, want) {
			t.Fatalf("expected prompt to contain %q, got:\n%s", want, user)
		}
	}
}

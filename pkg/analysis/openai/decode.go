package openai

import (
	"encoding/json"
	"strings"

	"github.com/coachline/coachline/pkg/analysis"
	"github.com/coachline/coachline/pkg/coach"
	"github.com/coachline/coachline/pkg/errorsx"
)

type wireResult struct {
	Covered []struct {
		ItemID       string `json:"item_id"`
		DetectedText string `json:"detected_text"`
	} `json:"covered"`
	Prompts []struct {
		ItemID      string `json:"item_id"`
		Type        string `json:"type"`
		Message     string `json:"message"`
		TriggerText string `json:"trigger_text"`
	} `json:"prompts"`
}

// decodeResult parses a model response into an analysis result. Markdown
// code fences around the JSON body are tolerated.
func decodeResult(content string) (analysis.Result, error) {
	content = stripFences(content)
	var wire wireResult
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return analysis.Result{}, errorsx.Wrap(err, errorsx.ReasonAnalysisDecode)
	}
	var res analysis.Result
	for _, c := range wire.Covered {
		if c.ItemID == "" {
			continue
		}
		res.Covered = append(res.Covered, analysis.Finding{
			ItemID:       c.ItemID,
			DetectedText: c.DetectedText,
		})
	}
	for _, p := range wire.Prompts {
		if strings.TrimSpace(p.Message) == "" {
			continue
		}
		res.Prompts = append(res.Prompts, analysis.PromptSuggestion{
			ItemID:      p.ItemID,
			Type:        coach.PromptType(p.Type),
			Message:     p.Message,
			TriggerText: p.TriggerText,
		})
	}
	return res, nil
}

func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}

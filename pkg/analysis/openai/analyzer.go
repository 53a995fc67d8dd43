// Package openai implements the checklist analyzer over OpenAI chat
// completions with a JSON-object response format.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/coachline/coachline/pkg/analysis"
	"github.com/coachline/coachline/pkg/coach"
	"github.com/coachline/coachline/pkg/errorsx"
	"github.com/coachline/coachline/pkg/logging"
)

type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = openai.GPT4oMini
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.2
	}
	return c
}

type Analyzer struct {
	cfg    Config
	client *openai.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Analyzer {
	cfg = cfg.withDefaults()
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Analyzer{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: logging.NewComponentLogger(logger, "openai_analyzer"),
	}
}

func (a *Analyzer) Analyze(ctx context.Context, transcript string, uncovered []coach.ChecklistItem) (analysis.Result, error) {
	systemPrompt, userPrompt := buildPrompt(transcript, uncovered)

	req := openai.ChatCompletionRequest{
		Model: a.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: a.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return analysis.Result{}, errorsx.Wrap(err, errorsx.ReasonAnalysisRun)
	}
	if len(resp.Choices) == 0 {
		return analysis.Result{}, errorsx.Wrap(fmt.Errorf("no choices returned"), errorsx.ReasonAnalysisRun)
	}
	a.logger.Debug("completion_received",
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens))

	return decodeResult(resp.Choices[0].Message.Content)
}

func buildPrompt(transcript string, uncovered []coach.ChecklistItem) (string, string) {
	var items strings.Builder
	for _, it := range uncovered {
		items.WriteString("- id: ")
		items.WriteString(it.ID)
		items.WriteString("\n  question: ")
		items.WriteString(it.Question)
		if it.Required {
			items.WriteString("\n  required: true")
		}
		if len(it.TriggerKeywords) > 0 {
			items.WriteString("\n  keywords: ")
			items.WriteString(strings.Join(it.TriggerKeywords, ", "))
		}
		if it.SuggestedResponse != "" {
			items.WriteString("\n  suggested_response: ")
			items.WriteString(it.SuggestedResponse)
		}
		items.WriteString("\n")
	}

	system := `You review live sales-call transcripts against a checklist. ` +
		`Decide which uncovered checklist items have now been discussed, quoting the transcript text that shows it, ` +
		`and suggest short coaching prompts for items still not discussed, prioritizing required items. ` +
		`Respond with a JSON object: ` +
		`{"covered":[{"item_id":"...","detected_text":"..."}],` +
		`"prompts":[{"item_id":"...","type":"reminder|suggestion|alert","message":"...","trigger_text":"..."}]}. ` +
		`Only reference item ids from the provided list. Use empty arrays when there is nothing to report.`

	user := "Uncovered checklist items:\n" + items.String() + "\nTranscript so far:\n" + transcript
	return system, user
}

var _ analysis.Analyzer = (*Analyzer)(nil)

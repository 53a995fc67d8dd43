package analysis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coachline/coachline/pkg/coach"
	"github.com/coachline/coachline/pkg/errorsx"
	"github.com/coachline/coachline/pkg/logging"
	"github.com/coachline/coachline/pkg/metrics"
	"github.com/coachline/coachline/pkg/store"
)

// Config controls the debounce windows of a Runner.
type Config struct {
	// Quiet is the silence window; analysis runs once no final segment
	// has arrived for this long.
	Quiet time.Duration
	// Guard shrinks the quiet re-check at fire time, absorbing the race
	// between a firing timer and a rearm in flight.
	Guard time.Duration
	// Timeout bounds one analyzer call.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Quiet <= 0 {
		c.Quiet = 3 * time.Second
	}
	if c.Guard <= 0 || c.Guard >= c.Quiet {
		c.Guard = c.Quiet / 6
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return c
}

// Runner debounces analysis for one call. Each finalized segment rearms
// the quiet-window timer; when the stream goes quiet, one pass runs over
// the full transcript. Failures never propagate to the caller.
type Runner struct {
	callID   string
	store    store.Store
	analyzer Analyzer
	cfg      Config
	logger   *slog.Logger

	mu        sync.Mutex
	timer     *time.Timer
	lastFinal time.Time
	closed    bool

	// runMu serializes analysis passes so a timer fire and a close-time
	// flush never interleave their apply steps.
	runMu sync.Mutex
}

func NewRunner(callID string, st store.Store, analyzer Analyzer, cfg Config, logger *slog.Logger) *Runner {
	return &Runner{
		callID:   callID,
		store:    st,
		analyzer: analyzer,
		cfg:      cfg.withDefaults(),
		logger: logging.NewComponentLogger(logger, "coach_runner").With(
			slog.String("call_id", callID)),
	}
}

// SegmentFinalized records a new final segment and rearms the quiet timer.
func (r *Runner) SegmentFinalized() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.lastFinal = time.Now()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.cfg.Quiet, r.fire)
}

func (r *Runner) fire() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	// Re-validate quiet at fire time, not at schedule time: a newer
	// segment inside the window has rearmed its own timer.
	if time.Since(r.lastFinal) < r.cfg.Quiet-r.cfg.Guard {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.runOnce(context.Background())
}

// Flush cancels any pending timer and runs one unconditional pass.
func (r *Runner) Flush(ctx context.Context) {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()
	r.runOnce(ctx)
}

// Close stops the runner and runs one last pass to catch content spoken
// just before hangup. Safe to call more than once.
func (r *Runner) Close(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()
	r.runOnce(ctx)
}

func (r *Runner) runOnce(ctx context.Context) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	items, err := r.store.GetChecklistItems(ctx, true)
	if err != nil {
		r.logger.Warn("checklist_load_failed",
			slog.String("error", err.Error()),
			slog.String("reason_code", string(errorsx.ReasonStoreRead)))
		return
	}
	coverage, err := r.store.GetCoverageStatus(ctx, r.callID)
	if err != nil {
		r.logger.Warn("coverage_load_failed",
			slog.String("error", err.Error()),
			slog.String("reason_code", string(errorsx.ReasonStoreRead)))
		return
	}
	covered := make(map[string]bool, len(coverage))
	for _, st := range coverage {
		if st.Covered {
			covered[st.ItemID] = true
		}
	}
	uncovered := uncoveredItems(items, covered)
	if len(uncovered) == 0 {
		return
	}

	segs, err := r.store.GetTranscriptSegments(ctx, r.callID)
	if err != nil {
		r.logger.Warn("transcript_load_failed",
			slog.String("error", err.Error()),
			slog.String("reason_code", string(errorsx.ReasonStoreRead)))
		return
	}
	if len(segs) == 0 {
		return
	}

	actx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	metrics.AnalysisRuns.Inc()
	res, err := r.analyzer.Analyze(actx, FormatTranscript(segs), uncovered)
	if err != nil {
		// Treated as zero findings; the next debounce cycle retries
		// with a fuller transcript.
		metrics.AnalysisFailures.Inc()
		r.logger.Warn("analysis_failed",
			slog.String("error", err.Error()),
			slog.String("reason_code", string(errorsx.ReasonAnalysisRun)))
		return
	}
	r.apply(ctx, res, uncovered)
}

func (r *Runner) apply(ctx context.Context, res Result, uncovered []coach.ChecklistItem) {
	valid := make(map[string]bool, len(uncovered))
	for _, it := range uncovered {
		valid[it.ID] = true
	}

	justCovered := make(map[string]bool, len(res.Covered))
	for _, f := range res.Covered {
		if !valid[f.ItemID] {
			continue
		}
		if err := r.store.SetCoverageCovered(ctx, r.callID, f.ItemID, f.DetectedText); err != nil {
			r.logger.Error("coverage_write_failed",
				slog.String("item_id", f.ItemID),
				slog.String("error", err.Error()),
				slog.String("reason_code", string(errorsx.ReasonStoreWrite)))
			continue
		}
		justCovered[f.ItemID] = true
		r.logger.Info("checklist_item_covered",
			slog.String("item_id", f.ItemID),
			slog.String("detected_text", f.DetectedText))
	}

	if len(res.Prompts) == 0 {
		return
	}
	open, err := r.store.GetOpenPrompts(ctx, r.callID)
	if err != nil {
		// Without the open set the dedup invariant cannot be checked;
		// skip prompt creation this round.
		r.logger.Warn("open_prompts_load_failed",
			slog.String("error", err.Error()),
			slog.String("reason_code", string(errorsx.ReasonStoreRead)))
		return
	}
	openByItem := make(map[string]bool, len(open))
	for _, p := range open {
		if p.ItemID != "" {
			openByItem[p.ItemID] = true
		}
	}
	for _, sug := range res.Prompts {
		if sug.ItemID != "" {
			if openByItem[sug.ItemID] || justCovered[sug.ItemID] || !valid[sug.ItemID] {
				continue
			}
		}
		ptype := sug.Type
		if !coach.ValidPromptType(ptype) {
			ptype = coach.PromptSuggestion
		}
		prompt := &coach.CoachingPrompt{
			CallID:      r.callID,
			Type:        ptype,
			Message:     sug.Message,
			ItemID:      sug.ItemID,
			TriggerText: sug.TriggerText,
		}
		if err := r.store.CreatePrompt(ctx, prompt); err != nil {
			r.logger.Error("prompt_write_failed",
				slog.String("item_id", sug.ItemID),
				slog.String("error", err.Error()),
				slog.String("reason_code", string(errorsx.ReasonStoreWrite)))
			continue
		}
		if sug.ItemID != "" {
			openByItem[sug.ItemID] = true
		}
		metrics.PromptsCreated.Inc()
		r.logger.Info("prompt_created",
			slog.String("prompt_id", prompt.ID),
			slog.String("item_id", sug.ItemID),
			slog.String("type", string(ptype)))
	}
}

// uncoveredItems filters covered items out, required items first.
func uncoveredItems(items []coach.ChecklistItem, covered map[string]bool) []coach.ChecklistItem {
	var required, optional []coach.ChecklistItem
	for _, it := range items {
		if covered[it.ID] {
			continue
		}
		if it.Required {
			required = append(required, it)
		} else {
			optional = append(optional, it)
		}
	}
	return append(required, optional...)
}

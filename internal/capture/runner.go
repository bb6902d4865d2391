package capture

import (
	"context"
	"time"

	"engram/internal/action"
	"engram/internal/logging"
	"engram/internal/pipeline"
)

// Runner drains one Source on a fixed poll interval, feeding every capture
// through the ingestion pipeline and, for captures that end up stored, the
// intent detector and action engine. This is the top-level wiring for the
// "Data flow for ingestion" and "Data flow for action" paths starting from
// a capture source, kept out of internal/pipeline itself since that
// package only implements the ingest algorithm for a single capture, not
// the loop that feeds it one.
type Runner struct {
	source   Source
	pipeline *pipeline.Pipeline
	detector Detector
	engine   TaskCreator
	interval time.Duration
}

// NewRunner builds a Runner. detector and engine may be nil to disable
// action-engine wiring (useful for sources that never carry actionable
// text, or in tests focused on ingestion alone).
func NewRunner(source Source, p *pipeline.Pipeline, detector Detector, engine TaskCreator, interval time.Duration) *Runner {
	return &Runner{source: source, pipeline: p, detector: detector, engine: engine, interval: interval}
}

// Run polls the source until ctx is cancelled, ingesting and, for stored
// captures, detecting and acting on intents.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	next, err := r.source.Next(ctx)
	if err != nil {
		logging.PipelineDebug("capture: source error: %v", err)
		return
	}

	outcome, err := r.pipeline.Ingest(ctx, next)
	if err != nil {
		logging.PipelineDebug("capture: ingest error: %v", err)
		return
	}
	if outcome.Kind != pipeline.OutcomeStored && outcome.Kind != pipeline.OutcomeRedacted {
		return
	}

	r.detectAndAct(ctx, next.Text, outcome.CaptureID)
}

func (r *Runner) detectAndAct(ctx context.Context, text, captureID string) {
	if r.detector == nil || r.engine == nil {
		return
	}
	intents := r.detector.Detect(text, captureID)
	for _, in := range intents {
		actionType, ok := action.ActionTypeForIntent(in.Type)
		if !ok {
			continue
		}
		r.engine.CreateTask(ctx, in.ActionPhrase, actionType, "{}", in.ID, in.SourceCaptureID, in.ExtractedTime)
	}
}

// Package capture defines the boundary between the three observation
// collaborators (screen, audio, dictation) and the ingestion pipeline. Real
// OCR/VAD/transcription backends are external per the capture contract; this
// package only defines the shape each source produces and a runner that
// drains a source into the pipeline and action engine on its own cadence.
package capture

import (
	"context"
	"time"

	"engram/internal/types"
)

// Source produces one capture at a time, blocking until the next one is
// ready or ctx is cancelled.
type Source interface {
	Next(ctx context.Context) (types.Capture, error)
}

// Detector is the surface a Runner drives a stored capture's text into for
// intent detection. Satisfied by *intent.Detector.
type Detector interface {
	Detect(text, sourceCaptureID string) []types.Intent
}

// TaskCreator is the surface a Runner uses to act on a detected intent.
// Satisfied by *action.Engine.
type TaskCreator interface {
	CreateTask(ctx context.Context, title string, actionType types.ActionType, payload, intentID, sourceCaptureID string, scheduledAt *time.Time) *types.Task
}

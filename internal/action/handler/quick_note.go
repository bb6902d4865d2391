package handler

import (
	"context"
	"fmt"

	"engram/internal/logging"
	"engram/internal/types"
)

// QuickNoteHandler records a short note extracted from an intent. Actually
// persisting the note as a capture is left to the caller (the orchestrator
// doesn't own the capture store); this handler validates and logs it.
type QuickNoteHandler struct{}

func (QuickNoteHandler) ActionType() types.ActionType   { return types.ActionQuickNote }
func (QuickNoteHandler) SafetyLevel() types.SafetyLevel { return types.SafetyPassive }

func (QuickNoteHandler) Execute(ctx context.Context, payload Payload) (Result, error) {
	text := payload.str("text")
	if text == "" {
		return Result{}, errInvalidPayload("quick_note.Execute", "text must not be empty")
	}

	logging.Action("quick note: %s", text)
	return Result{Success: true, Message: "Saved quick note"}, nil
}

func (QuickNoteHandler) Describe(payload Payload) string {
	text := payload.str("text")
	if len(text) > 40 {
		text = text[:40] + "..."
	}
	return fmt.Sprintf("Save quick note: %s", text)
}

package handler

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"

	"engram/internal/types"
)

// ClipboardHandler copies text to the system clipboard.
type ClipboardHandler struct{}

func (ClipboardHandler) ActionType() types.ActionType   { return types.ActionClipboard }
func (ClipboardHandler) SafetyLevel() types.SafetyLevel { return types.SafetyPassive }

func (ClipboardHandler) Execute(ctx context.Context, payload Payload) (Result, error) {
	text := payload.str("text")
	if text == "" {
		return Result{}, errInvalidPayload("clipboard.Execute", "text must not be empty")
	}

	if err := clipboard.WriteAll(text); err != nil {
		return Result{}, fmt.Errorf("clipboard write failed: %w", err)
	}

	return Result{Success: true, Message: "Copied to clipboard"}, nil
}

func (ClipboardHandler) Describe(payload Payload) string {
	text := payload.str("text")
	if len(text) > 40 {
		text = text[:40] + "..."
	}
	return fmt.Sprintf("Copy to clipboard: %s", text)
}

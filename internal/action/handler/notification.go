package handler

import (
	"context"
	"fmt"

	"engram/internal/logging"
	"engram/internal/types"
)

// NotificationHandler emits a structured notification event. Rendering it
// on the desktop is an external collaborator, out of scope here.
type NotificationHandler struct{}

func (NotificationHandler) ActionType() types.ActionType   { return types.ActionNotification }
func (NotificationHandler) SafetyLevel() types.SafetyLevel { return types.SafetyPassive }

func (NotificationHandler) Execute(ctx context.Context, payload Payload) (Result, error) {
	title := payload.str("title")
	body := payload.str("body")
	if title == "" {
		return Result{}, errInvalidPayload("notification.Execute", "title must not be empty")
	}

	logging.Action("notification: %s - %s", title, body)
	return Result{Success: true, Message: fmt.Sprintf("Notified: %s", title)}, nil
}

func (NotificationHandler) Describe(payload Payload) string {
	title := payload.str("title")
	if title == "" {
		title = "<no title>"
	}
	return fmt.Sprintf("Show notification: %s", title)
}

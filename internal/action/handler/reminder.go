package handler

import (
	"context"
	"fmt"

	"engram/internal/logging"
	"engram/internal/types"
)

// ReminderHandler surfaces a scheduled reminder. Delivery to the desktop
// notification layer is an external collaborator; this handler validates
// the payload and records that the reminder fired.
type ReminderHandler struct{}

func (ReminderHandler) ActionType() types.ActionType     { return types.ActionReminder }
func (ReminderHandler) SafetyLevel() types.SafetyLevel   { return types.SafetyPassive }

func (ReminderHandler) Execute(ctx context.Context, payload Payload) (Result, error) {
	message := payload.str("message")
	if message == "" {
		return Result{}, errInvalidPayload("reminder.Execute", "message must not be empty")
	}

	logging.Action("reminder fired: %s", message)
	return Result{Success: true, Message: fmt.Sprintf("Reminder: %s", message)}, nil
}

func (ReminderHandler) Describe(payload Payload) string {
	message := payload.str("message")
	if message == "" {
		message = "<no message>"
	}
	return fmt.Sprintf("Remind: %s", message)
}

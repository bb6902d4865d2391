package handler

import (
	"context"
	"testing"

	"engram/internal/errs"
)

func TestReminderExecuteAndDescribe(t *testing.T) {
	payload := Payload{Data: map[string]interface{}{"message": "stand up"}}
	result, err := ReminderHandler{}.Execute(context.Background(), payload)
	if err != nil || !result.Success {
		t.Fatalf("unexpected result: %+v, err=%v", result, err)
	}
	if desc := ReminderHandler{}.Describe(payload); desc != "Remind: stand up" {
		t.Fatalf("unexpected description: %s", desc)
	}
}

func TestReminderRejectsEmptyMessage(t *testing.T) {
	_, err := ReminderHandler{}.Execute(context.Background(), Payload{Data: map[string]interface{}{}})
	if !errs.Is(err, errs.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestNotificationExecuteRequiresTitle(t *testing.T) {
	_, err := NotificationHandler{}.Execute(context.Background(), Payload{Data: map[string]interface{}{"body": "x"}})
	if !errs.Is(err, errs.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	payload := Payload{Data: map[string]interface{}{"title": "Reminder", "body": "Time's up"}}
	result, err := NotificationHandler{}.Execute(context.Background(), payload)
	if err != nil || !result.Success {
		t.Fatalf("unexpected result: %+v, err=%v", result, err)
	}
}

func TestQuickNoteExecuteAndDescribe(t *testing.T) {
	payload := Payload{Data: map[string]interface{}{"text": "buy milk"}}
	result, err := QuickNoteHandler{}.Execute(context.Background(), payload)
	if err != nil || !result.Success {
		t.Fatalf("unexpected result: %+v, err=%v", result, err)
	}
	if desc := QuickNoteHandler{}.Describe(payload); desc != "Save quick note: buy milk" {
		t.Fatalf("unexpected description: %s", desc)
	}
}

func TestQuickNoteRejectsEmptyText(t *testing.T) {
	_, err := QuickNoteHandler{}.Execute(context.Background(), Payload{Data: map[string]interface{}{}})
	if !errs.Is(err, errs.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

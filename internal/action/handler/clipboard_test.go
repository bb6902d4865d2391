package handler

import (
	"context"
	"testing"

	"engram/internal/errs"
)

func TestClipboardDescribe(t *testing.T) {
	payload := Payload{Data: map[string]interface{}{"text": "short"}}
	if desc := ClipboardHandler{}.Describe(payload); desc != "Copy to clipboard: short" {
		t.Fatalf("unexpected description: %s", desc)
	}
}

func TestClipboardRejectsEmptyText(t *testing.T) {
	_, err := ClipboardHandler{}.Execute(context.Background(), Payload{Data: map[string]interface{}{}})
	if !errs.Is(err, errs.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

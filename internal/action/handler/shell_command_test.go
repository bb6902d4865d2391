package handler

import (
	"context"
	"testing"

	"engram/internal/errs"
	"engram/internal/types"
)

func TestShellCommandActionTypeAndSafety(t *testing.T) {
	h := NewShellCommandHandler([]string{"echo"})
	if h.ActionType() != types.ActionShellCommand {
		t.Fatal("unexpected action type")
	}
	if h.SafetyLevel() != types.SafetyActive {
		t.Fatal("shell command must always be Active")
	}
}

func TestShellCommandRunsAllowedBinary(t *testing.T) {
	h := NewShellCommandHandler([]string{"echo"})
	payload := Payload{Data: map[string]interface{}{"command": "echo hello"}}

	result, err := h.Execute(context.Background(), payload)
	if err != nil || !result.Success {
		t.Fatalf("expected success, got %+v, err=%v", result, err)
	}
}

func TestShellCommandRejectsDisallowedBinary(t *testing.T) {
	h := NewShellCommandHandler([]string{"echo"})
	payload := Payload{Data: map[string]interface{}{"command": "rm -rf /"}}

	_, err := h.Execute(context.Background(), payload)
	if !errs.Is(err, errs.KindInvalidInput) {
		t.Fatalf("expected invalid input for disallowed binary, got %v", err)
	}
}

func TestShellCommandEmptyCommand(t *testing.T) {
	h := NewShellCommandHandler([]string{"echo"})
	_, err := h.Execute(context.Background(), Payload{Data: map[string]interface{}{}})
	if !errs.Is(err, errs.KindInvalidInput) {
		t.Fatalf("expected invalid input for empty command, got %v", err)
	}
}

func TestShellCommandDescribe(t *testing.T) {
	h := NewShellCommandHandler(nil)
	desc := h.Describe(Payload{Data: map[string]interface{}{"command": "echo hi"}})
	if desc != "Run shell command: echo hi" {
		t.Fatalf("unexpected description: %s", desc)
	}
}

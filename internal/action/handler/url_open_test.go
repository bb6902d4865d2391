package handler

import (
	"context"
	"testing"

	"engram/internal/errs"
	"engram/internal/types"
)

func payloadWithURL(url string) Payload {
	return Payload{Data: map[string]interface{}{"url": url}}
}

func TestURLOpenHTTPS(t *testing.T) {
	result, err := URLOpenHandler{}.Execute(context.Background(), payloadWithURL("https://example.com"))
	if err != nil || !result.Success || result.Message != "Opened URL: https://example.com" {
		t.Fatalf("unexpected result: %+v, err=%v", result, err)
	}
}

func TestURLOpenHTTP(t *testing.T) {
	result, err := URLOpenHandler{}.Execute(context.Background(), payloadWithURL("http://example.com/path?q=1"))
	if err != nil || !result.Success {
		t.Fatalf("unexpected result: %+v, err=%v", result, err)
	}
}

func TestURLOpenRejectsJavascript(t *testing.T) {
	_, err := URLOpenHandler{}.Execute(context.Background(), payloadWithURL("javascript:alert(1)"))
	if !errs.Is(err, errs.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestURLOpenRejectsFile(t *testing.T) {
	_, err := URLOpenHandler{}.Execute(context.Background(), payloadWithURL("file:///etc/passwd"))
	if !errs.Is(err, errs.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestURLOpenRejectsData(t *testing.T) {
	_, err := URLOpenHandler{}.Execute(context.Background(), payloadWithURL("data:text/html,<h1>hi</h1>"))
	if !errs.Is(err, errs.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestURLOpenRejectsFTP(t *testing.T) {
	_, err := URLOpenHandler{}.Execute(context.Background(), payloadWithURL("ftp://files.example.com"))
	if !errs.Is(err, errs.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestURLOpenEmptyURL(t *testing.T) {
	_, err := URLOpenHandler{}.Execute(context.Background(), payloadWithURL(""))
	if !errs.Is(err, errs.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestURLOpenMissingURL(t *testing.T) {
	_, err := URLOpenHandler{}.Execute(context.Background(), Payload{Data: map[string]interface{}{}})
	if !errs.Is(err, errs.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestURLOpenActionType(t *testing.T) {
	if URLOpenHandler{}.ActionType() != types.ActionURLOpen {
		t.Fatal("unexpected action type")
	}
}

func TestURLOpenSafetyLevel(t *testing.T) {
	if URLOpenHandler{}.SafetyLevel() != types.SafetyPassive {
		t.Fatal("unexpected safety level")
	}
}

func TestURLOpenDescribe(t *testing.T) {
	desc := URLOpenHandler{}.Describe(payloadWithURL("https://example.com"))
	if desc != "Open URL: https://example.com" {
		t.Fatalf("unexpected description: %s", desc)
	}
}

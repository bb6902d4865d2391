package intent

import (
	"strings"
	"testing"

	"engram/internal/types"
)

func find(matches []Match, t types.IntentType) (Match, bool) {
	for _, m := range matches {
		if m.IntentType == t {
			return m, true
		}
	}
	return Match{}, false
}

func TestRemindMeTo(t *testing.T) {
	matches := detect("remind me to call Bob at 3pm")
	m, ok := find(matches, types.IntentReminder)
	if !ok || m.Confidence < 0.85 {
		t.Fatalf("expected reminder match >=0.85, got %+v", m)
	}
	if !strings.Contains(m.ExtractedAction, "call Bob") {
		t.Fatalf("expected action to contain 'call Bob', got %q", m.ExtractedAction)
	}
}

func TestDontForgetTo(t *testing.T) {
	m, ok := find(detect("don't forget to pick up groceries"), types.IntentReminder)
	if !ok || m.Confidence < 0.90 {
		t.Fatalf("expected reminder >=0.90, got %+v", m)
	}
}

func TestPastTenseRememberedDoesNotMatch(t *testing.T) {
	_, ok := find(detect("I remembered when we had that meeting"), types.IntentReminder)
	if ok {
		t.Fatal("past tense 'remembered' should not match")
	}
}

func TestPastTenseRemindedDoesNotMatch(t *testing.T) {
	_, ok := find(detect("I was reminded about the deadline last week"), types.IntentReminder)
	if ok {
		t.Fatal("past tense 'reminded' should not match")
	}
}

func TestReminderCaseInsensitive(t *testing.T) {
	m, ok := find(detect("REMIND ME TO buy milk"), types.IntentReminder)
	if !ok || m.Confidence < 0.85 {
		t.Fatalf("expected case-insensitive match, got %+v", m)
	}
}

func TestTodoMarker(t *testing.T) {
	m, ok := find(detect("TODO: fix the login bug"), types.IntentTask)
	if !ok || m.Confidence < 0.90 {
		t.Fatalf("expected task >=0.90, got %+v", m)
	}
	if !strings.Contains(m.ExtractedAction, "fix the login bug") {
		t.Fatalf("unexpected action: %q", m.ExtractedAction)
	}
}

func TestNeedToWithVerb(t *testing.T) {
	m, ok := find(detect("need to fix the deployment script"), types.IntentTask)
	if !ok || m.Confidence < 0.60 {
		t.Fatalf("expected task >=0.60, got %+v", m)
	}
}

func TestWhatIsQuestion(t *testing.T) {
	m, ok := find(detect("what is the capital of France?"), types.IntentQuestion)
	if !ok || m.Confidence < 0.85 {
		t.Fatalf("expected question >=0.85, got %+v", m)
	}
}

func TestNoteToSelf(t *testing.T) {
	m, ok := find(detect("note to self: buy more coffee"), types.IntentNote)
	if !ok || m.Confidence < 0.85 {
		t.Fatalf("expected note >=0.85, got %+v", m)
	}
	if !strings.Contains(m.ExtractedAction, "buy more coffee") {
		t.Fatalf("unexpected action: %q", m.ExtractedAction)
	}
}

func TestHashtagNote(t *testing.T) {
	m, ok := find(detect("The project uses #rust for speed"), types.IntentNote)
	if !ok || m.Confidence < 0.65 {
		t.Fatalf("expected note >=0.65, got %+v", m)
	}
}

func TestOpenURL(t *testing.T) {
	m, ok := find(detect("open https://example.com/dashboard"), types.IntentURLAction)
	if !ok || m.Confidence < 0.80 {
		t.Fatalf("expected url action >=0.80, got %+v", m)
	}
	if !strings.Contains(m.ExtractedAction, "https://example.com") {
		t.Fatalf("unexpected action: %q", m.ExtractedAction)
	}
}

func TestBareURL(t *testing.T) {
	m, ok := find(detect("Check this: https://example.com"), types.IntentURLAction)
	if !ok || m.Confidence < 0.60 || m.Confidence > 0.70 {
		t.Fatalf("expected bare url in [0.60,0.70], got %+v", m)
	}
}

func TestRunCommandCapped(t *testing.T) {
	m, ok := find(detect("run command npm install"), types.IntentCommand)
	if !ok || m.Confidence > 0.70 {
		t.Fatalf("expected command confidence capped at 0.70, got %+v", m)
	}
}

func TestCommandQuoted(t *testing.T) {
	m, ok := find(detect("run `docker compose up`"), types.IntentCommand)
	if !ok || m.Confidence > 0.70 {
		t.Fatalf("expected capped command confidence, got %+v", m)
	}
	if !strings.Contains(m.ExtractedAction, "docker compose up") {
		t.Fatalf("unexpected action: %q", m.ExtractedAction)
	}
}

func TestEmptyTextNoMatches(t *testing.T) {
	if matches := detect(""); len(matches) != 0 {
		t.Fatalf("expected no matches for empty text, got %d", len(matches))
	}
}

func TestResultsSortedByConfidence(t *testing.T) {
	matches := detect("remind me to check out https://example.com")
	if len(matches) < 2 {
		t.Fatalf("expected at least 2 matches, got %d", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		if matches[i-1].Confidence < matches[i].Confidence {
			t.Fatalf("matches not sorted descending at index %d: %+v", i, matches)
		}
	}
}

func TestMultipleIntentTypesDetected(t *testing.T) {
	matches := detect("TODO: visit https://example.com/docs")
	_, hasTask := find(matches, types.IntentTask)
	_, hasURL := find(matches, types.IntentURLAction)
	if !hasTask || !hasURL {
		t.Fatalf("expected both task and url_action, got %+v", matches)
	}
}


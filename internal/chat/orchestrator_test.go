package chat

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"engram/internal/action"
	"engram/internal/action/confirmation"
	"engram/internal/action/handler"
	"engram/internal/action/orchestrator"
	"engram/internal/action/task"
	"engram/internal/clock"
	"engram/internal/config"
	"engram/internal/embedding"
	"engram/internal/events"
	"engram/internal/search"
	"engram/internal/store"
	"engram/internal/types"
)

type stubDetector struct {
	intents []types.Intent
}

func (d stubDetector) Detect(text, sourceCaptureID string) []types.Intent { return d.intents }

func newTestOrchestrator(t *testing.T, intents []types.Intent) (*Orchestrator, *store.LocalStore, *task.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "engram.db")
	localStore, err := store.NewLocalStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { localStore.Close() })
	localStore.SetEmbeddingEngine(embedding.NewLocalEngine(32))

	sessions := NewSessionStore(10, localStore, clock.Real{})
	searcher := search.New(localStore, 0.6)
	taskStore := task.New(localStore, clock.Real{})
	confirmGate := confirmation.New(clock.Real{})
	bus := events.NewBus()

	registry := handler.NewRegistry()
	registry.RegisterDefaults(nil)
	actionCfg := config.DefaultConfig().Action
	orch2 := orchestrator.New(registry, taskStore, actionCfg)
	engine := action.New(taskStore, registry, orch2, confirmGate, nil, bus)

	orch := New(sessions, searcher, stubDetector{intents: intents}, engine, bus, 20)
	return orch, localStore, taskStore
}

func TestHandleCreatesNewSessionWhenNoneGiven(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)
	reply, sessionID, err := orch.Handle(context.Background(), "", "hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessionID == "" || reply == "" {
		t.Fatalf("expected session id and reply, got %q %q", sessionID, reply)
	}
}

func TestHandleReusesGivenSession(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, nil)
	_, sessionID, err := orch.Handle(context.Background(), "", "first message")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, secondID, err := orch.Handle(context.Background(), sessionID, "second message")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secondID != sessionID {
		t.Fatalf("expected same session id, got %s vs %s", sessionID, secondID)
	}

	sess, ok := orch.sessions.Get(sessionID)
	if !ok || sess.MessageCount != 2 {
		t.Fatalf("expected 2 recorded turns, got %+v", sess)
	}
}

func TestHandleCreatesTaskForReminderIntent(t *testing.T) {
	when := time.Now().Add(time.Hour)
	intents := []types.Intent{{
		ID:            "intent-1",
		Type:          types.IntentReminder,
		ActionPhrase:  "call the dentist",
		ExtractedTime: &when,
	}}
	orch, _, taskStore := newTestOrchestrator(t, intents)

	reply, _, err := orch.Handle(context.Background(), "", "remind me to call the dentist at 3pm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply == "" {
		t.Fatal("expected non-empty reply")
	}

	tasks := taskStore.List(nil, nil, 0)
	if len(tasks) != 1 || tasks[0].ActionType != types.ActionReminder {
		t.Fatalf("expected one reminder task, got %+v", tasks)
	}
}

func TestHandleSkipsTaskForQuestionIntent(t *testing.T) {
	intents := []types.Intent{{ID: "intent-1", Type: types.IntentQuestion, ActionPhrase: "what time is it"}}
	orch, _, taskStore := newTestOrchestrator(t, intents)

	_, _, err := orch.Handle(context.Background(), "", "what time is it?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(taskStore.List(nil, nil, 0)) != 0 {
		t.Fatal("expected no task created for a question intent")
	}
}

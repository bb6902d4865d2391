package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"engram/internal/action"
	"engram/internal/action/confirmation"
	"engram/internal/action/handler"
	"engram/internal/action/orchestrator"
	"engram/internal/action/task"
	"engram/internal/chat"
	"engram/internal/clock"
	"engram/internal/config"
	"engram/internal/embedding"
	"engram/internal/events"
	"engram/internal/search"
	"engram/internal/store"
	"engram/internal/types"
)

func newTestServer(t *testing.T) (*Server, *store.LocalStore) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "engram.db")
	localStore, err := store.NewLocalStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { localStore.Close() })
	localStore.SetEmbeddingEngine(embedding.NewLocalEngine(32))

	cfg := config.DefaultConfig()
	cfg.HTTP.CORSOrigins = []string{"http://localhost"}

	searcher := search.New(localStore, 0.6)
	sessions := chat.NewSessionStore(10, localStore, clock.Real{})
	taskStore := task.New(localStore, clock.Real{})
	confirmGate := confirmation.New(clock.Real{})
	bus := events.NewBus()
	registry := handler.NewRegistry()
	registry.RegisterDefaults(nil)
	actionOrch := orchestrator.New(registry, taskStore, cfg.Action)
	engine := action.New(taskStore, registry, actionOrch, confirmGate, nil, bus)
	chatOrch := chat.New(sessions, searcher, nil, engine, bus, 20)

	srv := New(cfg, localStore, searcher, chatOrch, bus, "test-token")
	return srv, localStore
}

func TestHealthRequiresNoToken(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestProtectedRouteRejectsMissingToken(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/recent", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProtectedRouteAcceptsValidToken(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/recent", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSearchEndpointReturnsResults(t *testing.T) {
	srv, localStore := newTestServer(t)
	c := &types.Capture{ID: "c1", Kind: types.ContentDictation, Text: "grocery list for the week"}
	if err := localStore.InsertCapture(c, "hash1"); err != nil {
		t.Fatalf("insert capture: %v", err)
	}
	if err := localStore.StoreCaptureVector(context.Background(), "c1", c.Text); err != nil {
		t.Fatalf("store vector: %v", err)
	}

	body := strings.NewReader(`{"query":"grocery list","k":5}`)
	req := httptest.NewRequest(http.MethodPost, "/search", body)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var results []types.SearchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one search result")
	}
}

func TestChatMessageEndpointReturnsReply(t *testing.T) {
	srv, _ := newTestServer(t)
	body := strings.NewReader(`{"content":"hello there"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/message", body)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID == "" || resp.Response == "" {
		t.Fatalf("expected session id and response, got %+v", resp)
	}
}

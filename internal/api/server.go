// Package api exposes a loopback-bound HTTP+SSE surface over the engine:
// recent captures, app activity, storage stats, search, chat, and a live
// event stream, following the router/middleware shape of the pack's
// chi-based HTTP server example.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"engram/internal/chat"
	"engram/internal/config"
	"engram/internal/events"
	"engram/internal/logging"
	"engram/internal/search"
	"engram/internal/store"
	"engram/internal/types"
)

// Server wires the HTTP router to the engine's collaborators.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	store    *store.LocalStore
	searcher *search.Searcher
	chat     *chat.Orchestrator
	bus      *events.Bus
	token    string
}

// New builds a Server and registers every route. token is the value
// incoming requests must present (except /health) via an
// `Authorization: Bearer <token>` header.
func New(cfg *config.Config, localStore *store.LocalStore, searcher *search.Searcher, chatOrch *chat.Orchestrator, bus *events.Bus, token string) *Server {
	s := &Server{
		cfg:      cfg,
		store:    localStore,
		searcher: searcher,
		chat:     chatOrch,
		bus:      bus,
		token:    token,
	}
	s.router = s.newRouter()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Addr returns the configured bind address.
func (s *Server) Addr() string {
	return s.cfg.HTTP.Host + ":" + strconv.Itoa(s.cfg.HTTP.Port)
}

func (s *Server) newRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.structuredLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.HTTP.CORSOrigins,
		AllowedMethods: []string{"GET", "POST"},
	}))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.tokenAuth)
		r.Get("/recent", s.handleRecent)
		r.Get("/apps", s.handleApps)
		r.Get("/apps/{name}/activity", s.handleAppActivity)
		r.Get("/storage/stats", s.handleStorageStats)
		r.Get("/config", s.handleConfig)
		r.Get("/ui", s.handleUI)
		r.Post("/search", s.handleSearch)
		r.Get("/dictation/history", s.handleDictationHistory)
		r.Post("/chat/message", s.handleChatMessage)
		r.Get("/events", s.handleEvents)
	})

	return r
}

// structuredLog logs one line per request through the teacher's category
// logger rather than chi's default stdlib-backed middleware.Logger.
func (s *Server) structuredLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.HTTP("%s %s -> %d (%s)", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

func (s *Server) tokenAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix || header[len(prefix):] != s.token {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := intQueryParam(r, "limit", s.cfg.Search.DefaultLimit)
	kind := types.ContentKind(r.URL.Query().Get("content_type"))

	captures, err := s.store.RecentCaptures(limit, kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, captures)
}

func (s *Server) handleApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.store.DistinctApps()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (s *Server) handleAppActivity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	limit := intQueryParam(r, "limit", s.cfg.Search.DefaultLimit)

	captures, err := s.store.CapturesByApp(name, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, captures)
}

func (s *Server) handleStorageStats(w http.ResponseWriter, r *http.Request) {
	tiers, err := s.store.TierCounts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.store.CaptureCount()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_captures": total,
		"by_tier":        tiers,
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg)
}

func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(`<!DOCTYPE html><html><head><title>Engram</title></head>` +
		`<body><p>Engram is running. Use the HTTP API to query captures.</p></body></html>`))
}

type searchRequest struct {
	Query   string              `json:"query"`
	Filters types.SearchFilters `json:"filters"`
	K       int                 `json:"k"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	results, err := s.searcher.Search(r.Context(), req.Query, req.Filters, req.K)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleDictationHistory(w http.ResponseWriter, r *http.Request) {
	limit := intQueryParam(r, "limit", s.cfg.Search.DefaultLimit)
	captures, err := s.store.RecentCaptures(limit, types.ContentDictation)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, captures)
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	reply, sessionID, err := s.chat.Handle(r.Context(), req.SessionID, req.Content)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: reply, SessionID: sessionID})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := s.bus.Subscribe(r.Context())
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			w.Write([]byte("data: "))
			w.Write(payload)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func intQueryParam(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

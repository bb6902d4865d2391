package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"engram/internal/embedding"
	"engram/internal/logging"
)

// defaultRequireVec controls whether startup fails when no vec0-compatible
// virtual table implementation is available. The pure-Go compat layer in
// vec_compat.go always registers one, so this is normally satisfied even
// without cgo sqlite-vec; it exists as a knob for diagnosing environments
// where the compat module failed to register.
var defaultRequireVec = false

// LocalStore is the single SQLite-backed store for captures, derived
// intents/tasks, chat sessions, and their vector embeddings. It plays the
// role of both the relational record store and the vector index: captures
// are written to the "captures" table and, if an embedding engine is
// configured, their vectors are dual-written to a JSON fallback column and
// to a vec0 virtual table for approximate nearest-neighbor search.
type LocalStore struct {
	db              *sql.DB
	mu              sync.RWMutex
	dbPath          string
	embeddingEngine embedding.EmbeddingEngine
	vectorExt       bool
	requireVec      bool
}

// NewLocalStore opens (creating if necessary) the SQLite database at path
// and ensures its schema is current.
func NewLocalStore(path string) (*LocalStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewLocalStore")
	defer timer.Stop()

	logging.Store("opening store at %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("failed to set synchronous=NORMAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logging.StoreDebug("failed to enable foreign_keys: %v", err)
	}

	store := &LocalStore{db: db, dbPath: path}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store.detectVecExtension()
	store.requireVec = defaultRequireVec
	if store.requireVec && !store.vectorExt {
		db.Close()
		return nil, fmt.Errorf("vec0 virtual table unavailable; semantic search cannot start")
	}
	if store.vectorExt {
		logging.Store("vec0 virtual table available, ANN search enabled")
	} else {
		logging.Get(logging.CategoryStore).Warn("vec0 unavailable, falling back to brute-force cosine search")
	}

	logging.Store("store ready at %s", path)
	return store, nil
}

// Close releases the underlying database handle.
func (s *LocalStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for components (e.g. the scheduler's
// polling loop) that need to run their own queries against the same
// connection rather than opening a second handle to the same file.
func (s *LocalStore) DB() *sql.DB { return s.db }

// initialize creates Engram's tables if they do not already exist.
func (s *LocalStore) initialize() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS captures (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			text TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			screen_app_name TEXT,
			screen_window_title TEXT,
			screen_monitor_id TEXT,
			screen_focused BOOLEAN,
			audio_source_device TEXT,
			audio_app_in_focus TEXT,
			audio_duration_secs REAL,
			audio_confidence REAL,
			dictation_target_app TEXT,
			dictation_target_window TEXT,
			dictation_duration_secs REAL,
			dictation_mode TEXT,
			tier TEXT NOT NULL DEFAULT 'hot',
			format TEXT NOT NULL DEFAULT 'f32',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_captures_timestamp ON captures(timestamp);`,
		`CREATE INDEX IF NOT EXISTS idx_captures_kind ON captures(kind);`,
		`CREATE INDEX IF NOT EXISTS idx_captures_tier ON captures(tier);`,
		`CREATE INDEX IF NOT EXISTS idx_captures_content_hash ON captures(content_hash);`,
		`CREATE INDEX IF NOT EXISTS idx_captures_app_name ON captures(screen_app_name);`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS captures_fts USING fts5(
			id UNINDEXED, text, content='', contentless_delete=1
		);`,

		`CREATE TABLE IF NOT EXISTS vectors (
			id TEXT PRIMARY KEY,
			capture_id TEXT NOT NULL,
			embedding TEXT NOT NULL,
			metadata TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_vectors_capture ON vectors(capture_id);`,

		`CREATE TABLE IF NOT EXISTS vector_meta (
			capture_id TEXT PRIMARY KEY,
			dimensions INTEGER NOT NULL,
			format TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS intents (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			raw_text TEXT NOT NULL,
			action_phrase TEXT,
			extracted_time DATETIME,
			confidence REAL NOT NULL,
			source_capture_id TEXT NOT NULL,
			detected_at DATETIME NOT NULL,
			acted_on BOOLEAN NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_intents_source_capture ON intents(source_capture_id);`,
		`CREATE INDEX IF NOT EXISTS idx_intents_acted_on ON intents(acted_on);`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			status TEXT NOT NULL,
			intent_id TEXT,
			action_type TEXT NOT NULL,
			payload TEXT,
			scheduled_at DATETIME,
			completed_at DATETIME,
			created_at DATETIME NOT NULL,
			source_capture_id TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_scheduled_at ON tasks(scheduled_at);`,

		`CREATE TABLE IF NOT EXISTS pending_confirmations (
			task_id TEXT PRIMARY KEY,
			action_type TEXT NOT NULL,
			description TEXT NOT NULL,
			requested_at DATETIME NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			last_message_at DATETIME NOT NULL,
			message_count INTEGER NOT NULL DEFAULT 0,
			context TEXT
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}

// detectVecExtension probes whether a vec0 virtual table module is
// registered, either the real cgo sqlite-vec build (init_vec.go) or the
// pure-Go compatibility module (vec_compat.go).
func (s *LocalStore) detectVecExtension() {
	if s.db == nil {
		return
	}
	if _, err := s.db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS vec_probe USING vec0(embedding float[4])"); err == nil {
		s.vectorExt = true
		_, _ = s.db.Exec("DROP TABLE IF EXISTS vec_probe")
		return
	}
	s.vectorExt = false
}

// GetStats reports row counts per table, for the health/diagnostics surface.
func (s *LocalStore) GetStats() (map[string]int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "GetStats")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	tables := []string{"captures", "vectors", "intents", "tasks", "pending_confirmations", "sessions"}
	for _, table := range tables {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			logging.StoreDebug("table %s count failed: %v", table, err)
			continue
		}
		stats[table] = count
	}
	return stats, nil
}

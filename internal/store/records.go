package store

import (
	"database/sql"
	"fmt"
	"time"

	"engram/internal/logging"
	"engram/internal/types"
)

// InsertCapture writes a capture record and indexes its text for keyword
// search. Returns errs.KindConflict-free; callers that need dedup must
// check SearchVectors/similarity before calling this.
func (s *LocalStore) InsertCapture(c *types.Capture, contentHash string) error {
	timer := logging.StartTimer(logging.CategoryStore, "InsertCapture")
	defer timer.Stop()

	var screenApp, screenTitle, screenMonitor string
	var screenFocused sql.NullBool
	if c.Screen != nil {
		screenApp, screenTitle, screenMonitor = c.Screen.AppName, c.Screen.WindowTitle, c.Screen.MonitorID
		screenFocused = sql.NullBool{Bool: c.Screen.Focused, Valid: true}
	}
	var audioDevice, audioApp string
	var audioDuration, audioConfidence sql.NullFloat64
	if c.Audio != nil {
		audioDevice, audioApp = c.Audio.SourceDevice, c.Audio.AppInFocus
		audioDuration = sql.NullFloat64{Float64: c.Audio.DurationSecs, Valid: true}
		audioConfidence = sql.NullFloat64{Float64: c.Audio.Confidence, Valid: true}
	}
	var dictApp, dictWindow, dictMode string
	var dictDuration sql.NullFloat64
	if c.Dictation != nil {
		dictApp, dictWindow, dictMode = c.Dictation.TargetApp, c.Dictation.TargetWindow, c.Dictation.Mode
		dictDuration = sql.NullFloat64{Float64: c.Dictation.DurationSecs, Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO captures (
			id, kind, timestamp, text, content_hash,
			screen_app_name, screen_window_title, screen_monitor_id, screen_focused,
			audio_source_device, audio_app_in_focus, audio_duration_secs, audio_confidence,
			dictation_target_app, dictation_target_window, dictation_duration_secs, dictation_mode,
			tier, format
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Kind, c.Timestamp, c.Text, contentHash,
		nullIfEmpty(screenApp), nullIfEmpty(screenTitle), nullIfEmpty(screenMonitor), screenFocused,
		nullIfEmpty(audioDevice), nullIfEmpty(audioApp), audioDuration, audioConfidence,
		nullIfEmpty(dictApp), nullIfEmpty(dictWindow), dictDuration, nullIfEmpty(dictMode),
		c.Tier, c.Format,
	); err != nil {
		return fmt.Errorf("insert capture: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO captures_fts (id, text) VALUES (?, ?)`, c.ID, c.Text); err != nil {
		return fmt.Errorf("insert fts row: %w", err)
	}

	return tx.Commit()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// CaptureExistsByHash reports whether a capture with the given content hash
// already exists, for exact-duplicate short-circuiting ahead of the more
// expensive semantic dedup check.
func (s *LocalStore) CaptureExistsByHash(contentHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM captures WHERE content_hash = ?`, contentHash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query content_hash: %w", err)
	}
	return count > 0, nil
}

// GetCapture loads a single capture by ID.
func (s *LocalStore) GetCapture(id string) (*types.Capture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		`SELECT id, kind, timestamp, text,
			screen_app_name, screen_window_title, screen_monitor_id, screen_focused,
			audio_source_device, audio_app_in_focus, audio_duration_secs, audio_confidence,
			dictation_target_app, dictation_target_window, dictation_duration_secs, dictation_mode,
			tier, format
		 FROM captures WHERE id = ?`, id)
	return scanCapture(row)
}

func scanCapture(row *sql.Row) (*types.Capture, error) {
	var c types.Capture
	var screenApp, screenTitle, screenMonitor sql.NullString
	var screenFocused sql.NullBool
	var audioDevice, audioApp sql.NullString
	var audioDuration, audioConfidence sql.NullFloat64
	var dictApp, dictWindow, dictMode sql.NullString
	var dictDuration sql.NullFloat64

	err := row.Scan(
		&c.ID, &c.Kind, &c.Timestamp, &c.Text,
		&screenApp, &screenTitle, &screenMonitor, &screenFocused,
		&audioDevice, &audioApp, &audioDuration, &audioConfidence,
		&dictApp, &dictWindow, &dictDuration, &dictMode,
		&c.Tier, &c.Format,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan capture: %w", err)
	}

	if screenApp.Valid || screenTitle.Valid {
		c.Screen = &types.ScreenMeta{
			AppName: screenApp.String, WindowTitle: screenTitle.String,
			MonitorID: screenMonitor.String, Focused: screenFocused.Bool,
		}
	}
	if audioDevice.Valid {
		c.Audio = &types.AudioMeta{
			SourceDevice: audioDevice.String, AppInFocus: audioApp.String,
			DurationSecs: audioDuration.Float64, Confidence: audioConfidence.Float64,
		}
	}
	if dictApp.Valid || dictWindow.Valid {
		c.Dictation = &types.DictationMeta{
			TargetApp: dictApp.String, TargetWindow: dictWindow.String,
			DurationSecs: dictDuration.Float64, Mode: dictMode.String,
		}
	}
	return &c, nil
}

// SearchCapturesByText runs an FTS5 keyword query and returns matching
// capture IDs ranked by bm25, most relevant first.
func (s *LocalStore) SearchCapturesByText(query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id FROM captures_fts WHERE captures_fts MATCH ? ORDER BY bm25(captures_fts) LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CapturesByIDs loads captures matching the given IDs, skipping any that no
// longer exist (e.g. purged by tiering between search and fetch).
func (s *LocalStore) CapturesByIDs(ids []string) ([]*types.Capture, error) {
	out := make([]*types.Capture, 0, len(ids))
	for _, id := range ids {
		c, err := s.GetCapture(id)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// CapturesOlderThan returns the IDs of captures in the given tier whose
// timestamp predates cutoff, for tiering's periodic sweep.
func (s *LocalStore) CapturesOlderThan(cutoff time.Time, tier types.StorageTier) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id FROM captures WHERE timestamp < ? AND tier = ?`, cutoff, tier)
	if err != nil {
		return nil, fmt.Errorf("query captures by age: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SetCaptureTier updates a capture's storage tier (and, when demoting to a
// coarser vector format, its format column).
func (s *LocalStore) SetCaptureTier(id string, tier types.StorageTier, format types.VectorFormat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE captures SET tier = ?, format = ? WHERE id = ?`, tier, format, id)
	return err
}

// DeleteCapture removes a capture and its FTS row; callers are responsible
// for also removing its vector rows via DeleteCaptureVector.
func (s *LocalStore) DeleteCapture(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM captures WHERE id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM captures_fts WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertIntent persists a detected intent.
func (s *LocalStore) InsertIntent(in *types.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO intents (id, type, raw_text, action_phrase, extracted_time, confidence, source_capture_id, detected_at, acted_on)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Type, in.RawText, in.ActionPhrase, in.ExtractedTime, in.Confidence, in.SourceCaptureID, in.DetectedAt, in.ActedOn,
	)
	return err
}

// MarkIntentActedOn flips an intent's acted_on flag once a task has been
// created from it.
func (s *LocalStore) MarkIntentActedOn(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE intents SET acted_on = 1 WHERE id = ?`, id)
	return err
}

// InsertTask persists a newly created task.
func (s *LocalStore) InsertTask(t *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO tasks (id, title, status, intent_id, action_type, payload, scheduled_at, completed_at, created_at, source_capture_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Status, t.IntentID, t.ActionType, t.Payload, t.ScheduledAt, t.CompletedAt, t.CreatedAt, t.SourceCaptureID,
	)
	return err
}

// UpdateTaskStatus transitions a task's status and, when moving to a
// terminal state, stamps completed_at.
func (s *LocalStore) UpdateTaskStatus(id string, status types.TaskStatus, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE tasks SET status = ?, completed_at = ? WHERE id = ?`, status, completedAt, id)
	return err
}

// GetTask loads a single task by ID.
func (s *LocalStore) GetTask(id string) (*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t types.Task
	err := s.db.QueryRow(
		`SELECT id, title, status, intent_id, action_type, payload, scheduled_at, completed_at, created_at, source_capture_id
		 FROM tasks WHERE id = ?`, id,
	).Scan(&t.ID, &t.Title, &t.Status, &t.IntentID, &t.ActionType, &t.Payload, &t.ScheduledAt, &t.CompletedAt, &t.CreatedAt, &t.SourceCaptureID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DueTasks returns pending tasks scheduled at or before now, for the
// scheduler's polling loop.
func (s *LocalStore) DueTasks(now time.Time) ([]*types.Task, error) {
	s.mu.RLock()
	rows, err := s.db.Query(
		`SELECT id, title, status, intent_id, action_type, payload, scheduled_at, completed_at, created_at, source_capture_id
		 FROM tasks WHERE status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?`,
		types.TaskPending, now,
	)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	defer rows.Close()

	var out []*types.Task
	for rows.Next() {
		var t types.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Status, &t.IntentID, &t.ActionType, &t.Payload, &t.ScheduledAt, &t.CompletedAt, &t.CreatedAt, &t.SourceCaptureID); err != nil {
			continue
		}
		out = append(out, &t)
	}
	return out, nil
}

// InsertPendingConfirmation records a task awaiting user approval.
func (s *LocalStore) InsertPendingConfirmation(p *types.PendingConfirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO pending_confirmations (task_id, action_type, description, requested_at) VALUES (?, ?, ?, ?)`,
		p.TaskID, p.ActionType, p.Description, p.RequestedAt,
	)
	return err
}

// DeletePendingConfirmation removes a confirmation once resolved (approved,
// denied, or expired).
func (s *LocalStore) DeletePendingConfirmation(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM pending_confirmations WHERE task_id = ?`, taskID)
	return err
}

// PendingConfirmationsOlderThan returns confirmations requested before
// cutoff, for TTL expiry sweeps.
func (s *LocalStore) PendingConfirmationsOlderThan(cutoff time.Time) ([]*types.PendingConfirmation, error) {
	s.mu.RLock()
	rows, err := s.db.Query(`SELECT task_id, action_type, description, requested_at FROM pending_confirmations WHERE requested_at < ?`, cutoff)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.PendingConfirmation
	for rows.Next() {
		var p types.PendingConfirmation
		if err := rows.Scan(&p.TaskID, &p.ActionType, &p.Description, &p.RequestedAt); err != nil {
			continue
		}
		out = append(out, &p)
	}
	return out, nil
}

// UpsertSession creates or updates a chat session row.
func (s *LocalStore) UpsertSession(sess *types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, started_at, last_message_at, message_count, context) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET last_message_at=excluded.last_message_at, message_count=excluded.message_count, context=excluded.context`,
		sess.ID, sess.StartedAt, sess.LastMessageAt, sess.MessageCount, sess.Context,
	)
	return err
}

// DeleteSession removes a session row, used by the chat store's LRU
// eviction once capacity is exceeded.
func (s *LocalStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// OldestSessions returns up to n session IDs ordered by last_message_at
// ascending (least-recently-used first).
func (s *LocalStore) OldestSessions(n int) ([]string, error) {
	s.mu.RLock()
	rows, err := s.db.Query(`SELECT id FROM sessions ORDER BY last_message_at ASC LIMIT ?`, n)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RecentCaptures returns the most recent captures, optionally restricted to
// a single content kind, newest first.
func (s *LocalStore) RecentCaptures(limit int, kind types.ContentKind) ([]*types.Capture, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	query := `SELECT id FROM captures`
	args := []interface{}{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("query recent captures: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	rows.Close()

	return s.CapturesByIDs(ids)
}

// DistinctApps returns the distinct application names observed across
// screen and dictation captures, alphabetically.
func (s *LocalStore) DistinctApps() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT DISTINCT app FROM (
			SELECT screen_app_name AS app FROM captures WHERE screen_app_name IS NOT NULL
			UNION
			SELECT dictation_target_app AS app FROM captures WHERE dictation_target_app IS NOT NULL
		) WHERE app != '' ORDER BY app ASC`)
	if err != nil {
		return nil, fmt.Errorf("query distinct apps: %w", err)
	}
	defer rows.Close()

	var apps []string
	for rows.Next() {
		var app string
		if err := rows.Scan(&app); err != nil {
			continue
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// CapturesByApp returns captures associated with appName (via screen or
// dictation metadata), newest first.
func (s *LocalStore) CapturesByApp(appName string, limit int) ([]*types.Capture, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	rows, err := s.db.Query(
		`SELECT id FROM captures WHERE screen_app_name = ? OR dictation_target_app = ?
		 ORDER BY timestamp DESC LIMIT ?`, appName, appName, limit)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("query captures by app: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	rows.Close()
	return s.CapturesByIDs(ids)
}

// TierCounts reports how many captures live in each storage tier.
func (s *LocalStore) TierCounts() (map[types.StorageTier]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT tier, COUNT(*) FROM captures GROUP BY tier`)
	if err != nil {
		return nil, fmt.Errorf("query tier counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.StorageTier]int)
	for rows.Next() {
		var tier types.StorageTier
		var count int
		if err := rows.Scan(&tier, &count); err != nil {
			continue
		}
		counts[tier] = count
	}
	return counts, nil
}

// CaptureCount reports the total number of stored captures.
func (s *LocalStore) CaptureCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM captures`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count captures: %w", err)
	}
	return count, nil
}

// Package types defines the domain data model shared across engram's
// internal packages: captures, vectors, intents, tasks, sessions, and
// domain events. None of these types carry behaviour beyond small value
// helpers; the packages that own the corresponding tables or indexes
// (store, action, chat) define the operations.
package types

import "time"

// ContentKind identifies the capture source a record came from.
type ContentKind string

const (
	ContentScreen    ContentKind = "screen"
	ContentAudio     ContentKind = "audio"
	ContentDictation ContentKind = "dictation"
)

// StorageTier classifies a capture by age for tiering purposes.
type StorageTier string

const (
	TierHot  StorageTier = "hot"
	TierWarm StorageTier = "warm"
	TierCold StorageTier = "cold"
)

// VectorFormat is the on-disk representation of an embedding.
type VectorFormat string

const (
	FormatF32     VectorFormat = "f32"
	FormatInt8    VectorFormat = "int8"
	FormatProduct VectorFormat = "product"
	FormatBinary  VectorFormat = "binary"
)

// ScreenMeta carries screen-capture-specific metadata.
type ScreenMeta struct {
	AppName     string `json:"app_name"`
	WindowTitle string `json:"window_title"`
	MonitorID   string `json:"monitor_id,omitempty"`
	Focused     bool   `json:"focused"`
}

// AudioMeta carries audio-capture-specific metadata.
type AudioMeta struct {
	SourceDevice string  `json:"source_device"`
	AppInFocus   string  `json:"app_in_focus,omitempty"`
	DurationSecs float64 `json:"duration_secs"`
	Confidence   float64 `json:"confidence"`
}

// DictationMeta carries dictation-capture-specific metadata.
type DictationMeta struct {
	TargetApp    string  `json:"target_app,omitempty"`
	TargetWindow string  `json:"target_window,omitempty"`
	DurationSecs float64 `json:"duration_secs"`
	Mode         string  `json:"mode,omitempty"`
}

// Capture is an immutable record of a single observed event.
type Capture struct {
	ID        string      `json:"id"`
	Kind      ContentKind `json:"content_type"`
	Timestamp time.Time   `json:"timestamp"`
	Text      string      `json:"text"`

	Screen    *ScreenMeta    `json:"screen,omitempty"`
	Audio     *AudioMeta     `json:"audio,omitempty"`
	Dictation *DictationMeta `json:"dictation,omitempty"`

	Tier   StorageTier  `json:"tier"`
	Format VectorFormat `json:"format"`
}

// AppName returns the application name associated with the capture, if any.
func (c *Capture) AppName() string {
	if c.Screen != nil {
		return c.Screen.AppName
	}
	if c.Audio != nil {
		return c.Audio.AppInFocus
	}
	if c.Dictation != nil {
		return c.Dictation.TargetApp
	}
	return ""
}

// VectorEntry is a dense embedding plus mirrored metadata, keyed by the
// capture identifier it describes.
type VectorEntry struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// VectorMetaRecord is R's parallel record of a vector's existence, used to
// answer "does a vector exist" without consulting V.
type VectorMetaRecord struct {
	ID         string
	Dimensions int
	Format     VectorFormat
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IntentType enumerates the kinds of actionable interpretation the intent
// detector can assign to a piece of text.
type IntentType string

const (
	IntentReminder  IntentType = "reminder"
	IntentTask      IntentType = "task"
	IntentQuestion  IntentType = "question"
	IntentNote      IntentType = "note"
	IntentURLAction IntentType = "url_action"
	IntentCommand   IntentType = "command"
)

// Intent is a single detection result produced from a chunk of text.
type Intent struct {
	ID              string     `json:"id"`
	Type            IntentType `json:"type"`
	RawText         string     `json:"raw_text"`
	ActionPhrase    string     `json:"action_phrase"`
	ExtractedTime   *time.Time `json:"extracted_time,omitempty"`
	Confidence      float64    `json:"confidence"`
	SourceCaptureID string     `json:"source_capture_id"`
	DetectedAt      time.Time  `json:"detected_at"`
	ActedOn         bool       `json:"acted_on"`
}

// TaskStatus is a state in the task state machine (see internal/action/task).
type TaskStatus string

const (
	TaskDetected  TaskStatus = "detected"
	TaskPending   TaskStatus = "pending"
	TaskActive    TaskStatus = "active"
	TaskDone      TaskStatus = "done"
	TaskFailed    TaskStatus = "failed"
	TaskDismissed TaskStatus = "dismissed"
	TaskExpired   TaskStatus = "expired"
)

// ActionType enumerates the registered handler kinds.
type ActionType string

const (
	ActionReminder     ActionType = "reminder"
	ActionClipboard    ActionType = "clipboard"
	ActionNotification ActionType = "notification"
	ActionURLOpen      ActionType = "url_open"
	ActionQuickNote    ActionType = "quick_note"
	ActionShellCommand ActionType = "shell_command"
)

// SafetyLevel governs whether a handler's execution requires confirmation.
type SafetyLevel string

const (
	SafetyPassive SafetyLevel = "passive"
	SafetyActive  SafetyLevel = "active"
)

// Task is the persistent unit of work tracked by the action engine.
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Status          TaskStatus `json:"status"`
	IntentID        string     `json:"intent_id,omitempty"`
	ActionType      ActionType `json:"action_type"`
	Payload         string     `json:"payload"` // opaque JSON
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	SourceCaptureID string     `json:"source_capture_id,omitempty"`
}

// PendingConfirmation is an item awaiting user approval before execution.
type PendingConfirmation struct {
	TaskID      string     `json:"task_id"`
	ActionType  ActionType `json:"action_type"`
	Description string     `json:"description"`
	RequestedAt time.Time  `json:"requested_at"`
}

// Session is a bounded chat session, evicted LRU when capacity is reached.
type Session struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	LastMessageAt time.Time `json:"last_message_at"`
	MessageCount  int       `json:"message_count"`
	Context       string    `json:"context"` // serialized recent turns / topic
}

// EventKind tags the populated field of a DomainEvent.
type EventKind string

const (
	EventCaptureStored  EventKind = "capture_stored"
	EventCaptureSkipped EventKind = "capture_skipped"
	EventCaptureDenied  EventKind = "capture_denied"
	EventDeduplicated   EventKind = "deduplicated"
	EventRedacted       EventKind = "redacted"
	EventTaskCreated    EventKind = "task_created"
	EventTaskStatus     EventKind = "task_status_changed"
	EventSearchQuery    EventKind = "search_query"
	EventChatMessage    EventKind = "chat_message"
	EventVectorQuantized EventKind = "vector_quantized"
	EventTierChanged    EventKind = "tier_changed"
)

// DomainEvent is a tagged union covering capture, storage, safety, search,
// chat, and task lifecycle transitions. Kind names the transition; the
// identifier fields that apply to it are set and the rest are left empty,
// and Detail carries a short free-form value such as a new tier or format.
type DomainEvent struct {
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	CaptureID string `json:"capture_id,omitempty"`
	TaskID    string `json:"task_id,omitempty"`
	IntentID  string `json:"intent_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	Detail string `json:"detail,omitempty"`
}

// SearchResult is one hit returned from hybrid search.
type SearchResult struct {
	ID          string      `json:"id"`
	Score       float64     `json:"score"`
	ContentKind ContentKind `json:"content_type,omitempty"`
	AppName     string      `json:"app_name,omitempty"`
	Timestamp   time.Time   `json:"timestamp,omitempty"`
	Text        string      `json:"text,omitempty"`
}

// SearchFilters narrows a hybrid search.
type SearchFilters struct {
	ContentKind ContentKind
	AppName     string
	Start       *time.Time
	End         *time.Time
}

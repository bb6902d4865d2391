// Package task implements the task lifecycle: an in-memory TaskStore backed
// by the state machine in state_machine.go, with a best-effort write-through
// to persistent storage so a restart can rehydrate.
package task

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"engram/internal/clock"
	"engram/internal/errs"
	"engram/internal/logging"
	"engram/internal/types"
)

// Writer is the persistence surface the task store writes through to.
// Satisfied by *store.LocalStore; declared here so this package does not
// import internal/store directly.
type Writer interface {
	InsertTask(t *types.Task) error
	UpdateTaskStatus(id string, status types.TaskStatus, completedAt *time.Time) error
}

// Store is the in-memory, mutex-guarded authority for task state. Every
// mutation is mirrored to Writer on a best-effort basis: a write failure is
// logged, never returned to the caller.
type Store struct {
	mu     sync.Mutex
	tasks  []*types.Task
	writer Writer
	clock  clock.Clock
}

// New builds an empty task store. writer may be nil, in which case no
// write-through persistence happens (useful in tests).
func New(writer Writer, c clock.Clock) *Store {
	return &Store{writer: writer, clock: c}
}

// Create registers a new task in Detected status.
func (s *Store) Create(title string, actionType types.ActionType, payload, intentID, sourceCaptureID string, scheduledAt *time.Time) *types.Task {
	t := &types.Task{
		ID:              uuid.NewString(),
		Title:           title,
		Status:          types.TaskDetected,
		IntentID:        intentID,
		ActionType:      actionType,
		Payload:         payload,
		ScheduledAt:     scheduledAt,
		CreatedAt:       s.clock.Now(),
		SourceCaptureID: sourceCaptureID,
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()

	s.writeThroughInsert(t)
	return t
}

// Get returns a task by id.
func (s *Store) Get(id string) (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, errs.New(errs.KindNotFound, "task.Get", nil)
}

// UpdateStatus validates and applies a state transition, setting
// CompletedAt when entering Done.
func (s *Store) UpdateStatus(id string, newStatus types.TaskStatus) (*types.Task, error) {
	s.mu.Lock()
	var target *types.Task
	for _, t := range s.tasks {
		if t.ID == id {
			target = t
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return nil, errs.New(errs.KindNotFound, "task.UpdateStatus", nil)
	}
	if err := validateTransition(target.Status, newStatus); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	target.Status = newStatus
	var completedAt *time.Time
	if newStatus == types.TaskDone {
		now := s.clock.Now()
		target.CompletedAt = &now
		completedAt = &now
	}
	cp := *target
	s.mu.Unlock()

	s.writeThroughStatus(id, newStatus, completedAt)
	return &cp, nil
}

// Dismiss is a convenience for UpdateStatus(id, Dismissed).
func (s *Store) Dismiss(id string) (*types.Task, error) {
	return s.UpdateStatus(id, types.TaskDismissed)
}

// List returns tasks matching the given optional filters, sorted by
// CreatedAt descending, truncated to limit if limit > 0.
func (s *Store) List(status *types.TaskStatus, actionType *types.ActionType, limit int) []*types.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*types.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if status != nil && t.Status != *status {
			continue
		}
		if actionType != nil && t.ActionType != *actionType {
			continue
		}
		cp := *t
		result = append(result, &cp)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// ExpireStale marks every Pending/Active task older than ttlDays as
// Expired and returns their ids.
func (s *Store) ExpireStale(ttlDays int) []string {
	cutoff := s.clock.Now().AddDate(0, 0, -ttlDays)

	s.mu.Lock()
	var expired []string
	var toWrite []*types.Task
	for _, t := range s.tasks {
		if (t.Status == types.TaskPending || t.Status == types.TaskActive) && t.CreatedAt.Before(cutoff) {
			if validateTransition(t.Status, types.TaskExpired) == nil {
				t.Status = types.TaskExpired
				expired = append(expired, t.ID)
				toWrite = append(toWrite, t)
			}
		}
	}
	s.mu.Unlock()

	for _, t := range toWrite {
		s.writeThroughStatus(t.ID, types.TaskExpired, nil)
	}
	return expired
}

func (s *Store) writeThroughInsert(t *types.Task) {
	if s.writer == nil {
		return
	}
	if err := s.writer.InsertTask(t); err != nil {
		logging.ActionDebug("task write-through insert failed for %s: %v", t.ID, err)
	}
}

func (s *Store) writeThroughStatus(id string, status types.TaskStatus, completedAt *time.Time) {
	if s.writer == nil {
		return
	}
	if err := s.writer.UpdateTaskStatus(id, status, completedAt); err != nil {
		logging.ActionDebug("task write-through status update failed for %s: %v", id, err)
	}
}

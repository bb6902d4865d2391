// Package scheduler promotes tasks from Pending to Active once their
// scheduled time arrives. It runs a single long-lived loop that always
// wakes for the earliest scheduled task, a shutdown signal, or a 60-second
// idle tick when nothing is scheduled.
package scheduler

import (
	"context"
	"time"

	"engram/internal/action/task"
	"engram/internal/clock"
	"engram/internal/logging"
	"engram/internal/types"
)

const idlePoll = 60 * time.Second

// Scheduler promotes due tasks in store to Active.
type Scheduler struct {
	store     *task.Store
	clock     clock.Clock
	onPromote func(taskID string)
}

// New builds a scheduler over store.
func New(store *task.Store, c clock.Clock) *Scheduler {
	return &Scheduler{store: store, clock: c}
}

// SetOnPromote registers a callback invoked after a task is promoted to
// Active, so the caller can carry it on to execution (see internal/action).
// Optional: a scheduler with no callback still performs promotions.
func (s *Scheduler) SetOnPromote(fn func(taskID string)) {
	s.onPromote = fn
}

// Run blocks, promoting due tasks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		wait, ok := s.nextWait()
		if !ok {
			wait = idlePoll
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// nextWait inspects Pending scheduled tasks and reports how long to sleep
// before the next wakeup. If a task is already due, it is promoted
// immediately and nextWait returns a zero wait so Run loops right away.
func (s *Scheduler) nextWait() (time.Duration, bool) {
	pending := types.TaskPending
	candidates := s.store.List(&pending, nil, 0)

	var earliest *types.Task
	for _, t := range candidates {
		if t.ScheduledAt == nil {
			continue
		}
		if earliest == nil || t.ScheduledAt.Before(*earliest.ScheduledAt) {
			earliest = t
		}
	}
	if earliest == nil {
		return 0, false
	}

	now := s.clock.Now()
	if !earliest.ScheduledAt.After(now) {
		s.promote(earliest.ID)
		return 0, true
	}
	return earliest.ScheduledAt.Sub(now), true
}

func (s *Scheduler) promote(taskID string) {
	current, err := s.store.Get(taskID)
	if err != nil {
		return
	}
	if current.Status != types.TaskPending {
		return
	}
	if _, err := s.store.UpdateStatus(taskID, types.TaskActive); err != nil {
		logging.ActionDebug("scheduler: failed to promote task %s: %v", taskID, err)
		return
	}
	if s.onPromote != nil {
		s.onPromote(taskID)
	}
}

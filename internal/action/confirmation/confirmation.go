// Package confirmation implements the FIFO approval queue actions requiring
// explicit user consent wait in, plus a notification rate limiter that hard
// resets every 60 seconds rather than continuously refilling.
package confirmation

import (
	"sync"
	"time"

	"engram/internal/clock"
	"engram/internal/types"
)

// Pending is a queued confirmation request awaiting user approval.
type Pending struct {
	TaskID      string
	ActionType  types.ActionType
	Description string
	RequestedAt time.Time
}

// Gate is a FIFO queue of pending confirmations keyed by task id.
type Gate struct {
	mu      sync.Mutex
	pending []Pending
	clock   clock.Clock
}

// New builds an empty confirmation gate.
func New(c clock.Clock) *Gate {
	return &Gate{clock: c}
}

// Request queues a confirmation for taskID.
func (g *Gate) Request(taskID string, actionType types.ActionType, description string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = append(g.pending, Pending{
		TaskID:      taskID,
		ActionType:  actionType,
		Description: description,
		RequestedAt: g.clock.Now(),
	})
}

// Approve removes and returns the pending confirmation for taskID, or
// ok=false if none exists.
func (g *Gate) Approve(taskID string) (Pending, bool) {
	return g.remove(taskID)
}

// Dismiss removes the pending confirmation for taskID, reporting whether
// one was found.
func (g *Gate) Dismiss(taskID string) bool {
	_, ok := g.remove(taskID)
	return ok
}

func (g *Gate) remove(taskID string) (Pending, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, p := range g.pending {
		if p.TaskID == taskID {
			g.pending = append(g.pending[:i], g.pending[i+1:]...)
			return p, true
		}
	}
	return Pending{}, false
}

// PendingCount returns the number of queued confirmations.
func (g *Gate) PendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// CanAlwaysAllow reports whether actionType may be opted into auto-approval.
// Shell commands can never be set to always-allow.
func CanAlwaysAllow(actionType types.ActionType) bool {
	return actionType != types.ActionShellCommand
}

// RateLimiter caps notification delivery to maxPerMinute per fixed
// 60-second window, hard-resetting the bucket once 60s have elapsed rather
// than continuously refilling like a token bucket.
type RateLimiter struct {
	mu           sync.Mutex
	maxPerMinute int
	remaining    int
	windowStart  time.Time
	clock        clock.Clock
}

// NewRateLimiter builds a limiter allowing maxPerMinute acquisitions per
// 60-second window.
func NewRateLimiter(maxPerMinute int, c clock.Clock) *RateLimiter {
	return &RateLimiter{
		maxPerMinute: maxPerMinute,
		remaining:    maxPerMinute,
		windowStart:  c.Now(),
		clock:        c,
	}
}

// TryAcquire attempts to consume one slot from the current window, resetting
// the window first if 60s have elapsed since it opened.
func (r *RateLimiter) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if now.Sub(r.windowStart) >= time.Minute {
		r.remaining = r.maxPerMinute
		r.windowStart = now
	}

	if r.remaining > 0 {
		r.remaining--
		return true
	}
	return false
}

// Package action coordinates the task/confirmation/scheduler/orchestrator
// collaborators into the single action pipeline: a detected intent becomes
// a task, the task is either auto-approved or queued for confirmation, an
// approved task with no schedule executes immediately, and one with a
// schedule waits for the scheduler to promote it. This wiring sits above
// the individual action/* subpackages the way the teacher's top-level
// agent loop sits above its shard collaborators, rather than inside any one
// of them.
package action

import (
	"context"
	"time"

	"engram/internal/action/confirmation"
	"engram/internal/action/handler"
	"engram/internal/action/orchestrator"
	"engram/internal/action/task"
	"engram/internal/events"
	"engram/internal/logging"
	"engram/internal/types"
)

// ActionTypeForIntent maps a detected intent type to the action type its
// task should carry. Question and note intents are informational only and
// never produce a task; both call sites that create tasks from detected
// intents (internal/chat and internal/capture) share this mapping so a
// chat-typed and a capture-typed reminder intent route identically.
func ActionTypeForIntent(t types.IntentType) (types.ActionType, bool) {
	switch t {
	case types.IntentReminder:
		return types.ActionReminder, true
	case types.IntentTask:
		return types.ActionQuickNote, true
	case types.IntentURLAction:
		return types.ActionURLOpen, true
	case types.IntentCommand:
		return types.ActionShellCommand, true
	default:
		return "", false
	}
}

// Engine owns task creation and carries every created task through
// confirmation to execution.
type Engine struct {
	tasks        *task.Store
	registry     *handler.Registry
	orchestrator *orchestrator.Orchestrator
	confirmGate  *confirmation.Gate
	notifyLimit  *confirmation.RateLimiter
	bus          *events.Bus
}

// New builds an Engine over its collaborators. notifyLimit may be nil to
// disable notification rate limiting (used in tests).
func New(tasks *task.Store, registry *handler.Registry, orch *orchestrator.Orchestrator, confirmGate *confirmation.Gate, notifyLimit *confirmation.RateLimiter, bus *events.Bus) *Engine {
	return &Engine{
		tasks:        tasks,
		registry:     registry,
		orchestrator: orch,
		confirmGate:  confirmGate,
		notifyLimit:  notifyLimit,
		bus:          bus,
	}
}

// CreateTask registers a task for the given intent and routes it: if the
// handler's safety level and the auto-approve policy allow it through,
// the task moves straight to Pending (and Active/executed immediately if
// unscheduled); otherwise it is queued on the confirmation gate and stays
// Detected until ApproveTask or DismissTask is called.
func (e *Engine) CreateTask(ctx context.Context, title string, actionType types.ActionType, payload, intentID, sourceCaptureID string, scheduledAt *time.Time) *types.Task {
	t := e.tasks.Create(title, actionType, payload, intentID, sourceCaptureID, scheduledAt)
	e.publish(types.EventTaskCreated, t.ID, "")

	if actionType == types.ActionNotification && e.notifyLimit != nil && !e.notifyLimit.TryAcquire() {
		logging.ActionDebug("action: notification for task %s dropped, rate limit exceeded", t.ID)
		_, _ = e.tasks.UpdateStatus(t.ID, types.TaskPending)
		e.tasks.Dismiss(t.ID)
		return t
	}

	h, ok := e.registry.Get(actionType)
	needsConfirmation := !ok || e.orchestrator.NeedsConfirmation(h.SafetyLevel(), actionType)

	if needsConfirmation {
		e.confirmGate.Request(t.ID, actionType, title)
		return t
	}

	e.advanceToPendingAndMaybeRun(ctx, t)
	return t
}

// ApproveTask approves a pending confirmation and advances the task the
// same way an auto-approved task would have been.
func (e *Engine) ApproveTask(ctx context.Context, taskID string) bool {
	if _, ok := e.confirmGate.Approve(taskID); !ok {
		return false
	}
	t, err := e.tasks.Get(taskID)
	if err != nil {
		return false
	}
	e.advanceToPendingAndMaybeRun(ctx, t)
	return true
}

// DismissTask dismisses a pending confirmation without running its task.
func (e *Engine) DismissTask(taskID string) bool {
	if !e.confirmGate.Dismiss(taskID) {
		return false
	}
	// A queued task is still Detected; it passes through Pending, the only
	// state the task state machine dismisses from.
	_, _ = e.tasks.UpdateStatus(taskID, types.TaskPending)
	_, _ = e.tasks.Dismiss(taskID)
	return true
}

// advanceToPendingAndMaybeRun moves a Detected task to Pending, then either
// executes it immediately (no schedule) or leaves it for the scheduler.
func (e *Engine) advanceToPendingAndMaybeRun(ctx context.Context, t *types.Task) {
	updated, err := e.tasks.UpdateStatus(t.ID, types.TaskPending)
	if err != nil {
		logging.ActionDebug("action: failed to move task %s to pending: %v", t.ID, err)
		return
	}
	e.publish(types.EventTaskStatus, updated.ID, "pending")

	if updated.ScheduledAt != nil {
		return
	}
	e.activateAndRun(ctx, updated.ID)
}

// RunDueTask is called by the scheduler once it has already promoted a task
// to Active; it only needs to execute, not re-activate.
func (e *Engine) RunDueTask(ctx context.Context, taskID string) {
	e.execute(ctx, taskID)
}

// activateAndRun transitions a Pending task to Active itself, then executes
// it. Used for the immediate (unscheduled) path, where nothing has already
// promoted the task.
func (e *Engine) activateAndRun(ctx context.Context, taskID string) {
	if _, err := e.tasks.UpdateStatus(taskID, types.TaskActive); err != nil {
		logging.ActionDebug("action: failed to activate task %s: %v", taskID, err)
		return
	}
	e.publish(types.EventTaskStatus, taskID, "active")
	e.execute(ctx, taskID)
}

func (e *Engine) execute(ctx context.Context, taskID string) {
	if err := e.orchestrator.ExecuteTask(ctx, taskID); err != nil {
		logging.ActionDebug("action: task %s failed: %v", taskID, err)
		e.publish(types.EventTaskStatus, taskID, "failed")
		return
	}

	t, err := e.tasks.Get(taskID)
	if err == nil && t.Status == types.TaskDone {
		e.publish(types.EventTaskStatus, taskID, "done")
	}
}

func (e *Engine) publish(kind types.EventKind, taskID, detail string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(types.DomainEvent{Kind: kind, Timestamp: time.Now(), TaskID: taskID, Detail: detail})
}

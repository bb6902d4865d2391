// Package orchestrator coordinates handler lookup, safety routing, and
// execution for a task, retrying a failed handler once before marking the
// task Failed.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"engram/internal/action/handler"
	"engram/internal/action/task"
	"engram/internal/config"
	"engram/internal/errs"
	"engram/internal/types"
)

const retryDelay = 50 * time.Millisecond

// Orchestrator routes a task through its handler, honoring safety policy.
type Orchestrator struct {
	registry  *handler.Registry
	taskStore *task.Store
	config    config.ActionConfig
}

// New builds an orchestrator over registry and taskStore, applying cfg's
// auto-approve policy.
func New(registry *handler.Registry, taskStore *task.Store, cfg config.ActionConfig) *Orchestrator {
	return &Orchestrator{registry: registry, taskStore: taskStore, config: cfg}
}

// NeedsConfirmation reports whether actionType at safetyLevel requires
// explicit user confirmation before execution, under the orchestrator's
// configured auto-approve policy. ShellCommand is never auto-approved.
func (o *Orchestrator) NeedsConfirmation(safetyLevel types.SafetyLevel, actionType types.ActionType) bool {
	if safetyLevel == types.SafetyActive {
		return true
	}

	var autoApproved bool
	switch actionType {
	case types.ActionReminder:
		autoApproved = o.config.AutoApprove.Reminder
	case types.ActionClipboard:
		autoApproved = o.config.AutoApprove.Clipboard
	case types.ActionNotification:
		autoApproved = o.config.AutoApprove.Notification
	case types.ActionURLOpen:
		autoApproved = o.config.AutoApprove.URLOpen
	case types.ActionQuickNote:
		autoApproved = o.config.AutoApprove.QuickNote
	case types.ActionShellCommand:
		autoApproved = false
	}
	return !autoApproved
}

// ExecuteTask looks up taskID's handler, checks safety routing, and runs it.
// If confirmation is required the task is left in its current state and nil
// is returned: the caller is responsible for routing it through a
// confirmation gate. Otherwise the handler runs with a single retry after
// retryDelay; on repeated failure the task moves to Failed and the first
// error is returned.
func (o *Orchestrator) ExecuteTask(ctx context.Context, taskID string) error {
	t, err := o.taskStore.Get(taskID)
	if err != nil {
		return err
	}

	h, ok := o.registry.Get(t.ActionType)
	if !ok {
		return errs.New(errs.KindInvalidInput, "orchestrator.ExecuteTask",
			fmt.Errorf("no handler registered for action type %s", t.ActionType))
	}

	payload := handler.ParsePayload(t.Payload)

	if o.NeedsConfirmation(h.SafetyLevel(), t.ActionType) {
		return nil
	}

	if _, firstErr := h.Execute(ctx, payload); firstErr == nil {
		_, err := o.taskStore.UpdateStatus(taskID, types.TaskDone)
		return err
	} else {
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}

		if _, retryErr := h.Execute(ctx, payload); retryErr == nil {
			_, err := o.taskStore.UpdateStatus(taskID, types.TaskDone)
			return err
		}

		_, _ = o.taskStore.UpdateStatus(taskID, types.TaskFailed)
		return firstErr
	}
}

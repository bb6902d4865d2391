package task

import (
	"fmt"

	"engram/internal/errs"
	"engram/internal/types"
)

var allowedTransitions = map[types.TaskStatus]map[types.TaskStatus]bool{
	types.TaskDetected: {types.TaskPending: true},
	types.TaskPending: {
		types.TaskActive:    true,
		types.TaskDismissed: true,
		types.TaskExpired:   true,
	},
	types.TaskActive: {
		types.TaskDone:    true,
		types.TaskFailed:  true,
		types.TaskExpired: true,
	},
}

// validateTransition reports whether moving a task from one status to
// another is legal, returning an errs.Error with KindConflict otherwise.
func validateTransition(from, to types.TaskStatus) error {
	if allowedTransitions[from][to] {
		return nil
	}
	return errs.New(errs.KindConflict, "task.validateTransition",
		fmt.Errorf("invalid transition %s -> %s", from, to))
}

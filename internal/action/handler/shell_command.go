package handler

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"engram/internal/logging"
	"engram/internal/types"
)

// ShellCommandHandler runs a single shell command from a fixed allowlist of
// binaries. Always Active: confirmation can never be bypassed for this
// action type, regardless of auto_approve configuration.
type ShellCommandHandler struct {
	allowed map[string]bool
}

// NewShellCommandHandler builds a handler restricted to the given binary
// names (matched against the command's first whitespace-separated token).
func NewShellCommandHandler(allowedBinaries []string) ShellCommandHandler {
	allowed := make(map[string]bool, len(allowedBinaries))
	for _, b := range allowedBinaries {
		allowed[b] = true
	}
	return ShellCommandHandler{allowed: allowed}
}

func (ShellCommandHandler) ActionType() types.ActionType   { return types.ActionShellCommand }
func (ShellCommandHandler) SafetyLevel() types.SafetyLevel { return types.SafetyActive }

func (h ShellCommandHandler) Execute(ctx context.Context, payload Payload) (Result, error) {
	command := payload.str("command")
	if command == "" {
		return Result{}, errInvalidPayload("shell_command.Execute", "command must not be empty")
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return Result{}, errInvalidPayload("shell_command.Execute", "command must not be empty")
	}
	binary := fields[0]
	if !h.allowed[binary] {
		return Result{}, errInvalidPayload("shell_command.Execute",
			fmt.Sprintf("binary %q is not in the allowed list", binary))
	}

	cmd := exec.CommandContext(ctx, binary, fields[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("command %q failed: %w", command, err)
	}

	logging.Action("shell command executed: %s", command)
	return Result{Success: true, Message: fmt.Sprintf("Ran: %s", command), Output: string(out)}, nil
}

func (ShellCommandHandler) Describe(payload Payload) string {
	command := payload.str("command")
	if command == "" {
		command = "<no command>"
	}
	return fmt.Sprintf("Run shell command: %s", command)
}

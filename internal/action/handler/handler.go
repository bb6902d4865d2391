// Package handler defines the ActionHandler contract and the registry that
// dispatches a task's action type to its implementation.
package handler

import (
	"context"
	"encoding/json"
	"errors"

	"engram/internal/errs"
	"engram/internal/types"
)

// Payload is the decoded form of a task's opaque JSON action payload.
type Payload struct {
	Data map[string]interface{}
}

// ParsePayload decodes raw JSON into a Payload. Malformed JSON decodes to an
// empty payload rather than failing, mirroring how a best-effort action
// engine tolerates a corrupted task record instead of refusing to run it.
func ParsePayload(raw string) Payload {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		data = map[string]interface{}{}
	}
	return Payload{Data: data}
}

func (p Payload) str(key string) string {
	v, ok := p.Data[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Result describes the outcome of a handler's execution.
type Result struct {
	Success bool
	Message string
	Output  string
}

// Handler is implemented by every concrete action type.
type Handler interface {
	ActionType() types.ActionType
	SafetyLevel() types.SafetyLevel
	Execute(ctx context.Context, payload Payload) (Result, error)
	Describe(payload Payload) string
}

// Registry maps an action type to its handler.
type Registry struct {
	handlers map[types.ActionType]Handler
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[types.ActionType]Handler)}
}

// Register adds or overwrites the handler for its declared action type.
func (r *Registry) Register(h Handler) {
	r.handlers[h.ActionType()] = h
}

// Get looks up the handler for actionType.
func (r *Registry) Get(actionType types.ActionType) (Handler, bool) {
	h, ok := r.handlers[actionType]
	return h, ok
}

// RegisterDefaults registers all six built-in handlers, allowedBinaries
// scoping the shell command handler's allowlist.
func (r *Registry) RegisterDefaults(allowedBinaries []string) {
	r.Register(ReminderHandler{})
	r.Register(ClipboardHandler{})
	r.Register(NotificationHandler{})
	r.Register(URLOpenHandler{})
	r.Register(QuickNoteHandler{})
	r.Register(NewShellCommandHandler(allowedBinaries))
}

func errInvalidPayload(op, msg string) error {
	return errs.New(errs.KindInvalidInput, op, errors.New(msg))
}

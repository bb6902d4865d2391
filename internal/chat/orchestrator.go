package chat

import (
	"context"
	"fmt"
	"time"

	"engram/internal/action"
	"engram/internal/events"
	"engram/internal/search"
	"engram/internal/types"
)

// Engine is the task-creation surface the orchestrator drives for
// actionable intents. Satisfied by *action.Engine.
type Engine interface {
	CreateTask(ctx context.Context, title string, actionType types.ActionType, payload, intentID, sourceCaptureID string, scheduledAt *time.Time) *types.Task
}

// Detector is the intent-detection surface the orchestrator drives on every
// message. Satisfied by *intent.Detector.
type Detector interface {
	Detect(text, sourceCaptureID string) []types.Intent
}

// Responder produces a reply from the user's message, the top hybrid-search
// hit (if any), and any task the message caused to be created.
type Responder interface {
	Respond(content string, topHit *types.SearchResult, createdTask *types.Task) string
}

// TemplateResponder is the default Responder: a deterministic template, no
// external model call, standing in for a real chat completion backend.
type TemplateResponder struct{}

func (TemplateResponder) Respond(content string, topHit *types.SearchResult, createdTask *types.Task) string {
	reply := fmt.Sprintf("You said: %q.", content)
	if topHit != nil {
		reply += fmt.Sprintf(" This relates to something from %s: %q.", topHit.AppName, truncate(topHit.Text, 80))
	}
	if createdTask != nil {
		reply += fmt.Sprintf(" I created a task: %s.", createdTask.Title)
	}
	return reply
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Orchestrator turns one chat message into search context, any side-effecting
// tasks the message implies, and a reply.
type Orchestrator struct {
	sessions     *SessionStore
	searcher     *search.Searcher
	detector     Detector
	engine       Engine
	bus          *events.Bus
	responder    Responder
	defaultLimit int
}

// New builds a chat orchestrator over its collaborators.
func New(sessions *SessionStore, searcher *search.Searcher, detector Detector, engine Engine, bus *events.Bus, defaultLimit int) *Orchestrator {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &Orchestrator{
		sessions:     sessions,
		searcher:     searcher,
		detector:     detector,
		engine:       engine,
		bus:          bus,
		responder:    TemplateResponder{},
		defaultLimit: defaultLimit,
	}
}

// SetResponder overrides the default template responder.
func (o *Orchestrator) SetResponder(r Responder) { o.responder = r }

// Handle processes one chat turn: context retrieval, intent detection and
// task creation, reply generation, session update, and event publication.
func (o *Orchestrator) Handle(ctx context.Context, sessionID, content string) (reply string, resolvedSessionID string, err error) {
	sess := o.sessions.GetOrCreate(sessionID)

	var topHit *types.SearchResult
	if o.searcher != nil {
		results, searchErr := o.searcher.Hybrid(ctx, content, types.SearchFilters{}, o.defaultLimit)
		if searchErr != nil {
			return "", sess.ID, searchErr
		}
		if len(results) > 0 {
			topHit = &results[0]
		}
	}

	var createdTask *types.Task
	if o.detector != nil {
		intents := o.detector.Detect(content, "")
		for _, in := range intents {
			actionType, ok := action.ActionTypeForIntent(in.Type)
			if !ok {
				continue
			}
			createdTask = o.createTask(ctx, in, actionType)
			break
		}
	}

	reply = o.responder.Respond(content, topHit, createdTask)

	o.sessions.Touch(sess.ID, fmt.Sprintf("user: %s\nassistant: %s", content, reply))

	if o.bus != nil {
		o.bus.Publish(types.DomainEvent{
			Kind:      types.EventChatMessage,
			Timestamp: time.Now(),
			SessionID: sess.ID,
		})
	}

	return reply, sess.ID, nil
}

func (o *Orchestrator) createTask(ctx context.Context, in types.Intent, actionType types.ActionType) *types.Task {
	if o.engine == nil {
		return nil
	}
	return o.engine.CreateTask(ctx, in.ActionPhrase, actionType, "{}", in.ID, in.SourceCaptureID, in.ExtractedTime)
}

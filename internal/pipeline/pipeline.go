// Package pipeline implements the ingestion algorithm: safety check, embed,
// dedup against the vector index, dual-write to storage, and a published
// domain event — in that exact order, mirroring the write-then-record
// sequencing the teacher's vector store already uses for a single insert.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"engram/internal/config"
	"engram/internal/errs"
	"engram/internal/events"
	"engram/internal/safety"
	"engram/internal/store"
	"engram/internal/types"
)

// OutcomeKind tags which case an Ingest call resolved to.
type OutcomeKind string

const (
	OutcomeStored       OutcomeKind = "stored"
	OutcomeSkipped      OutcomeKind = "skipped"
	OutcomeDeduplicated OutcomeKind = "deduplicated"
	OutcomeRedacted     OutcomeKind = "redacted"
	OutcomeDenied       OutcomeKind = "denied"
)

// Outcome is the policy result of an Ingest call. Exactly the fields
// relevant to Kind are populated.
type Outcome struct {
	Kind           OutcomeKind
	CaptureID      string
	Reason         string
	Similarity     float64
	RedactionCount int
}

// Pipeline wires the safety gate, capture store, and event bus into a single
// ingest operation.
type Pipeline struct {
	safety         *safety.Gate
	store          *store.LocalStore
	bus            *events.Bus
	dedupThreshold float64
}

// New builds a pipeline over the given collaborators. dedupThreshold is the
// cosine similarity at or above which a fresh capture is treated as a
// duplicate of an existing one.
func New(gate *safety.Gate, localStore *store.LocalStore, bus *events.Bus, dedupThreshold float64) *Pipeline {
	return &Pipeline{safety: gate, store: localStore, bus: bus, dedupThreshold: dedupThreshold}
}

// NewFromConfig is a convenience constructor reading dedup_threshold from cfg.
func NewFromConfig(gate *safety.Gate, localStore *store.LocalStore, bus *events.Bus, cfg *config.Config) *Pipeline {
	return New(gate, localStore, bus, cfg.Search.DedupThreshold)
}

// Ingest runs a capture through safety, embedding, dedup, and storage,
// publishing a domain event for the outcome. Errors are limited to
// infrastructure failures; policy outcomes (skip/dedup/deny/redact) are
// returned as values, not errors.
func (p *Pipeline) Ingest(ctx context.Context, capture types.Capture) (Outcome, error) {
	if strings.TrimSpace(capture.Text) == "" {
		return Outcome{Kind: OutcomeSkipped, Reason: "empty"}, nil
	}

	decision := p.safety.Check(capture.Text)
	if decision.Denied {
		p.publish(types.EventCaptureDenied, capture.ID, decision.DenyReason)
		return Outcome{Kind: OutcomeDenied, Reason: decision.DenyReason}, nil
	}

	capture.Text = decision.Text

	if capture.ID == "" {
		capture.ID = newCaptureID()
	}
	if capture.Timestamp.IsZero() {
		capture.Timestamp = time.Now()
	}

	hash := contentHash(capture.Text)
	exact, err := p.store.CaptureExistsByHash(hash)
	if err != nil {
		return Outcome{}, errs.New(errs.KindInternal, "pipeline.Ingest", fmt.Errorf("hash lookup: %w", err))
	}
	if exact {
		p.publish(types.EventDeduplicated, capture.ID, "")
		return Outcome{Kind: OutcomeDeduplicated, Similarity: 1}, nil
	}

	if p.dedupThreshold > 0 {
		matches, err := p.store.SearchVectors(ctx, capture.Text, 1)
		if err != nil {
			return Outcome{}, errs.New(errs.KindInternal, "pipeline.Ingest", fmt.Errorf("dedup search: %w", err))
		}
		if len(matches) > 0 && matches[0].Similarity >= p.dedupThreshold {
			p.publish(types.EventDeduplicated, capture.ID, "")
			return Outcome{Kind: OutcomeDeduplicated, Similarity: matches[0].Similarity}, nil
		}
	}

	if err := p.store.StoreCaptureVector(ctx, capture.ID, capture.Text); err != nil {
		return Outcome{}, errs.New(errs.KindInternal, "pipeline.Ingest", fmt.Errorf("store vector: %w", err))
	}

	if err := p.store.InsertCapture(&capture, hash); err != nil {
		return Outcome{}, errs.New(errs.KindInternal, "pipeline.Ingest", fmt.Errorf("insert capture: %w", err))
	}

	if decision.RedactionCount > 0 {
		p.publish(types.EventRedacted, capture.ID, "")
		return Outcome{Kind: OutcomeRedacted, CaptureID: capture.ID, RedactionCount: decision.RedactionCount}, nil
	}

	p.publish(types.EventCaptureStored, capture.ID, "")
	return Outcome{Kind: OutcomeStored, CaptureID: capture.ID}, nil
}

func (p *Pipeline) publish(kind types.EventKind, captureID, detail string) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(types.DomainEvent{
		Kind:      kind,
		Timestamp: time.Now(),
		CaptureID: captureID,
		Detail:    detail,
	})
}

func newCaptureID() string {
	return uuid.NewString()
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

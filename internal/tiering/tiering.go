// Package tiering runs the periodic sweep that reclassifies captures from
// hot to warm to cold storage as they age, announcing the vector
// requantization that should accompany each move via the event bus rather
// than rewriting vector rows in place. The sweep shape mirrors the
// teacher's maintenance-cleanup idiom: select a batch past a cutoff, act on
// each, report a count.
package tiering

import (
	"context"
	"time"

	"engram/internal/clock"
	"engram/internal/config"
	"engram/internal/events"
	"engram/internal/logging"
	"engram/internal/store"
	"engram/internal/types"
)

// Sweeper demotes captures between storage tiers on a schedule.
type Sweeper struct {
	store    *store.LocalStore
	clock    clock.Clock
	bus      *events.Bus
	hotDays  int
	warmDays int
	warmFmt  types.VectorFormat
	coldFmt  types.VectorFormat
	interval time.Duration
}

// New builds a Sweeper from storage configuration.
func New(localStore *store.LocalStore, c clock.Clock, bus *events.Bus, cfg config.StorageConfig) *Sweeper {
	return &Sweeper{
		store:    localStore,
		clock:    c,
		bus:      bus,
		hotDays:  cfg.HotDays,
		warmDays: cfg.WarmDays,
		warmFmt:  types.VectorFormat(cfg.Quantization.WarmFormat),
		coldFmt:  types.VectorFormat(cfg.Quantization.ColdFormat),
		interval: time.Duration(cfg.PurgeIntervalHours) * time.Hour,
	}
}

// Run loops until ctx is cancelled, sweeping once immediately and then once
// per interval.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweepOnce()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

// SweepResult reports how many captures moved to each tier in one pass.
type SweepResult struct {
	PromotedToWarm int
	PromotedToCold int
}

func (s *Sweeper) sweepOnce() {
	result, err := s.Sweep()
	if err != nil {
		logging.TieringDebug("sweep failed: %v", err)
		return
	}
	if result.PromotedToWarm > 0 || result.PromotedToCold > 0 {
		logging.Tiering("sweep moved %d captures to warm, %d to cold", result.PromotedToWarm, result.PromotedToCold)
	}
}

// Sweep runs a single tiering pass: hot captures older than hotDays move to
// warm (and requantize to warmFmt), warm captures older than warmDays move
// to cold (and requantize to coldFmt).
func (s *Sweeper) Sweep() (SweepResult, error) {
	now := s.clock.Now()
	var result SweepResult

	warmCutoff := now.Add(-time.Duration(s.hotDays) * 24 * time.Hour)
	hotIDs, err := s.store.CapturesOlderThan(warmCutoff, types.TierHot)
	if err != nil {
		return result, err
	}
	for _, id := range hotIDs {
		if err := s.store.SetCaptureTier(id, types.TierWarm, s.warmFmt); err != nil {
			logging.TieringDebug("promote %s to warm: %v", id, err)
			continue
		}
		result.PromotedToWarm++
		s.publishTierChange(id, types.TierWarm, s.warmFmt, now)
	}

	coldCutoff := now.Add(-time.Duration(s.warmDays) * 24 * time.Hour)
	warmIDs, err := s.store.CapturesOlderThan(coldCutoff, types.TierWarm)
	if err != nil {
		return result, err
	}
	for _, id := range warmIDs {
		if err := s.store.SetCaptureTier(id, types.TierCold, s.coldFmt); err != nil {
			logging.TieringDebug("promote %s to cold: %v", id, err)
			continue
		}
		result.PromotedToCold++
		s.publishTierChange(id, types.TierCold, s.coldFmt, now)
	}

	return result, nil
}

// publishTierChange announces a capture's tier demotion and the vector
// requantization that accompanies it. The vector rows themselves are not
// rewritten here (see DESIGN.md); the event marks the format a reader
// should now expect for this capture's vector.
func (s *Sweeper) publishTierChange(captureID string, tier types.StorageTier, format types.VectorFormat, now time.Time) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(types.DomainEvent{
		Kind:      types.EventTierChanged,
		Timestamp: now,
		CaptureID: captureID,
		Detail:    string(tier),
	})
	s.bus.Publish(types.DomainEvent{
		Kind:      types.EventVectorQuantized,
		Timestamp: now,
		CaptureID: captureID,
		Detail:    string(format),
	})
}

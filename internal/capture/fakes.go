package capture

import (
	"context"
	"fmt"

	"engram/internal/clock"
	"engram/internal/types"
)

// FakeScreenSource replays a fixed sequence of screen captures, one per
// Next call, looping once exhausted. Stands in for the real OCR-backed
// screen source in tests and local runs without a capture backend.
type FakeScreenSource struct {
	Entries []types.Capture
	clock   clock.Clock
	idx     int
}

// NewFakeScreenSource builds a source over entries, stamping each with an
// id and timestamp from clock as it is produced.
func NewFakeScreenSource(entries []types.Capture, c clock.Clock) *FakeScreenSource {
	return &FakeScreenSource{Entries: entries, clock: c}
}

func (s *FakeScreenSource) Next(ctx context.Context) (types.Capture, error) {
	if len(s.Entries) == 0 {
		return types.Capture{}, fmt.Errorf("capture: no screen entries configured")
	}
	c := s.Entries[s.idx%len(s.Entries)]
	s.idx++
	c.Kind = types.ContentScreen
	c.ID = fmt.Sprintf("screen-%d", s.idx)
	c.Timestamp = s.clock.Now()
	return c, nil
}

// FakeAudioSource replays a fixed sequence of transcribed audio chunks.
type FakeAudioSource struct {
	Entries []types.Capture
	clock   clock.Clock
	idx     int
}

func NewFakeAudioSource(entries []types.Capture, c clock.Clock) *FakeAudioSource {
	return &FakeAudioSource{Entries: entries, clock: c}
}

func (s *FakeAudioSource) Next(ctx context.Context) (types.Capture, error) {
	if len(s.Entries) == 0 {
		return types.Capture{}, fmt.Errorf("capture: no audio entries configured")
	}
	c := s.Entries[s.idx%len(s.Entries)]
	s.idx++
	c.Kind = types.ContentAudio
	c.ID = fmt.Sprintf("audio-%d", s.idx)
	c.Timestamp = s.clock.Now()
	return c, nil
}

// FakeDictationSource replays a fixed sequence of dictation entries.
type FakeDictationSource struct {
	Entries []types.Capture
	clock   clock.Clock
	idx     int
}

func NewFakeDictationSource(entries []types.Capture, c clock.Clock) *FakeDictationSource {
	return &FakeDictationSource{Entries: entries, clock: c}
}

func (s *FakeDictationSource) Next(ctx context.Context) (types.Capture, error) {
	if len(s.Entries) == 0 {
		return types.Capture{}, fmt.Errorf("capture: no dictation entries configured")
	}
	c := s.Entries[s.idx%len(s.Entries)]
	s.idx++
	c.Kind = types.ContentDictation
	c.ID = fmt.Sprintf("dictation-%d", s.idx)
	c.Timestamp = s.clock.Now()
	return c, nil
}

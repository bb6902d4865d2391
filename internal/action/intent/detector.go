package intent

import (
	"strings"

	"github.com/google/uuid"

	"engram/internal/clock"
	"engram/internal/logging"
	"engram/internal/types"
)

const maxDetectTextBytes = 10 * 1024

// Detector turns raw captured text into a set of detected intents, applying
// confidence filtering, deduplication, and (for reminders only) time
// extraction.
type Detector struct {
	minConfidence float32
	timeParser    *TimeParser
	clock         clock.Clock
}

// New builds a detector. minConfidence filters the final result set;
// matches below it are dropped.
func New(minConfidence float64, c clock.Clock) *Detector {
	return &Detector{
		minConfidence: float32(minConfidence),
		timeParser:    NewTimeParser(c),
		clock:         c,
	}
}

// Detect analyzes text captured from sourceCaptureID and returns, for each
// intent type, the highest-confidence match whose confidence clears the
// configured threshold, highest confidence first; a match whose lowercased
// extracted action repeats an earlier one is dropped as well.
func (d *Detector) Detect(text, sourceCaptureID string) []types.Intent {
	if len(text) > maxDetectTextBytes {
		text = text[:maxDetectTextBytes]
	}

	matches := detect(text)
	seen := make(map[string]bool, len(matches))
	seenType := make(map[types.IntentType]bool, len(matches))
	now := d.clock.Now()

	intents := make([]types.Intent, 0, len(matches))
	for _, m := range matches {
		if m.Confidence < d.minConfidence {
			continue
		}
		key := strings.ToLower(m.ExtractedAction)
		if key == "" {
			key = strings.ToLower(m.MatchedText)
		}
		if seen[key] || seenType[m.IntentType] {
			continue
		}
		seen[key] = true
		seenType[m.IntentType] = true

		in := types.Intent{
			ID:              uuid.NewString(),
			Type:            m.IntentType,
			RawText:         text,
			ActionPhrase:    m.ExtractedAction,
			Confidence:      float64(m.Confidence),
			SourceCaptureID: sourceCaptureID,
			DetectedAt:      now,
		}

		if m.IntentType == types.IntentReminder {
			if ts, ok := d.timeParser.Parse(text); ok {
				in.ExtractedTime = &ts
			}
		}

		intents = append(intents, in)
	}

	if len(intents) > 0 {
		logging.ActionDebug("detected %d intent(s) above threshold %.2f", len(intents), d.minConfidence)
	}
	return intents
}

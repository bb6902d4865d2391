// Package intent detects actionable intent in captured text: reminders,
// tasks, questions, notes, URL actions, and shell commands, each scored
// with a confidence in [0,1], plus a companion natural-language time
// expression parser for reminder scheduling.
package intent

import (
	"regexp"
	"sort"
	"strings"

	"engram/internal/types"
)

// pattern is a single compiled detection rule.
type pattern struct {
	re         *regexp.Regexp
	intentType types.IntentType
	confidence float32
}

// Match is one detection result from Detector.Detect, before confidence
// filtering and deduplication.
type Match struct {
	IntentType types.IntentType
	Confidence float32
	MatchedText string
	ExtractedAction string
}

var allPatterns []pattern

func init() {
	allPatterns = append(allPatterns, compile(reminderPatterns, types.IntentReminder)...)
	allPatterns = append(allPatterns, compile(taskPatterns, types.IntentTask)...)
	allPatterns = append(allPatterns, compile(questionPatterns, types.IntentQuestion)...)
	allPatterns = append(allPatterns, compile(notePatterns, types.IntentNote)...)
	allPatterns = append(allPatterns, compile(urlPatterns, types.IntentURLAction)...)
	allPatterns = append(allPatterns, compile(commandPatterns, types.IntentCommand)...)
}

type rawPattern struct {
	expr       string
	confidence float32
}

func compile(raw []rawPattern, t types.IntentType) []pattern {
	out := make([]pattern, 0, len(raw))
	for _, r := range raw {
		out = append(out, pattern{
			re:         regexp.MustCompile(`(?i)` + r.expr),
			intentType: t,
			confidence: r.confidence,
		})
	}
	return out
}

// Reminder patterns: explicit phrasings score high, heuristic obligation
// forms score low.
var reminderPatterns = []rawPattern{
	{`\bremind\s+me\s+to\b(.+)`, 0.95},
	{`\bset\s+a\s+reminder\s+(?:to|for)\b(.+)`, 0.95},
	{`\bset\s+reminder\b(.+)`, 0.93},
	{`\bdon'?t\s+(?:let\s+me\s+)?forget\s+to\b(.+)`, 0.92},
	{`\bremember\s+to\b(.+)`, 0.90},
	{`\balert\s+me\s+(?:to|about|when)\b(.+)`, 0.90},
	{`\bnotify\s+me\s+(?:to|about|when)\b(.+)`, 0.90},
	{`\bping\s+me\s+(?:to|about|when)\b(.+)`, 0.88},
	{`\bremind\s+me\s+(?:about|at|in|on)\b(.+)`, 0.92},
	{`\breminder:\s*(.+)`, 0.93},
	{`\bgive\s+me\s+a\s+reminder\b(.+)`, 0.90},
	{`\bwake\s+me\s+(?:up\s+)?at\b(.+)`, 0.88},
	{`\balarm\s+(?:at|for|in)\b(.+)`, 0.88},
	{`\bschedule\s+(?:a\s+)?reminder\b(.+)`, 0.90},
	{`\bremind\s+me\b(.*)`, 0.88},
	{`\bat\s+\d{1,2}(?::\d{2})?\s*(?:am|pm)?\s*(?:remind|alert|notify)\b(.+)`, 0.88},
	{`\bin\s+\d+\s+(?:minutes?|hours?|mins?|hrs?)\s+remind\b(.+)`, 0.88},
	{`\btomorrow\s+remind\s+me\b(.+)`, 0.90},
	{`\bneed\s+to\s+remember\b(.+)`, 0.65},
	{`\bshould\s+remember\s+to\b(.+)`, 0.60},
	{`\bcan'?t\s+forget\s+to\b(.+)`, 0.70},
}

var taskPatterns = []rawPattern{
	{`\bTODO:\s*(.+)`, 0.95},
	{`\bFIXME:\s*(.+)`, 0.95},
	{`\bACTION:\s*(.+)`, 0.95},
	{`\bHACK:\s*(.+)`, 0.93},
	{`\bXXX:\s*(.+)`, 0.92},
	{`\bBUG:\s*(.+)`, 0.93},
	{`\bTODO\b\s*(.+)`, 0.90},
	{`\bFIXME\b\s*(.+)`, 0.90},
	{`\btask:\s*(.+)`, 0.92},
	{`\badd\s+(?:a\s+)?task\s+(?:to|for)\b(.+)`, 0.90},
	{`\bcreate\s+(?:a\s+)?task\b(.+)`, 0.90},
	{`\bnew\s+task:\s*(.+)`, 0.92},
	{`\baction\s+item:\s*(.+)`, 0.92},
	{`\bneed\s+to\s+(?:get|do|make|send|write|call|fix|update|check|review|finish|complete|submit|prepare|create|build|test|deploy|clean|organize|schedule|plan)\b(.+)`, 0.70},
	{`\bshould\s+(?:get|do|make|send|write|call|fix|update|check|review|finish|complete|submit|prepare|create|build|test|deploy|clean|organize|schedule|plan)\b(.+)`, 0.65},
	{`\bhave\s+to\s+(?:get|do|make|send|write|call|fix|update|check|review|finish|complete|submit|prepare|create|build|test|deploy|clean|organize|schedule|plan)\b(.+)`, 0.68},
	{`\bmust\s+(?:get|do|make|send|write|call|fix|update|check|review|finish|complete|submit|prepare|create|build|test|deploy|clean|organize|schedule|plan)\b(.+)`, 0.70},
	{`\bgotta\s+(?:get|do|make|send|write|call|fix|update|check|review|finish|complete)\b(.+)`, 0.65},
	{`\bgoing\s+to\s+need\s+to\b(.+)`, 0.62},
	{`\bassigned\s+to\s+me:\s*(.+)`, 0.88},
	{`\bfollow\s+up\s+(?:on|with)\b(.+)`, 0.72},
}

var questionPatterns = []rawPattern{
	{`\bwhat\s+is\b(.+)\?`, 0.90},
	{`\bhow\s+(?:do|does|can|should|would|to)\b(.+)\?`, 0.90},
	{`\bwhy\s+(?:did|does|is|was|do|would|should)\b(.+)\?`, 0.88},
	{`\bwhen\s+(?:will|is|was|does|did|should)\b(.+)\?`, 0.88},
	{`\bwhere\s+(?:is|are|was|were|do|does|can)\b(.+)\?`, 0.88},
	{`\bwho\s+(?:is|was|are|does|did|can|will)\b(.+)\?`, 0.88},
	{`\bwhich\s+\w+\b(.+)\?`, 0.85},
	{`\bcan\s+(?:you|someone|we|I)\b(.+)\?`, 0.80},
	{`\bis\s+(?:it|this|that|there)\b(.+)\?`, 0.78},
	{`\bdo\s+(?:you|we|they)\s+know\b(.+)\?`, 0.82},
	{`\bwhat'?s\b(.+)\?`, 0.85},
	{`\bhow\s+come\b(.+)\?`, 0.82},
}

var notePatterns = []rawPattern{
	{`\bnote\s+to\s+self:\s*(.+)`, 0.90},
	{`\bnote:\s*(.+)`, 0.88},
	{`\bjot\s+(?:this\s+)?down:\s*(.+)`, 0.88},
	{`\bjot\s+down\b(.+)`, 0.82},
	{`\bwrite\s+(?:this\s+)?down:\s*(.+)`, 0.85},
	{`\bwrite\s+down\b(.+)`, 0.80},
	{`\bsave\s+(?:this\s+)?note:\s*(.+)`, 0.88},
	{`\bquick\s+note:\s*(.+)`, 0.90},
	{`\bmemo:\s*(.+)`, 0.88},
	{`\btake\s+(?:a\s+)?note\b(.+)`, 0.85},
	{`#(\w+)`, 0.70},
	{`\bfor\s+future\s+reference:\s*(.+)`, 0.82},
}

var urlPatterns = []rawPattern{
	{`\bopen\s+(https?://\S+)`, 0.85},
	{`\bvisit\s+(https?://\S+)`, 0.85},
	{`\bgo\s+to\s+(https?://\S+)`, 0.85},
	{`\bcheck\s+out\s+(https?://\S+)`, 0.82},
	{`\bbrowse\s+(?:to\s+)?(https?://\S+)`, 0.82},
	{`\bnavigate\s+to\s+(https?://\S+)`, 0.82},
	{`\bopen\s+(?:this\s+)?(?:link|url|page|site):\s*(https?://\S+)`, 0.85},
	{`\bclick\s+(?:on\s+)?(https?://\S+)`, 0.78},
	{`\bfollow\s+(?:this\s+)?link:\s*(https?://\S+)`, 0.80},
	{`(https?://\S+)`, 0.65},
	{`\bopen\s+(www\.\S+)`, 0.80},
}

// Command patterns cap at 0.70 in detect(), regardless of base confidence.
var commandPatterns = []rawPattern{
	{`\brun\s+(?:the\s+)?command\b(.+)`, 0.70},
	{`\bexecute\s+(?:the\s+)?command\b(.+)`, 0.70},
	{`\bstart\s+(?:the\s+)?(?:process|service|server|app)\b(.+)`, 0.68},
	{`\blaunch\s+(?:the\s+)?(?:app|application|program|process)\b(.+)`, 0.68},
	{`\brun\s*[` + "`" + `'"](.*?)[` + "`" + `'"]`, 0.70},
	{`\bexecute\s*[` + "`" + `'"](.*?)[` + "`" + `'"]`, 0.70},
	{`\b(?:sudo|bash|sh|cmd)\s+(.+)`, 0.68},
	{`\bopen\s+terminal\s+(?:and\s+)?(?:run|execute)\b(.+)`, 0.68},
	{`\bkill\s+(?:the\s+)?(?:process|service|server)\b(.+)`, 0.65},
	{`\brestart\s+(?:the\s+)?(?:process|service|server)\b(.+)`, 0.65},
	{`\bstop\s+(?:the\s+)?(?:process|service|server)\b(.+)`, 0.65},
}

var pastTenseRe = regexp.MustCompile(`(?i)\b(?:remembered|reminded|recalled|forgot|noted)\s+(?:that|when|how|about|the)\b`)

// detect runs every compiled pattern against text and returns all matches,
// sorted by descending confidence. Past-tense retrospection is dropped and
// command confidence is clamped to 0.70.
func detect(text string) []Match {
	var matches []Match
	for _, p := range allPatterns {
		loc := p.re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		matchedText := text[loc[0]:loc[1]]
		if pastTenseRe.MatchString(text) {
			continue
		}
		extracted := ""
		if len(loc) >= 4 && loc[2] >= 0 && loc[3] >= 0 {
			extracted = strings.TrimSpace(text[loc[2]:loc[3]])
		}

		confidence := p.confidence
		if p.intentType == types.IntentCommand && confidence > 0.70 {
			confidence = 0.70
		}

		matches = append(matches, Match{
			IntentType:      p.intentType,
			Confidence:      confidence,
			MatchedText:     matchedText,
			ExtractedAction: extracted,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

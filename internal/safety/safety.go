// Package safety implements the gate that inspects captured text before it
// enters the ingestion pipeline: custom deny patterns short-circuit to a
// denial, otherwise credit card, SSN, email, and phone number PII is
// redacted in place.
package safety

import (
	"strings"
	"sync"

	"engram/internal/config"
	"engram/internal/logging"
)

// Decision is the outcome of a Gate.Check call.
type Decision struct {
	Allowed        bool
	Denied         bool
	DenyReason     string
	Text           string // redacted text, valid when Allowed && RedactionCount > 0
	RedactionCount int
}

// Gate checks capture text against the configured PII and deny-pattern
// rules. Its configuration may be swapped at runtime by UpdateConfig (the
// config file watcher does this on change), so access is guarded by a
// mutex rather than left stateless.
type Gate struct {
	mu  sync.RWMutex
	cfg config.SafetyConfig
}

// New creates a safety gate from the given configuration.
func New(cfg config.SafetyConfig) *Gate {
	return &Gate{cfg: cfg}
}

// UpdateConfig swaps in a freshly loaded safety configuration. Safe to call
// concurrently with Check/Redact.
func (g *Gate) UpdateConfig(cfg config.SafetyConfig) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg = cfg
	logging.Safety("safety configuration reloaded: deny_patterns=%d", len(cfg.CustomDenyPatterns))
}

// Check inspects content and returns a decision. Custom deny patterns are
// checked first and take priority over redaction: a match denies the
// content outright regardless of any PII also present.
func (g *Gate) Check(content string) Decision {
	g.mu.RLock()
	cfg := g.cfg
	g.mu.RUnlock()

	for _, pattern := range cfg.CustomDenyPatterns {
		if pattern != "" && strings.Contains(content, pattern) {
			logging.SafetyDebug("deny pattern matched: %q", pattern)
			return Decision{Denied: true, DenyReason: "custom deny pattern matched: " + pattern}
		}
	}

	redacted := content
	total := 0

	if cfg.CreditCardRedaction {
		text, count := redactCreditCards(redacted)
		redacted, total = text, total+count
	}
	if cfg.SSNRedaction {
		text, count := redactSSNs(redacted)
		redacted, total = text, total+count
	}
	if cfg.PiiDetection {
		text, count := redactEmails(redacted)
		redacted, total = text, total+count
	}
	if cfg.PhoneRedaction {
		text, count := RedactPhoneNumbers(redacted)
		redacted, total = text, total+count
	}

	if total > 0 {
		logging.Safety("redacted %d PII match(es)", total)
		return Decision{Allowed: true, Text: redacted, RedactionCount: total}
	}
	return Decision{Allowed: true, Text: content}
}

// Redact is a convenience wrapper: returns the cleaned text, or a fixed
// placeholder if the gate denied the content outright.
func (g *Gate) Redact(content string) string {
	d := g.Check(content)
	if d.Denied {
		return "[REDACTED]"
	}
	return d.Text
}

// luhnCheck validates a digit sequence using the Luhn checksum, a necessary
// (not sufficient) condition for a valid card number.
func luhnCheck(digits []int) bool {
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	for i, d := range digits {
		posFromEnd := len(digits) - 1 - i
		if posFromEnd%2 == 1 {
			doubled := d * 2
			if doubled > 9 {
				doubled -= 9
			}
			sum += doubled
		} else {
			sum += d
		}
	}
	return sum%10 == 0
}

// redactCreditCards replaces runs of 13-19 digits (optionally interspersed
// with spaces or dashes) that pass the Luhn check with [CC_REDACTED].
func redactCreditCards(text string) (string, int) {
	chars := []rune(text)
	var out strings.Builder
	out.Grow(len(text))
	count := 0
	i := 0

	for i < len(chars) {
		if isDigit(chars[i]) {
			start := i
			digitCount := 0
			for i < len(chars) && (isDigit(chars[i]) || chars[i] == ' ' || chars[i] == '-') {
				if isDigit(chars[i]) {
					digitCount++
				}
				i++
			}
			for i > start && !isDigit(chars[i-1]) {
				i--
			}

			if digitCount >= 13 && digitCount <= 19 {
				digits := make([]int, 0, digitCount)
				for _, c := range chars[start:i] {
					if isDigit(c) {
						digits = append(digits, int(c-'0'))
					}
				}
				if luhnCheck(digits) {
					out.WriteString("[CC_REDACTED]")
					count++
				} else {
					out.WriteString(string(chars[start:i]))
				}
			} else {
				out.WriteString(string(chars[start:i]))
			}
		} else {
			out.WriteRune(chars[i])
			i++
		}
	}
	return out.String(), count
}

// redactSSNs replaces XXX-XX-XXXX patterns with [SSN_REDACTED].
func redactSSNs(text string) (string, int) {
	chars := []rune(text)
	var out strings.Builder
	out.Grow(len(text))
	count := 0
	i := 0

	for i < len(chars) {
		if isSSNAt(chars, i) {
			out.WriteString("[SSN_REDACTED]")
			count++
			i += 11 // "XXX-XX-XXXX" is 11 runes
		} else {
			out.WriteRune(chars[i])
			i++
		}
	}
	return out.String(), count
}

func isSSNAt(chars []rune, pos int) bool {
	if pos+10 >= len(chars) {
		return false
	}
	return isDigit(chars[pos]) && isDigit(chars[pos+1]) && isDigit(chars[pos+2]) &&
		chars[pos+3] == '-' &&
		isDigit(chars[pos+4]) && isDigit(chars[pos+5]) &&
		chars[pos+6] == '-' &&
		isDigit(chars[pos+7]) && isDigit(chars[pos+8]) && isDigit(chars[pos+9]) && isDigit(chars[pos+10])
}

// redactEmails replaces email addresses with [EMAIL_REDACTED], scanning
// outward from each '@' for the local and domain parts. Builds the result
// as a rune buffer so an already-emitted local part can be truncated once
// the '@' confirms it was actually an email.
func redactEmails(text string) (string, int) {
	chars := []rune(text)
	n := len(chars)
	out := make([]rune, 0, n)
	count := 0
	i := 0

	for i < n {
		if chars[i] != '@' {
			out = append(out, chars[i])
			i++
			continue
		}

		localStart := i
		for localStart > 0 && isEmailLocalChar(chars[localStart-1]) {
			localStart--
		}

		domainEnd := i + 1
		hasDot := false
		for domainEnd < n && isEmailDomainChar(chars[domainEnd]) {
			if chars[domainEnd] == '.' {
				hasDot = true
			}
			domainEnd++
		}
		for domainEnd > i+1 && (chars[domainEnd-1] == '.' || chars[domainEnd-1] == '-') {
			if chars[domainEnd-1] == '.' {
				hasDot = strings.ContainsRune(string(chars[i+1:domainEnd-1]), '.')
			}
			domainEnd--
		}

		localLen := i - localStart
		domainLen := domainEnd - (i + 1)

		if localLen > 0 && domainLen >= 3 && hasDot {
			out = out[:len(out)-localLen]
			out = append(out, []rune("[EMAIL_REDACTED]")...)
			count++
			i = domainEnd
		} else {
			out = append(out, chars[i])
			i++
		}
	}
	return string(out), count
}

func isEmailLocalChar(c rune) bool {
	return isAlnum(c) || c == '.' || c == '+' || c == '-' || c == '_'
}

func isEmailDomainChar(c rune) bool {
	return isAlnum(c) || c == '.' || c == '-'
}

// RedactPhoneNumbers replaces US phone numbers in several common formats
// with [REDACTED-PHONE]. Boundary guards avoid false positives on IP
// addresses, version strings, order numbers, and URL path segments.
func RedactPhoneNumbers(text string) (string, int) {
	chars := []rune(text)
	n := len(chars)
	var out strings.Builder
	out.Grow(len(text))
	count := 0
	i := 0

	for i < n {
		if end, ok := tryMatchPhone(chars, i, n); ok {
			badPrefix := i > 0 && (isAlnum(chars[i-1]) || chars[i-1] == '/' || chars[i-1] == '#' || chars[i-1] == '@')
			badSuffix := end < n && isAlnum(chars[end])

			if badPrefix || badSuffix {
				out.WriteRune(chars[i])
				i++
			} else {
				out.WriteString("[REDACTED-PHONE]")
				count++
				i = end
			}
		} else {
			out.WriteRune(chars[i])
			i++
		}
	}
	return out.String(), count
}

func tryMatchPhone(chars []rune, pos, n int) (int, bool) {
	if chars[pos] == '+' && pos+1 < n && chars[pos+1] == '1' {
		if pos+12 <= n {
			allDigits := true
			for j := 2; j < 12; j++ {
				if !isDigit(chars[pos+j]) {
					allDigits = false
					break
				}
			}
			if allDigits {
				if pos+12 < n && isDigit(chars[pos+12]) {
					return 0, false
				}
				return pos + 12, true
			}
		}
		if pos+15 <= n &&
			chars[pos+2] == ' ' &&
			isDigit(chars[pos+3]) && isDigit(chars[pos+4]) && isDigit(chars[pos+5]) &&
			chars[pos+6] == ' ' &&
			isDigit(chars[pos+7]) && isDigit(chars[pos+8]) && isDigit(chars[pos+9]) &&
			chars[pos+10] == ' ' &&
			isDigit(chars[pos+11]) && isDigit(chars[pos+12]) && isDigit(chars[pos+13]) && isDigit(chars[pos+14]) {
			return pos + 15, true
		}
		return 0, false
	}

	if chars[pos] == '(' {
		if pos+13 <= n &&
			isDigit(chars[pos+1]) && isDigit(chars[pos+2]) && isDigit(chars[pos+3]) &&
			chars[pos+4] == ')' {
			if pos+14 <= n &&
				chars[pos+5] == ' ' &&
				isDigit(chars[pos+6]) && isDigit(chars[pos+7]) && isDigit(chars[pos+8]) &&
				chars[pos+9] == '-' &&
				isDigit(chars[pos+10]) && isDigit(chars[pos+11]) && isDigit(chars[pos+12]) && isDigit(chars[pos+13]) {
				return pos + 14, true
			}
			if isDigit(chars[pos+5]) && isDigit(chars[pos+6]) && isDigit(chars[pos+7]) &&
				chars[pos+8] == '-' &&
				isDigit(chars[pos+9]) && isDigit(chars[pos+10]) && isDigit(chars[pos+11]) && isDigit(chars[pos+12]) {
				return pos + 13, true
			}
		}
		return 0, false
	}

	if isDigit(chars[pos]) {
		if pos+2 < n && isDigit(chars[pos+1]) && isDigit(chars[pos+2]) {
			sepPos := pos + 3
			if sepPos < n {
				sep := chars[sepPos]
				if sep == '-' || sep == '.' {
					if sepPos+8 <= n &&
						isDigit(chars[sepPos+1]) && isDigit(chars[sepPos+2]) && isDigit(chars[sepPos+3]) &&
						chars[sepPos+4] == sep &&
						isDigit(chars[sepPos+5]) && isDigit(chars[sepPos+6]) && isDigit(chars[sepPos+7]) && isDigit(chars[sepPos+8]) {
						end := sepPos + 9
						if sep == '.' {
							if end < n && chars[end] == '.' {
								return 0, false
							}
							if pos > 0 && chars[pos-1] == '.' {
								return 0, false
							}
						}
						return end, true
					}
				}
			}
		}
	}

	return 0, false
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }
func isAlnum(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

package safety

import (
	"testing"

	"engram/internal/config"
)

func defaultGate() *Gate {
	return New(config.SafetyConfig{
		PiiDetection:        true,
		CreditCardRedaction: true,
		SSNRedaction:        true,
		PhoneRedaction:      true,
	})
}

func TestRedactCreditCardWithDashes(t *testing.T) {
	d := defaultGate().Check("pay with 4111-1111-1111-1111 please")
	if !d.Allowed || d.Text != "pay with [CC_REDACTED] please" || d.RedactionCount != 1 {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestRedactCreditCardWithSpaces(t *testing.T) {
	d := defaultGate().Check("card 4111 1111 1111 1111 end")
	if d.Text != "card [CC_REDACTED] end" {
		t.Fatalf("expected redaction, got %q", d.Text)
	}
}

func TestShortNumbersNotRedacted(t *testing.T) {
	d := defaultGate().Check("order 12345 confirmed")
	if d.RedactionCount != 0 || !d.Allowed {
		t.Fatalf("expected unmodified allow, got %+v", d)
	}
}

func TestRedactSSN(t *testing.T) {
	d := defaultGate().Check("my ssn is 123-45-6789")
	if d.Text != "my ssn is [SSN_REDACTED]" || d.RedactionCount != 1 {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestPartialSSNNotRedacted(t *testing.T) {
	d := defaultGate().Check("phone 123-45-678")
	if d.RedactionCount != 0 {
		t.Fatalf("expected no redaction, got %+v", d)
	}
}

func TestRedactEmail(t *testing.T) {
	d := defaultGate().Check("contact user@example.com for info")
	if d.Text != "contact [EMAIL_REDACTED] for info" {
		t.Fatalf("unexpected text: %q", d.Text)
	}
}

func TestRedactMultipleEmails(t *testing.T) {
	d := defaultGate().Check("a@b.com and c@d.org")
	if d.Text != "[EMAIL_REDACTED] and [EMAIL_REDACTED]" || d.RedactionCount != 2 {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestCustomDenyPattern(t *testing.T) {
	gate := New(config.SafetyConfig{CustomDenyPatterns: []string{"password"}})
	d := gate.Check("my password is secret123")
	if !d.Denied {
		t.Fatalf("expected deny, got %+v", d)
	}
}

func TestUpdateConfigSwapsDenyPatterns(t *testing.T) {
	gate := New(config.SafetyConfig{CustomDenyPatterns: []string{"password"}})
	if d := gate.Check("my password is secret123"); !d.Denied {
		t.Fatalf("expected initial pattern to deny, got %+v", d)
	}

	gate.UpdateConfig(config.SafetyConfig{CustomDenyPatterns: []string{"secret-project"}})

	if d := gate.Check("my password is secret123"); d.Denied {
		t.Fatalf("expected old pattern to no longer deny after reload, got %+v", d)
	}
	if d := gate.Check("the secret-project launches soon"); !d.Denied {
		t.Fatalf("expected new pattern to deny after reload, got %+v", d)
	}
}

func TestCleanTextAllowed(t *testing.T) {
	d := defaultGate().Check("the weather is nice today")
	if !d.Allowed || d.RedactionCount != 0 || d.Denied {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestMultipleRedactionTypes(t *testing.T) {
	d := defaultGate().Check("ssn 123-45-6789 and email user@test.com")
	if d.RedactionCount != 2 {
		t.Fatalf("expected 2 redactions, got %+v", d)
	}
}

func TestRedactConvenienceDenied(t *testing.T) {
	gate := New(config.SafetyConfig{CustomDenyPatterns: []string{"secret"}})
	if got := gate.Redact("this is secret data"); got != "[REDACTED]" {
		t.Fatalf("expected placeholder, got %q", got)
	}
}

func TestLuhnValidVisa(t *testing.T) {
	digits := []int{4, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	if !luhnCheck(digits) {
		t.Fatal("expected Visa test number to pass Luhn")
	}
}

func TestLuhnInvalidNotRedacted(t *testing.T) {
	d := defaultGate().Check("card 4111111111111112 end")
	if d.RedactionCount != 0 {
		t.Fatalf("expected non-Luhn card left alone, got %+v", d)
	}
}

func TestPhoneFormats(t *testing.T) {
	cases := []struct{ in, want string }{
		{"call (555) 123-4567 now", "call [REDACTED-PHONE] now"},
		{"call (555)123-4567 now", "call [REDACTED-PHONE] now"},
		{"call 555-123-4567 now", "call [REDACTED-PHONE] now"},
		{"call +15551234567 now", "call [REDACTED-PHONE] now"},
		{"call +1 555 123 4567 now", "call [REDACTED-PHONE] now"},
		{"call 555.123.4567 now", "call [REDACTED-PHONE] now"},
	}
	for _, c := range cases {
		got, count := RedactPhoneNumbers(c.in)
		if got != c.want || count != 1 {
			t.Fatalf("RedactPhoneNumbers(%q) = (%q, %d), want (%q, 1)", c.in, got, count, c.want)
		}
	}
}

func TestPhoneBoundaryGuards(t *testing.T) {
	cases := []string{
		"server at 192.168.1.100",
		"IP 10.0.0.1 is local",
		"version 1.234.567.8901",
		"v2.0.3.4567",
		"http://api.com/users/5551234567/profile",
		"order #1234567890",
		"part A555-123-4567B",
		"user @555-123-4567",
	}
	for _, in := range cases {
		got, count := RedactPhoneNumbers(in)
		if got != in || count != 0 {
			t.Fatalf("RedactPhoneNumbers(%q) should not redact, got (%q, %d)", in, got, count)
		}
	}
}

func TestPhoneDisabledByConfig(t *testing.T) {
	gate := New(config.SafetyConfig{PhoneRedaction: false})
	d := gate.Check("call 555-123-4567 now")
	if d.RedactionCount != 0 {
		t.Fatalf("expected phone redaction disabled, got %+v", d)
	}
}

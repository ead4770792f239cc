package redact

import "testing"

func TestRedactDetectsOpenAIKey(t *testing.T) {
	s := "token=sk-1234567890abcdefghijklmnopqrs"
	result := Redact(s)
	if result.RedactionCount == 0 {
		t.Fatal("expected at least one redaction")
	}
}

func TestRedactIdempotent(t *testing.T) {
	s := "Authorization: Bearer abcdefghijklmnop and ghp_abcdefghijklmnopqrstu"
	first := Redact(s)
	second := Redact(first.Text)
	if second.RedactionCount != 0 {
		t.Errorf("second pass RedactionCount = %d, want 0", second.RedactionCount)
	}
}

func TestRedactNoFalsePositiveOnPlainText(t *testing.T) {
	s := "The quick brown fox jumps over the lazy dog."
	result := Redact(s)
	if result.RedactionCount != 0 {
		t.Errorf("RedactionCount = %d, want 0 for plain text", result.RedactionCount)
	}
	if result.Text != s {
		t.Errorf("Text = %q, want unchanged %q", result.Text, s)
	}
}

func TestAssertNoSensitiveTextFailsClosed(t *testing.T) {
	err := AssertNoSensitiveText("- token=sk-1234567890abcdefghijklmnopqrs", "memory_delta_insert")
	if err == nil {
		t.Fatal("expected SensitiveTextError")
	}
}

func TestAssertNoSensitiveTextAllowsCleanText(t *testing.T) {
	if err := AssertNoSensitiveText("no secrets here", "reviewer_notes"); err != nil {
		t.Errorf("AssertNoSensitiveText error = %v, want nil", err)
	}
}

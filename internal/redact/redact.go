// Package redact implements secret detection and redaction for memory-
// delta insert lines, patch bodies, and reviewer notes (spec.md §4.K).
package redact

import (
	"regexp"

	"github.com/CLIAIMONITOR/internal/corerr"
)

// pattern names a single detector: the secret kind it reports and the
// regexp that finds it.
type pattern struct {
	kind string
	re   *regexp.Regexp
}

var patterns = []pattern{
	{"OPENAI_API_KEY", regexp.MustCompile(`sk-\w{20,}`)},
	{"GITHUB_TOKEN", regexp.MustCompile(`gh[pousr]_\w{20,}`)},
	{"SLACK_TOKEN", regexp.MustCompile(`xox[bpa]-[A-Za-z0-9-]{10,}`)},
	{"BEARER_TOKEN", regexp.MustCompile(`Bearer \S{12,}`)},
	{"KEY_VALUE_SECRET", regexp.MustCompile(`(?i)\b(api[_-]?key|secret|token|password|passwd)\s*[:=]\s*['"]?[A-Za-z0-9+/_.=-]{8,}['"]?`)},
}

const redactedPlaceholder = "[REDACTED]"

// Result is the outcome of a redaction pass.
type Result struct {
	Text           string
	RedactionCount int
	MatchesByKind  map[string]int
}

// Redact returns s with every pattern match replaced by a fixed
// placeholder, along with how many replacements were made. Applying
// Redact a second time to its own output yields RedactionCount == 0
// (patterns only match literal secret material, never the placeholder).
func Redact(s string) Result {
	out := s
	byKind := map[string]int{}
	total := 0

	for _, p := range patterns {
		matches := p.re.FindAllStringIndex(out, -1)
		if len(matches) == 0 {
			continue
		}
		out = p.re.ReplaceAllString(out, redactedPlaceholder)
		byKind[p.kind] += len(matches)
		total += len(matches)
	}

	return Result{Text: out, RedactionCount: total, MatchesByKind: byKind}
}

// AssertNoSensitiveText fails closed with *corerr.SensitiveTextError if s
// contains anything a redaction pattern matches. Callers must not persist
// any side effects if this returns an error.
func AssertNoSensitiveText(s, label string) error {
	result := Redact(s)
	if result.RedactionCount == 0 {
		return nil
	}
	return &corerr.SensitiveTextError{
		ReasonCode:    "SECRET_DETECTED",
		ContextLabel:  label,
		MatchesByKind: result.MatchesByKind,
		TotalMatches:  result.RedactionCount,
	}
}

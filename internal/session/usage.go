package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/CLIAIMONITOR/internal/types"
)

// usageKeys are the field names that mark a JSON object as a usage
// candidate when walking a streamed line.
var usageKeys = []string{"total_tokens", "input_tokens", "output_tokens", "prompt_tokens", "completion_tokens"}

const maxWalkDepth = 8

// usageCandidate is one object found while walking a line's JSON tree that
// looks like a token-usage report.
type usageCandidate struct {
	input, cachedInput, output, reasoningOutput, total int64
	hasTotal                                           bool
}

// findUsageCandidates walks v (already json.Unmarshal'd into
// interface{}) up to maxWalkDepth, collecting every object containing at
// least one of usageKeys.
func findUsageCandidates(v interface{}, depth int) []usageCandidate {
	if depth > maxWalkDepth {
		return nil
	}
	var out []usageCandidate
	switch node := v.(type) {
	case map[string]interface{}:
		if isUsageCandidate(node) {
			out = append(out, normalizeCandidate(node))
		}
		for _, child := range node {
			out = append(out, findUsageCandidates(child, depth+1)...)
		}
	case []interface{}:
		for _, child := range node {
			out = append(out, findUsageCandidates(child, depth+1)...)
		}
	}
	return out
}

func isUsageCandidate(m map[string]interface{}) bool {
	for _, k := range usageKeys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return int64(f)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func normalizeCandidate(m map[string]interface{}) usageCandidate {
	var c usageCandidate
	if v, ok := m["input_tokens"]; ok {
		c.input = asInt64(v)
	} else if v, ok := m["prompt_tokens"]; ok {
		c.input = asInt64(v)
	}
	if v, ok := m["output_tokens"]; ok {
		c.output = asInt64(v)
	} else if v, ok := m["completion_tokens"]; ok {
		c.output = asInt64(v)
	}
	if v, ok := m["cached_input_tokens"]; ok {
		c.cachedInput = asInt64(v)
	}
	if v, ok := m["reasoning_output_tokens"]; ok {
		c.reasoningOutput = asInt64(v)
	}
	if v, ok := m["total_tokens"]; ok {
		c.total = asInt64(v)
		c.hasTotal = true
	} else {
		c.total = c.input + c.cachedInput + c.output + c.reasoningOutput
	}
	return c
}

// signature dedups candidates that report the same figures, per spec.md
// §4.F ("Deduplicate by normalized signature").
func (c usageCandidate) signature() string {
	return fmt.Sprintf("%d|%d|%d|%d|%d", c.input, c.cachedInput, c.output, c.reasoningOutput, c.total)
}

// ExtractUsage walks one streamed line's decoded JSON for usage
// candidates, deduplicates them, and returns the one with the highest
// total_tokens. ok is false if no candidate was found.
func ExtractUsage(line []byte) (types.Usage, bool) {
	var decoded interface{}
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return types.Usage{}, false
	}

	candidates := findUsageCandidates(decoded, 0)
	if len(candidates) == 0 {
		return types.Usage{}, false
	}

	seen := map[string]bool{}
	var deduped []usageCandidate
	for _, c := range candidates {
		sig := c.signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		deduped = append(deduped, c)
	}
	sort.Slice(deduped, func(i, j int) bool { return deduped[i].total > deduped[j].total })

	best := deduped[0]
	return types.Usage{
		Input:           best.input,
		CachedInput:     best.cachedInput,
		Output:          best.output,
		ReasoningOutput: best.reasoningOutput,
		Total:           best.total,
		Source:          types.UsageSourceProviderReported,
	}, true
}

// EstimateUsage produces a character-count-based usage estimate when no
// provider-reported usage was captured anywhere in the stream.
func EstimateUsage(stdinChars, stdoutAndStderrChars int) types.Usage {
	input := int64(math.Ceil(float64(stdinChars) / 4))
	output := int64(math.Ceil(float64(stdoutAndStderrChars) / 4))
	return types.Usage{
		Input:      input,
		Output:     output,
		Total:      input + output,
		Source:     types.UsageSourceEstimatedChars,
		Confidence: "low",
	}
}

// MergeBestUsage picks the highest-total candidate across all lines
// observed during a run's stream, falling back to an estimate if none
// reported usage.
func MergeBestUsage(candidates []types.Usage, stdinChars, stdoutAndStderrChars int) types.Usage {
	var best *types.Usage
	for i := range candidates {
		if best == nil || candidates[i].Total > best.Total {
			best = &candidates[i]
		}
	}
	if best == nil {
		return EstimateUsage(stdinChars, stdoutAndStderrChars)
	}
	return *best
}

package session

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/CLIAIMONITOR/internal/types"
)

// cycleSignalPattern matches streamed-line keys and JSON-RPC notification
// methods that indicate a provider performed context compaction or
// started a new context cycle.
var cycleSignalPattern = regexp.MustCompile(`(?i)compact|compaction|context.?window|cycle`)

// cycleSignal is one detected compaction/cycle marker before dedup.
// magnitude is the amount it contributes to the total: an integer-valued
// signal contributes its own magnitude; a matching key, string, or `true`
// contributes 1.
type cycleSignal struct {
	source     string
	signalType string
	lineIndex  int
	magnitude  int
}

func (s cycleSignal) key() string {
	return fmt.Sprintf("%s|%s|%d", s.source, s.signalType, s.lineIndex)
}

// scanLineForCycleSignals inspects one streamed line's decoded JSON object
// keys and values for anything matching cycleSignalPattern.
func scanLineForCycleSignals(line []byte, source string, lineIndex int) []cycleSignal {
	var decoded interface{}
	if err := json.Unmarshal(line, &decoded); err != nil {
		return nil
	}
	var out []cycleSignal
	walkForCycleKeys(decoded, source, lineIndex, &out)
	return out
}

// walkForCycleKeys descends into a decoded JSON value. A key matching
// cycleSignalPattern signals with its value's magnitude. A value that
// doesn't sit under a matching key is also tested on its own: a matching
// string contributes 1, since a compaction marker is often carried as a
// value ("subtype":"compaction") rather than the key name itself.
func walkForCycleKeys(v interface{}, source string, lineIndex int, out *[]cycleSignal) {
	switch node := v.(type) {
	case map[string]interface{}:
		for k, child := range node {
			switch {
			case cycleSignalPattern.MatchString(k):
				*out = append(*out, cycleSignal{source: source, signalType: k, lineIndex: lineIndex, magnitude: valueMagnitude(child)})
			default:
				if s, ok := child.(string); ok && cycleSignalPattern.MatchString(s) {
					*out = append(*out, cycleSignal{source: source, signalType: k + "=" + s, lineIndex: lineIndex, magnitude: 1})
				}
			}
			walkForCycleKeys(child, source, lineIndex, out)
		}
	case []interface{}:
		for _, child := range node {
			walkForCycleKeys(child, source, lineIndex, out)
		}
	}
}

// valueMagnitude returns the magnitude a matched key's value contributes:
// a JSON number at least 1 contributes its own value, anything else
// (string, bool, object, nil, or a number below 1) contributes a flat 1.
func valueMagnitude(v interface{}) int {
	n, ok := v.(float64)
	if !ok || n < 1 {
		return 1
	}
	return int(n)
}

// CollectContextCycles streams every line a run produced through
// scanLineForCycleSignals, deduplicates by (source, signal_type, line),
// and returns the tally as a types.ContextCycles: integer-valued signals
// contribute their magnitude, matching keys/strings contribute 1 each.
func CollectContextCycles(lines [][]byte, source string) types.ContextCycles {
	seen := map[string]bool{}
	total := 0
	for i, line := range lines {
		for _, sig := range scanLineForCycleSignals(line, source, i) {
			k := sig.key()
			if seen[k] {
				continue
			}
			seen[k] = true
			total += sig.magnitude
		}
	}

	if total == 0 {
		return types.ContextCycles{Source: types.ContextCyclesUnavailable}
	}
	return types.ContextCycles{
		Source: types.ContextCyclesProviderSignal,
		Count:  total,
	}
}

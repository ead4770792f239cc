package session

import (
	"testing"

	"github.com/CLIAIMONITOR/internal/types"
)

func TestCollectContextCyclesDetectsCompactionKey(t *testing.T) {
	lines := [][]byte{
		[]byte(`{"type":"system","subtype":"compaction","tokens_before":190000}`),
		[]byte(`{"type":"log","message":"nothing interesting"}`),
	}
	cycles := CollectContextCycles(lines, "stdout")
	if cycles.Source != types.ContextCyclesProviderSignal {
		t.Fatalf("Source = %q, want provider_signal", cycles.Source)
	}
	if cycles.Count != 1 {
		t.Errorf("Count = %d, want 1", cycles.Count)
	}
}

func TestCollectContextCyclesDetectsMethodNotification(t *testing.T) {
	lines := [][]byte{
		[]byte(`{"jsonrpc":"2.0","method":"context/compacted","params":{}}`),
	}
	cycles := CollectContextCycles(lines, "stdout")
	if cycles.Count != 1 {
		t.Errorf("Count = %d, want 1 for a method-name compaction notification", cycles.Count)
	}
}

func TestCollectContextCyclesUnavailableWhenNoSignal(t *testing.T) {
	lines := [][]byte{[]byte(`{"type":"log","message":"hello"}`)}
	cycles := CollectContextCycles(lines, "stdout")
	if cycles.Source != types.ContextCyclesUnavailable {
		t.Errorf("Source = %q, want unavailable", cycles.Source)
	}
}

func TestCollectContextCyclesDedupesWithinSameLine(t *testing.T) {
	lines := [][]byte{
		[]byte(`{"cycle_count":1,"context_window_pct":90}`),
	}
	cycles := CollectContextCycles(lines, "stdout")
	if cycles.Count < 1 {
		t.Errorf("Count = %d, want at least 1", cycles.Count)
	}
}

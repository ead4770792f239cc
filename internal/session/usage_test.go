package session

import (
	"testing"

	"github.com/CLIAIMONITOR/internal/types"
)

func TestExtractUsagePrefersTotalTokens(t *testing.T) {
	line := []byte(`{"type":"result","usage":{"input_tokens":100,"output_tokens":50,"total_tokens":150}}`)
	usage, ok := ExtractUsage(line)
	if !ok {
		t.Fatal("expected a usage candidate")
	}
	if usage.Total != 150 || usage.Input != 100 || usage.Output != 50 {
		t.Errorf("usage = %+v, want input=100 output=50 total=150", usage)
	}
	if usage.Source != types.UsageSourceProviderReported {
		t.Errorf("Source = %q, want provider_reported", usage.Source)
	}
}

func TestExtractUsageNestedDeep(t *testing.T) {
	line := []byte(`{"a":{"b":{"c":{"response":{"usage":{"prompt_tokens":10,"completion_tokens":5}}}}}}`)
	usage, ok := ExtractUsage(line)
	if !ok {
		t.Fatal("expected a usage candidate nested under several levels")
	}
	if usage.Input != 10 || usage.Output != 5 || usage.Total != 15 {
		t.Errorf("usage = %+v, want input=10 output=5 total=15 (derived)", usage)
	}
}

func TestExtractUsageNoCandidateFound(t *testing.T) {
	line := []byte(`{"type":"log","message":"starting up"}`)
	_, ok := ExtractUsage(line)
	if ok {
		t.Fatal("expected no usage candidate in a plain log line")
	}
}

func TestExtractUsageDedupesAndPicksHighestTotal(t *testing.T) {
	line := []byte(`{"events":[{"usage":{"total_tokens":10,"input_tokens":5,"output_tokens":5}},{"usage":{"total_tokens":200,"input_tokens":150,"output_tokens":50}}]}`)
	usage, ok := ExtractUsage(line)
	if !ok {
		t.Fatal("expected usage candidates")
	}
	if usage.Total != 200 {
		t.Errorf("Total = %d, want 200 (highest of the two candidates)", usage.Total)
	}
}

func TestEstimateUsageFallback(t *testing.T) {
	usage := EstimateUsage(400, 200)
	if usage.Input != 100 || usage.Output != 50 {
		t.Errorf("usage = %+v, want input=100 output=50 (chars/4)", usage)
	}
	if usage.Source != types.UsageSourceEstimatedChars || usage.Confidence != "low" {
		t.Errorf("Source/Confidence = %q/%q, want estimated_chars/low", usage.Source, usage.Confidence)
	}
}

func TestMergeBestUsageFallsBackToEstimate(t *testing.T) {
	usage := MergeBestUsage(nil, 40, 20)
	if usage.Source != types.UsageSourceEstimatedChars {
		t.Errorf("Source = %q, want estimated_chars when no candidates observed", usage.Source)
	}
}

func TestMergeBestUsagePicksHighest(t *testing.T) {
	candidates := []types.Usage{
		{Total: 50, Source: types.UsageSourceProviderReported},
		{Total: 300, Source: types.UsageSourceProviderReported},
	}
	usage := MergeBestUsage(candidates, 0, 0)
	if usage.Total != 300 {
		t.Errorf("Total = %d, want 300", usage.Total)
	}
}

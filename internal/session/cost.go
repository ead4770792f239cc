package session

import (
	"math"

	"github.com/CLIAIMONITOR/internal/types"
)

// EstimateCostUSD prices usage against cfg's per-1K-token rate card for
// provider, aliasing driver-specific names ("codex_app_server" ->
// "codex") via types.MachineConfig.RateCardKey. cached_input and
// reasoning_output fall back to the input/output rate respectively when
// the card doesn't break them out separately. Returns (0, "none") if no
// rate card is configured for the resolved key.
func EstimateCostUSD(cfg types.MachineConfig, provider string, usage types.Usage) (float64, string) {
	key := cfg.RateCardKey(provider)
	card, ok := cfg.ProviderPricingUSDPer1K[key]
	if !ok {
		return 0, "none"
	}

	cachedInputRate := card.CachedInput
	if cachedInputRate == 0 {
		cachedInputRate = card.Input
	}
	reasoningOutputRate := card.ReasoningOutput
	if reasoningOutputRate == 0 {
		reasoningOutputRate = card.Output
	}

	cost := float64(usage.Input)*card.Input/1000 +
		float64(usage.CachedInput)*cachedInputRate/1000 +
		float64(usage.Output)*card.Output/1000 +
		float64(usage.ReasoningOutput)*reasoningOutputRate/1000

	cost = math.Round(cost*1e9) / 1e9
	return cost, "rate_card:" + key
}

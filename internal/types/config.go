package types

// MachineConfig is loaded from .local/machine.yaml: the one workspace-local
// file that is not itself a workspace entity (it configures the engine
// that reads everything else).
type MachineConfig struct {
	SchemaVersion          int                          `yaml:"schema_version" json:"schema_version"`
	Type                   string                       `yaml:"type" json:"type"`
	RepoRoots              map[string]string             `yaml:"repo_roots" json:"repo_roots"`
	ProviderBins           map[string]string             `yaml:"provider_bins" json:"provider_bins"`
	ProviderPricingUSDPer1K map[string]ProviderRateCard  `yaml:"provider_pricing_usd_per_1k_tokens,omitempty" json:"provider_pricing_usd_per_1k_tokens,omitempty"`
	Notifications          NotificationsConfig          `yaml:"notifications,omitempty" json:"notifications,omitempty"`
}

// ProviderRateCard is one entry of MachineConfig.ProviderPricingUSDPer1K.
type ProviderRateCard struct {
	Input           float64 `yaml:"input" json:"input"`
	CachedInput     float64 `yaml:"cached_input,omitempty" json:"cached_input,omitempty"`
	Output          float64 `yaml:"output" json:"output"`
	ReasoningOutput float64 `yaml:"reasoning_output,omitempty" json:"reasoning_output,omitempty"`
}

// DefaultMachineConfig returns an empty but well-formed machine config,
// the shape `init` writes before an operator fills in repo_roots and
// provider_bins.
func DefaultMachineConfig() MachineConfig {
	return MachineConfig{
		SchemaVersion: SchemaVersion,
		Type:          "machine",
		RepoRoots:     map[string]string{},
		ProviderBins:  map[string]string{},
		Notifications: NotificationsConfig{
			NATS:  DefaultNotifyNATSConfig(),
			Toast: DefaultNotifyToastConfig(),
		},
	}
}

// providerAliases maps a driver-reported provider name to the rate-card
// key it should be priced under, mirroring the aliasing spec.md §4.F
// requires (codex_app_server -> codex, claude_code -> claude).
var providerAliases = map[string]string{
	"codex_app_server": "codex",
	"claude_code":      "claude",
}

// RateCardKey resolves a provider name to the key it should be looked up
// under in ProviderPricingUSDPer1K, applying known aliases and falling
// back to "default" when neither the provider nor its alias has a card.
func (m MachineConfig) RateCardKey(provider string) string {
	key := provider
	if alias, ok := providerAliases[provider]; ok {
		key = alias
	}
	if _, ok := m.ProviderPricingUSDPer1K[key]; ok {
		return key
	}
	if _, ok := m.ProviderPricingUSDPer1K["default"]; ok {
		return "default"
	}
	return ""
}

// MCPToolCall represents an incoming MCP tool invocation.
type MCPToolCall struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params"`
}

// MCPRequest is a JSON-RPC 2.0 request envelope.
type MCPRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// MCPResponse is a JSON-RPC 2.0 response envelope.
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError carries a JSON-RPC error response.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MCPNotification is a server-initiated, response-less JSON-RPC message.
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// WSMessage is the envelope the RPC transport stub (4.Q) broadcasts over
// its websocket hub.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Websocket broadcast message type constants.
const (
	WSTypeWorkspaceHome = "workspace_home"
	WSTypeReviewInbox   = "review_inbox"
	WSTypeRunMonitor    = "run_monitor"
	WSTypePolicyDenied  = "policy_denied"
)

// AlertThresholds are per-workspace supervisor alert limits, not part of
// persisted truth (runtime/derived only — see SPEC_FULL.md §3 supplement).
// Doctor does not read them.
type AlertThresholds struct {
	FailedRunsMax         int   `json:"failed_runs_max"`
	IdleTimeMaxSeconds    int   `json:"idle_time_max_seconds"`
	PendingReviewsMax     int   `json:"pending_reviews_max"`
	TokenUsageMax         int64 `json:"token_usage_max"`
}

// DefaultAlertThresholds returns sensible defaults.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		FailedRunsMax:      5,
		IdleTimeMaxSeconds: 600,
		PendingReviewsMax:  10,
		TokenUsageMax:      1_000_000,
	}
}

// ActivityLogEntry is a human-facing activity-feed entry emitted alongside
// event-log envelopes; derived/runtime only, never persisted as truth.
type ActivityLogEntry struct {
	AgentID   string `json:"agent_id"`
	Action    string `json:"action"`
	Details   string `json:"details"`
	Timestamp string `json:"timestamp"`
}

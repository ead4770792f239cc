package types

// NotificationsConfig configures the optional event-fanout bridge (4.P):
// republishing select event-log envelopes onto NATS and raising desktop
// toasts for attention-worthy ones. Loaded from .local/machine.yaml
// alongside MachineConfig, or defaulted when absent — the bridge is
// best-effort and never required for core writes to succeed.
type NotificationsConfig struct {
	NATS  NotifyNATSConfig  `yaml:"nats" json:"nats"`
	Toast NotifyToastConfig `yaml:"toast" json:"toast"`
}

// NotifyNATSConfig controls republishing event envelopes onto a NATS
// subject for external subscribers (the desktop shell, out of scope).
type NotifyNATSConfig struct {
	Enabled     bool     `yaml:"enabled" json:"enabled"`
	URL         string   `yaml:"url" json:"url"`
	SubjectTmpl string   `yaml:"subject_template" json:"subject_template"`
	EventTypes  []string `yaml:"event_types" json:"event_types"`
	// Embedded, when true, starts a local NATS broker in-process instead
	// of dialing URL against an externally managed one — a workspace can
	// fan out events without any separate broker deployment.
	Embedded     bool   `yaml:"embedded,omitempty" json:"embedded,omitempty"`
	EmbeddedPort int    `yaml:"embedded_port,omitempty" json:"embedded_port,omitempty"`
	EmbeddedDir  string `yaml:"embedded_data_dir,omitempty" json:"embedded_data_dir,omitempty"`
}

// DefaultNotifyNATSConfig mirrors the subjects named in SPEC_FULL.md 4.P.
func DefaultNotifyNATSConfig() NotifyNATSConfig {
	return NotifyNATSConfig{
		Enabled:     false,
		URL:         "nats://127.0.0.1:4222",
		SubjectTmpl: "agentcompany.%s.events",
		EventTypes: []string{
			EventTypePolicyDenied,
			EventTypeApprovalDecided,
			EventTypeRunEnded,
			EventTypeRunFailed,
		},
	}
}

// NotifyToastConfig controls desktop toast notifications for reviews
// entering the pending inbox and runs failing.
type NotifyToastConfig struct {
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	AppID        string `yaml:"app_id" json:"app_id"`
	DashboardURL string `yaml:"dashboard_url,omitempty" json:"dashboard_url,omitempty"`
}

// DefaultNotifyToastConfig returns sensible defaults.
func DefaultNotifyToastConfig() NotifyToastConfig {
	return NotifyToastConfig{Enabled: false, AppID: "AgentCompany"}
}

package notify

import (
	"testing"

	"github.com/CLIAIMONITOR/internal/types"
)

func defaultConfig() types.NotificationsConfig {
	return types.NotificationsConfig{
		NATS:  types.DefaultNotifyNATSConfig(),
		Toast: types.DefaultNotifyToastConfig(),
	}
}

func sampleEvent(eventType string) types.Event {
	return types.Event{
		SchemaVersion: types.SchemaVersion,
		EventID:       "evt_1",
		RunID:         "run_1",
		Actor:         "agent_1",
		Visibility:    types.VisibilityTeam,
		Type:          eventType,
		Payload:       map[string]interface{}{},
	}
}

func TestNewBridgeDisabledConfigIsNoOp(t *testing.T) {
	b := NewBridge(defaultConfig())
	if b.client != nil {
		t.Error("expected no NATS client when NATS is disabled")
	}
	if b.toast != nil {
		t.Error("expected no toast notifier when toast is disabled")
	}

	// None of these should panic even with both legs nil.
	b.PublishEvent("proj_1", sampleEvent("run.ended"))
	b.NotifyPendingReview("art_1", "memory_delta")
	b.NotifyRunFailed("run_1", "boom")
	b.Close()
}

func TestEventTypeEnabledFiltersBySubjectList(t *testing.T) {
	cfg := defaultConfig()
	b := &Bridge{cfg: cfg}
	if !b.eventTypeEnabled("approval.decided") {
		t.Error("approval.decided should be in the default event type list")
	}
	if b.eventTypeEnabled("provider.raw") {
		t.Error("provider.raw should not be in the default event type list")
	}
}

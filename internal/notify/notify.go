// Package notify implements the optional event-fanout bridge (spec.md
// §4.P): republishing select event-log envelopes onto a NATS subject for
// external subscribers, and raising a desktop toast when a review enters
// the pending inbox or a run fails. Both legs are best-effort — a
// notification failure never blocks or unwinds the workspace write that
// triggered it.
package notify

import (
	"fmt"

	"github.com/CLIAIMONITOR/internal/nats"
	"github.com/CLIAIMONITOR/internal/notifications"
	"github.com/CLIAIMONITOR/internal/obslog"
	"github.com/CLIAIMONITOR/internal/types"
)

var log = obslog.New("notify")

// Bridge fans out workspace events to NATS and desktop toasts per
// NotificationsConfig. A zero-value Bridge (from a disabled config) is a
// harmless no-op on every method.
type Bridge struct {
	cfg      types.NotificationsConfig
	client   *nats.Client
	embedded *nats.EmbeddedServer
	toast    *notifications.ToastNotifier
}

// NewBridge builds a Bridge from cfg. A NATS connection failure is logged
// and leaves the bridge's NATS leg disabled rather than failing init —
// the workspace must start with or without a reachable broker.
func NewBridge(cfg types.NotificationsConfig) *Bridge {
	b := &Bridge{cfg: cfg}

	if cfg.NATS.Enabled {
		url := cfg.NATS.URL
		if cfg.NATS.Embedded {
			if srv, err := startEmbeddedNATS(cfg.NATS); err != nil {
				log.Warnf("NATS bridge disabled: starting embedded broker: %v", err)
			} else {
				b.embedded = srv
				url = srv.URL()
			}
		}
		if b.embedded != nil || !cfg.NATS.Embedded {
			client, err := nats.NewClient(url)
			if err != nil {
				log.Warnf("NATS bridge disabled: %v", err)
				if b.embedded != nil {
					b.embedded.Shutdown()
					b.embedded = nil
				}
			} else {
				b.client = client
			}
		}
	}

	if cfg.Toast.Enabled {
		b.toast = notifications.NewToastNotifierWithURL(cfg.Toast.AppID, cfg.Toast.DashboardURL)
	}

	return b
}

// startEmbeddedNATS boots an in-process broker for NotifyNATSConfig.Embedded,
// defaulting its port and data directory when unset.
func startEmbeddedNATS(cfg types.NotifyNATSConfig) (*nats.EmbeddedServer, error) {
	port := cfg.EmbeddedPort
	if port == 0 {
		port = 4222
	}
	srv, err := nats.NewEmbeddedServer(nats.EmbeddedServerConfig{
		Port:      port,
		JetStream: cfg.EmbeddedDir != "",
		DataDir:   cfg.EmbeddedDir,
	})
	if err != nil {
		return nil, err
	}
	if err := srv.Start(); err != nil {
		return nil, err
	}
	return srv, nil
}

// Close releases the NATS connection and, if one was started, the
// in-process embedded broker.
func (b *Bridge) Close() {
	if b.client != nil {
		b.client.Close()
	}
	if b.embedded != nil {
		b.embedded.Shutdown()
	}
}

// eventTypeEnabled reports whether eventType is one of the configured
// subjects to republish.
func (b *Bridge) eventTypeEnabled(eventType string) bool {
	for _, t := range b.cfg.NATS.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// PublishEvent republishes ev onto the project's NATS subject if the
// bridge is connected and ev.Type is configured for republishing. Publish
// failures are logged, never returned — callers must not let the audit
// trail depend on a reachable broker.
func (b *Bridge) PublishEvent(projectID string, ev types.Event) {
	if b.client == nil || !b.eventTypeEnabled(ev.Type) {
		return
	}
	subject := fmt.Sprintf(b.cfg.NATS.SubjectTmpl, projectID)
	if err := b.client.PublishJSON(subject, ev); err != nil {
		log.Warnf("publishing %s to %s: %v", ev.Type, subject, err)
	}
}

// NotifyPendingReview raises a toast when an artifact enters the review
// inbox. A no-op (and not an error) on platforms without toast support or
// when the toast leg is disabled.
func (b *Bridge) NotifyPendingReview(artifactID, artifactType string) {
	if b.toast == nil || !b.toast.IsSupported() {
		return
	}
	msg := fmt.Sprintf("%s (%s) is awaiting review", artifactID, artifactType)
	if err := b.toast.ShowToast("Review pending", msg); err != nil {
		log.Warnf("toast for pending review %s: %v", artifactID, err)
	}
}

// NotifyRunFailed raises a toast when a run ends in RunFailed.
func (b *Bridge) NotifyRunFailed(runID, reason string) {
	if b.toast == nil || !b.toast.IsSupported() {
		return
	}
	msg := fmt.Sprintf("run %s failed: %s", runID, reason)
	if err := b.toast.NotifySupervisorNeedsInput(msg); err != nil {
		log.Warnf("toast for failed run %s: %v", runID, err)
	}
}

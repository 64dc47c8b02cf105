package core

import (
	"context"
	"encoding/json"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
)

// Dispatcher turns raw push payloads into rendered notifications and routes
// notification clicks back to the host.
type Dispatcher struct {
	cfg      *contract.Config
	notifier contract.Notifier
	opener   contract.HostOpener
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg *contract.Config, notifier contract.Notifier, opener contract.HostOpener) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		notifier: notifier,
		opener:   opener,
	}
}

// OnPushReceived handles one raw push payload. Parsing is defensive: any
// malformed or missing field falls back to a default rather than dropping the
// notification. Rendering is fire-and-forget; permission denial is a silent
// no-op.
func (d *Dispatcher) OnPushReceived(ctx context.Context, raw []byte) {
	n := d.parsePayload(raw)

	if !d.notifier.PermissionGranted() {
		// Degraded mode: the push is consumed without a visible surface
		return
	}

	if err := d.notifier.Notify(ctx, n); err != nil {
		contract.LogWarn("failed to render notification", err)
	}
}

// parsePayload decodes a push payload, substituting defaults for anything
// missing or unparseable.
func (d *Dispatcher) parsePayload(raw []byte) schema.NotificationPayload {
	var n schema.NotificationPayload
	if len(raw) > 0 {
		// Ignore the error: a garbage payload yields the zero value, and
		// defaults below cover it
		_ = json.Unmarshal(raw, &n)
	}

	if n.Title == "" {
		n.Title = d.cfg.ProductName
		if n.Title == "" {
			n.Title = schema.DefaultNotificationTitle
		}
	}
	if n.Body == "" {
		n.Body = schema.DefaultNotificationBody
	}
	return n
}

// OnNotificationClicked dismisses a notification and asks the host to open
// its deep link, when one exists.
func (d *Dispatcher) OnNotificationClicked(ctx context.Context, n schema.NotificationPayload) error {
	if n.DeepLinkURL == "" {
		return nil
	}
	return d.opener.OpenURL(ctx, n.DeepLinkURL)
}

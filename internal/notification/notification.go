// Package notification handles sending operator alerts to external services.
package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/containrrr/shoutrrr"
)

// Notifier sends operator diagnostics via Shoutrrr. Transport failures and
// timeouts reaching the Docker host are pushed here so the operator learns
// about them even though the chat user only sees a generic failure screen.
type Notifier struct {
	enabled     bool
	shoutrrrURL string
}

// NewNotifier initializes a Shoutrrr-based notifier. When enabled is false
// the notifier is inert and Alert is a no-op.
func NewNotifier(enabled bool, shoutrrrURL string) (*Notifier, error) {
	if !enabled {
		return &Notifier{enabled: false}, nil
	}

	url := strings.TrimSpace(shoutrrrURL)
	if url == "" {
		return nil, fmt.Errorf("notification enabled but shoutrrr_url not configured: provide URL in format 'service://credentials' (e.g., slack://token@channel, telegram://token@telegram?chats=id)")
	}

	return &Notifier{enabled: true, shoutrrrURL: url}, nil
}

// Alert delivers one diagnostic message via the configured channel.
func (n *Notifier) Alert(text string) error {
	if !n.enabled {
		return nil
	}

	msg := fmt.Sprintf("🚨 shipmate executor failure\n📅 %s\n\n%s",
		time.Now().Format("2006-01-02 15:04:05"), text)

	if err := shoutrrr.Send(n.shoutrrrURL, msg); err != nil {
		serviceType := "unknown"
		if idx := strings.Index(n.shoutrrrURL, "://"); idx > 0 {
			serviceType = n.shoutrrrURL[:idx]
		}
		return fmt.Errorf("operator alert failed to send via %s: %w", serviceType, err)
	}
	return nil
}

// IsEnabled reports whether alerts are configured and active.
func (n *Notifier) IsEnabled() bool {
	return n.enabled
}

package monitor

import (
	"fmt"
	"strings"
	"time"
)

// BuildNotification renders the message for a run that warrants one.
// siteName is the retailer shown in the subject, e.g. "San-X".
func BuildNotification(siteName string, status Status, target Target, runID string, now time.Time) Notification {
	name := target.DisplayName()
	var reason string
	switch status {
	case StatusPeriodRollover:
		reason = fmt.Sprintf("Switched to monitoring %s releases", target.Label)
	case StatusContentChanged:
		reason = fmt.Sprintf("Content updated on %s releases page", target.Label)
	default:
		reason = string(status)
	}
	return Notification{
		RunID:   runID,
		Status:  status,
		Subject: fmt.Sprintf("🎉 %s %s Releases Updated!", siteName, name),
		Body:    fmt.Sprintf("The %s %s releases page has been updated!", siteName, name),
		URL:     target.URL,
		Context: fmt.Sprintf("Monitoring: %s releases (%s)\nReason: %s", name, target.Label, reason),
		Target:  target,
		SentAt:  now,
	}
}

// Text renders the plain-text body used by mail-like channels.
func (n Notification) Text() string {
	var b strings.Builder
	b.WriteString(n.Body)
	b.WriteString("\n\n")
	b.WriteString(n.Context)
	b.WriteString("\n")
	fmt.Fprintf(&b, "URL: %s\n", n.URL)
	fmt.Fprintf(&b, "Time: %s\n\n", n.SentAt.UTC().Format("2006-01-02 15:04:05")+" UTC")
	fmt.Fprintf(&b, "Check it out: %s\n", n.URL)
	return b.String()
}

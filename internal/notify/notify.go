// Package notify fans a monitor notification out to the configured channels.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/theresaanna/san-x-monitor/internal/metrics"
	"github.com/theresaanna/san-x-monitor/internal/monitor"
)

// Channel is a single delivery mechanism such as email or Pub/Sub.
type Channel interface {
	// Name identifies the channel in logs and metrics (e.g. "email").
	Name() string
	Notify(ctx context.Context, n monitor.Notification) error
}

// Multi delivers to every channel. A failing channel does not stop the rest.
type Multi struct {
	channels []Channel
	logger   *zap.Logger
}

// NewMulti builds a fan-out notifier. Nil channels are skipped.
func NewMulti(logger *zap.Logger, channels ...Channel) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	kept := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if ch != nil {
			kept = append(kept, ch)
		}
	}
	return &Multi{channels: kept, logger: logger}
}

// Len returns the number of configured channels.
func (m *Multi) Len() int {
	return len(m.channels)
}

// Notify sends n to each channel and joins the failures.
func (m *Multi) Notify(ctx context.Context, n monitor.Notification) error {
	var errs []error
	for _, ch := range m.channels {
		err := ch.Notify(ctx, n)
		metrics.ObserveNotification(ch.Name(), err)
		if err != nil {
			m.logger.Error("notification failed",
				zap.String("channel", ch.Name()),
				zap.String("run_id", n.RunID),
				zap.Error(err),
			)
			var notifyErr *monitor.NotificationError
			if !errors.As(err, &notifyErr) {
				err = &monitor.NotificationError{Channel: ch.Name(), Err: err}
			}
			errs = append(errs, err)
			continue
		}
		m.logger.Info("notification sent",
			zap.String("channel", ch.Name()),
			zap.String("run_id", n.RunID),
			zap.String("subject", n.Subject),
		)
	}
	return errors.Join(errs...)
}

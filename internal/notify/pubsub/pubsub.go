// Package pubsub publishes change events to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/theresaanna/san-x-monitor/internal/monitor"
)

const channelName = "pubsub"

// Event is the JSON payload published for each notification.
type Event struct {
	RunID   string    `json:"run_id"`
	Status  string    `json:"status"`
	Period  string    `json:"period"`
	Display string    `json:"display"`
	URL     string    `json:"url"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// Notifier wraps a Pub/Sub topic.
type Notifier struct {
	topic *pubsub.Topic
}

// New creates a Notifier for the given topic.
func New(topic *pubsub.Topic) (*Notifier, error) {
	if topic == nil {
		return nil, fmt.Errorf("pubsub topic is required")
	}
	return &Notifier{topic: topic}, nil
}

// Name implements notify.Channel.
func (n *Notifier) Name() string {
	return channelName
}

// Notify publishes the event and waits for the server ack.
func (n *Notifier) Notify(ctx context.Context, note monitor.Notification) error {
	data, err := json.Marshal(Event{
		RunID:   note.RunID,
		Status:  string(note.Status),
		Period:  note.Target.Label,
		Display: note.Target.DisplayName(),
		URL:     note.URL,
		Subject: note.Subject,
		Body:    note.Body,
		SentAt:  note.SentAt,
	})
	if err != nil {
		return &monitor.NotificationError{Channel: channelName, Err: fmt.Errorf("marshal event: %w", err)}
	}

	result := n.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"run_id": note.RunID,
			"status": string(note.Status),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return &monitor.NotificationError{Channel: channelName, Err: fmt.Errorf("publish message: %w", err)}
	}
	return nil
}

// Close flushes pending messages and stops the topic's goroutines.
func (n *Notifier) Close() {
	n.topic.Stop()
}

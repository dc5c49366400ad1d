// Package events provides a fire-and-forget NATS publisher for progress
// events. Publishing is best-effort: failures are logged and never surface
// to the caller, since the events only drive derived-data refreshes.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubjectProgressCompleted carries completion reports for the counter
// refresh worker.
const SubjectProgressCompleted = "learning.progress.completed"

// CompletionEvent signals that a progress report left a video in the
// completed state (newly or already).
type CompletionEvent struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	VideoID    int64     `json:"video_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher publishes progress events to NATS JetStream.
// The zero value and a nil pointer are both safe no-op stubs.
type Publisher struct {
	js  nats.JetStreamContext
	log *zap.Logger
}

// New creates a Publisher using an existing JetStream context.
// Pass js=nil to get a no-op stub (useful in tests and NATS-less deployments).
func New(js nats.JetStreamContext, log *zap.Logger) *Publisher {
	return &Publisher{js: js, log: log}
}

// Enabled reports whether events will actually be delivered anywhere.
func (p *Publisher) Enabled() bool {
	return p != nil && p.js != nil
}

// PublishCompletion sends a completion event asynchronously.
// Safe to call with a nil receiver.
func (p *Publisher) PublishCompletion(userID string, videoID int64) {
	if !p.Enabled() {
		return
	}
	ev := CompletionEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		VideoID:    videoID,
		OccurredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("events: marshal failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if _, err := p.js.PublishAsync(SubjectProgressCompleted, data); err != nil {
		p.log.Warn("events: publish failed", zap.String("subject", SubjectProgressCompleted), zap.Error(err))
	}
}

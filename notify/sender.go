package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sicko7947/approvalflow"
)

// Sender delivers a notification to its recipient
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// MemorySender stores rendered deliveries in memory for inspection/testing
type MemorySender struct {
	mu         sync.Mutex
	deliveries []Delivery
}

// NewMemorySender constructs an empty memory sender
func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

// Send renders and records the delivery
func (m *MemorySender) Send(ctx context.Context, msg Message) error {
	subject, body, err := Render(msg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, Delivery{
		Kind:      msg.Kind,
		Recipient: msg.Recipient,
		Subject:   subject,
		Body:      body,
		SentAt:    time.Now().UTC(),
	})
	return nil
}

// Deliveries returns a copy of deliveries seen so far
func (m *MemorySender) Deliveries() []Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Delivery, len(m.deliveries))
	copy(out, m.deliveries)
	return out
}

// LogSender renders messages and writes them to the log instead of a mail server
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a sender that logs rendered notifications
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send renders the message and logs it
func (l *LogSender) Send(ctx context.Context, msg Message) error {
	subject, body, err := Render(msg)
	if err != nil {
		return err
	}

	l.logger.Info().
		Str("event", approvalflow.EventNotificationSent).
		Str("kind", string(msg.Kind)).
		Str("recipient", msg.Recipient).
		Str("submission_id", msg.Submission.ID).
		Str("subject", subject).
		Str("body", body).
		Msg("Notification delivered to log")
	return nil
}

package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sicko7947/approvalflow"
)

// DispatcherConfig holds retry parameters for background delivery
type DispatcherConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	Backoff    approvalflow.BackoffStrategy
}

// DefaultDispatcherConfig provides sensible defaults
var DefaultDispatcherConfig = DispatcherConfig{
	MaxRetries: 3,
	RetryDelay: time.Second,
	Backoff:    approvalflow.BackoffLinear,
}

// Dispatcher sends notifications in the background. Failures are retried,
// logged and swallowed; they never reach the workflow operation that caused them.
type Dispatcher struct {
	sender Sender
	logger zerolog.Logger
	config DispatcherConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher around a sender
func NewDispatcher(sender Sender, logger zerolog.Logger, config DispatcherConfig) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sender: sender,
		logger: logger,
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Dispatch queues a message for delivery and returns immediately
func (d *Dispatcher) Dispatch(msg Message) {
	if msg.Recipient == "" || msg.Submission == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(msg)
	}()
}

// Wait blocks until every queued message has been delivered or abandoned
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close abandons pending retries and waits for in-flight sends
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}

func (d *Dispatcher) deliver(msg Message) {
	logger := approvalflow.SubmissionLogger(d.logger, msg.Submission.ID).With().
		Str("kind", string(msg.Kind)).
		Str("recipient", msg.Recipient).
		Logger()

	var err error
	for attempt := 0; attempt <= d.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := approvalflow.CalculateBackoff(d.config.RetryDelay, attempt, d.config.Backoff)
			logger.Warn().
				Str("event", approvalflow.EventNotificationRetry).
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(err).
				Msg("Notification retrying")

			select {
			case <-d.ctx.Done():
				logger.Error().
					Str("event", approvalflow.EventNotificationFailed).
					Err(d.ctx.Err()).
					Msg("Notification abandoned")
				return
			case <-time.After(delay):
			}
		}

		if err = d.sender.Send(d.ctx, msg); err == nil {
			logger.Debug().
				Str("event", approvalflow.EventNotificationSent).
				Int("attempt", attempt).
				Msg("Notification sent")
			return
		}
	}

	logger.Error().
		Str("event", approvalflow.EventNotificationFailed).
		Int("attempts", d.config.MaxRetries+1).
		Err(err).
		Msg("Notification failed")
}

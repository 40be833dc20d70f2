// Package notify implements the Notifier interface pinned by spec §4.8:
// a pure interface for delivering approval lifecycle events to a human
// channel, plus a retry-wrapped dispatcher and two concrete channels
// (Slack, Teams webhook). The core compiles and its tests pass without
// any real transport behind either channel.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/opsintent/intentcore/pkg/models"
)

// ErrUnknownChannel is returned in DeliveryResult when Notify is asked
// for a channel name no Channel was registered under.
var ErrUnknownChannel = errors.New("notify: unknown channel")

// Event names the approval lifecycle moment being notified.
type Event string

const (
	EventCreated   Event = "created"
	EventEscalated Event = "escalated"
	EventApproved  Event = "approved"
	EventRejected  Event = "rejected"
	EventExpired   Event = "expired"
	EventCancelled Event = "cancelled"
)

// Request is what Notifier.Notify delivers: one approval lifecycle event.
type Request struct {
	Approval        models.ApprovalRequest
	Event           Event
	ApproverID      string
	Comment         string
}

// DeliveryResult reports the outcome of one notify attempt.
type DeliveryResult struct {
	Delivered bool
	Channel   string
	Attempts  int
	Err       error
}

// Channel is a single delivery mechanism (Slack, Teams, email, ...). A
// Channel is not responsible for its own retries — Dispatcher supplies
// the shared 3-attempt/1-5-25s backoff policy from spec §4.8.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, req Request) error
}

// Notifier is the pure interface the rest of the core depends on. HITL
// calls on create, on escalation, and on terminal transition; a failure
// to notify must never fail the approval state change (spec §7).
type Notifier interface {
	Notify(ctx context.Context, req Request, channel string) DeliveryResult
}

// Dispatcher fans a notification out to one named channel with the
// spec's fixed retry policy: 3 attempts, exponential backoff 1s/5s/25s,
// non-blocking with respect to the caller's state transition (Notify
// runs synchronously but is cheap to call from a goroutine by callers
// that don't want to wait).
type Dispatcher struct {
	channels map[string]Channel
	log      *slog.Logger
}

// NewDispatcher returns a Dispatcher over the given channels, keyed by
// Channel.Name().
func NewDispatcher(channels ...Channel) *Dispatcher {
	byName := make(map[string]Channel, len(channels))
	for _, c := range channels {
		byName[c.Name()] = c
	}
	return &Dispatcher{channels: byName, log: slog.With("component", "notify-dispatcher")}
}

// Notify implements Notifier. An unknown channel name, or a channel that
// exhausts all 3 attempts, is reported in DeliveryResult but never
// returned as an error the caller must handle — notification failure is
// non-fatal by contract.
func (d *Dispatcher) Notify(ctx context.Context, req Request, channelName string) DeliveryResult {
	ch, ok := d.channels[channelName]
	if !ok {
		d.log.Warn("unknown notification channel", "channel", channelName)
		return DeliveryResult{Delivered: false, Channel: channelName, Err: ErrUnknownChannel}
	}

	attempts := 0
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 1 * time.Second
	policy.RandomizationFactor = 0
	policy.Multiplier = 5 // 1s, 5s, 25s
	policy.MaxElapsedTime = 0
	retryPolicy := backoff.WithMaxRetries(policy, 2) // 3 total attempts

	op := func() error {
		attempts++
		err := ch.Deliver(ctx, req)
		if err != nil {
			d.log.Warn("notification delivery attempt failed",
				"channel", channelName, "approval_id", req.Approval.ApprovalID,
				"event", req.Event, "attempt", attempts, "error", err)
		}
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(retryPolicy, ctx))
	return DeliveryResult{
		Delivered: err == nil,
		Channel:   channelName,
		Attempts:  attempts,
		Err:       err,
	}
}

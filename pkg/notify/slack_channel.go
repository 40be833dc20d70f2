package notify

import (
	"context"
	"fmt"

	"github.com/opsintent/intentcore/pkg/slack"
)

// SlackChannel adapts pkg/slack.Service to the Channel interface.
type SlackChannel struct {
	svc *slack.Service
}

// NewSlackChannel returns a SlackChannel. svc may be nil (e.g. no Slack
// token configured); Deliver then reports success trivially, matching
// pkg/slack.Service's own nil-safe contract.
func NewSlackChannel(svc *slack.Service) *SlackChannel {
	return &SlackChannel{svc: svc}
}

// Name implements Channel.
func (c *SlackChannel) Name() string { return "slack" }

// Deliver implements Channel.
func (c *SlackChannel) Deliver(ctx context.Context, req Request) error {
	_, err := c.svc.NotifyApprovalEvent(ctx, slack.ApprovalMessageInput{
		ApprovalID:      req.Approval.ApprovalID,
		Event:           string(req.Event),
		RiskLevel:       req.Approval.RiskLevel,
		Category:        req.Approval.Decision.IntentCategory,
		SubIntent:       req.Approval.Decision.SubIntent,
		EscalationLevel: req.Approval.EscalationLevel,
		ApproverID:      req.ApproverID,
		Comment:         req.Comment,
	})
	if err != nil {
		return fmt.Errorf("slack channel: %w", err)
	}
	return nil
}

package slack

import (
	"context"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// Service handles Slack notification delivery for approval lifecycle
// events. Nil-safe: all methods are no-ops when service is nil, so a
// deployment with no Slack token configured can pass a nil *Service
// straight into pkg/notify without a conditional at every call site.
type Service struct {
	client       *Client
	dashboardURL string
	logger       *slog.Logger
}

// NewService creates a new Slack notification service. Returns nil if
// Token or Channel is empty.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client:       NewClient(cfg.Token, cfg.Channel),
		dashboardURL: cfg.DashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client, dashboardURL string) *Service {
	return &Service{
		client:       client,
		dashboardURL: dashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NotifyApprovalEvent posts one approval lifecycle event as a Block Kit
// message. It returns the resulting message timestamp and any error;
// pkg/notify's retry wrapper decides how to react to the error, so this
// method does not swallow failures itself.
func (s *Service) NotifyApprovalEvent(ctx context.Context, input ApprovalMessageInput) (string, error) {
	if s == nil {
		return "", nil
	}
	if input.DashboardURL == "" {
		input.DashboardURL = s.dashboardURL
	}
	blocks := BuildApprovalMessage(input)
	ts, err := s.client.PostMessage(ctx, blocks, "", 10*time.Second)
	if err != nil {
		s.logger.Error("failed to send Slack approval notification",
			"approval_id", input.ApprovalID, "event", input.Event, "error", err)
		return "", err
	}
	return ts, nil
}

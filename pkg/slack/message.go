package slack

import (
	"fmt"

	goslack "github.com/slack-go/slack"

	"github.com/opsintent/intentcore/pkg/models"
)

const maxBlockTextLength = 2900

var riskEmoji = map[models.RiskLevel]string{
	models.RiskHigh:     ":warning:",
	models.RiskCritical: ":rotating_light:",
}

var eventLabel = map[string]string{
	"created":    "Approval requested",
	"escalated":  "Approval escalated",
	"approved":   "Approval granted",
	"rejected":   "Approval rejected",
	"expired":    "Approval expired",
	"cancelled":  "Approval cancelled",
}

// ApprovalMessageInput carries the fields BuildApprovalMessage needs out
// of an ApprovalRequest, decoupling the message builder from the hitl
// package so slack has no import cycle back to it.
type ApprovalMessageInput struct {
	ApprovalID      string
	Event           string // created, escalated, approved, rejected, expired, cancelled
	RiskLevel       models.RiskLevel
	Category        models.IntentCategory
	SubIntent       string
	EscalationLevel int
	ApproverID      string
	Comment         string
	DashboardURL    string
}

func approvalURL(approvalID, dashboardURL string) string {
	if dashboardURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/approvals/%s", dashboardURL, approvalID)
}

// BuildApprovalMessage creates Block Kit blocks for one approval lifecycle
// event (creation, escalation, or terminal transition).
func BuildApprovalMessage(input ApprovalMessageInput) []goslack.Block {
	label := eventLabel[input.Event]
	if label == "" {
		label = "Approval " + input.Event
	}
	emoji := riskEmoji[input.RiskLevel]
	if emoji == "" {
		emoji = ":large_blue_circle:"
	}

	header := fmt.Sprintf("%s *%s* — %s / %s (risk: %s)",
		emoji, label, input.Category, input.SubIntent, input.RiskLevel)
	if input.EscalationLevel > 0 {
		header += fmt.Sprintf(" — escalation level %d", input.EscalationLevel)
	}

	blocks := []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, truncateForSlack(header), false, false),
			nil, nil,
		),
	}

	if input.ApproverID != "" {
		detail := fmt.Sprintf("by <@%s>", input.ApproverID)
		if input.Comment != "" {
			detail += fmt.Sprintf(": %s", truncateForSlack(input.Comment))
		}
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, detail, false, false),
			nil, nil,
		))
	}

	if url := approvalURL(input.ApprovalID, input.DashboardURL); url != "" {
		btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(goslack.PlainTextType, "View approval", false, false))
		btn.URL = url
		blocks = append(blocks, goslack.NewActionBlock("", btn))
	}

	return blocks
}

func truncateForSlack(text string) string {
	runes := []rune(text)
	if len(runes) <= maxBlockTextLength {
		return text
	}
	return string(runes[:maxBlockTextLength]) + "\n\n_... (truncated)_"
}

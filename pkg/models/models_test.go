package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntentCategory_IsValid(t *testing.T) {
	assert.True(t, CategoryIncident.IsValid())
	assert.True(t, CategoryUnknown.IsValid())
	assert.False(t, IntentCategory("bogus").IsValid())
}

func TestRiskLevel_IsValid(t *testing.T) {
	assert.True(t, RiskCritical.IsValid())
	assert.False(t, RiskLevel("extreme").IsValid())
}

func TestRiskLevel_RequiresApproval(t *testing.T) {
	assert.True(t, RiskHigh.RequiresApproval())
	assert.True(t, RiskCritical.RequiresApproval())
	assert.False(t, RiskMedium.RequiresApproval())
	assert.False(t, RiskLow.RequiresApproval())
}

func TestApprovalStatus_IsTerminal(t *testing.T) {
	assert.True(t, ApprovalApproved.IsTerminal())
	assert.True(t, ApprovalRejected.IsTerminal())
	assert.True(t, ApprovalCancelled.IsTerminal())
	assert.False(t, ApprovalPending.IsTerminal())
	assert.False(t, ApprovalEscalated.IsTerminal())
	assert.False(t, ApprovalExpired.IsTerminal())
}

func TestRoutingDecision_CloneIsIndependentOfOriginal(t *testing.T) {
	original := RoutingDecision{
		ExtractedFields: map[string]any{"justification": "because"},
		Metadata:        map[string]any{"env": "prod"},
		Completeness:    CompletenessInfo{MissingFields: []string{"model"}},
	}

	clone := original.Clone()
	clone.ExtractedFields["justification"] = "mutated"
	clone.Metadata["env"] = "staging"
	clone.Completeness.MissingFields[0] = "mutated"

	assert.Equal(t, "because", original.ExtractedFields["justification"])
	assert.Equal(t, "prod", original.Metadata["env"])
	assert.Equal(t, "model", original.Completeness.MissingFields[0])
}

func TestRoutingDecision_CloneHandlesNilMaps(t *testing.T) {
	clone := RoutingDecision{}.Clone()

	assert.Nil(t, clone.ExtractedFields)
	assert.Nil(t, clone.Metadata)
}

func TestDialogSession_CloneIsIndependentOfOriginal(t *testing.T) {
	original := DialogSession{
		AccumulatedFields: map[string]any{"justification": "because"},
		Turns: []DialogTurn{
			{Role: TurnUser, FieldsExtractedThisTurn: map[string]any{"model": "thinkpad"}},
		},
	}

	clone := original.Clone()
	clone.AccumulatedFields["justification"] = "mutated"
	clone.Turns[0].FieldsExtractedThisTurn["model"] = "mutated"

	assert.Equal(t, "because", original.AccumulatedFields["justification"])
	assert.Equal(t, "thinkpad", original.Turns[0].FieldsExtractedThisTurn["model"])
}

func TestDialogSession_IsExpired(t *testing.T) {
	now := time.Now()
	session := DialogSession{LastUpdateAt: now.Add(-2 * time.Hour)}

	assert.True(t, session.IsExpired(now, time.Hour))
	assert.False(t, session.IsExpired(now, 3*time.Hour))
}

func TestApprovalRequest_IsExpiredAt(t *testing.T) {
	now := time.Now()

	pendingExpired := ApprovalRequest{Status: ApprovalPending, ExpiresAt: now.Add(-time.Minute)}
	assert.True(t, pendingExpired.IsExpiredAt(now))

	pendingNotYetExpired := ApprovalRequest{Status: ApprovalPending, ExpiresAt: now.Add(time.Minute)}
	assert.False(t, pendingNotYetExpired.IsExpiredAt(now))

	approvedPastExpiry := ApprovalRequest{Status: ApprovalApproved, ExpiresAt: now.Add(-time.Minute)}
	assert.False(t, approvedPastExpiry.IsExpiredAt(now))
}

func TestApprovalRequest_CloneIsIndependentOfOriginal(t *testing.T) {
	original := ApprovalRequest{Approvers: []string{"alice", "bob"}}

	clone := original.Clone()
	clone.Approvers[0] = "mutated"

	assert.Equal(t, "alice", original.Approvers[0])
}

func TestServiceNowMapping_Key(t *testing.T) {
	m := ServiceNowMapping{Category: "hardware", Subcategory: "laptop"}

	assert.Equal(t, "hardware/laptop", m.Key())
}

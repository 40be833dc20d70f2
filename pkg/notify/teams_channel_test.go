package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsintent/intentcore/pkg/models"
)

func TestTeamsChannel_Name(t *testing.T) {
	ch := NewTeamsChannel("")
	assert.Equal(t, "teams", ch.Name())
}

func TestTeamsChannel_Deliver_EmptyWebhookIsNoOp(t *testing.T) {
	ch := NewTeamsChannel("")
	err := ch.Deliver(context.Background(), Request{Approval: models.ApprovalRequest{ApprovalID: "appr-1"}})
	assert.NoError(t, err)
}

func TestTeamsChannel_Deliver_PostsCardToWebhook(t *testing.T) {
	var received teamsCard
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := NewTeamsChannel(server.URL)
	err := ch.Deliver(context.Background(), Request{
		Approval: models.ApprovalRequest{
			ApprovalID: "appr-1",
			RiskLevel:  models.RiskHigh,
			Decision: models.RoutingDecision{
				IntentCategory: models.CategoryChange,
				SubIntent:      "release_deployment",
			},
		},
		Event:      EventCreated,
		ApproverID: "approver-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "MessageCard", received.Type)
	assert.Equal(t, "0076D7", received.ThemeColor)
	assert.Contains(t, received.Text, "appr-1")
}

func TestTeamsChannel_Deliver_NonOKStatusReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ch := NewTeamsChannel(server.URL)
	err := ch.Deliver(context.Background(), Request{Approval: models.ApprovalRequest{ApprovalID: "appr-1"}})

	assert.Error(t, err)
}

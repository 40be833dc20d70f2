package slack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsintent/intentcore/pkg/models"
)

func TestService_NilReceiver(t *testing.T) {
	var s *Service

	ts, err := s.NotifyApprovalEvent(context.Background(), ApprovalMessageInput{
		ApprovalID: "appr-1",
		Event:      "created",
	})
	assert.NoError(t, err)
	assert.Empty(t, ts)
}

func TestNewService(t *testing.T) {
	t.Run("returns nil when token empty", func(t *testing.T) {
		svc := NewService(ServiceConfig{Token: "", Channel: "C123"})
		assert.Nil(t, svc)
	})

	t.Run("returns nil when channel empty", func(t *testing.T) {
		svc := NewService(ServiceConfig{Token: "xoxb-test", Channel: ""})
		assert.Nil(t, svc)
	})

	t.Run("returns service when configured", func(t *testing.T) {
		svc := NewService(ServiceConfig{
			Token:        "xoxb-test",
			Channel:      "C123",
			DashboardURL: "https://example.com",
		})
		assert.NotNil(t, svc)
	})
}

func TestService_NotifyApprovalEvent_UsesServiceDashboardURL(t *testing.T) {
	posted := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		posted <- r.FormValue("blocks")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
	}))
	defer server.Close()

	svc := NewServiceWithClient(NewClientWithAPIURL("xoxb-test", "C123", server.URL+"/"), "https://example.com")

	// No DashboardURL on the input: the service's own URL must be used.
	_, err := svc.NotifyApprovalEvent(context.Background(), ApprovalMessageInput{
		ApprovalID: "appr-1",
		Event:      "created",
		RiskLevel:  models.RiskHigh,
		Category:   models.CategoryIncident,
		SubIntent:  "etl_failure",
	})
	require.NoError(t, err)
	assert.Contains(t, <-posted, "https://example.com/approvals/appr-1")
}

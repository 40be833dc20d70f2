package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsintent/intentcore/pkg/models"
)

type riskAssessRequest struct {
	Decision    models.RoutingDecision `json:"decision" binding:"required"`
	Environment string                 `json:"environment,omitempty"`
	IsWeekend   bool                   `json:"is_weekend,omitempty"`
	IsUrgent    bool                   `json:"is_urgent,omitempty"`
	Metadata    map[string]any         `json:"metadata,omitempty"`
}

// handleRiskAssess exposes RiskAssessor.Assess (spec §6.2's assess_risk):
// a full, context-adjusted reassessment of an already-classified decision,
// distinct from the baseline level IntentRouter tags at classification
// time.
func (s *Server) handleRiskAssess(c *gin.Context) {
	var req riskAssessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "validation_error", "message": err.Error()})
		return
	}

	reqCtx := bindRequestContext(req.Environment, req.IsWeekend, req.IsUrgent, req.Metadata)
	assessment := s.risk.Assess(req.Decision, reqCtx)
	c.JSON(http.StatusOK, assessment)
}

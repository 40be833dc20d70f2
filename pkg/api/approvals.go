package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsintent/intentcore/pkg/models"
)

type approvalCreateRequest struct {
	Decision   models.RoutingDecision `json:"decision" binding:"required"`
	Assessment models.RiskAssessment  `json:"assessment" binding:"required"`
	Approvers  []string               `json:"approvers" binding:"required"`
}

func (s *Server) handleApprovalCreate(c *gin.Context) {
	if s.hitl == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error_kind": "internal", "message": "HITL controller disabled"})
		return
	}

	var req approvalCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "validation_error", "message": err.Error()})
		return
	}

	id, err := s.hitl.RequestApproval(c.Request.Context(), req.Decision, req.Assessment, req.Approvers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"approval_id": id})
}

type approvalDecisionRequest struct {
	ApproverID string `json:"approver_id" binding:"required"`
	Comment    string `json:"comment,omitempty"`
}

func (s *Server) handleApprovalApprove(c *gin.Context) {
	if s.hitl == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error_kind": "internal", "message": "HITL controller disabled"})
		return
	}
	var req approvalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "validation_error", "message": err.Error()})
		return
	}
	if err := s.hitl.Approve(c.Request.Context(), c.Param("id"), req.ApproverID, req.Comment); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

func (s *Server) handleApprovalReject(c *gin.Context) {
	if s.hitl == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error_kind": "internal", "message": "HITL controller disabled"})
		return
	}
	var req approvalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "validation_error", "message": err.Error()})
		return
	}
	if err := s.hitl.Reject(c.Request.Context(), c.Param("id"), req.ApproverID, req.Comment); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

func (s *Server) handleApprovalCancel(c *gin.Context) {
	if s.hitl == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error_kind": "internal", "message": "HITL controller disabled"})
		return
	}
	if err := s.hitl.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (s *Server) handleApprovalListPending(c *gin.Context) {
	if s.hitl == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error_kind": "internal", "message": "HITL controller disabled"})
		return
	}
	approverID := c.Query("approver_id")
	if approverID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "validation_error", "message": "approver_id is required"})
		return
	}

	pending, err := s.hitl.ListPending(c.Request.Context(), approverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"approvals": pending})
}

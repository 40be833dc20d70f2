package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type dialogStartRequest struct {
	Text        string         `json:"text" binding:"required"`
	Environment string         `json:"environment,omitempty"`
	IsWeekend   bool           `json:"is_weekend,omitempty"`
	IsUrgent    bool           `json:"is_urgent,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func (s *Server) handleDialogStart(c *gin.Context) {
	if s.dialog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error_kind": "internal", "message": "dialog engine disabled"})
		return
	}

	var req dialogStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "validation_error", "message": err.Error()})
		return
	}

	reqCtx := bindRequestContext(req.Environment, req.IsWeekend, req.IsUrgent, req.Metadata)
	result, err := s.dialog.Start(c.Request.Context(), req.Text, reqCtx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type dialogRespondRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handleDialogRespond(c *gin.Context) {
	if s.dialog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error_kind": "internal", "message": "dialog engine disabled"})
		return
	}

	var req dialogRespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "validation_error", "message": err.Error()})
		return
	}

	result, err := s.dialog.Respond(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleDialogClose(c *gin.Context) {
	if s.dialog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error_kind": "internal", "message": "dialog engine disabled"})
		return
	}

	if err := s.dialog.Close(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

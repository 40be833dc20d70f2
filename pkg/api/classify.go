package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsintent/intentcore/pkg/gateway"
	"github.com/opsintent/intentcore/pkg/models"
)

type classifyRequest struct {
	Text        string         `json:"text" binding:"required"`
	Environment string         `json:"environment,omitempty"`
	IsWeekend   bool           `json:"is_weekend,omitempty"`
	IsUrgent    bool           `json:"is_urgent,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// handleClassify runs the free-text user path regardless of any webhook
// header present on the request: classify_intent always means "treat
// this text as a human utterance" (spec §6.2). System-sourced requests go
// through /ingest instead.
func (s *Server) handleClassify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "validation_error", "message": err.Error()})
		return
	}

	decision, err := s.gateway.Process(c.Request.Context(), gateway.Request{
		Text:       req.Text,
		SourceType: models.SourceUser,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

type ingestRequest struct {
	SourceType models.SourceType `json:"source_type,omitempty"`
	Body       map[string]any    `json:"body" binding:"required"`
}

// handleIngest is the source-aware entry point (spec §4.7): a known
// webhook header on the HTTP request wins outright; otherwise the body's
// explicit source_type; otherwise the body is treated as free-text user
// input keyed off body["text"].
func (s *Server) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "validation_error", "message": err.Error()})
		return
	}

	headers := map[string]string{}
	if v := c.GetHeader(gateway.HeaderServiceNow); v != "" {
		headers[gateway.HeaderServiceNow] = v
	}
	if v := c.GetHeader(gateway.HeaderPrometheus); v != "" {
		headers[gateway.HeaderPrometheus] = v
	}

	text, _ := req.Body["text"].(string)

	decision, err := s.gateway.Process(c.Request.Context(), gateway.Request{
		Headers:    headers,
		SourceType: req.SourceType,
		Text:       text,
		Body:       req.Body,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

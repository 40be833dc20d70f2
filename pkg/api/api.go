// Package api exposes the orchestration core's public operations (spec
// §6.2) over HTTP, using gin the way the teacher's cmd/tarsy does. This
// transport is explicitly non-contractual: it is one way to call the
// core, not part of its domain model. Every handler maps a component
// error to an HTTP status via apperrors.Kind.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsintent/intentcore/pkg/apperrors"
	"github.com/opsintent/intentcore/pkg/dialog"
	"github.com/opsintent/intentcore/pkg/gateway"
	"github.com/opsintent/intentcore/pkg/hitl"
	"github.com/opsintent/intentcore/pkg/metrics"
	"github.com/opsintent/intentcore/pkg/models"
	"github.com/opsintent/intentcore/pkg/risk"
	"github.com/opsintent/intentcore/pkg/version"
)

// Server wires the public operations onto a gin.Engine.
type Server struct {
	gateway *gateway.Gateway
	dialog  *dialog.Engine
	risk    *risk.Assessor
	hitl    *hitl.Controller
	metrics *metrics.Registry
}

// New returns a Server over the given components. Any of dialog, hitl
// may be nil if that surface is disabled; the corresponding routes then
// return 503.
func New(gw *gateway.Gateway, dialogEngine *dialog.Engine, riskAssessor *risk.Assessor, hitlController *hitl.Controller, reg *metrics.Registry) *Server {
	return &Server{gateway: gw, dialog: dialogEngine, risk: riskAssessor, hitl: hitlController, metrics: reg}
}

// Mount registers every route on engine under the given prefix (e.g. "/v1").
func (s *Server) Mount(engine *gin.Engine, prefix string) {
	engine.GET("/health", s.handleHealth)
	if s.metrics != nil {
		engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := engine.Group(prefix)
	v1.POST("/classify", s.handleClassify)
	v1.POST("/ingest", s.handleIngest)
	v1.POST("/risk/assess", s.handleRiskAssess)

	v1.POST("/dialog/start", s.handleDialogStart)
	v1.POST("/dialog/:id/respond", s.handleDialogRespond)
	v1.POST("/dialog/:id/close", s.handleDialogClose)

	v1.POST("/approvals", s.handleApprovalCreate)
	v1.POST("/approvals/:id/approve", s.handleApprovalApprove)
	v1.POST("/approvals/:id/reject", s.handleApprovalReject)
	v1.POST("/approvals/:id/cancel", s.handleApprovalCancel)
	v1.GET("/approvals/pending", s.handleApprovalListPending)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": version.Full()})
}

// statusFor maps an apperrors sentinel kind to the HTTP status the public
// API surfaces for it, per spec §7's error table.
func statusFor(kind error) int {
	switch {
	case errors.Is(kind, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(kind, apperrors.ErrSessionNotFound), errors.Is(kind, apperrors.ErrApprovalNotFound):
		return http.StatusNotFound
	case errors.Is(kind, apperrors.ErrSessionExpired), errors.Is(kind, apperrors.ErrApprovalTerminal):
		return http.StatusGone
	case errors.Is(kind, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(kind, apperrors.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(kind, apperrors.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps err to its boundary kind and writes the matching
// status plus a {"error_kind", "message"} body.
func respondError(c *gin.Context, err error) {
	kind := apperrors.Kind(err)
	c.JSON(statusFor(kind), gin.H{
		"error_kind": kind.Error(),
		"message":    err.Error(),
	})
}

func bindRequestContext(environment string, isWeekend, isUrgent bool, metadata map[string]any) models.RequestContext {
	return models.RequestContext{
		Environment: environment,
		IsWeekend:   isWeekend,
		IsUrgent:    isUrgent,
		Metadata:    metadata,
	}
}

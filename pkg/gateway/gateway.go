// Package gateway implements the InputGateway and SourceHandlers (C7):
// source-aware dispatch that lets system webhooks (ServiceNow,
// Prometheus) skip the semantic/LLM tiers entirely via direct mapping
// tables, falling back to the IntentRouter only for free-text user input.
package gateway

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/opsintent/intentcore/pkg/apperrors"
	"github.com/opsintent/intentcore/pkg/metrics"
	"github.com/opsintent/intentcore/pkg/models"
)

// Known webhook headers that select a source handler outright, per spec
// §4.7 step 1.
const (
	HeaderServiceNow  = "X-ServiceNow-Webhook"
	HeaderPrometheus  = "X-Prometheus-Alertmanager"
)

// IntentRouter is the narrow slice of pkg/router UserInputHandler needs.
type IntentRouter interface {
	Route(ctx context.Context, text string, reqCtx models.RequestContext) models.RoutingDecision
}

// Request is the inbound payload InputGateway.Process dispatches. Headers
// drives step 1 of the dispatch order; SourceType is the step-2 explicit
// override; Body is passed to whichever handler is selected.
type Request struct {
	Headers    map[string]string
	SourceType models.SourceType
	Text       string // raw text for the user-input path
	Body       map[string]any
}

var validate = validator.New()

// Gateway dispatches an inbound Request to the right SourceHandler.
type Gateway struct {
	userHandler       *UserInputHandler
	serviceNowHandler *ServiceNowHandler
	prometheusHandler *PrometheusHandler
	metrics           *metrics.Registry
}

// New returns a Gateway wired to the three known handlers.
func New(userHandler *UserInputHandler, serviceNowHandler *ServiceNowHandler, prometheusHandler *PrometheusHandler, reg *metrics.Registry) *Gateway {
	return &Gateway{
		userHandler:       userHandler,
		serviceNowHandler: serviceNowHandler,
		prometheusHandler: prometheusHandler,
		metrics:           reg,
	}
}

// Process picks a handler in the spec §4.7 order: known header, then
// explicit source_type, then default to free-text user input.
func (g *Gateway) Process(ctx context.Context, req Request) (models.RoutingDecision, error) {
	switch g.resolveHandler(req) {
	case "servicenow":
		if g.metrics != nil {
			g.metrics.ObserveSystemSource("servicenow")
		}
		return g.serviceNowHandler.Handle(ctx, req.Body)
	case "prometheus":
		if g.metrics != nil {
			g.metrics.ObserveSystemSource("prometheus")
		}
		return g.prometheusHandler.Handle(ctx, req.Body)
	default:
		return g.userHandler.Handle(ctx, req.Text)
	}
}

// resolveHandler picks the handler name per spec §4.7's order: a known
// webhook header wins outright; otherwise an explicit source_type; else
// default to the user-input path.
func (g *Gateway) resolveHandler(req Request) string {
	if _, ok := req.Headers[HeaderServiceNow]; ok {
		return "servicenow"
	}
	if _, ok := req.Headers[HeaderPrometheus]; ok {
		return "prometheus"
	}
	switch req.SourceType {
	case models.SourceServiceNow:
		return "servicenow"
	case models.SourcePrometheus:
		return "prometheus"
	default:
		return "user"
	}
}

// validateSchema runs go-playground/validator struct tags against body,
// returning an apperrors.ValidationError on failure so the gateway never
// emits a RoutingDecision for a malformed system request.
func validateSchema(component string, body any) error {
	if err := validate.Struct(body); err != nil {
		return apperrors.NewValidationError(component, "", err)
	}
	return nil
}

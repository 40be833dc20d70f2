package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opsintent/intentcore/pkg/models"
)

// PrometheusAlert is the declarative schema an Alertmanager webhook body
// must satisfy.
type PrometheusAlert struct {
	AlertName string            `json:"alertname" validate:"required"`
	Severity  string            `json:"severity" validate:"required"`
	Labels    map[string]string `json:"labels,omitempty"`
}

var prometheusSeverityRisk = map[string]models.RiskLevel{
	"critical": models.RiskCritical,
	"warning":  models.RiskHigh,
	"info":     models.RiskMedium,
}

// PrometheusHandler maps alerts via an ordered list of
// (regex-over-alertname → category/sub_intent) rows, first match wins,
// per spec §4.7.
type PrometheusHandler struct {
	mappings []models.PrometheusMapping
}

// NewPrometheusHandler returns a PrometheusHandler over the ordered
// mapping table. Entries must already carry a compiled pattern (see
// config.compilePrometheusTable).
func NewPrometheusHandler(mappings []models.PrometheusMapping) *PrometheusHandler {
	return &PrometheusHandler{mappings: mappings}
}

// Handle validates body against PrometheusAlert's schema, resolves
// category/sub_intent via the first matching ordered row, maps severity
// to risk level, and preserves labels in metadata.
func (h *PrometheusHandler) Handle(ctx context.Context, body map[string]any) (models.RoutingDecision, error) {
	var alert PrometheusAlert
	raw, err := json.Marshal(body)
	if err != nil {
		return models.RoutingDecision{}, fmt.Errorf("prometheus: encoding body: %w", err)
	}
	if err := json.Unmarshal(raw, &alert); err != nil {
		return models.RoutingDecision{}, fmt.Errorf("prometheus: decoding body: %w", err)
	}
	if err := validateSchema("prometheus", alert); err != nil {
		return models.RoutingDecision{}, err
	}

	metadata := make(map[string]any, len(alert.Labels)+1)
	for k, v := range alert.Labels {
		metadata[k] = v
	}
	metadata["severity"] = alert.Severity

	category, subIntent := models.CategoryUnknown, "general_alert"
	for _, m := range h.mappings {
		if m.CompiledPattern != nil && m.CompiledPattern.MatchString(alert.AlertName) {
			category, subIntent = m.IntentCategory, m.SubIntent
			break
		}
	}

	risk, ok := prometheusSeverityRisk[alert.Severity]
	if !ok {
		risk = models.RiskMedium
	}

	return models.RoutingDecision{
		IntentCategory: category,
		SubIntent:      subIntent,
		Confidence:     1.0,
		RiskLevel:      risk,
		LayerUsed:      models.LayerPrometheusMapping,
		RawInput:       alert.AlertName,
		Metadata:       metadata,
		Completeness: models.CompletenessInfo{
			MissingFields: []string{},
			IsSufficient:  true,
		},
	}, nil
}

package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opsintent/intentcore/pkg/classifier/pattern"
	"github.com/opsintent/intentcore/pkg/models"
)

// ServiceNowTicket is the declarative schema a ServiceNow webhook body
// must satisfy. Required/optional fields are expressed as struct tags,
// validated with go-playground/validator before any mapping is applied.
type ServiceNowTicket struct {
	SysID            string `json:"sys_id" validate:"required"`
	Category         string `json:"category" validate:"required"`
	Subcategory      string `json:"subcategory" validate:"required"`
	ShortDescription string `json:"short_description" validate:"required"`
	Priority         string `json:"priority,omitempty"`
}

// ServiceNowHandler maps ServiceNow tickets via a fixed
// "{category}/{subcategory}" lookup table, per spec §4.7. Semantic and
// LLM tiers are never consulted for this source — a table miss falls
// through only to the pattern tier, evaluated against short_description.
type ServiceNowHandler struct {
	byKey          map[string]models.ServiceNowMapping
	patternMatcher *pattern.Matcher
}

// NewServiceNowHandler returns a ServiceNowHandler over the given mapping
// table (12 entries per spec §4.7) and the shared PatternMatcher used as
// the miss fallback.
func NewServiceNowHandler(mappings []models.ServiceNowMapping, patternMatcher *pattern.Matcher) *ServiceNowHandler {
	byKey := make(map[string]models.ServiceNowMapping, len(mappings))
	for _, m := range mappings {
		byKey[m.Key()] = m
	}
	return &ServiceNowHandler{byKey: byKey, patternMatcher: patternMatcher}
}

// Handle validates body against ServiceNowTicket's schema, then resolves
// category/sub_intent via the mapping table, falling back to the pattern
// tier on a miss.
func (h *ServiceNowHandler) Handle(ctx context.Context, body map[string]any) (models.RoutingDecision, error) {
	var ticket ServiceNowTicket
	raw, err := json.Marshal(body)
	if err != nil {
		return models.RoutingDecision{}, fmt.Errorf("servicenow: encoding body: %w", err)
	}
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return models.RoutingDecision{}, fmt.Errorf("servicenow: decoding body: %w", err)
	}
	if err := validateSchema("servicenow", ticket); err != nil {
		return models.RoutingDecision{}, err
	}

	metadata := map[string]any{"sys_id": ticket.SysID, "priority": ticket.Priority}

	key := ticket.Category + "/" + ticket.Subcategory
	if mapping, ok := h.byKey[key]; ok {
		return models.RoutingDecision{
			IntentCategory: mapping.IntentCategory,
			SubIntent:      mapping.SubIntent,
			Confidence:     1.0,
			LayerUsed:      models.LayerServiceNowMapping,
			Completeness: models.CompletenessInfo{
				Score:         1.0,
				Threshold:     0,
				MissingFields: []string{},
				IsSufficient:  true,
			},
			RawInput: ticket.ShortDescription,
			Metadata: metadata,
		}, nil
	}

	// Miss: fall through to the pattern tier on short_description only.
	// Never consult semantic/LLM for a ServiceNow-sourced request.
	result, ok := h.patternMatcher.Match(ticket.ShortDescription)
	if !ok {
		return models.RoutingDecision{
			IntentCategory: models.CategoryUnknown,
			SubIntent:      "general_ticket",
			Confidence:     0,
			LayerUsed:      models.LayerServiceNowMapping,
			RawInput:       ticket.ShortDescription,
			Metadata:       metadata,
			Completeness: models.CompletenessInfo{
				MissingFields: []string{},
				IsSufficient:  true,
			},
		}, nil
	}

	return models.RoutingDecision{
		IntentCategory: result.Category,
		SubIntent:      result.SubIntent,
		Confidence:     result.Confidence,
		LayerUsed:      models.LayerServiceNowMapping,
		RawInput:       ticket.ShortDescription,
		Metadata:       metadata,
		Completeness: models.CompletenessInfo{
			MissingFields: []string{},
			IsSufficient:  true,
		},
	}, nil
}

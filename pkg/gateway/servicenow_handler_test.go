package gateway

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsintent/intentcore/pkg/apperrors"
	"github.com/opsintent/intentcore/pkg/classifier/pattern"
	"github.com/opsintent/intentcore/pkg/models"
)

func TestServiceNowHandler_Handle_TableHitReturnsMappedDecision(t *testing.T) {
	h := NewServiceNowHandler([]models.ServiceNowMapping{
		{Category: "hardware", Subcategory: "laptop", IntentCategory: models.CategoryRequest, SubIntent: "laptop_request"},
	}, pattern.New(nil))

	decision, err := h.Handle(context.Background(), map[string]any{
		"sys_id":            "INC001",
		"category":          "hardware",
		"subcategory":       "laptop",
		"short_description": "need a new laptop",
	})

	require.NoError(t, err)
	assert.Equal(t, models.CategoryRequest, decision.IntentCategory)
	assert.Equal(t, "laptop_request", decision.SubIntent)
	assert.Equal(t, 1.0, decision.Confidence)
	assert.True(t, decision.Completeness.IsSufficient)
}

func TestServiceNowHandler_Handle_TableMissFallsThroughToPattern(t *testing.T) {
	re := regexp.MustCompile(`(?i)etl.*failed`)
	matcher := pattern.New([]models.PatternRule{
		{ID: "etl", Category: models.CategoryIncident, SubIntent: "etl_failure", BaseConfidence: 0.9, CompiledPatterns: []*regexp.Regexp{re}},
	})
	h := NewServiceNowHandler(nil, matcher)

	decision, err := h.Handle(context.Background(), map[string]any{
		"sys_id":            "INC002",
		"category":          "software",
		"subcategory":       "unknown",
		"short_description": "ETL pipeline failed overnight",
	})

	require.NoError(t, err)
	assert.Equal(t, models.CategoryIncident, decision.IntentCategory)
	assert.Equal(t, "etl_failure", decision.SubIntent)
}

func TestServiceNowHandler_Handle_DoubleMissReturnsUnknownButSufficient(t *testing.T) {
	h := NewServiceNowHandler(nil, pattern.New(nil))

	decision, err := h.Handle(context.Background(), map[string]any{
		"sys_id":            "INC003",
		"category":          "software",
		"subcategory":       "unknown",
		"short_description": "something strange happened",
	})

	require.NoError(t, err)
	assert.Equal(t, models.CategoryUnknown, decision.IntentCategory)
	assert.Equal(t, "general_ticket", decision.SubIntent)
	assert.True(t, decision.Completeness.IsSufficient)
}

func TestServiceNowHandler_Handle_MissingRequiredFieldReturnsValidationError(t *testing.T) {
	h := NewServiceNowHandler(nil, pattern.New(nil))

	_, err := h.Handle(context.Background(), map[string]any{
		"category": "hardware",
	})

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

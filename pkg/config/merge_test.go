package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsintent/intentcore/pkg/models"
)

func TestMergePatternRules_UserOverridesBuiltinByID(t *testing.T) {
	builtin := []models.PatternRule{
		{ID: "a", SubIntent: "old", BaseConfidence: 0.5},
		{ID: "b", SubIntent: "keep"},
	}
	user := []models.PatternRule{
		{ID: "a", SubIntent: "new", BaseConfidence: 0.9},
	}

	merged := mergePatternRules(builtin, user)

	assert.Len(t, merged, 2)
	byID := make(map[string]models.PatternRule, len(merged))
	for _, r := range merged {
		byID[r.ID] = r
	}
	assert.Equal(t, "new", byID["a"].SubIntent)
	assert.Equal(t, "keep", byID["b"].SubIntent)
}

func TestMergePatternRules_UserAddsNewID(t *testing.T) {
	builtin := []models.PatternRule{{ID: "a"}}
	user := []models.PatternRule{{ID: "c"}}

	merged := mergePatternRules(builtin, user)

	assert.Len(t, merged, 2)
}

func TestMergeCompletenessRules_KeyedByCategoryAndSubIntent(t *testing.T) {
	builtin := []models.CompletenessRule{
		{Category: models.CategoryIncident, SubIntent: "etl_failure", Threshold: 0.6},
		{Category: models.CategoryIncident, SubIntent: "", Threshold: 0.6},
	}
	user := []models.CompletenessRule{
		{Category: models.CategoryIncident, SubIntent: "etl_failure", Threshold: 0.9},
	}

	merged := mergeCompletenessRules(builtin, user)

	require := assert.New(t)
	require.Len(merged, 2)
	for _, r := range merged {
		if r.SubIntent == "etl_failure" {
			require.Equal(0.9, r.Threshold)
		}
	}
}

func TestMergePrometheusTable_UserFirstThenBuiltinDeduped(t *testing.T) {
	builtin := []models.PrometheusMapping{
		{Pattern: "systemdown", SubIntent: "system_down"},
		{Pattern: "diskfull", SubIntent: "disk_space"},
	}
	user := []models.PrometheusMapping{
		{Pattern: "systemdown", SubIntent: "custom_down"},
	}

	merged := mergePrometheusTable(builtin, user)

	require := assert.New(t)
	require.Len(merged, 2)
	require.Equal("custom_down", merged[0].SubIntent, "user entry must come first and win on duplicate pattern")
	require.Equal("diskfull", merged[1].Pattern)
}

func TestMergeServiceNowTable_KeyedByCategorySubcategory(t *testing.T) {
	builtin := []models.ServiceNowMapping{
		{Category: "incident", Subcategory: "network", SubIntent: "network_failure"},
	}
	user := []models.ServiceNowMapping{
		{Category: "incident", Subcategory: "network", SubIntent: "custom_network"},
		{Category: "incident", Subcategory: "storage", SubIntent: "storage_issue"},
	}

	merged := mergeServiceNowTable(builtin, user)

	assert.Len(t, merged, 2)
}

func TestMergeRiskAdjusters_KeyedByName(t *testing.T) {
	builtin := []models.RiskAdjuster{{Name: "weekend", Multiplier: 1.2}}
	user := []models.RiskAdjuster{{Name: "weekend", Multiplier: 1.5}}

	merged := mergeRiskAdjusters(builtin, user)

	assert.Len(t, merged, 1)
	assert.Equal(t, 1.5, merged[0].Multiplier)
}

func TestMergeLLMProviders_UserOverridesBuiltin(t *testing.T) {
	builtin := map[string]LLMProviderConfig{
		"default": {Type: LLMProviderTypeAnthropic, Model: "claude-builtin"},
	}
	user := map[string]LLMProviderConfig{
		"default": {Type: LLMProviderTypeAnthropic, Model: "claude-custom"},
	}

	merged := mergeLLMProviders(builtin, user)

	assert.Len(t, merged, 1)
	assert.Equal(t, "claude-custom", merged["default"].Model)
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsintent/intentcore/pkg/models"
)

func TestCompilePatternRules_CompilesEveryPattern(t *testing.T) {
	rules := []models.PatternRule{
		{ID: "a", Patterns: []string{`foo.*bar`, `^baz$`}},
	}
	require.NoError(t, compilePatternRules(rules))
	require.Len(t, rules[0].CompiledPatterns, 2)
	assert.True(t, rules[0].CompiledPatterns[0].MatchString("foo123bar"))
}

func TestCompilePatternRules_RejectsInvalidRegex(t *testing.T) {
	rules := []models.PatternRule{
		{ID: "a", Patterns: []string{"("}},
	}
	err := compilePatternRules(rules)
	require.Error(t, err)
}

func TestCompilePatternRules_RejectsDuplicateID(t *testing.T) {
	rules := []models.PatternRule{
		{ID: "a", Patterns: []string{"x"}},
		{ID: "a", Patterns: []string{"y"}},
	}
	err := compilePatternRules(rules)
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestCompileSemanticRoutes_RequiresFiveUtterances(t *testing.T) {
	routes := []models.SemanticRoute{
		{ID: "a", Utterances: []string{"one", "two"}},
	}
	err := compileSemanticRoutes(routes)
	require.Error(t, err)
}

func TestCompileSemanticRoutes_RejectsDuplicateID(t *testing.T) {
	five := []string{"a", "b", "c", "d", "e"}
	routes := []models.SemanticRoute{
		{ID: "a", Utterances: five},
		{ID: "a", Utterances: five},
	}
	err := compileSemanticRoutes(routes)
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestCompilePrometheusTable_CompilesPatterns(t *testing.T) {
	table := []models.PrometheusMapping{{Pattern: `(?i)diskfull`}}
	require.NoError(t, compilePrometheusTable(table))
	require.NotNil(t, table[0].CompiledPattern)
	assert.True(t, table[0].CompiledPattern.MatchString("DiskFull"))
}

func TestCompileFieldExtractors_CompilesRegexExtractors(t *testing.T) {
	rules := []models.CompletenessRule{
		{
			Category: models.CategoryIncident,
			RequiredFields: []models.FieldDefinition{
				{Key: "error_message", Extractors: []models.FieldExtractor{{Regex: `error[:\s]+(.+)`}}},
			},
		},
	}
	require.NoError(t, compileFieldExtractors(rules))
	require.NotNil(t, rules[0].RequiredFields[0].Extractors[0].CompiledRE)
}

func TestCompileFieldExtractors_SkipsKeywordOnlyExtractors(t *testing.T) {
	rules := []models.CompletenessRule{
		{
			Category: models.CategoryIncident,
			RequiredFields: []models.FieldDefinition{
				{Key: "requester", Extractors: []models.FieldExtractor{{Keywords: []string{"requester"}}}},
			},
		},
	}
	require.NoError(t, compileFieldExtractors(rules))
	assert.Nil(t, rules[0].RequiredFields[0].Extractors[0].CompiledRE)
}

package router

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsintent/intentcore/pkg/classifier/llm"
	"github.com/opsintent/intentcore/pkg/classifier/pattern"
	"github.com/opsintent/intentcore/pkg/classifier/semantic"
	"github.com/opsintent/intentcore/pkg/completeness"
	"github.com/opsintent/intentcore/pkg/models"
)

func rule(id string, category models.IntentCategory, subIntent, pat string, baseConfidence float64) models.PatternRule {
	return models.PatternRule{
		ID: id, Category: category, SubIntent: subIntent, BaseConfidence: baseConfidence,
		Patterns:         []string{pat},
		CompiledPatterns: []*regexp.Regexp{regexp.MustCompile("(?i)" + pat)},
	}
}

type fakeRiskAssessor struct{}

func (fakeRiskAssessor) BaselineRiskLevel(category models.IntentCategory, _ string) models.RiskLevel {
	switch category {
	case models.CategoryIncident:
		return models.RiskHigh
	default:
		return models.RiskLow
	}
}

type fakeEmbeddingEngine struct {
	vectors map[string][]float32
}

func (f fakeEmbeddingEngine) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func unusedLLMClassifier() *llm.Classifier {
	client := anthropic.NewClient(option.WithAPIKey("unused"))
	return llm.New(client, "claude-3-5-haiku-latest", time.Second)
}

func TestRoute_PatternTierShortCircuitsAboveThreshold(t *testing.T) {
	re := pattern.New([]models.PatternRule{
		rule("etl", models.CategoryIncident, "system_unavailable", `vpn is down`, 0.95),
	})
	sem := semantic.New(fakeEmbeddingEngine{}, 0.85, nil)
	r := New(re, sem, unusedLLMClassifier(), completeness.New(nil), fakeRiskAssessor{}, 0.8, 0.85, nil)

	decision := r.Route(context.Background(), "vpn is down again", models.RequestContext{})

	assert.Equal(t, models.LayerPattern, decision.LayerUsed)
	assert.Equal(t, models.CategoryIncident, decision.IntentCategory)
	assert.Equal(t, models.WorkflowMagentic, decision.WorkflowType)
	assert.Equal(t, models.RiskHigh, decision.RiskLevel)
}

func TestRoute_FallsThroughToSemanticWhenPatternBelowThreshold(t *testing.T) {
	re := pattern.New([]models.PatternRule{
		rule("weak", models.CategoryIncident, "vague_issue", `issue`, 0.1),
	})
	sem := semantic.New(fakeEmbeddingEngine{vectors: map[string][]float32{
		"my vpn is having an issue": {1, 0},
	}}, 0.5, nil)
	require.NoError(t, sem.Load(context.Background(), []models.SemanticRoute{
		{ID: "vpn", Category: models.CategoryIncident, SubIntent: "vpn_down", Utterances: []string{"my vpn is having an issue"}},
	}))
	r := New(re, sem, unusedLLMClassifier(), completeness.New(nil), fakeRiskAssessor{}, 0.8, 0.5, nil)

	decision := r.Route(context.Background(), "my vpn is having an issue", models.RequestContext{})

	assert.Equal(t, models.LayerSemantic, decision.LayerUsed)
	assert.Equal(t, "vpn_down", decision.SubIntent)
}

func TestRoute_AttachesCompletenessInfoFromChecker(t *testing.T) {
	re := pattern.New([]models.PatternRule{
		rule("req", models.CategoryRequest, "laptop_request", `new laptop`, 0.9),
	})
	checker := completeness.New([]models.CompletenessRule{
		{Category: models.CategoryRequest, SubIntent: "laptop_request", Threshold: 1.0, RequiredFields: []models.FieldDefinition{
			{Key: "justification", Required: true, Extractors: []models.FieldExtractor{{Keywords: []string{"because"}}}},
		}},
	})
	r := New(re, semantic.New(fakeEmbeddingEngine{}, 0.85, nil), unusedLLMClassifier(), checker, fakeRiskAssessor{}, 0.5, 0.85, nil)

	decision := r.Route(context.Background(), "I need a new laptop", models.RequestContext{})

	assert.False(t, decision.Completeness.IsSufficient)
	assert.Equal(t, []string{"justification"}, decision.Completeness.MissingFields)
}

func TestWorkflowFor_IncidentSystemUnavailableUsesMagentic(t *testing.T) {
	assert.Equal(t, models.WorkflowMagentic, workflowFor(models.CategoryIncident, "system_unavailable"))
}

func TestWorkflowFor_IncidentOtherwiseUsesSequential(t *testing.T) {
	assert.Equal(t, models.WorkflowSequential, workflowFor(models.CategoryIncident, "disk_full"))
}

func TestWorkflowFor_RequestUsesSimple(t *testing.T) {
	assert.Equal(t, models.WorkflowSimple, workflowFor(models.CategoryRequest, "laptop_request"))
}

func TestWorkflowFor_UnmappedCategoryDefaultsToSimple(t *testing.T) {
	assert.Equal(t, models.WorkflowSimple, workflowFor(models.IntentCategory("bogus"), "x"))
}

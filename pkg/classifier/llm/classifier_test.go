package llm

import (
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"

	"github.com/opsintent/intentcore/pkg/models"
)

func testAnthropicClient() anthropic.Client {
	return anthropic.NewClient(option.WithAPIKey("test-key"))
}

func testClassifier() *Classifier {
	return New(testAnthropicClient(), "claude-3-5-haiku-latest", time.Second, WithAllowedPairs([]models.PatternRule{
		{Category: models.CategoryRequest, SubIntent: "laptop_request"},
		{Category: models.CategoryIncident, SubIntent: "system_unavailable"},
	}))
}

func TestValidate_ValidSchemaWithinAllowedPairsReturnsResult(t *testing.T) {
	c := testClassifier()

	result := c.validate(schema{Category: "REQUEST", SubIntent: "laptop_request", Confidence: 0.8})

	assert.Equal(t, models.CategoryRequest, result.Category)
	assert.Equal(t, "laptop_request", result.SubIntent)
	assert.Equal(t, 0.8, result.Confidence)
}

func TestValidate_CategoryOutsideClosedSetReturnsUnknown(t *testing.T) {
	c := testClassifier()

	result := c.validate(schema{Category: "NOT_A_REAL_CATEGORY", SubIntent: "x", Confidence: 0.9})

	assert.Equal(t, models.CategoryUnknown, result.Category)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestValidate_PairOutsideAllowedVocabularyReturnsUnknown(t *testing.T) {
	c := testClassifier()

	result := c.validate(schema{Category: "REQUEST", SubIntent: "not_offered", Confidence: 0.9})

	assert.Equal(t, models.CategoryUnknown, result.Category)
}

func TestValidate_ExplicitUnknownCategoryReturnsUnknown(t *testing.T) {
	c := testClassifier()

	result := c.validate(schema{Category: "UNKNOWN", SubIntent: "general_unknown", Confidence: 0.5})

	assert.Equal(t, models.CategoryUnknown, result.Category)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestValidate_OutOfRangeConfidenceClampsToZero(t *testing.T) {
	c := testClassifier()

	result := c.validate(schema{Category: "INCIDENT", SubIntent: "system_unavailable", Confidence: 1.5})

	assert.Equal(t, 0.0, result.Confidence)
}

func TestValidate_NoAllowedPairsSkipsVocabularyCheck(t *testing.T) {
	c := New(testAnthropicClient(), "claude-3-5-haiku-latest", time.Second)

	result := c.validate(schema{Category: "QUERY", SubIntent: "anything_at_all", Confidence: 0.7})

	assert.Equal(t, models.CategoryQuery, result.Category)
	assert.Equal(t, "anything_at_all", result.SubIntent)
}

func TestWithAllowedPairs_DeduplicatesRepeatedPairs(t *testing.T) {
	c := New(testAnthropicClient(), "claude-3-5-haiku-latest", time.Second, WithAllowedPairs([]models.PatternRule{
		{Category: models.CategoryQuery, SubIntent: "status_check"},
		{Category: models.CategoryQuery, SubIntent: "status_check"},
	}))

	assert.Len(t, c.pairs, 1)
}

func TestUserPrompt_IncludesAllowedPairsAndKnownFields(t *testing.T) {
	c := testClassifier()

	prompt := c.userPrompt("need a new laptop", map[string]any{"justification": "onboarding"})

	assert.Contains(t, prompt, "need a new laptop")
	assert.Contains(t, prompt, "REQUEST / laptop_request")
	assert.Contains(t, prompt, "justification")
}

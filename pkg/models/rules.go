package models

import "regexp"

// PatternRule is one entry of the PatternMatcher's declarative rule table.
// Patterns are compiled once at load time; CompiledPatterns is populated by
// the loader and must never be recompiled inside match().
type PatternRule struct {
	ID             string   `yaml:"id"`
	Category       IntentCategory `yaml:"category"`
	SubIntent      string   `yaml:"sub_intent"`
	Patterns       []string `yaml:"patterns"`
	Priority       int      `yaml:"priority"`
	BaseConfidence float64  `yaml:"base_confidence"`

	CompiledPatterns []*regexp.Regexp `yaml:"-"`
}

// SemanticRoute is one entry of the SemanticRouter's route table. Embeddings
// are computed once at load time from Utterances.
type SemanticRoute struct {
	ID         string         `yaml:"id"`
	Category   IntentCategory `yaml:"category"`
	SubIntent  string         `yaml:"sub_intent"`
	Utterances []string       `yaml:"utterances"`

	UtteranceVectors [][]float32 `yaml:"-"`
}

// FieldExtractor describes one way to pull a field's value out of raw text:
// either a capturing regex or a keyword set (presence-only).
type FieldExtractor struct {
	Regex      string   `yaml:"regex,omitempty"`
	Keywords   []string `yaml:"keywords,omitempty"`
	CompiledRE *regexp.Regexp `yaml:"-"`
}

// FieldDefinition names a field CompletenessChecker cares about and how to
// extract it from raw input when it is not already known.
type FieldDefinition struct {
	Key        string           `yaml:"key"`
	Required   bool             `yaml:"required"`
	Extractors []FieldExtractor `yaml:"extractors"`
}

// CompletenessRule pins the required/optional fields and sufficiency
// threshold for one (category, sub_intent) pair. SubIntent empty means
// "category default".
type CompletenessRule struct {
	Category       IntentCategory    `yaml:"category"`
	SubIntent      string            `yaml:"sub_intent,omitempty"`
	RequiredFields []FieldDefinition `yaml:"required_fields"`
	OptionalFields []FieldDefinition `yaml:"optional_fields"`
	Threshold      float64           `yaml:"threshold"`
}

// RefinementCondition is a conjunction of field checks evaluated against a
// dialog session's accumulated fields.
type RefinementCondition struct {
	// Expression is a CEL boolean expression over the accumulated_fields map,
	// e.g. `has(accumulated_fields.requester) && accumulated_fields.justification.contains("gitlab")`.
	Expression string `yaml:"expression"`
	// TargetSubIntent is the sub_intent to adopt when Expression evaluates true.
	TargetSubIntent string `yaml:"target_sub_intent"`
}

// RefinementRule lists the ordered conditions considered for narrowing a
// dialog's sub_intent away from FromSubIntent. The first matching condition
// wins; evaluation never changes intent_category.
type RefinementRule struct {
	FromSubIntent string                 `yaml:"from_sub_intent"`
	Conditions    []RefinementCondition  `yaml:"conditions"`
}

// ServiceNowMapping is one row of the ServiceNowHandler's
// "{category}/{subcategory}" lookup table.
type ServiceNowMapping struct {
	Category       string         `yaml:"category"`
	Subcategory    string         `yaml:"subcategory"`
	IntentCategory IntentCategory `yaml:"intent_category"`
	SubIntent      string         `yaml:"sub_intent"`
}

// Key returns the "{category}/{subcategory}" lookup key for m.
func (m ServiceNowMapping) Key() string {
	return m.Category + "/" + m.Subcategory
}

// PrometheusMapping is one ordered row of the PrometheusHandler's
// alertname-pattern table. The first matching Pattern wins.
type PrometheusMapping struct {
	Pattern        string         `yaml:"pattern"`
	IntentCategory IntentCategory `yaml:"intent_category"`
	SubIntent      string         `yaml:"sub_intent"`

	CompiledPattern *regexp.Regexp `yaml:"-"`
}

// QuestionTemplate is the per-field prompt QuestionGenerator emits when a
// field is missing.
type QuestionTemplate struct {
	FieldKey string `yaml:"field_key"`
	Template string `yaml:"template"`
}

// RiskAdjuster is one multiplicative row of the RiskAssessor's adjustment
// table. SubIntentOverride, when set, forces RiskCritical outright
// regardless of the accumulated score.
type RiskAdjuster struct {
	Name              string  `yaml:"name"`
	Multiplier        float64 `yaml:"multiplier"`
	SubIntentOverride string  `yaml:"sub_intent_override,omitempty"`
}

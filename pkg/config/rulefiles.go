package config

import "github.com/opsintent/intentcore/pkg/models"

// RuleFilesConfig names the declarative rule files the loader reads. Paths
// are resolved relative to the config directory passed to Initialize; a
// blank path means "use built-in defaults only" for that rule kind.
type RuleFilesConfig struct {
	PatternRules      string `yaml:"pattern_rules,omitempty"`
	SemanticRoutes    string `yaml:"semantic_routes,omitempty"`
	CompletenessRules string `yaml:"completeness_rules,omitempty"`
	RefinementRules   string `yaml:"refinement_rules,omitempty"`
	ServiceNowTable   string `yaml:"servicenow_table,omitempty"`
	PrometheusTable   string `yaml:"prometheus_table,omitempty"`
	QuestionTemplates string `yaml:"question_templates,omitempty"`
	RiskAdjusters     string `yaml:"risk_adjusters,omitempty"`
}

type patternRulesFile struct {
	Rules []models.PatternRule `yaml:"rules"`
}

type semanticRoutesFile struct {
	Routes []models.SemanticRoute `yaml:"routes"`
}

type completenessRulesFile struct {
	Rules []models.CompletenessRule `yaml:"rules"`
}

type refinementRulesFile struct {
	Rules []models.RefinementRule `yaml:"rules"`
}

type serviceNowTableFile struct {
	Mappings []models.ServiceNowMapping `yaml:"mappings"`
}

type prometheusTableFile struct {
	Mappings []models.PrometheusMapping `yaml:"mappings"`
}

type questionTemplatesFile struct {
	Templates []models.QuestionTemplate `yaml:"templates"`
}

type riskAdjustersFile struct {
	Adjusters []models.RiskAdjuster `yaml:"adjusters"`
}

// IntentCoreYAMLConfig is the top-level intentcore.yaml file structure.
type IntentCoreYAMLConfig struct {
	RuleFiles  *RuleFilesConfig `yaml:"rule_files"`
	HITL       *HITLConfig      `yaml:"hitl"`
	Dialog     *DialogConfig    `yaml:"dialog"`
	Thresholds *ThresholdConfig `yaml:"thresholds"`
	Checkpoint *CheckpointConfig `yaml:"checkpoint"`
	Embedding  *EmbeddingConfig `yaml:"embedding"`
}

// LLMProvidersYAMLConfig is the llm-providers.yaml file structure.
type LLMProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

package config

import "github.com/opsintent/intentcore/pkg/models"

// Config is the umbrella configuration object: the immutable rule-table
// snapshot plus component settings returned by Initialize() and threaded
// through every component's constructor. Reloading configuration produces
// a new Config and swaps the pointer atomically at the call site; it is
// never mutated in place.
type Config struct {
	configDir string

	PatternRules      []models.PatternRule
	SemanticRoutes    []models.SemanticRoute
	CompletenessRules []models.CompletenessRule
	RefinementRules   []models.RefinementRule
	ServiceNowTable   []models.ServiceNowMapping
	PrometheusTable   []models.PrometheusMapping
	QuestionTemplates []models.QuestionTemplate
	RiskAdjusters     []models.RiskAdjuster

	HITL       *HITLConfig
	Dialog     *DialogConfig
	Thresholds *ThresholdConfig
	Checkpoint *CheckpointConfig
	Embedding  *EmbeddingConfig

	LLMProviderRegistry *LLMProviderRegistry
}

// ConfigStats summarizes loaded configuration for startup logging.
type ConfigStats struct {
	PatternRules      int
	SemanticRoutes    int
	CompletenessRules int
	LLMProviders      int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		PatternRules:      len(c.PatternRules),
		SemanticRoutes:    len(c.SemanticRoutes),
		CompletenessRules: len(c.CompletenessRules),
		LLMProviders:      c.LLMProviderRegistry.Len(),
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetLLMProvider retrieves an LLM provider configuration by name.
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}

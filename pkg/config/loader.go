package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/opsintent/intentcore/pkg/models"
)

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load intentcore.yaml (rule file paths + component settings)
//  2. Load each declarative rule file named there, expanding env vars
//  3. Load llm-providers.yaml
//  4. Merge built-in + user-defined rule tables (user overrides built-in)
//  5. Pre-compile every regex; reject invalid regex or duplicate ids
//  6. Apply defaults for unset settings
//  7. Validate the structure and values of each table (cross-references
//     between tables, such as refinement targets, are not checked)
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("component", "config", "config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized",
		"pattern_rules", stats.PatternRules,
		"semantic_routes", stats.SemanticRoutes,
		"completeness_rules", stats.CompletenessRules,
		"llm_providers", stats.LLMProviders)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	root, err := loader.loadIntentCoreYAML()
	if err != nil {
		return nil, NewLoadError("intentcore.yaml", err)
	}

	llmProviders, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	builtin := GetBuiltinConfig()
	rf := root.RuleFiles
	if rf == nil {
		rf = &RuleFilesConfig{}
	}

	patternRules, err := loader.loadPatternRules(rf.PatternRules)
	if err != nil {
		return nil, err
	}
	semanticRoutes, err := loader.loadSemanticRoutes(rf.SemanticRoutes)
	if err != nil {
		return nil, err
	}
	completenessRules, err := loader.loadCompletenessRules(rf.CompletenessRules)
	if err != nil {
		return nil, err
	}
	refinementRules, err := loader.loadRefinementRules(rf.RefinementRules)
	if err != nil {
		return nil, err
	}
	serviceNowTable, err := loader.loadServiceNowTable(rf.ServiceNowTable)
	if err != nil {
		return nil, err
	}
	prometheusTable, err := loader.loadPrometheusTable(rf.PrometheusTable)
	if err != nil {
		return nil, err
	}
	questionTemplates, err := loader.loadQuestionTemplates(rf.QuestionTemplates)
	if err != nil {
		return nil, err
	}
	riskAdjusters, err := loader.loadRiskAdjusters(rf.RiskAdjusters)
	if err != nil {
		return nil, err
	}

	mergedPatterns := mergePatternRules(builtin.PatternRules, patternRules)
	mergedRoutes := mergeSemanticRoutes(builtin.SemanticRoutes, semanticRoutes)
	mergedCompleteness := mergeCompletenessRules(builtin.CompletenessRules, completenessRules)
	mergedRefinement := mergeRefinementRules(builtin.RefinementRules, refinementRules)
	mergedServiceNow := mergeServiceNowTable(builtin.ServiceNowTable, serviceNowTable)
	mergedPrometheus := mergePrometheusTable(builtin.PrometheusTable, prometheusTable)
	mergedQuestions := mergeQuestionTemplates(builtin.QuestionTemplates, questionTemplates)
	mergedAdjusters := mergeRiskAdjusters(builtin.RiskAdjusters, riskAdjusters)
	mergedLLMProviders := mergeLLMProviders(map[string]LLMProviderConfig{}, llmProviders)

	if err := compilePatternRules(mergedPatterns); err != nil {
		return nil, err
	}
	if err := compileSemanticRoutes(mergedRoutes); err != nil {
		return nil, err
	}
	if err := compilePrometheusTable(mergedPrometheus); err != nil {
		return nil, err
	}
	if err := compileFieldExtractors(mergedCompleteness); err != nil {
		return nil, err
	}

	// Start from built-in defaults and merge in whatever the user set, so a
	// user who only overrides one field (e.g. hitl.approval_ttl) keeps
	// built-in values for the rest instead of zeroing them out.
	hitl := DefaultHITL()
	if root.HITL != nil {
		if err := mergo.Merge(hitl, root.HITL, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging hitl config: %w", err)
		}
	}
	dialog := DefaultDialog()
	if root.Dialog != nil {
		if err := mergo.Merge(dialog, root.Dialog, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging dialog config: %w", err)
		}
	}
	thresholds := DefaultThresholds()
	if root.Thresholds != nil {
		if err := mergo.Merge(thresholds, root.Thresholds, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging thresholds config: %w", err)
		}
	}
	checkpoint := DefaultCheckpoint()
	if root.Checkpoint != nil {
		if err := mergo.Merge(checkpoint, root.Checkpoint, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging checkpoint config: %w", err)
		}
	}

	return &Config{
		configDir:           configDir,
		PatternRules:        mergedPatterns,
		SemanticRoutes:      mergedRoutes,
		CompletenessRules:   mergedCompleteness,
		RefinementRules:     mergedRefinement,
		ServiceNowTable:     mergedServiceNow,
		PrometheusTable:     mergedPrometheus,
		QuestionTemplates:   mergedQuestions,
		RiskAdjusters:       mergedAdjusters,
		HITL:                hitl,
		Dialog:              dialog,
		Thresholds:          thresholds,
		Checkpoint:          checkpoint,
		Embedding:           root.Embedding,
		LLMProviderRegistry: NewLLMProviderRegistry(mergedLLMProviders),
	}, nil
}

func validate(cfg *Config) error {
	return NewValidator(cfg).ValidateAll()
}

type configLoader struct {
	configDir string
}

// loadYAML reads and parses a required YAML file, expanding env references.
func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}
	data = ExpandEnv(data)
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

func (l *configLoader) loadIntentCoreYAML() (*IntentCoreYAMLConfig, error) {
	var cfg IntentCoreYAMLConfig
	err := l.loadYAML("intentcore.yaml", &cfg)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return &IntentCoreYAMLConfig{}, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, error) {
	var cfg LLMProvidersYAMLConfig
	cfg.LLMProviders = make(map[string]LLMProviderConfig)
	err := l.loadYAML("llm-providers.yaml", &cfg)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return map[string]LLMProviderConfig{}, nil
		}
		return nil, err
	}
	return cfg.LLMProviders, nil
}

func (l *configLoader) loadPatternRules(path string) ([]models.PatternRule, error) {
	if path == "" {
		return nil, nil
	}
	var f patternRulesFile
	if err := l.loadYAMLFileIfExists(path, &f); err != nil {
		return nil, NewLoadError(path, err)
	}
	if err := rejectDuplicatePatternIDs(f.Rules); err != nil {
		return nil, NewLoadError(path, err)
	}
	return f.Rules, nil
}

func (l *configLoader) loadSemanticRoutes(path string) ([]models.SemanticRoute, error) {
	if path == "" {
		return nil, nil
	}
	var f semanticRoutesFile
	if err := l.loadYAMLFileIfExists(path, &f); err != nil {
		return nil, NewLoadError(path, err)
	}
	return f.Routes, nil
}

func (l *configLoader) loadCompletenessRules(path string) ([]models.CompletenessRule, error) {
	if path == "" {
		return nil, nil
	}
	var f completenessRulesFile
	if err := l.loadYAMLFileIfExists(path, &f); err != nil {
		return nil, NewLoadError(path, err)
	}
	return f.Rules, nil
}

func (l *configLoader) loadRefinementRules(path string) ([]models.RefinementRule, error) {
	if path == "" {
		return nil, nil
	}
	var f refinementRulesFile
	if err := l.loadYAMLFileIfExists(path, &f); err != nil {
		return nil, NewLoadError(path, err)
	}
	return f.Rules, nil
}

func (l *configLoader) loadServiceNowTable(path string) ([]models.ServiceNowMapping, error) {
	if path == "" {
		return nil, nil
	}
	var f serviceNowTableFile
	if err := l.loadYAMLFileIfExists(path, &f); err != nil {
		return nil, NewLoadError(path, err)
	}
	return f.Mappings, nil
}

func (l *configLoader) loadPrometheusTable(path string) ([]models.PrometheusMapping, error) {
	if path == "" {
		return nil, nil
	}
	var f prometheusTableFile
	if err := l.loadYAMLFileIfExists(path, &f); err != nil {
		return nil, NewLoadError(path, err)
	}
	return f.Mappings, nil
}

func (l *configLoader) loadQuestionTemplates(path string) ([]models.QuestionTemplate, error) {
	if path == "" {
		return nil, nil
	}
	var f questionTemplatesFile
	if err := l.loadYAMLFileIfExists(path, &f); err != nil {
		return nil, NewLoadError(path, err)
	}
	return f.Templates, nil
}

func (l *configLoader) loadRiskAdjusters(path string) ([]models.RiskAdjuster, error) {
	if path == "" {
		return nil, nil
	}
	var f riskAdjustersFile
	if err := l.loadYAMLFileIfExists(path, &f); err != nil {
		return nil, NewLoadError(path, err)
	}
	return f.Adjusters, nil
}

// loadYAMLFileIfExists reads path (relative to configDir) if it exists,
// leaving target untouched when the file is absent.
func (l *configLoader) loadYAMLFileIfExists(path string, target any) error {
	full := filepath.Join(l.configDir, path)
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	data = ExpandEnv(data)
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

func rejectDuplicatePatternIDs(rules []models.PatternRule) error {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if seen[r.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}

package config

import (
	"fmt"

	"github.com/opsintent/intentcore/pkg/models"
)

// Validator checks a loaded Config for structural and cross-reference
// consistency beyond what compile.go's regex pre-compilation already
// guarantees. It fails fast at the first problem found, mirroring the
// order rule tables are loaded in.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error)
func (v *Validator) ValidateAll() error {
	if err := v.validatePatternRules(); err != nil {
		return err
	}
	if err := v.validateSemanticRoutes(); err != nil {
		return err
	}
	if err := v.validateCompletenessRules(); err != nil {
		return err
	}
	if err := v.validateRefinementRules(); err != nil {
		return err
	}
	if err := v.validateServiceNowTable(); err != nil {
		return err
	}
	if err := v.validatePrometheusTable(); err != nil {
		return err
	}
	if err := v.validateQuestionTemplates(); err != nil {
		return err
	}
	if err := v.validateRiskAdjusters(); err != nil {
		return err
	}
	if err := v.validateLLMProviders(); err != nil {
		return err
	}
	if err := v.validateHITL(); err != nil {
		return err
	}
	if err := v.validateDialog(); err != nil {
		return err
	}
	if err := v.validateThresholds(); err != nil {
		return err
	}
	if err := v.validateCheckpoint(); err != nil {
		return err
	}
	return nil
}

func (v *Validator) validatePatternRules() error {
	for _, r := range v.cfg.PatternRules {
		if r.ID == "" {
			return NewValidationError("pattern_rule", "", "id", ErrMissingRequiredField)
		}
		if !r.Category.IsValid() {
			return NewValidationError("pattern_rule", r.ID, "category", fmt.Errorf("%w: %s", ErrInvalidValue, r.Category))
		}
		if r.SubIntent == "" {
			return NewValidationError("pattern_rule", r.ID, "sub_intent", ErrMissingRequiredField)
		}
		if len(r.Patterns) == 0 {
			return NewValidationError("pattern_rule", r.ID, "patterns", fmt.Errorf("at least one pattern required"))
		}
		if r.BaseConfidence < 0 || r.BaseConfidence > 1 {
			return NewValidationError("pattern_rule", r.ID, "base_confidence", fmt.Errorf("%w: must be in [0,1]", ErrInvalidValue))
		}
	}
	return nil
}

func (v *Validator) validateSemanticRoutes() error {
	for _, r := range v.cfg.SemanticRoutes {
		if r.ID == "" {
			return NewValidationError("semantic_route", "", "id", ErrMissingRequiredField)
		}
		if !r.Category.IsValid() {
			return NewValidationError("semantic_route", r.ID, "category", fmt.Errorf("%w: %s", ErrInvalidValue, r.Category))
		}
		if r.SubIntent == "" {
			return NewValidationError("semantic_route", r.ID, "sub_intent", ErrMissingRequiredField)
		}
	}
	return nil
}

func (v *Validator) validateCompletenessRules() error {
	seen := make(map[string]bool, len(v.cfg.CompletenessRules))
	for _, r := range v.cfg.CompletenessRules {
		key := completenessKey(r)
		if seen[key] {
			return NewValidationError("completeness_rule", key, "", ErrDuplicateID)
		}
		seen[key] = true

		if !r.Category.IsValid() {
			return NewValidationError("completeness_rule", key, "category", fmt.Errorf("%w: %s", ErrInvalidValue, r.Category))
		}
		if r.Threshold < 0 || r.Threshold > 1 {
			return NewValidationError("completeness_rule", key, "threshold", fmt.Errorf("%w: must be in [0,1]", ErrInvalidValue))
		}
		if err := validateFieldDefinitions(key, "required_fields", r.RequiredFields); err != nil {
			return err
		}
		if err := validateFieldDefinitions(key, "optional_fields", r.OptionalFields); err != nil {
			return err
		}
	}
	return nil
}

func validateFieldDefinitions(ruleKey, field string, defs []models.FieldDefinition) error {
	for _, d := range defs {
		if d.Key == "" {
			return NewValidationError("completeness_rule", ruleKey, field, fmt.Errorf("%w: field key", ErrMissingRequiredField))
		}
		for _, ext := range d.Extractors {
			if ext.Regex == "" && len(ext.Keywords) == 0 {
				return NewValidationError("completeness_rule", ruleKey, field,
					fmt.Errorf("field %q: extractor needs a regex or keywords", d.Key))
			}
		}
	}
	return nil
}

// validateRefinementRules checks structural well-formedness. Whether a
// refinement condition's target_sub_intent keeps the request within the
// same intent_category is a runtime invariant enforced by the dialog
// engine against the session it is refining, not something this loader has
// enough context to check ahead of time.
func (v *Validator) validateRefinementRules() error {
	for _, r := range v.cfg.RefinementRules {
		if r.FromSubIntent == "" {
			return NewValidationError("refinement_rule", "", "from_sub_intent", ErrMissingRequiredField)
		}
		if len(r.Conditions) == 0 {
			return NewValidationError("refinement_rule", r.FromSubIntent, "conditions", fmt.Errorf("at least one condition required"))
		}
		for i, c := range r.Conditions {
			if c.Expression == "" {
				return NewValidationError("refinement_rule", r.FromSubIntent, fmt.Sprintf("conditions[%d].expression", i), ErrMissingRequiredField)
			}
			if c.TargetSubIntent == "" {
				return NewValidationError("refinement_rule", r.FromSubIntent, fmt.Sprintf("conditions[%d].target_sub_intent", i), ErrMissingRequiredField)
			}
		}
	}
	return nil
}

func (v *Validator) validateServiceNowTable() error {
	seen := make(map[string]bool, len(v.cfg.ServiceNowTable))
	for _, m := range v.cfg.ServiceNowTable {
		key := m.Key()
		if m.Category == "" || m.Subcategory == "" {
			return NewValidationError("servicenow_mapping", key, "", fmt.Errorf("%w: category and subcategory", ErrMissingRequiredField))
		}
		if seen[key] {
			return NewValidationError("servicenow_mapping", key, "", ErrDuplicateID)
		}
		seen[key] = true
		if !m.IntentCategory.IsValid() {
			return NewValidationError("servicenow_mapping", key, "intent_category", fmt.Errorf("%w: %s", ErrInvalidValue, m.IntentCategory))
		}
		if m.SubIntent == "" {
			return NewValidationError("servicenow_mapping", key, "sub_intent", ErrMissingRequiredField)
		}
	}
	return nil
}

// validatePrometheusTable asserts the structural shape; pattern compilation
// and its error path are compile.go's job.
func (v *Validator) validatePrometheusTable() error {
	for _, m := range v.cfg.PrometheusTable {
		if m.Pattern == "" {
			return NewValidationError("prometheus_mapping", "", "pattern", ErrMissingRequiredField)
		}
		if !m.IntentCategory.IsValid() {
			return NewValidationError("prometheus_mapping", m.Pattern, "intent_category", fmt.Errorf("%w: %s", ErrInvalidValue, m.IntentCategory))
		}
		if m.SubIntent == "" {
			return NewValidationError("prometheus_mapping", m.Pattern, "sub_intent", ErrMissingRequiredField)
		}
	}
	return nil
}

func (v *Validator) validateQuestionTemplates() error {
	seen := make(map[string]bool, len(v.cfg.QuestionTemplates))
	for _, t := range v.cfg.QuestionTemplates {
		if t.FieldKey == "" {
			return NewValidationError("question_template", "", "field_key", ErrMissingRequiredField)
		}
		if seen[t.FieldKey] {
			return NewValidationError("question_template", t.FieldKey, "field_key", ErrDuplicateID)
		}
		seen[t.FieldKey] = true
		if t.Template == "" {
			return NewValidationError("question_template", t.FieldKey, "template", ErrMissingRequiredField)
		}
	}
	return nil
}

func (v *Validator) validateRiskAdjusters() error {
	seen := make(map[string]bool, len(v.cfg.RiskAdjusters))
	for _, a := range v.cfg.RiskAdjusters {
		if a.Name == "" {
			return NewValidationError("risk_adjuster", "", "name", ErrMissingRequiredField)
		}
		if seen[a.Name] {
			return NewValidationError("risk_adjuster", a.Name, "name", ErrDuplicateID)
		}
		seen[a.Name] = true
		if a.Multiplier <= 0 {
			return NewValidationError("risk_adjuster", a.Name, "multiplier", fmt.Errorf("%w: must be positive", ErrInvalidValue))
		}
	}
	return nil
}

func (v *Validator) validateLLMProviders() error {
	for name, p := range v.cfg.LLMProviderRegistry.GetAll() {
		if !p.Type.IsValid() {
			return NewValidationError("llm_provider", name, "type", fmt.Errorf("%w: %s", ErrInvalidValue, p.Type))
		}
		if p.Model == "" {
			return NewValidationError("llm_provider", name, "model", ErrMissingRequiredField)
		}
	}
	return nil
}

func (v *Validator) validateHITL() error {
	h := v.cfg.HITL
	if h.ApprovalTTL <= 0 {
		return NewValidationError("hitl", "", "approval_ttl", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if h.EscalationCap < 0 {
		return NewValidationError("hitl", "", "escalation_cap", fmt.Errorf("%w: must be non-negative", ErrInvalidValue))
	}
	if h.SweepInterval <= 0 {
		return NewValidationError("hitl", "", "sweep_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if h.NotifyMaxAttempts <= 0 {
		return NewValidationError("hitl", "", "notify_max_attempts", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateDialog() error {
	if v.cfg.Dialog.IdleTTL <= 0 {
		return NewValidationError("dialog", "", "idle_ttl", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateThresholds() error {
	t := v.cfg.Thresholds
	if t.PatternConfidence < 0 || t.PatternConfidence > 1 {
		return NewValidationError("thresholds", "", "pattern_confidence", fmt.Errorf("%w: must be in [0,1]", ErrInvalidValue))
	}
	if t.SemanticSimilarity < 0 || t.SemanticSimilarity > 1 {
		return NewValidationError("thresholds", "", "semantic_similarity", fmt.Errorf("%w: must be in [0,1]", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateCheckpoint() error {
	c := v.cfg.Checkpoint
	if !c.Backend.IsValid() {
		return NewValidationError("checkpoint", "", "backend", fmt.Errorf("%w: %s", ErrInvalidValue, c.Backend))
	}
	switch c.Backend {
	case CheckpointBackendRedis, CheckpointBackendSQL:
		if c.DSN == "" {
			return NewValidationError("checkpoint", "", "dsn", fmt.Errorf("%w: required for backend %q", ErrMissingRequiredField, c.Backend))
		}
	case CheckpointBackendFile:
		if c.FileRoot == "" {
			return NewValidationError("checkpoint", "", "file_root", fmt.Errorf("%w: required for file backend", ErrMissingRequiredField))
		}
	}
	return nil
}

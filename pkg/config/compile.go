package config

import (
	"fmt"
	"regexp"

	"github.com/opsintent/intentcore/pkg/models"
)

// compilePatternRules pre-compiles every rule's patterns in place and
// rejects invalid regexes or duplicate ids. Compilation happens once here,
// never later inside a hot match path.
func compilePatternRules(rules []models.PatternRule) error {
	seen := make(map[string]bool, len(rules))
	for i := range rules {
		r := &rules[i]
		if seen[r.ID] {
			return NewValidationError("pattern_rule", r.ID, "id", ErrDuplicateID)
		}
		seen[r.ID] = true

		compiled := make([]*regexp.Regexp, 0, len(r.Patterns))
		for _, p := range r.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return NewValidationError("pattern_rule", r.ID, "patterns", fmt.Errorf("invalid regex %q: %w", p, err))
			}
			compiled = append(compiled, re)
		}
		r.CompiledPatterns = compiled
	}
	return nil
}

// compileSemanticRoutes validates route ids are unique. Embedding happens
// later, at classifier construction time, once an embedding provider is
// wired in — the config layer only owns the declarative shape.
func compileSemanticRoutes(routes []models.SemanticRoute) error {
	seen := make(map[string]bool, len(routes))
	for _, r := range routes {
		if seen[r.ID] {
			return NewValidationError("semantic_route", r.ID, "id", ErrDuplicateID)
		}
		seen[r.ID] = true
		if len(r.Utterances) != 5 {
			return NewValidationError("semantic_route", r.ID, "utterances",
				fmt.Errorf("expected exactly 5 utterances, got %d", len(r.Utterances)))
		}
	}
	return nil
}

// compilePrometheusTable pre-compiles every alertname pattern in place.
func compilePrometheusTable(table []models.PrometheusMapping) error {
	for i := range table {
		m := &table[i]
		re, err := regexp.Compile(m.Pattern)
		if err != nil {
			return NewValidationError("prometheus_mapping", m.Pattern, "pattern", fmt.Errorf("invalid regex: %w", err))
		}
		m.CompiledPattern = re
	}
	return nil
}

// compileFieldExtractors pre-compiles every regex-based field extractor
// reachable from a completeness rule's required/optional fields.
func compileFieldExtractors(rules []models.CompletenessRule) error {
	compileOne := func(fields []models.FieldDefinition) error {
		for i := range fields {
			for j := range fields[i].Extractors {
				ext := &fields[i].Extractors[j]
				if ext.Regex == "" {
					continue
				}
				re, err := regexp.Compile(ext.Regex)
				if err != nil {
					return fmt.Errorf("field %q: invalid regex %q: %w", fields[i].Key, ext.Regex, err)
				}
				ext.CompiledRE = re
			}
		}
		return nil
	}

	for i := range rules {
		key := completenessKey(rules[i])
		if err := compileOne(rules[i].RequiredFields); err != nil {
			return NewValidationError("completeness_rule", key, "required_fields", err)
		}
		if err := compileOne(rules[i].OptionalFields); err != nil {
			return NewValidationError("completeness_rule", key, "optional_fields", err)
		}
	}
	return nil
}

package config

import "github.com/opsintent/intentcore/pkg/models"

// mergePatternRules merges built-in and user-defined pattern rules.
// User-defined rules override built-in rules sharing the same id.
func mergePatternRules(builtin, user []models.PatternRule) []models.PatternRule {
	byID := make(map[string]models.PatternRule, len(builtin)+len(user))
	order := make([]string, 0, len(builtin)+len(user))
	for _, r := range builtin {
		byID[r.ID] = r
		order = append(order, r.ID)
	}
	for _, r := range user {
		if _, exists := byID[r.ID]; !exists {
			order = append(order, r.ID)
		}
		byID[r.ID] = r
	}
	result := make([]models.PatternRule, 0, len(order))
	for _, id := range order {
		result = append(result, byID[id])
	}
	return result
}

// mergeSemanticRoutes merges built-in and user-defined semantic routes.
// User-defined routes override built-in routes sharing the same id.
func mergeSemanticRoutes(builtin, user []models.SemanticRoute) []models.SemanticRoute {
	byID := make(map[string]models.SemanticRoute, len(builtin)+len(user))
	order := make([]string, 0, len(builtin)+len(user))
	for _, r := range builtin {
		byID[r.ID] = r
		order = append(order, r.ID)
	}
	for _, r := range user {
		if _, exists := byID[r.ID]; !exists {
			order = append(order, r.ID)
		}
		byID[r.ID] = r
	}
	result := make([]models.SemanticRoute, 0, len(order))
	for _, id := range order {
		result = append(result, byID[id])
	}
	return result
}

func completenessKey(r models.CompletenessRule) string {
	return string(r.Category) + "/" + r.SubIntent
}

// mergeCompletenessRules merges built-in and user-defined completeness
// rules, keyed by (category, sub_intent). User-defined rules override.
func mergeCompletenessRules(builtin, user []models.CompletenessRule) []models.CompletenessRule {
	byKey := make(map[string]models.CompletenessRule, len(builtin)+len(user))
	order := make([]string, 0, len(builtin)+len(user))
	for _, r := range builtin {
		k := completenessKey(r)
		byKey[k] = r
		order = append(order, k)
	}
	for _, r := range user {
		k := completenessKey(r)
		if _, exists := byKey[k]; !exists {
			order = append(order, k)
		}
		byKey[k] = r
	}
	result := make([]models.CompletenessRule, 0, len(order))
	for _, k := range order {
		result = append(result, byKey[k])
	}
	return result
}

// mergeRefinementRules merges built-in and user-defined refinement rules,
// keyed by from_sub_intent. User-defined rules override.
func mergeRefinementRules(builtin, user []models.RefinementRule) []models.RefinementRule {
	byKey := make(map[string]models.RefinementRule, len(builtin)+len(user))
	order := make([]string, 0, len(builtin)+len(user))
	for _, r := range builtin {
		byKey[r.FromSubIntent] = r
		order = append(order, r.FromSubIntent)
	}
	for _, r := range user {
		if _, exists := byKey[r.FromSubIntent]; !exists {
			order = append(order, r.FromSubIntent)
		}
		byKey[r.FromSubIntent] = r
	}
	result := make([]models.RefinementRule, 0, len(order))
	for _, k := range order {
		result = append(result, byKey[k])
	}
	return result
}

// mergeServiceNowTable merges built-in and user-defined ServiceNow
// mappings, keyed by "{category}/{subcategory}". User-defined rows override.
func mergeServiceNowTable(builtin, user []models.ServiceNowMapping) []models.ServiceNowMapping {
	byKey := make(map[string]models.ServiceNowMapping, len(builtin)+len(user))
	order := make([]string, 0, len(builtin)+len(user))
	for _, m := range builtin {
		byKey[m.Key()] = m
		order = append(order, m.Key())
	}
	for _, m := range user {
		if _, exists := byKey[m.Key()]; !exists {
			order = append(order, m.Key())
		}
		byKey[m.Key()] = m
	}
	result := make([]models.ServiceNowMapping, 0, len(order))
	for _, k := range order {
		result = append(result, byKey[k])
	}
	return result
}

// mergePrometheusTable merges built-in and user-defined Prometheus alert
// mappings. User-defined rows are consulted first since the handler takes
// the first matching pattern; built-in rows fill out the rest, skipping any
// pattern the user already defined.
func mergePrometheusTable(builtin, user []models.PrometheusMapping) []models.PrometheusMapping {
	seen := make(map[string]bool, len(builtin)+len(user))
	result := make([]models.PrometheusMapping, 0, len(builtin)+len(user))
	for _, m := range user {
		if !seen[m.Pattern] {
			seen[m.Pattern] = true
			result = append(result, m)
		}
	}
	for _, m := range builtin {
		if !seen[m.Pattern] {
			seen[m.Pattern] = true
			result = append(result, m)
		}
	}
	return result
}

// mergeQuestionTemplates merges built-in and user-defined question
// templates, keyed by field_key. User-defined templates override.
func mergeQuestionTemplates(builtin, user []models.QuestionTemplate) []models.QuestionTemplate {
	byKey := make(map[string]models.QuestionTemplate, len(builtin)+len(user))
	order := make([]string, 0, len(builtin)+len(user))
	for _, t := range builtin {
		byKey[t.FieldKey] = t
		order = append(order, t.FieldKey)
	}
	for _, t := range user {
		if _, exists := byKey[t.FieldKey]; !exists {
			order = append(order, t.FieldKey)
		}
		byKey[t.FieldKey] = t
	}
	result := make([]models.QuestionTemplate, 0, len(order))
	for _, k := range order {
		result = append(result, byKey[k])
	}
	return result
}

// mergeRiskAdjusters merges built-in and user-defined risk adjusters,
// keyed by name. User-defined adjusters override.
func mergeRiskAdjusters(builtin, user []models.RiskAdjuster) []models.RiskAdjuster {
	byKey := make(map[string]models.RiskAdjuster, len(builtin)+len(user))
	order := make([]string, 0, len(builtin)+len(user))
	for _, a := range builtin {
		byKey[a.Name] = a
		order = append(order, a.Name)
	}
	for _, a := range user {
		if _, exists := byKey[a.Name]; !exists {
			order = append(order, a.Name)
		}
		byKey[a.Name] = a
	}
	result := make([]models.RiskAdjuster, 0, len(order))
	for _, k := range order {
		result = append(result, byKey[k])
	}
	return result
}

// mergeLLMProviders merges built-in and user-defined LLM provider
// configurations. User-defined providers override built-in providers with
// the same name.
func mergeLLMProviders(builtin, user map[string]LLMProviderConfig) map[string]*LLMProviderConfig {
	result := make(map[string]*LLMProviderConfig, len(builtin)+len(user))
	for name, provider := range builtin {
		providerCopy := provider
		result[name] = &providerCopy
	}
	for name, provider := range user {
		providerCopy := provider
		result[name] = &providerCopy
	}
	return result
}

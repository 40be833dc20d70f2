package config

import (
	"sync"

	"github.com/opsintent/intentcore/pkg/models"
)

// BuiltinConfig holds the built-in rule tables merged with user-supplied
// YAML at load time. It gives the core a usable configuration out of the
// box and a concrete shape for every declarative rule file kind the
// loader accepts.
type BuiltinConfig struct {
	PatternRules      []models.PatternRule
	SemanticRoutes    []models.SemanticRoute
	CompletenessRules []models.CompletenessRule
	RefinementRules   []models.RefinementRule
	ServiceNowTable   []models.ServiceNowMapping
	PrometheusTable   []models.PrometheusMapping
	QuestionTemplates []models.QuestionTemplate
	RiskAdjusters     []models.RiskAdjuster
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration (thread-safe, lazy-initialized).
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		PatternRules:      initBuiltinPatternRules(),
		SemanticRoutes:    initBuiltinSemanticRoutes(),
		CompletenessRules: initBuiltinCompletenessRules(),
		RefinementRules:   initBuiltinRefinementRules(),
		ServiceNowTable:   initBuiltinServiceNowTable(),
		PrometheusTable:   initBuiltinPrometheusTable(),
		QuestionTemplates: initBuiltinQuestionTemplates(),
		RiskAdjusters:     initBuiltinRiskAdjusters(),
	}
}

func initBuiltinPatternRules() []models.PatternRule {
	return []models.PatternRule{
		{
			ID:             "etl_failure",
			Category:       models.CategoryIncident,
			SubIntent:      "etl_failure",
			Priority:       100,
			BaseConfidence: 0.95,
			Patterns: []string{
				`\bETL\b.*(failed|error|abort)`,
				`pipeline.*(stuck|hung)`,
			},
		},
		{
			ID:             "system_down",
			Category:       models.CategoryIncident,
			SubIntent:      "system_down",
			Priority:       110,
			BaseConfidence: 0.97,
			Patterns: []string{
				`\b(system|service)\b.*(down|unavailable|outage)`,
			},
		},
		{
			ID:             "account_request",
			Category:       models.CategoryRequest,
			SubIntent:      "account_request",
			Priority:       90,
			BaseConfidence: 0.90,
			Patterns: []string{
				`(申請|request).*(帳號|account)`,
			},
		},
		{
			ID:             "release_deployment",
			Category:       models.CategoryChange,
			SubIntent:      "release_deployment",
			Priority:       95,
			BaseConfidence: 0.90,
			Patterns: []string{
				`\bdeploy(ment)?\b.*(release|rollout)`,
			},
		},
		{
			ID:             "status_check",
			Category:       models.CategoryQuery,
			SubIntent:      "status_check",
			Priority:       60,
			BaseConfidence: 0.80,
			Patterns: []string{
				`\bstatus\b.*(check|of)`,
			},
		},
	}
}

func initBuiltinSemanticRoutes() []models.SemanticRoute {
	return []models.SemanticRoute{
		{
			ID:        "database_performance",
			Category:  models.CategoryIncident,
			SubIntent: "database_performance",
			Utterances: []string{
				"the database is running slow today",
				"db performance has degraded since this morning",
				"queries are taking far too long to complete",
				"資料庫好像有點慢",
				"database response time is unusually high",
			},
		},
		{
			ID:        "general_request",
			Category:  models.CategoryRequest,
			SubIntent: "general_request",
			Utterances: []string{
				"I need something set up for my team",
				"can you help me get access to a resource",
				"requesting a new tool for our project",
				"我需要申請一項服務",
				"please provision what I need to get started",
			},
		},
	}
}

func initBuiltinCompletenessRules() []models.CompletenessRule {
	requesterField := models.FieldDefinition{
		Key:        "requester",
		Required:   true,
		Extractors: []models.FieldExtractor{{Keywords: []string{"requester", "申請人"}}},
	}
	justificationField := models.FieldDefinition{
		Key:        "justification",
		Required:   true,
		Extractors: []models.FieldExtractor{{Keywords: []string{"because", "justification", "因為"}}},
	}
	targetResourceField := models.FieldDefinition{
		Key:        "target_resource",
		Required:   true,
		Extractors: []models.FieldExtractor{{Keywords: []string{"gitlab", "vpn", "aws", "資源"}}},
	}

	return []models.CompletenessRule{
		{
			Category:  models.CategoryIncident,
			SubIntent: "etl_failure",
			RequiredFields: []models.FieldDefinition{
				{Key: "error_message", Required: true, Extractors: []models.FieldExtractor{{Regex: `(?i)error[:\s]+(.+)`}}},
				{Key: "occurrence_time", Required: true, Extractors: []models.FieldExtractor{{Keywords: []string{"today", "yesterday", "am", "pm"}}}},
			},
			OptionalFields: []models.FieldDefinition{
				{Key: "pipeline_name", Required: false, Extractors: []models.FieldExtractor{{Regex: `(?i)pipeline[:\s]+([\w-]+)`}}},
			},
			Threshold: 0.60,
		},
		{
			Category: models.CategoryIncident,
			RequiredFields: []models.FieldDefinition{
				{Key: "error_message", Required: true, Extractors: []models.FieldExtractor{{Regex: `(?i)error[:\s]+(.+)`}}},
			},
			Threshold: 0.60,
		},
		{
			Category:  models.CategoryRequest,
			SubIntent: "account_request",
			RequiredFields: []models.FieldDefinition{
				requesterField, justificationField, targetResourceField,
			},
			Threshold: 0.60,
		},
		{
			Category:  models.CategoryRequest,
			SubIntent: "general_request",
			RequiredFields: []models.FieldDefinition{
				requesterField,
			},
			OptionalFields: []models.FieldDefinition{
				targetResourceField,
			},
			Threshold: 0.60,
		},
		{
			Category:       models.CategoryRequest,
			RequiredFields: []models.FieldDefinition{requesterField},
			Threshold:      0.60,
		},
		{
			Category: models.CategoryChange,
			RequiredFields: []models.FieldDefinition{
				{Key: "change_description", Required: true, Extractors: []models.FieldExtractor{{Keywords: []string{"change", "deploy", "release"}}}},
				{Key: "scheduled_time", Required: true, Extractors: []models.FieldExtractor{{Keywords: []string{"schedule", "scheduled", "at"}}}},
			},
			Threshold: 0.70,
		},
		{
			Category:       models.CategoryQuery,
			RequiredFields: nil,
			Threshold:      0.50,
		},
	}
}

func initBuiltinRefinementRules() []models.RefinementRule {
	return []models.RefinementRule{
		{
			FromSubIntent: "general_request",
			Conditions: []models.RefinementCondition{
				{
					Expression:      `accumulated_fields.target_resource.contains("gitlab")`,
					TargetSubIntent: "account_request",
				},
				{
					Expression:      `accumulated_fields.target_resource.contains("vpn")`,
					TargetSubIntent: "access_request",
				},
			},
		},
	}
}

func initBuiltinServiceNowTable() []models.ServiceNowMapping {
	return []models.ServiceNowMapping{
		{Category: "incident", Subcategory: "network", IntentCategory: models.CategoryIncident, SubIntent: "network_failure"},
		{Category: "incident", Subcategory: "database", IntentCategory: models.CategoryIncident, SubIntent: "database_performance"},
		{Category: "incident", Subcategory: "application", IntentCategory: models.CategoryIncident, SubIntent: "application_error"},
		{Category: "incident", Subcategory: "hardware", IntentCategory: models.CategoryIncident, SubIntent: "hardware_failure"},
		{Category: "request", Subcategory: "access", IntentCategory: models.CategoryRequest, SubIntent: "access_request"},
		{Category: "request", Subcategory: "account", IntentCategory: models.CategoryRequest, SubIntent: "account_request"},
		{Category: "request", Subcategory: "software", IntentCategory: models.CategoryRequest, SubIntent: "software_request"},
		{Category: "request", Subcategory: "hardware", IntentCategory: models.CategoryRequest, SubIntent: "hardware_request"},
		{Category: "change", Subcategory: "deployment", IntentCategory: models.CategoryChange, SubIntent: "release_deployment"},
		{Category: "change", Subcategory: "configuration", IntentCategory: models.CategoryChange, SubIntent: "configuration_change"},
		{Category: "change", Subcategory: "patch", IntentCategory: models.CategoryChange, SubIntent: "patch_management"},
		{Category: "change", Subcategory: "emergency", IntentCategory: models.CategoryChange, SubIntent: "emergency_change"},
	}
}

func initBuiltinPrometheusTable() []models.PrometheusMapping {
	return []models.PrometheusMapping{
		{Pattern: `(?i)systemdown|serviceunavailable`, IntentCategory: models.CategoryIncident, SubIntent: "system_unavailable"},
		{Pattern: `(?i)highlatency|slowresponse`, IntentCategory: models.CategoryIncident, SubIntent: "performance_degradation"},
		{Pattern: `(?i)diskspace|diskfull`, IntentCategory: models.CategoryIncident, SubIntent: "disk_space"},
		{Pattern: `(?i)memoryhigh|oomkill`, IntentCategory: models.CategoryIncident, SubIntent: "memory_pressure"},
	}
}

func initBuiltinQuestionTemplates() []models.QuestionTemplate {
	return []models.QuestionTemplate{
		{FieldKey: "error_message", Template: "Can you describe the error message or symptom you observed?"},
		{FieldKey: "occurrence_time", Template: "When did this first occur?"},
		{FieldKey: "pipeline_name", Template: "Which pipeline is affected?"},
		{FieldKey: "requester", Template: "Who is requesting this?"},
		{FieldKey: "justification", Template: "What is the business justification?"},
		{FieldKey: "target_resource", Template: "Which system or resource is this for?"},
		{FieldKey: "change_description", Template: "What change is being requested?"},
		{FieldKey: "scheduled_time", Template: "When should this change be scheduled?"},
	}
}

func initBuiltinRiskAdjusters() []models.RiskAdjuster {
	return []models.RiskAdjuster{
		{Name: "production_env", Multiplier: 1.3},
		{Name: "staging_env", Multiplier: 1.0},
		{Name: "weekend", Multiplier: 1.2},
		{Name: "urgent", Multiplier: 1.2},
		{Name: "system_down_override", Multiplier: 1.0, SubIntentOverride: "system_down"},
	}
}

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestInitialize_NoFilesUsesBuiltinDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Initialize(context.Background(), dir)

	require.NoError(t, err)
	stats := cfg.Stats()
	builtin := GetBuiltinConfig()
	assert.Equal(t, len(builtin.PatternRules), stats.PatternRules)
	assert.Equal(t, len(builtin.SemanticRoutes), stats.SemanticRoutes)
	assert.Equal(t, CheckpointBackendMemory, cfg.Checkpoint.Backend)
}

func TestInitialize_UserRuleFileOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "intentcore.yaml", `
rule_files:
  pattern_rules: patterns.yaml
`)
	writeFile(t, dir, "patterns.yaml", `
rules:
  - id: etl_failure
    category: INCIDENT
    sub_intent: etl_failure_custom
    patterns:
      - "custom pattern"
    base_confidence: 0.99
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	var found bool
	for _, r := range cfg.PatternRules {
		if r.ID == "etl_failure" {
			found = true
			assert.Equal(t, "etl_failure_custom", r.SubIntent)
		}
	}
	assert.True(t, found)
}

func TestInitialize_DuplicateIDInUserFileFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "intentcore.yaml", `
rule_files:
  pattern_rules: patterns.yaml
`)
	writeFile(t, dir, "patterns.yaml", `
rules:
  - id: dup
    category: INCIDENT
    sub_intent: a
    patterns: ["x"]
  - id: dup
    category: INCIDENT
    sub_intent: b
    patterns: ["y"]
`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestInitialize_InvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "intentcore.yaml", "not: [valid yaml")

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestInitialize_InvalidRegexFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "intentcore.yaml", `
rule_files:
  pattern_rules: patterns.yaml
`)
	writeFile(t, dir, "patterns.yaml", `
rules:
  - id: bad
    category: INCIDENT
    sub_intent: a
    patterns: ["("]
`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestInitialize_PartialHITLOverridePreservesOtherDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "intentcore.yaml", `
hitl:
  escalation_cap: 5
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.HITL.EscalationCap)
	assert.Equal(t, DefaultHITL().ApprovalTTL, cfg.HITL.ApprovalTTL, "unset fields should keep built-in defaults")
}

func TestInitialize_LLMProvidersYAMLLoaded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "llm-providers.yaml", `
llm_providers:
  default:
    type: anthropic
    model: claude-sonnet
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	provider, err := cfg.GetLLMProvider("default")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet", provider.Model)
}

package config

import "time"

// Shared types used across configuration structs.

// CheckpointConfig configures the CheckpointStore backend selection.
type CheckpointConfig struct {
	Backend       CheckpointBackend `yaml:"backend" validate:"required"`
	DSN           string            `yaml:"dsn,omitempty"`       // redis address or postgres DSN
	FileRoot      string            `yaml:"file_root,omitempty"` // root dir for the file backend
	SweepInterval time.Duration     `yaml:"sweep_interval,omitempty"`
}

// HITLConfig configures the HITLController's approval lifecycle.
type HITLConfig struct {
	ApprovalTTL       time.Duration `yaml:"approval_ttl"`
	EscalationCap     int           `yaml:"escalation_cap"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	NotifyMaxAttempts int           `yaml:"notify_max_attempts"`
}

// DialogConfig configures GuidedDialogEngine session lifetime.
type DialogConfig struct {
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// ThresholdConfig configures the IntentRouter's tier fall-through cutoffs.
type ThresholdConfig struct {
	PatternConfidence  float64 `yaml:"pattern_confidence"`
	SemanticSimilarity float64 `yaml:"semantic_similarity"`
}

// LLMProviderConfig configures the remote classifier C3 calls as the
// last-resort classification tier.
type LLMProviderConfig struct {
	Type       LLMProviderType `yaml:"type" validate:"required"`
	Model      string          `yaml:"model" validate:"required"`
	APIKeyEnv  string          `yaml:"api_key_env,omitempty"`
	BaseURL    string          `yaml:"base_url,omitempty"`
	Timeout    time.Duration   `yaml:"timeout"`
	MaxRetries int             `yaml:"max_retries"`
}

// EmbeddingConfig configures the embedding provider C2's semantic router
// uses to vectorize utterances and incoming text.
type EmbeddingConfig struct {
	Type      LLMProviderType `yaml:"type" validate:"required"`
	Model     string          `yaml:"model" validate:"required"`
	APIKeyEnv string          `yaml:"api_key_env,omitempty"`
	Timeout   time.Duration   `yaml:"timeout"`
}

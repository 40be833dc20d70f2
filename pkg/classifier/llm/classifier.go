// Package llm implements the remote classification tier of last resort:
// a single structured-output call to an LLM provider, used only when
// neither the pattern nor the semantic tier produced a confident result.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/opsintent/intentcore/pkg/models"
)

// allowedPair closes the (category, sub_intent) vocabulary the prompt
// offers the model, so its structured output cannot name a pair that
// doesn't exist in our own rule tables.
type allowedPair struct {
	Category  models.IntentCategory
	SubIntent string
}

// Result is what Classify returns.
type Result struct {
	Category        models.IntentCategory
	SubIntent       string
	Confidence      float64
	MissingFields   []string
}

// schema is the strict structured-output shape the model must return.
// Any JSON that fails to unmarshal into this, or whose Category is not in
// the allowed set, is treated as a schema failure (spec §4.3).
type schema struct {
	Category      string   `json:"category"`
	SubIntent     string   `json:"sub_intent"`
	Confidence    float64  `json:"confidence"`
	MissingFields []string `json:"missing_fields_hint"`
}

const classifyToolName = "emit_classification"

// Classifier calls a remote LLM provider once (with at most one retry on
// transient failure) within a fixed total latency budget, and validates
// its structured output against a strict schema.
type Classifier struct {
	client  anthropic.Client
	model   anthropic.Model
	budget  time.Duration
	pairs   []allowedPair
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithAllowedPairs sets the closed (category, sub_intent) vocabulary
// offered to the model in the prompt.
func WithAllowedPairs(rules []models.PatternRule) Option {
	return func(c *Classifier) {
		pairs := make([]allowedPair, 0, len(rules))
		seen := make(map[string]bool, len(rules))
		for _, r := range rules {
			key := string(r.Category) + "/" + r.SubIntent
			if seen[key] {
				continue
			}
			seen[key] = true
			pairs = append(pairs, allowedPair{Category: r.Category, SubIntent: r.SubIntent})
		}
		c.pairs = pairs
	}
}

// New returns a Classifier that talks to the given model via client, with
// a total latency budget (spec default 2s including the single retry).
func New(client anthropic.Client, model string, budget time.Duration, opts ...Option) *Classifier {
	c := &Classifier{
		client:  client,
		model:   anthropic.Model(model),
		budget:  budget,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "llm-classifier", MaxRequests: 1}),
		log:     slog.With("component", "llm-classifier"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify issues a single structured-output call to classify text, using
// context as extra grounding (e.g. previously extracted fields). On
// transient failure it retries once; on total budget exhaustion or schema
// validation failure it returns a confidence-0 UNKNOWN result rather than
// an error — the LLM tier is never allowed to make the coordinator fail.
func (c *Classifier) Classify(ctx context.Context, text string, extracted map[string]any) Result {
	ctx, cancel := context.WithTimeout(ctx, c.budget)
	defer cancel()

	var result Result
	op := func() error {
		r, err := c.call(ctx, text, extracted)
		if err != nil {
			return err
		}
		result = r
		return nil
	}

	retryPolicy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.Retry(op, retryPolicy); err != nil {
		c.log.Warn("llm classification failed, returning UNKNOWN", "error", err)
		return Result{Category: models.CategoryUnknown, SubIntent: "general_unknown", Confidence: 0}
	}
	return result
}

func (c *Classifier) call(ctx context.Context, text string, extracted map[string]any) (Result, error) {
	v, err := c.breaker.Execute(func() (any, error) {
		return c.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     c.model,
			MaxTokens: 512,
			System: []anthropic.TextBlockParam{
				{Text: c.systemPrompt()},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(c.userPrompt(text, extracted))),
			},
			Tools: []anthropic.ToolUnionParam{
				{
					OfTool: &anthropic.ToolParam{
						Name:        classifyToolName,
						Description: anthropic.String("Emit the closed-set classification for the input text."),
						InputSchema: classifyInputSchema,
					},
				},
			},
			ToolChoice: anthropic.ToolChoiceUnionParam{
				OfTool: &anthropic.ToolChoiceToolParam{Name: classifyToolName},
			},
		})
	})
	if err != nil {
		return Result{}, fmt.Errorf("llm call: %w", err)
	}
	msg := v.(*anthropic.Message)

	for _, block := range msg.Content {
		if block.Type != "tool_use" {
			continue
		}
		var s schema
		if err := json.Unmarshal(block.Input, &s); err != nil {
			return unknownResult(), nil
		}
		return c.validate(s), nil
	}
	return unknownResult(), nil
}

// validate coerces s into a Result, falling back to UNKNOWN/confidence=0
// when s names a category outside the closed set the spec defines, or a
// (category, sub_intent) pair outside the allowed vocabulary offered in
// the prompt.
func (c *Classifier) validate(s schema) Result {
	category := models.IntentCategory(s.Category)
	if !category.IsValid() || category == models.CategoryUnknown {
		return unknownResult()
	}
	if len(c.pairs) > 0 && !c.pairInAllowed(category, s.SubIntent) {
		return unknownResult()
	}
	confidence := s.Confidence
	if confidence < 0 || confidence > 1 {
		confidence = 0
	}
	return Result{
		Category:      category,
		SubIntent:     s.SubIntent,
		Confidence:    confidence,
		MissingFields: s.MissingFields,
	}
}

func (c *Classifier) pairInAllowed(category models.IntentCategory, subIntent string) bool {
	for _, p := range c.pairs {
		if p.Category == category && p.SubIntent == subIntent {
			return true
		}
	}
	return false
}

func unknownResult() Result {
	return Result{Category: models.CategoryUnknown, SubIntent: "general_unknown", Confidence: 0}
}

func (c *Classifier) systemPrompt() string {
	return "You are an IT service request classifier. Classify the user's " +
		"message into exactly one of the allowed (category, sub_intent) " +
		"pairs listed in the user message. Never invent a category or " +
		"sub_intent outside that list."
}

func (c *Classifier) userPrompt(text string, extracted map[string]any) string {
	prompt := fmt.Sprintf("Text: %q\n\nAllowed (category, sub_intent) pairs:\n", text)
	for _, p := range c.pairs {
		prompt += fmt.Sprintf("- %s / %s\n", p.Category, p.SubIntent)
	}
	if len(extracted) > 0 {
		if b, err := json.Marshal(extracted); err == nil {
			prompt += fmt.Sprintf("\nAlready-known fields: %s\n", b)
		}
	}
	return prompt
}

var classifyInputSchema = anthropic.ToolInputSchemaParam{
	Properties: map[string]any{
		"category": map[string]any{
			"type":        "string",
			"description": "One of INCIDENT, REQUEST, CHANGE, QUERY, UNKNOWN.",
		},
		"sub_intent": map[string]any{
			"type":        "string",
			"description": "The sub_intent from the allowed vocabulary.",
		},
		"confidence": map[string]any{
			"type":        "number",
			"description": "Classification confidence in [0,1].",
		},
		"missing_fields_hint": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Fields the classifier suspects are still missing.",
		},
	},
}

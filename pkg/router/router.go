// Package router implements the IntentRouter coordinator (C5): a strictly
// sequential fold over the pattern, semantic, and LLM classification
// tiers with per-tier thresholds, completeness scoring, and risk/workflow
// tagging.
package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/opsintent/intentcore/pkg/classifier/llm"
	"github.com/opsintent/intentcore/pkg/classifier/pattern"
	"github.com/opsintent/intentcore/pkg/classifier/semantic"
	"github.com/opsintent/intentcore/pkg/completeness"
	"github.com/opsintent/intentcore/pkg/metrics"
	"github.com/opsintent/intentcore/pkg/models"
)

// workflowRule is one row of the fixed category+sub_intent -> workflow
// hint mapping from spec §4.5. Rows are evaluated in order; the first
// whose SubIntent matches (exactly, or "" as wildcard) wins.
type workflowRule struct {
	Category  models.IntentCategory
	SubIntent string
	Workflow  models.WorkflowType
}

var workflowTable = []workflowRule{
	{models.CategoryIncident, "system_unavailable", models.WorkflowMagentic},
	{models.CategoryIncident, "", models.WorkflowSequential},
	{models.CategoryChange, "release_deployment", models.WorkflowMagentic},
	{models.CategoryChange, "", models.WorkflowSequential},
	{models.CategoryRequest, "", models.WorkflowSimple},
	{models.CategoryQuery, "", models.WorkflowSimple},
}

func workflowFor(category models.IntentCategory, subIntent string) models.WorkflowType {
	for _, row := range workflowTable {
		if row.Category != category {
			continue
		}
		if row.SubIntent == "" || row.SubIntent == subIntent {
			return row.Workflow
		}
	}
	return models.WorkflowSimple
}

// RiskAssessor is the narrow slice of pkg/risk the router needs: a
// baseline risk_level for a decision, without running the full
// RiskAssessment (that happens later, once completeness is known, by the
// caller of Route — see spec §2's pipeline diagram).
type RiskAssessor interface {
	BaselineRiskLevel(category models.IntentCategory, subIntent string) models.RiskLevel
}

// Router is the IntentRouter coordinator (C5). All dependencies are
// load-time-immutable, so Route is safe for concurrent use.
type Router struct {
	pattern             *pattern.Matcher
	semantic            *semantic.Router
	llmClassifier       *llm.Classifier
	completenessChecker *completeness.Checker
	risk                RiskAssessor

	patternThreshold  float64
	semanticThreshold float64

	metrics *metrics.Registry
	log     *slog.Logger
}

// New returns a Router over the given tiers and thresholds.
func New(
	patternMatcher *pattern.Matcher,
	semanticRouter *semantic.Router,
	llmClassifier *llm.Classifier,
	completenessChecker *completeness.Checker,
	risk RiskAssessor,
	patternThreshold, semanticThreshold float64,
	reg *metrics.Registry,
) *Router {
	return &Router{
		pattern:             patternMatcher,
		semantic:            semanticRouter,
		llmClassifier:       llmClassifier,
		completenessChecker: completenessChecker,
		risk:                risk,
		patternThreshold:    patternThreshold,
		semanticThreshold:   semanticThreshold,
		metrics:             reg,
		log:                 slog.With("component", "intent-router"),
	}
}

// Route runs the three-tier cascade strictly sequentially: a tier whose
// confidence/similarity meets its threshold short-circuits; no tier below
// it is consulted. Tier errors never propagate — a failing tier is
// treated as "no result", per spec §4.5 and §7.
func (r *Router) Route(ctx context.Context, text string, reqCtx models.RequestContext) models.RoutingDecision {
	start := time.Now()

	category, subIntent, confidence, layer, extracted := r.classify(ctx, text)

	info, withExtracted := r.completenessChecker.Check(category, subIntent, text, extracted)

	decision := models.RoutingDecision{
		IntentCategory:  category,
		SubIntent:       subIntent,
		Confidence:      confidence,
		RiskLevel:       r.risk.BaselineRiskLevel(category, subIntent),
		WorkflowType:    workflowFor(category, subIntent),
		LayerUsed:       layer,
		Completeness:    info,
		ExtractedFields: withExtracted,
		RawInput:        text,
		Metadata:        reqCtx.Metadata,
	}
	decision.LatencyMS = time.Since(start).Milliseconds()

	if r.metrics != nil {
		r.metrics.ObserveRouting(string(category), string(layer), time.Since(start).Seconds())
	}

	return decision
}

// classify runs the tier cascade and returns the winning category,
// sub_intent, confidence, and which layer produced it. The returned
// fields map is always nil: no tier contributes extracted fields here,
// and the LLM tier's missing-fields hint is not carried into the
// decision (Route sets Metadata from the request context only).
func (r *Router) classify(ctx context.Context, text string) (models.IntentCategory, string, float64, models.LayerUsed, map[string]any) {
	if result, ok := r.safePatternMatch(text); ok && result.Confidence >= r.patternThreshold {
		return result.Category, result.SubIntent, result.Confidence, models.LayerPattern, nil
	}

	if result, ok := r.safeSemanticRoute(ctx, text); ok && result.Similarity >= r.semanticThreshold {
		return result.Category, result.SubIntent, result.Similarity, models.LayerSemantic, nil
	}

	result := r.llmClassifier.Classify(ctx, text, nil)
	return result.Category, result.SubIntent, result.Confidence, models.LayerLLM, nil
}

// safePatternMatch recovers from a panicking rule evaluation so a single
// bad rule cannot take the whole coordinator down; the spec requires tier
// failures to degrade to "no result, fall through" (§4.5, §7).
func (r *Router) safePatternMatch(text string) (result pattern.Result, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("pattern tier panicked, falling through", "panic", rec)
			ok = false
		}
	}()
	return r.pattern.Match(text)
}

func (r *Router) safeSemanticRoute(ctx context.Context, text string) (result semantic.Result, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("semantic tier panicked, falling through", "panic", rec)
			ok = false
		}
	}()
	return r.semantic.Route(ctx, text)
}

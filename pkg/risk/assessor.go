// Package risk implements the RiskAssessor (C8a): a category-baseline
// risk score adjusted by a deterministic multiplicative table, bucketed
// into the closed RiskLevel set.
package risk

import (
	"github.com/opsintent/intentcore/pkg/models"
)

// categoryBaseline is the starting score for a category before adjusters
// apply, expressed on the same [0,1] scale as the final bucketed score so
// a HIGH baseline (e.g. INCIDENT) needs only a small nudge to cross into
// CRITICAL under adverse adjusters.
var categoryBaseline = map[models.IntentCategory]float64{
	models.CategoryIncident: 0.65,
	models.CategoryChange:   0.65,
	models.CategoryRequest:  0.40,
	models.CategoryQuery:    0.15,
	models.CategoryUnknown:  0.40,
}

var categoryBaselineLevel = map[models.IntentCategory]models.RiskLevel{
	models.CategoryIncident: models.RiskHigh,
	models.CategoryChange:   models.RiskHigh,
	models.CategoryRequest:  models.RiskMedium,
	models.CategoryQuery:    models.RiskLow,
	models.CategoryUnknown:  models.RiskMedium,
}

// Assessor implements spec §4.8's RiskAssessor. The adjuster table is
// load-time-immutable, so Assess is safe for concurrent use.
type Assessor struct {
	adjusters []models.RiskAdjuster
}

// New returns an Assessor over the given adjuster table (from
// config.Config.RiskAdjusters).
func New(adjusters []models.RiskAdjuster) *Assessor {
	return &Assessor{adjusters: adjusters}
}

// BaselineRiskLevel returns the category-table baseline level, ignoring
// context adjusters. IntentRouter uses this to tag a freshly classified
// RoutingDecision before a full RequestContext is available; the
// authoritative assessment (with adjusters) happens later via Assess,
// once the decision is complete.
func (a *Assessor) BaselineRiskLevel(category models.IntentCategory, _ string) models.RiskLevel {
	if lvl, ok := categoryBaselineLevel[category]; ok {
		return lvl
	}
	return models.RiskMedium
}

// Assess scores decision against reqCtx: starts from the category
// baseline, applies every matching multiplicative adjuster in table
// order, buckets the result, and returns a full audit trail. Deterministic
// for identical inputs.
func (a *Assessor) Assess(decision models.RoutingDecision, reqCtx models.RequestContext) models.RiskAssessment {
	score, ok := categoryBaseline[decision.IntentCategory]
	if !ok {
		score = categoryBaseline[models.CategoryUnknown]
	}

	factors := []models.RiskFactor{
		{Name: "category_baseline:" + string(decision.IntentCategory), Delta: 0},
	}

	forceCritical := false

	for _, adj := range a.adjusters {
		if adj.SubIntentOverride != "" {
			if adj.SubIntentOverride == decision.SubIntent {
				forceCritical = true
				factors = append(factors, models.RiskFactor{Name: "override:" + adj.Name, Delta: 0})
			}
			continue
		}
		if !adjusterApplies(adj.Name, reqCtx) {
			continue
		}
		before := score
		score *= adj.Multiplier
		factors = append(factors, models.RiskFactor{Name: adj.Name, Delta: score - before})
	}

	level := bucket(score)
	reasoning := reasoningFor(decision, level, forceCritical)

	if forceCritical {
		level = models.RiskCritical
	}

	return models.RiskAssessment{
		RiskLevel:        level,
		Score:            score,
		RequiresApproval: level.RequiresApproval(),
		Factors:          factors,
		Reasoning:        reasoning,
	}
}

// adjusterApplies evaluates the named built-in condition against reqCtx.
// The spec names four conditions (production, staging, weekend, urgent);
// an adjuster whose name matches none of them never fires, which keeps an
// unrecognized adjuster row inert rather than erroring the whole
// assessment.
func adjusterApplies(name string, reqCtx models.RequestContext) bool {
	switch name {
	case "production_env":
		return reqCtx.Environment == "production"
	case "staging_env":
		return reqCtx.Environment == "staging"
	case "weekend":
		return reqCtx.IsWeekend
	case "urgent":
		return reqCtx.IsUrgent
	default:
		return false
	}
}

func bucket(score float64) models.RiskLevel {
	switch {
	case score <= 0.25:
		return models.RiskLow
	case score <= 0.55:
		return models.RiskMedium
	case score <= 0.80:
		return models.RiskHigh
	default:
		return models.RiskCritical
	}
}

func reasoningFor(decision models.RoutingDecision, level models.RiskLevel, forced bool) string {
	if forced {
		return "sub_intent " + decision.SubIntent + " is a forced-critical override"
	}
	return string(decision.IntentCategory) + "/" + decision.SubIntent + " assessed as " + string(level)
}

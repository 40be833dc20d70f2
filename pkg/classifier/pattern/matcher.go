// Package pattern implements the compiled-regex classification tier: the
// first and cheapest of the three tiers an inbound request falls through.
package pattern

import (
	"github.com/opsintent/intentcore/pkg/models"
)

// Result is what Matcher.Match returns for a winning rule. Confidence is
// the weighted blend of the rule's base confidence, text coverage, and
// match position; BaseConfidence and CoveredSpanRatio are kept alongside
// it so a caller can explain the decision.
type Result struct {
	Category         models.IntentCategory
	SubIntent        string
	BaseConfidence   float64
	CoveredSpanRatio float64
	Confidence       float64
}

// Matcher evaluates text against a pre-compiled pattern rule table. Rules
// must already carry compiled regexes (see config.compilePatternRules) —
// Matcher never compiles a pattern itself, so Match has no allocation path
// through regexp.Compile.
type Matcher struct {
	rules []models.PatternRule
}

// New returns a Matcher over rules. rules must already be compiled.
func New(rules []models.PatternRule) *Matcher {
	return &Matcher{rules: rules}
}

// Match evaluates every rule against text and returns the best match, if
// any. Among rules that match, the winner is the one with the highest
// priority, breaking ties by base confidence and then by the
// lexicographically smaller id, so the outcome is deterministic across
// runs with an unchanged rule table.
func (m *Matcher) Match(text string) (Result, bool) {
	var (
		best       *models.PatternRule
		bestCover  float64
		bestOffset int
		found      bool
	)

	for i := range m.rules {
		r := &m.rules[i]
		cover, offset, ok := bestCoverage(r, text)
		if !ok {
			continue
		}
		if !found || isBetterRule(r, best) {
			best = r
			bestCover = cover
			bestOffset = offset
			found = true
		}
	}

	if !found {
		return Result{}, false
	}

	positionBonus := 0.7
	if bestOffset == 0 {
		positionBonus = 1.0
	}

	confidence := 0.5*best.BaseConfidence + 0.3*bestCover + 0.2*positionBonus

	return Result{
		Category:         best.Category,
		SubIntent:        best.SubIntent,
		BaseConfidence:   best.BaseConfidence,
		CoveredSpanRatio: bestCover,
		Confidence:       confidence,
	}, true
}

// bestCoverage reports the largest covered_span_ratio among r's compiled
// patterns that match text, along with the start offset of that winning
// match, or ok=false if none match.
func bestCoverage(r *models.PatternRule, text string) (ratio float64, offset int, ok bool) {
	if len(text) == 0 {
		return 0, 0, false
	}
	var maxMatched int
	for _, re := range r.CompiledPatterns {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if matched := loc[1] - loc[0]; !ok || matched > maxMatched {
			maxMatched = matched
			offset = loc[0]
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	return float64(maxMatched) / float64(len(text)), offset, true
}

// isBetterRule reports whether candidate beats the current best under
// (priority, base_confidence, id) ordering.
func isBetterRule(candidate, best *models.PatternRule) bool {
	if candidate.Priority != best.Priority {
		return candidate.Priority > best.Priority
	}
	if candidate.BaseConfidence != best.BaseConfidence {
		return candidate.BaseConfidence > best.BaseConfidence
	}
	return candidate.ID < best.ID
}

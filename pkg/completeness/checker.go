// Package completeness implements the deterministic required-field
// scoring tier (C4): given a classification and whatever fields are
// already known, it runs pure extractors against the raw input to fill in
// what it can, then reports whether enough is known to proceed.
package completeness

import (
	"log/slog"
	"strings"

	"github.com/opsintent/intentcore/pkg/models"
)

// Checker evaluates CompletenessRule entries against extracted fields. The
// rule table is load-time-immutable; Check is safe for concurrent use.
type Checker struct {
	rules             []models.CompletenessRule
	categoryDefaults  map[models.IntentCategory]models.CompletenessRule
	specificRules     map[string]models.CompletenessRule
	log               *slog.Logger
}

// New indexes rules by (category, sub_intent) and by category-only
// default, so Check can resolve either in O(1).
func New(rules []models.CompletenessRule) *Checker {
	c := &Checker{
		rules:            rules,
		categoryDefaults: make(map[models.IntentCategory]models.CompletenessRule),
		specificRules:    make(map[string]models.CompletenessRule),
		log:              slog.With("component", "completeness-checker"),
	}
	for _, r := range rules {
		if r.SubIntent == "" {
			c.categoryDefaults[r.Category] = r
			continue
		}
		c.specificRules[key(r.Category, r.SubIntent)] = r
	}
	return c
}

func key(category models.IntentCategory, subIntent string) string {
	return string(category) + "/" + subIntent
}

// Check resolves the CompletenessRule for (category, subIntent), falling
// back to the category default when no specific rule exists, extracts any
// still-missing required fields from rawInput, and returns the resulting
// CompletenessInfo plus the (possibly expanded) extracted-fields map.
//
// Check never mutates the extracted map passed in; the returned map is a
// new value, matching the rest of the codebase's copy-on-write discipline
// around RoutingDecision.ExtractedFields.
func (c *Checker) Check(category models.IntentCategory, subIntent, rawInput string, extracted map[string]any) (models.CompletenessInfo, map[string]any) {
	rule, ok := c.resolve(category, subIntent)
	result := cloneFields(extracted)

	if !ok {
		// No rule at all for this category: spec §7 says treat as
		// sufficient. Only a warning is logged; no metric is recorded
		// for this case, here or in the router.
		c.log.Warn("no completeness rule for category, treating as sufficient",
			"category", category, "sub_intent", subIntent)
		return models.CompletenessInfo{Score: 1, Threshold: 0, MissingFields: nil, IsSufficient: true}, result
	}

	for _, field := range rule.RequiredFields {
		if _, present := result[field.Key]; present {
			continue
		}
		if v, ok := extractField(field, rawInput); ok {
			result[field.Key] = v
		}
	}
	// Optional fields never affect the score or missing-fields list, but
	// are still extracted opportunistically — refinement conditions
	// (spec §4.6) can reference a field before it becomes required under
	// a refined sub_intent.
	for _, field := range rule.OptionalFields {
		if _, present := result[field.Key]; present {
			continue
		}
		if v, ok := extractField(field, rawInput); ok {
			result[field.Key] = v
		}
	}

	var missing []string
	present := 0
	for _, field := range rule.RequiredFields {
		if _, ok := result[field.Key]; ok {
			present++
		} else {
			missing = append(missing, field.Key)
		}
	}

	score := 1.0
	if len(rule.RequiredFields) > 0 {
		score = float64(present) / float64(len(rule.RequiredFields))
	}

	return models.CompletenessInfo{
		Score:         score,
		Threshold:     rule.Threshold,
		MissingFields: missing,
		IsSufficient:  score >= rule.Threshold,
	}, result
}

func (c *Checker) resolve(category models.IntentCategory, subIntent string) (models.CompletenessRule, bool) {
	if r, ok := c.specificRules[key(category, subIntent)]; ok {
		return r, true
	}
	if r, ok := c.categoryDefaults[category]; ok {
		return r, true
	}
	return models.CompletenessRule{}, false
}

// extractField runs field's extractors against rawInput in declaration
// order, returning the first hit. A regex extractor with a capture group
// returns the group; with no groups it returns the whole match. A keyword
// extractor returns the matched keyword itself, so downstream CEL conditions
// can still test it with string operators like contains().
func extractField(field models.FieldDefinition, rawInput string) (any, bool) {
	for _, ext := range field.Extractors {
		if ext.CompiledRE != nil {
			m := ext.CompiledRE.FindStringSubmatch(rawInput)
			if m == nil {
				continue
			}
			if len(m) > 1 {
				return m[1], true
			}
			return m[0], true
		}
		if len(ext.Keywords) > 0 {
			for _, kw := range ext.Keywords {
				if strings.Contains(strings.ToLower(rawInput), strings.ToLower(kw)) {
					return kw, true
				}
			}
		}
	}
	return nil, false
}

func cloneFields(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

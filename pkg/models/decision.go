package models

// CompletenessInfo reports whether a decision carries enough extracted
// fields to proceed without further dialog.
type CompletenessInfo struct {
	Score         float64  `json:"score"`
	Threshold     float64  `json:"threshold"`
	MissingFields []string `json:"missing_fields"`
	IsSufficient  bool     `json:"is_sufficient"`
}

// RoutingDecision is the single structured output of the orchestration
// core. Once emitted it is never mutated in place; refinement produces a
// new RoutingDecision value.
type RoutingDecision struct {
	IntentCategory  IntentCategory         `json:"intent_category"`
	SubIntent       string                 `json:"sub_intent"`
	Confidence      float64                `json:"confidence"`
	RiskLevel       RiskLevel              `json:"risk_level"`
	WorkflowType    WorkflowType           `json:"workflow_type"`
	LayerUsed       LayerUsed              `json:"layer_used"`
	Completeness    CompletenessInfo       `json:"completeness"`
	ExtractedFields map[string]any         `json:"extracted_fields"`
	LatencyMS       int64                  `json:"latency_ms"`
	RawInput        string                 `json:"raw_input"`
	Metadata        map[string]any         `json:"metadata"`
}

// Clone returns a deep-enough copy of d so that callers holding the
// original cannot observe mutation through maps shared with a new value.
func (d RoutingDecision) Clone() RoutingDecision {
	clone := d
	clone.ExtractedFields = cloneAnyMap(d.ExtractedFields)
	clone.Metadata = cloneAnyMap(d.Metadata)
	clone.Completeness.MissingFields = append([]string(nil), d.Completeness.MissingFields...)
	return clone
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// RequestContext carries the ambient information RiskAssessor and the
// classification tiers use that is not itself part of the request text:
// environment, timing, urgency, and arbitrary caller-supplied metadata.
type RequestContext struct {
	Environment string         `json:"environment,omitempty"`
	IsWeekend   bool           `json:"is_weekend,omitempty"`
	IsUrgent    bool           `json:"is_urgent,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

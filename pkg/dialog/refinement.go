package dialog

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/opsintent/intentcore/pkg/models"
)

// refinementEngine compiles each RefinementRule's conditions once at
// construction and evaluates them as CEL boolean expressions over
// accumulated_fields, per spec §4.6 step 3. Refinement never calls the
// LLM classifier and never changes intent_category — only the caller
// (Engine.Respond) enforces the category invariant, this type only
// resolves which target_sub_intent (if any) a session's fields satisfy.
type refinementEngine struct {
	env *cel.Env

	mu    sync.RWMutex
	byFrom map[string][]compiledCondition
}

type compiledCondition struct {
	program         cel.Program
	targetSubIntent string
	raw             string
}

// newRefinementEngine compiles every rule in rules. A rule whose
// expression fails to compile is dropped with an error rather than
// panicking at request time; callers should treat that as a
// configuration error surfaced at startup, matching the pattern tier's
// load-time validation.
func newRefinementEngine(rules []models.RefinementRule) (*refinementEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("accumulated_fields", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("dialog: creating CEL environment: %w", err)
	}

	byFrom := make(map[string][]compiledCondition, len(rules))
	for _, rule := range rules {
		conditions := make([]compiledCondition, 0, len(rule.Conditions))
		for _, cond := range rule.Conditions {
			ast, issues := env.Compile(cond.Expression)
			if issues != nil && issues.Err() != nil {
				return nil, fmt.Errorf("dialog: compiling refinement condition %q for %q: %w",
					cond.Expression, rule.FromSubIntent, issues.Err())
			}
			prg, err := env.Program(ast)
			if err != nil {
				return nil, fmt.Errorf("dialog: building CEL program for %q: %w", cond.Expression, err)
			}
			conditions = append(conditions, compiledCondition{
				program:         prg,
				targetSubIntent: cond.TargetSubIntent,
				raw:             cond.Expression,
			})
		}
		byFrom[rule.FromSubIntent] = conditions
	}

	return &refinementEngine{env: env, byFrom: byFrom}, nil
}

// refine evaluates the ordered conditions registered for fromSubIntent
// against fields and returns the first matching target_sub_intent. The
// second return is false if fromSubIntent has no rule, or no condition
// matched — both mean "keep the current sub_intent".
func (e *refinementEngine) refine(fromSubIntent string, fields map[string]any) (string, bool) {
	e.mu.RLock()
	conditions, ok := e.byFrom[fromSubIntent]
	e.mu.RUnlock()
	if !ok {
		return "", false
	}

	for _, cond := range conditions {
		out, _, err := cond.program.Eval(map[string]any{"accumulated_fields": fields})
		if err != nil {
			// A condition that cannot evaluate against the current fields
			// (e.g. referencing a key not yet present) is treated as
			// non-matching, not as an error — fields accumulate over turns.
			continue
		}
		matched, ok := out.Value().(bool)
		if ok && matched {
			return cond.targetSubIntent, true
		}
	}
	return "", false
}

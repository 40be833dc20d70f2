// Package dialog implements the GuidedDialogEngine (C6): the owner of
// multi-turn dialog sessions that fill in missing fields for an
// otherwise-incomplete RoutingDecision, refining sub_intent from
// accumulated fields without ever re-invoking a classifier.
package dialog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opsintent/intentcore/pkg/apperrors"
	"github.com/opsintent/intentcore/pkg/checkpoint"
	"github.com/opsintent/intentcore/pkg/metrics"
	"github.com/opsintent/intentcore/pkg/models"
)

const sessionKeyPrefix = "dialog/"

// IntentRouter is the narrow slice of pkg/router the dialog engine needs:
// the initial classification that decides whether a session is needed at
// all.
type IntentRouter interface {
	Route(ctx context.Context, text string, reqCtx models.RequestContext) models.RoutingDecision
}

// CompletenessChecker is the narrow slice of pkg/completeness the dialog
// engine needs: re-scoring completeness (and extracting newly-available
// fields) for a given (category, sub_intent) pair as turns accumulate
// fields.
type CompletenessChecker interface {
	Check(category models.IntentCategory, subIntent, rawInput string, extracted map[string]any) (models.CompletenessInfo, map[string]any)
}

// StartResult is the response to Engine.Start.
type StartResult struct {
	SessionID string
	Decision  models.RoutingDecision
	Questions []string
}

// RespondResult is the response to Engine.Respond.
type RespondResult struct {
	Decision  models.RoutingDecision
	Questions []string
	Completed bool
}

// Engine owns DialogSession state in a CheckpointStore. All mutation goes
// through a load-compute-CAS cycle with a single retry on conflict, per
// spec §5's per-session serialization rule: at most one in-flight Respond
// per session, a second concurrent caller either succeeds against the
// winner's new state or observes the error-kind conflict rather than
// blocking.
type Engine struct {
	store      checkpoint.Store
	router     IntentRouter
	checker    CompletenessChecker
	refinement *refinementEngine
	questions  *questionGenerator

	idleTTL time.Duration
	metrics *metrics.Registry
	log     *slog.Logger
}

// New returns an Engine. refinementRules and questionTemplates are
// load-time-immutable, matching the rest of the core's rule tables.
func New(
	store checkpoint.Store,
	router IntentRouter,
	checker CompletenessChecker,
	refinementRules []models.RefinementRule,
	questionTemplates []models.QuestionTemplate,
	idleTTL time.Duration,
	reg *metrics.Registry,
) (*Engine, error) {
	refinement, err := newRefinementEngine(refinementRules)
	if err != nil {
		return nil, err
	}
	return &Engine{
		store:      store,
		router:     router,
		checker:    checker,
		refinement: refinement,
		questions:  newQuestionGenerator(questionTemplates),
		idleTTL:    idleTTL,
		metrics:    reg,
		log:        slog.With("component", "dialog-engine"),
	}, nil
}

// Start runs the initial classification and, if it is already sufficient,
// returns the decision with no session created. Otherwise it persists a
// new DialogSession and returns the first batch of questions.
func (e *Engine) Start(ctx context.Context, text string, reqCtx models.RequestContext) (StartResult, error) {
	decision := e.router.Route(ctx, text, reqCtx)

	if decision.Completeness.IsSufficient {
		return StartResult{Decision: decision}, nil
	}

	now := time.Now()
	sessionID := uuid.NewString()
	session := models.DialogSession{
		SessionID:       sessionID,
		CreatedAt:       now,
		LastUpdateAt:    now,
		Status:          models.DialogActive,
		InitialDecision: decision,
		CurrentDecision: decision,
		Turns: []models.DialogTurn{{
			Role:                    models.TurnUser,
			Content:                 text,
			Timestamp:               now,
			FieldsExtractedThisTurn: decision.ExtractedFields,
			DecisionSnapshot:        decision,
		}},
		AccumulatedFields: decision.ExtractedFields,
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return StartResult{}, fmt.Errorf("dialog: marshal session: %w", err)
	}
	if _, err := e.store.Save(ctx, sessionKeyPrefix+sessionID, payload, e.idleTTL); err != nil {
		return StartResult{}, fmt.Errorf("dialog: saving session: %w", err)
	}

	if e.metrics != nil {
		e.metrics.SetDialogActive(1) // best-effort
	}

	return StartResult{
		SessionID: sessionID,
		Decision:  decision,
		Questions: e.questions.generate(decision.Completeness.MissingFields),
	}, nil
}

// Respond applies one incremental-update cycle (spec §4.6) against the
// named session: extract fields from text, attempt refinement, recompute
// completeness, and either close the session out as completed or return
// the next round of questions.
func (e *Engine) Respond(ctx context.Context, sessionID, text string) (RespondResult, error) {
	result, err := e.respondOnce(ctx, sessionID, text)
	if err != checkpoint.ErrVersionConflict {
		return result, err
	}

	// One retry on CAS conflict: reload and replay extraction against the
	// winner's new state, per spec §7.
	result, err = e.respondOnce(ctx, sessionID, text)
	if err == checkpoint.ErrVersionConflict {
		return RespondResult{}, fmt.Errorf("dialog: %s: %w", sessionID, apperrors.ErrConflict)
	}
	return result, err
}

func (e *Engine) respondOnce(ctx context.Context, sessionID, text string) (RespondResult, error) {
	entry, err := e.store.Load(ctx, sessionKeyPrefix+sessionID)
	if err != nil {
		if err == checkpoint.ErrNotFound {
			return RespondResult{}, fmt.Errorf("dialog: %s: %w", sessionID, apperrors.ErrSessionNotFound)
		}
		return RespondResult{}, fmt.Errorf("dialog: loading session %s: %w", sessionID, err)
	}

	var session models.DialogSession
	if err := json.Unmarshal(entry.Payload, &session); err != nil {
		return RespondResult{}, fmt.Errorf("dialog: decoding session %s: %w", sessionID, err)
	}

	now := time.Now()
	if session.Status == models.DialogExpired || session.IsExpired(now, e.idleTTL) {
		return RespondResult{}, fmt.Errorf("dialog: %s: %w", sessionID, apperrors.ErrSessionExpired)
	}
	if session.Status != models.DialogActive {
		return RespondResult{}, fmt.Errorf("dialog: %s is not active: %w", sessionID, apperrors.ErrConflict)
	}

	session = session.Clone()

	category := session.CurrentDecision.IntentCategory
	currentSubIntent := session.CurrentDecision.SubIntent

	// Step 2: extract fields from the new turn's text against the
	// currently-known (category, sub_intent) pair's rule, merging into
	// accumulated_fields.
	_, merged := e.checker.Check(category, currentSubIntent, text, session.AccumulatedFields)
	fieldsThisTurn := newKeys(session.AccumulatedFields, merged)

	// Step 3: refinement, never reclassification. The refined sub_intent
	// stays within the same intent_category by construction — refinement
	// only ever looks up a target_sub_intent the rule author pinned under
	// the current category's rule set.
	subIntent := currentSubIntent
	if target, ok := e.refinement.refine(currentSubIntent, merged); ok {
		subIntent = target
	}

	// Step 4: recompute completeness using the (possibly refined) pair.
	info, finalFields := e.checker.Check(category, subIntent, text, merged)

	decision := session.CurrentDecision
	decision.SubIntent = subIntent
	decision.Completeness = info
	decision.ExtractedFields = finalFields
	decision.RawInput = text

	turn := models.DialogTurn{
		Role:                    models.TurnUser,
		Content:                 text,
		Timestamp:               now,
		FieldsExtractedThisTurn: fieldsThisTurn,
		DecisionSnapshot:        decision,
	}

	session.CurrentDecision = decision
	session.AccumulatedFields = finalFields
	session.Turns = append(session.Turns, turn)
	session.LastUpdateAt = now

	completed := info.IsSufficient
	if completed {
		session.Status = models.DialogCompleted
		if e.metrics != nil {
			e.metrics.ObserveDialogClosed(now.Sub(session.CreatedAt).Seconds())
			e.metrics.SetDialogActive(0)
		}
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return RespondResult{}, fmt.Errorf("dialog: marshal session: %w", err)
	}

	if _, err := e.store.CAS(ctx, sessionKeyPrefix+sessionID, payload, entry.Version, e.idleTTL); err != nil {
		return RespondResult{}, err
	}

	return RespondResult{
		Decision:  decision,
		Questions: e.questions.generate(info.MissingFields),
		Completed: completed,
	}, nil
}

// Close marks a session completed regardless of whether its completeness
// threshold was ever reached; there is no separate cancelled status in
// the dialog lifecycle (spec §3's DialogSession.status set), so an
// explicit close always lands on "completed".
func (e *Engine) Close(ctx context.Context, sessionID string) error {
	entry, err := e.store.Load(ctx, sessionKeyPrefix+sessionID)
	if err != nil {
		if err == checkpoint.ErrNotFound {
			return fmt.Errorf("dialog: %s: %w", sessionID, apperrors.ErrSessionNotFound)
		}
		return fmt.Errorf("dialog: loading session %s: %w", sessionID, err)
	}

	var session models.DialogSession
	if err := json.Unmarshal(entry.Payload, &session); err != nil {
		return fmt.Errorf("dialog: decoding session %s: %w", sessionID, err)
	}
	if session.Status == models.DialogCompleted || session.Status == models.DialogExpired {
		return nil
	}

	session = session.Clone()
	session.Status = models.DialogCompleted
	session.LastUpdateAt = time.Now()

	if e.metrics != nil {
		e.metrics.ObserveDialogClosed(session.LastUpdateAt.Sub(session.CreatedAt).Seconds())
		e.metrics.SetDialogActive(0)
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("dialog: marshal session: %w", err)
	}
	_, err = e.store.CAS(ctx, sessionKeyPrefix+sessionID, payload, entry.Version, e.idleTTL)
	return err
}

// newKeys returns the keys present in after but not in before, i.e. the
// fields a single turn's extraction contributed.
func newKeys(before, after map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range after {
		if _, ok := before[k]; !ok {
			out[k] = v
		}
	}
	return out
}

package models

import "time"

// DialogTurn is one exchange within a DialogSession.
type DialogTurn struct {
	Role                  TurnRole        `json:"role"`
	Content               string          `json:"content"`
	Timestamp             time.Time       `json:"timestamp"`
	FieldsExtractedThisTurn map[string]any `json:"fields_extracted_this_turn"`
	DecisionSnapshot      RoutingDecision `json:"decision_snapshot"`
}

// DialogSession is the persisted state owned exclusively by the
// GuidedDialogEngine. It is stored as a CheckpointStore payload and mutated
// only through cas(); DialogSession itself carries no lock — serialization
// round-trips through a plain value, and per-session exclusivity is the
// store's job, not this type's.
type DialogSession struct {
	SessionID        string           `json:"session_id"`
	CreatedAt        time.Time        `json:"created_at"`
	LastUpdateAt     time.Time        `json:"last_update_at"`
	Status           DialogStatus     `json:"status"`
	InitialDecision  RoutingDecision  `json:"initial_decision"`
	CurrentDecision  RoutingDecision  `json:"current_decision"`
	Turns            []DialogTurn     `json:"turns"`
	AccumulatedFields map[string]any  `json:"accumulated_fields"`
}

// Clone returns a value that shares no mutable state with s, so a caller
// can keep reading it after handing a fresh copy back to the store.
func (s DialogSession) Clone() DialogSession {
	clone := s
	clone.InitialDecision = s.InitialDecision.Clone()
	clone.CurrentDecision = s.CurrentDecision.Clone()
	clone.AccumulatedFields = cloneAnyMap(s.AccumulatedFields)
	clone.Turns = make([]DialogTurn, len(s.Turns))
	for i, t := range s.Turns {
		t.FieldsExtractedThisTurn = cloneAnyMap(t.FieldsExtractedThisTurn)
		t.DecisionSnapshot = t.DecisionSnapshot.Clone()
		clone.Turns[i] = t
	}
	return clone
}

// IsExpired reports whether s has been idle longer than ttl as of now.
func (s DialogSession) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastUpdateAt) > ttl
}

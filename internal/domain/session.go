package domain

import "time"

// ConversationTurn is one immutable entry of a session's history.
type ConversationTurn struct {
	Role      Role
	Text      string
	CreatedAt Timestamp
}

// Session holds all mutable per-call state. It is owned by exactly one
// orchestrator worker; only the registry bookkeeping fields (LastActivity)
// are touched from outside, under the registry lock.
type Session struct {
	ID           SessionID
	CreatedAt    Timestamp
	LastActivity Timestamp

	State DialogueState

	IdentityVerified bool
	// PendingName / PendingDOB hold identity fields gathered so far,
	// before verification succeeds.
	PendingName string
	PendingDOB  string

	Patient               *Patient
	EligiblePrescriptions []Prescription
	Selected              *Prescription
	InteractionWarning    string

	// ErrorFrom records the state the session was in when it entered
	// ERROR, for retry messaging.
	ErrorFrom DialogueState
	Closed    bool

	History []ConversationTurn

	// Audio intake / playback flags. Invariant: at most one of
	// IsRecording / IsSpeaking is true at any instant.
	IsRecording bool
	IsSpeaking  bool

	// UtteranceSeq increments on every flush; STT results carrying an
	// older seq are stale and must be dropped.
	UtteranceSeq uint64
}

// NewSession builds a fresh session in the initial dialogue state.
func NewSession(id SessionID, now time.Time) *Session {
	return &Session{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
		State:        StateGreeting,
	}
}

// AppendTurn appends a turn to the history and bumps activity.
func (s *Session) AppendTurn(role Role, text string, now time.Time) ConversationTurn {
	turn := ConversationTurn{Role: role, Text: text, CreatedAt: now}
	s.History = append(s.History, turn)
	s.LastActivity = now
	return turn
}

// RecentHistory returns the last max turns.
func (s *Session) RecentHistory(max int) []ConversationTurn {
	if max <= 0 || len(s.History) <= max {
		return s.History
	}
	return s.History[len(s.History)-max:]
}

// ContextPatch is merged into the session on entry to a state. Nil fields
// leave the session untouched; patches only ever add.
type ContextPatch struct {
	IdentityVerified *bool
	ErrorFrom        *DialogueState
	Closed           *bool
}

// Apply merges the patch into the session.
func (p ContextPatch) Apply(s *Session) {
	if p.IdentityVerified != nil {
		s.IdentityVerified = *p.IdentityVerified
	}
	if p.ErrorFrom != nil {
		s.ErrorFrom = *p.ErrorFrom
	}
	if p.Closed != nil {
		s.Closed = *p.Closed
	}
}

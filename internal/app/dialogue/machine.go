// Package dialogue holds the pure conversation state machine. It performs
// no I/O; the orchestrator applies its results to the session.
package dialogue

import (
	"github.com/tkc-cmd/rxvoice/internal/domain"
)

// Context is the read-only slice of session state the table may branch on.
type Context struct {
	IdentityVerified bool
	HasSelection     bool
}

// Result of one transition: where to go and what the orchestrator should do.
type Result struct {
	Next   domain.DialogueState
	Action domain.Action
	Patch  domain.ContextPatch
}

type stateEvent struct {
	state domain.DialogueState
	event domain.Event
}

type rule struct {
	next   domain.DialogueState
	action domain.Action
	// when, if set, must hold for the rule to apply; otherwise the
	// lookup falls through to the fallback policy.
	when func(Context) bool
}

func verified(c Context) bool { return c.IdentityVerified }

// table is the explicit (state, event) transition map. Missing pairs are
// handled by the fallback policy in Transition, so every known event has
// defined behavior in every state.
var table = map[stateEvent][]rule{
	// GREETING
	{domain.StateGreeting, domain.EventRefillRequest}: {
		{next: domain.StatePrescriptionReview, action: domain.ActionListPrescriptions, when: verified},
		{next: domain.StateIdentityVerification, action: domain.ActionRequestName},
	},
	{domain.StateGreeting, domain.EventInteractionQuestion}: {
		{next: domain.StatePrescriptionReview, action: domain.ActionListPrescriptions, when: verified},
		{next: domain.StateIdentityVerification, action: domain.ActionRequestName},
	},
	{domain.StateGreeting, domain.EventAdministrationQuestion}: {
		{next: domain.StateIntentRecognition, action: domain.ActionContinue},
	},
	{domain.StateGreeting, domain.EventGreeting}: {
		{next: domain.StateIntentRecognition, action: domain.ActionContinue},
	},
	{domain.StateGreeting, domain.EventGoodbye}: {
		{next: domain.StateCompleted, action: domain.ActionCompleteRefill},
	},

	// INTENT_RECOGNITION
	{domain.StateIntentRecognition, domain.EventRefillRequest}: {
		{next: domain.StatePrescriptionReview, action: domain.ActionListPrescriptions, when: verified},
		{next: domain.StateIdentityVerification, action: domain.ActionRequestName},
	},
	{domain.StateIntentRecognition, domain.EventInteractionQuestion}: {
		{next: domain.StatePrescriptionReview, action: domain.ActionListPrescriptions, when: verified},
		{next: domain.StateIdentityVerification, action: domain.ActionRequestName},
	},
	{domain.StateIntentRecognition, domain.EventAdministrationQuestion}: {
		{next: domain.StateIntentRecognition, action: domain.ActionContinue},
	},
	{domain.StateIntentRecognition, domain.EventGreeting}: {
		{next: domain.StateIntentRecognition, action: domain.ActionContinue},
	},
	{domain.StateIntentRecognition, domain.EventGoodbye}: {
		{next: domain.StateCompleted, action: domain.ActionCompleteRefill},
	},

	// IDENTITY_VERIFICATION
	{domain.StateIdentityVerification, domain.EventProvideName}: {
		{next: domain.StateDateOfBirth, action: domain.ActionRequestDOB},
	},
	// DOB without a name yet: keep asking for the name first.
	{domain.StateIdentityVerification, domain.EventProvideDOB}: {
		{next: domain.StateIdentityVerification, action: domain.ActionRequestName},
	},
	{domain.StateIdentityVerification, domain.EventGoodbye}: {
		{next: domain.StateCompleted, action: domain.ActionCompleteRefill},
	},

	// DATE_OF_BIRTH
	{domain.StateDateOfBirth, domain.EventProvideDOB}: {
		{next: domain.StateDateOfBirth, action: domain.ActionVerifyPatient},
	},
	{domain.StateDateOfBirth, domain.EventProvideName}: {
		{next: domain.StateDateOfBirth, action: domain.ActionRequestDOB},
	},
	{domain.StateDateOfBirth, domain.EventPatientVerified}: {
		{next: domain.StatePrescriptionReview, action: domain.ActionListPrescriptions},
	},
	{domain.StateDateOfBirth, domain.EventPatientNotFound}: {
		{next: domain.StateError, action: domain.ActionContinue},
	},
	{domain.StateDateOfBirth, domain.EventGoodbye}: {
		{next: domain.StateCompleted, action: domain.ActionCompleteRefill},
	},

	// PRESCRIPTION_REVIEW
	{domain.StatePrescriptionReview, domain.EventPrescriptionsListed}: {
		{next: domain.StatePrescriptionSelection, action: domain.ActionContinue},
	},
	{domain.StatePrescriptionReview, domain.EventNoPrescriptions}: {
		{next: domain.StateCompleted, action: domain.ActionContinue},
	},
	{domain.StatePrescriptionReview, domain.EventGoodbye}: {
		{next: domain.StateCompleted, action: domain.ActionCompleteRefill},
	},

	// PRESCRIPTION_SELECTION
	{domain.StatePrescriptionSelection, domain.EventSelectPrescription}: {
		{next: domain.StateInteractionCheck, action: domain.ActionCheckInteractions},
	},
	{domain.StatePrescriptionSelection, domain.EventRefillRequest}: {
		{next: domain.StatePrescriptionSelection, action: domain.ActionContinue},
	},
	{domain.StatePrescriptionSelection, domain.EventGoodbye}: {
		{next: domain.StateCompleted, action: domain.ActionCompleteRefill},
	},

	// INTERACTION_CHECK
	{domain.StateInteractionCheck, domain.EventInteractionClear}: {
		{next: domain.StateConfirmation, action: domain.ActionProcessRefill},
	},
	{domain.StateInteractionCheck, domain.EventInteractionFound}: {
		{next: domain.StateError, action: domain.ActionContinue},
	},
	{domain.StateInteractionCheck, domain.EventSelectPrescription}: {
		{next: domain.StateInteractionCheck, action: domain.ActionCheckInteractions},
	},
	// retry after a failed or refused check sends the caller back to pick again
	{domain.StateInteractionCheck, domain.EventRetry}: {
		{next: domain.StatePrescriptionSelection, action: domain.ActionContinue},
	},
	{domain.StateInteractionCheck, domain.EventGoodbye}: {
		{next: domain.StateCompleted, action: domain.ActionCompleteRefill},
	},

	// CONFIRMATION
	{domain.StateConfirmation, domain.EventRefillPlaced}: {
		{next: domain.StateCompleted, action: domain.ActionCompleteRefill},
	},
	{domain.StateConfirmation, domain.EventRefillUnavailable}: {
		{next: domain.StateError, action: domain.ActionContinue},
	},
	{domain.StateConfirmation, domain.EventConfirm}: {
		{next: domain.StateConfirmation, action: domain.ActionContinue},
	},
	{domain.StateConfirmation, domain.EventRetry}: {
		{next: domain.StatePrescriptionSelection, action: domain.ActionContinue},
	},
	{domain.StateConfirmation, domain.EventGoodbye}: {
		{next: domain.StateCompleted, action: domain.ActionCompleteRefill},
	},

	// COMPLETED
	{domain.StateCompleted, domain.EventNewRequest}: {
		{next: domain.StateGreeting, action: domain.ActionContinue},
	},
	{domain.StateCompleted, domain.EventGoodbye}: {
		{next: domain.StateCompleted, action: domain.ActionCompleteRefill},
	},

	// ERROR
	{domain.StateError, domain.EventRetry}: {
		{next: domain.StateGreeting, action: domain.ActionContinue},
	},
	{domain.StateError, domain.EventNewRequest}: {
		{next: domain.StateGreeting, action: domain.ActionContinue},
	},
	{domain.StateError, domain.EventGoodbye}: {
		{next: domain.StateCompleted, action: domain.ActionCompleteRefill},
	},
}

// Transition computes the next state, its action tag, and the context
// patch for one event. Deterministic, side-effect free.
//
// Fallback policy: `unclear` stays in place (re-prompt); any other pair
// missing from the table moves to ERROR, recording the origin state.
func Transition(current domain.DialogueState, event domain.Event, ctx Context) Result {
	if rules, ok := table[stateEvent{current, event}]; ok {
		for _, r := range rules {
			if r.when != nil && !r.when(ctx) {
				continue
			}
			return Result{Next: r.next, Action: r.action, Patch: entryPatch(current, r.next)}
		}
	}

	if event == domain.EventUnclear {
		return Result{Next: current, Action: domain.ActionContinue}
	}

	return Result{
		Next:   domain.StateError,
		Action: domain.ActionContinue,
		Patch:  entryPatch(current, domain.StateError),
	}
}

// entryPatch implements the on-entry context rules: PRESCRIPTION_REVIEW
// marks identity verified, ERROR records where it came from, COMPLETED
// closes the transaction.
func entryPatch(from, to domain.DialogueState) domain.ContextPatch {
	var patch domain.ContextPatch
	switch to {
	case domain.StatePrescriptionReview:
		t := true
		patch.IdentityVerified = &t
	case domain.StateError:
		origin := from
		patch.ErrorFrom = &origin
	case domain.StateCompleted:
		t := true
		patch.Closed = &t
	}
	return patch
}

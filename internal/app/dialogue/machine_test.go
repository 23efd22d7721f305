package dialogue_test

import (
	"testing"

	"github.com/tkc-cmd/rxvoice/internal/app/dialogue"
	"github.com/tkc-cmd/rxvoice/internal/domain"
)

func TestTransitionTotality(t *testing.T) {
	known := make(map[domain.DialogueState]bool)
	for _, s := range domain.AllStates {
		known[s] = true
	}

	for _, state := range domain.AllStates {
		for _, event := range domain.KnownEvents {
			res := dialogue.Transition(state, event, dialogue.Context{})
			if !known[res.Next] {
				t.Errorf("(%s, %s) produced unknown state %q", state, event, res.Next)
			}
			if res.Action == "" {
				t.Errorf("(%s, %s) produced empty action", state, event)
			}
		}
	}
}

func TestUnclearIsIdempotent(t *testing.T) {
	for _, state := range domain.AllStates {
		res := dialogue.Transition(state, domain.EventUnclear, dialogue.Context{})
		if res.Next != state {
			t.Errorf("unclear in %s moved to %s, want same state", state, res.Next)
		}
		if res.Action != domain.ActionContinue {
			t.Errorf("unclear in %s produced action %s, want continue", state, res.Action)
		}
	}
}

func TestUnmappedEventGoesToError(t *testing.T) {
	// confirm has no meaning while gathering the caller's name.
	res := dialogue.Transition(domain.StateIdentityVerification, domain.EventConfirm, dialogue.Context{})
	if res.Next != domain.StateError {
		t.Fatalf("expected ERROR, got %s", res.Next)
	}
	if res.Patch.ErrorFrom == nil || *res.Patch.ErrorFrom != domain.StateIdentityVerification {
		t.Fatalf("expected ErrorFrom patch recording IDENTITY_VERIFICATION, got %+v", res.Patch.ErrorFrom)
	}
}

func TestRefillHappyPath(t *testing.T) {
	steps := []struct {
		state  domain.DialogueState
		event  domain.Event
		next   domain.DialogueState
		action domain.Action
	}{
		{domain.StateGreeting, domain.EventRefillRequest, domain.StateIdentityVerification, domain.ActionRequestName},
		{domain.StateIdentityVerification, domain.EventProvideName, domain.StateDateOfBirth, domain.ActionRequestDOB},
		{domain.StateDateOfBirth, domain.EventProvideDOB, domain.StateDateOfBirth, domain.ActionVerifyPatient},
		{domain.StateDateOfBirth, domain.EventPatientVerified, domain.StatePrescriptionReview, domain.ActionListPrescriptions},
		{domain.StatePrescriptionReview, domain.EventPrescriptionsListed, domain.StatePrescriptionSelection, domain.ActionContinue},
		{domain.StatePrescriptionSelection, domain.EventSelectPrescription, domain.StateInteractionCheck, domain.ActionCheckInteractions},
		{domain.StateInteractionCheck, domain.EventInteractionClear, domain.StateConfirmation, domain.ActionProcessRefill},
		{domain.StateConfirmation, domain.EventRefillPlaced, domain.StateCompleted, domain.ActionCompleteRefill},
	}

	for _, s := range steps {
		res := dialogue.Transition(s.state, s.event, dialogue.Context{})
		if res.Next != s.next || res.Action != s.action {
			t.Errorf("(%s, %s) = (%s, %s), want (%s, %s)",
				s.state, s.event, res.Next, res.Action, s.next, s.action)
		}
	}
}

func TestEntryPatches(t *testing.T) {
	res := dialogue.Transition(domain.StateDateOfBirth, domain.EventPatientVerified, dialogue.Context{})
	if res.Patch.IdentityVerified == nil || !*res.Patch.IdentityVerified {
		t.Fatal("entering PRESCRIPTION_REVIEW must set identity verified")
	}

	res = dialogue.Transition(domain.StateConfirmation, domain.EventRefillPlaced, dialogue.Context{})
	if res.Patch.Closed == nil || !*res.Patch.Closed {
		t.Fatal("entering COMPLETED must mark the transaction closed")
	}
}

func TestVerifiedCallerSkipsIdentityGathering(t *testing.T) {
	res := dialogue.Transition(domain.StateGreeting, domain.EventRefillRequest, dialogue.Context{IdentityVerified: true})
	if res.Next != domain.StatePrescriptionReview || res.Action != domain.ActionListPrescriptions {
		t.Fatalf("verified caller should go straight to review, got (%s, %s)", res.Next, res.Action)
	}
}

func TestErrorRecovery(t *testing.T) {
	for _, ev := range []domain.Event{domain.EventRetry, domain.EventNewRequest} {
		res := dialogue.Transition(domain.StateError, ev, dialogue.Context{})
		if res.Next != domain.StateGreeting {
			t.Errorf("ERROR + %s should return to GREETING, got %s", ev, res.Next)
		}
	}

	res := dialogue.Transition(domain.StateError, domain.EventGoodbye, dialogue.Context{})
	if res.Next != domain.StateCompleted {
		t.Errorf("ERROR + goodbye should complete, got %s", res.Next)
	}

	res = dialogue.Transition(domain.StateCompleted, domain.EventNewRequest, dialogue.Context{})
	if res.Next != domain.StateGreeting {
		t.Errorf("COMPLETED + new_request should return to GREETING, got %s", res.Next)
	}
}

func TestRetryDuringRefillReturnsToSelection(t *testing.T) {
	for _, from := range []domain.DialogueState{domain.StateInteractionCheck, domain.StateConfirmation} {
		res := dialogue.Transition(from, domain.EventRetry, dialogue.Context{IdentityVerified: true})
		if res.Next != domain.StatePrescriptionSelection {
			t.Errorf("%s + retry moved to %s, want %s", from, res.Next, domain.StatePrescriptionSelection)
		}
	}
}

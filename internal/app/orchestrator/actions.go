package orchestrator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/tkc-cmd/rxvoice/internal/app/dialogue"
	"github.com/tkc-cmd/rxvoice/internal/app/druginfo"
	"github.com/tkc-cmd/rxvoice/internal/app/nlu"
	"github.com/tkc-cmd/rxvoice/internal/config"
	"github.com/tkc-cmd/rxvoice/internal/domain"
	"github.com/tkc-cmd/rxvoice/internal/observability"
)

const collaboratorTimeout = 10 * time.Second

// turn tracks one pass through processUserInput so chained actions know
// whether an earlier handler already produced the spoken reply.
type turn struct {
	text   string
	intent domain.Event
	spoke  bool
}

// processUserInput runs one caller utterance through classification, the
// dialogue machine, and the resulting action chain. Caller holds the
// actor lock.
func (o *Orchestrator) processUserInput(a *actor, text string) {
	log := observability.LoggerFromContext(a.ctx)

	userTurn := a.sess.AppendTurn(domain.RoleUser, text, o.now())
	o.notifier.NotifyTranscript(a.sess.ID, userTurn)

	ev := o.classify(a, text)
	log.Info("utterance classified", "state", a.sess.State, "event", ev)

	t := &turn{text: text, intent: ev}

	// A substantive intent arriving in a terminal state reopens the
	// conversation: apply the new_request transition silently, then let
	// the intent replay from GREETING.
	if a.sess.State == domain.StateError || a.sess.State == domain.StateCompleted {
		if mapped, ok := o.reopenEvent(a, ev); ok {
			res := dialogue.Transition(a.sess.State, domain.EventNewRequest, dialogue.Context{
				IdentityVerified: a.sess.IdentityVerified,
			})
			a.sess.State = res.Next
			res.Patch.Apply(a.sess)
			a.sess.Closed = false
			a.sess.Selected = nil
			a.sess.InteractionWarning = ""
			ev = mapped
		}
	}

	// Domain events chain: an action handler can emit the next event.
	for ev != "" {
		res := dialogue.Transition(a.sess.State, ev, dialogue.Context{
			IdentityVerified: a.sess.IdentityVerified,
			HasSelection:     a.sess.Selected != nil,
		})

		from := a.sess.State
		a.sess.State = res.Next
		res.Patch.Apply(a.sess)
		if from != res.Next {
			log.Info("dialogue transition", "from", from, "event", ev, "to", res.Next, "action", res.Action)
		}

		ev = o.runAction(a, res.Action, t)
	}
}

// reopenEvent decides whether an event spoken in ERROR or COMPLETED
// restarts the flow, and what it replays as from GREETING.
func (o *Orchestrator) reopenEvent(a *actor, ev domain.Event) (domain.Event, bool) {
	switch ev {
	case domain.EventRefillRequest, domain.EventInteractionQuestion,
		domain.EventAdministrationQuestion, domain.EventGreeting:
		return ev, true
	case domain.EventConfirm, domain.EventRetry:
		return domain.EventGreeting, true
	case domain.EventProvideName, domain.EventProvideDOB:
		// retrying identity after a failed verification restarts the
		// refill flow, which prompts for the name again
		if a.sess.ErrorFrom == domain.StateIdentityVerification || a.sess.ErrorFrom == domain.StateDateOfBirth {
			return domain.EventRefillRequest, true
		}
		return domain.EventGreeting, true
	}
	return ev, false
}

// classify maps the utterance to a dialogue event. The language model is
// consulted first; on any failure the keyword classifier answers instead,
// so classification never fails the turn. State-specific matching refines
// the raw intent (identity capture, prescription selection).
func (o *Orchestrator) classify(a *actor, text string) domain.Event {
	log := observability.LoggerFromContext(a.ctx)

	ctx, cancel := context.WithTimeout(a.ctx, collaboratorTimeout)
	defer cancel()

	result, err := o.llm.ClassifyIntent(ctx, text)
	if err != nil {
		log.Warn("intent classification degraded to keyword rules", "error", err)
		result = nlu.Classify(text)
	}
	ev := result.Intent

	switch a.sess.State {
	case domain.StateIdentityVerification, domain.StateDateOfBirth:
		// Capture whatever identity fields the utterance carries, then
		// let the most advanced captured field drive the transition.
		info := o.extractIdentity(a, text)
		if info.DateOfBirth != "" {
			a.sess.PendingDOB = info.DateOfBirth
		}
		if info.FirstName != "" {
			a.sess.PendingName = strings.TrimSpace(info.FirstName + " " + info.LastName)
		} else if a.sess.State == domain.StateIdentityVerification && a.sess.PendingName == "" &&
			(ev == domain.EventUnclear || ev == domain.EventProvideName) {
			// a bare "John Smith" answer to the name prompt
			if name := nlu.BareName(text); name != "" {
				a.sess.PendingName = name
				info.FirstName = name
			}
		}
		if a.sess.PendingDOB != "" && a.sess.PendingName != "" {
			return domain.EventProvideDOB
		}
		if info.FirstName != "" {
			return domain.EventProvideName
		}
		if info.DateOfBirth != "" {
			return domain.EventProvideDOB
		}
		// the model claimed an identity field but extraction found none
		if ev == domain.EventProvideName || ev == domain.EventProvideDOB {
			return domain.EventUnclear
		}

	case domain.StatePrescriptionSelection:
		if ev == domain.EventGoodbye || ev == domain.EventDeny {
			return ev
		}
		match, ambiguous := matchPrescription(text, a.sess.EligiblePrescriptions)
		if match != nil {
			sel := *match
			a.sess.Selected = &sel
			return domain.EventSelectPrescription
		}
		if ambiguous {
			o.speak(a, "I found more than one prescription matching that. Could you say the full medication name?")
			return ""
		}
		if looksLikeMedication(text) {
			o.speak(a, "I don't see a refillable prescription matching that on your profile. "+listUtterance(a.sess.EligiblePrescriptions))
			return ""
		}
	}

	return ev
}

func (o *Orchestrator) extractIdentity(a *actor, text string) domain.PatientInfo {
	ctx, cancel := context.WithTimeout(a.ctx, collaboratorTimeout)
	defer cancel()

	info, err := o.llm.ExtractPatientInfo(ctx, text)
	if err != nil {
		observability.LoggerFromContext(a.ctx).Warn("identity extraction degraded to local rules", "error", err)
		info = nlu.ExtractPatientInfo(text)
	}

	// normalize a spoken date the model passed through verbatim
	if info.DateOfBirth != "" {
		if norm := nlu.ExtractDOB(info.DateOfBirth); norm != "" {
			info.DateOfBirth = norm
		}
	}
	return info
}

// runAction executes one side-effecting action and returns the follow-up
// domain event, or "" to end the chain. Caller holds the actor lock.
func (o *Orchestrator) runAction(a *actor, action domain.Action, t *turn) domain.Event {
	switch action {
	case domain.ActionRequestName:
		if a.sess.PendingName != "" {
			return domain.EventProvideName
		}
		t.spoke = true
		o.speak(a, "I can help with that. Could I have your full name, please?")

	case domain.ActionRequestDOB:
		if a.sess.PendingDOB != "" {
			return domain.EventProvideDOB
		}
		t.spoke = true
		o.speak(a, "Thank you. And your date of birth?")

	case domain.ActionVerifyPatient:
		return o.verifyPatient(a, t)

	case domain.ActionListPrescriptions:
		return o.listPrescriptions(a, t)

	case domain.ActionCheckInteractions:
		return o.checkInteractions(a, t)

	case domain.ActionProcessRefill:
		return o.processRefill(a, t)

	case domain.ActionCompleteRefill:
		if !t.spoke {
			t.spoke = true
			o.speak(a, "Thanks for calling the pharmacy line. Take care!")
		}

	case domain.ActionContinue:
		if !t.spoke {
			t.spoke = true
			o.continueConversation(a, t)
		}
	}
	return ""
}

func (o *Orchestrator) verifyPatient(a *actor, t *turn) domain.Event {
	log := observability.LoggerFromContext(a.ctx)

	ctx, cancel := context.WithTimeout(a.ctx, collaboratorTimeout)
	defer cancel()

	patient, err := o.store.VerifyPatient(ctx, a.sess.PendingName, a.sess.PendingDOB)
	if err == domain.ErrNotFound {
		log.Info("patient verification failed",
			"name", a.sess.PendingName,
			"dob", observability.MaskDOB(a.sess.PendingDOB))
		a.sess.PendingName = ""
		a.sess.PendingDOB = ""
		t.spoke = true
		o.speak(a, "I couldn't find a patient matching that name and date of birth. Let's try again, or I can transfer you to pharmacy staff.")
		return domain.EventPatientNotFound
	}
	if err != nil {
		log.Error("patient lookup failed", "error", err)
		t.spoke = true
		o.speak(a, fallbackUtterance(a.sess.State))
		return ""
	}

	a.sess.Patient = patient
	log.Info("patient verified", "patient_id", patient.ID)
	return domain.EventPatientVerified
}

func (o *Orchestrator) listPrescriptions(a *actor, t *turn) domain.Event {
	log := observability.LoggerFromContext(a.ctx)

	ctx, cancel := context.WithTimeout(a.ctx, collaboratorTimeout)
	defer cancel()

	all, err := o.store.ListPrescriptions(ctx, a.sess.Patient.ID)
	if err != nil {
		log.Error("listing prescriptions failed", "error", err)
		t.spoke = true
		o.speak(a, fallbackUtterance(a.sess.State))
		return ""
	}

	now := o.now()
	eligible := make([]domain.Prescription, 0, len(all))
	for _, rx := range all {
		if rx.Selectable(now) {
			eligible = append(eligible, rx)
		}
	}
	a.sess.EligiblePrescriptions = eligible

	if len(eligible) == 0 {
		t.spoke = true
		o.speak(a, "I don't see any prescriptions eligible for refill on your profile. Please contact your doctor for a new prescription.")
		return domain.EventNoPrescriptions
	}

	t.spoke = true
	first := firstName(a.sess.Patient.FullName)
	o.speak(a, fmt.Sprintf("Thanks %s, you're verified. %s Which one would you like to refill?", first, listUtterance(eligible)))
	return domain.EventPrescriptionsListed
}

func (o *Orchestrator) checkInteractions(a *actor, t *turn) domain.Event {
	log := observability.LoggerFromContext(a.ctx)

	sel := a.sess.Selected
	if sel == nil {
		t.spoke = true
		o.speak(a, "Which prescription would you like to refill? "+listUtterance(a.sess.EligiblePrescriptions))
		return domain.EventRetry
	}

	ctx, cancel := context.WithTimeout(a.ctx, collaboratorTimeout)
	defer cancel()

	result, err := o.store.CheckInteractions(ctx, a.sess.Patient.ID, sel.Medication)
	if err != nil {
		log.Error("interaction check failed", "error", err, "fail_mode", o.cfg.InteractionFailMode)
		if o.cfg.InteractionFailMode == config.FailClosed {
			t.spoke = true
			o.speak(a, "I can't run the safety check right now, so I can't complete this refill. Please try again in a few minutes or contact pharmacy staff.")
			a.sess.Selected = nil
			return domain.EventRetry
		}
		// fail-open: proceed as clear, the pharmacist reviews on pickup
		return domain.EventInteractionClear
	}

	if result.HasInteractions {
		a.sess.InteractionWarning = result.Warning
		t.spoke = true
		o.speak(a, fmt.Sprintf("Before we continue, a safety note about %s. %s I can't complete this refill automatically; please speak with your pharmacist.", sel.Medication, result.Warning))
		return domain.EventInteractionFound
	}

	return domain.EventInteractionClear
}

func (o *Orchestrator) processRefill(a *actor, t *turn) domain.Event {
	log := observability.LoggerFromContext(a.ctx)
	now := o.now()

	sel := a.sess.Selected
	if sel == nil {
		t.spoke = true
		o.speak(a, "Which prescription would you like to refill? "+listUtterance(a.sess.EligiblePrescriptions))
		return domain.EventRetry
	}

	ctx, cancel := context.WithTimeout(a.ctx, collaboratorTimeout)
	defer cancel()

	err := o.store.DecrementRefill(ctx, sel.ID)
	if err == domain.ErrConflict {
		log.Info("refill refused, none remaining", "prescription_id", sel.ID)
		o.recordRefillEvent(a, sel, "no_refills", "", "no refills remaining at commit time")
		t.spoke = true
		o.speak(a, fmt.Sprintf("I'm sorry, %s has no refills remaining. Please contact your doctor for a new prescription.", sel.Medication))
		return domain.EventRefillUnavailable
	}
	if err != nil {
		log.Error("refill commit failed", "error", err)
		t.spoke = true
		o.speak(a, fallbackUtterance(a.sess.State))
		return ""
	}

	code := confirmationCode(now)
	pickup := now.Add(o.cfg.PickupWindow)
	o.recordRefillEvent(a, sel, "placed", code, "")

	log.Info("refill placed", "prescription_id", sel.ID, "code", code)
	t.spoke = true
	o.speak(a, fmt.Sprintf(
		"Your refill for %s %s is confirmed. Your confirmation code is %s. It will be ready for pickup after %s at %s. Anything else?",
		sel.Medication, sel.Dosage, code, pickup.Format("3:04 PM"), a.sess.Patient.Pharmacy))
	return domain.EventRefillPlaced
}

// recordRefillEvent appends an audit record. Failures are logged and never
// surface to the caller.
func (o *Orchestrator) recordRefillEvent(a *actor, rx *domain.Prescription, status, code, notes string) {
	ctx, cancel := context.WithTimeout(a.ctx, collaboratorTimeout)
	defer cancel()

	ev := domain.RefillEvent{
		SessionID:      a.sess.ID,
		PatientID:      a.sess.Patient.ID,
		PrescriptionID: rx.ID,
		Medication:     rx.Medication,
		Status:         status,
		Code:           code,
		Notes:          notes,
		CreatedAt:      o.now(),
	}
	if err := o.store.RecordRefillEvent(ctx, ev); err != nil {
		observability.LoggerFromContext(a.ctx).Error("recording refill event failed", "error", err)
	}
}

// continueConversation handles the open-ended reply when no structured
// action applies: administration guides locally, everything else via the
// language model, with a state-scoped canned reply when that fails too.
func (o *Orchestrator) continueConversation(a *actor, t *turn) {
	if t.intent == domain.EventAdministrationQuestion {
		if g, ok := o.guides.GuideInText(t.text); ok {
			o.speak(a, administrationUtterance(g))
			return
		}
	}

	ctx, cancel := context.WithTimeout(a.ctx, collaboratorTimeout)
	defer cancel()

	reply, err := o.llm.GenerateFreeform(ctx, t.text, a.sess.State, a.sess.RecentHistory(12))
	if err != nil {
		observability.LoggerFromContext(a.ctx).Warn("freeform generation failed", "error", err)
		o.speak(a, fallbackUtterance(a.sess.State))
		return
	}
	o.speak(a, reply)
}

// confirmationCode builds the pickup code: RX, six digits of wall-clock
// time, three random digits.
func confirmationCode(now time.Time) string {
	return fmt.Sprintf("RX%s%03d", now.Format("150405"), rand.IntN(1000))
}

// matchPrescription resolves a spoken selection against the eligible list
// by case-insensitive substring matching in both directions. Ties resolve
// to the longest exact token match; an unresolvable tie reports ambiguity.
func matchPrescription(text string, eligible []domain.Prescription) (*domain.Prescription, bool) {
	lower := strings.ToLower(text)
	tokens := strings.Fields(lower)

	var matches []*domain.Prescription
	for i := range eligible {
		med := strings.ToLower(eligible[i].Medication)
		if strings.Contains(lower, med) || containsToken(tokens, med) {
			matches = append(matches, &eligible[i])
		}
	}

	switch len(matches) {
	case 0:
		return nil, false
	case 1:
		return matches[0], false
	}

	// longest exact token match wins; equal lengths are ambiguous
	var best *domain.Prescription
	bestLen := 0
	tied := false
	for _, m := range matches {
		med := strings.ToLower(m.Medication)
		if !containsToken(tokens, med) {
			continue
		}
		switch {
		case len(med) > bestLen:
			best, bestLen, tied = m, len(med), false
		case len(med) == bestLen:
			tied = true
		}
	}
	if best != nil && !tied {
		return best, false
	}
	return nil, true
}

func containsToken(tokens []string, med string) bool {
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,!?")
		if tok == med || strings.Contains(med, tok) && len(tok) >= 4 {
			return true
		}
	}
	return false
}

// looksLikeMedication guesses whether an unmatched selection utterance
// actually named a drug, as opposed to chatter, so the re-prompt can say
// the named one is not refillable.
func looksLikeMedication(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range []string{"the one", "my ", "prescription", "medication", "pill", "tablet", "mg"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	// a single unrecognized word is most likely a drug name
	return len(strings.Fields(lower)) <= 2 && lower != ""
}

func listUtterance(eligible []domain.Prescription) string {
	names := make([]string, len(eligible))
	for i, rx := range eligible {
		names[i] = fmt.Sprintf("%s %s with %d refills remaining", rx.Medication, rx.Dosage, rx.RefillsRemaining)
	}
	return "You have " + joinSpoken(names) + "."
}

func administrationUtterance(g druginfo.Guide) string {
	var b strings.Builder
	fmt.Fprintf(&b, "For %s: %s", g.Medication, g.Instructions)
	if g.TimingGuidance != "" {
		b.WriteString(" " + g.TimingGuidance)
	}
	if g.FoodGuidance != "" {
		b.WriteString(" " + g.FoodGuidance)
	}
	if len(g.SideEffects) > 0 {
		b.WriteString(" Common side effects include " + joinSpoken(g.SideEffects) + ".")
	}
	if g.WhenToSeekHelp != "" {
		b.WriteString(" Seek help for: " + g.WhenToSeekHelp)
	}
	return b.String()
}

// joinSpoken joins items the way they would be read aloud.
func joinSpoken(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

// fallbackUtterance is the canned reply for the current state when a
// collaborator fails mid-turn. The dialogue state never changes on these.
func fallbackUtterance(state domain.DialogueState) string {
	switch state {
	case domain.StateGreeting, domain.StateIntentRecognition:
		return "I'm having trouble right now. You can ask me to refill a prescription, or ask about your medications."
	case domain.StateIdentityVerification:
		return "I'm having trouble right now. Could you repeat your full name, please?"
	case domain.StateDateOfBirth:
		return "I'm having trouble right now. Could you repeat your date of birth?"
	case domain.StatePrescriptionReview, domain.StatePrescriptionSelection:
		return "I'm having trouble reading your prescriptions at the moment. Please try again in a few seconds."
	case domain.StateInteractionCheck, domain.StateConfirmation:
		return "I'm having trouble completing that refill right now. Please try again in a few minutes or contact pharmacy staff."
	case domain.StateCompleted:
		return "Is there anything else I can help you with?"
	default:
		return "Something went wrong on my end. Let's start over, or I can transfer you to pharmacy staff."
	}
}

func firstName(full string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(full), " ")
	return first
}

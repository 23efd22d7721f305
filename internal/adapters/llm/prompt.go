package llm

import (
	"strings"

	"github.com/tkc-cmd/rxvoice/internal/domain"
)

const baseSystemPrompt = `
You are "RxVoice", an automated pharmacy phone assistant.

Your role:
- You help callers refill prescriptions, answer drug interaction questions,
  and explain how to take their medications.
- You are NOT a doctor or pharmacist and you do NOT give medical diagnoses.
- In emergencies, tell the caller to contact their local emergency number.

General style guidelines:
- Your replies are spoken aloud over the phone. Keep them SHORT: one to
  three sentences.
- Use plain, everyday language. No markdown, no lists, no emoji.
- Never read back a full date of birth or phone number; mask all but the
  last digits.
- Never discuss a caller's prescriptions before their identity is verified.

Boundaries and safety:
- If the caller describes a medical emergency, tell them to hang up and
  call their local emergency number.
- If the caller asks for a diagnosis or dosing change, refer them to their
  doctor or pharmacist.
`

const classifyInstructions = `
Classify the caller's utterance into exactly one intent label. Answer with
ONLY the label, nothing else.

Labels:
- refill_request: the caller wants to refill a prescription.
- interaction_question: the caller asks whether medications interact.
- administration_question: the caller asks how or when to take a medication.
- greeting: a greeting with no request yet.
- provide_name: the caller states their name.
- provide_dob: the caller states a date of birth.
- select_prescription: the caller names or picks a medication from a list.
- confirm: yes, correct, go ahead.
- deny: no, cancel, not that one.
- goodbye: the caller is done.
- unclear: none of the above fits.
`

const extractInstructions = `
Extract identity fields from the caller's utterance. Answer with ONLY three
lines in this exact form, using an empty value when a field is absent:

first_name: <value>
last_name: <value>
date_of_birth: <YYYY-MM-DD>
`

func stateInstructions(state domain.DialogueState) string {
	switch state {
	case domain.StateGreeting, domain.StateIntentRecognition:
		return "The call just started. Find out what the caller needs."
	case domain.StateIdentityVerification, domain.StateDateOfBirth:
		return "You are verifying the caller's identity. Ask only for the missing field. Do not discuss prescriptions yet."
	case domain.StatePrescriptionReview, domain.StatePrescriptionSelection:
		return "The caller is verified. Help them pick one of their refillable prescriptions."
	case domain.StateInteractionCheck, domain.StateConfirmation:
		return "You are completing a refill. Be brief and factual."
	case domain.StateCompleted:
		return "The request is done. Ask if there is anything else, or say goodbye."
	case domain.StateError:
		return "Something went wrong. Apologize briefly and offer to try again or transfer to pharmacy staff."
	default:
		return ""
	}
}

// BuildFreeformPrompt assembles the system prompt plus the conversation so
// far for an open-ended assistant turn.
func BuildFreeformPrompt(userMessage string, state domain.DialogueState, history []domain.ConversationTurn) (system, user string) {
	system = baseSystemPrompt + "\n" + stateInstructions(state)

	var historyParts []string
	for _, t := range history {
		role := "user"
		if t.Role == domain.RoleAssistant {
			role = "assistant"
		}
		historyParts = append(historyParts, role+": "+t.Text)
	}

	var b strings.Builder
	if len(historyParts) > 0 {
		b.WriteString("Conversation so far:\n")
		b.WriteString(strings.Join(historyParts, "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString("New caller utterance:\n")
	b.WriteString(userMessage)

	return system, b.String()
}

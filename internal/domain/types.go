package domain

import "time"

type SessionID string
type PatientID string
type PrescriptionID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// DialogueState is the closed set of positions the conversation can be in.
type DialogueState string

const (
	StateGreeting              DialogueState = "GREETING"
	StateIntentRecognition     DialogueState = "INTENT_RECOGNITION"
	StateIdentityVerification  DialogueState = "IDENTITY_VERIFICATION"
	StateDateOfBirth           DialogueState = "DATE_OF_BIRTH"
	StatePrescriptionReview    DialogueState = "PRESCRIPTION_REVIEW"
	StatePrescriptionSelection DialogueState = "PRESCRIPTION_SELECTION"
	StateInteractionCheck      DialogueState = "INTERACTION_CHECK"
	StateConfirmation          DialogueState = "CONFIRMATION"
	StateCompleted             DialogueState = "COMPLETED"
	StateError                 DialogueState = "ERROR"
)

// AllStates lists every dialogue state, used to check transition totality.
var AllStates = []DialogueState{
	StateGreeting,
	StateIntentRecognition,
	StateIdentityVerification,
	StateDateOfBirth,
	StatePrescriptionReview,
	StatePrescriptionSelection,
	StateInteractionCheck,
	StateConfirmation,
	StateCompleted,
	StateError,
}

// Event is what moves the dialogue forward. User intents and domain
// outcomes share the same event space so the machine stays a single table.
type Event string

const (
	// user intents
	EventRefillRequest          Event = "refill_request"
	EventInteractionQuestion    Event = "interaction_question"
	EventAdministrationQuestion Event = "administration_question"
	EventGreeting               Event = "greeting"
	EventProvideName            Event = "provide_name"
	EventProvideDOB             Event = "provide_dob"
	EventSelectPrescription     Event = "select_prescription"
	EventConfirm                Event = "confirm"
	EventDeny                   Event = "deny"
	EventUnclear                Event = "unclear"
	EventGoodbye                Event = "goodbye"
	EventRetry                  Event = "retry"
	EventNewRequest             Event = "new_request"

	// domain outcomes
	EventPatientVerified     Event = "patient_verified"
	EventPatientNotFound     Event = "patient_not_found"
	EventPrescriptionsListed Event = "prescriptions_listed"
	EventNoPrescriptions     Event = "no_prescriptions"
	EventInteractionClear    Event = "interaction_clear"
	EventInteractionFound    Event = "interaction_found"
	EventRefillPlaced        Event = "refill_placed"
	EventRefillUnavailable   Event = "refill_unavailable"
)

// KnownEvents is the closed event set the transition table is total over.
var KnownEvents = []Event{
	EventRefillRequest, EventInteractionQuestion, EventAdministrationQuestion,
	EventGreeting, EventProvideName, EventProvideDOB, EventSelectPrescription,
	EventConfirm, EventDeny, EventUnclear, EventGoodbye, EventRetry, EventNewRequest,
	EventPatientVerified, EventPatientNotFound, EventPrescriptionsListed,
	EventNoPrescriptions, EventInteractionClear, EventInteractionFound,
	EventRefillPlaced, EventRefillUnavailable,
}

// Action tells the orchestrator which side-effecting procedure to run
// after a transition.
type Action string

const (
	ActionRequestName       Action = "request_name"
	ActionRequestDOB        Action = "request_dob"
	ActionVerifyPatient     Action = "verify_patient"
	ActionListPrescriptions Action = "list_prescriptions"
	ActionCheckInteractions Action = "check_interactions"
	ActionProcessRefill     Action = "process_refill"
	ActionCompleteRefill    Action = "complete_refill"
	ActionContinue          Action = "continue"
)

type Timestamp = time.Time

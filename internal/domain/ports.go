package domain

import (
	"context"
	"errors"
)

// Sentinel errors shared by store implementations.
var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by DecrementRefill when no refills remain
	// at commit time (decrement-with-guard refused).
	ErrConflict = errors.New("refill conflict")
)

// Transcript is the STT collaborator output.
type Transcript struct {
	Text       string
	Confidence float64
}

// Transcriber turns a flushed utterance into text. Implementations retry
// internally at most once; callers never retry.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (Transcript, error)
}

// Synthesizer turns an assistant turn into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// IntentResult is the classification of one caller utterance.
type IntentResult struct {
	Intent     Event
	Confidence float64
	Entities   map[string]string
}

// PatientInfo carries whatever identity fields the extractor found; any
// field may be empty.
type PatientInfo struct {
	FirstName   string
	LastName    string
	DateOfBirth string // YYYY-MM-DD
}

// LanguageModel is the understanding/generation collaborator.
type LanguageModel interface {
	ClassifyIntent(ctx context.Context, text string) (IntentResult, error)
	ExtractPatientInfo(ctx context.Context, text string) (PatientInfo, error)
	GenerateFreeform(ctx context.Context, text string, state DialogueState, history []ConversationTurn) (string, error)
}

// PharmacyStore is the patient/prescription collaborator.
type PharmacyStore interface {
	// VerifyPatient matches by exact case-insensitive name and exact DOB.
	// Returns ErrNotFound on a miss.
	VerifyPatient(ctx context.Context, name, dob string) (*Patient, error)
	ListPrescriptions(ctx context.Context, patientID PatientID) ([]Prescription, error)
	// DecrementRefill atomically decrements refills-remaining by one and
	// stamps last-filled. Returns ErrConflict if none remain.
	DecrementRefill(ctx context.Context, id PrescriptionID) error
	CheckInteractions(ctx context.Context, patientID PatientID, medication string) (InteractionResult, error)
	// RecordRefillEvent appends an audit record; failures are logged by
	// callers but never block the conversation.
	RecordRefillEvent(ctx context.Context, ev RefillEvent) error
}

// Notifier is how the orchestrator reaches back to the transport layer.
// Implementations must be safe for concurrent use and must not block the
// caller for long.
type Notifier interface {
	NotifySessionStarted(id SessionID)
	NotifySessionEnded(id SessionID, reason string)
	NotifyRecording(id SessionID, recording bool)
	NotifySpeaking(id SessionID, speaking bool)
	NotifyTranscript(id SessionID, turn ConversationTurn)
	NotifyAudio(id SessionID, audio []byte)
	NotifyProcessing(id SessionID, active bool)
	NotifyInterrupted(id SessionID)
	NotifyError(id SessionID, message string)
}

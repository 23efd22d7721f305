package domain

import "time"

// Patient is the verified caller identity behind the PHI gate.
type Patient struct {
	ID          PatientID
	FullName    string
	DateOfBirth string // YYYY-MM-DD
	Phone       string
	Pharmacy    string
}

// Prescription is read through the store; the orchestrator only evaluates
// the three predicates below itself.
type Prescription struct {
	ID               PrescriptionID
	PatientID        PatientID
	Medication       string
	Dosage           string // e.g. "20 mg"
	Quantity         int
	RefillsRemaining int
	Prescriber       string
	ExpiresAt        time.Time
	LastFilledAt     *time.Time
}

// Expired reports whether the prescription can no longer be filled at all.
func (p Prescription) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !p.ExpiresAt.After(now)
}

// Exhausted reports whether no refills remain.
func (p Prescription) Exhausted() bool {
	return p.RefillsRemaining <= 0
}

// Selectable: neither expired nor exhausted.
func (p Prescription) Selectable(now time.Time) bool {
	return !p.Expired(now) && !p.Exhausted()
}

// InteractionResult is the outcome of the interaction-check collaborator.
type InteractionResult struct {
	HasInteractions bool
	Warning         string
}

// RefillEvent records a refill attempt for audit. Notes must never carry
// unmasked PHI.
type RefillEvent struct {
	SessionID      SessionID
	PatientID      PatientID
	PrescriptionID PrescriptionID
	Medication     string
	Status         string // placed, no_refills, not_found
	Code           string
	Notes          string
	CreatedAt      Timestamp
}

package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tkc-cmd/rxvoice/internal/app/druginfo"
	"github.com/tkc-cmd/rxvoice/internal/domain"
)

// PharmacyStore is the in-memory backend used for local dev and tests.
type PharmacyStore struct {
	mu            sync.RWMutex
	patients      map[domain.PatientID]*domain.Patient
	prescriptions map[domain.PrescriptionID]*domain.Prescription
	events        []domain.RefillEvent

	drugInfo *druginfo.Service
	now      func() time.Time
}

func NewPharmacyStore() *PharmacyStore {
	return &PharmacyStore{
		patients:      make(map[domain.PatientID]*domain.Patient),
		prescriptions: make(map[domain.PrescriptionID]*domain.Prescription),
		drugInfo:      druginfo.NewService(),
		now:           time.Now,
	}
}

func (s *PharmacyStore) AddPatient(p domain.Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.patients[p.ID] = &cp
}

func (s *PharmacyStore) AddPrescription(rx domain.Prescription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := rx
	s.prescriptions[rx.ID] = &cp
}

func (s *PharmacyStore) VerifyPatient(ctx context.Context, name, dob string) (*domain.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := strings.ToLower(strings.TrimSpace(name))
	for _, p := range s.patients {
		if strings.ToLower(p.FullName) == want && p.DateOfBirth == dob {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *PharmacyStore) ListPrescriptions(ctx context.Context, patientID domain.PatientID) ([]domain.Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Prescription
	for _, rx := range s.prescriptions {
		if rx.PatientID == patientID {
			out = append(out, *rx)
		}
	}
	return out, nil
}

// DecrementRefill applies the decrement-with-guard under the store lock.
func (s *PharmacyStore) DecrementRefill(ctx context.Context, id domain.PrescriptionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rx, ok := s.prescriptions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rx.RefillsRemaining <= 0 {
		return domain.ErrConflict
	}

	rx.RefillsRemaining--
	now := s.now()
	rx.LastFilledAt = &now
	return nil
}

func (s *PharmacyStore) CheckInteractions(ctx context.Context, patientID domain.PatientID, medication string) (domain.InteractionResult, error) {
	s.mu.RLock()
	var current []string
	for _, rx := range s.prescriptions {
		if rx.PatientID == patientID {
			current = append(current, rx.Medication)
		}
	}
	s.mu.RUnlock()

	alerts := s.drugInfo.CheckAgainst(medication, current)
	if len(alerts) == 0 {
		return domain.InteractionResult{}, nil
	}

	var b strings.Builder
	for i, a := range alerts {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(fmt.Sprintf("%s: %s", a.Summary, a.Guidance))
	}
	return domain.InteractionResult{HasInteractions: true, Warning: b.String()}, nil
}

func (s *PharmacyStore) RecordRefillEvent(ctx context.Context, ev domain.RefillEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// RefillEvents returns a copy of the audit trail, newest last.
func (s *PharmacyStore) RefillEvents() []domain.RefillEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RefillEvent, len(s.events))
	copy(out, s.events)
	return out
}

package firestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tkc-cmd/rxvoice/internal/app/druginfo"
	"github.com/tkc-cmd/rxvoice/internal/domain"
)

// Store is the Firestore backend of the pharmacy store.
type Store struct {
	client   *firestore.Client
	drugInfo *druginfo.Service
}

// NewStore creates a Firestore store.
// Uses the project passed (RXVOICE_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, drugInfo: druginfo.NewService()}, nil
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) patientsCol() *firestore.CollectionRef {
	return s.client.Collection("patients")
}

func (s *Store) prescriptionsCol() *firestore.CollectionRef {
	return s.client.Collection("prescriptions")
}

func (s *Store) refillEventsCol() *firestore.CollectionRef {
	return s.client.Collection("refill_events")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type patientDoc struct {
	FullName    string `firestore:"full_name"`
	NameLower   string `firestore:"name_lower"`
	DateOfBirth string `firestore:"date_of_birth"`
	Phone       string `firestore:"phone"`
	Pharmacy    string `firestore:"pharmacy"`
}

type prescriptionDoc struct {
	PatientID        string     `firestore:"patient_id"`
	Medication       string     `firestore:"medication"`
	Dosage           string     `firestore:"dosage"`
	Quantity         int        `firestore:"quantity"`
	RefillsRemaining int        `firestore:"refills_remaining"`
	Prescriber       string     `firestore:"prescriber"`
	ExpiresAt        time.Time  `firestore:"expires_at"`
	LastFilledAt     *time.Time `firestore:"last_filled_at"`
}

type refillEventDoc struct {
	SessionID      string    `firestore:"session_id"`
	PatientID      string    `firestore:"patient_id"`
	PrescriptionID string    `firestore:"prescription_id"`
	Medication     string    `firestore:"medication"`
	Status         string    `firestore:"status"`
	Code           string    `firestore:"code"`
	Notes          string    `firestore:"notes"`
	CreatedAt      time.Time `firestore:"created_at"`
}

// ─────────────────────────────────────────
// PharmacyStore implementation
// ─────────────────────────────────────────

func (s *Store) VerifyPatient(ctx context.Context, name, dob string) (*domain.Patient, error) {
	q := s.patientsCol().
		Where("name_lower", "==", strings.ToLower(strings.TrimSpace(name))).
		Where("date_of_birth", "==", dob).
		Limit(1)

	iter := q.Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err != nil {
		if err == iterator.Done {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore VerifyPatient: %w", err)
	}

	var doc patientDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore VerifyPatient decode: %w", err)
	}

	return &domain.Patient{
		ID:          domain.PatientID(snap.Ref.ID),
		FullName:    doc.FullName,
		DateOfBirth: doc.DateOfBirth,
		Phone:       doc.Phone,
		Pharmacy:    doc.Pharmacy,
	}, nil
}

func (s *Store) ListPrescriptions(ctx context.Context, patientID domain.PatientID) ([]domain.Prescription, error) {
	q := s.prescriptionsCol().Where("patient_id", "==", string(patientID))

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []domain.Prescription
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListPrescriptions: %w", err)
		}

		var doc prescriptionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode prescriptionDoc: %w", err)
		}

		out = append(out, domain.Prescription{
			ID:               domain.PrescriptionID(snap.Ref.ID),
			PatientID:        domain.PatientID(doc.PatientID),
			Medication:       doc.Medication,
			Dosage:           doc.Dosage,
			Quantity:         doc.Quantity,
			RefillsRemaining: doc.RefillsRemaining,
			Prescriber:       doc.Prescriber,
			ExpiresAt:        doc.ExpiresAt,
			LastFilledAt:     doc.LastFilledAt,
		})
	}
	return out, nil
}

// DecrementRefill runs the decrement-with-guard inside a transaction so
// two concurrent commits cannot both succeed on the last refill.
func (s *Store) DecrementRefill(ctx context.Context, id domain.PrescriptionID) error {
	ref := s.prescriptionsCol().Doc(string(id))

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return domain.ErrNotFound
			}
			return err
		}

		var doc prescriptionDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if doc.RefillsRemaining <= 0 {
			return domain.ErrConflict
		}

		now := time.Now()
		return tx.Update(ref, []firestore.Update{
			{Path: "refills_remaining", Value: doc.RefillsRemaining - 1},
			{Path: "last_filled_at", Value: now},
		})
	})
	if err == domain.ErrConflict || err == domain.ErrNotFound {
		return err
	}
	if err != nil {
		return fmt.Errorf("firestore DecrementRefill: %w", err)
	}
	return nil
}

func (s *Store) CheckInteractions(ctx context.Context, patientID domain.PatientID, medication string) (domain.InteractionResult, error) {
	rxs, err := s.ListPrescriptions(ctx, patientID)
	if err != nil {
		return domain.InteractionResult{}, fmt.Errorf("firestore CheckInteractions: %w", err)
	}

	current := make([]string, 0, len(rxs))
	for _, rx := range rxs {
		current = append(current, rx.Medication)
	}

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

func (s *Store) RecordRefillEvent(ctx context.Context, ev domain.RefillEvent) error {
	doc := refillEventDoc{
		SessionID:      string(ev.SessionID),
		PatientID:      string(ev.PatientID),
		PrescriptionID: string(ev.PrescriptionID),
		Medication:     ev.Medication,
		Status:         ev.Status,
		Code:           ev.Code,
		Notes:          ev.Notes,
		CreatedAt:      ev.CreatedAt,
	}

	_, _, err := s.refillEventsCol().Add(ctx, doc)
	if err != nil {
		return fmt.Errorf("firestore RecordRefillEvent: %w", err)
	}
	return nil
}

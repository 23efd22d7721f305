package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tkc-cmd/rxvoice/internal/adapters/storage/memory"
	"github.com/tkc-cmd/rxvoice/internal/domain"
)

func seededStore() *memory.PharmacyStore {
	s := memory.NewPharmacyStore()
	memory.Seed(s)
	return s
}

func TestVerifyPatientCaseInsensitive(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	p, err := s.VerifyPatient(ctx, "jane smith", "1975-01-02")
	if err != nil {
		t.Fatalf("VerifyPatient failed: %v", err)
	}
	if p.FullName != "Jane Smith" {
		t.Fatalf("got %q", p.FullName)
	}
}

func TestVerifyPatientExactDOB(t *testing.T) {
	s := seededStore()

	_, err := s.VerifyPatient(context.Background(), "Jane Smith", "1975-01-03")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("wrong DOB should be ErrNotFound, got %v", err)
	}
}

func TestDecrementRefillGuard(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	// rx-4 is seeded with zero refills
	if err := s.DecrementRefill(ctx, "rx-4"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := s.DecrementRefill(ctx, "rx-3"); err != nil {
		t.Fatalf("DecrementRefill failed: %v", err)
	}

	rxs, _ := s.ListPrescriptions(ctx, "p-2")
	for _, rx := range rxs {
		if rx.ID == "rx-3" {
			if rx.RefillsRemaining != 2 {
				t.Fatalf("expected 2 refills remaining, got %d", rx.RefillsRemaining)
			}
			if rx.LastFilledAt == nil {
				t.Fatal("expected last-filled stamp")
			}
		}
	}
}

func TestCheckInteractionsUsesCurrentMeds(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	// p-1 takes lisinopril; ibuprofen against it must warn
	res, err := s.CheckInteractions(ctx, "p-1", "ibuprofen")
	if err != nil {
		t.Fatalf("CheckInteractions failed: %v", err)
	}
	if !res.HasInteractions || res.Warning == "" {
		t.Fatalf("expected an interaction warning, got %+v", res)
	}

	res, err = s.CheckInteractions(ctx, "p-2", "metformin")
	if err != nil {
		t.Fatalf("CheckInteractions failed: %v", err)
	}
	if res.HasInteractions {
		t.Fatalf("expected clean result, got %+v", res)
	}
}

func TestRecordRefillEvent(t *testing.T) {
	s := seededStore()

	ev := domain.RefillEvent{SessionID: "call-1", PatientID: "p-1", Status: "placed"}
	if err := s.RecordRefillEvent(context.Background(), ev); err != nil {
		t.Fatalf("RecordRefillEvent failed: %v", err)
	}
	if got := s.RefillEvents(); len(got) != 1 || got[0].SessionID != "call-1" {
		t.Fatalf("unexpected events: %+v", got)
	}
}

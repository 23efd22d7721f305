package memory

import (
	"time"

	"github.com/tkc-cmd/rxvoice/internal/domain"
)

// Seed loads the demo patients and prescriptions used for local runs.
func Seed(s *PharmacyStore) {
	nextYear := time.Now().AddDate(1, 0, 0)
	lastMonth := time.Now().AddDate(0, -1, 0)

	s.AddPatient(domain.Patient{
		ID: "p-1", FullName: "Jane Smith", DateOfBirth: "1975-01-02",
		Phone: "+15551234567", Pharmacy: "CVS Pharmacy Main St",
	})
	s.AddPatient(domain.Patient{
		ID: "p-2", FullName: "John Doe", DateOfBirth: "1980-06-15",
		Phone: "+15559876543", Pharmacy: "Walgreens Downtown",
	})
	s.AddPatient(domain.Patient{
		ID: "p-3", FullName: "Mary Johnson", DateOfBirth: "1965-03-20",
		Phone: "+15555555555", Pharmacy: "Rite Aid Plaza",
	})
	s.AddPatient(domain.Patient{
		ID: "p-4", FullName: "John Smith", DateOfBirth: "1965-05-15",
		Phone: "+15550001111", Pharmacy: "CVS Pharmacy Main St",
	})

	s.AddPrescription(domain.Prescription{
		ID: "rx-1", PatientID: "p-1", Medication: "atorvastatin", Dosage: "20 mg",
		Quantity: 30, RefillsRemaining: 2, Prescriber: "Dr. Williams", ExpiresAt: nextYear,
	})
	s.AddPrescription(domain.Prescription{
		ID: "rx-2", PatientID: "p-1", Medication: "lisinopril", Dosage: "10 mg",
		Quantity: 30, RefillsRemaining: 1, Prescriber: "Dr. Williams", ExpiresAt: nextYear,
	})
	s.AddPrescription(domain.Prescription{
		ID: "rx-3", PatientID: "p-2", Medication: "metformin", Dosage: "500 mg",
		Quantity: 60, RefillsRemaining: 3, Prescriber: "Dr. Garcia", ExpiresAt: nextYear,
	})
	s.AddPrescription(domain.Prescription{
		ID: "rx-4", PatientID: "p-2", Medication: "sertraline", Dosage: "50 mg",
		Quantity: 30, RefillsRemaining: 0, Prescriber: "Dr. Chen", ExpiresAt: nextYear,
	})
	s.AddPrescription(domain.Prescription{
		ID: "rx-5", PatientID: "p-3", Medication: "amoxicillin", Dosage: "500 mg",
		Quantity: 21, RefillsRemaining: 2, Prescriber: "Dr. Brown", ExpiresAt: lastMonth,
	})
	s.AddPrescription(domain.Prescription{
		ID: "rx-6", PatientID: "p-3", Medication: "ibuprofen", Dosage: "200 mg",
		Quantity: 100, RefillsRemaining: 2, Prescriber: "Dr. Brown", ExpiresAt: nextYear,
	})
	s.AddPrescription(domain.Prescription{
		ID: "rx-7", PatientID: "p-4", Medication: "metformin", Dosage: "500 mg",
		Quantity: 60, RefillsRemaining: 3, Prescriber: "Dr. Garcia", ExpiresAt: nextYear,
	})
}

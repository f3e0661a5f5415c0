package consultation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carenet/carenet/internal/platform/biometric"
)

// PatientDirectory resolves the display fields denormalized onto each record.
type PatientDirectory interface {
	PatientDisplay(ctx context.Context, id uuid.UUID) (name, insuranceNumber string, err error)
}

// ClinicDirectory resolves a clinic's display name.
type ClinicDirectory interface {
	ClinicName(ctx context.Context, id uuid.UUID) (string, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	clinics  ClinicDirectory
	linker   *biometric.Linker
}

func NewService(repo Repository, patients PatientDirectory, clinics ClinicDirectory, linker *biometric.Linker) *Service {
	return &Service{repo: repo, patients: patients, clinics: clinics, linker: linker}
}

// CreateConsultation records a visit. Patient and clinic display fields are
// resolved and frozen onto the row at creation time.
func (s *Service) CreateConsultation(ctx context.Context, con *Consultation) error {
	if con.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if con.ClinicID == uuid.Nil {
		return fmt.Errorf("clinic_id is required")
	}
	if con.Date.IsZero() {
		con.Date = time.Now().UTC()
	}

	name, insuranceNumber, err := s.patients.PatientDisplay(ctx, con.PatientID)
	if err != nil {
		return fmt.Errorf("resolve patient: %w", err)
	}
	con.PatientName = name
	con.InsuranceNumber = insuranceNumber

	clinicName, err := s.clinics.ClinicName(ctx, con.ClinicID)
	if err != nil {
		return fmt.Errorf("resolve clinic: %w", err)
	}
	con.ClinicName = clinicName

	return s.repo.Create(ctx, con)
}

func (s *Service) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateConsultation(ctx context.Context, con *Consultation) error {
	existing, err := s.repo.GetByID(ctx, con.ID)
	if err != nil {
		return fmt.Errorf("consultation not found: %w", err)
	}
	if con.Date.IsZero() {
		con.Date = existing.Date
	}
	return s.repo.Update(ctx, con)
}

func (s *Service) DeleteConsultation(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListConsultations(ctx context.Context, limit, offset int) ([]*Consultation, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	return s.repo.ListByClinic(ctx, clinicID, limit, offset)
}

// ListWindow returns all records with date in [from, to). Used by the
// anomaly scanner.
func (s *Service) ListWindow(ctx context.Context, from, to time.Time) ([]*Consultation, error) {
	return s.repo.ListWindow(ctx, from, to)
}

// RecordBiometricValidation stores the outcome of a fingerprint verification
// for the visit.
func (s *Service) RecordBiometricValidation(ctx context.Context, id uuid.UUID, validated bool) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("consultation not found: %w", err)
	}
	return s.repo.SetBiometricValidation(ctx, id, validated)
}

// VerifyLink returns the scanner deep link that verifies the patient's
// fingerprint for this visit.
func (s *Service) VerifyLink(ctx context.Context, id uuid.UUID) (string, error) {
	con, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("consultation not found: %w", err)
	}
	return s.linker.VerifyLink(con.PatientID, con.ID), nil
}

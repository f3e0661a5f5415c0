package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carenet/carenet/internal/platform/biometric"
	"github.com/carenet/carenet/internal/platform/notification"
)

// EligibilityChecker verifies insurance coverage for an insurance number.
// Implemented by the eligibility service; kept as an interface here so
// enrollment does not depend on that package.
type EligibilityChecker interface {
	CheckCoverage(ctx context.Context, insuranceNumber string) (bool, string, error)
}

type Service struct {
	repo        Repository
	linker      *biometric.Linker
	notifier    *notification.Manager
	eligibility EligibilityChecker
	logger      zerolog.Logger
}

func NewService(repo Repository, linker *biometric.Linker, notifier *notification.Manager, logger zerolog.Logger) *Service {
	return &Service{repo: repo, linker: linker, notifier: notifier, logger: logger}
}

// SetEligibilityChecker attaches an optional coverage checker used during
// enrollment when the caller requests a check.
func (s *Service) SetEligibilityChecker(ec EligibilityChecker) {
	s.eligibility = ec
}

var validBiometricStatuses = map[string]bool{
	BiometricNone:     true,
	BiometricPending:  true,
	BiometricEnrolled: true,
}

// EnrollPatient registers a new patient, generates the scanner deep link for
// fingerprint enrollment, and optionally runs a coverage check. The welcome
// notification is best-effort.
func (s *Service) EnrollPatient(ctx context.Context, p *Patient, checkEligibility bool) (*EnrollmentResult, error) {
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return nil, fmt.Errorf("first_name and last_name are required")
	}
	if p.DateOfBirth.IsZero() {
		return nil, fmt.Errorf("date_of_birth is required")
	}
	if p.DateOfBirth.After(time.Now().UTC()) {
		return nil, fmt.Errorf("date_of_birth cannot be in the future")
	}
	p.InsuranceNumber = strings.TrimSpace(p.InsuranceNumber)
	if p.InsuranceNumber == "" {
		return nil, fmt.Errorf("insurance_number is required")
	}
	if existing, err := s.repo.GetByInsuranceNumber(ctx, p.InsuranceNumber); err == nil && existing != nil {
		return nil, fmt.Errorf("insurance number %s already enrolled", p.InsuranceNumber)
	}

	p.BiometricStatus = BiometricPending
	p.Active = true

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}

	result := &EnrollmentResult{
		Patient:    p,
		EnrollLink: s.linker.EnrollLink(p.ID),
	}

	if checkEligibility && s.eligibility != nil {
		covered, detail, err := s.eligibility.CheckCoverage(ctx, p.InsuranceNumber)
		if err != nil {
			s.logger.Warn().Err(err).Str("patient_id", p.ID.String()).Msg("eligibility check failed during enrollment")
		} else {
			result.Eligibility = &EligibilityResult{Covered: covered, Detail: detail}
		}
	}

	if s.notifier != nil && p.Email != nil && *p.Email != "" {
		_, err := s.notifier.SendFromTemplate(ctx, "enrollment-welcome", map[string]string{
			"patient_name": p.FullName(),
			"clinic_name":  "your clinic",
		}, *p.Email)
		if err != nil {
			s.logger.Warn().Err(err).Str("patient_id", p.ID.String()).Msg("failed to send enrollment welcome")
		}
	}

	return result, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetPatientByInsuranceNumber(ctx context.Context, num string) (*Patient, error) {
	return s.repo.GetByInsuranceNumber(ctx, num)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	existing, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("patient not found: %w", err)
	}
	if p.InsuranceNumber == "" {
		p.InsuranceNumber = existing.InsuranceNumber
	}
	return s.repo.Update(ctx, p)
}

// DeactivatePatient marks the patient inactive. Historical consultations and
// claims keep referencing the row.
func (s *Service) DeactivatePatient(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListPatientsByClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	return s.repo.ListByClinic(ctx, clinicID, limit, offset)
}

func (s *Service) SearchPatients(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.SearchByName(ctx, name, limit, offset)
}

// UpdateBiometricStatus transitions the patient's fingerprint enrollment
// state. Only forward transitions are allowed: none -> pending -> enrolled.
func (s *Service) UpdateBiometricStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validBiometricStatuses[status] {
		return fmt.Errorf("invalid biometric status: %s", status)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("patient not found: %w", err)
	}

	rank := map[string]int{BiometricNone: 0, BiometricPending: 1, BiometricEnrolled: 2}
	if rank[status] < rank[p.BiometricStatus] {
		return fmt.Errorf("cannot move biometric status from %s to %s", p.BiometricStatus, status)
	}

	return s.repo.UpdateBiometricStatus(ctx, id, status)
}

// BiometricEnrollLink regenerates the scanner deep link for a patient whose
// enrollment is still pending.
func (s *Service) BiometricEnrollLink(ctx context.Context, id uuid.UUID) (string, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("patient not found: %w", err)
	}
	if p.BiometricStatus == BiometricEnrolled {
		return "", fmt.Errorf("patient is already enrolled")
	}
	return s.linker.EnrollLink(p.ID), nil
}

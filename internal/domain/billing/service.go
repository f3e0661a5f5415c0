package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carenet/carenet/internal/platform/notification"
)

// PatientDirectory resolves the patient fields frozen onto a claim at
// submission time.
type PatientDirectory interface {
	PatientDisplay(ctx context.Context, id uuid.UUID) (name, insuranceNumber string, err error)
	PatientEmail(ctx context.Context, id uuid.UUID) (string, error)
}

// ClinicDirectory resolves the clinic name frozen onto a claim.
type ClinicDirectory interface {
	ClinicName(ctx context.Context, id uuid.UUID) (string, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	clinics  ClinicDirectory
	notifier *notification.Manager
	logger   zerolog.Logger
}

func NewService(repo Repository, patients PatientDirectory, clinics ClinicDirectory, notifier *notification.Manager, logger zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, clinics: clinics, notifier: notifier, logger: logger}
}

// SubmitClaim creates a new claim in the submitted state. Patient and clinic
// display fields are resolved once and frozen onto the row so later renames do
// not rewrite billing history.
func (s *Service) SubmitClaim(ctx context.Context, cl *Claim) (*Claim, error) {
	if cl.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if cl.ClinicID == uuid.Nil {
		return nil, fmt.Errorf("clinic_id is required")
	}
	if cl.AmountCents <= 0 {
		return nil, fmt.Errorf("amount_cents must be positive")
	}
	cl.Currency = strings.ToUpper(strings.TrimSpace(cl.Currency))
	if cl.Currency == "" {
		cl.Currency = "USD"
	}
	if len(cl.Currency) != 3 {
		return nil, fmt.Errorf("currency must be a 3-letter code")
	}

	name, num, err := s.patients.PatientDisplay(ctx, cl.PatientID)
	if err != nil {
		return nil, fmt.Errorf("patient not found: %w", err)
	}
	clinicName, err := s.clinics.ClinicName(ctx, cl.ClinicID)
	if err != nil {
		return nil, fmt.Errorf("clinic not found: %w", err)
	}
	cl.PatientName = name
	cl.InsuranceNumber = num
	cl.ClinicName = clinicName

	cl.Status = StatusSubmitted
	cl.ClaimNumber = newClaimNumber()

	if err := s.repo.CreateClaim(ctx, cl); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}
	return cl, nil
}

// newClaimNumber produces a human-quotable claim reference.
func newClaimNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return fmt.Sprintf("CLM-%d-%s", time.Now().UTC().Year(), id[:8])
}

func (s *Service) GetClaim(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return s.repo.GetClaimByID(ctx, id)
}

func (s *Service) GetClaimByNumber(ctx context.Context, number string) (*Claim, error) {
	return s.repo.GetClaimByNumber(ctx, number)
}

func (s *Service) ListClaims(ctx context.Context, f ClaimFilter, limit, offset int) ([]*Claim, int, error) {
	return s.repo.ListClaims(ctx, f, limit, offset)
}

// TransitionClaim moves a claim along its lifecycle. Invalid transitions are
// rejected before any write. A claim-status notification goes to the patient
// on a best-effort basis.
func (s *Service) TransitionClaim(ctx context.Context, id uuid.UUID, status string, note *string) (*Claim, error) {
	cl, err := s.repo.GetClaimByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("claim not found: %w", err)
	}
	if !CanTransition(cl.Status, status) {
		return nil, fmt.Errorf("cannot transition claim from %s to %s", cl.Status, status)
	}
	if err := s.repo.UpdateClaimStatus(ctx, id, status, note); err != nil {
		return nil, fmt.Errorf("update claim status: %w", err)
	}
	cl.Status = status
	if note != nil {
		cl.Note = note
	}

	s.notifyStatus(ctx, cl)
	return cl, nil
}

// RecordPayment settles an approved claim and moves it to paid.
func (s *Service) RecordPayment(ctx context.Context, p *Payment) (*Payment, error) {
	cl, err := s.repo.GetClaimByID(ctx, p.ClaimID)
	if err != nil {
		return nil, fmt.Errorf("claim not found: %w", err)
	}
	if cl.Status != StatusApproved {
		return nil, fmt.Errorf("cannot record payment for claim in status %s", cl.Status)
	}
	if p.AmountCents <= 0 {
		return nil, fmt.Errorf("amount_cents must be positive")
	}
	if p.Currency == "" {
		p.Currency = cl.Currency
	}
	if p.Method == "" {
		p.Method = "bank_transfer"
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}

	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	if err := s.repo.UpdateClaimStatus(ctx, p.ClaimID, StatusPaid, nil); err != nil {
		return nil, fmt.Errorf("mark claim paid: %w", err)
	}
	cl.Status = StatusPaid

	s.notifyStatus(ctx, cl)
	return p, nil
}

func (s *Service) ListPayments(ctx context.Context, claimID uuid.UUID) ([]*Payment, error) {
	return s.repo.ListPaymentsByClaim(ctx, claimID)
}

func (s *Service) notifyStatus(ctx context.Context, cl *Claim) {
	if s.notifier == nil {
		return
	}
	email, err := s.patients.PatientEmail(ctx, cl.PatientID)
	if err != nil || email == "" {
		return
	}
	note := ""
	if cl.Note != nil {
		note = *cl.Note
	}
	_, err = s.notifier.SendFromTemplate(ctx, "claim-status", map[string]string{
		"claim_number": cl.ClaimNumber,
		"status":       cl.Status,
		"patient_name": cl.PatientName,
		"date":         time.Now().UTC().Format("2006-01-02"),
		"note":         note,
	}, email)
	if err != nil {
		s.logger.Warn().Err(err).Str("claim_id", cl.ID.String()).Msg("failed to send claim status notification")
	}
}

package eligibility

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Verifier answers whether an insurance number has active coverage. The
// production implementation calls the insurer's registry; tests and dev use
// the format-based verifier below.
type Verifier interface {
	Verify(ctx context.Context, insuranceNumber string) (result string, detail string, err error)
}

// insuranceNumberPattern matches the national scheme's card format.
var insuranceNumberPattern = regexp.MustCompile(`^INS-\d{4,10}$`)

// FormatVerifier decides coverage from the card number format alone. Numbers
// that do not match the scheme format are not covered; well-formed numbers
// are treated as covered. Stands in for the insurer registry in dev.
type FormatVerifier struct{}

func (FormatVerifier) Verify(_ context.Context, insuranceNumber string) (string, string, error) {
	if !insuranceNumberPattern.MatchString(insuranceNumber) {
		return ResultNotCovered, "insurance number does not match the scheme format", nil
	}
	return ResultCovered, "active policy", nil
}

type Service struct {
	repo     Repository
	verifier Verifier
	logger   zerolog.Logger
}

func NewService(repo Repository, verifier Verifier, logger zerolog.Logger) *Service {
	return &Service{repo: repo, verifier: verifier, logger: logger}
}

// RunCheck verifies coverage and records the outcome. The check row is
// written even when the verifier fails, with result unknown.
func (s *Service) RunCheck(ctx context.Context, insuranceNumber string, patientID *uuid.UUID, checkedBy string) (*Check, error) {
	insuranceNumber = strings.TrimSpace(insuranceNumber)
	if insuranceNumber == "" {
		return nil, fmt.Errorf("insurance_number is required")
	}

	ch := &Check{
		PatientID:       patientID,
		InsuranceNumber: insuranceNumber,
		CheckedAt:       time.Now().UTC(),
	}
	if checkedBy != "" {
		ch.CheckedBy = &checkedBy
	}

	result, detail, err := s.verifier.Verify(ctx, insuranceNumber)
	if err != nil {
		s.logger.Warn().Err(err).Str("insurance_number", insuranceNumber).Msg("coverage verification failed")
		ch.Result = ResultUnknown
		msg := err.Error()
		ch.Detail = &msg
	} else {
		ch.Result = result
		if detail != "" {
			ch.Detail = &detail
		}
	}

	if err := s.repo.Create(ctx, ch); err != nil {
		return nil, fmt.Errorf("record eligibility check: %w", err)
	}
	return ch, nil
}

// CheckCoverage satisfies the enrollment-time checker contract used by the
// patient service.
func (s *Service) CheckCoverage(ctx context.Context, insuranceNumber string) (bool, string, error) {
	ch, err := s.RunCheck(ctx, insuranceNumber, nil, "")
	if err != nil {
		return false, "", err
	}
	detail := ""
	if ch.Detail != nil {
		detail = *ch.Detail
	}
	return ch.Result == ResultCovered, detail, nil
}

func (s *Service) GetCheck(ctx context.Context, id uuid.UUID) (*Check, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListChecks(ctx context.Context, limit, offset int) ([]*Check, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListChecksByInsuranceNumber(ctx context.Context, num string, limit, offset int) ([]*Check, int, error) {
	return s.repo.ListByInsuranceNumber(ctx, num, limit, offset)
}

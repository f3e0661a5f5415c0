package eligibility

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock Repository --

type mockRepo struct {
	checks map[uuid.UUID]*Check
}

func newMockRepo() *mockRepo {
	return &mockRepo{checks: make(map[uuid.UUID]*Check)}
}

func (m *mockRepo) Create(_ context.Context, ch *Check) error {
	ch.ID = uuid.New()
	m.checks[ch.ID] = ch
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Check, error) {
	ch, ok := m.checks[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return ch, nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Check, int, error) {
	var result []*Check
	for _, ch := range m.checks {
		result = append(result, ch)
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByInsuranceNumber(_ context.Context, num string, limit, offset int) ([]*Check, int, error) {
	var result []*Check
	for _, ch := range m.checks {
		if ch.InsuranceNumber == num {
			result = append(result, ch)
		}
	}
	return result, len(result), nil
}

// -- Verifier stub --

type failingVerifier struct{}

func (failingVerifier) Verify(_ context.Context, _ string) (string, string, error) {
	return "", "", fmt.Errorf("registry timeout")
}

// -- Tests --

func TestRunCheck_Covered(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, FormatVerifier{}, zerolog.Nop())

	ch, err := svc.RunCheck(context.Background(), "INS-12345", nil, "secretary@clinic.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Result != ResultCovered {
		t.Errorf("result = %q, want %q", ch.Result, ResultCovered)
	}
	if ch.CheckedBy == nil || *ch.CheckedBy != "secretary@clinic.example" {
		t.Error("expected checked_by to be recorded")
	}
	if len(repo.checks) != 1 {
		t.Errorf("expected 1 recorded check, got %d", len(repo.checks))
	}
}

func TestRunCheck_BadFormat(t *testing.T) {
	svc := NewService(newMockRepo(), FormatVerifier{}, zerolog.Nop())

	ch, err := svc.RunCheck(context.Background(), "XYZ-99", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Result != ResultNotCovered {
		t.Errorf("result = %q, want %q", ch.Result, ResultNotCovered)
	}
}

func TestRunCheck_EmptyNumber(t *testing.T) {
	svc := NewService(newMockRepo(), FormatVerifier{}, zerolog.Nop())

	if _, err := svc.RunCheck(context.Background(), "  ", nil, ""); err == nil {
		t.Error("expected error for empty insurance number")
	}
}

func TestRunCheck_VerifierFailureRecordedAsUnknown(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, failingVerifier{}, zerolog.Nop())

	ch, err := svc.RunCheck(context.Background(), "INS-12345", nil, "")
	if err != nil {
		t.Fatalf("check should still be recorded, got %v", err)
	}
	if ch.Result != ResultUnknown {
		t.Errorf("result = %q, want %q", ch.Result, ResultUnknown)
	}
	if ch.Detail == nil || *ch.Detail != "registry timeout" {
		t.Error("expected verifier error captured in detail")
	}
}

func TestCheckCoverage(t *testing.T) {
	svc := NewService(newMockRepo(), FormatVerifier{}, zerolog.Nop())

	covered, detail, err := svc.CheckCoverage(context.Background(), "INS-2024001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !covered {
		t.Error("expected covered = true")
	}
	if detail != "active policy" {
		t.Errorf("detail = %q", detail)
	}

	covered, _, err = svc.CheckCoverage(context.Background(), "bogus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if covered {
		t.Error("expected covered = false for malformed number")
	}
}

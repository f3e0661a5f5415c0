package billing

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carenet/carenet/internal/platform/notification"
)

// -- Mock Repository --

type mockRepo struct {
	claims   map[uuid.UUID]*Claim
	payments map[uuid.UUID][]*Payment
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		claims:   make(map[uuid.UUID]*Claim),
		payments: make(map[uuid.UUID][]*Payment),
	}
}

func (m *mockRepo) CreateClaim(_ context.Context, cl *Claim) error {
	cl.ID = uuid.New()
	cl.CreatedAt = time.Now()
	cl.UpdatedAt = time.Now()
	m.claims[cl.ID] = cl
	return nil
}

func (m *mockRepo) GetClaimByID(_ context.Context, id uuid.UUID) (*Claim, error) {
	cl, ok := m.claims[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return cl, nil
}

func (m *mockRepo) GetClaimByNumber(_ context.Context, number string) (*Claim, error) {
	for _, cl := range m.claims {
		if cl.ClaimNumber == number {
			return cl, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) UpdateClaimStatus(_ context.Context, id uuid.UUID, status string, note *string) error {
	cl, ok := m.claims[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	cl.Status = status
	if note != nil {
		cl.Note = note
	}
	return nil
}

func (m *mockRepo) ListClaims(_ context.Context, f ClaimFilter, limit, offset int) ([]*Claim, int, error) {
	var result []*Claim
	for _, cl := range m.claims {
		if f.Status != "" && cl.Status != f.Status {
			continue
		}
		if f.ClinicID != uuid.Nil && cl.ClinicID != f.ClinicID {
			continue
		}
		result = append(result, cl)
	}
	return result, len(result), nil
}

func (m *mockRepo) CreatePayment(_ context.Context, p *Payment) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.payments[p.ClaimID] = append(m.payments[p.ClaimID], p)
	return nil
}

func (m *mockRepo) ListPaymentsByClaim(_ context.Context, claimID uuid.UUID) ([]*Payment, error) {
	return m.payments[claimID], nil
}

// -- Directory stubs --

type stubPatients struct{}

func (stubPatients) PatientDisplay(_ context.Context, id uuid.UUID) (string, string, error) {
	return "Kwame Mensah", "INS-2044", nil
}

func (stubPatients) PatientEmail(_ context.Context, id uuid.UUID) (string, error) {
	return "kwame@example.com", nil
}

type stubClinics struct{}

func (stubClinics) ClinicName(_ context.Context, id uuid.UUID) (string, error) {
	return "Harbour Clinic", nil
}

func newTestService(repo Repository, email *notification.MockEmailSender) *Service {
	var notifier *notification.Manager
	if email != nil {
		notifier = notification.NewManager(email, &notification.MockSMSSender{}, nil, notification.NewTemplateEngine(), zerolog.Nop())
	}
	return NewService(repo, stubPatients{}, stubClinics{}, notifier, zerolog.Nop())
}

// -- Tests --

func TestSubmitClaim(t *testing.T) {
	svc := newTestService(newMockRepo(), nil)

	cl, err := svc.SubmitClaim(context.Background(), &Claim{
		PatientID:   uuid.New(),
		ClinicID:    uuid.New(),
		AmountCents: 12500,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cl.Status != StatusSubmitted {
		t.Errorf("status = %q, want %q", cl.Status, StatusSubmitted)
	}
	if !strings.HasPrefix(cl.ClaimNumber, "CLM-") {
		t.Errorf("claim number = %q", cl.ClaimNumber)
	}
	if cl.PatientName != "Kwame Mensah" || cl.InsuranceNumber != "INS-2044" {
		t.Errorf("patient fields not frozen: %q %q", cl.PatientName, cl.InsuranceNumber)
	}
	if cl.ClinicName != "Harbour Clinic" {
		t.Errorf("clinic name = %q", cl.ClinicName)
	}
	if cl.Currency != "USD" {
		t.Errorf("currency default = %q, want USD", cl.Currency)
	}
}

func TestSubmitClaim_Validation(t *testing.T) {
	svc := newTestService(newMockRepo(), nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		claim Claim
	}{
		{"missing patient", Claim{ClinicID: uuid.New(), AmountCents: 100}},
		{"missing clinic", Claim{PatientID: uuid.New(), AmountCents: 100}},
		{"zero amount", Claim{PatientID: uuid.New(), ClinicID: uuid.New()}},
		{"negative amount", Claim{PatientID: uuid.New(), ClinicID: uuid.New(), AmountCents: -5}},
		{"bad currency", Claim{PatientID: uuid.New(), ClinicID: uuid.New(), AmountCents: 100, Currency: "DOLLARS"}},
	}
	for _, tc := range cases {
		if _, err := svc.SubmitClaim(ctx, &tc.claim); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestTransitionClaim_Lifecycle(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	cl, _ := svc.SubmitClaim(ctx, &Claim{PatientID: uuid.New(), ClinicID: uuid.New(), AmountCents: 5000})

	// submitted -> approved skips review and must be rejected
	if _, err := svc.TransitionClaim(ctx, cl.ID, StatusApproved, nil); err == nil {
		t.Error("expected error for submitted -> approved")
	}

	if _, err := svc.TransitionClaim(ctx, cl.ID, StatusInReview, nil); err != nil {
		t.Fatalf("submitted -> in_review: %v", err)
	}
	note := "documentation verified"
	got, err := svc.TransitionClaim(ctx, cl.ID, StatusApproved, &note)
	if err != nil {
		t.Fatalf("in_review -> approved: %v", err)
	}
	if got.Status != StatusApproved {
		t.Errorf("status = %q", got.Status)
	}
	if got.Note == nil || *got.Note != note {
		t.Error("note not recorded")
	}

	// approved claims cannot be re-reviewed
	if _, err := svc.TransitionClaim(ctx, cl.ID, StatusInReview, nil); err == nil {
		t.Error("expected error for approved -> in_review")
	}
}

func TestTransitionClaim_RejectedIsTerminal(t *testing.T) {
	svc := newTestService(newMockRepo(), nil)
	ctx := context.Background()

	cl, _ := svc.SubmitClaim(ctx, &Claim{PatientID: uuid.New(), ClinicID: uuid.New(), AmountCents: 5000})
	_, _ = svc.TransitionClaim(ctx, cl.ID, StatusInReview, nil)
	if _, err := svc.TransitionClaim(ctx, cl.ID, StatusRejected, nil); err != nil {
		t.Fatalf("in_review -> rejected: %v", err)
	}
	for _, next := range []string{StatusSubmitted, StatusInReview, StatusApproved, StatusPaid} {
		if _, err := svc.TransitionClaim(ctx, cl.ID, next, nil); err == nil {
			t.Errorf("expected error for rejected -> %s", next)
		}
	}
}

func TestTransitionClaim_SendsNotification(t *testing.T) {
	email := &notification.MockEmailSender{}
	svc := newTestService(newMockRepo(), email)
	ctx := context.Background()

	cl, _ := svc.SubmitClaim(ctx, &Claim{PatientID: uuid.New(), ClinicID: uuid.New(), AmountCents: 5000})
	if _, err := svc.TransitionClaim(ctx, cl.ID, StatusInReview, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := email.Calls()
	if len(calls) != 1 {
		t.Fatalf("email calls = %d, want 1", len(calls))
	}
	if calls[0].To != "kwame@example.com" {
		t.Errorf("to = %q", calls[0].To)
	}
	if !strings.Contains(calls[0].Subject, cl.ClaimNumber) || !strings.Contains(calls[0].Subject, StatusInReview) {
		t.Errorf("subject = %q", calls[0].Subject)
	}
}

func TestRecordPayment(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	cl, _ := svc.SubmitClaim(ctx, &Claim{PatientID: uuid.New(), ClinicID: uuid.New(), AmountCents: 5000, Currency: "GHS"})

	// payments require an approved claim
	if _, err := svc.RecordPayment(ctx, &Payment{ClaimID: cl.ID, AmountCents: 5000}); err == nil {
		t.Error("expected error for payment against submitted claim")
	}

	_, _ = svc.TransitionClaim(ctx, cl.ID, StatusInReview, nil)
	_, _ = svc.TransitionClaim(ctx, cl.ID, StatusApproved, nil)

	p, err := svc.RecordPayment(ctx, &Payment{ClaimID: cl.ID, AmountCents: 5000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Currency != "GHS" {
		t.Errorf("payment currency = %q, want inherited GHS", p.Currency)
	}
	if p.PaidAt.IsZero() {
		t.Error("paid_at should default to now")
	}

	got, _ := repo.GetClaimByID(ctx, cl.ID)
	if got.Status != StatusPaid {
		t.Errorf("claim status = %q, want %q", got.Status, StatusPaid)
	}

	// paid claims take no further payments
	if _, err := svc.RecordPayment(ctx, &Payment{ClaimID: cl.ID, AmountCents: 100}); err == nil {
		t.Error("expected error for payment against paid claim")
	}
}

func TestCanTransition(t *testing.T) {
	valid := [][2]string{
		{StatusSubmitted, StatusInReview},
		{StatusInReview, StatusApproved},
		{StatusInReview, StatusRejected},
		{StatusApproved, StatusPaid},
	}
	for _, tr := range valid {
		if !CanTransition(tr[0], tr[1]) {
			t.Errorf("CanTransition(%s, %s) = false, want true", tr[0], tr[1])
		}
	}
	invalid := [][2]string{
		{StatusSubmitted, StatusApproved},
		{StatusSubmitted, StatusPaid},
		{StatusApproved, StatusRejected},
		{StatusPaid, StatusInReview},
		{StatusRejected, StatusApproved},
	}
	for _, tr := range invalid {
		if CanTransition(tr[0], tr[1]) {
			t.Errorf("CanTransition(%s, %s) = true, want false", tr[0], tr[1])
		}
	}
}

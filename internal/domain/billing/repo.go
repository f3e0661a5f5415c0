package billing

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateClaim(ctx context.Context, cl *Claim) error
	GetClaimByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	GetClaimByNumber(ctx context.Context, number string) (*Claim, error)
	UpdateClaimStatus(ctx context.Context, id uuid.UUID, status string, note *string) error
	ListClaims(ctx context.Context, f ClaimFilter, limit, offset int) ([]*Claim, int, error)

	CreatePayment(ctx context.Context, p *Payment) error
	ListPaymentsByClaim(ctx context.Context, claimID uuid.UUID) ([]*Payment, error)
}

// ClaimFilter narrows claim listings. Zero values mean no constraint.
type ClaimFilter struct {
	Status          string
	ClinicID        uuid.UUID
	PatientID       uuid.UUID
	InsuranceNumber string
}

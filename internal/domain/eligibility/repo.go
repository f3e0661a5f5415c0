package eligibility

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, ch *Check) error
	GetByID(ctx context.Context, id uuid.UUID) (*Check, error)
	List(ctx context.Context, limit, offset int) ([]*Check, int, error)
	ListByInsuranceNumber(ctx context.Context, num string, limit, offset int) ([]*Check, int, error)
}

package anomaly

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, a *Alert) error
	List(ctx context.Context, limit, offset int) ([]*Alert, int, error)
	ListByType(ctx context.Context, t AlertType, limit, offset int) ([]*Alert, int, error)
}

package eligibility

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carenet/carenet/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const checkCols = `id, patient_id, insurance_number, result, detail, checked_by, checked_at`

func (r *repoPG) Create(ctx context.Context, ch *Check) error {
	ch.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO eligibility_check (id, patient_id, insurance_number, result, detail, checked_by)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		ch.ID, ch.PatientID, ch.InsuranceNumber, ch.Result, ch.Detail, ch.CheckedBy,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Check, error) {
	return scanCheck(r.conn(ctx).QueryRow(ctx, `SELECT `+checkCols+` FROM eligibility_check WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Check, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM eligibility_check`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+checkCols+` FROM eligibility_check ORDER BY checked_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectChecks(rows, total)
}

func (r *repoPG) ListByInsuranceNumber(ctx context.Context, num string, limit, offset int) ([]*Check, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM eligibility_check WHERE insurance_number = $1`, num).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+checkCols+` FROM eligibility_check WHERE insurance_number = $1 ORDER BY checked_at DESC LIMIT $2 OFFSET $3`,
		num, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectChecks(rows, total)
}

func scanCheck(row pgx.Row) (*Check, error) {
	var ch Check
	err := row.Scan(&ch.ID, &ch.PatientID, &ch.InsuranceNumber, &ch.Result, &ch.Detail, &ch.CheckedBy, &ch.CheckedAt)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func collectChecks(rows pgx.Rows, total int) ([]*Check, int, error) {
	var checks []*Check
	for rows.Next() {
		var ch Check
		if err := rows.Scan(&ch.ID, &ch.PatientID, &ch.InsuranceNumber, &ch.Result, &ch.Detail, &ch.CheckedBy, &ch.CheckedAt); err != nil {
			return nil, 0, err
		}
		checks = append(checks, &ch)
	}
	return checks, total, nil
}

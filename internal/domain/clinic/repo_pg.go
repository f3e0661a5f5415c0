package clinic

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

const clinicCols = `id, name, code, address, city, region, phone, email, active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, cl *Clinic) error {
	cl.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinic (id, name, code, address, city, region, phone, email, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		cl.ID, cl.Name, cl.Code, cl.Address, cl.City, cl.Region, cl.Phone, cl.Email, cl.Active,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return scanClinic(r.conn(ctx).QueryRow(ctx, `SELECT `+clinicCols+` FROM clinic WHERE id = $1`, id))
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*Clinic, error) {
	return scanClinic(r.conn(ctx).QueryRow(ctx, `SELECT `+clinicCols+` FROM clinic WHERE code = $1`, code))
}

func (r *repoPG) Update(ctx context.Context, cl *Clinic) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinic SET
			name=$2, code=$3, address=$4, city=$5, region=$6,
			phone=$7, email=$8, active=$9, updated_at=NOW()
		WHERE id = $1`,
		cl.ID, cl.Name, cl.Code, cl.Address, cl.City, cl.Region, cl.Phone, cl.Email, cl.Active,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE clinic SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Clinic, int, error) {
	where := ``
	if activeOnly {
		where = ` WHERE active`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinic`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+clinicCols+` FROM clinic`+where+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var clinics []*Clinic
	for rows.Next() {
		var cl Clinic
		if err := rows.Scan(&cl.ID, &cl.Name, &cl.Code, &cl.Address, &cl.City, &cl.Region, &cl.Phone, &cl.Email, &cl.Active, &cl.CreatedAt, &cl.UpdatedAt); err != nil {
			return nil, 0, err
		}
		clinics = append(clinics, &cl)
	}
	return clinics, total, nil
}

func scanClinic(row pgx.Row) (*Clinic, error) {
	var cl Clinic
	err := row.Scan(&cl.ID, &cl.Name, &cl.Code, &cl.Address, &cl.City, &cl.Region, &cl.Phone, &cl.Email, &cl.Active, &cl.CreatedAt, &cl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

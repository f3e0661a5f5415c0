package billing

import (
	"context"
	"fmt"

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

const claimCols = `id, claim_number, patient_id, patient_name, insurance_number, clinic_id, clinic_name,
	consultation_id, amount_cents, currency, status, note, submitted_by, created_at, updated_at`

const paymentCols = `id, claim_id, amount_cents, currency, method, reference, paid_at, created_at`

func (r *repoPG) CreateClaim(ctx context.Context, cl *Claim) error {
	cl.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO claim (id, claim_number, patient_id, patient_name, insurance_number,
			clinic_id, clinic_name, consultation_id, amount_cents, currency, status, note, submitted_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		cl.ID, cl.ClaimNumber, cl.PatientID, cl.PatientName, cl.InsuranceNumber,
		cl.ClinicID, cl.ClinicName, cl.ConsultationID, cl.AmountCents, cl.Currency, cl.Status, cl.Note, cl.SubmittedBy,
	)
	return err
}

func (r *repoPG) GetClaimByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return scanClaim(r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM claim WHERE id = $1`, id))
}

func (r *repoPG) GetClaimByNumber(ctx context.Context, number string) (*Claim, error) {
	return scanClaim(r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM claim WHERE claim_number = $1`, number))
}

func (r *repoPG) UpdateClaimStatus(ctx context.Context, id uuid.UUID, status string, note *string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE claim SET status = $2, note = COALESCE($3, note), updated_at = NOW()
		WHERE id = $1`,
		id, status, note,
	)
	return err
}

func (r *repoPG) ListClaims(ctx context.Context, f ClaimFilter, limit, offset int) ([]*Claim, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if f.ClinicID != uuid.Nil {
		args = append(args, f.ClinicID)
		where += fmt.Sprintf(` AND clinic_id = $%d`, len(args))
	}
	if f.PatientID != uuid.Nil {
		args = append(args, f.PatientID)
		where += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	if f.InsuranceNumber != "" {
		args = append(args, f.InsuranceNumber)
		where += fmt.Sprintf(` AND insurance_number = $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claim`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT `+claimCols+` FROM claim`+where+` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var claims []*Claim
	for rows.Next() {
		cl, err := scanClaimRows(rows)
		if err != nil {
			return nil, 0, err
		}
		claims = append(claims, cl)
	}
	return claims, total, nil
}

func (r *repoPG) CreatePayment(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payment (id, claim_id, amount_cents, currency, method, reference, paid_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.ClaimID, p.AmountCents, p.Currency, p.Method, p.Reference, p.PaidAt,
	)
	return err
}

func (r *repoPG) ListPaymentsByClaim(ctx context.Context, claimID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+paymentCols+` FROM payment WHERE claim_id = $1 ORDER BY paid_at`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.ClaimID, &p.AmountCents, &p.Currency, &p.Method, &p.Reference, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, nil
}

func scanClaim(row pgx.Row) (*Claim, error) {
	var cl Claim
	err := row.Scan(&cl.ID, &cl.ClaimNumber, &cl.PatientID, &cl.PatientName, &cl.InsuranceNumber,
		&cl.ClinicID, &cl.ClinicName, &cl.ConsultationID, &cl.AmountCents, &cl.Currency,
		&cl.Status, &cl.Note, &cl.SubmittedBy, &cl.CreatedAt, &cl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

func scanClaimRows(rows pgx.Rows) (*Claim, error) {
	var cl Claim
	err := rows.Scan(&cl.ID, &cl.ClaimNumber, &cl.PatientID, &cl.PatientName, &cl.InsuranceNumber,
		&cl.ClinicID, &cl.ClinicName, &cl.ConsultationID, &cl.AmountCents, &cl.Currency,
		&cl.Status, &cl.Note, &cl.SubmittedBy, &cl.CreatedAt, &cl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

package consultation

import (
	"context"
	"time"

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

const conCols = `id, patient_id, patient_name, insurance_number, clinic_id, clinic_name,
	doctor_id, doctor_name, date, diagnosis, notes, biometric_validation, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, con *Consultation) error {
	con.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO consultation (
			id, patient_id, patient_name, insurance_number, clinic_id, clinic_name,
			doctor_id, doctor_name, date, diagnosis, notes, biometric_validation
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		con.ID, con.PatientID, con.PatientName, con.InsuranceNumber, con.ClinicID, con.ClinicName,
		con.DoctorID, con.DoctorName, con.Date, con.Diagnosis, con.Notes, con.BiometricValidation,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return scanCon(r.conn(ctx).QueryRow(ctx, `SELECT `+conCols+` FROM consultation WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, con *Consultation) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE consultation SET
			doctor_id=$2, doctor_name=$3, date=$4, diagnosis=$5, notes=$6,
			biometric_validation=$7, updated_at=NOW()
		WHERE id = $1`,
		con.ID, con.DoctorID, con.DoctorName, con.Date, con.Diagnosis, con.Notes,
		con.BiometricValidation,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM consultation WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Consultation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM consultation`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+conCols+` FROM consultation ORDER BY date DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectCons(rows, total)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM consultation WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+conCols+` FROM consultation WHERE patient_id = $1 ORDER BY date DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectCons(rows, total)
}

func (r *repoPG) ListByClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM consultation WHERE clinic_id = $1`, clinicID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+conCols+` FROM consultation WHERE clinic_id = $1 ORDER BY date DESC LIMIT $2 OFFSET $3`,
		clinicID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectCons(rows, total)
}

func (r *repoPG) ListWindow(ctx context.Context, from, to time.Time) ([]*Consultation, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+conCols+` FROM consultation WHERE date >= $1 AND date < $2 ORDER BY patient_id, date`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cons, _, err := collectCons(rows, 0)
	return cons, err
}

func (r *repoPG) SetBiometricValidation(ctx context.Context, id uuid.UUID, validated bool) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE consultation SET biometric_validation = $2, updated_at = NOW() WHERE id = $1`,
		id, validated)
	return err
}

func scanCon(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(
		&c.ID, &c.PatientID, &c.PatientName, &c.InsuranceNumber, &c.ClinicID, &c.ClinicName,
		&c.DoctorID, &c.DoctorName, &c.Date, &c.Diagnosis, &c.Notes, &c.BiometricValidation,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectCons(rows pgx.Rows, total int) ([]*Consultation, int, error) {
	var cons []*Consultation
	for rows.Next() {
		var c Consultation
		err := rows.Scan(
			&c.ID, &c.PatientID, &c.PatientName, &c.InsuranceNumber, &c.ClinicID, &c.ClinicName,
			&c.DoctorID, &c.DoctorName, &c.Date, &c.Diagnosis, &c.Notes, &c.BiometricValidation,
			&c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		cons = append(cons, &c)
	}
	return cons, total, nil
}

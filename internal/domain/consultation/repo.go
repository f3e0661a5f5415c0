package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, con *Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	Update(ctx context.Context, con *Consultation) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Consultation, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error)
	ListByClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*Consultation, int, error)
	// ListWindow returns every consultation with date in [from, to),
	// ordered by patient then date. The anomaly scanner reads through this.
	ListWindow(ctx context.Context, from, to time.Time) ([]*Consultation, error)
	SetBiometricValidation(ctx context.Context, id uuid.UUID, validated bool) error
}

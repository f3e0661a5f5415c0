package consultation

import (
	"time"

	"github.com/google/uuid"
)

// Consultation maps to the consultation table. Patient and clinic display
// fields are denormalized at creation time so record lists and anomaly scans
// do not need joins.
type Consultation struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	PatientID           uuid.UUID  `db:"patient_id" json:"patient_id"`
	PatientName         string     `db:"patient_name" json:"patient_name"`
	InsuranceNumber     string     `db:"insurance_number" json:"insurance_number"`
	ClinicID            uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	ClinicName          string     `db:"clinic_name" json:"clinic_name"`
	DoctorID            *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	DoctorName          *string    `db:"doctor_name" json:"doctor_name,omitempty"`
	Date                time.Time  `db:"date" json:"date"`
	Diagnosis           *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	Notes               *string    `db:"notes" json:"notes,omitempty"`
	BiometricValidation *bool      `db:"biometric_validation" json:"biometric_validation"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

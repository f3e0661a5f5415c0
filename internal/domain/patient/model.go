package patient

import (
	"time"

	"github.com/google/uuid"
)

// Biometric enrollment states for a patient.
const (
	BiometricNone     = "none"
	BiometricPending  = "pending"
	BiometricEnrolled = "enrolled"
)

// Patient maps to the patient table.
type Patient struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	FirstName           string     `db:"first_name" json:"first_name"`
	LastName            string     `db:"last_name" json:"last_name"`
	DateOfBirth         time.Time  `db:"date_of_birth" json:"date_of_birth"`
	Gender              *string    `db:"gender" json:"gender,omitempty"`
	Phone               *string    `db:"phone" json:"phone,omitempty"`
	Email               *string    `db:"email" json:"email,omitempty"`
	InsuranceNumber     string     `db:"insurance_number" json:"insurance_number"`
	InsurerName         *string    `db:"insurer_name" json:"insurer_name,omitempty"`
	HomeClinicID        *uuid.UUID `db:"home_clinic_id" json:"home_clinic_id,omitempty"`
	BiometricStatus     string     `db:"biometric_status" json:"biometric_status"`
	BiometricEnrolledAt *time.Time `db:"biometric_enrolled_at" json:"biometric_enrolled_at,omitempty"`
	Active              bool       `db:"active" json:"active"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns the patient's display name.
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// EligibilityResult summarizes an optional coverage check run at enrollment.
type EligibilityResult struct {
	Covered bool   `json:"covered"`
	Detail  string `json:"detail,omitempty"`
}

// EnrollmentResult is returned after a successful enrollment.
type EnrollmentResult struct {
	Patient     *Patient           `json:"patient"`
	EnrollLink  string             `json:"enroll_link"`
	Eligibility *EligibilityResult `json:"eligibility,omitempty"`
}

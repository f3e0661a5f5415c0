package eligibility

import (
	"time"

	"github.com/google/uuid"
)

// Coverage check outcomes.
const (
	ResultCovered    = "covered"
	ResultNotCovered = "not_covered"
	ResultUnknown    = "unknown"
)

// Check maps to the eligibility_check table. Every coverage lookup is
// recorded, successful or not, so insurers can audit who asked what and when.
type Check struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	InsuranceNumber string     `db:"insurance_number" json:"insurance_number"`
	Result          string     `db:"result" json:"result"`
	Detail          *string    `db:"detail" json:"detail,omitempty"`
	CheckedBy       *string    `db:"checked_by" json:"checked_by,omitempty"`
	CheckedAt       time.Time  `db:"checked_at" json:"checked_at"`
}

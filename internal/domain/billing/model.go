package billing

import (
	"time"

	"github.com/google/uuid"
)

// Claim lifecycle states.
const (
	StatusSubmitted = "submitted"
	StatusInReview  = "in_review"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusPaid      = "paid"
)

// Claim maps to the claim table. A claim is a clinic's request for
// reimbursement of one consultation.
type Claim struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ClaimNumber     string     `db:"claim_number" json:"claim_number"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	PatientName     string     `db:"patient_name" json:"patient_name"`
	InsuranceNumber string     `db:"insurance_number" json:"insurance_number"`
	ClinicID        uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	ClinicName      string     `db:"clinic_name" json:"clinic_name"`
	ConsultationID  *uuid.UUID `db:"consultation_id" json:"consultation_id,omitempty"`
	AmountCents     int64      `db:"amount_cents" json:"amount_cents"`
	Currency        string     `db:"currency" json:"currency"`
	Status          string     `db:"status" json:"status"`
	Note            *string    `db:"note" json:"note,omitempty"`
	SubmittedBy     *string    `db:"submitted_by" json:"submitted_by,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Payment maps to the payment table. One claim can settle across several
// payments.
type Payment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ClaimID     uuid.UUID `db:"claim_id" json:"claim_id"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	Currency    string    `db:"currency" json:"currency"`
	Method      string    `db:"method" json:"method"`
	Reference   *string   `db:"reference" json:"reference,omitempty"`
	PaidAt      time.Time `db:"paid_at" json:"paid_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// validTransitions encodes the claim state machine.
var validTransitions = map[string][]string{
	StatusSubmitted: {StatusInReview},
	StatusInReview:  {StatusApproved, StatusRejected},
	StatusApproved:  {StatusPaid},
	StatusRejected:  {},
	StatusPaid:      {},
}

// CanTransition reports whether a claim may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

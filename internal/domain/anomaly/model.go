package anomaly

import (
	"time"

	"github.com/google/uuid"
)

// AlertType is the closed set of conditions the scanner detects.
type AlertType string

const (
	TypeMultiClinicSameDay AlertType = "multi_clinic_same_day"
	TypeMissingBiometric   AlertType = "missing_biometric"
	TypeRapidSuccession    AlertType = "rapid_succession"
	TypeUnusualVolume      AlertType = "unusual_volume"
)

// Severity of an alert.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// severityFor maps each alert type to its fixed severity.
func severityFor(t AlertType) Severity {
	if t == TypeMissingBiometric {
		return SeverityError
	}
	return SeverityWarning
}

// Alert maps to the anomaly_alert table. ConsultationID is nil only for
// volume alerts, which are clinic-level rather than record-level.
type Alert struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Type           AlertType  `db:"alert_type" json:"type"`
	Severity       Severity   `db:"severity" json:"severity"`
	Message        string     `db:"message" json:"message"`
	ConsultationID *uuid.UUID `db:"consultation_id" json:"consultation_id,omitempty"`
	ClinicID       *uuid.UUID `db:"clinic_id" json:"clinic_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// ScanResult is the ordered list of alerts produced by one scan invocation.
type ScanResult struct {
	Alerts []Alert `json:"alerts"`
	Count  int     `json:"count"`
}

// ScanConfig carries the scanner thresholds. Values are injected at
// construction time so tests can substitute them.
type ScanConfig struct {
	WindowDays            int
	RapidSuccessionMin    int
	VolumeThresholdPerDay int
}

// DefaultScanConfig returns the production thresholds.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		WindowDays:            7,
		RapidSuccessionMin:    15,
		VolumeThresholdPerDay: 20,
	}
}

// Record is the read-only consultation snapshot the scanner consumes.
// Display fields are denormalized so alert messages need no lookups.
type Record struct {
	ID                  uuid.UUID
	PatientID           uuid.UUID
	PatientName         string
	InsuranceNumber     string
	ClinicID            uuid.UUID
	ClinicName          string
	CreatedAt           time.Time
	BiometricValidation *bool
}

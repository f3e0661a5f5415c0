package anomaly

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

var testBase = time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

func boolPtr(b bool) *bool { return &b }

func record(patientID, clinicID uuid.UUID, at time.Time, validated *bool) Record {
	return Record{
		ID:                  uuid.New(),
		PatientID:           patientID,
		PatientName:         "Ama Owusu",
		InsuranceNumber:     "INS-1001",
		ClinicID:            clinicID,
		ClinicName:          "Clinic " + clinicID.String()[:4],
		CreatedAt:           at,
		BiometricValidation: validated,
	}
}

func alertsOfType(result ScanResult, t AlertType) []Alert {
	var out []Alert
	for _, a := range result.Alerts {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

func TestMultiClinic_ThreeClinicsOneAlert(t *testing.T) {
	patient := uuid.New()
	clinicA, clinicB, clinicC := uuid.New(), uuid.New(), uuid.New()

	recA := record(patient, clinicA, testBase, boolPtr(true))
	recB := record(patient, clinicB, testBase.Add(time.Hour), boolPtr(true))
	recC := record(patient, clinicC, testBase.Add(2*time.Hour), boolPtr(true))

	result := ComputeAlerts([]Record{recA, recB, recC}, DefaultScanConfig())

	got := alertsOfType(result, TypeMultiClinicSameDay)
	if len(got) != 1 {
		t.Fatalf("multi-clinic alerts = %d, want 1 (third clinic must not re-trigger)", len(got))
	}
	if got[0].ConsultationID == nil || *got[0].ConsultationID != recB.ID {
		t.Error("alert should reference the first cross-clinic record")
	}
	if got[0].Severity != SeverityWarning {
		t.Errorf("severity = %q, want warning", got[0].Severity)
	}
}

func TestMultiClinic_SameClinicNoAlert(t *testing.T) {
	patient := uuid.New()
	clinic := uuid.New()

	result := ComputeAlerts([]Record{
		record(patient, clinic, testBase, boolPtr(true)),
		record(patient, clinic, testBase.Add(time.Hour), boolPtr(true)),
	}, DefaultScanConfig())

	if got := alertsOfType(result, TypeMultiClinicSameDay); len(got) != 0 {
		t.Errorf("multi-clinic alerts = %d, want 0 for repeat visits to one clinic", len(got))
	}
}

func TestMultiClinic_DifferentDaysNoAlert(t *testing.T) {
	patient := uuid.New()
	clinicA, clinicB := uuid.New(), uuid.New()

	result := ComputeAlerts([]Record{
		record(patient, clinicA, testBase, boolPtr(true)),
		record(patient, clinicB, testBase.Add(24*time.Hour), boolPtr(true)),
	}, DefaultScanConfig())

	if got := alertsOfType(result, TypeMultiClinicSameDay); len(got) != 0 {
		t.Errorf("multi-clinic alerts = %d, want 0 across calendar days", len(got))
	}
}

func TestMissingBiometric(t *testing.T) {
	patient := uuid.New()
	clinic := uuid.New()

	cases := []struct {
		name      string
		validated *bool
		want      int
	}{
		{"nil flag", nil, 1},
		{"false flag", boolPtr(false), 1},
		{"true flag", boolPtr(true), 0},
	}
	for _, tc := range cases {
		result := ComputeAlerts([]Record{record(patient, clinic, testBase, tc.validated)}, DefaultScanConfig())
		got := alertsOfType(result, TypeMissingBiometric)
		if len(got) != tc.want {
			t.Errorf("%s: missing-biometric alerts = %d, want %d", tc.name, len(got), tc.want)
		}
		for _, a := range got {
			if a.Severity != SeverityError {
				t.Errorf("%s: severity = %q, want error", tc.name, a.Severity)
			}
			if a.ConsultationID == nil {
				t.Errorf("%s: alert must reference the record", tc.name)
			}
		}
	}
}

func TestRapidSuccession_AdjacentPairs(t *testing.T) {
	patient := uuid.New()
	clinic := uuid.New()

	// offsets 0, 10, 24: gaps of 10 and 14 minutes, both under 15
	var records []Record
	for _, offset := range []time.Duration{0, 10 * time.Minute, 24 * time.Minute} {
		records = append(records, record(patient, clinic, testBase.Add(offset), boolPtr(true)))
	}

	result := ComputeAlerts(records, DefaultScanConfig())
	got := alertsOfType(result, TypeRapidSuccession)
	if len(got) != 2 {
		t.Fatalf("rapid-succession alerts = %d, want 2 (one per close adjacent pair)", len(got))
	}
	if *got[0].ConsultationID != records[1].ID || *got[1].ConsultationID != records[2].ID {
		t.Error("alerts should reference the later record of each pair")
	}
}

func TestRapidSuccession_ExactThresholdDoesNotFire(t *testing.T) {
	patient := uuid.New()
	clinic := uuid.New()

	result := ComputeAlerts([]Record{
		record(patient, clinic, testBase, boolPtr(true)),
		record(patient, clinic, testBase.Add(15*time.Minute), boolPtr(true)),
	}, DefaultScanConfig())

	if got := alertsOfType(result, TypeRapidSuccession); len(got) != 0 {
		t.Errorf("rapid-succession alerts = %d, want 0 at exactly 15 minutes", len(got))
	}
}

func TestRapidSuccession_SeparatePatientsNotPaired(t *testing.T) {
	clinic := uuid.New()

	// close in time but different patients: rule 3 must not pair them
	result := ComputeAlerts([]Record{
		record(uuid.New(), clinic, testBase, boolPtr(true)),
		record(uuid.New(), clinic, testBase.Add(5*time.Minute), boolPtr(true)),
	}, DefaultScanConfig())

	if got := alertsOfType(result, TypeRapidSuccession); len(got) != 0 {
		t.Errorf("rapid-succession alerts = %d, want 0 across patients", len(got))
	}
}

func TestRapidSuccession_FiresAcrossClinics(t *testing.T) {
	patient := uuid.New()
	clinicA, clinicB := uuid.New(), uuid.New()

	result := ComputeAlerts([]Record{
		record(patient, clinicA, testBase, boolPtr(true)),
		record(patient, clinicB, testBase.Add(8*time.Minute), boolPtr(true)),
	}, DefaultScanConfig())

	if got := alertsOfType(result, TypeRapidSuccession); len(got) != 1 {
		t.Errorf("rapid-succession alerts = %d, want 1 for the same patient at two clinics", len(got))
	}
}

func TestUnusualVolume_ThresholdBoundary(t *testing.T) {
	clinic := uuid.New()

	makeRecords := func(n int) []Record {
		records := make([]Record, 0, n)
		for i := 0; i < n; i++ {
			// spread over the week, hours apart, to keep rule 3 quiet
			records = append(records, record(uuid.New(), clinic, testBase.Add(time.Duration(i)*time.Hour), boolPtr(true)))
		}
		return records
	}

	// 140 records over 7 days averages exactly 20.0 and must not fire
	result := ComputeAlerts(makeRecords(140), DefaultScanConfig())
	if got := alertsOfType(result, TypeUnusualVolume); len(got) != 0 {
		t.Errorf("volume alerts = %d, want 0 at average exactly 20.0", len(got))
	}

	result = ComputeAlerts(makeRecords(141), DefaultScanConfig())
	got := alertsOfType(result, TypeUnusualVolume)
	if len(got) != 1 {
		t.Fatalf("volume alerts = %d, want 1 at average above 20.0", len(got))
	}
	if got[0].ConsultationID != nil {
		t.Error("volume alert is clinic-level and must carry no consultation reference")
	}
	if got[0].ClinicID == nil || *got[0].ClinicID != clinic {
		t.Error("volume alert should reference the clinic")
	}
}

func TestComputeAlerts_RulesDoNotSuppressEachOther(t *testing.T) {
	patient := uuid.New()
	clinicA, clinicB := uuid.New(), uuid.New()

	recA := record(patient, clinicA, testBase, boolPtr(false))
	recA.ClinicName = "ClinicA"
	recB := record(patient, clinicB, testBase.Add(8*time.Minute), boolPtr(false))
	recB.ClinicName = "ClinicB"

	result := ComputeAlerts([]Record{recA, recB}, DefaultScanConfig())
	if result.Count != 4 {
		t.Fatalf("count = %d, want 4", result.Count)
	}

	// rule-execution order: multi-clinic, both missing-biometric, rapid-succession
	wantTypes := []AlertType{TypeMultiClinicSameDay, TypeMissingBiometric, TypeMissingBiometric, TypeRapidSuccession}
	for i, want := range wantTypes {
		if result.Alerts[i].Type != want {
			t.Errorf("alerts[%d].Type = %q, want %q", i, result.Alerts[i].Type, want)
		}
	}

	if *result.Alerts[0].ConsultationID != recB.ID {
		t.Error("multi-clinic alert should fire on the second record")
	}
	if *result.Alerts[1].ConsultationID != recA.ID || *result.Alerts[2].ConsultationID != recB.ID {
		t.Error("missing-biometric alerts should cover both records")
	}
	if *result.Alerts[3].ConsultationID != recB.ID {
		t.Error("rapid-succession alert should fire on the later record")
	}
}

func TestComputeAlerts_Deterministic(t *testing.T) {
	patientA, patientB := uuid.New(), uuid.New()
	clinicA, clinicB := uuid.New(), uuid.New()

	records := []Record{
		record(patientA, clinicA, testBase, nil),
		record(patientA, clinicB, testBase.Add(8*time.Minute), boolPtr(false)),
		record(patientB, clinicA, testBase.Add(10*time.Minute), boolPtr(true)),
		record(patientB, clinicB, testBase.Add(30*time.Hour), boolPtr(true)),
	}

	first := ComputeAlerts(records, DefaultScanConfig())
	second := ComputeAlerts(records, DefaultScanConfig())

	if first.Count != second.Count {
		t.Fatalf("counts differ: %d vs %d", first.Count, second.Count)
	}
	for i := range first.Alerts {
		if first.Alerts[i].Type != second.Alerts[i].Type ||
			first.Alerts[i].Message != second.Alerts[i].Message ||
			!reflect.DeepEqual(first.Alerts[i].ConsultationID, second.Alerts[i].ConsultationID) {
			t.Errorf("alerts[%d] differ between identical runs", i)
		}
	}
}

func TestComputeAlerts_EmptyWindow(t *testing.T) {
	result := ComputeAlerts(nil, DefaultScanConfig())
	if result.Count != 0 || len(result.Alerts) != 0 {
		t.Errorf("empty window should produce no alerts, got %d", result.Count)
	}
}

func TestComputeAlerts_ConfigurableThresholds(t *testing.T) {
	patient := uuid.New()
	clinic := uuid.New()

	records := []Record{
		record(patient, clinic, testBase, boolPtr(true)),
		record(patient, clinic, testBase.Add(20*time.Minute), boolPtr(true)),
	}

	cfg := ScanConfig{WindowDays: 7, RapidSuccessionMin: 30, VolumeThresholdPerDay: 20}
	result := ComputeAlerts(records, cfg)
	if got := alertsOfType(result, TypeRapidSuccession); len(got) != 1 {
		t.Errorf("rapid-succession alerts = %d, want 1 with a 30 minute threshold", len(got))
	}
}

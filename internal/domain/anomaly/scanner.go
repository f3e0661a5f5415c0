package anomaly

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ComputeAlerts runs the four detection rules over a window snapshot. It is
// pure: no I/O, no mutation of the input, and identical input yields an
// identical alert list. Rules run in fixed order and append to one list.
func ComputeAlerts(records []Record, cfg ScanConfig) ScanResult {
	var alerts []Alert
	alerts = append(alerts, detectMultiClinic(records)...)
	alerts = append(alerts, detectMissingBiometric(records)...)
	alerts = append(alerts, detectRapidSuccession(records, cfg)...)
	alerts = append(alerts, detectUnusualVolume(records, cfg)...)
	return ScanResult{Alerts: alerts, Count: len(alerts)}
}

func newAlert(t AlertType, msg string, consultationID, clinicID *uuid.UUID) Alert {
	return Alert{
		Type:           t,
		Severity:       severityFor(t),
		Message:        msg,
		ConsultationID: consultationID,
		ClinicID:       clinicID,
		CreatedAt:      time.Now().UTC(),
	}
}

// patientDayKey groups records by patient and UTC calendar day.
type patientDayKey struct {
	patientID uuid.UUID
	day       string
}

// detectMultiClinic fires once per (patient, UTC day) at the first record
// whose clinic differs from a clinic already seen that day. Records at a
// third clinic, or back at a known clinic, never re-trigger.
func detectMultiClinic(records []Record) []Alert {
	groups := make(map[patientDayKey][]Record)
	for _, rec := range records {
		key := patientDayKey{rec.PatientID, rec.CreatedAt.UTC().Format("2006-01-02")}
		groups[key] = append(groups[key], rec)
	}

	keys := make([]patientDayKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].patientID != keys[j].patientID {
			return keys[i].patientID.String() < keys[j].patientID.String()
		}
		return keys[i].day < keys[j].day
	})

	var alerts []Alert
	for _, key := range keys {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool { return group[i].CreatedAt.Before(group[j].CreatedAt) })

		seen := make(map[uuid.UUID]bool)
		fired := false
		for _, rec := range group {
			if !fired && len(seen) > 0 && !seen[rec.ClinicID] {
				rec := rec
				msg := fmt.Sprintf("patient %s (%s) visited %s after another clinic on %s",
					rec.PatientName, rec.InsuranceNumber, rec.ClinicName, key.day)
				alerts = append(alerts, newAlert(TypeMultiClinicSameDay, msg, &rec.ID, &rec.ClinicID))
				fired = true
			}
			seen[rec.ClinicID] = true
		}
	}
	return alerts
}

// detectMissingBiometric fires one error per record whose validation flag is
// nil or false, independent of the other rules.
func detectMissingBiometric(records []Record) []Alert {
	var alerts []Alert
	for _, rec := range records {
		if rec.BiometricValidation != nil && *rec.BiometricValidation {
			continue
		}
		rec := rec
		msg := fmt.Sprintf("consultation for %s (%s) at %s has no biometric validation",
			rec.PatientName, rec.InsuranceNumber, rec.ClinicName)
		alerts = append(alerts, newAlert(TypeMissingBiometric, msg, &rec.ID, &rec.ClinicID))
	}
	return alerts
}

// detectRapidSuccession compares adjacent record pairs per patient in
// ascending timestamp order, regardless of clinic. A gap strictly under the
// threshold fires on the later record, so a burst of N close records yields
// N-1 alerts.
func detectRapidSuccession(records []Record, cfg ScanConfig) []Alert {
	byPatient := make(map[uuid.UUID][]Record)
	for _, rec := range records {
		byPatient[rec.PatientID] = append(byPatient[rec.PatientID], rec)
	}

	patientIDs := make([]uuid.UUID, 0, len(byPatient))
	for id := range byPatient {
		patientIDs = append(patientIDs, id)
	}
	sort.Slice(patientIDs, func(i, j int) bool { return patientIDs[i].String() < patientIDs[j].String() })

	threshold := time.Duration(cfg.RapidSuccessionMin) * time.Minute

	var alerts []Alert
	for _, patientID := range patientIDs {
		group := byPatient[patientID]
		sort.SliceStable(group, func(i, j int) bool { return group[i].CreatedAt.Before(group[j].CreatedAt) })

		for i := 1; i < len(group); i++ {
			delta := group[i].CreatedAt.Sub(group[i-1].CreatedAt)
			if delta >= threshold {
				continue
			}
			cur := group[i]
			msg := fmt.Sprintf("patient %s (%s) seen again only %d minutes later at %s",
				cur.PatientName, cur.InsuranceNumber, int(math.Round(delta.Minutes())), cur.ClinicName)
			alerts = append(alerts, newAlert(TypeRapidSuccession, msg, &cur.ID, &cur.ClinicID))
		}
	}
	return alerts
}

// detectUnusualVolume fires one clinic-level warning when a clinic's average
// daily count over the window strictly exceeds the threshold. The alert
// carries no consultation reference.
func detectUnusualVolume(records []Record, cfg ScanConfig) []Alert {
	byClinic := make(map[uuid.UUID][]Record)
	for _, rec := range records {
		byClinic[rec.ClinicID] = append(byClinic[rec.ClinicID], rec)
	}

	var alerts []Alert
	for _, clinicID := range sortedClinicIDs(byClinic) {
		group := byClinic[clinicID]
		avg := float64(len(group)) / float64(cfg.WindowDays)
		if avg <= float64(cfg.VolumeThresholdPerDay) {
			continue
		}
		clinicID := clinicID
		msg := fmt.Sprintf("clinic %s averaged %.1f consultations per day over %d days",
			group[0].ClinicName, avg, cfg.WindowDays)
		alerts = append(alerts, newAlert(TypeUnusualVolume, msg, nil, &clinicID))
	}
	return alerts
}

func sortedClinicIDs(byClinic map[uuid.UUID][]Record) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(byClinic))
	for id := range byClinic {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

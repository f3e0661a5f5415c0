// Package biometric builds and parses deep links for the companion
// fingerprint scanner application. Links use a custom URL scheme so the
// mobile OS routes them to the installed scanner app.
package biometric

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// DefaultScheme is the URL scheme registered by the scanner app.
const DefaultScheme = "carenet-scan"

// Action identifies the operation the scanner app should perform.
type Action string

const (
	// ActionEnroll captures a patient's fingerprint for the first time.
	ActionEnroll Action = "enroll"
	// ActionVerify matches a live fingerprint against an enrolled template.
	ActionVerify Action = "verify"
)

// Linker builds scanner deep links with a fixed scheme and callback URL.
type Linker struct {
	scheme   string
	callback string
}

// NewLinker returns a Linker. Empty scheme falls back to DefaultScheme.
func NewLinker(scheme, callbackURL string) *Linker {
	if scheme == "" {
		scheme = DefaultScheme
	}
	return &Linker{scheme: scheme, callback: callbackURL}
}

// EnrollLink returns the deep link that opens the scanner app in
// enrollment mode for the given patient.
func (l *Linker) EnrollLink(patientID uuid.UUID) string {
	return l.build(ActionEnroll, patientID, uuid.Nil)
}

// VerifyLink returns the deep link that opens the scanner app in
// verification mode for a patient during a consultation.
func (l *Linker) VerifyLink(patientID, consultationID uuid.UUID) string {
	return l.build(ActionVerify, patientID, consultationID)
}

func (l *Linker) build(action Action, patientID, consultationID uuid.UUID) string {
	q := url.Values{}
	q.Set("patient_id", patientID.String())
	if consultationID != uuid.Nil {
		q.Set("consultation_id", consultationID.String())
	}
	if l.callback != "" {
		q.Set("callback", l.callback)
	}
	return fmt.Sprintf("%s://%s?%s", l.scheme, action, q.Encode())
}

// Link is a parsed scanner deep link.
type Link struct {
	Action         Action
	PatientID      uuid.UUID
	ConsultationID uuid.UUID
	Callback       string
}

// Parse decodes a scanner deep link. The scheme must match the linker's
// configured scheme and the action must be a known one.
func (l *Linker) Parse(raw string) (*Link, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse deep link: %w", err)
	}
	if !strings.EqualFold(u.Scheme, l.scheme) {
		return nil, fmt.Errorf("unexpected scheme %q", u.Scheme)
	}

	action := Action(u.Host)
	if action != ActionEnroll && action != ActionVerify {
		return nil, fmt.Errorf("unknown action %q", u.Host)
	}

	q := u.Query()
	patientID, err := uuid.Parse(q.Get("patient_id"))
	if err != nil {
		return nil, fmt.Errorf("invalid patient_id: %w", err)
	}

	link := &Link{
		Action:    action,
		PatientID: patientID,
		Callback:  q.Get("callback"),
	}
	if raw := q.Get("consultation_id"); raw != "" {
		cid, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid consultation_id: %w", err)
		}
		link.ConsultationID = cid
	}
	return link, nil
}

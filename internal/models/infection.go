package models

import (
	"time"

	"github.com/google/uuid"
)

// Infection case lifecycle states.
const (
	InfectionStatusSuspected  = "suspected"
	InfectionStatusConfirmed  = "confirmed"
	InfectionStatusMonitoring = "monitoring"
	InfectionStatusResolved   = "resolved"
)

// InfectionCase is a surveillance record for a suspected or confirmed
// healthcare-associated infection.
type InfectionCase struct {
	ID              uuid.UUID  `json:"id"`
	OrganizationID  uuid.UUID  `json:"organization_id"`
	ReferenceNumber string     `json:"reference_number"`
	Status          string     `json:"status"`
	PatientName     string     `json:"patient_name"`
	PatientID       *uuid.UUID `json:"patient_id,omitempty"`
	Ward            string     `json:"ward"`
	InfectionType   string     `json:"infection_type"`
	Organism        string     `json:"organism,omitempty"`
	OnsetDate       time.Time  `json:"onset_date"`
	Notes           string     `json:"notes,omitempty"`
	ReportedByID    uuid.UUID  `json:"reported_by_id"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HandHygieneAudit records one observation round. ComplianceRate is derived
// from the counts at creation time and persisted with the audit.
type HandHygieneAudit struct {
	ID                    uuid.UUID `json:"id"`
	OrganizationID        uuid.UUID `json:"organization_id"`
	Ward                  string    `json:"ward"`
	AuditorID             uuid.UUID `json:"auditor_id"`
	AuditDate             time.Time `json:"audit_date"`
	OpportunitiesObserved int       `json:"opportunities_observed"`
	CompliantActions      int       `json:"compliant_actions"`
	ComplianceRate        float64   `json:"compliance_rate"`
	Notes                 string    `json:"notes,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

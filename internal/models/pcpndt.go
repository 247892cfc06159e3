package models

import (
	"time"

	"github.com/google/uuid"
)

// PCPNDTForm is a Form F compliance record for a prenatal diagnostic
// procedure. Once the declaration is signed the form rejects general updates;
// the sign endpoint itself is idempotent (signed_at is first-write-wins).
type PCPNDTForm struct {
	ID                uuid.UUID  `json:"id"`
	OrganizationID    uuid.UUID  `json:"organization_id"`
	FormNumber        string     `json:"form_number"`
	PatientName       string     `json:"patient_name"`
	PatientAge        int        `json:"patient_age"`
	HusbandName       string     `json:"husband_name,omitempty"`
	Address           string     `json:"address"`
	ReferringDoctor   string     `json:"referring_doctor,omitempty"`
	Indication        string     `json:"indication"`
	ProcedureType     string     `json:"procedure_type"`
	ProcedureDate     time.Time  `json:"procedure_date"`
	PerformingDoctorID *uuid.UUID `json:"performing_doctor_id,omitempty"`
	DeclarationSigned bool       `json:"declaration_signed"`
	SignedAt          *time.Time `json:"signed_at,omitempty"`
	SignedByID        *uuid.UUID `json:"signed_by_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

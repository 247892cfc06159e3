package models

import (
	"time"

	"github.com/google/uuid"
)

// Birth register lifecycle states. Registered and issued records are locked
// against general updates; the vaccination endpoint stays permitted.
const (
	BirthStatusDraft      = "draft"
	BirthStatusCertified  = "certified"
	BirthStatusRegistered = "registered"
	BirthStatusIssued     = "issued"
)

// BirthRegister is one entry in a hospital's birth register.
type BirthRegister struct {
	ID                 uuid.UUID  `json:"id"`
	OrganizationID     uuid.UUID  `json:"organization_id"`
	RegistrationNumber string     `json:"registration_number"`
	Status             string     `json:"status"`
	ChildName          string     `json:"child_name"`
	Gender             string     `json:"gender"`
	DateOfBirth        time.Time  `json:"date_of_birth"`
	PlaceOfBirth       string     `json:"place_of_birth"`
	WeightGrams        *int       `json:"weight_grams,omitempty"`
	DeliveryType       string     `json:"delivery_type,omitempty"`
	MotherName         string     `json:"mother_name"`
	FatherName         string     `json:"father_name,omitempty"`
	Address            string     `json:"address,omitempty"`
	AttendingDoctorID  *uuid.UUID `json:"attending_doctor_id,omitempty"`
	ReportedByID       uuid.UUID  `json:"reported_by_id"`
	BCGGiven           bool       `json:"bcg_given"`
	OPVGiven           bool       `json:"opv_given"`
	HepBGiven          bool       `json:"hep_b_given"`
	VaccinationNotedAt *time.Time `json:"vaccination_noted_at,omitempty"`
	CertifiedAt        *time.Time `json:"certified_at,omitempty"`
	RegisteredAt       *time.Time `json:"registered_at,omitempty"`
	IssuedAt           *time.Time `json:"issued_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Sales inquiry pipeline states. Won and lost inquiries are locked against
// general updates.
const (
	InquiryStatusNew          = "new"
	InquiryStatusContacted    = "contacted"
	InquiryStatusQualified    = "qualified"
	InquiryStatusProposalSent = "proposal_sent"
	InquiryStatusWon          = "won"
	InquiryStatusLost         = "lost"
)

// Inquiry is a sales inquiry from a prospective hospital customer.
type Inquiry struct {
	ID              uuid.UUID  `json:"id"`
	OrganizationID  uuid.UUID  `json:"organization_id"`
	ReferenceNumber string     `json:"reference_number"`
	Status          string     `json:"status"`
	HospitalName    string     `json:"hospital_name"`
	ContactName     string     `json:"contact_name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	Source          string     `json:"source,omitempty"`
	Message         string     `json:"message,omitempty"`
	AssignedToID    *uuid.UUID `json:"assigned_to_id,omitempty"`
	LostReason      string     `json:"lost_reason,omitempty"`
	ContactedAt     *time.Time `json:"contacted_at,omitempty"`
	QualifiedAt     *time.Time `json:"qualified_at,omitempty"`
	ProposalSentAt  *time.Time `json:"proposal_sent_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

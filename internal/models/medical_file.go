package models

import (
	"time"

	"github.com/google/uuid"
)

// Medical record file lifecycle states. Archived files are locked against
// general updates but may still be deleted.
const (
	FileStatusPending  = "pending"
	FileStatusScanned  = "scanned"
	FileStatusIndexed  = "indexed"
	FileStatusArchived = "archived"
)

// Medical record file types.
const (
	FileTypeOPD       = "opd"
	FileTypeIPD       = "ipd"
	FileTypeEmergency = "emergency"
	FileTypeLab       = "lab"
)

// MedicalFile tracks a physical medical record file through scanning and
// indexing. The file itself lives in the record room; only metadata is stored.
type MedicalFile struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	FileNumber     string     `json:"file_number"`
	Status         string     `json:"status"`
	PatientName    string     `json:"patient_name"`
	PatientID      *uuid.UUID `json:"patient_id,omitempty"`
	FileType       string     `json:"file_type"`
	Department     string     `json:"department,omitempty"`
	Location       string     `json:"location,omitempty"` // rack/shelf reference in the record room
	AssigneeID     *uuid.UUID `json:"assignee_id,omitempty"`
	ScannedAt      *time.Time `json:"scanned_at,omitempty"`
	IndexedAt      *time.Time `json:"indexed_at,omitempty"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

package models

import "time"

// RequestType classifies a service request.
type RequestType string

const (
	RequestTypeAppeal    RequestType = "appeal"
	RequestTypeExemption RequestType = "exemption"
	RequestTypeMilitary  RequestType = "military"
	RequestTypeOther     RequestType = "other"
)

// Valid reports whether the type is one of the closed set.
func (t RequestType) Valid() bool {
	switch t {
	case RequestTypeAppeal, RequestTypeExemption, RequestTypeMilitary, RequestTypeOther:
		return true
	default:
		return false
	}
}

// RequestStatus is the workflow stage of a request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusInProgress RequestStatus = "in_progress"
	StatusApproved   RequestStatus = "approved"
	StatusRejected   RequestStatus = "rejected"
)

// Valid reports whether the status is one of the closed set.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Request is a student-submitted service ticket. Requests are never deleted;
// status and assignment move through the transition service only.
type Request struct {
	ID                 string        `db:"id" json:"id"`
	StudentID          string        `db:"student_id" json:"student_id"`
	Type               RequestType   `db:"request_type" json:"request_type"`
	Subject            string        `db:"subject" json:"subject"`
	Description        string        `db:"description" json:"description"`
	AttachmentRef      *string       `db:"attachment_ref" json:"attachment_ref,omitempty"`
	AssignedLecturerID *string       `db:"assigned_lecturer_id" json:"assigned_lecturer_id,omitempty"`
	DepartmentID       string        `db:"department_id" json:"department_id"`
	Status             RequestStatus `db:"status" json:"status"`
	SubmittedAt        time.Time     `db:"submitted_at" json:"submitted_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// RequestFilter scopes request listing. Access rules produce one of these so
// repositories never reason about roles themselves.
type RequestFilter struct {
	StudentID          string
	AssignedLecturerID string
	DepartmentID       string
	Status             RequestStatus
	Type               RequestType
	Page               int
	PageSize           int
}

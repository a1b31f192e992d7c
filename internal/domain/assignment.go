package domain

import "time"

// AssignmentStatus enumerates the technician work states.
type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "PENDING"
	AssignmentStatusAccepted   AssignmentStatus = "ACCEPTED"
	AssignmentStatusInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentStatusCompleted  AssignmentStatus = "COMPLETED"
	AssignmentStatusRejected   AssignmentStatus = "REJECTED"
)

// Valid reports whether s is a known assignment status.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentStatusPending, AssignmentStatusAccepted, AssignmentStatusInProgress,
		AssignmentStatusCompleted, AssignmentStatusRejected:
		return true
	}
	return false
}

// VerificationStatus tracks the review of submitted evidence.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationApproved VerificationStatus = "APPROVED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// Valid reports whether s is a known verification status.
func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

// CompletionNotes is the evidence a technician submits when finishing work.
type CompletionNotes struct {
	Images     []string  `json:"images"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Assignment binds one technician to one ticket.
type Assignment struct {
	ID                 string
	TicketID           string
	TechnicianID       string
	AssignedByID       string
	Status             AssignmentStatus
	VerificationStatus *VerificationStatus
	NeedsVerification  bool
	StartTime          *time.Time
	EndTime            *time.Time
	Notes              string
	CompletionNotes    *CompletionNotes
	RejectionReason    *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Active reports whether the assignment still holds its ticket.
func (a *Assignment) Active() bool {
	return a.Status != AssignmentStatusRejected
}

// Verification returns the verification status or the empty value when work
// has not been submitted yet.
func (a *Assignment) Verification() VerificationStatus {
	if a.VerificationStatus == nil {
		return ""
	}
	return *a.VerificationStatus
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (a *Assignment) Clone() *Assignment {
	if a == nil {
		return nil
	}
	cp := *a
	if a.VerificationStatus != nil {
		v := *a.VerificationStatus
		cp.VerificationStatus = &v
	}
	if a.StartTime != nil {
		t := *a.StartTime
		cp.StartTime = &t
	}
	if a.EndTime != nil {
		t := *a.EndTime
		cp.EndTime = &t
	}
	if a.CompletionNotes != nil {
		notes := *a.CompletionNotes
		notes.Images = append([]string(nil), a.CompletionNotes.Images...)
		cp.CompletionNotes = &notes
	}
	if a.RejectionReason != nil {
		r := *a.RejectionReason
		cp.RejectionReason = &r
	}
	return &cp
}

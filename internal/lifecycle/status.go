package lifecycle

import "github.com/spec-kit/maintenance-service/internal/domain"

// State is the composite Ticket×Assignment state.
type State string

const (
	StateUnassigned           State = "UNASSIGNED"
	StateAssigned             State = "ASSIGNED"
	StateInProgress           State = "IN_PROGRESS"
	StateAwaitingVerification State = "AWAITING_VERIFICATION"
	StateClosed               State = "CLOSED"
	StateRejectedForRework    State = "REJECTED_FOR_REWORK"
	StateCancelled            State = "CANCELLED"
)

// TicketStatusFor returns the ticket status dictated by the assignment.
// A nil assignment means the ticket is unassigned.
func TicketStatusFor(a *domain.Assignment) domain.TicketStatus {
	if a == nil {
		return domain.TicketStatusPending
	}
	switch a.Status {
	case domain.AssignmentStatusPending, domain.AssignmentStatusAccepted:
		return domain.TicketStatusAssigned
	case domain.AssignmentStatusInProgress:
		return domain.TicketStatusInProgress
	case domain.AssignmentStatusCompleted:
		if a.Verification() == domain.VerificationApproved || !a.NeedsVerification {
			return domain.TicketStatusCompleted
		}
		return domain.TicketStatusInProgress
	case domain.AssignmentStatusRejected:
		return domain.TicketStatusCancelled
	}
	return domain.TicketStatusPending
}

// StateOf classifies a ticket and its active assignment.
func StateOf(t *domain.Ticket, a *domain.Assignment) State {
	if t.Status == domain.TicketStatusCancelled {
		return StateCancelled
	}
	if a == nil || !a.Active() {
		return StateUnassigned
	}
	switch a.Status {
	case domain.AssignmentStatusPending, domain.AssignmentStatusAccepted:
		return StateAssigned
	case domain.AssignmentStatusInProgress:
		if a.Verification() == domain.VerificationRejected {
			return StateRejectedForRework
		}
		return StateInProgress
	case domain.AssignmentStatusCompleted:
		if a.Verification() == domain.VerificationPending && a.NeedsVerification {
			return StateAwaitingVerification
		}
		return StateClosed
	}
	return StateUnassigned
}

// Consistent reports whether the ticket status matches its assignment and
// the assignment's end time matches its status.
func Consistent(t *domain.Ticket, a *domain.Assignment) bool {
	if a == nil {
		return t.Status == domain.TicketStatusPending || t.Status == domain.TicketStatusCancelled
	}
	if (a.EndTime != nil) != (a.Status == domain.AssignmentStatusCompleted) {
		return false
	}
	if t.Status == domain.TicketStatusCompleted {
		v := a.Verification()
		if v == domain.VerificationPending || v == domain.VerificationRejected {
			return false
		}
	}
	return TicketStatusFor(a) == t.Status
}

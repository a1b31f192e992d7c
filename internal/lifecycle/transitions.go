// Package lifecycle holds the pure rules of the ticket/assignment state
// machine: which roles may attempt a transition, which states a transition may
// start from, what it writes, and how a ticket status derives from its
// assignment. It performs no I/O.
package lifecycle

import (
	"github.com/spec-kit/maintenance-service/internal/domain"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// Transition names a lifecycle operation.
type Transition string

const (
	TransitionCreateTicket   Transition = "create_ticket"
	TransitionAssign         Transition = "assign"
	TransitionAccept         Transition = "accept"
	TransitionStartWork      Transition = "start_work"
	TransitionSubmitEvidence Transition = "submit_evidence"
	TransitionApprove        Transition = "approve"
	TransitionReject         Transition = "reject"
	TransitionAddRepairLog   Transition = "add_repair_log"
	TransitionCancel         Transition = "cancel"
	TransitionReopen         Transition = "reopen"
	TransitionDecommission   Transition = "decommission"
	// TransitionVerify guards review requests that carry no valid decision.
	TransitionVerify         Transition = "verify"
)

// Rule is the capability guard of a transition.
type Rule struct {
	Roles []domain.Role
	// OwnerOnly restricts the transition to the technician holding the assignment.
	OwnerOnly bool
}

// Transitions is the role guard table evaluated once per operation.
var Transitions = map[Transition]Rule{
	TransitionCreateTicket:   {Roles: []domain.Role{domain.RoleStaff, domain.RoleAdmin, domain.RoleSupervisor}},
	TransitionAssign:         {Roles: []domain.Role{domain.RoleAdmin}},
	TransitionAccept:         {Roles: []domain.Role{domain.RoleTechnician}, OwnerOnly: true},
	TransitionStartWork:      {Roles: []domain.Role{domain.RoleTechnician}, OwnerOnly: true},
	TransitionSubmitEvidence: {Roles: []domain.Role{domain.RoleTechnician}, OwnerOnly: true},
	TransitionApprove:        {Roles: []domain.Role{domain.RoleAdmin, domain.RoleSupervisor}},
	TransitionReject:         {Roles: []domain.Role{domain.RoleAdmin, domain.RoleSupervisor}},
	TransitionVerify:         {Roles: []domain.Role{domain.RoleAdmin, domain.RoleSupervisor}},
	TransitionAddRepairLog:   {Roles: []domain.Role{domain.RoleTechnician}, OwnerOnly: true},
	TransitionCancel:         {Roles: []domain.Role{domain.RoleAdmin}},
	TransitionReopen:         {Roles: []domain.Role{domain.RoleAdmin}},
	TransitionDecommission:   {Roles: []domain.Role{domain.RoleAdmin}},
}

// Authorize checks the actor's role against the transition's rule.
func Authorize(t Transition, actor domain.Actor) error {
	rule, ok := Transitions[t]
	if !ok {
		return apperrors.NewInternalError(nil)
	}
	if actor.UserID == "" {
		return apperrors.NewUnauthorized("actor required")
	}
	for _, role := range rule.Roles {
		if role == actor.Role {
			return nil
		}
	}
	return apperrors.NewForbidden("role not permitted for transition", map[string]any{
		"transition": string(t),
		"role":       string(actor.Role),
	})
}

// AuthorizeOwner additionally checks ownership for technician transitions.
func AuthorizeOwner(t Transition, actor domain.Actor, assignment *domain.Assignment) error {
	if !Transitions[t].OwnerOnly {
		return nil
	}
	if assignment.TechnicianID != actor.UserID {
		return apperrors.NewForbidden("assignment belongs to another technician", map[string]any{
			"transition":    string(t),
			"assignment_id": assignment.ID,
		})
	}
	return nil
}

var ticketTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusPending:    {domain.TicketStatusAssigned, domain.TicketStatusCancelled},
	domain.TicketStatusAssigned:   {domain.TicketStatusInProgress, domain.TicketStatusCompleted, domain.TicketStatusCancelled, domain.TicketStatusPending},
	domain.TicketStatusInProgress: {domain.TicketStatusCompleted, domain.TicketStatusCancelled, domain.TicketStatusPending},
	domain.TicketStatusCompleted:  {domain.TicketStatusInProgress},
	domain.TicketStatusCancelled:  {domain.TicketStatusPending},
}

// CanMoveTicket reports whether a ticket may move from current to next.
// Writing the current status again is always allowed.
func CanMoveTicket(current, next domain.TicketStatus) bool {
	if !next.Valid() {
		return false
	}
	if current == next {
		return true
	}
	for _, candidate := range ticketTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

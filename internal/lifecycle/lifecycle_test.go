package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-service/internal/domain"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

func verification(v domain.VerificationStatus) *domain.VerificationStatus {
	return &v
}

func TestTicketStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		a        *domain.Assignment
		expected domain.TicketStatus
	}{
		{"unassigned", nil, domain.TicketStatusPending},
		{"pending", &domain.Assignment{Status: domain.AssignmentStatusPending}, domain.TicketStatusAssigned},
		{"accepted", &domain.Assignment{Status: domain.AssignmentStatusAccepted}, domain.TicketStatusAssigned},
		{"in progress", &domain.Assignment{Status: domain.AssignmentStatusInProgress}, domain.TicketStatusInProgress},
		{
			"completed awaiting review",
			&domain.Assignment{Status: domain.AssignmentStatusCompleted, NeedsVerification: true, VerificationStatus: verification(domain.VerificationPending)},
			domain.TicketStatusInProgress,
		},
		{
			"completed approved",
			&domain.Assignment{Status: domain.AssignmentStatusCompleted, NeedsVerification: true, VerificationStatus: verification(domain.VerificationApproved)},
			domain.TicketStatusCompleted,
		},
		{
			"completed without review",
			&domain.Assignment{Status: domain.AssignmentStatusCompleted, NeedsVerification: false},
			domain.TicketStatusCompleted,
		},
		{"rejected", &domain.Assignment{Status: domain.AssignmentStatusRejected}, domain.TicketStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TicketStatusFor(tt.a))
		})
	}
}

func TestCanMoveTicket(t *testing.T) {
	assert.True(t, CanMoveTicket(domain.TicketStatusPending, domain.TicketStatusAssigned))
	assert.True(t, CanMoveTicket(domain.TicketStatusCompleted, domain.TicketStatusInProgress))
	assert.True(t, CanMoveTicket(domain.TicketStatusCancelled, domain.TicketStatusPending))
	assert.True(t, CanMoveTicket(domain.TicketStatusInProgress, domain.TicketStatusInProgress))

	assert.False(t, CanMoveTicket(domain.TicketStatusPending, domain.TicketStatusCompleted))
	assert.False(t, CanMoveTicket(domain.TicketStatusCompleted, domain.TicketStatusAssigned))
	assert.False(t, CanMoveTicket(domain.TicketStatusCompleted, domain.TicketStatusCancelled))
	assert.False(t, CanMoveTicket(domain.TicketStatusPending, domain.TicketStatus("RESOLVED")))
}

func TestAuthorize(t *testing.T) {
	admin := domain.Actor{UserID: "a1", Role: domain.RoleAdmin}
	supervisor := domain.Actor{UserID: "s1", Role: domain.RoleSupervisor}
	tech := domain.Actor{UserID: "t1", Role: domain.RoleTechnician}

	assert.NoError(t, Authorize(TransitionAssign, admin))
	assert.NoError(t, Authorize(TransitionApprove, supervisor))
	assert.NoError(t, Authorize(TransitionSubmitEvidence, tech))

	err := Authorize(TransitionApprove, tech)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	err = Authorize(TransitionAssign, domain.Actor{Role: domain.RoleAdmin})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	a := &domain.Assignment{ID: "as1", TechnicianID: "t2"}
	err = AuthorizeOwner(TransitionStartWork, tech, a)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	assert.NoError(t, AuthorizeOwner(TransitionApprove, admin, a))
}

func TestReworkLoop(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := &domain.Assignment{ID: "as1", Status: domain.AssignmentStatusPending, NeedsVerification: true}

	require.NoError(t, ApplyStartWork(a, now))
	require.NotNil(t, a.StartTime)

	for i := 0; i < 5; i++ {
		require.NoError(t, ApplySubmitEvidence(a, []string{"img"}, now))
		assert.Equal(t, domain.TicketStatusInProgress, TicketStatusFor(a))
		assert.NotNil(t, a.EndTime)

		require.NoError(t, ApplyReject(a, "redo"))
		assert.Equal(t, domain.AssignmentStatusInProgress, a.Status)
		assert.Nil(t, a.EndTime)
		assert.Equal(t, "redo", *a.RejectionReason)
		assert.Equal(t, domain.TicketStatusInProgress, TicketStatusFor(a))
	}

	require.NoError(t, ApplySubmitEvidence(a, []string{"final"}, now))
	require.NoError(t, ApplyApprove(a))
	assert.Equal(t, domain.TicketStatusCompleted, TicketStatusFor(a))

	err := ApplyApprove(a)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	err = ApplyReject(a, "late")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestApplySubmitEvidence(t *testing.T) {
	now := time.Now()

	t.Run("blank images are rejected", func(t *testing.T) {
		a := &domain.Assignment{ID: "as1", Status: domain.AssignmentStatusInProgress}
		err := ApplySubmitEvidence(a, []string{" ", ""}, now)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
		assert.Nil(t, a.CompletionNotes)
	})

	t.Run("without verification approves immediately", func(t *testing.T) {
		a := &domain.Assignment{ID: "as1", Status: domain.AssignmentStatusPending}
		require.NoError(t, ApplySubmitEvidence(a, []string{"img1"}, now))
		assert.Equal(t, domain.VerificationApproved, a.Verification())
		assert.Equal(t, &now, a.StartTime)
		assert.Equal(t, domain.TicketStatusCompleted, TicketStatusFor(a))
	})

	t.Run("awaiting review cannot resubmit", func(t *testing.T) {
		a := &domain.Assignment{ID: "as1", Status: domain.AssignmentStatusInProgress, NeedsVerification: true}
		require.NoError(t, ApplySubmitEvidence(a, []string{"img1"}, now))
		err := ApplySubmitEvidence(a, []string{"img2"}, now)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
		assert.Equal(t, []string{"img1"}, a.CompletionNotes.Images)
	})

	t.Run("cancelled assignment refuses evidence", func(t *testing.T) {
		a := &domain.Assignment{ID: "as1", Status: domain.AssignmentStatusRejected}
		err := ApplySubmitEvidence(a, []string{"img1"}, now)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	})
}

func TestStartWorkGuards(t *testing.T) {
	a := &domain.Assignment{ID: "as1", Status: domain.AssignmentStatusInProgress}
	err := ApplyStartWork(a, time.Now())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	b := &domain.Assignment{ID: "as2", Status: domain.AssignmentStatusPending}
	require.NoError(t, ApplyAccept(b))
	assert.Equal(t, domain.AssignmentStatusAccepted, b.Status)
	assert.Error(t, ApplyAccept(b))
	require.NoError(t, ApplyStartWork(b, time.Now()))
}

func TestStateOf(t *testing.T) {
	ticket := &domain.Ticket{Status: domain.TicketStatusPending}
	assert.Equal(t, StateUnassigned, StateOf(ticket, nil))

	a := &domain.Assignment{Status: domain.AssignmentStatusPending, NeedsVerification: true}
	assert.Equal(t, StateAssigned, StateOf(ticket, a))

	a.Status = domain.AssignmentStatusCompleted
	a.VerificationStatus = verification(domain.VerificationPending)
	assert.Equal(t, StateAwaitingVerification, StateOf(ticket, a))

	a.Status = domain.AssignmentStatusInProgress
	a.VerificationStatus = verification(domain.VerificationRejected)
	assert.Equal(t, StateRejectedForRework, StateOf(ticket, a))

	a.Status = domain.AssignmentStatusCompleted
	a.VerificationStatus = verification(domain.VerificationApproved)
	assert.Equal(t, StateClosed, StateOf(ticket, a))

	ticket.Status = domain.TicketStatusCancelled
	assert.Equal(t, StateCancelled, StateOf(ticket, a))
}

func TestConsistent(t *testing.T) {
	end := time.Now()
	ticket := &domain.Ticket{Status: domain.TicketStatusCompleted}
	a := &domain.Assignment{
		Status:             domain.AssignmentStatusCompleted,
		NeedsVerification:  true,
		VerificationStatus: verification(domain.VerificationPending),
		EndTime:            &end,
	}
	assert.False(t, Consistent(ticket, a))

	ticket.Status = domain.TicketStatusInProgress
	assert.True(t, Consistent(ticket, a))

	a.EndTime = nil
	assert.False(t, Consistent(ticket, a))
}

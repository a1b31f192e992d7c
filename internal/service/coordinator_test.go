package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/domain"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

func TestScenarioVerificationWithRework(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ticket := h.newTicket(t)
	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.Regexp(t, `^MT-[0-9A-F]{8}$`, ticket.TicketNumber)

	a, err := h.coord.Assign(ctx, h.admin, ticket.ID, h.tech.UserID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusPending, a.Status)
	assert.Equal(t, domain.TicketStatusAssigned, h.ticket(t, ticket.ID).Status)

	a, err = h.coord.StartWork(ctx, h.tech, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusInProgress, a.Status)
	assert.NotNil(t, a.StartTime)
	assert.Equal(t, domain.TicketStatusInProgress, h.ticket(t, ticket.ID).Status)

	a, err = h.coord.SubmitEvidence(ctx, h.tech, a.ID, []string{"img1"})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusCompleted, a.Status)
	assert.Equal(t, domain.VerificationPending, a.Verification())
	assert.Equal(t, domain.TicketStatusInProgress, h.ticket(t, ticket.ID).Status)
	assert.Len(t, h.notifications(t, h.admin.UserID, domain.NotificationWarning), 1)
	assert.Len(t, h.notifications(t, h.supervisor.UserID, domain.NotificationWarning), 1)

	a, err = h.coord.Verify(ctx, h.supervisor, a.ID, VerifyReject, "redo")
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationRejected, a.Verification())
	assert.Equal(t, domain.AssignmentStatusInProgress, a.Status)
	assert.Nil(t, a.EndTime)
	require.NotNil(t, a.RejectionReason)
	assert.Equal(t, "redo", *a.RejectionReason)
	assert.Equal(t, domain.TicketStatusInProgress, h.ticket(t, ticket.ID).Status)
	warnings := h.notifications(t, h.tech.UserID, domain.NotificationWarning)
	require.Len(t, warnings, 1)
	assert.True(t, containsMessage(warnings, "redo"))

	a, err = h.coord.SubmitEvidence(ctx, h.tech, a.ID, []string{"img2"})
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationPending, a.Verification())
	assert.Equal(t, []string{"img2"}, a.CompletionNotes.Images)

	a, err = h.coord.Verify(ctx, h.admin, a.ID, VerifyApprove, "")
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationApproved, a.Verification())
	final := h.ticket(t, ticket.ID)
	assert.Equal(t, domain.TicketStatusCompleted, final.Status)
	assert.NotNil(t, final.CompletedAt)
	assert.Len(t, h.notifications(t, h.tech.UserID, domain.NotificationSuccess), 1)
	assert.Len(t, h.notifications(t, h.staff.UserID, domain.NotificationSuccess), 1)

	h.requireConsistent(t, ticket.ID, a.ID)

	history, err := h.coord.History(ctx, h.admin, ticket.ID)
	require.NoError(t, err)
	transitions := make([]string, 0, len(history))
	for _, entry := range history {
		transitions = append(transitions, entry.Transition)
	}
	assert.Equal(t, []string{
		"create_ticket", "assign", "start_work", "submit_evidence", "reject", "submit_evidence", "approve",
	}, transitions)
}

func TestScenarioWithoutVerification(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket, a := h.assigned(t, false)

	a, err := h.coord.SubmitEvidence(ctx, h.tech, a.ID, []string{"done.jpg"})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusCompleted, a.Status)
	assert.Equal(t, domain.VerificationApproved, a.Verification())
	assert.NotNil(t, a.StartTime)

	final := h.ticket(t, ticket.ID)
	assert.Equal(t, domain.TicketStatusCompleted, final.Status)
	assert.NotNil(t, final.CompletedAt)

	assert.Empty(t, h.notifications(t, h.admin.UserID, domain.NotificationWarning))
	assert.Empty(t, h.notifications(t, h.supervisor.UserID, domain.NotificationWarning))
	assert.Len(t, h.notifications(t, h.tech.UserID, domain.NotificationSuccess), 1)
	assert.Len(t, h.notifications(t, h.staff.UserID, domain.NotificationSuccess), 1)

	_, err = h.coord.Verify(ctx, h.admin, a.ID, VerifyApprove, "")
	assert.True(t, apperrors.IsConflict(err))
	h.requireConsistent(t, ticket.ID, a.ID)
}

func TestReworkLoopIsUnbounded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket, a := h.assigned(t, true)

	_, err := h.coord.StartWork(ctx, h.tech, a.ID)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		_, err = h.coord.SubmitEvidence(ctx, h.tech, a.ID, []string{"photo"})
		require.NoError(t, err, "iteration %d", i)
		h.requireConsistent(t, ticket.ID, a.ID)
		assert.NotEqual(t, domain.TicketStatusCompleted, h.ticket(t, ticket.ID).Status)

		_, err = h.coord.Verify(ctx, h.supervisor, a.ID, VerifyReject, "blurry")
		require.NoError(t, err, "iteration %d", i)
		h.requireConsistent(t, ticket.ID, a.ID)
		assert.NotEqual(t, domain.TicketStatusCompleted, h.ticket(t, ticket.ID).Status)
	}

	_, err = h.coord.SubmitEvidence(ctx, h.tech, a.ID, []string{"photo"})
	require.NoError(t, err)
	_, err = h.coord.Verify(ctx, h.admin, a.ID, VerifyApprove, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCompleted, h.ticket(t, ticket.ID).Status)
	h.requireConsistent(t, ticket.ID, a.ID)
}

func TestAssignRejectsSecondActiveAssignment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket, first := h.assigned(t, true)

	before := h.ticket(t, ticket.ID)
	historyBefore, err := h.store.History().ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)

	_, err = h.coord.Assign(ctx, h.admin, ticket.ID, h.tech2.UserID, true)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	after := h.ticket(t, ticket.ID)
	assert.Equal(t, before, after)
	assignments, err := h.store.Assignments().ListByTechnician(ctx, h.tech2.UserID)
	require.NoError(t, err)
	assert.Empty(t, assignments)
	historyAfter, err := h.store.History().ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, historyAfter, len(historyBefore))
	assert.Equal(t, first.ID, h.assignment(t, first.ID).ID)
	assert.Empty(t, h.notifications(t, h.tech2.UserID, domain.NotificationAssignment))
}

func TestSecondApproveIsConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket, a := h.assigned(t, true)

	_, err := h.coord.SubmitEvidence(ctx, h.tech, a.ID, []string{"img"})
	require.NoError(t, err)
	_, err = h.coord.Verify(ctx, h.admin, a.ID, VerifyApprove, "")
	require.NoError(t, err)
	stamped := h.ticket(t, ticket.ID).CompletedAt
	require.NotNil(t, stamped)

	_, err = h.coord.Verify(ctx, h.admin, a.ID, VerifyApprove, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = h.coord.Verify(ctx, h.supervisor, a.ID, VerifyReject, "late")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	assert.Equal(t, *stamped, *h.ticket(t, ticket.ID).CompletedAt)
	assert.Len(t, h.notifications(t, h.tech.UserID, domain.NotificationSuccess), 1)
	assert.Len(t, h.notifications(t, h.staff.UserID, domain.NotificationSuccess), 1)
	assert.Equal(t, int64(1), h.metrics.Snapshot().Transitions["approve|ok"])
	assert.Equal(t, int64(1), h.metrics.Snapshot().Transitions["approve|CONFLICT"])
}

func TestConcurrentVerifyHasOneWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket, a := h.assigned(t, true)
	_, err := h.coord.SubmitEvidence(ctx, h.tech, a.ID, []string{"img"})
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = h.coord.Verify(ctx, h.admin, a.ID, VerifyApprove, "")
			} else {
				_, err = h.coord.Verify(ctx, h.supervisor, a.ID, VerifyReject, "not done")
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperrors.IsConflict(err):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	h.requireConsistent(t, ticket.ID, a.ID)
}

func TestFailedTicketWriteRollsBackAssignment(t *testing.T) {
	boom := errors.New("disk full")
	h := newHarness(t, func(r *repoSet, _ *config.Config) {
		r.tickets = &failingTickets{TicketRepository: r.tickets, failOn: domain.TicketStatusInProgress, err: boom}
	})
	ctx := context.Background()
	ticket, a := h.assigned(t, true)

	_, err := h.coord.StartWork(ctx, h.tech, a.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePersistence))
	assert.ErrorIs(t, err, boom)

	stored := h.assignment(t, a.ID)
	assert.Equal(t, domain.AssignmentStatusPending, stored.Status)
	assert.Nil(t, stored.StartTime)
	assert.Equal(t, domain.TicketStatusAssigned, h.ticket(t, ticket.ID).Status)
	assert.False(t, containsMessage(h.notifications(t, h.staff.UserID, domain.NotificationTicket), "Work has started"))
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	h := newHarness(t, func(r *repoSet, _ *config.Config) {
		r.notifications = &failingNotifications{NotificationRepository: r.notifications, err: errors.New("notifications table locked")}
	})
	ctx := context.Background()
	ticket, a := h.assigned(t, true)

	_, err := h.coord.StartWork(ctx, h.tech, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, h.ticket(t, ticket.ID).Status)
	assert.Positive(t, h.metrics.Snapshot().NotificationFailures["store"])
}

func TestBroadcastFailureKeepsNotification(t *testing.T) {
	h := newHarness(t)
	h.broadcaster.err = errors.New("redis down")
	ctx := context.Background()
	_, a := h.assigned(t, true)

	_, err := h.coord.StartWork(ctx, h.tech, a.ID)
	require.NoError(t, err)
	assert.Len(t, h.notifications(t, h.tech.UserID, domain.NotificationAssignment), 1)
	assert.Positive(t, h.metrics.Snapshot().NotificationFailures["broadcast"])
	assert.Contains(t, h.broadcaster.channels, "notifications:"+h.tech.UserID)
}

func TestRoleGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket, a := h.assigned(t, true)

	cases := []struct {
		name string
		run  func() error
		code string
	}{
		{"staff cannot assign", func() error {
			_, err := h.coord.Assign(ctx, h.staff, ticket.ID, h.tech.UserID, true)
			return err
		}, apperrors.CodeForbidden},
		{"technician cannot create tickets", func() error {
			_, err := h.coord.CreateTicket(ctx, h.tech, CreateTicketInput{})
			return err
		}, apperrors.CodeForbidden},
		{"other technician cannot start", func() error {
			_, err := h.coord.StartWork(ctx, h.tech2, a.ID)
			return err
		}, apperrors.CodeForbidden},
		{"admin cannot start work", func() error {
			_, err := h.coord.StartWork(ctx, h.admin, a.ID)
			return err
		}, apperrors.CodeForbidden},
		{"technician cannot verify", func() error {
			_, err := h.coord.Verify(ctx, h.tech, a.ID, VerifyApprove, "")
			return err
		}, apperrors.CodeForbidden},
		{"supervisor cannot cancel", func() error {
			_, err := h.coord.Cancel(ctx, h.supervisor, ticket.ID, "")
			return err
		}, apperrors.CodeForbidden},
		{"anonymous actor", func() error {
			_, err := h.coord.Accept(ctx, domain.Actor{}, a.ID)
			return err
		}, apperrors.CodeUnauthorized},
		{"staff cannot decommission", func() error {
			_, err := h.coord.DecommissionTechnician(ctx, h.staff, h.tech.UserID)
			return err
		}, apperrors.CodeForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tc.code), "got %v", err)
		})
	}
	assert.Equal(t, domain.AssignmentStatusPending, h.assignment(t, a.ID).Status)
}

func TestValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket, a := h.assigned(t, true)

	_, err := h.coord.CreateTicket(ctx, h.staff, CreateTicketInput{Subject: "Lamp", Category: "ELECTRICAL", Location: "Hall"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.coord.CreateTicket(ctx, h.staff, CreateTicketInput{
		Subject: "Lamp", Category: "ELECTRICAL", Location: "Hall", Description: "Flickers", Priority: "URGENT",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	created, err := h.coord.CreateTicket(ctx, h.staff, CreateTicketInput{
		Subject: "Lamp", Category: "ELECTRICAL", Location: "Hall", Description: "Flickers",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityMedium, created.Priority)

	_, err = h.coord.SubmitEvidence(ctx, h.tech, a.ID, []string{" ", ""})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.coord.Assign(ctx, h.admin, created.ID, h.staff.UserID, true)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.coord.Assign(ctx, h.admin, created.ID, "00000000-0000-0000-0000-00000000ffff", true)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = h.coord.Assign(ctx, h.admin, "missing", h.tech.UserID, true)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = h.coord.SubmitEvidence(ctx, h.tech, a.ID, []string{"img"})
	require.NoError(t, err)
	_, err = h.coord.SubmitEvidence(ctx, h.tech, a.ID, []string{"img"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = h.coord.Verify(ctx, h.admin, a.ID, VerifyReject, "   ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.coord.Verify(ctx, h.admin, a.ID, VerifyAction("MAYBE"), "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	h.requireConsistent(t, ticket.ID, a.ID)
}

func TestRejectReasonOptionalWhenConfigured(t *testing.T) {
	h := newHarness(t, func(_ *repoSet, cfg *config.Config) {
		cfg.Lifecycle.RequireRejectReason = false
	})
	ctx := context.Background()
	_, a := h.assigned(t, true)
	_, err := h.coord.SubmitEvidence(ctx, h.tech, a.ID, []string{"img"})
	require.NoError(t, err)

	a, err = h.coord.Verify(ctx, h.admin, a.ID, VerifyReject, "")
	require.NoError(t, err)
	assert.Nil(t, a.RejectionReason)
}

func TestAcceptThenStart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket, a := h.assigned(t, true)

	a, err := h.coord.Accept(ctx, h.tech, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusAccepted, a.Status)
	assert.Equal(t, domain.TicketStatusAssigned, h.ticket(t, ticket.ID).Status)

	_, err = h.coord.Accept(ctx, h.tech, a.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	a, err = h.coord.StartWork(ctx, h.tech, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusInProgress, a.Status)

	_, err = h.coord.StartWork(ctx, h.tech, a.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	h.requireConsistent(t, ticket.ID, a.ID)
}

func TestCancelAndReopen(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket, a := h.assigned(t, true)
	_, err := h.coord.StartWork(ctx, h.tech, a.ID)
	require.NoError(t, err)

	cancelled, err := h.coord.Cancel(ctx, h.admin, ticket.ID, "duplicate report")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCancelled, cancelled.Status)
	released := h.assignment(t, a.ID)
	assert.Equal(t, domain.AssignmentStatusRejected, released.Status)
	assert.Nil(t, released.EndTime)
	assert.True(t, containsMessage(h.notifications(t, h.staff.UserID, domain.NotificationInfo), "duplicate report"))
	assert.Len(t, h.notifications(t, h.tech.UserID, domain.NotificationInfo), 1)

	_, err = h.coord.StartWork(ctx, h.tech, a.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	_, err = h.coord.Cancel(ctx, h.admin, ticket.ID, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = h.coord.Assign(ctx, h.admin, ticket.ID, h.tech2.UserID, true)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	reopened, err := h.coord.Reopen(ctx, h.admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, reopened.Status)

	_, err = h.coord.Reopen(ctx, h.admin, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	second, err := h.coord.Assign(ctx, h.admin, ticket.ID, h.tech2.UserID, true)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, second.ID)
	h.requireConsistent(t, ticket.ID, second.ID)
}

func TestCancelUnassignedTicket(t *testing.T) {
	h := newHarness(t)
	ticket := h.newTicket(t)

	cancelled, err := h.coord.Cancel(context.Background(), h.admin, ticket.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCancelled, cancelled.Status)
}

func TestRepairLogs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket, a := h.assigned(t, true)
	_, err := h.coord.StartWork(ctx, h.tech, a.ID)
	require.NoError(t, err)

	entry, err := h.coord.AddRepairLog(ctx, h.tech, a.ID, RepairLogInput{
		Description: "Replaced filter", Action: "replace", Status: domain.RepairLogOngoing, TimeSpent: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, h.tech.UserID, entry.TechnicianID)
	assert.Equal(t, domain.TicketStatusInProgress, h.ticket(t, ticket.ID).Status)

	_, err = h.coord.AddRepairLog(ctx, h.tech, a.ID, RepairLogInput{
		Description: "Compressor needs replacing", Status: domain.RepairLogNeedParts,
	})
	require.NoError(t, err)
	assert.True(t, containsMessage(h.notifications(t, h.admin.UserID, domain.NotificationWarning), "parts"))

	_, err = h.coord.AddRepairLog(ctx, h.tech, a.ID, RepairLogInput{Description: "", Status: domain.RepairLogOngoing})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = h.coord.AddRepairLog(ctx, h.tech, a.ID, RepairLogInput{Description: "x", Status: domain.RepairLogOngoing, TimeSpent: -1})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = h.coord.AddRepairLog(ctx, h.tech, a.ID, RepairLogInput{Description: "x", Status: "PAUSED"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = h.coord.AddRepairLog(ctx, h.tech, a.ID, RepairLogInput{Description: "Finished", Status: domain.RepairLogCompleted})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = h.coord.AddRepairLog(ctx, h.tech2, a.ID, RepairLogInput{Description: "x", Status: domain.RepairLogOngoing})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = h.coord.AddRepairLog(ctx, h.tech, a.ID, RepairLogInput{
		Description: "Finished", Status: domain.RepairLogCompleted, Attachments: []string{"after.jpg"},
	})
	require.NoError(t, err)
	completed := h.assignment(t, a.ID)
	assert.Equal(t, domain.AssignmentStatusCompleted, completed.Status)
	assert.Equal(t, domain.VerificationPending, completed.Verification())
	assert.Equal(t, []string{"after.jpg"}, completed.CompletionNotes.Images)
	h.requireConsistent(t, ticket.ID, a.ID)

	logs, err := h.coord.ListRepairLogs(ctx, h.staff, a.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 3)

	_, err = h.coord.ListRepairLogs(ctx, h.staff2, a.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = h.coord.Verify(ctx, h.admin, a.ID, VerifyApprove, "")
	require.NoError(t, err)
	_, err = h.coord.AddRepairLog(ctx, h.tech, a.ID, RepairLogInput{Description: "late note", Status: domain.RepairLogOngoing})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestReadVisibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket, a := h.assigned(t, true)

	view, err := h.coord.GetTicket(ctx, h.staff, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Assignment)
	assert.Equal(t, a.ID, view.Assignment.ID)

	_, err = h.coord.GetTicket(ctx, h.tech, ticket.ID)
	assert.NoError(t, err)
	_, err = h.coord.GetTicket(ctx, h.supervisor, ticket.ID)
	assert.NoError(t, err)
	_, err = h.coord.GetTicket(ctx, h.staff2, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	_, err = h.coord.GetTicket(ctx, h.staff, "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = h.coord.GetAssignment(ctx, h.tech2, a.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	got, err := h.coord.GetAssignment(ctx, h.tech, a.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.TicketID)

	mine, err := h.coord.ListTickets(ctx, h.staff, 10, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestDecommissionTechnician(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	open, openAssignment := h.assigned(t, true)
	_, err := h.coord.StartWork(ctx, h.tech, openAssignment.ID)
	require.NoError(t, err)
	_, err = h.coord.AddRepairLog(ctx, h.tech, openAssignment.ID, RepairLogInput{Description: "diagnosed", Status: domain.RepairLogOngoing})
	require.NoError(t, err)

	done, doneAssignment := h.assigned(t, false)
	_, err = h.coord.SubmitEvidence(ctx, h.tech, doneAssignment.ID, []string{"img"})
	require.NoError(t, err)
	require.NotEmpty(t, h.notifications(t, h.tech.UserID, domain.NotificationAssignment))

	report, err := h.coord.DecommissionTechnician(ctx, h.admin, h.tech.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.AssignmentsDeleted)
	assert.Equal(t, int64(1), report.RepairLogsDeleted)
	assert.Positive(t, report.NotificationsDeleted)
	assert.True(t, report.ProfileDeleted)
	assert.Equal(t, []string{open.ID}, report.TicketsReset)

	assert.Equal(t, domain.TicketStatusPending, h.ticket(t, open.ID).Status)
	assert.Equal(t, domain.TicketStatusCompleted, h.ticket(t, done.ID).Status)
	remaining, err := h.store.Notifications().ListByUser(ctx, h.tech.UserID, false, 100)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.NotEmpty(t, h.notifications(t, h.admin.UserID, domain.NotificationSystem))

	_, err = h.coord.Assign(ctx, h.admin, open.ID, h.tech.UserID, true)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	reassigned, err := h.coord.Assign(ctx, h.admin, open.ID, h.tech2.UserID, true)
	require.NoError(t, err)
	h.requireConsistent(t, open.ID, reassigned.ID)

	_, err = h.coord.DecommissionTechnician(ctx, h.admin, h.staff.UserID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestVerifyUnknownActionChecksRoleFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, a := h.assigned(t, true)

	_, err := h.coord.Verify(ctx, h.staff, a.ID, VerifyAction("MAYBE"), "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = h.coord.Verify(ctx, h.supervisor, a.ID, VerifyAction("MAYBE"), "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	transitions := h.metrics.Snapshot().Transitions
	assert.Equal(t, int64(1), transitions["verify|FORBIDDEN"])
	assert.Equal(t, int64(1), transitions["verify|VALIDATION_FAILED"])
	assert.Equal(t, domain.AssignmentStatusPending, h.assignment(t, a.ID).Status)
}

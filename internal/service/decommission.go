package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// DecommissionReport counts what removing a technician deleted.
type DecommissionReport struct {
	TechnicianID         string   `json:"technician_id"`
	RepairLogsDeleted    int64    `json:"repair_logs_deleted"`
	AssignmentsDeleted   int64    `json:"assignments_deleted"`
	NotificationsDeleted int64    `json:"notifications_deleted"`
	ProfileDeleted       bool     `json:"profile_deleted"`
	TicketsReset         []string `json:"tickets_reset"`
}

// DecommissionTechnician removes a technician's work records and profile in
// dependency order. Open tickets that lose their active assignment return to
// PENDING; completed and cancelled tickets keep their status.
func (c *LifecycleCoordinator) DecommissionTechnician(ctx context.Context, actor domain.Actor, technicianID string) (*DecommissionReport, error) {
	const transition = lifecycle.TransitionDecommission
	if err := c.authorize(transition, actor); err != nil {
		return nil, err
	}

	report := &DecommissionReport{TechnicianID: technicianID, TicketsReset: []string{}}
	err := c.uow.WithTx(ctx, func(ctx context.Context) error {
		user, err := c.users.GetByID(ctx, technicianID)
		if err != nil {
			return storeError("technician", technicianID, err)
		}
		if user.Role != domain.RoleTechnician {
			return apperrors.NewValidationError("user is not a technician", map[string]any{
				"technician_id": technicianID,
				"role":          string(user.Role),
			})
		}

		// Holding the profile row blocks concurrent Assign calls until the
		// cascade commits; they then find no profile.
		if _, err := c.technicians.GetForUpdate(ctx, technicianID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return storeError("technician", technicianID, err)
		}

		assignments, err := c.assignments.ListByTechnician(ctx, technicianID)
		if err != nil {
			return storeError("assignment", technicianID, err)
		}
		var open []*domain.Ticket
		for i := range assignments {
			a := assignments[i]
			if !a.Active() {
				continue
			}
			t, err := c.tickets.GetForUpdate(ctx, a.TicketID)
			if err != nil {
				return storeError("ticket", a.TicketID, err)
			}
			if !t.Status.Terminal() {
				open = append(open, t)
			}
		}

		if report.RepairLogsDeleted, err = c.repairLogs.DeleteByTechnician(ctx, technicianID); err != nil {
			return storeError("repair log", technicianID, err)
		}
		if report.AssignmentsDeleted, err = c.assignments.DeleteByTechnician(ctx, technicianID); err != nil {
			return storeError("assignment", technicianID, err)
		}
		if report.NotificationsDeleted, err = c.notifications.DeleteByUser(ctx, technicianID); err != nil {
			return storeError("notification", technicianID, err)
		}
		profiles, err := c.technicians.Delete(ctx, technicianID)
		if err != nil {
			return storeError("technician", technicianID, err)
		}
		report.ProfileDeleted = profiles > 0

		now := c.now()
		for _, t := range open {
			updated, err := c.setTicketStatus(ctx, t, domain.TicketStatusPending, now)
			if err != nil {
				return err
			}
			after := stateValues(updated.Status, nil)
			after["technician_id"] = technicianID
			if err := c.writeHistory(ctx, transition, actor, t.ID, nil, stateValues(t.Status, nil), after); err != nil {
				return err
			}
			report.TicketsReset = append(report.TicketsReset, t.ID)
		}
		return nil
	})
	c.record(transition, err)
	if err != nil {
		return nil, err
	}
	c.logger.Info("technician decommissioned",
		zap.String("technician_id", technicianID),
		zap.Int64("repair_logs", report.RepairLogsDeleted),
		zap.Int64("assignments", report.AssignmentsDeleted),
		zap.Int64("notifications", report.NotificationsDeleted),
		zap.Int("tickets_reset", len(report.TicketsReset)),
		zap.String("actor_id", actor.UserID))

	c.publish(ctx, events.Event{
		Type:    events.EventTechnicianDecommissioned,
		Actor:   actor,
		Payload: events.TechnicianDecommissionedPayload{TechnicianID: technicianID, ResetTickets: report.TicketsReset},
	})
	return report, nil
}

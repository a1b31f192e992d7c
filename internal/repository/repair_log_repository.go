package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// RepairLogRepository stores the append-only technician journal.
type RepairLogRepository interface {
	Create(ctx context.Context, log *domain.RepairLog) error
	ListByAssignment(ctx context.Context, assignmentID string) ([]domain.RepairLog, error)
	// DeleteByTechnician removes entries written by the technician or attached
	// to any of the technician's assignments.
	DeleteByTechnician(ctx context.Context, technicianID string) (int64, error)
}

type repairLogRepository struct {
	pool *pgxpool.Pool
}

// NewRepairLogRepository builds repository.
func NewRepairLogRepository(pool *pgxpool.Pool) RepairLogRepository {
	return &repairLogRepository{pool: pool}
}

func (r *repairLogRepository) Create(ctx context.Context, log *domain.RepairLog) error {
	const query = `
        INSERT INTO repair_logs (assignment_id, technician_id, description, action, status, time_spent, attachments)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	attachments := log.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		log.AssignmentID,
		log.TechnicianID,
		log.Description,
		log.Action,
		log.Status,
		log.TimeSpent,
		attachments,
	).Scan(&log.ID, &log.CreatedAt)
	return translate(err)
}

func (r *repairLogRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]domain.RepairLog, error) {
	const query = `
        SELECT id, assignment_id, technician_id, description, action, status, time_spent, attachments, created_at
        FROM repair_logs WHERE assignment_id=$1 ORDER BY created_at ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RepairLog
	for rows.Next() {
		var log domain.RepairLog
		if err := rows.Scan(
			&log.ID,
			&log.AssignmentID,
			&log.TechnicianID,
			&log.Description,
			&log.Action,
			&log.Status,
			&log.TimeSpent,
			&log.Attachments,
			&log.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, log)
	}
	return result, rows.Err()
}

func (r *repairLogRepository) DeleteByTechnician(ctx context.Context, technicianID string) (int64, error) {
	const query = `
        DELETE FROM repair_logs
        WHERE technician_id=$1
           OR assignment_id IN (SELECT id FROM assignments WHERE technician_id=$1)`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, technicianID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

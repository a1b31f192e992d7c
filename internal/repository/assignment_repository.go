package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// AssignmentRepository persists technician assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) error
	GetByID(ctx context.Context, id string) (*domain.Assignment, error)
	// GetForUpdate reads the assignment and locks it until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Assignment, error)
	// GetActiveByTicket returns the non-REJECTED assignment of a ticket or ErrNotFound.
	GetActiveByTicket(ctx context.Context, ticketID string) (*domain.Assignment, error)
	Update(ctx context.Context, assignment *domain.Assignment) error
	ListByTechnician(ctx context.Context, technicianID string) ([]domain.Assignment, error)
	DeleteByTechnician(ctx context.Context, technicianID string) (int64, error)
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository instantiates repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

const assignmentColumns = `id, ticket_id, technician_id, assigned_by_id, status, verification_status,
               needs_verification, start_time, end_time, notes, completion_notes, rejection_reason,
               created_at, updated_at`

func (r *assignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	notes, err := encodeCompletionNotes(a.CompletionNotes)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO assignments (ticket_id, technician_id, assigned_by_id, status, verification_status,
            needs_verification, start_time, end_time, notes, completion_notes, rejection_reason)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	err = conn(ctx, r.pool).QueryRow(ctx, query,
		a.TicketID,
		a.TechnicianID,
		a.AssignedByID,
		a.Status,
		a.VerificationStatus,
		a.NeedsVerification,
		a.StartTime,
		a.EndTime,
		a.Notes,
		notes,
		a.RejectionReason,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return translate(err)
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*domain.Assignment, error) {
	return r.fetchSingle(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id=$1`, id)
}

func (r *assignmentRepository) GetForUpdate(ctx context.Context, id string) (*domain.Assignment, error) {
	return r.fetchSingle(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id=$1 FOR UPDATE`, id)
}

func (r *assignmentRepository) GetActiveByTicket(ctx context.Context, ticketID string) (*domain.Assignment, error) {
	const query = `SELECT ` + assignmentColumns + ` FROM assignments
        WHERE ticket_id=$1 AND status <> 'REJECTED'
        ORDER BY created_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, ticketID)
}

func (r *assignmentRepository) Update(ctx context.Context, a *domain.Assignment) error {
	notes, err := encodeCompletionNotes(a.CompletionNotes)
	if err != nil {
		return err
	}
	const query = `
        UPDATE assignments SET status=$1, verification_status=$2, start_time=$3, end_time=$4,
            notes=$5, completion_notes=$6, rejection_reason=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	err = conn(ctx, r.pool).QueryRow(ctx, query,
		a.Status,
		a.VerificationStatus,
		a.StartTime,
		a.EndTime,
		a.Notes,
		notes,
		a.RejectionReason,
		a.ID,
	).Scan(&a.UpdatedAt)
	return translate(err)
}

func (r *assignmentRepository) ListByTechnician(ctx context.Context, technicianID string) ([]domain.Assignment, error) {
	const query = `SELECT ` + assignmentColumns + ` FROM assignments
        WHERE technician_id=$1 ORDER BY created_at DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, technicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *assignmentRepository) DeleteByTechnician(ctx context.Context, technicianID string) (int64, error) {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM assignments WHERE technician_id=$1`, technicianID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *assignmentRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Assignment, error) {
	a, err := scanAssignment(conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

func scanAssignment(row pgx.Row) (*domain.Assignment, error) {
	var (
		a     domain.Assignment
		notes []byte
	)
	if err := row.Scan(
		&a.ID,
		&a.TicketID,
		&a.TechnicianID,
		&a.AssignedByID,
		&a.Status,
		&a.VerificationStatus,
		&a.NeedsVerification,
		&a.StartTime,
		&a.EndTime,
		&a.Notes,
		&notes,
		&a.RejectionReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(notes) > 0 {
		var decoded domain.CompletionNotes
		if err := json.Unmarshal(notes, &decoded); err != nil {
			return nil, fmt.Errorf("decode completion notes: %w", err)
		}
		a.CompletionNotes = &decoded
	}
	return &a, nil
}

func encodeCompletionNotes(notes *domain.CompletionNotes) ([]byte, error) {
	if notes == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(notes)
	if err != nil {
		return nil, fmt.Errorf("encode completion notes: %w", err)
	}
	return encoded, nil
}

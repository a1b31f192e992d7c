package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetForUpdate reads the ticket and locks it until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	// SetStatus writes a reachable status. Entering COMPLETED stamps
	// completedAt (now when nil); every other status clears it.
	SetStatus(ctx context.Context, id string, status domain.TicketStatus, completedAt *time.Time) (*domain.Ticket, error)
	ListByReporter(ctx context.Context, reporterID string, limit, offset int) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, reporter_id, category, subject, description, location,
               priority, status, created_at, updated_at, completed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, reporter_id, category, subject, description, location, priority, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.ReporterID,
		ticket.Category,
		ticket.Subject,
		ticket.Description,
		ticket.Location,
		ticket.Priority,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return translate(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, id)
}

func (r *ticketRepository) SetStatus(ctx context.Context, id string, status domain.TicketStatus, completedAt *time.Time) (*domain.Ticket, error) {
	current, err := r.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanMoveTicket(current.Status, status) {
		return nil, apperrors.NewInvalidTransition(string(current.Status), string(status), map[string]any{"ticket_id": id})
	}

	var stamp *time.Time
	if status == domain.TicketStatusCompleted {
		stamp = completedAt
		if stamp == nil {
			now := time.Now().UTC()
			stamp = &now
		}
	}

	const query = `
        UPDATE tickets SET status=$1, completed_at=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING ` + ticketColumns
	return r.fetchSingle(ctx, query, status, stamp, id)
}

func (r *ticketRepository) ListByReporter(ctx context.Context, reporterID string, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE reporter_id=$1
        ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
	rows, err := conn(ctx, r.pool).Query(ctx, query, reporterID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	ticket, err := scanTicket(conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.ReporterID,
		&ticket.Category,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Location,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// TechnicianRepository persists technician profiles.
type TechnicianRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.TechnicianProfile, error)
	// GetForUpdate locks the profile row for the rest of the transaction.
	GetForUpdate(ctx context.Context, userID string) (*domain.TechnicianProfile, error)
	Delete(ctx context.Context, userID string) (int64, error)
}

type technicianRepository struct {
	pool *pgxpool.Pool
}

// NewTechnicianRepository builds repository.
func NewTechnicianRepository(pool *pgxpool.Pool) TechnicianRepository {
	return &technicianRepository{pool: pool}
}

const technicianColumns = `user_id, specialty, available, created_at`

func (r *technicianRepository) GetByUserID(ctx context.Context, userID string) (*domain.TechnicianProfile, error) {
	return r.fetchSingle(ctx, `SELECT `+technicianColumns+` FROM technician_profiles WHERE user_id=$1`, userID)
}

func (r *technicianRepository) GetForUpdate(ctx context.Context, userID string) (*domain.TechnicianProfile, error) {
	return r.fetchSingle(ctx, `SELECT `+technicianColumns+` FROM technician_profiles WHERE user_id=$1 FOR UPDATE`, userID)
}

func (r *technicianRepository) fetchSingle(ctx context.Context, query, userID string) (*domain.TechnicianProfile, error) {
	var profile domain.TechnicianProfile
	if err := conn(ctx, r.pool).QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.Specialty,
		&profile.Available,
		&profile.CreatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *technicianRepository) Delete(ctx context.Context, userID string) (int64, error) {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM technician_profiles WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/logger"
)

const sessionColumns = `id, customer_id, astrologer_id, service_type, rate_per_minute, status, connection_id,
	start_time, end_time, duration_minutes, total_amount, rating, settled_at, version, created_at, updated_at`

type sessionRepository struct {
	q sqlx.ExtContext
}

func (r *sessionRepository) Create(ctx context.Context, s *domain.Session) error {
	logger.EnterMethod("sessionRepository.Create", "customerID", s.CustomerID, "astrologerID", s.AstrologerID, "serviceType", s.ServiceType)

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = s.CreatedAt
	s.Version = 1

	query := `INSERT INTO sessions (id, customer_id, astrologer_id, service_type, rate_per_minute, status,
	          duration_minutes, total_amount, version, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.ExecContext(ctx, query, s.ID, s.CustomerID, s.AstrologerID, string(s.ServiceType), s.RatePerMinute,
		string(s.Status), s.DurationMinutes, s.TotalAmount, s.Version, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		logger.ExitMethodWithError("sessionRepository.Create", err)
		return mapError(err)
	}
	logger.ExitMethod("sessionRepository.Create", "sessionID", s.ID)
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.get(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
}

func (r *sessionRepository) GetForUpdate(ctx context.Context, id string) (*domain.Session, error) {
	return r.get(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, id)
}

func (r *sessionRepository) get(ctx context.Context, query, id string) (*domain.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	s := &domain.Session{}
	if err := sqlx.GetContext(ctx, r.q, s, query, id); err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

func (r *sessionRepository) Update(ctx context.Context, s *domain.Session) error {
	logger.EnterMethod("sessionRepository.Update", "sessionID", s.ID, "status", s.Status, "version", s.Version)

	updatedAt := time.Now().UTC()
	query := `UPDATE sessions SET status = $1, connection_id = $2, start_time = $3, end_time = $4,
	          duration_minutes = $5, total_amount = $6, rating = $7, settled_at = $8,
	          version = version + 1, updated_at = $9
	          WHERE id = $10 AND version = $11`
	logger.DatabaseCall("UPDATE", "sessions", "sessionID", s.ID)
	res, err := r.q.ExecContext(ctx, query, string(s.Status), s.ConnectionID, s.StartTime, s.EndTime,
		s.DurationMinutes, s.TotalAmount, s.Rating, s.SettledAt, updatedAt, s.ID, s.Version)
	if err != nil {
		logger.ExitMethodWithError("sessionRepository.Update", err)
		return mapError(err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err, "sessionID", s.ID)
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		err = fmt.Errorf("%w: session %s at version %d", domain.ErrConcurrentUpdate, s.ID, s.Version)
		logger.ExitMethodWithError("sessionRepository.Update", err)
		return err
	}
	s.Version++
	s.UpdatedAt = updatedAt
	logger.ExitMethod("sessionRepository.Update", "sessionID", s.ID, "version", s.Version)
	return nil
}

func (r *sessionRepository) ListByStatus(ctx context.Context, statuses []domain.SessionStatus, updatedBefore time.Time) ([]domain.Session, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	var sessions []domain.Session
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE status = ANY($1) AND updated_at < $2 ORDER BY updated_at`
	if err := sqlx.SelectContext(ctx, r.q, &sessions, query, pq.Array(names), updatedBefore); err != nil {
		return nil, mapError(err)
	}
	return sessions, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"astroconsult-backend/internal/domain"
)

type userRepository struct {
	q sqlx.ExtContext
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, name, email, role, wallet_balance, device_token, created_at, updated_at FROM users WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.q, u, query, id); err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// EnsurePlatformUser creates the account that receives commission if it is
// missing, and fails when the id already belongs to a non-platform user.
func (s *Store) EnsurePlatformUser(ctx context.Context, id string) error {
	query := `INSERT INTO users (id, name, role) VALUES ($1, 'Platform', 'platform') ON CONFLICT (id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return mapError(err)
	}
	u, err := (&userRepository{q: s.db}).GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.Role != domain.RolePlatform {
		return fmt.Errorf("%w: platform user %s has role %s", domain.ErrValidation, id, u.Role)
	}
	return nil
}

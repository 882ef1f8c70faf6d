// Package roles resolves a user's authorization level.
package roles

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfmark/shelfmark/internal/models"
)

// Resolver maps (user, chat) to a role. Unknown users are plain users.
type Resolver interface {
	Resolve(ctx context.Context, userID, chatID int64) (models.Role, error)
}

// PGResolver resolves roles from the admins table.
type PGResolver struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPGResolver creates a database-backed role resolver.
func NewPGResolver(log *slog.Logger, pool *pgxpool.Pool) *PGResolver {
	if log == nil {
		log = slog.Default()
	}
	return &PGResolver{
		pool:   pool,
		logger: log.With(slog.String("service", "roles")),
	}
}

// Resolve returns the stored role for the user, or USER when absent.
func (r *PGResolver) Resolve(ctx context.Context, userID, _ int64) (models.Role, error) {
	var role string
	err := r.pool.QueryRow(ctx, "SELECT role FROM admins WHERE user_id = $1", userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.RoleUser, nil
	}
	if err != nil {
		return models.RoleUser, err
	}
	return models.ParseRole(role), nil
}

// Grant stores or updates a user's role.
func (r *PGResolver) Grant(ctx context.Context, userID int64, name string, role models.Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO admins (user_id, name, role) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role`,
		userID, name, role.String(),
	)
	return err
}

// Revoke removes a user's stored role.
func (r *PGResolver) Revoke(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM admins WHERE user_id = $1", userID)
	return err
}

// Static is a fixed user-to-role map, used in tests.
type Static map[int64]models.Role

// Resolve returns the mapped role, or USER when absent.
func (s Static) Resolve(_ context.Context, userID, _ int64) (models.Role, error) {
	if role, ok := s[userID]; ok {
		return role, nil
	}
	return models.RoleUser, nil
}

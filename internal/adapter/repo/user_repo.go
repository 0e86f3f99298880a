package repo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"veostudio/internal/domain"
	"veostudio/internal/infra"
	"veostudio/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

// Credits returns the remaining credit balance of userID.
func (r *UserRepositoryPG) Credits(ctx context.Context, userID string) (int, error) {
	var credits int
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectUserCredits, userID).Scan(&credits); err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return credits, nil
}

// IDByEmail resolves an account id from its email, case-insensitively.
func (r *UserRepositoryPG) IDByEmail(ctx context.Context, email string) (string, error) {
	var id string
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectUserIDByEmail, email).Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return id, nil
}

// SetCredits overwrites the balance. Negative values are stored as zero.
func (r *UserRepositoryPG) SetCredits(ctx context.Context, userID string, credits int) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QSetUserCredits, userID, credits))
}

// AddCredits adjusts the balance by delta, flooring it at zero.
func (r *UserRepositoryPG) AddCredits(ctx context.Context, userID string, delta int) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QAddUserCredits, userID, delta))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Credits); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)

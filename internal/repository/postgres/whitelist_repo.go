package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"go-saas-backend/internal/domain"
)

type whitelistRepo struct {
	db *pgxpool.Pool
}

func NewWhitelistRepository(db *pgxpool.Pool) domain.WhitelistRepository {
	return &whitelistRepo{db: db}
}

func (r *whitelistRepo) Contains(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM whitelist WHERE lower(email) = $1)`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

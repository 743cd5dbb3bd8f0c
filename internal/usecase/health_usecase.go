package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"go-saas-backend/pkg/logger"
)

type HealthUsecase struct {
	db *pgxpool.Pool
}

func NewHealthUsecase(db *pgxpool.Pool) *HealthUsecase {
	return &HealthUsecase{db: db}
}

func (u *HealthUsecase) Check() map[string]string {
	return map[string]string{"status": "healthy"}
}

// Detailed reports per-dependency health without exposing error detail.
func (u *HealthUsecase) Detailed(ctx context.Context) map[string]any {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	database := "connected"
	status := "healthy"
	if err := u.db.Ping(ctx); err != nil {
		logger.Log.Error("database health check failed", "error", err)
		database = "disconnected"
		status = "degraded"
	}

	return map[string]any{
		"status":   status,
		"database": database,
	}
}

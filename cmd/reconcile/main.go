package main

import (
	"context"
	"log"
	"os"
	"time"

	"go-saas-backend/config"
	"go-saas-backend/internal/domain"
	"go-saas-backend/internal/provider/supabase"
	"go-saas-backend/internal/repository/postgres"
	"go-saas-backend/pkg/database"
	"go-saas-backend/pkg/logger"
)

// One-shot job that backfills profile rows for auth users created before the
// profiles table existed (or outside the signup flow). Safe to re-run.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init()
	logger.Log.Info("Starting profile reconciliation")

	dbPool, err := database.NewPostgresConnection(database.Config{
		URL:      cfg.DBUrl,
		MaxConns: int32(cfg.DBMaxConns),
		MinConns: int32(cfg.DBMinConns),
	})
	if err != nil {
		logger.Log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	profileRepo := postgres.NewProfileRepository(dbPool)
	supabaseClient := supabase.NewClient(cfg.SupabaseUrl, cfg.SupabaseAnonKey, cfg.SupabaseServiceKey, cfg.AppURL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	identities, err := supabaseClient.AdminListUsers(ctx)
	if err != nil {
		logger.Log.Error("Failed to list auth users", "error", err)
		os.Exit(1)
	}

	var created, existing, failed int
	for _, identity := range identities {
		profile, err := profileRepo.GetByID(ctx, identity.ID)
		if err != nil {
			logger.Log.Warn("Profile lookup failed", "user_id", identity.ID, "error", err)
			failed++
			continue
		}
		if profile != nil {
			existing++
			continue
		}

		createdAt := identity.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		err = profileRepo.Upsert(ctx, &domain.Profile{
			ID:        identity.ID,
			Email:     identity.Email,
			IsAdmin:   cfg.AdminEmail != "" && identity.Email == cfg.AdminEmail,
			Language:  "en",
			CreatedAt: createdAt,
			UpdatedAt: time.Now(),
		})
		if err != nil {
			logger.Log.Warn("Profile upsert failed", "user_id", identity.ID, "error", err)
			failed++
			continue
		}
		created++
	}

	logger.Log.Info("Reconciliation complete",
		"total", len(identities),
		"created", created,
		"existing", existing,
		"failed", failed,
	)
	if failed > 0 {
		os.Exit(1)
	}
}

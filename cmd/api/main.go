package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-saas-backend/config"
	v1 "go-saas-backend/internal/delivery/http/v1"
	"go-saas-backend/internal/domain"
	"go-saas-backend/internal/provider/payment"
	"go-saas-backend/internal/provider/supabase"
	"go-saas-backend/internal/repository/postgres"
	"go-saas-backend/internal/usecase"
	"go-saas-backend/pkg/database"
	"go-saas-backend/pkg/logger"
	"go-saas-backend/pkg/redis"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init()
	logger.Log.Info("Starting backend", "port", cfg.Port)

	// 3. Setup Database
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

	// 4. Setup Redis (optional, rate limiting falls back to in-memory)
	if cfg.RedisURL != "" {
		if err := redis.Initialize(redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword}); err != nil {
			logger.Log.Warn("Redis unavailable, rate limiting falls back to in-memory", "error", err)
		} else {
			defer redis.Close()
		}
	}

	// 5. Setup Repositories
	profileRepo := postgres.NewProfileRepository(dbPool)
	whitelistRepo := postgres.NewWhitelistRepository(dbPool)

	// 6. Setup Providers
	supabaseClient := supabase.NewClient(cfg.SupabaseUrl, cfg.SupabaseAnonKey, cfg.SupabaseServiceKey, cfg.AppURL)
	verifier := supabase.NewTokenVerifier(cfg.SupabaseJWTSecret, cfg.SupabaseUrl)

	// 7. Setup UseCases
	authUC := usecase.NewAuthUsecase(supabaseClient, verifier, profileRepo, whitelistRepo, cfg.AdminEmail, cfg.WhitelistMode)
	userUC := usecase.NewUserUsecase(profileRepo, supabaseClient, cfg.AdminEmail)
	adminUC := usecase.NewAdminUsecase(profileRepo, supabaseClient)
	healthUC := usecase.NewHealthUsecase(dbPool)

	var billingUC domain.BillingUsecase
	if cfg.StripeEnabled {
		stripeClient := payment.NewStripeClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.AppURL)
		billingUC = usecase.NewBillingUsecase(profileRepo, stripeClient, true, cfg.StripePriceMonthly, cfg.StripePriceYearly)
	} else {
		logger.Log.Info("Billing disabled, billing routes not mounted")
	}

	// 8. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		AuthUC:    authUC,
		UserUC:    userUC,
		AdminUC:   adminUC,
		BillingUC: billingUC,
		HealthUC:  healthUC,
		Config:    cfg,
	})

	// 9. Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}

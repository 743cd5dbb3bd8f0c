package v1

import (
	"regexp"
	"time"

	"go-saas-backend/config"
	"go-saas-backend/internal/delivery/http/middleware"
	"go-saas-backend/internal/domain"
	"go-saas-backend/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type RouterDeps struct {
	AuthUC    domain.AuthUsecase
	UserUC    domain.UserUsecase
	AdminUC   domain.AdminUsecase
	BillingUC domain.BillingUsecase // nil when billing is disabled
	HealthUC  *usecase.HealthUsecase
	Config    *config.Config
}

// "en", "pt", "pt-BR"
var languageRe = regexp.MustCompile(`^[a-z]{2}(-[A-Za-z]{2})?$`)

func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("language", func(fl validator.FieldLevel) bool {
			return languageRe.MatchString(fl.Field().String())
		})
	}
}

func NewRouter(deps RouterDeps) *gin.Engine {
	registerValidations()

	r := gin.New()

	window := time.Duration(deps.Config.RateLimitWindowSeconds) * time.Second

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(deps.Config.CORSOrigins)) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimitMiddleware(middleware.DefaultRateLimitConfig(deps.Config.RateLimitGlobalThreshold, window)))

	api := r.Group("/api")

	// Public routes
	NewHealthHandler(api, deps.HealthUC)
	NewAuthHandler(api, deps.AuthUC, middleware.RateLimitMiddleware(middleware.AuthRateLimitConfig(deps.Config.RateLimitLoginThreshold, window)))

	// Protected routes
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(deps.AuthUC))
	{
		NewUserHandler(protected, deps.UserUC)
		NewAdminHandler(protected, deps.AdminUC, middleware.AdminOnly(deps.AuthUC))
		if deps.BillingUC != nil {
			NewBillingHandler(api, protected, deps.BillingUC)
		}
	}

	return r
}

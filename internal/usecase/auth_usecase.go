package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-saas-backend/internal/domain"
	"go-saas-backend/internal/provider/supabase"
	"go-saas-backend/pkg/apperror"
	"go-saas-backend/pkg/logger"
)

type authUsecase struct {
	provider      domain.IdentityProvider
	verifier      domain.TokenVerifier
	profiles      domain.ProfileRepository
	whitelist     domain.WhitelistRepository
	adminEmail    string
	whitelistMode bool
}

func NewAuthUsecase(
	provider domain.IdentityProvider,
	verifier domain.TokenVerifier,
	profiles domain.ProfileRepository,
	whitelist domain.WhitelistRepository,
	adminEmail string,
	whitelistMode bool,
) domain.AuthUsecase {
	return &authUsecase{
		provider:      provider,
		verifier:      verifier,
		profiles:      profiles,
		whitelist:     whitelist,
		adminEmail:    adminEmail,
		whitelistMode: whitelistMode,
	}
}

func (u *authUsecase) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	session, err := u.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		// Wrong password, unknown account and provider trouble all look the
		// same to the caller
		return nil, apperror.Unauthorized("Invalid credentials")
	}
	return session, nil
}

func (u *authUsecase) Signup(ctx context.Context, email, password string) (*domain.Session, error) {
	if u.whitelistMode {
		allowed, err := u.whitelist.Contains(ctx, email)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		if !allowed {
			return nil, apperror.Forbidden("Registration is by invitation only")
		}
	}

	session, err := u.provider.SignUp(ctx, email, password)
	if err != nil {
		var sbErr *supabase.Error
		if errors.As(err, &sbErr) && sbErr.Status < http.StatusInternalServerError {
			return nil, apperror.BadRequest(sbErr.Message)
		}
		return nil, apperror.New(http.StatusInternalServerError, "Registration service unavailable", err)
	}

	// Eager profile row with the operator default baked in. Failure is logged
	// and tolerated: resolution falls back to the same default until the row
	// exists.
	now := time.Now()
	profile := &domain.Profile{
		ID:        session.User.ID,
		Email:     email,
		IsAdmin:   u.adminEmail != "" && email == u.adminEmail,
		Language:  "en",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.profiles.Create(ctx, profile); err != nil {
		logger.Log.Warn("failed to create profile at signup", "user_id", session.User.ID, "error", err)
	}

	return session, nil
}

// SendPasswordReset never reveals whether the email exists. Provider failures
// are logged and swallowed.
func (u *authUsecase) SendPasswordReset(ctx context.Context, email string) {
	if err := u.provider.SendPasswordReset(ctx, email); err != nil {
		logger.Log.Debug("password reset request failed", "error", err)
	}
}

func (u *authUsecase) Logout(ctx context.Context, accessToken string) {
	if err := u.provider.SignOut(ctx, accessToken); err != nil {
		logger.Log.Debug("logout request failed", "error", err)
	}
}

// Resolve verifies the token and merges the identity with its profile row.
// The profile fetch is best-effort: an unavailable store (table not migrated,
// connection down) degrades to defaults so authentication stays available.
func (u *authUsecase) Resolve(ctx context.Context, token string) (domain.EffectiveUser, error) {
	identity, err := u.verifier.Verify(ctx, token)
	if err != nil {
		return domain.EffectiveUser{}, apperror.Unauthorized("Invalid authentication credentials")
	}

	profile, err := u.profiles.GetByID(ctx, identity.ID)
	if err != nil {
		logger.Log.Warn("profile lookup failed, resolving with defaults", "user_id", identity.ID, "error", err)
		profile = nil
	}

	return domain.NewEffectiveUser(identity, profile, u.adminEmail), nil
}

func (u *authUsecase) RequireAdmin(user domain.EffectiveUser) error {
	if !user.IsAdmin {
		return apperror.Forbidden("Not enough permissions")
	}
	return nil
}

package usecase

import (
	"context"
	"time"

	"go-saas-backend/internal/domain"
	"go-saas-backend/pkg/apperror"
	"go-saas-backend/pkg/logger"
)

type userUsecase struct {
	profiles   domain.ProfileRepository
	provider   domain.IdentityProvider
	adminEmail string
}

func NewUserUsecase(profiles domain.ProfileRepository, provider domain.IdentityProvider, adminEmail string) domain.UserUsecase {
	return &userUsecase{profiles: profiles, provider: provider, adminEmail: adminEmail}
}

// UpdateMe applies a partial profile update; unset fields are left untouched.
// A legacy identity without a profile row gets one written on first update,
// materializing the resolved defaults so the submitted fields are not lost.
func (u *userUsecase) UpdateMe(ctx context.Context, user domain.EffectiveUser, req domain.UpdateProfileRequest) (domain.EffectiveUser, error) {
	if err := u.profiles.UpdateAttributes(ctx, user.ID, req.Name, req.Language); err != nil {
		return domain.EffectiveUser{}, apperror.BadRequest("Failed to update profile")
	}

	profile, err := u.profiles.GetByID(ctx, user.ID)
	if err != nil {
		logger.Log.Warn("profile re-read failed after update", "user_id", user.ID, "error", err)
		profile = nil
	} else if profile == nil {
		profile, err = u.materializeProfile(ctx, user, req)
		if err != nil {
			return domain.EffectiveUser{}, apperror.BadRequest("Failed to update profile")
		}
	}

	identity := domain.Identity{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt}
	return domain.NewEffectiveUser(identity, profile, u.adminEmail), nil
}

// materializeProfile writes the row the attribute UPDATE found missing,
// carrying the resolved user's state plus the submitted fields.
func (u *userUsecase) materializeProfile(ctx context.Context, user domain.EffectiveUser, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	now := time.Now()
	profile := &domain.Profile{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		IsAdmin:   user.IsAdmin,
		Language:  user.Language,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !user.CreatedAt.IsZero() {
		profile.CreatedAt = user.CreatedAt
	}
	if req.Name != nil {
		profile.Name = req.Name
	}
	if req.Language != nil {
		profile.Language = *req.Language
	}
	if profile.Language == "" {
		profile.Language = "en"
	}

	if err := u.profiles.Upsert(ctx, profile); err != nil {
		logger.Log.Warn("profile backfill failed during update", "user_id", user.ID, "error", err)
		return nil, err
	}
	return profile, nil
}

// DeleteMe removes the identity at the auth provider; dependent rows cascade
// at the store.
func (u *userUsecase) DeleteMe(ctx context.Context, user domain.EffectiveUser) error {
	if err := u.provider.AdminDeleteUser(ctx, user.ID); err != nil {
		return apperror.BadRequest("Failed to delete account")
	}
	return nil
}

func (u *userUsecase) Stats(ctx context.Context) domain.UsageStats {
	return u.profiles.Counts(ctx, domain.NewStatsCutoffs(time.Now()))
}

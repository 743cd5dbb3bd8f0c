package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"time"

	"go-saas-backend/internal/domain"
	"go-saas-backend/pkg/apperror"
	"go-saas-backend/pkg/logger"
)

type adminUsecase struct {
	profiles domain.ProfileRepository
	provider domain.IdentityProvider
}

func NewAdminUsecase(profiles domain.ProfileRepository, provider domain.IdentityProvider) domain.AdminUsecase {
	return &adminUsecase{profiles: profiles, provider: provider}
}

// ListUsers returns one page of the identity+profile join. Page constraints
// are checked before any query runs.
func (u *adminUsecase) ListUsers(ctx context.Context, q domain.ListUsersQuery) (*domain.UserList, error) {
	if q.Page < 1 {
		return nil, apperror.BadRequest("page must be >= 1")
	}
	if q.PerPage < domain.MinPerPage || q.PerPage > domain.MaxPerPage {
		return nil, apperror.BadRequest("per_page must be between 1 and 100")
	}
	if q.Role != "" && q.Role != domain.RoleFilterAdmin && q.Role != domain.RoleFilterUser {
		return nil, apperror.BadRequest("role must be 'admin' or 'user'")
	}

	profiles, total, err := u.profiles.List(ctx, q)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	users := make([]domain.AdminUser, 0, len(profiles))
	for _, p := range profiles {
		users = append(users, u.joinIdentity(ctx, p))
	}

	return &domain.UserList{
		Users:   users,
		Total:   total,
		Page:    q.Page,
		PerPage: q.PerPage,
	}, nil
}

// joinIdentity enriches a profile row with the provider's view of the account.
// When the provider lookup fails the denormalized profile copy is used so the
// listing stays available.
func (u *adminUsecase) joinIdentity(ctx context.Context, p domain.Profile) domain.AdminUser {
	email := p.Email
	createdAt := p.CreatedAt

	identity, err := u.provider.AdminGetUser(ctx, p.ID)
	if err != nil {
		logger.Log.Warn("auth user lookup failed, using profile copy", "user_id", p.ID, "error", err)
	} else {
		email = identity.Email
		createdAt = identity.CreatedAt
	}

	return domain.AdminUser{
		ID:        p.ID,
		Email:     email,
		Name:      p.Name,
		IsAdmin:   p.IsAdmin,
		Language:  p.Language,
		CreatedAt: createdAt.Format(time.RFC3339),
	}
}

func (u *adminUsecase) SetAdmin(ctx context.Context, actor domain.EffectiveUser, targetID string, isAdmin bool) error {
	if targetID == actor.ID {
		return apperror.BadRequest("Cannot change your own admin status")
	}
	if err := u.profiles.SetAdmin(ctx, targetID, isAdmin); err != nil {
		return apperror.BadRequest("Failed to update user")
	}
	return nil
}

func (u *adminUsecase) DeleteUser(ctx context.Context, actor domain.EffectiveUser, targetID string) error {
	if targetID == actor.ID {
		return apperror.BadRequest("Cannot delete your own account")
	}
	// Deleting the identity cascades to the profile row at the store
	if err := u.provider.AdminDeleteUser(ctx, targetID); err != nil {
		return apperror.BadRequest("Failed to delete user")
	}
	return nil
}

// ExportCSV renders the full unfiltered join, one row per profile.
func (u *adminUsecase) ExportCSV(ctx context.Context) ([]byte, error) {
	profiles, err := u.profiles.All(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"ID", "Email", "Name", "Admin", "Language", "Created At"}); err != nil {
		return nil, apperror.Internal(err)
	}

	for _, p := range profiles {
		row := u.joinIdentity(ctx, p)

		name := ""
		if row.Name != nil {
			name = *row.Name
		}
		admin := "No"
		if row.IsAdmin {
			admin = "Yes"
		}

		if err := w.Write([]string{row.ID, row.Email, name, admin, row.Language, row.CreatedAt}); err != nil {
			return nil, apperror.Internal(err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperror.Internal(err)
	}
	return buf.Bytes(), nil
}

func (u *adminUsecase) Stats(ctx context.Context) domain.UsageStats {
	return u.profiles.Counts(ctx, domain.NewStatsCutoffs(time.Now()))
}

package domain

import (
	"context"
	"time"
)

// Identity is the account record owned by the auth provider. It is never
// written by this service except through the provider's own API.
type Identity struct {
	ID        string    `json:"id"` // Supabase UUID
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the application-owned row layered on top of an Identity.
// It is created lazily: an Identity without a Profile is a valid state.
type Profile struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               *string   `json:"name,omitempty"`
	IsAdmin            bool      `json:"is_admin"`
	Language           string    `json:"language"`
	StripeCustomerID   *string   `json:"stripe_customer_id,omitempty"`
	SubscriptionStatus *string   `json:"subscription_status,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// EffectiveUser is the request-time merge of Identity and Profile. It is
// recomputed on every request and never stored.
type EffectiveUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEffectiveUser merges an Identity with an optional Profile.
//
// This is the only place the admin-email fallback lives: when no profile row
// exists, the configured operator email is admin; once a profile row exists its
// is_admin column is authoritative, even when that demotes the operator email.
func NewEffectiveUser(identity Identity, profile *Profile, adminEmail string) EffectiveUser {
	u := EffectiveUser{
		ID:        identity.ID,
		Email:     identity.Email,
		Language:  "en",
		CreatedAt: identity.CreatedAt,
	}

	if profile == nil {
		u.IsAdmin = adminEmail != "" && identity.Email == adminEmail
		return u
	}

	u.Name = profile.Name
	u.IsAdmin = profile.IsAdmin
	if profile.Language != "" {
		u.Language = profile.Language
	}
	if u.CreatedAt.IsZero() {
		// Access tokens carry no creation time; the profile row is written at
		// signup so its created_at is the next best source.
		u.CreatedAt = profile.CreatedAt
	}
	return u
}

// Session is the result of a successful sign-in or sign-up at the provider.
type Session struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        Identity `json:"user"`
}

// ProfileRepository is the profile-store boundary.
//
// GetByID and GetByCustomerID return (nil, nil) when no row exists: absence is
// an expected state, not an error. An error means the store itself failed.
type ProfileRepository interface {
	Create(ctx context.Context, profile *Profile) error
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByCustomerID(ctx context.Context, customerID string) (*Profile, error)
	// UpdateAttributes applies a partial update; nil fields are left untouched.
	UpdateAttributes(ctx context.Context, id string, name, language *string) error
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
	SetStripeCustomerID(ctx context.Context, id string, customerID string) error
	SetSubscriptionStatus(ctx context.Context, id string, status string) error
	List(ctx context.Context, q ListUsersQuery) ([]Profile, int64, error)
	All(ctx context.Context) ([]Profile, error)
	Counts(ctx context.Context, cutoffs StatsCutoffs) UsageStats
	Upsert(ctx context.Context, profile *Profile) error
}

// WhitelistRepository checks the signup allow-list.
type WhitelistRepository interface {
	Contains(ctx context.Context, email string) (bool, error)
}

// IdentityProvider is the boundary to the hosted auth service.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SendPasswordReset(ctx context.Context, email string) error
	SignOut(ctx context.Context, accessToken string) error
	AdminGetUser(ctx context.Context, id string) (*Identity, error)
	AdminListUsers(ctx context.Context) ([]Identity, error)
	AdminDeleteUser(ctx context.Context, id string) error
}

// TokenVerifier resolves a bearer token to the identity it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type AuthUsecase interface {
	Login(ctx context.Context, email, password string) (*Session, error)
	Signup(ctx context.Context, email, password string) (*Session, error)
	// SendPasswordReset never reports whether the email exists.
	SendPasswordReset(ctx context.Context, email string)
	Logout(ctx context.Context, accessToken string)
	// Resolve verifies the token and computes the EffectiveUser. A missing or
	// unreadable profile degrades to defaults; the only failure is an invalid token.
	Resolve(ctx context.Context, token string) (EffectiveUser, error)
	// RequireAdmin is a pure predicate with no side effects.
	RequireAdmin(user EffectiveUser) error
}

type UpdateProfileRequest struct {
	Name     *string `json:"name,omitempty" binding:"omitempty,max=100"`
	Language *string `json:"language,omitempty" binding:"omitempty,language"`
}

type UserUsecase interface {
	UpdateMe(ctx context.Context, user EffectiveUser, req UpdateProfileRequest) (EffectiveUser, error)
	DeleteMe(ctx context.Context, user EffectiveUser) error
	Stats(ctx context.Context) UsageStats
}

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go-saas-backend/internal/domain"
	"go-saas-backend/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Mock Repositories

type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) Create(ctx context.Context, profile *domain.Profile) error {
	return m.Called(ctx, profile).Error(0)
}
func (m *MockProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}
func (m *MockProfileRepo) GetByCustomerID(ctx context.Context, customerID string) (*domain.Profile, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}
func (m *MockProfileRepo) UpdateAttributes(ctx context.Context, id string, name, language *string) error {
	return m.Called(ctx, id, name, language).Error(0)
}
func (m *MockProfileRepo) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	return m.Called(ctx, id, isAdmin).Error(0)
}
func (m *MockProfileRepo) SetStripeCustomerID(ctx context.Context, id string, customerID string) error {
	return m.Called(ctx, id, customerID).Error(0)
}
func (m *MockProfileRepo) SetSubscriptionStatus(ctx context.Context, id string, status string) error {
	return m.Called(ctx, id, status).Error(0)
}
func (m *MockProfileRepo) List(ctx context.Context, q domain.ListUsersQuery) ([]domain.Profile, int64, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Profile), args.Get(1).(int64), args.Error(2)
}
func (m *MockProfileRepo) All(ctx context.Context) ([]domain.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Profile), args.Error(1)
}
func (m *MockProfileRepo) Counts(ctx context.Context, cutoffs domain.StatsCutoffs) domain.UsageStats {
	return m.Called(ctx, cutoffs).Get(0).(domain.UsageStats)
}
func (m *MockProfileRepo) Upsert(ctx context.Context, profile *domain.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

type MockWhitelistRepo struct {
	mock.Mock
}

func (m *MockWhitelistRepo) Contains(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}
func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}
func (m *MockIdentityProvider) SendPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}
func (m *MockIdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}
func (m *MockIdentityProvider) AdminGetUser(ctx context.Context, id string) (*domain.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}
func (m *MockIdentityProvider) AdminListUsers(ctx context.Context) ([]domain.Identity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Identity), args.Error(1)
}
func (m *MockIdentityProvider) AdminDeleteUser(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.Identity), args.Error(1)
}

type MockBillingProvider struct {
	mock.Mock
}

func (m *MockBillingProvider) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	args := m.Called(ctx, email, userID)
	return args.String(0), args.Error(1)
}
func (m *MockBillingProvider) CreateCheckoutSession(ctx context.Context, customerID, priceID, userID string) (string, error) {
	args := m.Called(ctx, customerID, priceID, userID)
	return args.String(0), args.Error(1)
}
func (m *MockBillingProvider) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}
func (m *MockBillingProvider) ActiveSubscription(ctx context.Context, customerID string) (*domain.Subscription, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}
func (m *MockBillingProvider) VerifyWebhook(payload []byte, signature string) (*domain.WebhookEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WebhookEvent), args.Error(1)
}

func strPtr(s string) *string { return &s }

func TestResolveAdminFallback(t *testing.T) {
	const adminEmail = "admin@example.com"
	ctx := context.Background()

	newAuth := func(profiles *MockProfileRepo, verifier *MockVerifier) domain.AuthUsecase {
		return usecase.NewAuthUsecase(new(MockIdentityProvider), verifier, profiles, new(MockWhitelistRepo), adminEmail, false)
	}

	t.Run("Should grant admin from operator email when no profile row exists", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		verifier := new(MockVerifier)
		verifier.On("Verify", ctx, "tok").Return(domain.Identity{ID: "u1", Email: adminEmail}, nil)
		profiles.On("GetByID", ctx, "u1").Return(nil, nil)

		user, err := newAuth(profiles, verifier).Resolve(ctx, "tok")
		assert.NoError(t, err)
		assert.True(t, user.IsAdmin)
		assert.Equal(t, "en", user.Language)
	})

	t.Run("Should not grant admin to other emails without a profile row", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		verifier := new(MockVerifier)
		verifier.On("Verify", ctx, "tok").Return(domain.Identity{ID: "u2", Email: "someone@example.com"}, nil)
		profiles.On("GetByID", ctx, "u2").Return(nil, nil)

		user, err := newAuth(profiles, verifier).Resolve(ctx, "tok")
		assert.NoError(t, err)
		assert.False(t, user.IsAdmin)
	})

	t.Run("Should let the profile row override the operator email", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		verifier := new(MockVerifier)
		verifier.On("Verify", ctx, "tok").Return(domain.Identity{ID: "u1", Email: adminEmail}, nil)
		profiles.On("GetByID", ctx, "u1").Return(&domain.Profile{ID: "u1", Email: adminEmail, IsAdmin: false, Language: "de"}, nil)

		user, err := newAuth(profiles, verifier).Resolve(ctx, "tok")
		assert.NoError(t, err)
		assert.False(t, user.IsAdmin)
		assert.Equal(t, "de", user.Language)
	})

	t.Run("Should degrade to defaults when the profile store fails", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		verifier := new(MockVerifier)
		verifier.On("Verify", ctx, "tok").Return(domain.Identity{ID: "u3", Email: "user@example.com"}, nil)
		profiles.On("GetByID", ctx, "u3").Return(nil, errors.New("connection refused"))

		user, err := newAuth(profiles, verifier).Resolve(ctx, "tok")
		assert.NoError(t, err)
		assert.False(t, user.IsAdmin)
		assert.Equal(t, "en", user.Language)
	})

	t.Run("Should reject an invalid token without touching the store", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		verifier := new(MockVerifier)
		verifier.On("Verify", ctx, "bad").Return(domain.Identity{}, errors.New("signature invalid"))

		_, err := newAuth(profiles, verifier).Resolve(ctx, "bad")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid authentication credentials")
		profiles.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestRequireAdmin(t *testing.T) {
	uc := usecase.NewAuthUsecase(new(MockIdentityProvider), new(MockVerifier), new(MockProfileRepo), new(MockWhitelistRepo), "", false)

	assert.NoError(t, uc.RequireAdmin(domain.EffectiveUser{IsAdmin: true}))

	err := uc.RequireAdmin(domain.EffectiveUser{IsAdmin: false})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Not enough permissions")
}

func TestSignupWhitelist(t *testing.T) {
	ctx := context.Background()

	t.Run("Should reject signup for an email not on the whitelist", func(t *testing.T) {
		whitelist := new(MockWhitelistRepo)
		provider := new(MockIdentityProvider)
		whitelist.On("Contains", ctx, "new@example.com").Return(false, nil)

		uc := usecase.NewAuthUsecase(provider, new(MockVerifier), new(MockProfileRepo), whitelist, "", true)
		_, err := uc.Signup(ctx, "new@example.com", "password123")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invitation only")
		provider.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should sign up a whitelisted email and seed its profile", func(t *testing.T) {
		whitelist := new(MockWhitelistRepo)
		provider := new(MockIdentityProvider)
		profiles := new(MockProfileRepo)
		whitelist.On("Contains", ctx, "ok@example.com").Return(true, nil)
		provider.On("SignUp", ctx, "ok@example.com", "password123").Return(&domain.Session{
			AccessToken: "t",
			User:        domain.Identity{ID: "u9", Email: "ok@example.com"},
		}, nil)
		profiles.On("Create", ctx, mock.AnythingOfType("*domain.Profile")).Return(nil).Run(func(args mock.Arguments) {
			p := args.Get(1).(*domain.Profile)
			assert.Equal(t, "u9", p.ID)
			assert.False(t, p.IsAdmin)
			assert.Equal(t, "en", p.Language)
		})

		uc := usecase.NewAuthUsecase(provider, new(MockVerifier), profiles, whitelist, "admin@example.com", true)
		session, err := uc.Signup(ctx, "ok@example.com", "password123")
		assert.NoError(t, err)
		assert.Equal(t, "u9", session.User.ID)
		profiles.AssertExpectations(t)
	})

	t.Run("Should skip the whitelist when whitelist mode is off", func(t *testing.T) {
		whitelist := new(MockWhitelistRepo)
		provider := new(MockIdentityProvider)
		profiles := new(MockProfileRepo)
		provider.On("SignUp", ctx, "open@example.com", "password123").Return(&domain.Session{
			User: domain.Identity{ID: "u10", Email: "open@example.com"},
		}, nil)
		profiles.On("Create", ctx, mock.Anything).Return(nil)

		uc := usecase.NewAuthUsecase(provider, new(MockVerifier), profiles, whitelist, "", false)
		_, err := uc.Signup(ctx, "open@example.com", "password123")
		assert.NoError(t, err)
		whitelist.AssertNotCalled(t, "Contains", mock.Anything, mock.Anything)
	})
}

func TestSendPasswordResetSwallowsErrors(t *testing.T) {
	ctx := context.Background()
	provider := new(MockIdentityProvider)
	provider.On("SendPasswordReset", ctx, "ghost@example.com").Return(errors.New("user not found"))

	uc := usecase.NewAuthUsecase(provider, new(MockVerifier), new(MockProfileRepo), new(MockWhitelistRepo), "", false)
	uc.SendPasswordReset(ctx, "ghost@example.com") // must not panic or signal anything
	provider.AssertExpectations(t)
}

func TestAdminListValidation(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		q    domain.ListUsersQuery
	}{
		{"page below one", domain.ListUsersQuery{Page: 0, PerPage: 20}},
		{"per_page below one", domain.ListUsersQuery{Page: 1, PerPage: 0}},
		{"per_page above cap", domain.ListUsersQuery{Page: 1, PerPage: 101}},
		{"unknown role", domain.ListUsersQuery{Page: 1, PerPage: 20, Role: "superuser"}},
	}

	for _, tc := range cases {
		t.Run("Should reject "+tc.name+" before querying", func(t *testing.T) {
			profiles := new(MockProfileRepo)
			uc := usecase.NewAdminUsecase(profiles, new(MockIdentityProvider))

			_, err := uc.ListUsers(ctx, tc.q)
			assert.Error(t, err)
			profiles.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
		})
	}

	t.Run("Should carry the full filtered total, not the page size", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		provider := new(MockIdentityProvider)
		q := domain.ListUsersQuery{Page: 2, PerPage: 1}
		profiles.On("List", ctx, q).Return([]domain.Profile{
			{ID: "u2", Email: "b@example.com", CreatedAt: time.Now()},
		}, int64(42), nil)
		provider.On("AdminGetUser", ctx, "u2").Return(nil, errors.New("unavailable"))

		list, err := usecase.NewAdminUsecase(profiles, provider).ListUsers(ctx, q)
		assert.NoError(t, err)
		assert.Equal(t, int64(42), list.Total)
		assert.Len(t, list.Users, 1)
		assert.Equal(t, 2, list.Page)
	})

	t.Run("Should fall back to the profile copy when the auth lookup fails", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		provider := new(MockIdentityProvider)
		created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		q := domain.ListUsersQuery{Page: 1, PerPage: 20}
		profiles.On("List", ctx, q).Return([]domain.Profile{
			{ID: "u1", Email: "stale@example.com", CreatedAt: created},
		}, int64(1), nil)
		provider.On("AdminGetUser", ctx, "u1").Return(nil, errors.New("unavailable"))

		list, err := usecase.NewAdminUsecase(profiles, provider).ListUsers(ctx, q)
		assert.NoError(t, err)
		assert.Equal(t, "stale@example.com", list.Users[0].Email)
		assert.Equal(t, created.Format(time.RFC3339), list.Users[0].CreatedAt)
	})
}

func TestAdminSelfTargetGuards(t *testing.T) {
	ctx := context.Background()
	actor := domain.EffectiveUser{ID: "admin1", IsAdmin: true}

	t.Run("Should refuse changing own admin status", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		uc := usecase.NewAdminUsecase(profiles, new(MockIdentityProvider))

		err := uc.SetAdmin(ctx, actor, "admin1", false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot change your own admin status")
		profiles.AssertNotCalled(t, "SetAdmin", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should refuse deleting own account", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		uc := usecase.NewAdminUsecase(new(MockProfileRepo), provider)

		err := uc.DeleteUser(ctx, actor, "admin1")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot delete your own account")
		provider.AssertNotCalled(t, "AdminDeleteUser", mock.Anything, mock.Anything)
	})

	t.Run("Should update another user", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		profiles.On("SetAdmin", ctx, "other", true).Return(nil)
		uc := usecase.NewAdminUsecase(profiles, new(MockIdentityProvider))

		assert.NoError(t, uc.SetAdmin(ctx, actor, "other", true))
		profiles.AssertExpectations(t)
	})
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()
	profiles := new(MockProfileRepo)
	provider := new(MockIdentityProvider)

	created := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)
	profiles.On("All", ctx).Return([]domain.Profile{
		{ID: "u1", Email: "a@example.com", Name: strPtr(`Ada "The" Admin`), IsAdmin: true, Language: "en", CreatedAt: created},
		{ID: "u2", Email: "b@example.com", IsAdmin: false, Language: "fr", CreatedAt: created},
	}, nil)
	provider.On("AdminGetUser", ctx, mock.Anything).Return(nil, errors.New("unavailable"))

	out, err := usecase.NewAdminUsecase(profiles, provider).ExportCSV(ctx)
	assert.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "ID,Email,Name,Admin,Language,Created At", lines[0])
	assert.Contains(t, lines[1], `"Ada ""The"" Admin"`)
	assert.Contains(t, lines[1], "Yes")
	assert.Contains(t, lines[2], "No")
	assert.Contains(t, lines[2], "b@example.com")
}

func TestBillingCustomerIdempotency(t *testing.T) {
	ctx := context.Background()
	user := domain.EffectiveUser{ID: "u1", Email: "a@example.com"}

	t.Run("Should reuse the saved customer id", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		provider := new(MockBillingProvider)
		profiles.On("GetByID", ctx, "u1").Return(&domain.Profile{ID: "u1", StripeCustomerID: strPtr("cus_123")}, nil)
		provider.On("CreateCheckoutSession", ctx, "cus_123", "price_live_m", "u1").Return("https://checkout/session", nil)

		uc := usecase.NewBillingUsecase(profiles, provider, true, "price_live_m", "price_live_y")
		url, err := uc.CreateCheckoutSession(ctx, user, domain.PriceMonthly)
		assert.NoError(t, err)
		assert.Equal(t, "https://checkout/session", url)
		provider.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should create and save a customer on first use", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		provider := new(MockBillingProvider)
		profiles.On("GetByID", ctx, "u1").Return(&domain.Profile{ID: "u1"}, nil)
		provider.On("CreateCustomer", ctx, "a@example.com", "u1").Return("cus_new", nil)
		profiles.On("SetStripeCustomerID", ctx, "u1", "cus_new").Return(nil)
		provider.On("CreateCheckoutSession", ctx, "cus_new", "price_live_y", "u1").Return("https://checkout/s2", nil)

		uc := usecase.NewBillingUsecase(profiles, provider, true, "price_live_m", "price_live_y")
		url, err := uc.CreateCheckoutSession(ctx, user, domain.PriceYearly)
		assert.NoError(t, err)
		assert.Equal(t, "https://checkout/s2", url)
		profiles.AssertExpectations(t)
	})

	t.Run("Should reject an unknown price alias", func(t *testing.T) {
		uc := usecase.NewBillingUsecase(new(MockProfileRepo), new(MockBillingProvider), true, "m", "y")
		_, err := uc.CreateCheckoutSession(ctx, user, "price_weekly")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid price ID")
	})

	t.Run("Should reject billing actions when billing is disabled", func(t *testing.T) {
		uc := usecase.NewBillingUsecase(new(MockProfileRepo), new(MockBillingProvider), false, "", "")
		_, err := uc.CreateCheckoutSession(ctx, user, domain.PriceMonthly)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Billing is not enabled")
	})
}

func TestSubscriptionStatus(t *testing.T) {
	ctx := context.Background()
	user := domain.EffectiveUser{ID: "u1", Email: "a@example.com"}

	t.Run("Should report disabled without touching the store", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		uc := usecase.NewBillingUsecase(profiles, new(MockBillingProvider), false, "", "")

		info, err := uc.Subscription(ctx, user)
		assert.NoError(t, err)
		assert.Equal(t, "disabled", info.Status)
		profiles.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("Should report free when no customer exists", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		profiles.On("GetByID", ctx, "u1").Return(&domain.Profile{ID: "u1"}, nil)
		uc := usecase.NewBillingUsecase(profiles, new(MockBillingProvider), true, "m", "y")

		info, err := uc.Subscription(ctx, user)
		assert.NoError(t, err)
		assert.Equal(t, "free", info.Status)
	})

	t.Run("Should report free when the provider has no active subscription", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		provider := new(MockBillingProvider)
		profiles.On("GetByID", ctx, "u1").Return(&domain.Profile{ID: "u1", StripeCustomerID: strPtr("cus_1")}, nil)
		provider.On("ActiveSubscription", ctx, "cus_1").Return(nil, nil)
		uc := usecase.NewBillingUsecase(profiles, provider, true, "m", "y")

		info, err := uc.Subscription(ctx, user)
		assert.NoError(t, err)
		assert.Equal(t, "free", info.Status)
	})

	t.Run("Should surface the active subscription details", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		provider := new(MockBillingProvider)
		profiles.On("GetByID", ctx, "u1").Return(&domain.Profile{ID: "u1", StripeCustomerID: strPtr("cus_1")}, nil)
		provider.On("ActiveSubscription", ctx, "cus_1").Return(&domain.Subscription{
			Status:            "active",
			CurrentPeriodEnd:  1750000000,
			CancelAtPeriodEnd: true,
		}, nil)
		uc := usecase.NewBillingUsecase(profiles, provider, true, "m", "y")

		info, err := uc.Subscription(ctx, user)
		assert.NoError(t, err)
		assert.Equal(t, "active", info.Status)
		assert.Equal(t, int64(1750000000), info.CurrentPeriodEnd)
		assert.True(t, info.CancelAtPeriodEnd)
	})
}

func TestWebhookHandling(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{}`)

	newUC := func(profiles *MockProfileRepo, provider *MockBillingProvider) domain.BillingUsecase {
		return usecase.NewBillingUsecase(profiles, provider, true, "m", "y")
	}

	t.Run("Should reject a bad signature", func(t *testing.T) {
		provider := new(MockBillingProvider)
		provider.On("VerifyWebhook", payload, "sig").Return(nil, errors.New("no matching signature"))

		err := newUC(new(MockProfileRepo), provider).HandleWebhook(ctx, payload, "sig")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid signature")
	})

	t.Run("Should activate the subscriber from checkout metadata", func(t *testing.T) {
		provider := new(MockBillingProvider)
		profiles := new(MockProfileRepo)
		provider.On("VerifyWebhook", payload, "sig").Return(&domain.WebhookEvent{
			Type:   domain.EventCheckoutCompleted,
			UserID: "u1",
		}, nil)
		profiles.On("SetSubscriptionStatus", ctx, "u1", "active").Return(nil)

		assert.NoError(t, newUC(profiles, provider).HandleWebhook(ctx, payload, "sig"))
		profiles.AssertExpectations(t)
	})

	t.Run("Should mark cancelled by customer id on subscription deletion", func(t *testing.T) {
		provider := new(MockBillingProvider)
		profiles := new(MockProfileRepo)
		provider.On("VerifyWebhook", payload, "sig").Return(&domain.WebhookEvent{
			Type:       domain.EventSubscriptionDeleted,
			CustomerID: "cus_1",
		}, nil)
		profiles.On("GetByCustomerID", ctx, "cus_1").Return(&domain.Profile{ID: "u1"}, nil)
		profiles.On("SetSubscriptionStatus", ctx, "u1", "cancelled").Return(nil)

		assert.NoError(t, newUC(profiles, provider).HandleWebhook(ctx, payload, "sig"))
		profiles.AssertExpectations(t)
	})

	t.Run("Should propagate the provider status on subscription updates", func(t *testing.T) {
		provider := new(MockBillingProvider)
		profiles := new(MockProfileRepo)
		provider.On("VerifyWebhook", payload, "sig").Return(&domain.WebhookEvent{
			Type:               domain.EventSubscriptionUpdated,
			CustomerID:         "cus_1",
			SubscriptionStatus: "past_due",
		}, nil)
		profiles.On("GetByCustomerID", ctx, "cus_1").Return(&domain.Profile{ID: "u1"}, nil)
		profiles.On("SetSubscriptionStatus", ctx, "u1", "past_due").Return(nil)

		assert.NoError(t, newUC(profiles, provider).HandleWebhook(ctx, payload, "sig"))
		profiles.AssertExpectations(t)
	})

	t.Run("Should acknowledge unknown event types without store access", func(t *testing.T) {
		provider := new(MockBillingProvider)
		profiles := new(MockProfileRepo)
		provider.On("VerifyWebhook", payload, "sig").Return(&domain.WebhookEvent{Type: "invoice.paid"}, nil)

		assert.NoError(t, newUC(profiles, provider).HandleWebhook(ctx, payload, "sig"))
		profiles.AssertNotCalled(t, "SetSubscriptionStatus", mock.Anything, mock.Anything, mock.Anything)
		profiles.AssertNotCalled(t, "GetByCustomerID", mock.Anything, mock.Anything)
	})
}

func TestStatsCutoffForwarding(t *testing.T) {
	ctx := context.Background()
	profiles := new(MockProfileRepo)

	before := time.Now()
	profiles.On("Counts", ctx, mock.MatchedBy(func(c domain.StatsCutoffs) bool {
		after := time.Now()
		weekOK := !c.WeekAgo.Before(before.Add(-7*24*time.Hour)) && !c.WeekAgo.After(after.Add(-7*24*time.Hour))
		monthOK := !c.MonthAgo.Before(before.Add(-30*24*time.Hour)) && !c.MonthAgo.After(after.Add(-30*24*time.Hour))
		midnight := func(t time.Time) time.Time {
			d := t.UTC()
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		}
		// the call may straddle a UTC midnight; either day is correct
		dayOK := c.StartOfToday.Equal(midnight(before)) || c.StartOfToday.Equal(midnight(after))
		return weekOK && monthOK && dayOK
	})).Return(domain.UsageStats{TotalUsers: 7})

	stats := usecase.NewAdminUsecase(profiles, new(MockIdentityProvider)).Stats(ctx)
	assert.Equal(t, int64(7), stats.TotalUsers)
	profiles.AssertExpectations(t)
}

func TestUpdateMePartial(t *testing.T) {
	ctx := context.Background()
	user := domain.EffectiveUser{ID: "u1", Email: "a@example.com", CreatedAt: time.Now()}

	t.Run("Should pass only the provided fields through", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		name := strPtr("New Name")
		profiles.On("UpdateAttributes", ctx, "u1", name, (*string)(nil)).Return(nil)
		profiles.On("GetByID", ctx, "u1").Return(&domain.Profile{ID: "u1", Email: "a@example.com", Name: name, Language: "en"}, nil)

		uc := usecase.NewUserUsecase(profiles, new(MockIdentityProvider), "")
		updated, err := uc.UpdateMe(ctx, user, domain.UpdateProfileRequest{Name: name})
		assert.NoError(t, err)
		assert.Equal(t, "New Name", *updated.Name)
		profiles.AssertExpectations(t)
	})

	t.Run("Should backfill the row for a legacy identity without a profile", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		name := strPtr("Late Adopter")
		profiles.On("UpdateAttributes", ctx, "u1", name, (*string)(nil)).Return(nil)
		profiles.On("GetByID", ctx, "u1").Return(nil, nil)
		profiles.On("Upsert", ctx, mock.AnythingOfType("*domain.Profile")).Return(nil).Run(func(args mock.Arguments) {
			p := args.Get(1).(*domain.Profile)
			assert.Equal(t, "u1", p.ID)
			assert.Equal(t, "a@example.com", p.Email)
			assert.Equal(t, "Late Adopter", *p.Name)
		})

		uc := usecase.NewUserUsecase(profiles, new(MockIdentityProvider), "")
		updated, err := uc.UpdateMe(ctx, user, domain.UpdateProfileRequest{Name: name})
		assert.NoError(t, err)
		assert.Equal(t, "Late Adopter", *updated.Name)
		profiles.AssertExpectations(t)
	})

	t.Run("Should still return a user when the re-read fails", func(t *testing.T) {
		profiles := new(MockProfileRepo)
		lang := strPtr("fr")
		profiles.On("UpdateAttributes", ctx, "u1", (*string)(nil), lang).Return(nil)
		profiles.On("GetByID", ctx, "u1").Return(nil, errors.New("timeout"))

		uc := usecase.NewUserUsecase(profiles, new(MockIdentityProvider), "")
		updated, err := uc.UpdateMe(ctx, user, domain.UpdateProfileRequest{Language: lang})
		assert.NoError(t, err)
		assert.Equal(t, "u1", updated.ID)
	})
}

func TestDeleteMe(t *testing.T) {
	ctx := context.Background()
	provider := new(MockIdentityProvider)
	provider.On("AdminDeleteUser", ctx, "u1").Return(nil)

	uc := usecase.NewUserUsecase(new(MockProfileRepo), provider, "")
	assert.NoError(t, uc.DeleteMe(ctx, domain.EffectiveUser{ID: "u1"}))
	provider.AssertExpectations(t)
}

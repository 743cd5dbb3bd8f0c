package usecase

import (
	"context"

	"go-saas-backend/internal/domain"
	"go-saas-backend/pkg/apperror"
	"go-saas-backend/pkg/logger"
)

type billingUsecase struct {
	profiles     domain.ProfileRepository
	provider     domain.BillingProvider
	enabled      bool
	priceMonthly string
	priceYearly  string
}

func NewBillingUsecase(profiles domain.ProfileRepository, provider domain.BillingProvider, enabled bool, priceMonthly, priceYearly string) domain.BillingUsecase {
	return &billingUsecase{
		profiles:     profiles,
		provider:     provider,
		enabled:      enabled,
		priceMonthly: priceMonthly,
		priceYearly:  priceYearly,
	}
}

func (u *billingUsecase) Subscription(ctx context.Context, user domain.EffectiveUser) (*domain.SubscriptionInfo, error) {
	if !u.enabled {
		return &domain.SubscriptionInfo{Status: "disabled"}, nil
	}

	profile, err := u.profiles.GetByID(ctx, user.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if profile == nil || profile.StripeCustomerID == nil || *profile.StripeCustomerID == "" {
		return &domain.SubscriptionInfo{Status: "free"}, nil
	}

	sub, err := u.provider.ActiveSubscription(ctx, *profile.StripeCustomerID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if sub == nil {
		return &domain.SubscriptionInfo{Status: "free"}, nil
	}

	return &domain.SubscriptionInfo{
		Status:            "active",
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}, nil
}

func (u *billingUsecase) CreateCheckoutSession(ctx context.Context, user domain.EffectiveUser, priceID string) (string, error) {
	if !u.enabled {
		return "", apperror.BadRequest("Billing is not enabled")
	}

	var price string
	switch priceID {
	case domain.PriceMonthly:
		price = u.priceMonthly
	case domain.PriceYearly:
		price = u.priceYearly
	default:
		return "", apperror.BadRequest("Invalid price ID")
	}

	customerID, err := u.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	url, err := u.provider.CreateCheckoutSession(ctx, customerID, price, user.ID)
	if err != nil {
		logger.Log.Error("checkout session creation failed", "user_id", user.ID, "error", err)
		return "", apperror.BadRequest("Failed to create checkout session")
	}
	return url, nil
}

func (u *billingUsecase) CreatePortalSession(ctx context.Context, user domain.EffectiveUser) (string, error) {
	if !u.enabled {
		return "", apperror.BadRequest("Billing is not enabled")
	}

	profile, err := u.profiles.GetByID(ctx, user.ID)
	if err != nil {
		return "", apperror.Internal(err)
	}
	if profile == nil || profile.StripeCustomerID == nil || *profile.StripeCustomerID == "" {
		return "", apperror.BadRequest("No billing account found")
	}

	url, err := u.provider.CreatePortalSession(ctx, *profile.StripeCustomerID)
	if err != nil {
		logger.Log.Error("portal session creation failed", "user_id", user.ID, "error", err)
		return "", apperror.BadRequest("Failed to create portal session")
	}
	return url, nil
}

// ensureCustomer returns the saved customer id, creating one lazily on the
// first billing action. A concurrent first call can create two customers;
// the saved one wins and the orphan is harmless.
func (u *billingUsecase) ensureCustomer(ctx context.Context, user domain.EffectiveUser) (string, error) {
	profile, err := u.profiles.GetByID(ctx, user.ID)
	if err != nil {
		return "", apperror.Internal(err)
	}
	if profile != nil && profile.StripeCustomerID != nil && *profile.StripeCustomerID != "" {
		return *profile.StripeCustomerID, nil
	}

	customerID, err := u.provider.CreateCustomer(ctx, user.Email, user.ID)
	if err != nil {
		logger.Log.Error("customer creation failed", "user_id", user.ID, "error", err)
		return "", apperror.BadRequest("Failed to create checkout session")
	}
	if err := u.profiles.SetStripeCustomerID(ctx, user.ID, customerID); err != nil {
		return "", apperror.Internal(err)
	}
	return customerID, nil
}

// HandleWebhook applies a verified provider event. Event handling is
// best-effort: a missing profile row is logged and acknowledged so the
// provider does not retry forever.
func (u *billingUsecase) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := u.provider.VerifyWebhook(payload, signature)
	if err != nil {
		return apperror.BadRequest("Invalid signature")
	}

	switch event.Type {
	case domain.EventCheckoutCompleted:
		if event.UserID == "" {
			logger.Log.Warn("checkout completed without user metadata")
			return nil
		}
		if err := u.profiles.SetSubscriptionStatus(ctx, event.UserID, "active"); err != nil {
			logger.Log.Warn("subscription status update failed", "user_id", event.UserID, "error", err)
		}
	case domain.EventSubscriptionUpdated:
		u.applyByCustomer(ctx, event.CustomerID, event.SubscriptionStatus)
	case domain.EventSubscriptionDeleted:
		u.applyByCustomer(ctx, event.CustomerID, domain.SubscriptionStatusCancelled)
	}
	return nil
}

func (u *billingUsecase) applyByCustomer(ctx context.Context, customerID, status string) {
	if customerID == "" {
		return
	}
	profile, err := u.profiles.GetByCustomerID(ctx, customerID)
	if err != nil || profile == nil {
		logger.Log.Warn("no profile for billing customer", "customer_id", customerID, "error", err)
		return
	}
	if err := u.profiles.SetSubscriptionStatus(ctx, profile.ID, status); err != nil {
		logger.Log.Warn("subscription status update failed", "user_id", profile.ID, "error", err)
	}
}

package domain

import "context"

// Webhook event types mirrored from the payment provider. Anything else is
// accepted and ignored so new provider event types never break the receiver.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

const SubscriptionStatusCancelled = "cancelled"

// Price aliases exposed to clients, mapped to configured provider price ids.
const (
	PriceMonthly = "price_monthly"
	PriceYearly  = "price_yearly"
)

// Subscription is the provider's view of an active subscription.
type Subscription struct {
	Status            string
	CurrentPeriodEnd  int64
	CancelAtPeriodEnd bool
}

// SubscriptionInfo is the API shape for GET /billing/subscription.
type SubscriptionInfo struct {
	Status            string `json:"status"`
	CurrentPeriodEnd  int64  `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end,omitempty"`
}

// WebhookEvent is a provider event reduced to the fields this service acts on.
// UserID is only set for checkout events (from session metadata); CustomerID
// and SubscriptionStatus only for subscription events.
type WebhookEvent struct {
	Type               string
	UserID             string
	CustomerID         string
	SubscriptionStatus string
}

// BillingProvider is the boundary to the hosted payment service.
type BillingProvider interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID, userID string) (string, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
	// ActiveSubscription returns (nil, nil) when the customer has none.
	ActiveSubscription(ctx context.Context, customerID string) (*Subscription, error)
	// VerifyWebhook checks the provider signature before anything is parsed.
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

type BillingUsecase interface {
	Subscription(ctx context.Context, user EffectiveUser) (*SubscriptionInfo, error)
	CreateCheckoutSession(ctx context.Context, user EffectiveUser, priceID string) (string, error)
	CreatePortalSession(ctx context.Context, user EffectiveUser) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

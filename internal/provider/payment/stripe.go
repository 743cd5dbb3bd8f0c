package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"go-saas-backend/internal/domain"
)

// StripeClient implements domain.BillingProvider on top of the official
// Stripe SDK. The success/cancel/return URLs all point at the frontend.
type StripeClient struct {
	api           *client.API
	webhookSecret string
	appURL        string
}

func NewStripeClient(secretKey, webhookSecret, appURL string) *StripeClient {
	return &StripeClient{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		appURL:        appURL,
	}
}

func (s *StripeClient) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID)

	customer, err := s.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

func (s *StripeClient) CreateCheckoutSession(ctx context.Context, customerID, priceID, userID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(s.appURL + "/billing?success=true"),
		CancelURL:  stripe.String(s.appURL + "/billing?canceled=true"),
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID)

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

func (s *StripeClient) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(s.appURL + "/billing"),
	}
	params.Context = ctx

	session, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

func (s *StripeClient) ActiveSubscription(ctx context.Context, customerID string) (*domain.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := s.api.Subscriptions.List(params)
	for iter.Next() {
		sub := iter.Subscription()
		return &domain.Subscription{
			Status:            string(sub.Status),
			CurrentPeriodEnd:  sub.CurrentPeriodEnd,
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		}, nil
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

// VerifyWebhook checks the Stripe-Signature header and reduces the event to
// the fields this service acts on. Event types it does not recognize come
// back with only Type set; the caller decides to ignore them.
func (s *StripeClient) VerifyWebhook(payload []byte, signature string) (*domain.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	parsed := &domain.WebhookEvent{Type: string(event.Type)}

	switch parsed.Type {
	case domain.EventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session: %w", err)
		}
		parsed.UserID = session.Metadata["user_id"]

	case domain.EventSubscriptionUpdated, domain.EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse subscription: %w", err)
		}
		if sub.Customer != nil {
			parsed.CustomerID = sub.Customer.ID
		}
		parsed.SubscriptionStatus = string(sub.Status)
	}

	return parsed, nil
}

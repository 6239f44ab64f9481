package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	stripewebhook "github.com/stripe/stripe-go/v78/webhook"
)

// UserIDMetadataKey is the checkout session metadata key holding our user id.
const UserIDMetadataKey = "userId"

var errStripeDisabled = errors.New("stripe secret key not configured")

// StripeGateway verifies and decodes Stripe webhooks and talks to the
// Stripe API for subscription lookups and checkout sessions.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	g := &StripeGateway{webhookSecret: webhookSecret}
	if secretKey != "" {
		g.api = client.New(secretKey, nil)
	}
	return g
}

// ParseEvent verifies the Stripe-Signature header and decodes the payload
// into an Event. Unhandled kinds return ErrIgnored.
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (Event, error) {
	evt, err := stripewebhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		stripewebhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	if evt.Data == nil {
		return nil, &ValidationError{Event: string(evt.Type), Field: "data", Reason: "is missing"}
	}

	switch string(evt.Type) {
	case KindCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			return nil, &ValidationError{Event: KindCheckoutCompleted, Field: "data", Reason: err.Error()}
		}
		if session.Mode != "" && session.Mode != stripe.CheckoutSessionModeSubscription {
			return nil, ErrIgnored
		}
		out := CheckoutCompleted{
			ID:        evt.ID,
			SessionID: session.ID,
			UserID:    session.Metadata[UserIDMetadataKey],
		}
		if out.UserID == "" {
			out.UserID = session.ClientReferenceID
		}
		if session.Subscription != nil {
			out.SubscriptionID = session.Subscription.ID
		}
		if session.Customer != nil {
			out.CustomerID = session.Customer.ID
		}
		return out, nil

	case KindSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, &ValidationError{Event: KindSubscriptionUpdated, Field: "data", Reason: err.Error()}
		}
		return SubscriptionUpdated{ID: evt.ID, Subscription: fromStripeSubscription(&sub)}, nil

	case KindSubscriptionCancelled:
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, &ValidationError{Event: KindSubscriptionCancelled, Field: "data", Reason: err.Error()}
		}
		return SubscriptionCancelled{ID: evt.ID, SubscriptionID: sub.ID}, nil
	}
	return nil, ErrIgnored
}

// GetSubscription implements SubscriptionSource.
func (g *StripeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	if g.api == nil {
		return nil, errStripeDisabled
	}
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := g.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get subscription: %w", err)
	}
	out := fromStripeSubscription(sub)
	return &out, nil
}

// CheckoutRequest describes a hosted checkout for one subscription price.
type CheckoutRequest struct {
	UserID     string
	Email      string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// CreateCheckout opens a subscription checkout session and returns its URL.
// The user id travels in the session metadata for the completion webhook.
func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	if g.api == nil {
		return "", errStripeDisabled
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{UserIDMetadataKey: req.UserID},
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx
	params.AddMetadata(UserIDMetadataKey, req.UserID)

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create checkout session: %w", err)
	}
	return session.URL, nil
}

func fromStripeSubscription(sub *stripe.Subscription) ProviderSubscription {
	out := ProviderSubscription{
		ID:                 sub.ID,
		Status:             string(sub.Status),
		StartDate:          unixTime(sub.StartDate),
		CurrentPeriodStart: unixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		out.PriceID = price.ID
		if price.Recurring != nil {
			out.Interval = string(price.Recurring.Interval)
		}
	}
	return out
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

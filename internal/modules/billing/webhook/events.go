package webhook

import "time"

// Event kinds as delivered by the payment provider.
const (
	KindCheckoutCompleted     = "checkout.session.completed"
	KindSubscriptionUpdated   = "customer.subscription.updated"
	KindSubscriptionCancelled = "customer.subscription.deleted"
)

// Event is one of CheckoutCompleted, SubscriptionUpdated or
// SubscriptionCancelled.
type Event interface {
	EventID() string
	Kind() string
	isEvent()
}

// CheckoutCompleted is a finished hosted checkout. UserID comes from the
// session metadata set when the session was created.
type CheckoutCompleted struct {
	ID             string
	SessionID      string
	UserID         string
	SubscriptionID string
	CustomerID     string
}

// SubscriptionUpdated carries the subscription state from the event payload.
type SubscriptionUpdated struct {
	ID           string
	Subscription ProviderSubscription
}

type SubscriptionCancelled struct {
	ID             string
	SubscriptionID string
}

func (e CheckoutCompleted) EventID() string     { return e.ID }
func (e SubscriptionUpdated) EventID() string   { return e.ID }
func (e SubscriptionCancelled) EventID() string { return e.ID }

func (CheckoutCompleted) Kind() string     { return KindCheckoutCompleted }
func (SubscriptionUpdated) Kind() string   { return KindSubscriptionUpdated }
func (SubscriptionCancelled) Kind() string { return KindSubscriptionCancelled }

func (CheckoutCompleted) isEvent()     {}
func (SubscriptionUpdated) isEvent()   {}
func (SubscriptionCancelled) isEvent() {}

// ProviderSubscription is the provider's view of a subscription. Zero times
// mean the field was absent.
type ProviderSubscription struct {
	ID                 string
	CustomerID         string
	PriceID            string
	Interval           string
	Status             string
	StartDate          time.Time
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}

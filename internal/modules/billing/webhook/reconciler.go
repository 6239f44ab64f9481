package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ctenarsky-denik/journal/internal/models"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/quota"
	"github.com/ctenarsky-denik/journal/internal/pkg/metrics"
	"go.uber.org/zap"
)

// SubscriptionSource fetches authoritative subscription state from the
// payment provider.
type SubscriptionSource interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
}

// Reconciler turns provider events into absolute ledger writes, so
// redelivery of an event leaves the ledger unchanged.
type Reconciler struct {
	ledger *quota.Ledger
	source SubscriptionSource
	prices Prices
	log    *zap.Logger
	now    func() time.Time
}

func NewReconciler(ledger *quota.Ledger, source SubscriptionSource, prices Prices, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		ledger: ledger,
		source: source,
		prices: prices,
		log:    logger.Named("webhook"),
		now:    time.Now,
	}
}

// Handle applies ev to the ledger.
func (r *Reconciler) Handle(ctx context.Context, ev Event) error {
	var err error
	switch e := ev.(type) {
	case CheckoutCompleted:
		err = r.checkoutCompleted(ctx, e)
	case SubscriptionUpdated:
		err = r.subscriptionUpdated(ctx, e)
	case SubscriptionCancelled:
		err = r.subscriptionCancelled(ctx, e)
	default:
		err = ErrIgnored
	}

	outcome := "applied"
	switch {
	case errors.Is(err, ErrValidation):
		outcome = "invalid"
	case errors.Is(err, ErrIgnored):
		outcome = "ignored"
	case err != nil:
		outcome = "failed"
	}
	if ev != nil {
		metrics.WebhookEvents.WithLabelValues(ev.Kind(), outcome).Inc()
	}
	return err
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, e CheckoutCompleted) error {
	if e.UserID == "" {
		return &ValidationError{Event: e.Kind(), Field: "metadata.userId", Reason: "is missing"}
	}
	if e.SubscriptionID == "" {
		return &ValidationError{Event: e.Kind(), Field: "subscription", Reason: "is missing"}
	}

	sub, err := r.source.GetSubscription(ctx, e.SubscriptionID)
	if err != nil {
		return fmt.Errorf("fetch subscription %s: %w", e.SubscriptionID, err)
	}
	if err := validateSubscription(e.Kind(), sub); err != nil {
		return err
	}
	tier, ok := r.prices.TierFor(sub.PriceID)
	if !ok {
		return &ValidationError{Event: e.Kind(), Field: "price", Reason: fmt.Sprintf("%q is not a known price", sub.PriceID)}
	}

	if _, err := r.ledger.Account(ctx, e.UserID, ""); err != nil {
		return fmt.Errorf("load account %s: %w", e.UserID, err)
	}

	customerID := sub.CustomerID
	if customerID == "" {
		customerID = e.CustomerID
	}
	credits := r.ledger.Plans().Allotment(tier)
	patch := quota.Patch{
		Tier:              &tier,
		Credits:           &credits,
		RenewalDate:       &sub.CurrentPeriodEnd,
		AutoRenew:         quota.Ptr(true),
		CancelAtPeriodEnd: quota.Ptr(false),
		BillingInterval:   &sub.Interval,
		CustomerID:        &customerID,
		SubscriptionID:    &sub.ID,
		PriceID:           &sub.PriceID,
	}
	if start := firstNonZero(sub.StartDate, sub.CurrentPeriodStart); !start.IsZero() {
		patch.StartDate = &start
	}
	if _, err := r.ledger.Apply(ctx, e.UserID, patch); err != nil {
		return fmt.Errorf("apply checkout for %s: %w", e.UserID, err)
	}
	r.log.Info("subscription activated",
		zap.String("event_id", e.ID),
		zap.String("user_id", e.UserID),
		zap.String("tier", string(tier)),
		zap.String("subscription_id", sub.ID),
	)
	return nil
}

func (r *Reconciler) subscriptionUpdated(ctx context.Context, e SubscriptionUpdated) error {
	sub := e.Subscription
	if sub.ID == "" {
		return &ValidationError{Event: e.Kind(), Field: "id", Reason: "is missing"}
	}
	user, err := r.ledger.FindBySubscriptionID(ctx, sub.ID)
	if err != nil {
		// Updates can overtake the checkout event; a failure here makes the
		// provider redeliver once the checkout has been applied.
		return fmt.Errorf("find account for subscription %s: %w", sub.ID, err)
	}
	if err := validateSubscription(e.Kind(), &sub); err != nil {
		return err
	}

	patch := quota.Patch{
		RenewalDate:       &sub.CurrentPeriodEnd,
		BillingInterval:   &sub.Interval,
		CancelAtPeriodEnd: &sub.CancelAtPeriodEnd,
		AutoRenew:         quota.Ptr(!sub.CancelAtPeriodEnd),
	}
	if sub.CustomerID != "" {
		patch.CustomerID = &sub.CustomerID
	}
	if tier, ok := r.prices.TierFor(sub.PriceID); ok {
		credits := r.ledger.Plans().Allotment(tier)
		patch.Tier = &tier
		patch.Credits = &credits
		patch.PriceID = &sub.PriceID
	} else {
		r.log.Warn("unknown price on subscription update, tier and credits left unchanged",
			zap.String("event_id", e.ID),
			zap.String("user_id", user.ID),
			zap.String("subscription_id", sub.ID),
			zap.String("price_id", sub.PriceID),
		)
	}

	if _, err := r.ledger.Apply(ctx, user.ID, patch); err != nil {
		return fmt.Errorf("apply update for %s: %w", user.ID, err)
	}
	r.log.Info("subscription updated",
		zap.String("event_id", e.ID),
		zap.String("user_id", user.ID),
		zap.Bool("cancel_at_period_end", sub.CancelAtPeriodEnd),
	)
	return nil
}

func (r *Reconciler) subscriptionCancelled(ctx context.Context, e SubscriptionCancelled) error {
	if e.SubscriptionID == "" {
		return &ValidationError{Event: e.Kind(), Field: "id", Reason: "is missing"}
	}
	user, err := r.ledger.FindBySubscriptionID(ctx, e.SubscriptionID)
	if errors.Is(err, quota.ErrAccountNotFound) {
		// Already reverted by an earlier delivery.
		r.log.Info("cancellation for unknown subscription", zap.String("event_id", e.ID), zap.String("subscription_id", e.SubscriptionID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("find account for subscription %s: %w", e.SubscriptionID, err)
	}

	free := quota.TierFree
	credits := r.ledger.Plans().Allotment(free)
	renewal := r.now().UTC().AddDate(0, 1, 0)
	patch := quota.Patch{
		Tier:              &free,
		Credits:           &credits,
		RenewalDate:       &renewal,
		AutoRenew:         quota.Ptr(false),
		CancelAtPeriodEnd: quota.Ptr(false),
		BillingInterval:   quota.Ptr(""),
		CustomerID:        quota.Ptr(""),
		SubscriptionID:    quota.Ptr(""),
		PriceID:           quota.Ptr(""),
	}
	if _, err := r.ledger.Apply(ctx, user.ID, patch); err != nil {
		return fmt.Errorf("apply cancellation for %s: %w", user.ID, err)
	}
	r.log.Info("subscription cancelled", zap.String("event_id", e.ID), zap.String("user_id", user.ID))
	return nil
}

func validateSubscription(kind string, sub *ProviderSubscription) error {
	if sub == nil {
		return &ValidationError{Event: kind, Field: "subscription", Reason: "is missing"}
	}
	if sub.ID == "" {
		return &ValidationError{Event: kind, Field: "subscription.id", Reason: "is missing"}
	}
	if sub.CurrentPeriodEnd.IsZero() {
		return &ValidationError{Event: kind, Field: "current_period_end", Reason: "is missing"}
	}
	if sub.PriceID == "" {
		return &ValidationError{Event: kind, Field: "price", Reason: "is missing"}
	}
	switch sub.Interval {
	case models.IntervalMonth, models.IntervalYear:
	case "":
		return &ValidationError{Event: kind, Field: "interval", Reason: "is missing"}
	default:
		return &ValidationError{Event: kind, Field: "interval", Reason: fmt.Sprintf("%q is not supported", sub.Interval)}
	}
	return nil
}

func firstNonZero(times ...time.Time) time.Time {
	for _, t := range times {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

package quota

import (
	"fmt"
	"time"

	"github.com/ctenarsky-denik/journal/internal/models"
)

// Patch is an absolute write to a subscription. Nil fields are left
// untouched; set fields replace the stored value. Credits sets both the
// total and the remaining balance, so applying a Patch never breaks
// 0 <= remaining <= total.
type Patch struct {
	Tier              *Tier
	Credits           *int
	StartDate         *time.Time
	RenewalDate       *time.Time
	AutoRenew         *bool
	CancelAtPeriodEnd *bool
	BillingInterval   *string
	CustomerID        *string
	SubscriptionID    *string
	PriceID           *string
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}

func (p Patch) Validate() error {
	if p.Tier != nil && !p.Tier.Valid() {
		return fmt.Errorf("%w: unknown tier %q", ErrInvalidPatch, *p.Tier)
	}
	if p.Credits != nil && *p.Credits < 0 {
		return fmt.Errorf("%w: negative credits %d", ErrInvalidPatch, *p.Credits)
	}
	if p.BillingInterval != nil {
		switch *p.BillingInterval {
		case "", models.IntervalMonth, models.IntervalYear:
		default:
			return fmt.Errorf("%w: unknown billing interval %q", ErrInvalidPatch, *p.BillingInterval)
		}
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return len(p.fields()) == 0
}

// patchField is one assignment, addressed by its Mongo path and SQL column.
type patchField struct {
	path   string
	column string
	value  any
}

func (p Patch) fields() []patchField {
	var out []patchField
	add := func(path, column string, value any) {
		out = append(out, patchField{path: "subscription." + path, column: "sub_" + column, value: value})
	}
	if p.Tier != nil {
		add("tier", "tier", string(*p.Tier))
	}
	if p.Credits != nil {
		add("aiCreditsTotal", "ai_credits_total", *p.Credits)
		add("aiCreditsRemaining", "ai_credits_remaining", *p.Credits)
	}
	if p.StartDate != nil {
		add("startDate", "start_date", p.StartDate.UTC())
	}
	if p.RenewalDate != nil {
		add("renewalDate", "renewal_date", p.RenewalDate.UTC())
	}
	if p.AutoRenew != nil {
		add("autoRenew", "auto_renew", *p.AutoRenew)
	}
	if p.CancelAtPeriodEnd != nil {
		add("cancelAtPeriodEnd", "cancel_at_period_end", *p.CancelAtPeriodEnd)
	}
	if p.BillingInterval != nil {
		add("billingInterval", "billing_interval", *p.BillingInterval)
		add("isYearly", "is_yearly", *p.BillingInterval == models.IntervalYear)
	}
	if p.CustomerID != nil {
		add("stripeCustomerId", "stripe_customer_id", *p.CustomerID)
	}
	if p.SubscriptionID != nil {
		add("stripeSubscriptionId", "stripe_subscription_id", *p.SubscriptionID)
	}
	if p.PriceID != nil {
		add("stripePriceId", "stripe_price_id", *p.PriceID)
	}
	return out
}

// ApplyTo writes the patch onto an in-memory subscription.
func (p Patch) ApplyTo(sub *models.Subscription) {
	if p.Tier != nil {
		sub.Tier = string(*p.Tier)
	}
	if p.Credits != nil {
		sub.AICreditsTotal = *p.Credits
		sub.AICreditsRemaining = *p.Credits
	}
	if p.StartDate != nil {
		t := p.StartDate.UTC()
		sub.StartDate = &t
	}
	if p.RenewalDate != nil {
		t := p.RenewalDate.UTC()
		sub.RenewalDate = &t
	}
	if p.AutoRenew != nil {
		sub.AutoRenew = *p.AutoRenew
	}
	if p.CancelAtPeriodEnd != nil {
		sub.CancelAtPeriodEnd = *p.CancelAtPeriodEnd
	}
	if p.BillingInterval != nil {
		sub.BillingInterval = *p.BillingInterval
		sub.IsYearly = *p.BillingInterval == models.IntervalYear
	}
	if p.CustomerID != nil {
		sub.StripeCustomerID = *p.CustomerID
	}
	if p.SubscriptionID != nil {
		sub.StripeSubscriptionID = *p.SubscriptionID
	}
	if p.PriceID != nil {
		sub.StripePriceID = *p.PriceID
	}
}

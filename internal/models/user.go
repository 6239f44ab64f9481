package models

import "time"

// Billing intervals reported by the payment provider.
const (
	IntervalMonth = "month"
	IntervalYear  = "year"
)

// UserModel is the per-user ledger entry. ID is the subject issued by the
// auth provider, so it is never generated locally.
type UserModel struct {
	ID           string       `json:"id"           bson:"_id"                  gorm:"type:varchar(191);primaryKey"`
	Email        string       `json:"email"        bson:"email"                gorm:"index"`
	Name         string       `json:"name"         bson:"name"`
	Subscription Subscription `json:"subscription" bson:"subscription"         gorm:"embedded;embeddedPrefix:sub_"`
	CreatedAt    time.Time    `json:"created"      bson:"createdAt"`
	UpdatedAt    time.Time    `json:"modified"     bson:"updatedAt"`
}

func (UserModel) TableName() string { return "users" }

// Subscription holds tier, credit balance and provider identifiers.
// 0 <= AICreditsRemaining <= AICreditsTotal at all times.
type Subscription struct {
	Tier                 string     `json:"tier"                 bson:"tier"                 gorm:"column:tier;type:varchar(16);not null;default:'free'"`
	AICreditsTotal       int        `json:"aiCreditsTotal"       bson:"aiCreditsTotal"       gorm:"column:ai_credits_total;not null;default:0"`
	AICreditsRemaining   int        `json:"aiCreditsRemaining"   bson:"aiCreditsRemaining"   gorm:"column:ai_credits_remaining;not null;default:0"`
	StartDate            *time.Time `json:"startDate"            bson:"startDate"            gorm:"column:start_date"`
	RenewalDate          *time.Time `json:"renewalDate"          bson:"renewalDate"          gorm:"column:renewal_date;index"`
	AutoRenew            bool       `json:"autoRenew"            bson:"autoRenew"            gorm:"column:auto_renew"`
	CancelAtPeriodEnd    bool       `json:"cancelAtPeriodEnd"    bson:"cancelAtPeriodEnd"    gorm:"column:cancel_at_period_end"`
	BillingInterval      string     `json:"billingInterval"      bson:"billingInterval"      gorm:"column:billing_interval;type:varchar(8)"`
	IsYearly             bool       `json:"isYearly"             bson:"isYearly"             gorm:"column:is_yearly"`
	StripeCustomerID     string     `json:"stripeCustomerId"     bson:"stripeCustomerId"     gorm:"column:stripe_customer_id;type:varchar(191)"`
	StripeSubscriptionID string     `json:"stripeSubscriptionId" bson:"stripeSubscriptionId" gorm:"column:stripe_subscription_id;type:varchar(191);index"`
	StripePriceID        string     `json:"stripePriceId"        bson:"stripePriceId"        gorm:"column:stripe_price_id;type:varchar(191)"`
}

package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ctenarsky-denik/journal/internal/models"
	"github.com/ctenarsky-denik/journal/internal/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Balance is a snapshot of a user's credits.
type Balance struct {
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
}

func BalanceOf(user *models.UserModel) Balance {
	return Balance{Remaining: user.Subscription.AICreditsRemaining, Total: user.Subscription.AICreditsTotal}
}

// Ledger owns the per-user tier and credit balance.
type Ledger struct {
	store      Store
	receipts   ReceiptStore
	plans      Plans
	log        *zap.Logger
	now        func() time.Time
	receiptTTL time.Duration
}

func NewLedger(store Store, receipts ReceiptStore, plans Plans, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if receipts == nil {
		receipts = NewMemoryReceipts()
	}
	return &Ledger{
		store:      store,
		receipts:   receipts,
		plans:      plans,
		log:        logger.Named("quota"),
		now:        time.Now,
		receiptTTL: DefaultReceiptTTL,
	}
}

func (l *Ledger) Plans() Plans { return l.plans }

// Account returns the ledger entry of userID, creating it with the free
// allotment on first use.
func (l *Ledger) Account(ctx context.Context, userID, email string) (*models.UserModel, error) {
	if userID == "" {
		return nil, ErrAccountNotFound
	}
	user, err := l.store.Get(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	now := l.now().UTC()
	renewal := now.AddDate(0, 1, 0)
	credits := l.plans.Allotment(TierFree)
	fresh := &models.UserModel{
		ID:    userID,
		Email: email,
		Subscription: models.Subscription{
			Tier:               string(TierFree),
			AICreditsTotal:     credits,
			AICreditsRemaining: credits,
			StartDate:          &now,
			RenewalDate:        &renewal,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.store.Create(ctx, fresh); err != nil {
		// A concurrent request may have created it first.
		if existing, getErr := l.store.Get(ctx, userID); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create account %s: %w", userID, err)
	}
	l.log.Info("account created", zap.String("user_id", userID))
	return fresh, nil
}

// Get returns an existing ledger entry.
func (l *Ledger) Get(ctx context.Context, userID string) (*models.UserModel, error) {
	return l.store.Get(ctx, userID)
}

// TierOf reads the tier of a stored account. Unknown names read as free.
func TierOf(user *models.UserModel) Tier {
	tier, _ := ParseTier(user.Subscription.Tier)
	return tier
}

func (l *Ledger) Limits(user *models.UserModel) Limits {
	return l.plans.Limits(TierOf(user))
}

// CheckEntitlement returns an *EntitlementError when the account's tier does
// not grant feature.
func (l *Ledger) CheckEntitlement(user *models.UserModel, feature Feature) error {
	tier := TierOf(user)
	if l.plans.Limits(tier).Allows(feature) {
		return nil
	}
	return &EntitlementError{Feature: feature, Tier: tier, Required: l.plans.RequiredTier(feature)}
}

// CheckBookLimit enforces the tier's library size for an account that
// already owns count books.
func (l *Ledger) CheckBookLimit(user *models.UserModel, count int64) error {
	limits := l.Limits(user)
	if limits.MaxBooks == 0 || count < int64(limits.MaxBooks) {
		return nil
	}
	return &EntitlementError{Feature: FeatureBooks, Tier: TierOf(user), Required: TierBasic}
}

// CheckCredits returns a *QuotaExhaustedError when no credit is left.
func (l *Ledger) CheckCredits(user *models.UserModel) error {
	if user.Subscription.AICreditsRemaining > 0 {
		return nil
	}
	b := BalanceOf(user)
	return &QuotaExhaustedError{Remaining: b.Remaining, Total: b.Total}
}

// Consume deducts exactly one credit with the store's conditional update.
func (l *Ledger) Consume(ctx context.Context, userID string) (Balance, error) {
	return l.consume(ctx, userID, "generation")
}

func (l *Ledger) consume(ctx context.Context, userID, source string) (Balance, error) {
	user, err := l.store.Consume(ctx, userID)
	if errors.Is(err, ErrNoCredits) {
		b := Balance{}
		if current, getErr := l.store.Get(ctx, userID); getErr == nil {
			b = BalanceOf(current)
		}
		return b, &QuotaExhaustedError{Remaining: b.Remaining, Total: b.Total}
	}
	if err != nil {
		return Balance{}, err
	}
	metrics.CreditsConsumed.WithLabelValues(source).Inc()
	return BalanceOf(user), nil
}

// IssueReceipt deducts one credit now and returns a single-use receipt that
// lets a later generation skip its own deduction.
func (l *Ledger) IssueReceipt(ctx context.Context, userID string) (string, Balance, error) {
	balance, err := l.consume(ctx, userID, "receipt")
	if err != nil {
		return "", balance, err
	}
	receipt := uuid.New().String()
	if err := l.receipts.Save(ctx, receipt, userID, l.receiptTTL); err != nil {
		return "", balance, err
	}
	l.log.Info("deduction receipt issued", zap.String("user_id", userID), zap.Int("remaining", balance.Remaining))
	return receipt, balance, nil
}

// VerifyReceipt checks that receipt is live and was issued to userID.
func (l *Ledger) VerifyReceipt(ctx context.Context, userID, receipt string) error {
	if receipt == "" {
		return ErrInvalidReceipt
	}
	owner, ok, err := l.receipts.Owner(ctx, receipt)
	if err != nil {
		return err
	}
	if !ok || owner != userID {
		return ErrInvalidReceipt
	}
	return nil
}

// RedeemReceipt consumes the receipt. A second redemption fails.
func (l *Ledger) RedeemReceipt(ctx context.Context, userID, receipt string) error {
	if err := l.VerifyReceipt(ctx, userID, receipt); err != nil {
		return err
	}
	owner, ok, err := l.receipts.Take(ctx, receipt)
	if err != nil {
		return err
	}
	if !ok || owner != userID {
		return ErrInvalidReceipt
	}
	return nil
}

// Reset puts an account on tier with a fresh monthly allotment.
func (l *Ledger) Reset(ctx context.Context, userID string, tier Tier) (*models.UserModel, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: unknown tier %q", ErrInvalidPatch, tier)
	}
	credits := l.plans.Allotment(tier)
	renewal := l.now().UTC().AddDate(0, 1, 0)
	return l.store.Apply(ctx, userID, Patch{Tier: &tier, Credits: &credits, RenewalDate: &renewal})
}

// Apply writes an absolute patch.
func (l *Ledger) Apply(ctx context.Context, userID string, patch Patch) (*models.UserModel, error) {
	return l.store.Apply(ctx, userID, patch)
}

func (l *Ledger) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.UserModel, error) {
	return l.store.FindBySubscriptionID(ctx, subscriptionID)
}

// RefillFreeTier restores the monthly allotment of free accounts whose
// renewal date has passed and schedules their next renewal a month out.
func (l *Ledger) RefillFreeTier(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	n, err := l.store.Refill(ctx, TierFree, l.plans.Allotment(TierFree), now, now.AddDate(0, 1, 0))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.CreditsRefilled.Add(float64(n))
		l.log.Info("free tier refilled", zap.Int64("accounts", n))
	}
	return n, nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

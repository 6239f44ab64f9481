package quota

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ctenarsky-denik/journal/internal/database"
	"github.com/ctenarsky-denik/journal/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return NewGormStore(db)
}

func seedUser(id string, credits int) *models.UserModel {
	renewal := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	return &models.UserModel{
		ID: id,
		Subscription: models.Subscription{
			Tier:               string(TierFree),
			AICreditsTotal:     credits,
			AICreditsRemaining: credits,
			RenewalDate:        &renewal,
		},
	}
}

func TestGormStore_CreateGetConsume(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, seedUser("u1", 2)))
	assert.Error(t, store.Create(ctx, seedUser("u1", 2)))

	user, err := store.Consume(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, user.Subscription.AICreditsRemaining)
	assert.Equal(t, 2, user.Subscription.AICreditsTotal)

	_, err = store.Consume(ctx, "u1")
	require.NoError(t, err)
	_, err = store.Consume(ctx, "u1")
	assert.ErrorIs(t, err, ErrNoCredits)

	_, err = store.Consume(ctx, "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestGormStore_ApplyAndFindBySubscription(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, seedUser("u1", 3)))

	renewal := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	user, err := store.Apply(ctx, "u1", Patch{
		Tier:              Ptr(TierPremium),
		Credits:           Ptr(100),
		RenewalDate:       &renewal,
		BillingInterval:   Ptr(models.IntervalYear),
		SubscriptionID:    Ptr("sub_1"),
		CustomerID:        Ptr("cus_1"),
		PriceID:           Ptr("price_p"),
		CancelAtPeriodEnd: Ptr(false),
		AutoRenew:         Ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "premium", user.Subscription.Tier)
	assert.Equal(t, 100, user.Subscription.AICreditsRemaining)
	assert.True(t, user.Subscription.IsYearly)
	assert.True(t, user.Subscription.AutoRenew)
	require.NotNil(t, user.Subscription.RenewalDate)
	assert.True(t, renewal.Equal(*user.Subscription.RenewalDate))

	found, err := store.FindBySubscriptionID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, "u1", found.ID)

	_, err = store.FindBySubscriptionID(ctx, "sub_2")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, err = store.FindBySubscriptionID(ctx, "")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = store.Apply(ctx, "missing", Patch{Credits: Ptr(1)})
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, err = store.Apply(ctx, "u1", Patch{Credits: Ptr(-5)})
	assert.ErrorIs(t, err, ErrInvalidPatch)
}

func TestGormStore_Refill(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, seedUser("due", 3)))
	require.NoError(t, store.Create(ctx, seedUser("paid", 30)))
	_, err := store.Apply(ctx, "paid", Patch{Tier: Ptr(TierBasic)})
	require.NoError(t, err)
	_, err = store.Consume(ctx, "due")
	require.NoError(t, err)

	due := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	next := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	n, err := store.Refill(ctx, TierFree, 3, due, next)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	user, err := store.Get(ctx, "due")
	require.NoError(t, err)
	assert.Equal(t, 3, user.Subscription.AICreditsRemaining)
	assert.True(t, next.Equal(*user.Subscription.RenewalDate))
}

func TestGormStore_ConcurrentConsume(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, seedUser("u1", 5)))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Consume(ctx, "u1")
			if err != nil && !errors.Is(err, ErrNoCredits) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	user, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, user.Subscription.AICreditsRemaining)
}

package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ctenarsky-denik/journal/internal/models"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// GormStore keeps ledger entries in the users table.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) Get(ctx context.Context, userID string) (*models.UserModel, error) {
	var user models.UserModel
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &user, nil
}

func (s *GormStore) Create(ctx context.Context, user *models.UserModel) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if isDuplicateKey(err) {
		return errDuplicateAccount
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *GormStore) Consume(ctx context.Context, userID string) (*models.UserModel, error) {
	res := s.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("id = ? AND sub_ai_credits_remaining > 0", userID).
		Updates(map[string]any{
			"sub_ai_credits_remaining": gorm.Expr("sub_ai_credits_remaining - 1"),
			"updated_at":               s.now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("consume credit: %w", res.Error)
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, ErrNoCredits
	}
	return user, nil
}

func (s *GormStore) Apply(ctx context.Context, userID string, patch Patch) (*models.UserModel, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	updates := map[string]any{"updated_at": s.now()}
	for _, f := range patch.fields() {
		updates[f.column] = f.value
	}
	res := s.db.WithContext(ctx).Model(&models.UserModel{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("apply subscription patch: %w", res.Error)
	}
	// MySQL reports zero affected rows for a replayed write, so existence
	// is decided by the read.
	return s.Get(ctx, userID)
}

func (s *GormStore) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.UserModel, error) {
	if subscriptionID == "" {
		return nil, ErrAccountNotFound
	}
	var user models.UserModel
	err := s.db.WithContext(ctx).Where("sub_stripe_subscription_id = ?", subscriptionID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account by subscription: %w", err)
	}
	return &user, nil
}

func (s *GormStore) Refill(ctx context.Context, tier Tier, credits int, due, next time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("sub_tier = ? AND sub_renewal_date IS NOT NULL AND sub_renewal_date <= ?", string(tier), due.UTC()).
		Updates(map[string]any{
			"sub_ai_credits_total":     credits,
			"sub_ai_credits_remaining": credits,
			"sub_renewal_date":         next.UTC(),
			"updated_at":               s.now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("refill %s accounts: %w", tier, res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

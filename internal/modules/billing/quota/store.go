package quota

import (
	"context"
	"time"

	"github.com/ctenarsky-denik/journal/internal/models"
)

// Store persists ledger entries. Implementations must make Consume a single
// atomic conditional decrement and must treat every Patch as an absolute
// write.
type Store interface {
	Get(ctx context.Context, userID string) (*models.UserModel, error)
	// Create inserts a new account; an existing id yields errDuplicateAccount.
	Create(ctx context.Context, user *models.UserModel) error
	// Consume decrements the remaining balance iff it is positive and
	// returns the updated entry. A zero balance yields ErrNoCredits.
	Consume(ctx context.Context, userID string) (*models.UserModel, error)
	Apply(ctx context.Context, userID string, patch Patch) (*models.UserModel, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.UserModel, error)
	// Refill resets the balance of every account on tier whose renewal date
	// is not after due, and moves its renewal date to next.
	Refill(ctx context.Context, tier Tier, credits int, due, next time.Time) (int64, error)
	Ping(ctx context.Context) error
}

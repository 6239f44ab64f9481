package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ctenarsky-denik/journal/internal/pkg/redis"
)

// DefaultReceiptTTL bounds how long a pre-deducted credit can be claimed.
const DefaultReceiptTTL = 10 * time.Minute

const receiptKeyPrefix = "journal:quota:receipt:"

// ReceiptStore remembers which user a deduction receipt was issued to.
type ReceiptStore interface {
	Save(ctx context.Context, receipt, userID string, ttl time.Duration) error
	// Owner returns the user a live receipt belongs to.
	Owner(ctx context.Context, receipt string) (string, bool, error)
	// Take removes a live receipt and returns its owner. Each receipt can be
	// taken once.
	Take(ctx context.Context, receipt string) (string, bool, error)
}

type memoryReceipt struct {
	userID  string
	expires time.Time
}

// MemoryReceipts is a process-local ReceiptStore.
type MemoryReceipts struct {
	mu       sync.Mutex
	receipts map[string]memoryReceipt
	now      func() time.Time
}

func NewMemoryReceipts() *MemoryReceipts {
	return &MemoryReceipts{receipts: map[string]memoryReceipt{}, now: time.Now}
}

func (m *MemoryReceipts) Save(_ context.Context, receipt, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.receipts[receipt]; ok && m.now().Before(r.expires) {
		return fmt.Errorf("receipt %s already issued", receipt)
	}
	m.receipts[receipt] = memoryReceipt{userID: userID, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryReceipts) Owner(_ context.Context, receipt string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.receipts[receipt]
	if !ok || !m.now().Before(r.expires) {
		return "", false, nil
	}
	return r.userID, true, nil
}

func (m *MemoryReceipts) Take(_ context.Context, receipt string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.receipts[receipt]
	if !ok {
		return "", false, nil
	}
	delete(m.receipts, receipt)
	if !m.now().Before(r.expires) {
		return "", false, nil
	}
	return r.userID, true, nil
}

// RedisReceipts shares receipts across instances.
type RedisReceipts struct {
	client *redis.Client
}

func NewRedisReceipts(client *redis.Client) *RedisReceipts {
	return &RedisReceipts{client: client}
}

func (r *RedisReceipts) Save(ctx context.Context, receipt, userID string, ttl time.Duration) error {
	ok, err := r.client.SetNX(ctx, receiptKeyPrefix+receipt, userID, ttl)
	if err != nil {
		return fmt.Errorf("save receipt: %w", err)
	}
	if !ok {
		return fmt.Errorf("receipt %s already issued", receipt)
	}
	return nil
}

func (r *RedisReceipts) Owner(ctx context.Context, receipt string) (string, bool, error) {
	userID, ok, err := r.client.Get(ctx, receiptKeyPrefix+receipt)
	if err != nil {
		return "", false, fmt.Errorf("read receipt: %w", err)
	}
	return userID, ok, nil
}

func (r *RedisReceipts) Take(ctx context.Context, receipt string) (string, bool, error) {
	userID, ok, err := r.client.GetDel(ctx, receiptKeyPrefix+receipt)
	if err != nil {
		return "", false, fmt.Errorf("take receipt: %w", err)
	}
	return userID, ok, nil
}

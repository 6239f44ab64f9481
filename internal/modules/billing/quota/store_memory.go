package quota

import (
	"context"
	"sync"
	"time"

	"github.com/ctenarsky-denik/journal/internal/models"
)

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]models.UserModel
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: map[string]models.UserModel{}, now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*models.UserModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return cloneUser(user), nil
}

func (s *MemoryStore) Create(_ context.Context, user *models.UserModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return errDuplicateAccount
	}
	s.users[user.ID] = *cloneUser(*user)
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, userID string) (*models.UserModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if user.Subscription.AICreditsRemaining <= 0 {
		return nil, ErrNoCredits
	}
	user.Subscription.AICreditsRemaining--
	user.UpdatedAt = s.now()
	s.users[userID] = user
	return cloneUser(user), nil
}

func (s *MemoryStore) Apply(_ context.Context, userID string, patch Patch) (*models.UserModel, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	patch.ApplyTo(&user.Subscription)
	user.UpdatedAt = s.now()
	s.users[userID] = user
	return cloneUser(user), nil
}

func (s *MemoryStore) FindBySubscriptionID(_ context.Context, subscriptionID string) (*models.UserModel, error) {
	if subscriptionID == "" {
		return nil, ErrAccountNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Subscription.StripeSubscriptionID == subscriptionID {
			return cloneUser(user), nil
		}
	}
	return nil, ErrAccountNotFound
}

func (s *MemoryStore) Refill(_ context.Context, tier Tier, credits int, due, next time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, user := range s.users {
		sub := &user.Subscription
		if sub.Tier != string(tier) || sub.RenewalDate == nil || sub.RenewalDate.After(due) {
			continue
		}
		Patch{Credits: &credits, RenewalDate: &next}.ApplyTo(sub)
		user.UpdatedAt = s.now()
		s.users[id] = user
		n++
	}
	return n, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func cloneUser(user models.UserModel) *models.UserModel {
	out := user
	if user.Subscription.StartDate != nil {
		t := *user.Subscription.StartDate
		out.Subscription.StartDate = &t
	}
	if user.Subscription.RenewalDate != nil {
		t := *user.Subscription.RenewalDate
		out.Subscription.RenewalDate = &t
	}
	return &out
}

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mansoorceksport/elearning-billing/internal/domain"
)

// LearnerRepository implements domain.LearnerRepository
type LearnerRepository struct {
	mu        sync.Mutex
	byAccount map[string]domain.LearnerProfile
}

func NewLearnerRepository() *LearnerRepository {
	return &LearnerRepository{byAccount: make(map[string]domain.LearnerProfile)}
}

func (r *LearnerRepository) UpsertSubscription(_ context.Context, accountID, email, subscriptionID string) (*domain.LearnerProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	profile, ok := r.byAccount[accountID]
	if !ok {
		profile = domain.LearnerProfile{
			ID:             newID(),
			AccountID:      accountID,
			Email:          email,
			CertificateIDs: []string{},
			CreatedAt:      now,
		}
	}
	profile.SubscriptionID = subscriptionID
	profile.UpdatedAt = now
	r.byAccount[accountID] = profile

	out := profile
	return &out, nil
}

func (r *LearnerRepository) GetByAccountID(_ context.Context, accountID string) (*domain.LearnerProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.byAccount[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &profile, nil
}

// Put stores a profile as-is
func (r *LearnerRepository) Put(profile domain.LearnerProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if profile.ID == "" {
		profile.ID = newID()
	}
	r.byAccount[profile.AccountID] = profile
}

// Count returns the number of stored profiles
func (r *LearnerRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byAccount)
}

// AccountRepository implements domain.AccountRepository
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

func NewAccountRepository(seed ...domain.Account) *AccountRepository {
	r := &AccountRepository{accounts: make(map[string]domain.Account)}
	for _, a := range seed {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &account, nil
}

// DeviceTokenRepository implements domain.DeviceTokenRepository
type DeviceTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]domain.DeviceToken
}

func NewDeviceTokenRepository() *DeviceTokenRepository {
	return &DeviceTokenRepository{tokens: make(map[string]domain.DeviceToken)}
}

func (r *DeviceTokenRepository) Upsert(_ context.Context, token *domain.DeviceToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token.UpdatedAt = time.Now().UTC()
	r.tokens[token.AccountID] = *token
	return nil
}

func (r *DeviceTokenRepository) GetByAccountID(_ context.Context, accountID string) (*domain.DeviceToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &token, nil
}

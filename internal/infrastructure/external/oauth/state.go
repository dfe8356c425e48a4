package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// Store is the subset of the cache used for state tokens
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

// StateManager manages OAuth state tokens for CSRF protection. Each state is
// bound to a subject (a user ID, or "login" before sign-in) and can be
// consumed once.
type StateManager struct {
	store      Store
	expiration time.Duration
}

// NewStateManager creates a new state manager
func NewStateManager(store Store) *StateManager {
	return &StateManager{
		store:      store,
		expiration: 15 * time.Minute,
	}
}

// GenerateState generates a random state token bound to subject
func (sm *StateManager) GenerateState(ctx context.Context, subject string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	state := base64.URLEncoding.EncodeToString(b)
	if err := sm.store.Set(ctx, stateKey(state), subject, sm.expiration); err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}

	return state, nil
}

// ValidateState consumes state and reports whether it was issued to subject
func (sm *StateManager) ValidateState(ctx context.Context, state, subject string) bool {
	if state == "" {
		return false
	}
	key := stateKey(state)

	redeemed, err := sm.store.CompareAndDelete(ctx, key, subject)
	if err != nil {
		return false
	}
	if !redeemed {
		// A mismatched subject still burns the state.
		_ = sm.store.Delete(ctx, key)
		return false
	}
	return true
}

func stateKey(state string) string {
	return fmt.Sprintf("oauth:state:%s", state)
}

// Package lease provides a mutual-exclusion lease for scheduled jobs so at
// most one sweep runs across all instances.
package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/infrastructure/cache"
)

// ErrHeld is returned when another holder owns the lease.
var ErrHeld = errors.New("lease held by another holder")

// Lease is an acquired lease.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out leases by name.
type Locker interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (Lease, error)
}

// StoreLocker keeps leases in a cache.Store (Redis in production). Each
// lease carries a random token so an expired holder cannot release a lease
// taken over by someone else.
type StoreLocker struct {
	store  cache.Store
	prefix string
}

// NewStoreLocker creates a locker backed by store
func NewStoreLocker(store cache.Store) *StoreLocker {
	return &StoreLocker{store: store, prefix: "lease:"}
}

// TryAcquire takes the lease or returns ErrHeld without blocking
func (l *StoreLocker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (Lease, error) {
	key := l.prefix + name
	token := uuid.NewString()

	ok, err := l.store.SetNX(ctx, key, token, ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return &storeLease{store: l.store, key: key, token: token}, nil
}

type storeLease struct {
	store cache.Store
	key   string
	token string
}

func (s *storeLease) Release(ctx context.Context) error {
	deleted, err := s.store.CompareAndDelete(ctx, s.key, s.token)
	if err != nil {
		return fmt.Errorf("release lease %s: %w", s.key, err)
	}
	if !deleted {
		return entities.ErrLeaseNotHeld
	}
	return nil
}

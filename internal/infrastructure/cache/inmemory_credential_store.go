package cache

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/shoply/backend/internal/domain/payment"
)

// credentialEntry holds one provider's credentials with expiration
type credentialEntry struct {
	credentials map[string]string
	expiresAt   time.Time
}

// InMemoryCredentialStore implements payment.CredentialStore using an
// in-memory map. Suitable for single-instance deployments and testing.
type InMemoryCredentialStore struct {
	mu        sync.RWMutex
	entries   map[payment.Provider]credentialEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryCredentialStore creates a new in-memory credential store.
// It starts a background goroutine to clean up expired entries.
func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	store := &InMemoryCredentialStore{
		entries:  make(map[payment.Provider]credentialEntry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Get returns the cached credentials for a provider, or nil when absent or
// expired
func (s *InMemoryCredentialStore) Get(ctx context.Context, provider payment.Provider) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[provider]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, nil
	}

	// Copy so callers cannot mutate the cached map
	return maps.Clone(e.credentials), nil
}

// Save stores the credentials for a provider with a TTL
func (s *InMemoryCredentialStore) Save(ctx context.Context, provider payment.Provider, credentials map[string]string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[provider] = credentialEntry{
		credentials: maps.Clone(credentials),
		expiresAt:   time.Now().Add(ttl),
	}
	return nil
}

// Delete removes the cached credentials for a provider
func (s *InMemoryCredentialStore) Delete(ctx context.Context, provider payment.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, provider)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryCredentialStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryCredentialStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryCredentialStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for provider, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, provider)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryCredentialStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure InMemoryCredentialStore implements payment.CredentialStore
var _ payment.CredentialStore = (*InMemoryCredentialStore)(nil)

package datastore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coreybb/hnwatch/models"
	"github.com/coreybb/hnwatch/webutil"
)

// MemorySubscriptionStore is a thread-safe in-memory SubscriptionStore.
// Used as the "memory" backend for local runs without a database, and by
// tests. All methods are safe for concurrent use.
type MemorySubscriptionStore struct {
	mu   sync.RWMutex
	subs map[string]models.Subscription
}

func NewMemorySubscriptionStore() *MemorySubscriptionStore {
	return &MemorySubscriptionStore{subs: make(map[string]models.Subscription)}
}

func (s *MemorySubscriptionStore) ListAll(_ context.Context) ([]models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subs := make([]models.Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs, nil
}

func (s *MemorySubscriptionStore) Upsert(_ context.Context, sub models.PushSubscription) (models.Subscription, error) {
	if sub.Endpoint == "" {
		return models.Subscription{}, fmt.Errorf("subscription endpoint cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	key := webutil.DeriveSubscriberKey(sub.Endpoint)

	record := models.Subscription{
		Key:          key,
		Subscription: sub,
		CreatedAt:    now,
		LastVerified: now,
	}
	if existing, ok := s.subs[key]; ok {
		record.CreatedAt = existing.CreatedAt
	}
	s.subs[key] = record
	return record, nil
}

func (s *MemorySubscriptionStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subs, key)
	return nil
}

// Len reports the number of stored subscriptions.
func (s *MemorySubscriptionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Contains reports whether a record exists for key.
func (s *MemorySubscriptionStore) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.subs[key]
	return ok
}

package datastore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/coreybb/hnwatch/models"
	"github.com/coreybb/hnwatch/webutil"
	_ "modernc.org/sqlite"
)

func newTestRepository(t *testing.T) *SubscriptionRepository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewSubscriptionRepository(db)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return repo
}

func testSubscription(endpoint string) models.PushSubscription {
	return models.PushSubscription{
		Endpoint: endpoint,
		Keys:     models.SubscriptionKeys{P256dh: "p256dh-key", Auth: "auth-secret"},
	}
}

func TestRepositoryUpsertAndListAll(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	sub, err := repo.Upsert(ctx, testSubscription("https://push.example.com/a"))
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if sub.Key != webutil.DeriveSubscriberKey("https://push.example.com/a") {
		t.Fatalf("record key does not match derived endpoint key")
	}

	subs, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(subs))
	}
	if subs[0].Subscription.Endpoint != "https://push.example.com/a" {
		t.Fatalf("unexpected endpoint %q", subs[0].Subscription.Endpoint)
	}
	if subs[0].Subscription.Keys.Auth != "auth-secret" {
		t.Fatalf("auth secret not round-tripped")
	}
}

func TestRepositoryUpsertIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, testSubscription("https://push.example.com/a"))
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	second, err := repo.Upsert(ctx, testSubscription("https://push.example.com/a"))
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if first.Key != second.Key {
		t.Fatalf("same endpoint produced different keys: %s vs %s", first.Key, second.Key)
	}

	subs, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected exactly 1 record after duplicate upsert, got %d", len(subs))
	}
}

func TestRepositoryDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	sub, err := repo.Upsert(ctx, testSubscription("https://push.example.com/a"))
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if err := repo.Delete(ctx, sub.Key); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	subs, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("expected empty store after delete, got %d records", len(subs))
	}

	// Deleting an absent key is a no-op, not an error.
	if err := repo.Delete(ctx, sub.Key); err != nil {
		t.Fatalf("delete of absent key returned error: %v", err)
	}
}

func TestRepositoryUpsertRejectsEmptyEndpoint(t *testing.T) {
	repo := newTestRepository(t)

	if _, err := repo.Upsert(context.Background(), models.PushSubscription{}); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}

func TestMemoryStoreUpsertIsIdempotent(t *testing.T) {
	store := NewMemorySubscriptionStore()
	ctx := context.Background()

	first, err := store.Upsert(ctx, testSubscription("https://push.example.com/a"))
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if _, err := store.Upsert(ctx, testSubscription("https://push.example.com/a")); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	if store.Len() != 1 {
		t.Fatalf("expected exactly 1 record, got %d", store.Len())
	}
	if !store.Contains(first.Key) {
		t.Fatal("stored record not found under derived key")
	}
}

func TestMemoryStoreDeleteAbsentKeyIsNoOp(t *testing.T) {
	store := NewMemorySubscriptionStore()

	if err := store.Delete(context.Background(), "no-such-key"); err != nil {
		t.Fatalf("delete of absent key returned error: %v", err)
	}
}

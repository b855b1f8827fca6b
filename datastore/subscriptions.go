package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coreybb/hnwatch/models"
	"github.com/coreybb/hnwatch/webutil"
)

// ErrStoreUnavailable wraps backend failures on subscription reads and
// writes. The dispatch pipeline treats a read failure as "no subscribers
// this run" rather than aborting.
var ErrStoreUnavailable = errors.New("subscription store unavailable")

// SubscriptionStore is the durable mapping from derived subscriber key to
// push subscription. Implementations must make Upsert and Delete safe under
// concurrent calls; both are single-key and idempotent.
type SubscriptionStore interface {
	// ListAll returns a snapshot of every stored subscription.
	ListAll(ctx context.Context) ([]models.Subscription, error)
	// Upsert stores the subscription under its derived key, creating or
	// refreshing the record. Calling it twice with the same endpoint
	// leaves exactly one record.
	Upsert(ctx context.Context, sub models.PushSubscription) (models.Subscription, error)
	// Delete removes the record for key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}

// SubscriptionRepository is the SQL-backed SubscriptionStore. The queries
// use $N placeholders and ON CONFLICT upserts, which both lib/pq and
// modernc.org/sqlite accept, so one repository serves both backends.
type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// EnsureSchema creates the subscriptions table if it does not exist.
func (r *SubscriptionRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS subscriptions (
			key           TEXT PRIMARY KEY,
			endpoint      TEXT NOT NULL,
			p256dh        TEXT NOT NULL,
			auth          TEXT NOT NULL,
			created_at    TIMESTAMP NOT NULL,
			last_verified TIMESTAMP NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create subscriptions table: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) ListAll(ctx context.Context) ([]models.Subscription, error) {
	query := `
		SELECT key, endpoint, p256dh, auth, created_at, last_verified
		FROM subscriptions
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query subscriptions: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var s models.Subscription
		if err := rows.Scan(
			&s.Key,
			&s.Subscription.Endpoint,
			&s.Subscription.Keys.P256dh,
			&s.Subscription.Keys.Auth,
			&s.CreatedAt,
			&s.LastVerified,
		); err != nil {
			return nil, fmt.Errorf("%w: failed to scan subscription row: %v", ErrStoreUnavailable, err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating subscription rows: %v", ErrStoreUnavailable, err)
	}
	return subs, nil
}

func (r *SubscriptionRepository) Upsert(ctx context.Context, sub models.PushSubscription) (models.Subscription, error) {
	if sub.Endpoint == "" {
		return models.Subscription{}, fmt.Errorf("subscription endpoint cannot be empty")
	}

	now := time.Now().UTC()
	record := models.Subscription{
		Key:          webutil.DeriveSubscriberKey(sub.Endpoint),
		Subscription: sub,
		CreatedAt:    now,
		LastVerified: now,
	}

	query := `
		INSERT INTO subscriptions (key, endpoint, p256dh, auth, created_at, last_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			endpoint      = EXCLUDED.endpoint,
			p256dh        = EXCLUDED.p256dh,
			auth          = EXCLUDED.auth,
			last_verified = EXCLUDED.last_verified
	`
	_, err := r.db.ExecContext(ctx, query,
		record.Key,
		sub.Endpoint,
		sub.Keys.P256dh,
		sub.Keys.Auth,
		record.CreatedAt,
		record.LastVerified,
	)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%w: failed to upsert subscription %s: %v", ErrStoreUnavailable, record.Key, err)
	}
	return record, nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE key = $1`, key); err != nil {
		return fmt.Errorf("%w: failed to delete subscription %s: %v", ErrStoreUnavailable, key, err)
	}
	return nil
}

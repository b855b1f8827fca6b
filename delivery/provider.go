package delivery

import (
	"context"

	"github.com/coreybb/hnwatch/models"
)

// PushProvider is the adapter interface for push delivery mechanisms.
// One call is one attempt: providers do not retry internally. A failed
// (subscriber, item) pair is simply retried by the next scheduled run.
type PushProvider interface {
	// Deliver attempts to push one notification to one subscriber.
	Deliver(ctx context.Context, sub models.PushSubscription, payload models.NotificationPayload) Outcome
}

// Package dispatch implements the notification dispatch pipeline: one run
// fetches recent stories, snapshots the subscriber set, pushes every
// (subscriber, story) pair, and removes subscribers whose endpoint is
// permanently gone.
package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/coreybb/hnwatch/datastore"
	"github.com/coreybb/hnwatch/delivery"
	"github.com/coreybb/hnwatch/models"
	"github.com/google/uuid"
)

const defaultMaxWorkers = 8

// ItemSource provides the recent stories for one run.
type ItemSource interface {
	FetchRecentStories(ctx context.Context, window time.Duration) ([]models.Item, error)
}

// Coordinator orchestrates one dispatch run. It holds no subscriber state
// of its own; the store is read once per run and mutated only during
// reconciliation.
type Coordinator struct {
	items      ItemSource
	store      datastore.SubscriptionStore
	provider   delivery.PushProvider
	window     time.Duration
	maxWorkers int
}

func NewCoordinator(
	items ItemSource,
	store datastore.SubscriptionStore,
	provider delivery.PushProvider,
	window time.Duration,
) *Coordinator {
	return &Coordinator{
		items:      items,
		store:      store,
		provider:   provider,
		window:     window,
		maxWorkers: defaultMaxWorkers,
	}
}

// subscriberResult carries one subscriber's aggregated outcomes back from
// its worker goroutine.
type subscriberResult struct {
	key       string
	sent      int
	failed    int
	permanent bool
}

// Run executes one dispatch cycle and returns its summary. It never
// panics outward and never returns an error: every failure inside the run
// is logged and absorbed so the next scheduled run is unaffected.
func (c *Coordinator) Run(ctx context.Context) (summary models.DispatchSummary) {
	summary.RunID = uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR (Dispatch): Run %s panicked: %v", summary.RunID, r)
		}
	}()

	log.Printf("INFO (Dispatch): Run %s starting", summary.RunID)

	items, err := c.items.FetchRecentStories(ctx, c.window)
	if err != nil {
		log.Printf("ERROR (Dispatch): Run %s failed to fetch stories: %v", summary.RunID, err)
		return summary
	}
	if len(items) == 0 {
		log.Printf("INFO (Dispatch): Run %s found no recent stories", summary.RunID)
		return summary
	}
	for _, item := range items {
		summary.ItemIDs = append(summary.ItemIDs, item.ID)
	}

	subs, err := c.store.ListAll(ctx)
	if err != nil {
		log.Printf("ERROR (Dispatch): Run %s could not list subscriptions, treating as none: %v", summary.RunID, err)
		return summary
	}
	if len(subs) == 0 {
		log.Printf("INFO (Dispatch): Run %s has no subscriptions to notify", summary.RunID)
		return summary
	}

	payloads := make([]models.NotificationPayload, len(items))
	for i, item := range items {
		payloads[i] = models.NewStoryNotification(item)
	}

	log.Printf("INFO (Dispatch): Run %s pushing %d stories to %d subscribers",
		summary.RunID, len(items), len(subs))

	results := c.fanOut(ctx, subs, payloads)

	var removeKeys []string
	for _, res := range results {
		summary.Sent += res.sent
		summary.Failed += res.failed
		if res.permanent {
			removeKeys = append(removeKeys, res.key)
		}
	}

	// Reconciliation happens only after every outcome is in, so a delete
	// can never race a pending delivery for the same subscriber.
	for _, key := range removeKeys {
		if err := c.store.Delete(ctx, key); err != nil {
			log.Printf("WARN (Dispatch): Run %s failed to remove subscription %s, leaving for next run: %v",
				summary.RunID, key, err)
			continue
		}
		summary.Removed++
		log.Printf("INFO (Dispatch): Run %s removed invalid subscription %s", summary.RunID, key)
	}

	log.Printf("INFO (Dispatch): Run %s complete: %d sent, %d failed, %d removed",
		summary.RunID, summary.Sent, summary.Failed, summary.Removed)
	return summary
}

// fanOut delivers every payload to every subscriber with one goroutine per
// subscriber, bounded by maxWorkers. Items for a single subscriber are
// attempted in order; once an endpoint is classified permanently failed,
// its remaining items are skipped, since further attempts against a gone
// endpoint fail identically.
func (c *Coordinator) fanOut(
	ctx context.Context,
	subs []models.Subscription,
	payloads []models.NotificationPayload,
) []subscriberResult {
	results := make(chan subscriberResult, len(subs))
	sem := make(chan struct{}, c.maxWorkers)

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub models.Subscription) {
			defer wg.Done()
			// A panicking provider must not take down the run; the
			// subscriber simply contributes no outcomes this cycle.
			defer func() {
				if r := recover(); r != nil {
					log.Printf("ERROR (Dispatch): Delivery worker for %s panicked: %v", sub.Key, r)
				}
			}()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- c.deliverAll(ctx, sub, payloads)
		}(sub)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]subscriberResult, 0, len(subs))
	for res := range results {
		collected = append(collected, res)
	}
	return collected
}

// deliverAll pushes every payload to one subscriber, one attempt per
// payload, and aggregates the outcomes.
func (c *Coordinator) deliverAll(
	ctx context.Context,
	sub models.Subscription,
	payloads []models.NotificationPayload,
) subscriberResult {
	res := subscriberResult{key: sub.Key}

	for _, payload := range payloads {
		switch c.provider.Deliver(ctx, sub.Subscription, payload) {
		case delivery.OutcomeSuccess:
			res.sent++
		case delivery.OutcomePermanentFailure:
			res.failed++
			res.permanent = true
			return res
		default:
			res.failed++
		}
	}
	return res
}

// Package hackernews implements the feed client for the Hacker News
// Firebase API: listing the newest story IDs and fetching item bodies,
// with recency filtering and bounded retry on every network call.
package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/coreybb/hnwatch/models"
	"github.com/coreybb/hnwatch/retry"
)

const (
	// DefaultBaseURL is the public Hacker News Firebase API.
	DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

	// scanLimit bounds how many of the newest story IDs are examined per
	// run. Stories beyond this prefix are never fetched, even if more than
	// scanLimit qualifying stories were published inside the window. This
	// is an accepted coverage gap, not an oversight.
	scanLimit = 30

	requestTimeout = 15 * time.Second
)

// Client fetches recent stories from the Hacker News API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
	now        func() time.Time
}

// NewClient returns a Client for the given API base URL. An empty baseURL
// selects the public Hacker News API.
func NewClient(baseURL string, policy retry.Policy) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		policy:     policy,
		now:        time.Now,
	}
}

// IsRecent reports whether a publish time (seconds since epoch) falls within
// the window ending at now. The boundary is inclusive: an item exactly
// window old still qualifies.
func IsRecent(publishTime int64, window time.Duration, now time.Time) bool {
	cutoff := now.Unix() - int64(window.Seconds())
	return publishTime >= cutoff
}

// FetchRecentStories returns the stories published within the window,
// newest first. The newstories list is assumed to be ordered newest-first,
// so the scan stops at the first story whose known publish time falls
// outside the window; everything after it is treated as older and never
// fetched. Stories with an unknown publish time are skipped without
// stopping the scan. Deleted, dead, and untitled stories are excluded.
//
// A list fetch that fails after exhausted retries returns an error; a
// single item fetch that fails is skipped and logged.
func (c *Client) FetchRecentStories(ctx context.Context, window time.Duration) ([]models.Item, error) {
	var ids []int
	err := retry.Do(ctx, c.policy, "newstories fetch", func() error {
		return c.getJSON(ctx, c.baseURL+"/newstories.json", &ids)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch newstories list: %w", err)
	}

	if len(ids) > scanLimit {
		ids = ids[:scanLimit]
	}

	now := c.now()
	var stories []models.Item

	for _, id := range ids {
		var item models.Item
		err := retry.Do(ctx, c.policy, fmt.Sprintf("item %d fetch", id), func() error {
			return c.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", c.baseURL, id), &item)
		})
		if err != nil {
			log.Printf("WARN (HackerNews): Skipping item %d: %v", id, err)
			continue
		}

		// The API returns a JSON null body for unknown IDs, which decodes
		// to a zero Item.
		if item.ID == 0 {
			continue
		}

		// Unknown age: skip, but keep scanning. Only a known-old story
		// proves the rest of the list is older.
		if item.Time == 0 {
			continue
		}

		if !IsRecent(item.Time, window, now) {
			break
		}

		if item.Deleted || item.Dead || item.Title == "" {
			continue
		}

		stories = append(stories, item)
	}

	return stories, nil
}

// getJSON performs one GET and decodes the response body into out.
// A non-2xx status is an error so the retry policy treats it as a failure.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", url, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

package models

import "fmt"

const hackerNewsItemURLFormat = "https://news.ycombinator.com/item?id=%d"

// Item is a single Hacker News story as returned by the Firebase API.
// Every field except ID is optional; absent JSON fields decode to zero values.
// Items are immutable once fetched and are never persisted.
type Item struct {
	ID      int    `json:"id"`
	Type    string `json:"type,omitempty"`
	Title   string `json:"title,omitempty"`
	Text    string `json:"text,omitempty"`
	By      string `json:"by,omitempty"`
	Score   int    `json:"score,omitempty"`
	Time    int64  `json:"time,omitempty"` // seconds since epoch; 0 means unknown
	URL     string `json:"url,omitempty"`
	Dead    bool   `json:"dead,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// TargetURL returns the story's external URL, falling back to the
// Hacker News comments page when the story has no URL of its own.
func (i Item) TargetURL() string {
	if i.URL != "" {
		return i.URL
	}
	if i.ID != 0 {
		return fmt.Sprintf(hackerNewsItemURLFormat, i.ID)
	}
	return "https://news.ycombinator.com"
}

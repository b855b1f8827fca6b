package models

import "fmt"

const notificationIconURL = "https://news.ycombinator.com/y18.gif"

// NotificationPayload is the JSON body pushed to each subscriber for one
// story. It is constructed per item and is identical for every subscriber.
type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Icon  string `json:"icon"`
}

// NewStoryNotification builds the notification payload for a story.
func NewStoryNotification(item Item) NotificationPayload {
	author := item.By
	if author == "" {
		author = "unknown"
	}
	return NotificationPayload{
		Title: item.Title,
		Body:  fmt.Sprintf("by %s • %d points", author, item.Score),
		URL:   item.TargetURL(),
		Icon:  notificationIconURL,
	}
}

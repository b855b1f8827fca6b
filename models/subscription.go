package models

import "time"

// SubscriptionKeys holds the two opaque client secrets that accompany a
// Web Push subscription. Both are base64-encoded by the browser.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription is the delivery descriptor for one subscriber: the push
// service endpoint plus the secrets needed to encrypt payloads for it.
// This mirrors the JSON shape produced by PushManager.subscribe in browsers.
type PushSubscription struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

// Subscription is a stored subscriber record. Key is derived from the
// endpoint (see webutil.DeriveSubscriberKey), so registering the same
// endpoint twice collapses to a single record.
type Subscription struct {
	Key          string           `json:"key"`
	Subscription PushSubscription `json:"subscription"`
	CreatedAt    time.Time        `json:"created_at"`
	LastVerified time.Time        `json:"last_verified"`
}

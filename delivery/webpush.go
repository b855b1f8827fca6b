package delivery

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/coreybb/hnwatch/models"
)

const (
	deliveryTimeout = 30 * time.Second
	// notificationTTL is how long the push service holds an undelivered
	// message. One poll interval: a stale story notification is worthless.
	notificationTTL = 3600
)

// VAPIDConfig carries the Web Push sender credentials. It is passed into
// the provider constructor explicitly so tests can supply their own keys
// without process-wide state.
type VAPIDConfig struct {
	PublicKey    string
	PrivateKey   string
	ContactEmail string
}

// Valid reports whether the keys look like usable VAPID material.
// The thresholds match the expected encoded lengths of a P-256 public key
// (87 characters) and private key (43 characters).
func (c VAPIDConfig) Valid() bool {
	return len(c.PublicKey) > 80 && len(c.PrivateKey) > 40
}

// WebPushProvider delivers notifications over the Web Push protocol with
// VAPID authentication, via github.com/SherClockHolmes/webpush-go.
type WebPushProvider struct {
	cfg        VAPIDConfig
	httpClient *http.Client
}

func NewWebPushProvider(cfg VAPIDConfig) *WebPushProvider {
	return &WebPushProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: deliveryTimeout},
	}
}

// Deliver encrypts and pushes one notification to one subscriber's
// endpoint, classifying the result. Transport-level errors (including
// payload encryption failures for malformed client keys) classify as
// transient: the record is left in place for the next run.
func (p *WebPushProvider) Deliver(ctx context.Context, sub models.PushSubscription, payload models.NotificationPayload) Outcome {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR (WebPush): Failed to marshal notification payload: %v", err)
		return OutcomeTransientFailure
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      p.httpClient,
		Subscriber:      "mailto:" + p.cfg.ContactEmail,
		VAPIDPublicKey:  p.cfg.PublicKey,
		VAPIDPrivateKey: p.cfg.PrivateKey,
		TTL:             notificationTTL,
	})
	if err != nil {
		log.Printf("WARN (WebPush): Push to %s failed: %v", sub.Endpoint, err)
		return OutcomeTransientFailure
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	outcome := ClassifyStatus(resp.StatusCode)
	if outcome != OutcomeSuccess {
		log.Printf("WARN (WebPush): Push service returned status %d for %s (%s)",
			resp.StatusCode, sub.Endpoint, outcome)
	}
	return outcome
}

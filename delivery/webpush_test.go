package delivery

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/coreybb/hnwatch/models"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want Outcome
	}{
		{200, OutcomeSuccess},
		{201, OutcomeSuccess},
		{404, OutcomePermanentFailure},
		{410, OutcomePermanentFailure},
		{400, OutcomeTransientFailure},
		{429, OutcomeTransientFailure},
		{500, OutcomeTransientFailure},
		{503, OutcomeTransientFailure},
	}

	for _, tt := range tests {
		if got := ClassifyStatus(tt.code); got != tt.want {
			t.Errorf("ClassifyStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestVAPIDConfigValid(t *testing.T) {
	priv, pub, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("failed to generate VAPID keys: %v", err)
	}

	valid := VAPIDConfig{PublicKey: pub, PrivateKey: priv, ContactEmail: "admin@example.com"}
	if !valid.Valid() {
		t.Error("generated VAPID keys should validate")
	}

	if (VAPIDConfig{PublicKey: "short", PrivateKey: priv}).Valid() {
		t.Error("short public key should not validate")
	}
	if (VAPIDConfig{PublicKey: pub, PrivateKey: "short"}).Valid() {
		t.Error("short private key should not validate")
	}
	if (VAPIDConfig{}).Valid() {
		t.Error("empty config should not validate")
	}
}

// testClientKeys generates a browser-side key pair the way PushManager
// does, so the provider can actually encrypt a payload against it.
func testClientKeys(t *testing.T) models.SubscriptionKeys {
	t.Helper()

	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate client key pair: %v", err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatalf("failed to generate auth secret: %v", err)
	}
	return models.SubscriptionKeys{
		P256dh: base64.RawURLEncoding.EncodeToString(priv.PublicKey().Bytes()),
		Auth:   base64.RawURLEncoding.EncodeToString(auth),
	}
}

func newTestProvider(t *testing.T) *WebPushProvider {
	t.Helper()

	priv, pub, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("failed to generate VAPID keys: %v", err)
	}
	return NewWebPushProvider(VAPIDConfig{
		PublicKey:    pub,
		PrivateKey:   priv,
		ContactEmail: "admin@example.com",
	})
}

func TestWebPushProviderDeliverClassifiesResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   Outcome
	}{
		{"accepted", http.StatusCreated, OutcomeSuccess},
		{"endpoint gone", http.StatusGone, OutcomePermanentFailure},
		{"endpoint unknown", http.StatusNotFound, OutcomePermanentFailure},
		{"push service down", http.StatusInternalServerError, OutcomeTransientFailure},
	}

	provider := newTestProvider(t)
	keys := testClientKeys(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST to push endpoint, got %s", r.Method)
				}
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			sub := models.PushSubscription{Endpoint: ts.URL, Keys: keys}
			payload := models.NotificationPayload{Title: "Test", Body: "by tester • 1 points", URL: "https://example.com"}

			if got := provider.Deliver(context.Background(), sub, payload); got != tt.want {
				t.Errorf("Deliver() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWebPushProviderDeliverUnreachableEndpointIsTransient(t *testing.T) {
	provider := newTestProvider(t)

	sub := models.PushSubscription{
		// Closed port: the request fails at the transport level.
		Endpoint: "http://127.0.0.1:1",
		Keys:     testClientKeys(t),
	}

	got := provider.Deliver(context.Background(), sub, models.NotificationPayload{Title: "Test"})
	if got != OutcomeTransientFailure {
		t.Errorf("Deliver() = %v, want %v", got, OutcomeTransientFailure)
	}
}

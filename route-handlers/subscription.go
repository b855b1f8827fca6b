package routehandlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/coreybb/hnwatch/datastore"
	"github.com/coreybb/hnwatch/models"
	"github.com/coreybb/hnwatch/webutil"
)

// SubscriptionHandler serves the registration API: storing and removing
// push subscriptions keyed by their derived endpoint hash.
type SubscriptionHandler struct {
	Store datastore.SubscriptionStore

	// pushReady gates subscribe: accepting a registration the server can
	// never deliver to would only mislead the client.
	pushReady bool
}

func NewSubscriptionHandler(store datastore.SubscriptionStore, pushReady bool) *SubscriptionHandler {
	return &SubscriptionHandler{Store: store, pushReady: pushReady}
}

type subscribeResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

// HandleSubscribe stores a new push subscription. The request body is the
// subscription JSON produced by PushManager.subscribe; browsers include
// extra fields (expirationTime and friends), so unknown fields are allowed.
func (h *SubscriptionHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) error {
	if !h.pushReady {
		return webutil.NewHTTPError(http.StatusInternalServerError,
			"Server not configured for push notifications. VAPID keys missing.")
	}

	var sub models.PushSubscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		return webutil.ErrBadRequestWrap("Invalid subscription object", err)
	}
	defer r.Body.Close()

	if sub.Endpoint == "" {
		return webutil.ErrBadRequest("Invalid subscription object")
	}

	record, err := h.Store.Upsert(r.Context(), sub)
	if err != nil {
		return webutil.ErrInternalServerWrap("Failed to store subscription", err)
	}

	log.Printf("INFO (Subscriptions): Subscription stored: %s", record.Key)
	webutil.RespondWithJSON(w, http.StatusOK, subscribeResponse{Success: true, ID: record.Key})
	return nil
}

// HandleUnsubscribe removes a push subscription. The key is derived from
// the endpoint the same way subscribe derives it, so no lookup is needed.
func (h *SubscriptionHandler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) error {
	var sub models.PushSubscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		return webutil.ErrBadRequestWrap("Invalid subscription object", err)
	}
	defer r.Body.Close()

	if sub.Endpoint == "" {
		return webutil.ErrBadRequest("Invalid subscription object")
	}

	key := webutil.DeriveSubscriberKey(sub.Endpoint)
	if err := h.Store.Delete(r.Context(), key); err != nil {
		return webutil.ErrInternalServerWrap("Failed to remove subscription", err)
	}

	log.Printf("INFO (Subscriptions): Subscription removed: %s", key)
	webutil.RespondWithJSON(w, http.StatusOK, subscribeResponse{Success: true})
	return nil
}

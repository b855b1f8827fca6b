package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	rh "github.com/coreybb/hnwatch/route-handlers"
	"github.com/coreybb/hnwatch/scheduler"
	"github.com/coreybb/hnwatch/webutil"
)

const (
	apiBasePath       = "/api"
	subscribePath     = "/subscribe"
	unsubscribePath   = "/unsubscribe"
	schedulerTickPath = "/scheduler/tick"
)

// SetupRoutes assembles the full router: the registration API with CORS,
// the scheduler tick endpoint, and a health check.
func SetupRoutes(
	subscriptionHandler *rh.SubscriptionHandler,
	dispatchScheduler *scheduler.Scheduler,
	allowedOrigins []string,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route(apiBasePath, func(r chi.Router) {
		// The tick endpoint is exempt from the request timeout: a dispatch
		// run with slow retries can legitimately outlive 60 seconds.
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(CORS(allowedOrigins))
		r.Post(subscribePath, webutil.MakeHandler(subscriptionHandler.HandleSubscribe))
		r.Post(unsubscribePath, webutil.MakeHandler(subscriptionHandler.HandleUnsubscribe))
	})

	r.Post(schedulerTickPath, dispatchScheduler.HandleTick)

	// Health check endpoint
	r.Get("/healthz", handleHealthCheck)

	return r
}

// handleHealthCheck responds to a health check request.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

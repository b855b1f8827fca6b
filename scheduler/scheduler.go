// Package scheduler triggers dispatch runs, either from an external
// scheduler hitting the tick endpoint (Cloud Scheduler or manual curl
// requests) or from an in-process ticker.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coreybb/hnwatch/models"
)

// Runner executes one dispatch run.
type Runner interface {
	Run(ctx context.Context) models.DispatchSummary
}

// Scheduler serializes dispatch runs: at most one run is in flight at any
// time, regardless of how many triggers fire.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	running  atomic.Bool
}

// New creates a Scheduler. interval <= 0 disables the internal ticker;
// runs then only happen via HandleTick.
func New(runner Runner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
	}
}

// HandleTick is an HTTP handler that triggers one dispatch run. A tick
// arriving while a run is already in flight is rejected with 409 rather
// than queued; the next scheduled tick covers the same work.
func (s *Scheduler) HandleTick(w http.ResponseWriter, r *http.Request) {
	log.Println("INFO (Scheduler): Tick triggered via HTTP")

	summary, ok := s.tryRun(r.Context())
	if !ok {
		http.Error(w, "dispatch run already in progress", http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK: run %s sent=%d failed=%d removed=%d",
		summary.RunID, summary.Sent, summary.Failed, summary.Removed)
}

// Start runs the internal ticker loop. It blocks until ctx is cancelled
// and returns immediately when the ticker is disabled.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		log.Println("INFO (Scheduler): Internal ticker disabled")
		return
	}

	log.Printf("INFO (Scheduler): Internal ticker started with interval %v", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("INFO (Scheduler): Internal ticker stopped")
			return
		case <-ticker.C:
			if _, ok := s.tryRun(ctx); !ok {
				log.Println("WARN (Scheduler): Skipping tick, previous dispatch run still in flight")
			}
		}
	}
}

// tryRun executes a run unless one is already in flight.
func (s *Scheduler) tryRun(ctx context.Context) (models.DispatchSummary, bool) {
	if !s.running.CompareAndSwap(false, true) {
		return models.DispatchSummary{}, false
	}
	defer s.running.Store(false)

	return s.runner.Run(ctx), true
}

package reaper

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Purger deletes expired pages and reports how many were removed.
// service.PageService satisfies this.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Metrics holds the reaper's Prometheus collectors.
type Metrics struct {
	cycles *prometheus.CounterVec
	reaped prometheus.Counter
}

// NewMetrics creates and registers the reaper metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reaper_cycles_total",
				Help: "Total number of reaper cycles, by outcome.",
			},
			[]string{"status"},
		),
		reaped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pages_reaped_total",
				Help: "Total number of expired pages physically deleted by the reaper.",
			},
		),
	}
	if err := reg.Register(m.cycles); err != nil {
		return nil, err
	}
	if err := reg.Register(m.reaped); err != nil {
		return nil, err
	}
	return m, nil
}

// Reaper periodically purges expired pages. It is purely additive cleanup:
// the read path enforces expiry on its own, so a delayed or failed cycle never
// causes incorrect serving, it only postpones storage reclamation.
type Reaper struct {
	purger   Purger
	interval time.Duration
	metrics  *Metrics // nil disables metric reporting

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a reaper that runs purger every interval once started.
func New(purger Purger, interval time.Duration, metrics *Metrics) *Reaper {
	return &Reaper{
		purger:   purger,
		interval: interval,
		metrics:  metrics,
	}
}

// Start launches the periodic schedule on its own goroutine. One cycle runs
// immediately so a restart does not postpone cleanup by a full interval.
func (r *Reaper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)

		r.runCycle(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.runCycle(ctx)
			}
		}
	}()
}

// Stop cancels the schedule and waits for any in-flight cycle to return.
// Safe to call once after Start.
func (r *Reaper) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

// runCycle executes one purge with a bounded deadline. Failures are logged and
// swallowed; they must never terminate the schedule.
func (r *Reaper) runCycle(ctx context.Context) {
	start := time.Now()

	cycleCtx, cancel := context.WithTimeout(ctx, r.interval)
	defer cancel()

	deleted, err := r.purger.PurgeExpired(cycleCtx)
	if err != nil {
		if r.metrics != nil {
			r.metrics.cycles.WithLabelValues("error").Inc()
		}
		logJSON(map[string]any{
			"component":     "reaper",
			"event":         "reap_cycle_failed",
			"status":        "error",
			"error_message": err.Error(),
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return
	}

	if r.metrics != nil {
		r.metrics.cycles.WithLabelValues("success").Inc()
		r.metrics.reaped.Add(float64(deleted))
	}
	if deleted > 0 {
		logJSON(map[string]any{
			"component":   "reaper",
			"event":       "reap_cycle_done",
			"status":      "success",
			"deleted":     deleted,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}
}

func logJSON(data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal reaper log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}

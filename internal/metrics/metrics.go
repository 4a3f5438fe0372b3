package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Oracle call outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeStatus  = "bad_status"
	OutcomeBlocked = "blocked"
	OutcomeDecode  = "decode_error"
	OutcomeError   = "transport_error"
)

var (
	OracleRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adblast_oracle_requests_total",
			Help: "Total number of suggestion oracle calls by outcome",
		},
		[]string{"outcome"},
	)

	OracleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adblast_oracle_duration_seconds",
			Help:    "Duration of suggestion oracle calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	OracleBlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adblast_oracle_blocked_total",
			Help: "Oracle responses recognised as a block or challenge page",
		},
		[]string{"source"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adblast_proxy_failures_total",
			Help: "Total number of oracle calls that failed through a proxy",
		},
		[]string{"proxy"},
	)

	HarvestTierTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adblast_harvest_tier_total",
			Help: "Completed harvests by the cascade tier that supplied the keywords",
		},
		[]string{"tier"},
	)

	HarvestKeywords = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adblast_harvest_keywords",
			Help:    "Untruncated keyword count per harvest",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 400},
		},
	)

	HarvestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adblast_harvest_duration_seconds",
			Help:    "Wall-clock duration of a full cascade",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	AdGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adblast_ad_generations_total",
			Help: "Ad copy generation attempts by result",
		},
		[]string{"result"},
	)
)

// RecordOracle records one oracle call.
func RecordOracle(outcome string, d time.Duration) {
	OracleRequestsTotal.WithLabelValues(outcome).Inc()
	OracleDuration.Observe(d.Seconds())
}

// RecordHarvest records a finished cascade.
func RecordHarvest(tier string, total int, d time.Duration) {
	HarvestTierTotal.WithLabelValues(tier).Inc()
	HarvestKeywords.Observe(float64(total))
	HarvestDuration.Observe(d.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// Package metrics holds the Prometheus collectors for redditsaver.
//
// Collectors are registered on the default registry through promauto:
//   - redditsaver_requests_total{endpoint, status} (Counter): API calls by endpoint and HTTP status
//   - redditsaver_request_duration_seconds{endpoint} (Histogram): API call latency
//   - redditsaver_pages_fetched_total (Counter): listing pages decoded
//   - redditsaver_items_processed_total (Counter): sum of page dist values
//   - redditsaver_fetch_runs_total{outcome} (Counter): FetchAllPages runs by outcome
//   - redditsaver_unsave_total{result} (Counter): unsave calls by result
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"redditsaver/pkg/logger"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redditsaver_requests_total",
		Help: "Total Reddit API requests by endpoint and HTTP status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redditsaver_request_duration_seconds",
		Help:    "Reddit API request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	pagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redditsaver_pages_fetched_total",
		Help: "Saved listing pages fetched and decoded",
	})

	itemsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redditsaver_items_processed_total",
		Help: "Saved items seen across all fetched pages",
	})

	fetchRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redditsaver_fetch_runs_total",
		Help: "Saved-items fetch runs by outcome",
	}, []string{"outcome"})

	unsaveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redditsaver_unsave_total",
		Help: "Unsave calls by result",
	}, []string{"result"})
)

// Fetch run outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeCapped    = "limit_exceeded"
)

// ObserveRequest records one API call. status 0 means no response was received.
func ObserveRequest(endpoint string, status int, duration time.Duration) {
	label := strconv.Itoa(status)
	if status == 0 {
		label = "error"
	}
	requestsTotal.WithLabelValues(endpoint, label).Inc()
	requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ObservePage records one decoded listing page carrying dist items
func ObservePage(dist int) {
	pagesFetched.Inc()
	if dist > 0 {
		itemsProcessed.Add(float64(dist))
	}
}

// ObserveFetchRun records the outcome of one FetchAllPages call
func ObserveFetchRun(outcome string) {
	fetchRuns.WithLabelValues(outcome).Inc()
}

// ObserveUnsave records one unsave call
func ObserveUnsave(err error) {
	if err != nil {
		unsaveTotal.WithLabelValues("error").Inc()
		return
	}
	unsaveTotal.WithLabelValues("ok").Inc()
}

// Handler returns the Prometheus scrape handler for the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done
func Serve(ctx context.Context, addr string, log logger.Logger) error {
	log = logger.OrNop(log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.LogComponentStart(log, "metrics", map[string]interface{}{"addr": addr})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		logger.LogComponentStop(log, "metrics", "context done")
		return err
	}
}

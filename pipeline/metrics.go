package pipeline

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

// Run results recorded on runsTotal.
const (
	resultSuccess = "success"
	resultError   = "error"
)

var (
	// runsTotal counts summarization runs by result.
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "semsum",
			Name:      "runs_total",
			Help:      "Total summarization runs by result",
		},
		[]string{"result"},
	)

	// stageDuration tracks time spent in each pipeline stage.
	//
	// Labels:
	//   - stage: "load", "encode", "mine", "decode", "write", "publish" or "archive"
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "semsum",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4.4min
		},
		[]string{"stage"},
	)

	matrixRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "semsum",
		Name:      "matrix_rows",
		Help:      "Number of rows in encoded matrices",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
	})

	matrixColumns = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "semsum",
		Name:      "matrix_columns",
		Help:      "Number of columns in encoded matrices",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
	})

	patternsMined = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "semsum",
		Name:      "patterns_mined",
		Help:      "Number of patterns returned by the pattern source",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	// unresolvedFeatures counts decoder columns that produced no edge.
	//
	// Labels:
	//   - kind: "unmapped" or "inverse"
	unresolvedFeatures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "semsum",
			Name:      "unresolved_features_total",
			Help:      "Pattern columns skipped during decoding",
		},
		[]string{"kind"},
	)
)

// observeStage records the duration of a stage that started at start.
func observeStage(stage string, start time.Time) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// MetricsHandler returns the Prometheus scrape handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// ServeMetrics serves /metrics on addr until ctx is cancelled.
func ServeMetrics(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	}
}

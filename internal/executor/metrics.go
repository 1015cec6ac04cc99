package executor

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type executorMetrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	storeQuads prometheus.Gauge
}

var metrics executorMetrics

func init() {
	metrics = executorMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quadquery",
			Subsystem: "executor",
			Name:      "requests_total",
			Help:      `The number of executor calls, by backend, operation and outcome.`,
		}, []string{"backend", "operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quadquery",
			Subsystem: "executor",
			Name:      "duration_seconds",
			Help: `The time it takes to execute a query or update.

For the remote backend this includes the HTTP round trip and decoding the
response.
`,
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"backend", "operation"}),
		storeQuads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quadquery",
			Subsystem: "store",
			Name:      "quads",
			Help:      `The number of quads in the embedded store after the last update.`,
		}),
	}
	prometheus.MustRegister(metrics.requests, metrics.duration, metrics.storeQuads)
}

// instrument runs fn inside a span, logs the query text and records the
// call in the executor metrics.
func instrument(ctx context.Context, log *logrus.Entry, backend Backend, op string, text func() string, fn func(ctx context.Context) error) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "executor "+op)
	span.SetTag("backend", string(backend))
	defer span.Finish()

	logger := log.WithFields(logrus.Fields{
		"backend":   backend,
		"operation": op,
	})
	if logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.WithField("query", text()).Debug("executing")
	}

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.SetTag("error", true)
		span.LogKV("event", "error", "message", err.Error())
		logger.WithError(err).Debug("execution failed")
	}
	metrics.requests.WithLabelValues(string(backend), op, outcome).Inc()
	metrics.duration.WithLabelValues(string(backend), op).Observe(elapsed.Seconds())
	return err
}

package metrics

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/danseongsa/storefront/internal/platform/metrics"

// Recorder counts checkout and order transition outcomes. Counts are exported through a
// Prometheus registry and mirrored to the OpenTelemetry meter provider.
type Recorder struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	otelCounter metric.Int64Counter
}

// Option customises the recorder.
type Option func(*options)

type options struct {
	meter     metric.Meter
	namespace string
}

// WithMeter overrides the OpenTelemetry meter.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithNamespace overrides the Prometheus namespace.
func WithNamespace(namespace string) Option {
	return func(o *options) {
		if ns := strings.TrimSpace(namespace); ns != "" {
			o.namespace = ns
		}
	}
}

// NewRecorder registers the transition counter on a dedicated registry.
func NewRecorder(opts ...Option) (*Recorder, error) {
	cfg := options{namespace: "storefront"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.meter == nil {
		cfg.meter = otel.GetMeterProvider().Meter(meterName)
	}

	registry := prometheus.NewRegistry()
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.namespace,
		Name:      "transitions_total",
		Help:      "Checkout and order transitions by operation and outcome.",
	}, []string{"operation", "outcome"})
	if err := registry.Register(transitions); err != nil {
		return nil, err
	}
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	counter, err := cfg.meter.Int64Counter(
		cfg.namespace+".transitions",
		metric.WithDescription("Checkout and order transitions by operation and outcome."),
	)
	if err != nil {
		return nil, err
	}
	return &Recorder{registry: registry, transitions: transitions, otelCounter: counter}, nil
}

// RecordTransition implements services.TransitionRecorder.
func (r *Recorder) RecordTransition(ctx context.Context, operation, outcome string) {
	if r == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	r.transitions.WithLabelValues(operation, outcome).Inc()
	r.otelCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// Handler serves the Prometheus exposition for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

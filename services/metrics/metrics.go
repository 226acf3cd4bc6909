// Package metricsvc exposes the application metrics to prometheus.
package metricsvc

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/campus/core"
)

const namespace = "campus"

// DropCounter is implemented by event brokers that drop events for slow subscribers.
type DropCounter interface {
	Dropped() uint64
}

type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

// New registers the HTTP, event and runtime collectors on a dedicated registry.
func New(conf *core.Config) *Metrics {
	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"env": conf.Env, "build": conf.Build}

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "HTTP requests by route, method and status code.",
			ConstLabels: constLabels,
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request latencies by route and method.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"route", "method"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "events",
			Name:        "published_total",
			Help:        "Domain events by topic and action.",
			ConstLabels: constLabels,
		}, []string{"topic", "action"}),
	}

	reg.MustRegister(
		m.requests,
		m.duration,
		m.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveEvent counts one domain event.
func (m *Metrics) ObserveEvent(evt core.Event) {
	m.events.WithLabelValues(evt.Topic, evt.Action).Inc()
}

// WatchBroker counts every event delivered by `broker` until ctx is done,
// and exports its dropped events when it keeps count of them.
func (m *Metrics) WatchBroker(ctx context.Context, broker core.EventBroker) error {
	if dc, ok := broker.(DropCounter); ok {
		err := m.registry.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Events dropped for slow subscribers.",
		}, func() float64 { return float64(dc.Dropped()) }))
		if err != nil {
			return err
		}
	}

	events, err := broker.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		for evt := range events {
			m.ObserveEvent(evt)
		}
	}()
	return nil
}

// Handler serves the metrics in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather is used by tests.
func (m *Metrics) Gather() (map[string]float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	totals := make(map[string]float64, len(families))
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.Counter != nil:
				totals[mf.GetName()] += metric.Counter.GetValue()
			case metric.Histogram != nil:
				totals[mf.GetName()] += float64(metric.Histogram.GetSampleCount())
			}
		}
	}
	return totals, nil
}

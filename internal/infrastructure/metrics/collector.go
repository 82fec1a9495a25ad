// Package metrics exposes prometheus metrics for generations and dispatches.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
	"github.com/yourusername/telegram-image-bot/internal/domain/repository"
)

// Collector holds the bot's metric vectors on its own registry.
type Collector struct {
	registry *prometheus.Registry

	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	imagesTotal        *prometheus.CounterVec
	dispatchesTotal    *prometheus.CounterVec
}

// NewCollector registers all metrics under namespace
func NewCollector(namespace string) *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Adapter calls by provider and status",
		},
		[]string{"provider", "status"},
	)

	c.generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Adapter call latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"provider"},
	)

	c.imagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_generated_total",
			Help:      "Images returned by provider",
		},
		[]string{"provider"},
	)

	c.dispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Finished workflow steps by policy and outcome",
		},
		[]string{"policy", "outcome"},
	)

	c.registry.MustRegister(
		c.generationsTotal,
		c.generationDuration,
		c.imagesTotal,
		c.dispatchesTotal,
		collectors.NewGoCollector(),
	)
	return c
}

// RecordGeneration records one adapter call
func (c *Collector) RecordGeneration(provider string, result entity.ImageResult, duration time.Duration) {
	c.generationsTotal.WithLabelValues(provider, generationStatus(result)).Inc()
	c.generationDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if result.OK() {
		c.imagesTotal.WithLabelValues(provider).Add(float64(len(result.Images)))
	}
}

// ObserveOutcome records a finished workflow step
func (c *Collector) ObserveOutcome(policy entity.PolicyKind, outcome entity.Outcome) {
	c.dispatchesTotal.WithLabelValues(string(policy), string(outcome.Class)).Inc()
}

// Handler serves the registry in the prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func generationStatus(result entity.ImageResult) string {
	switch {
	case result.OK():
		return "success"
	case result.Err != nil && errors.Is(result.Err, entity.ErrNoImage):
		return "no_image"
	case result.Err != nil && errors.Is(result.Err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

type instrumented struct {
	next      repository.ImageGenerator
	collector *Collector
}

// Instrument wraps gen so every call is recorded
func Instrument(gen repository.ImageGenerator, c *Collector) repository.ImageGenerator {
	if c == nil {
		return gen
	}
	return &instrumented{next: gen, collector: c}
}

func (i *instrumented) ID() string    { return i.next.ID() }
func (i *instrumented) Label() string { return i.next.Label() }

func (i *instrumented) Generate(ctx context.Context, prompt entity.Prompt) entity.ImageResult {
	start := time.Now()
	result := i.next.Generate(ctx, prompt)
	i.collector.RecordGeneration(i.next.ID(), result, time.Since(start))
	return result
}

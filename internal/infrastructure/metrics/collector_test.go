package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
)

type stubGenerator struct {
	result entity.ImageResult
}

func (s stubGenerator) ID() string    { return "stub" }
func (s stubGenerator) Label() string { return "Stub" }
func (s stubGenerator) Generate(ctx context.Context, prompt entity.Prompt) entity.ImageResult {
	return s.result
}

func TestInstrumentRecordsGenerations(t *testing.T) {
	c := NewCollector("test")

	ok := Instrument(stubGenerator{result: entity.Success("stub", []entity.Image{{Data: []byte("a")}, {Data: []byte("b")}})}, c)
	bad := Instrument(stubGenerator{result: entity.Failure("stub", errors.New("boom"))}, c)
	empty := Instrument(stubGenerator{result: entity.Failure("stub", entity.ErrNoImage)}, c)
	slow := Instrument(stubGenerator{result: entity.Failure("stub", fmt.Errorf("call: %w", context.DeadlineExceeded))}, c)

	assert.Equal(t, "stub", ok.ID())
	assert.Equal(t, "Stub", ok.Label())

	ok.Generate(context.Background(), entity.Prompt{Text: "x"})
	ok.Generate(context.Background(), entity.Prompt{Text: "x"})
	bad.Generate(context.Background(), entity.Prompt{Text: "x"})
	empty.Generate(context.Background(), entity.Prompt{Text: "x"})
	slow.Generate(context.Background(), entity.Prompt{Text: "x"})

	assert.Equal(t, float64(2), testutil.ToFloat64(c.generationsTotal.WithLabelValues("stub", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.generationsTotal.WithLabelValues("stub", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.generationsTotal.WithLabelValues("stub", "no_image")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.generationsTotal.WithLabelValues("stub", "timeout")))
	assert.Equal(t, float64(4), testutil.ToFloat64(c.imagesTotal.WithLabelValues("stub")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.generationDuration))
}

func TestInstrumentNilCollector(t *testing.T) {
	gen := stubGenerator{}
	assert.Equal(t, gen, Instrument(gen, nil))
}

func TestObserveOutcome(t *testing.T) {
	c := NewCollector("test")

	c.ObserveOutcome(entity.PolicyBroadcast, entity.Outcome{Class: entity.OutcomePartial})
	c.ObserveOutcome(entity.PolicyBroadcast, entity.Outcome{Class: entity.OutcomePartial})
	c.ObserveOutcome(entity.PolicySingle, entity.Outcome{Class: entity.OutcomeRejected})

	assert.Equal(t, float64(2), testutil.ToFloat64(c.dispatchesTotal.WithLabelValues("broadcast", "partial")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.dispatchesTotal.WithLabelValues("single", "rejected")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("imagebot")
	c.RecordGeneration("gemini", entity.Success("gemini", []entity.Image{{Data: []byte("a")}}), time.Second)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `imagebot_generations_total{provider="gemini",status="success"} 1`))
	assert.True(t, strings.Contains(body, "imagebot_images_generated_total"))
}

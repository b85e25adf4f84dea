package anamnesis

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/ashita-ai/anamnesis/internal/telemetry"
)

// instruments are built lazily against whatever global OTel providers the
// embedding process has registered (telemetry.Meter/Tracer), mirroring
// akashi's internal/service/decisions.Service building its histograms once
// in its constructor — the engine has no such constructor (its registry is
// a process-wide singleton per spec §9), so the instruments are built once
// on first use instead.
var (
	instrumentsOnce  sync.Once
	cacheHits        metric.Int64Counter
	cacheMisses      metric.Int64Counter
	resolutionMicros metric.Float64Histogram
)

func instruments() (metric.Int64Counter, metric.Int64Counter, metric.Float64Histogram) {
	instrumentsOnce.Do(func() {
		meter := telemetry.Meter()
		cacheHits, _ = meter.Int64Counter("anamnesis.trait_cache.hits",
			metric.WithDescription("Belief.GetTrait calls served from the per-state trait cache"))
		cacheMisses, _ = meter.Int64Counter("anamnesis.trait_cache.misses",
			metric.WithDescription("Belief.GetTrait calls that resolved through the base/compose walk"))
		resolutionMicros, _ = meter.Float64Histogram("anamnesis.resolution.duration",
			metric.WithDescription("Wall time of one uncached trait resolution"),
			metric.WithUnit("us"))
	})
	return cacheHits, cacheMisses, resolutionMicros
}

// recordResolution records the wall time of one uncached resolveGeneric
// walk (spec §4.2 steps 1-4) to the resolution.duration histogram.
func recordResolution(d time.Duration) {
	_, _, hist := instruments()
	hist.Record(context.Background(), float64(d.Microseconds()))
}

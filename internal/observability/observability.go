// Package observability exposes the tracer and meters instrumenting the
// metadata core. All instruments are no-ops unless the host application
// installs OpenTelemetry providers.
package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/nlstn/go-repository"

var (
	initOnce sync.Once

	tracer trace.Tracer

	entitiesAnalyzed metric.Int64Counter
	methodsParsed    metric.Int64Counter
	cacheHits        metric.Int64Counter
	cacheMisses      metric.Int64Counter
)

// initialize lazily creates the instruments so that providers installed
// before first use are picked up.
func initialize() {
	initOnce.Do(func() {
		tracer = otel.Tracer(instrumentationName)
		meter := otel.Meter(instrumentationName)

		entitiesAnalyzed, _ = meter.Int64Counter("repository.entities.analyzed",
			metric.WithDescription("Number of entity types analyzed into persistent entity models"))
		methodsParsed, _ = meter.Int64Counter("repository.querymethods.parsed",
			metric.WithDescription("Number of query method names parsed into part trees"))
		cacheHits, _ = meter.Int64Counter("repository.metadata.cache.hits",
			metric.WithDescription("Metadata cache hits"))
		cacheMisses, _ = meter.Int64Counter("repository.metadata.cache.misses",
			metric.WithDescription("Metadata cache misses"))
	})
}

// StartSpan starts a span for a metadata operation. Metadata construction
// happens at bootstrap, so spans commonly have no parent.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	initialize()
	if ctx == nil {
		ctx = context.Background()
	}
	return tracer.Start(ctx, name)
}

// RecordEntityAnalyzed counts one analyzed entity type.
func RecordEntityAnalyzed() {
	initialize()
	entitiesAnalyzed.Add(context.Background(), 1)
}

// RecordMethodParsed counts one parsed query method.
func RecordMethodParsed() {
	initialize()
	methodsParsed.Add(context.Background(), 1)
}

// RecordCacheHit counts one metadata cache hit.
func RecordCacheHit() {
	initialize()
	cacheHits.Add(context.Background(), 1)
}

// RecordCacheMiss counts one metadata cache miss.
func RecordCacheMiss() {
	initialize()
	cacheMisses.Add(context.Background(), 1)
}

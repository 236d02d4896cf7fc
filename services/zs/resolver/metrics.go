// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolver

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/zsls/services/zs/syntax"
)

var (
	tracer = otel.Tracer("zsls.resolver")
	meter  = otel.Meter("zsls.resolver")
)

var (
	resolveLatency metric.Float64Histogram
	resolveTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		resolveLatency, err = meter.Float64Histogram(
			"zs_resolve_duration_seconds",
			metric.WithDescription("Duration of declaration resolution"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		resolveTotal, err = meter.Int64Counter(
			"zs_resolve_total",
			metric.WithDescription("Total number of resolution queries"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordResolveMetrics records one Resolve call by its outcome kind.
func recordResolveMetrics(ctx context.Context, duration time.Duration, d *Declaration) {
	if err := initMetrics(); err != nil {
		return
	}

	kind := KindUnresolved
	if d != nil {
		kind = d.Kind
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", kind.String()),
		attribute.Bool("resolved", d != nil),
	)
	resolveLatency.Record(ctx, duration.Seconds(), attrs)
	resolveTotal.Add(ctx, 1, attrs)
}

func startResolveSpan(ctx context.Context, node syntax.Node, filePath string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "zs.resolver.Resolve",
		trace.WithAttributes(
			attribute.String("zs.file", filePath),
			attribute.String("zs.node_kind", node.Type()),
			attribute.String("zs.position", node.StartPoint().String()),
		),
	)
}

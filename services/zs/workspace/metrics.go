// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workspace

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("zsls.workspace")
	meter  = otel.Meter("zsls.workspace")
)

var (
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
	loadDuration metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		cacheHits, err = meter.Int64Counter(
			"zs_workspace_cache_hits_total",
			metric.WithDescription("Document lookups served from the cache"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheMisses, err = meter.Int64Counter(
			"zs_workspace_cache_misses_total",
			metric.WithDescription("Document lookups that loaded from storage"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		loadDuration, err = meter.Float64Histogram(
			"zs_workspace_load_duration_seconds",
			metric.WithDescription("Duration of reading and parsing a document"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordLookup(ctx context.Context, hit bool) {
	if err := initMetrics(); err != nil {
		return
	}
	if hit {
		cacheHits.Add(ctx, 1)
		return
	}
	cacheMisses.Add(ctx, 1)
}

func recordLoad(ctx context.Context, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	loadDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.Bool("success", success)))
}

func startLoadSpan(ctx context.Context, path string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "zs.workspace.Load",
		trace.WithAttributes(attribute.String("zs.file", path)),
	)
}

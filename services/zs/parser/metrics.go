// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package parser

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
	tracer = otel.Tracer("zsls.parser")
	meter  = otel.Meter("zsls.parser")
)

var (
	parseLatency metric.Float64Histogram
	parseTotal   metric.Int64Counter
	parseNodes   metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		parseLatency, err = meter.Float64Histogram(
			"zs_parse_duration_seconds",
			metric.WithDescription("Duration of ZS parse operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseTotal, err = meter.Int64Counter(
			"zs_parse_total",
			metric.WithDescription("Total number of ZS parse operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseNodes, err = meter.Int64Histogram(
			"zs_parse_nodes",
			metric.WithDescription("Number of syntax nodes per parse"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordParseMetrics records one parse. status is "ok", "syntax_error"
// or "refused".
func recordParseMetrics(ctx context.Context, duration time.Duration, nodes int, status string) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("status", status))
	parseLatency.Record(ctx, duration.Seconds(), attrs)
	parseTotal.Add(ctx, 1, attrs)
	if nodes > 0 {
		parseNodes.Record(ctx, int64(nodes))
	}
}

func startParseSpan(ctx context.Context, filePath string, size int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "zs.parser.Parse",
		trace.WithAttributes(
			attribute.String("zs.file", filePath),
			attribute.Int("zs.content_size", size),
		),
	)
}

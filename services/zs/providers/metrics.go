// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package providers

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/zsls/services/zs/protocol"
)

var (
	tracer = otel.Tracer("zsls.providers")
	meter  = otel.Meter("zsls.providers")
)

var (
	providerLatency metric.Float64Histogram
	providerTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		providerLatency, err = meter.Float64Histogram(
			"zs_provider_duration_seconds",
			metric.WithDescription("Duration of editor feature requests"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		providerTotal, err = meter.Int64Counter(
			"zs_provider_requests_total",
			metric.WithDescription("Total editor feature requests by provider"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordProvider records one provider call. found is false when the
// request produced nothing to show.
func recordProvider(ctx context.Context, provider string, duration time.Duration, found bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.Bool("found", found),
	)
	providerLatency.Record(ctx, duration.Seconds(), attrs)
	providerTotal.Add(ctx, 1, attrs)
}

func startProviderSpan(ctx context.Context, name, path string, pos protocol.Position) (context.Context, trace.Span) {
	return tracer.Start(ctx, "zs.providers."+name,
		trace.WithAttributes(
			attribute.String("zs.file", path),
			attribute.Int("zs.line", pos.Line),
			attribute.Int("zs.character", pos.Character),
		),
	)
}

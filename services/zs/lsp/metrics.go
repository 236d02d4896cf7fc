// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lsp

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
	tracer = otel.Tracer("zsls.lsp")
	meter  = otel.Meter("zsls.lsp")
)

var (
	requestLatency metric.Float64Histogram
	requestTotal   metric.Int64Counter
	openDocuments  metric.Int64UpDownCounter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		requestLatency, err = meter.Float64Histogram(
			"zs_lsp_request_duration_seconds",
			metric.WithDescription("Duration of LSP message handling"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		requestTotal, err = meter.Int64Counter(
			"zs_lsp_requests_total",
			metric.WithDescription("Total LSP messages by method and outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		openDocuments, err = meter.Int64UpDownCounter(
			"zs_lsp_open_documents",
			metric.WithDescription("Documents currently open in the editor"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordRequest records one handled message. status is "ok", "error" or
// "notification".
func recordRequest(ctx context.Context, method, status string, duration time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
	)
	requestLatency.Record(ctx, duration.Seconds(), attrs)
	requestTotal.Add(ctx, 1, attrs)
}

func recordOpenDocuments(ctx context.Context, delta int64) {
	if err := initMetrics(); err != nil {
		return
	}
	openDocuments.Add(ctx, delta)
}

func startRequestSpan(ctx context.Context, method string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "zs.lsp."+method,
		trace.WithAttributes(attribute.String("rpc.method", method)),
	)
}

// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jsonrpc2 records OpenTelemetry metrics for dispatched JSON-RPC calls.
package jsonrpc2

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/go-a2a/a2a-server/internal/jsonrpc2"

var (
	rPCMethod  = attribute.Key("rpc.method")
	statusCode = attribute.Key("rpc.jsonrpc.error_code")
	streaming  = attribute.Key("rpc.streaming")
)

var (
	startedCounter     metric.Int64Counter
	sentBytesGauge     metric.Int64Gauge
	receivedBytesGauge metric.Int64Gauge
	latency            metric.Float64Histogram
)

var metricOnce sync.Once

func newMetrics(m metric.Meter) {
	metricOnce.Do(func() {
		var err error

		startedCounter, err = m.Int64Counter("started",
			metric.WithDescription("Count of started RPCs"),
		)
		if err != nil {
			otel.Handle(err)
			startedCounter = noop.Int64Counter{}
		}

		sentBytesGauge, err = m.Int64Gauge("sent_bytes",
			metric.WithDescription("Bytes sent"),
			metric.WithUnit("By"),
		)
		if err != nil {
			otel.Handle(err)
			sentBytesGauge = noop.Int64Gauge{}
		}

		receivedBytesGauge, err = m.Int64Gauge("received_bytes",
			metric.WithDescription("Bytes received"),
			metric.WithUnit("By"),
		)
		if err != nil {
			otel.Handle(err)
			receivedBytesGauge = noop.Int64Gauge{}
		}

		latency, err = m.Float64Histogram("latency",
			metric.WithDescription("Time from receiving an RPC to its last response"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			otel.Handle(err)
			latency = noop.Float64Histogram{}
		}
	})
}

// Call measures one RPC. It is not safe for concurrent use.
type Call struct {
	ctx       context.Context
	method    string
	streaming bool
	start     time.Time
	sent      int64
}

// Start records the start of an RPC of method whose request was receivedBytes long.
func Start(ctx context.Context, method string, receivedBytes int, isStreaming bool) *Call {
	newMetrics(otel.GetMeterProvider().Meter(instrumentationName))

	attrs := metric.WithAttributes(rPCMethod.String(method), streaming.Bool(isStreaming))
	startedCounter.Add(ctx, 1, attrs)
	receivedBytesGauge.Record(ctx, int64(receivedBytes), attrs)
	return &Call{
		ctx:       ctx,
		method:    method,
		streaming: isStreaming,
		start:     time.Now(),
	}
}

// Sent adds n to the bytes written for the call.
func (c *Call) Sent(n int) {
	c.sent += int64(n)
}

// End records the outcome of the call. code is the JSON-RPC error code, or 0 on success.
func (c *Call) End(code int) {
	attrs := metric.WithAttributes(
		rPCMethod.String(c.method),
		streaming.Bool(c.streaming),
		statusCode.String(strconv.Itoa(code)),
	)
	sentBytesGauge.Record(c.ctx, c.sent, attrs)
	latency.Record(c.ctx, float64(time.Since(c.start))/float64(time.Millisecond), attrs)
}

// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/gogama/httpc"
	"github.com/gogama/httpc/request"
)

// A Collector aggregates latency and outcome statistics across
// logical request executions. It implements httpc.Handler: install it
// on every event in a handler group (InstallTo does this) and it
// observes one attempt sample per physical attempt and one execution
// sample per job.
//
// Latencies are recorded in microseconds into HDR histograms covering
// 1µs to 60s at 3 significant digits, so quantile queries stay
// accurate from sub-millisecond cache hits to multi-second redirect
// chains.
//
// A Collector is safe for concurrent use by multiple goroutines.
type Collector struct {
	attempts   atomic.Int64
	recoveries atomic.Int64
	redirects  atomic.Int64
	executions atomic.Int64

	mu        sync.Mutex
	attempt   *hdrhistogram.Histogram
	execution *hdrhistogram.Histogram
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		attempt:   hdrhistogram.New(1, 60_000_000, 3),
		execution: hdrhistogram.New(1, 60_000_000, 3),
	}
}

// InstallTo installs the collector on every event in the handler
// group.
func (c *Collector) InstallTo(g *httpc.HandlerGroup) {
	for _, evt := range httpc.Events() {
		g.PushBack(evt, c)
	}
}

type attemptStartKey struct{}

// Handle observes one execution event. It is invoked by the handler
// group on the job's worker goroutine.
func (c *Collector) Handle(evt httpc.Event, e *request.Execution) {
	switch evt {
	case httpc.BeforeAttempt:
		e.SetValue(attemptStartKey{}, time.Now())
	case httpc.AfterAttempt:
		c.attempts.Add(1)
		if start, ok := e.Value(attemptStartKey{}).(time.Time); ok {
			c.record(c.attempt, time.Since(start))
		}
	case httpc.AfterRecover:
		c.recoveries.Add(1)
	case httpc.AfterFollowUp:
		if e.StatusCode() >= 300 && e.StatusCode() < 400 {
			c.redirects.Add(1)
		}
	case httpc.AfterExecutionEnd:
		c.executions.Add(1)
		c.record(c.execution, e.Duration())
	}
}

// Attempts returns the number of physical attempts observed.
func (c *Collector) Attempts() int64 {
	return c.attempts.Load()
}

// Recoveries returns the number of transport-error recoveries
// observed.
func (c *Collector) Recoveries() int64 {
	return c.recoveries.Load()
}

// Redirects returns the number of redirects followed.
func (c *Collector) Redirects() int64 {
	return c.redirects.Load()
}

// Executions returns the number of completed executions observed.
func (c *Collector) Executions() int64 {
	return c.executions.Load()
}

// AttemptQuantile returns the q-th percentile attempt latency, for
// example AttemptQuantile(99) for p99.
func (c *Collector) AttemptQuantile(q float64) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.attempt.ValueAtQuantile(q)) * time.Microsecond
}

// ExecutionQuantile returns the q-th percentile end-to-end execution
// latency, for example ExecutionQuantile(50) for the median.
func (c *Collector) ExecutionQuantile(q float64) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.execution.ValueAtQuantile(q)) * time.Microsecond
}

func (c *Collector) record(h *hdrhistogram.Histogram, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = h.RecordValue(d.Microseconds())
}

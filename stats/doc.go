// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package stats aggregates latency and outcome statistics across
// logical request executions, using HDR histograms so latency
// quantiles stay accurate across many orders of magnitude.
//
// Create a Collector and install it in a client's handler group:
//
//	collector := stats.NewCollector()
//	handlers := &httpc.HandlerGroup{}
//	collector.InstallTo(handlers)
//	client := &httpc.Client{Handlers: handlers}
//	...
//	p99 := collector.AttemptQuantile(99)
package stats

// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpc

import (
	"log/slog"

	"github.com/gogama/httpc/request"
)

// LogHandler returns an event handler which records every execution
// event on l as a structured debug record, carrying the execution ID,
// attempt and redirect counters, and the response status or error of
// the most recent attempt. If l is nil, slog.Default() is used.
//
// Install it in a handler group to trace executions:
//
//	handlers := &httpc.HandlerGroup{}
//	for _, evt := range httpc.Events() {
//		handlers.PushBack(evt, httpc.LogHandler(logger))
//	}
//	client := &httpc.Client{Handlers: handlers}
func LogHandler(l *slog.Logger) Handler {
	if l == nil {
		l = slog.Default()
	}
	return HandlerFunc(func(evt Event, e *request.Execution) {
		ctx := e.Request.Context()
		if !l.Enabled(ctx, slog.LevelDebug) {
			return
		}
		attrs := make([]slog.Attr, 0, 6)
		attrs = append(attrs,
			slog.String("execution", e.ID.String()),
			slog.String("method", e.Request.Method()),
			slog.String("url", e.Request.URL().Redacted()),
			slog.Int("attempt", e.Attempt))
		if e.Redirects > 0 {
			attrs = append(attrs, slog.Int("redirects", e.Redirects))
		}
		if e.Response != nil {
			attrs = append(attrs, slog.Int("status", e.Response.StatusCode()))
		}
		if e.Err != nil {
			attrs = append(attrs, slog.String("error", e.Err.Error()))
		}
		l.LogAttrs(ctx, slog.LevelDebug, evt.Name(), attrs...)
	})
}

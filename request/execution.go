// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	urlpkg "net/url"
	"time"

	"github.com/google/uuid"

	"github.com/gogama/httpc/transient"
)

// An Execution represents the state of a single logical request
// execution.
//
// When a logical request is submitted, an Execution is created for
// it. The Execution is updated as the execution progresses, for
// example when a response head is read, when a follow-up request is
// installed after a redirect or authentication challenge, or when a
// recoverable transport error forces a fresh attempt. It is mutated
// only by the execution loop, which runs on a single goroutine at a
// time.
//
// Event handlers may set values on an Execution using its SetValue
// method and read them back using the Value method. However, they
// should treat the structure's exported field values as immutable and
// leave them unmodified, as the execution state is vital to the
// correct functioning of the execution logic.
type Execution struct {
	// ID uniquely identifies the execution, correlating log records,
	// handler invocations, and statistics samples emitted for the
	// same logical request.
	ID uuid.UUID

	// Original is the logical request as submitted, after the
	// deterministic transport headers implied by its body were set
	// and before any follow-up was computed. It is never replaced
	// during the execution.
	//
	// Redirect follow-ups are rebased onto Original: the follow-up
	// request is derived from Original with only the URL replaced, so
	// the headers, method, and body of the original request survive a
	// multi-hop redirect chain unchanged.
	Original *Request

	// Request is the request for the current or most recent physical
	// attempt. It starts equal to Original and is replaced whenever a
	// follow-up is computed. It is never nil.
	Request *Request

	// Response is the response head read in the most recent attempt.
	// It is nil if the most recent attempt ended in an error, or
	// while an attempt is underway, or before the execution starts.
	Response *Response

	// Proxy is the URL of the proxy mediating the current attempt's
	// connection, or nil for a direct connection. It is refreshed
	// from the attempt engine's route before each attempt.
	Proxy *urlpkg.URL

	// Attempt is the zero-based number of the current physical
	// attempt. It is zero on the initial attempt and increments on
	// every further attempt, whether caused by transport-error
	// recovery, a redirect, or an authentication retry.
	Attempt int

	// Redirects is the count of redirects followed so far. It
	// strictly increases per followed redirect, and the execution
	// fails with a protocol error once it would exceed the follow-up
	// policy's configured maximum.
	Redirects int

	// AttemptTimeouts is the count of attempts which ended in a
	// timeout error during the execution.
	AttemptTimeouts int

	// Err is the error from the most recent attempt, or nil if it
	// succeeded. While an execution is in flight, Err may fluctuate
	// between nil and various non-nil values as attempts fail and are
	// recovered.
	Err error

	// Start is the start time of the execution. It is assigned a
	// non-zero value when the execution starts, and this value
	// remains constant thereafter.
	Start time.Time

	// End is the end time of the execution. It contains the zero
	// value until the execution ends.
	End time.Time

	// data contains arbitrary user data managed via Value and
	// SetValue.
	data context.Context
}

// StatusCode returns the status code of the response from the most
// recent attempt, or 0 if there is no response (the most recent
// attempt ended in error, an attempt is underway, or the execution
// has not started).
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode()
}

// Header returns the response headers from the most recent attempt,
// or the nil header if there is no response.
//
// A nil return value is always safe for read-only operations, since
// http.Header is a map type.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return e.Response.Headers()
}

// Duration returns the duration of the execution.
//
// If the execution has not yet started, the duration is zero. If the
// execution has ended, the duration returned is equal to End minus
// Start. Otherwise, it is equal to the current time minus Start.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started. If the return
// value is true, Start is a non-zero time.
func (e *Execution) Started() bool {
	return e.Start != (time.Time{})
}

// Ended indicates whether the execution has ended. If the return
// value is true, End is a non-zero time and there will be no further
// changes to the execution.
func (e *Execution) Ended() bool {
	return e.End != (time.Time{})
}

// Timeout indicates whether Err currently contains a non-nil value
// which indicates a timeout.
//
// Note that Timeout may return false even if AttemptTimeouts > 0 (if
// the most recent attempt did not end in a timeout), and that the
// value may fluctuate while the execution is in flight.
func (e *Execution) Timeout() bool {
	cat := transient.Categorize(e.Err)
	return cat == transient.Timeout
}

// SetValue allows event handlers to store arbitrary data in the
// execution.
//
// The key must follow the same rules as the key parameter in
// context.WithValue, namely it:
//
// • may not be nil;
//
// • must be comparable;
//
// • should not be of type string or any other built-in type to avoid
// collisions between different event handlers putting data into the
// same execution.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}

	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for
// key, or nil if there is no value associated with key.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}

// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpc

import (
	"fmt"

	"github.com/gogama/httpc/request"
)

// A Failure is the terminal error outcome of a Job. It carries the
// request whose execution failed and the causal error: a transport
// error no recovery was possible for, a protocol policy violation
// such as too many redirects, or a contract violation detected before
// the first attempt.
//
// Failures are constructed only by the task wrapper, which delivers
// exactly one of OnResponse or OnFailure per non-canceled Job.
type Failure struct {
	// Request is the request whose execution failed. For a failure
	// after one or more follow-ups, it is the most recent follow-up
	// request rather than the originally submitted one.
	Request *request.Request
	// Err is the causal error.
	Err error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("httpc: %s %s: %s", f.Request.Method(), f.Request.URL().Redacted(), f.Err)
}

// Unwrap returns the causal error, so errors.Is and errors.As see
// through the Failure.
func (f *Failure) Unwrap() error {
	return f.Err
}

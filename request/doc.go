// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the immutable value types describing one HTTP
request execution: Request (a logical request), Response (one response
received while executing it), Body and ResponseBody (streaming payload
handles), and Execution (the mutable per-execution state threaded
through policies and event handlers).

The first core type is Request, which describes a logical HTTP request:
target URL, method, header multimap, optional body, and an opaque tag
for caller bookkeeping. A Request is never mutated in place. Whenever
the execution logic must change headers, or computes a redirect or
authentication follow-up, it derives a new Request value:

	req, err := request.New("GET", "https://example.com", nil)
	...
	req2 := req.Derive().Header("Accept", "application/json").Build()

A Request carries a context which controls cooperative cancellation of
its execution:

	req, err := request.NewWithContext(ctx, "POST",
		"https://example.com/upload",
		request.BodyBytes("application/json", payload))

The second core type is Response. Responses are immutable values which
link backward through the RedirectedBy reference, so the full redirect
chain that led to a final response can be walked from the final
response to the first hop. A Response's body is a ResponseBody: a lazy
handle which streams directly off the connection that produced it and
never buffers.

Finally, Execution represents the state of one logical request
execution across all of its physical attempts. Execution is the input
type for the callbacks invoked during execution: follow-up policies,
timeout policies, and event handlers. You will typically not allocate
Execution instances yourself, but will instead work with the ones
handed out by the client's execution logic.
*/
package request

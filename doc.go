// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package httpc is the request-execution core of an HTTP client: given a
logical request, it drives zero or more physical attempts over the
wire, deciding at each step whether to retry after a recoverable
transport failure, follow a redirect, answer an authentication
challenge, or deliver a final response.

Create a Client to begin making requests.

	client := &httpc.Client{}
	resp, err := client.Get("https://www.example.com")
	...
	resp, err := client.Post("https://www.example.com/upload",
		"application/json", payload)
	...
	resp, err := client.PostForm("http://example.com/form",
		url.Values{"key": {"Value"}, "id": {"123"}})

Responses stream: the returned response's body is a lazy handle on
the connection that produced it, and the caller must fully consume or
close it before the connection can be reused.

	defer resp.Body().Close()
	data, err := io.ReadAll(resp.Body().Source())

For control over redirect following and authentication retries,
configure a follow-up policy using package followup:

	client := &httpc.Client{
		FollowUpPolicy: followup.New(
			followup.WithMaxRedirects(5),
			followup.WithAuthenticator(followup.BasicAuth("user", "pass"))),
	}

For control over the byte-level exchange, attempt timeouts, and
transport-error recovery, configure an HTTPTransport:

	client := &httpc.Client{
		Transport: &httpc.HTTPTransport{
			TimeoutPolicy: timeout.Adaptive(
				200*time.Millisecond, time.Second),
			MaxRecoveries: 3,
		},
	}

To execute many requests concurrently under an admission limit, submit
jobs through a Dispatcher; each job delivers its terminal result to a
Receiver callback and can be canceled cooperatively at any time:

	d := &httpc.Dispatcher{Client: client, MaxRequests: 16}
	job := d.Enqueue(req, httpc.ReceiverFuncs{
		Response: func(resp *request.Response) { ... },
		Failure:  func(f *httpc.Failure) { ... },
	})
	...
	job.Cancel()

To hook into the fine-grained details of the execution loop, install a
handler into the appropriate handler chain:

	handlers := &httpc.HandlerGroup{}
	handlers.PushBack(httpc.BeforeAttempt, httpc.HandlerFunc(
		func(_ httpc.Event, e *request.Execution) {
			log.Printf("attempt %d to %s", e.Attempt, e.Request.URL())
		}))
	client := &httpc.Client{Handlers: handlers}

Package httpc provides basic interfaces for each method of the client
(Doer, Getter, Header, Poster, FormPoster, and IdleCloser); a combined
interface that composes all the basic methods (Executor); and utility
functions for working with a Doer (Inflate, Get, Head, Post, and
PostForm).
*/
package httpc

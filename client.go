// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpc

import (
	urlpkg "net/url"

	"github.com/gogama/httpc/followup"
	"github.com/gogama/httpc/request"
)

var emptyHandlers = HandlerGroup{}

// A Client executes logical HTTP requests: it drives zero or more
// physical attempts over the wire, deciding at each step whether to
// retry after a recoverable transport failure, follow a redirect,
// answer an authentication challenge, or deliver a final response.
// Its zero value is a valid configuration.
//
// The zero value client uses DefaultTransport to open attempt
// engines, followup.DefaultPolicy to decide follow-ups, and an empty
// handler group (no event handlers/plug-ins).
//
// Client's Transport typically has internal state (pooled
// connections) so Client instances should be reused instead of
// created as needed. Client is safe for concurrent use by multiple
// goroutines.
//
// A Client is higher-level than a Transport. The Transport and the
// engines it opens are responsible for the byte-level mechanics of
// one request/response exchange: connecting, TLS, proxies, timeouts,
// and serialization. On top of the engine's feature set, Client adds:
//
// • transparent recovery from transport failures the engine reports
// as safely retryable;
//
// • redirect following with a configurable ceiling, preserving the
// original request's method, headers, and body across the chain;
//
// • authentication retry for 401 and 407 challenges through a
// customizable authenticator;
//
// • deterministic transport headers derived from the request body
// before the first attempt; and
//
// • user-provided handler functions invoked at designated plug-in
// points within the execution loop, allowing new features to be mixed
// in from outside libraries.
//
// Client.Do executes synchronously on the calling goroutine. To
// execute jobs concurrently under an admission limit, submit them
// through a Dispatcher instead.
type Client struct {
	// Transport opens the attempt engine for each physical request
	// attempt.
	//
	// If Transport is nil, DefaultTransport is used.
	Transport Transport
	// FollowUpPolicy decides, after each response head is read,
	// whether the execution is done or a follow-up request (redirect
	// or authentication retry) should be attempted next.
	//
	// If FollowUpPolicy is nil, followup.DefaultPolicy is used.
	FollowUpPolicy followup.Policy
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during a logical request execution.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
}

// Do executes a logical HTTP request and returns the final response,
// following the follow-up policy set on Client and the recovery
// policy of the underlying Transport's engines.
//
// The returned response is the response to the last follow-up
// computed during the execution; its RedirectedBy reference links
// back through any redirect chain that led to it. The response body
// has not been read: it streams lazily from the connection which
// produced it, and the caller must fully consume or close it.
//
// An error is returned if the final attempt ended in a transport
// error no recovery was possible for, if the follow-up policy
// detected a protocol violation (for example too many redirects), or
// if the request body violates its contract. A non-2XX status code
// does not result in an error. Any returned error is of type
// *Failure, carrying the request whose execution failed and the
// causal error.
//
// If the request's context is canceled before a final response is
// ready, Do returns ErrCanceled.
//
// For simple use cases, the Get, Head, Post, and PostForm methods may
// prove easier to use than Do.
func (c *Client) Do(req *request.Request) (*request.Response, error) {
	var sink syncReceiver
	j := newJob(c, req, &sink, nil)
	j.run()
	if j.Canceled() {
		return nil, ErrCanceled
	}
	if sink.failure != nil {
		return nil, sink.failure
	}
	return sink.response, nil
}

// Get issues a GET to the specified URL, using the same policies
// followed by Do.
//
// To make a request with custom headers, use request.New and
// Client.Do.
func (c *Client) Get(url string) (*request.Response, error) {
	return Get(c, url)
}

// Head issues a HEAD to the specified URL, using the same policies
// followed by Do.
//
// To make a request with custom headers, use request.New and
// Client.Do.
func (c *Client) Head(url string) (*request.Response, error) {
	return Head(c, url)
}

// Post issues a POST to the specified URL, using the same policies
// followed by Do.
//
// The body parameter may be nil for an empty body, or may be any of
// the types supported by request.BodyOf and httpc.Post, namely:
// string; []byte; and io.Reader.
//
// To make a request with custom headers, use request.New and
// Client.Do.
func (c *Client) Post(url, contentType string, body interface{}) (*request.Response, error) {
	return Post(c, url, contentType, body)
}

// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
// To set other headers, use request.New and Client.Do.
func (c *Client) PostForm(url string, data urlpkg.Values) (*request.Response, error) {
	return PostForm(c, url, data)
}

// CloseIdleConnections invokes the same method on the client's
// underlying Transport.
//
// If the Transport has no CloseIdleConnections method, this method
// does nothing.
func (c *Client) CloseIdleConnections() {
	if ic, ok := c.transport().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (c *Client) transport() Transport {
	if c.Transport == nil {
		return DefaultTransport
	}

	return c.Transport
}

func (c *Client) followUpPolicy() followup.Policy {
	if c.FollowUpPolicy == nil {
		return followup.DefaultPolicy
	}

	return c.FollowUpPolicy
}

func (c *Client) handlers() *HandlerGroup {
	if c.Handlers == nil {
		return &emptyHandlers
	}

	return c.Handlers
}

// syncReceiver captures the single terminal callback so Client.Do can
// return it to the calling goroutine.
type syncReceiver struct {
	response *request.Response
	failure  *Failure
}

func (r *syncReceiver) OnResponse(resp *request.Response) {
	r.response = resp
}

func (r *syncReceiver) OnFailure(f *Failure) {
	r.failure = f
}

// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package followup

import (
	"fmt"
	"net/http"

	"github.com/gogama/httpc/request"
)

// A Policy decides what, if anything, to do next after a response
// head has been read during a logical request execution.
//
// Decide examines the most recent response on the execution and
// returns either a follow-up request to attempt next (an
// authentication retry or a redirect), or nil if the response is
// final and should be delivered to the caller. Decide returns a
// *ProtocolError if the response violates HTTP protocol policy, for
// example a 407 received without an HTTP proxy in effect, or a
// redirect beyond the configured maximum.
//
// Decide is pure given the response and the proxy currently in
// effect, except that it increments the execution's redirect counter
// when it follows a redirect.
//
// Redirect follow-ups are derived from the execution's originally
// submitted request, not the most recent one: only the URL changes,
// and headers added by intermediate follow-ups, such as credentials
// an Authenticator attached for an earlier hop, do not carry forward.
// Authentication retries, by contrast, derive from the request that
// drew the challenge.
//
// Implementations of Policy must be safe for concurrent use by
// multiple goroutines.
type Policy interface {
	Decide(e *request.Execution) (*request.Request, error)
}

// A ProtocolError reports a fatal violation of HTTP protocol policy
// detected while deciding on a follow-up. Protocol errors are never
// retried: they end the execution with a failure.
type ProtocolError struct {
	// Reason describes the violation.
	Reason string
}

func (err *ProtocolError) Error() string {
	return "httpc/followup: " + err.Reason
}

// DefaultMaxRedirects is the number of redirects DefaultPolicy will
// follow within one logical request execution before failing with a
// protocol error.
const DefaultMaxRedirects = 20

// DefaultPolicy is the default follow-up policy. It follows up to
// DefaultMaxRedirects redirects, allows redirects which cross between
// the http and https protocols, and has no authenticator, so 401 and
// 407 challenges are delivered to the caller unchanged.
var DefaultPolicy Policy = New()

// An Option configures a Policy under construction by New.
type Option func(*policy)

// WithMaxRedirects returns an option setting the maximum number of
// redirects the policy will follow within one execution. Following a
// redirect beyond the maximum fails the execution with a protocol
// error. It panics if n is negative; zero means no redirect is ever
// followed.
func WithMaxRedirects(n int) Option {
	if n < 0 {
		panic("httpc/followup: negative redirect maximum")
	}
	return func(p *policy) {
		p.maxRedirects = n
	}
}

// WithProtocolRedirects returns an option controlling whether the
// policy follows redirects which cross between the http and https
// protocols. When disabled, a cross-protocol redirect yields no
// follow-up and the redirect response is delivered to the caller.
func WithProtocolRedirects(allow bool) Option {
	return func(p *policy) {
		p.protocolRedirects = allow
	}
}

// WithAuthenticator returns an option installing an authenticator to
// answer 401 and 407 challenges. A nil authenticator means challenges
// are delivered to the caller unchanged.
func WithAuthenticator(a Authenticator) Option {
	return func(p *policy) {
		p.authenticator = a
	}
}

// New constructs a follow-up Policy implementing standard HTTP
// redirect and authentication retry semantics, configured by the
// given options. With no options, the returned policy behaves like
// DefaultPolicy.
func New(opts ...Option) Policy {
	p := &policy{
		maxRedirects:      DefaultMaxRedirects,
		protocolRedirects: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type policy struct {
	maxRedirects      int
	protocolRedirects bool
	authenticator     Authenticator
}

func (p *policy) Decide(e *request.Execution) (*request.Request, error) {
	resp := e.Response
	switch resp.StatusCode() {
	case http.StatusProxyAuthRequired:
		// A server must not send 407 unless an HTTP proxy mediates
		// the connection.
		if !httpProxy(e) {
			return nil, &ProtocolError{Reason: fmt.Sprintf(
				"received HTTP status %d from a server reached without an HTTP proxy", resp.StatusCode())}
		}
		return p.authenticate(e)
	case http.StatusUnauthorized:
		return p.authenticate(e)
	case http.StatusMultipleChoices, http.StatusMovedPermanently,
		http.StatusFound, http.StatusSeeOther, http.StatusTemporaryRedirect:
		return p.redirect(e)
	default:
		return nil, nil
	}
}

func (p *policy) authenticate(e *request.Execution) (*request.Request, error) {
	if p.authenticator == nil {
		return nil, nil
	}
	return p.authenticator.Authenticate(e.Response, e.Proxy)
}

func (p *policy) redirect(e *request.Execution) (*request.Request, error) {
	resp := e.Response
	cur := resp.Request()
	if resp.StatusCode() == http.StatusTemporaryRedirect {
		// A 307 must not be auto-followed for methods which are not
		// safe to repeat.
		if m := cur.Method(); m != "GET" && m != "HEAD" {
			return nil, nil
		}
	}
	location := resp.Header("Location")
	if location == "" {
		return nil, nil
	}
	u, err := cur.URL().Parse(location)
	if err != nil {
		return nil, nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, nil
	}
	if u.Scheme != cur.URL().Scheme && !p.protocolRedirects {
		return nil, nil
	}
	e.Redirects++
	if e.Redirects > p.maxRedirects {
		return nil, &ProtocolError{Reason: fmt.Sprintf("too many redirects: %d", e.Redirects)}
	}
	// Rebase onto the original request rather than the current one:
	// only the URL changes, so the original headers, method, and body
	// survive the whole redirect chain.
	base := e.Original
	if base == nil {
		base = cur
	}
	return base.Derive().URL(u).Build(), nil
}

func httpProxy(e *request.Execution) bool {
	if e.Proxy == nil {
		return false
	}
	switch e.Proxy.Scheme {
	case "", "http", "https":
		return true
	default:
		return false
	}
}

// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/http/httpproxy"

	"github.com/gogama/httpc/request"
	"github.com/gogama/httpc/timeout"
	"github.com/gogama/httpc/transient"
)

// DefaultMaxRecoveries is the number of transport-error recoveries an
// HTTPTransport engine will perform within one logical request
// execution before declining further retries.
const DefaultMaxRecoveries = 2

// DefaultTransport is the Transport used by a Client whose Transport
// field is nil. It is an HTTPTransport in its zero configuration,
// exchanging requests through http.DefaultTransport.
var DefaultTransport Transport = &HTTPTransport{}

// HTTPTransport opens attempt engines which perform their physical
// request/response exchanges through a net/http RoundTripper. Its
// zero value is a valid configuration.
//
// The engines opened by HTTPTransport own exactly the concerns the
// execution core delegates to its engine collaborator: byte-level
// exchange mechanics (connecting, TLS, serialization, connection
// pooling, all delegated to the RoundTripper), per-attempt timeouts
// (directed by the timeout policy), proxy route resolution, and
// recovery from transport errors. An engine accepts recovery only for
// errors the transient package categorizes as connection-level
// (reset, refused, or truncated), only while its recovery budget
// lasts, and only if the request body can be safely replayed;
// timeouts always surface to the caller.
//
// HTTPTransport is safe for concurrent use by multiple goroutines.
type HTTPTransport struct {
	// Transport specifies the mechanics of the request/response
	// exchange.
	//
	// If Transport is nil, http.DefaultTransport is used.
	Transport http.RoundTripper
	// TimeoutPolicy directs how to set the timeout on each request
	// attempt. The timeout covers the exchange up to and including
	// the read of the response head; it does not bound the lazy
	// consumption of the response body.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// Proxy resolves the proxy mediating the connection to a given
	// request URL, for route reporting to the follow-up policy. The
	// underlying RoundTripper performs the actual proxying and should
	// be configured consistently.
	//
	// If Proxy is nil, the proxy is resolved from the process
	// environment (HTTP_PROXY, HTTPS_PROXY, NO_PROXY), matching the
	// default behavior of http.DefaultTransport.
	Proxy func(*urlpkg.URL) (*urlpkg.URL, error)
	// MaxRecoveries bounds the number of transport-error recoveries
	// per logical request execution. Zero means
	// DefaultMaxRecoveries; a negative value disables recovery.
	MaxRecoveries int
}

// Open binds a fresh engine to the execution's current request. The
// reuse handle is honored when it addresses the same destination: the
// new engine's exchange will prefer the pooled connection the
// previous exchange used.
func (t *HTTPTransport) Open(e *request.Execution, reuse Connection) (Engine, error) {
	proxy, err := t.proxyFor(e.Request.URL())
	if err != nil {
		return nil, err
	}
	addr := AddressOf(e.Request.URL())
	var conn *httpConn
	if hc, ok := reuse.(*httpConn); ok && hc.Address() == addr {
		conn = hc
	} else {
		conn = &httpConn{addr: addr}
	}
	return &httpEngine{
		t:     t,
		exec:  e,
		route: &Route{Proxy: proxy, Address: addr},
		conn:  conn,
	}, nil
}

// CloseIdleConnections forwards to the underlying RoundTripper, if it
// supports the ability.
func (t *HTTPTransport) CloseIdleConnections() {
	if ic, ok := t.roundTripper().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (t *HTTPTransport) roundTripper() http.RoundTripper {
	if t.Transport == nil {
		return http.DefaultTransport
	}

	return t.Transport
}

func (t *HTTPTransport) timeoutPolicy() timeout.Policy {
	if t.TimeoutPolicy == nil {
		return timeout.DefaultPolicy
	}

	return t.TimeoutPolicy
}

func (t *HTTPTransport) proxyFor(u *urlpkg.URL) (*urlpkg.URL, error) {
	if t.Proxy != nil {
		return t.Proxy(u)
	}

	return envProxy()(u)
}

func (t *HTTPTransport) maxRecoveries() int {
	if t.MaxRecoveries < 0 {
		return 0
	}
	if t.MaxRecoveries == 0 {
		return DefaultMaxRecoveries
	}
	return t.MaxRecoveries
}

var envProxy = sync.OnceValue(func() func(*urlpkg.URL) (*urlpkg.URL, error) {
	return httpproxy.FromEnvironment().ProxyFunc()
})

// httpEngine performs one exchange through the transport's
// RoundTripper. net/http exposes the exchange as one indivisible
// round trip, so SendRequest only assembles the request head and
// RequestBody hands out a buffering sink; the bytes move on the wire
// when ReadResponse invokes the round trip.
type httpEngine struct {
	t          *HTTPTransport
	exec       *request.Execution
	route      *Route
	conn       *httpConn
	recoveries int
	hr         *http.Request
	body       bytes.Buffer
	hasBody    bool
	resp       *http.Response
	cancel     context.CancelFunc
	timedOut   atomic.Bool
	handedOff  bool
	closed     bool
}

func (g *httpEngine) SendRequest() error {
	req := g.exec.Request
	ctx, cancel := context.WithCancel(req.Context())
	g.cancel = cancel
	hr, err := http.NewRequestWithContext(ctx, req.Method(), req.URL().String(), nil)
	if err != nil {
		return err
	}
	for k, vs := range req.Headers() {
		switch k {
		case "Content-Length", "Transfer-Encoding":
			// Framing is re-derived below; net/http rejects these as
			// literal header fields.
		case "Host":
			hr.Host = vs[len(vs)-1]
		default:
			hr.Header[k] = append([]string(nil), vs...)
		}
	}
	g.hr = hr
	return nil
}

func (g *httpEngine) RequestBody() (Sink, error) {
	if g.hr == nil {
		return nil, errors.New("httpc: request body offered before request head")
	}
	g.hasBody = true
	g.body.Reset()
	return bufferSink{&g.body}, nil
}

func (g *httpEngine) ReadResponse() (*request.Response, error) {
	req := g.exec.Request
	if g.hr == nil {
		return nil, errors.New("httpc: response read before request sent")
	}
	if g.hasBody {
		payload := g.body.Bytes()
		g.hr.Body = io.NopCloser(bytes.NewReader(payload))
		g.hr.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		}
		if req.Header("Transfer-Encoding") == "chunked" {
			g.hr.ContentLength = -1
		} else {
			g.hr.ContentLength = int64(len(payload))
		}
	}

	d := g.t.timeoutPolicy().Timeout(g.exec)
	timer := time.AfterFunc(d, func() {
		g.timedOut.Store(true)
		g.cancel()
	})
	resp, err := g.t.roundTripper().RoundTrip(g.hr)
	timer.Stop()
	if err != nil {
		if g.timedOut.Load() {
			err = &attemptTimeoutError{timeout: d, cause: err}
		}
		g.cancel()
		return nil, err
	}
	g.resp = resp
	return request.NewResponseBuilder().
		Request(req).
		StatusCode(resp.StatusCode).
		Headers(resp.Header).
		Build(), nil
}

func (g *httpEngine) ResponseBody() io.ReadCloser {
	if g.resp == nil {
		return http.NoBody
	}
	g.handedOff = true
	return &bodyCloser{rc: g.resp.Body, cancel: g.cancel}
}

func (g *httpEngine) Recover(err error) Engine {
	if g.recoveries >= g.t.maxRecoveries() {
		return nil
	}
	switch transient.Categorize(err) {
	case transient.ConnReset, transient.ConnRefused, transient.Truncated:
	default:
		return nil
	}
	if body := g.exec.Request.Body(); body != nil {
		rw, ok := body.(request.Rewinder)
		if !ok {
			return nil
		}
		if err := rw.Rewind(); err != nil {
			return nil
		}
	}
	conn := g.Close()
	next := &httpEngine{
		t:          g.t,
		exec:       g.exec,
		route:      g.route,
		recoveries: g.recoveries + 1,
	}
	if hc, ok := conn.(*httpConn); ok {
		next.conn = hc
	}
	return next
}

func (g *httpEngine) Route() *Route {
	return g.route
}

func (g *httpEngine) ReleaseConnection() {
	if g.resp == nil || g.handedOff {
		return
	}
	// Drain a bounded remainder so the pooled connection is clean for
	// the next exchange; past the bound it is cheaper to discard the
	// connection than to read it dry.
	_, _ = io.CopyN(io.Discard, g.resp.Body, maxDrainBytes)
	_ = g.resp.Body.Close()
	g.resp = nil
}

func (g *httpEngine) Close() Connection {
	if !g.closed {
		g.closed = true
		if g.resp != nil && !g.handedOff {
			_ = g.resp.Body.Close()
			g.resp = nil
		}
		if g.cancel != nil && !g.handedOff {
			g.cancel()
		}
	}
	return g.conn
}

const maxDrainBytes = 256 << 10

type bufferSink struct {
	buf *bytes.Buffer
}

func (s bufferSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

// Flush is a no-op: the buffered payload reaches the wire when the
// round trip runs.
func (s bufferSink) Flush() error {
	return nil
}

// bodyCloser ties the life of the attempt's context to the response
// body handed out to the caller: the context is released only once
// the caller is done with the stream.
type bodyCloser struct {
	rc     io.ReadCloser
	cancel context.CancelFunc
}

func (b *bodyCloser) Read(p []byte) (int, error) {
	return b.rc.Read(p)
}

func (b *bodyCloser) Close() error {
	err := b.rc.Close()
	if b.cancel != nil {
		b.cancel()
	}
	return err
}

// httpConn is the connection handle threaded between engines across a
// same-destination follow-up. net/http owns the physical sockets in
// its pool, so the handle carries only the destination identity the
// pool keys on.
type httpConn struct {
	addr   Address
	closed atomic.Bool
}

func (c *httpConn) Address() Address {
	return c.addr
}

func (c *httpConn) Close() error {
	c.closed.Store(true)
	return nil
}

type attemptTimeoutError struct {
	timeout time.Duration
	cause   error
}

func (err *attemptTimeoutError) Error() string {
	return fmt.Sprintf("httpc: attempt timed out after %s: %s", err.timeout, err.cause)
}

func (err *attemptTimeoutError) Unwrap() error {
	return err.cause
}

// Timeout marks the error as a timeout for transient categorization
// and for callers testing with errors.As against net.Error-like
// types.
func (err *attemptTimeoutError) Timeout() bool {
	return true
}

// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpc

import (
	"io"
	urlpkg "net/url"
	"strings"

	"github.com/gogama/httpc/request"
)

// An Engine performs one physical request/response exchange over a
// connection.
//
// The execution loop drives the engine through a fixed sequence:
// SendRequest, then RequestBody and a body write if the request
// carries a payload, then ReadResponse. A transport failure at any of
// these steps is offered to Recover, which either produces a fresh
// engine primed for a from-scratch attempt of the identical logical
// request, or declines, making the failure fatal.
//
// A Job never holds more than one live Engine at a time. An Engine is
// single-use: after a follow-up is computed the loop closes it and
// opens a new one through the Transport, passing along the retained
// connection handle when the follow-up targets the same destination.
type Engine interface {
	// SendRequest transmits the request line and headers of the
	// current request.
	SendRequest() error
	// RequestBody returns a sink for streaming the request payload.
	// The sink may buffer; the payload is not guaranteed to be on the
	// wire until Flush returns.
	RequestBody() (Sink, error)
	// ReadResponse reads the response head (status line and headers)
	// and materializes it as an immutable Response without a body
	// handle attached.
	ReadResponse() (*request.Response, error)
	// ResponseBody returns the raw byte stream of the response whose
	// head was just read. Handing the stream out transfers ownership:
	// the connection may not be reused until the stream is fully
	// consumed or closed.
	ResponseBody() io.ReadCloser
	// Recover is offered a transport failure raised while sending the
	// request or reading the response head. It returns a fresh Engine
	// primed to replay the identical logical request, or nil if the
	// failure is not safely retryable, for example because the
	// request body was partially sent with no safe replay, or because
	// the engine's recovery budget is exhausted.
	Recover(err error) Engine
	// Route returns the route in effect for this engine's connection,
	// carrying the mediating proxy if any. It never returns nil.
	Route() *Route
	// ReleaseConnection hands the engine's connection back for reuse.
	// If a response body is pending and has not been handed out via
	// ResponseBody, the engine finalizes it first; if the body has
	// been handed out, release is deferred until the stream is
	// consumed or closed.
	ReleaseConnection()
	// Close finalizes the engine and returns its connection handle.
	// Close is idempotent. It does not terminate a response body
	// stream previously handed out via ResponseBody.
	Close() Connection
}

// A Sink accepts a request payload streamed into it. Flush forces any
// buffered payload toward the wire.
type Sink interface {
	io.Writer
	Flush() error
}

// A Transport opens attempt engines for the execution loop.
//
// Open binds a fresh Engine to the execution's current request. The
// reuse parameter carries the connection handle retained from the
// previous engine when the new attempt targets the same destination;
// it is nil for the first attempt and after a destination change. A
// Transport may honor the handle by routing the new exchange over the
// same connection, or ignore it.
//
// Implementations of Transport must be safe for concurrent use by
// multiple goroutines.
type Transport interface {
	Open(e *request.Execution, reuse Connection) (Engine, error)
}

// A Connection is an opaque handle on the physical connection behind
// an attempt engine. The execution loop threads the handle from one
// engine to the next across a same-destination follow-up so the
// transport can reuse the connection, and closes it when the job
// ends.
type Connection interface {
	// Address identifies the destination the connection is bound to.
	Address() Address
	// Close releases the handle. Close is idempotent.
	Close() error
}

// A Route describes how an attempt engine's connection reaches the
// request target.
type Route struct {
	// Proxy is the URL of the proxy mediating the connection, or nil
	// for a direct connection.
	Proxy *urlpkg.URL
	// Address is the destination the connection is bound to.
	Address Address
}

// An Address identifies a connection destination: lowercase scheme
// and host, and the port with scheme defaults applied. Two requests
// whose URLs resolve to the same Address may share a connection.
type Address struct {
	Scheme string
	Host   string
	Port   string
}

// AddressOf returns the canonical Address of a request URL, applying
// the default port for the http and https schemes when the URL does
// not specify one.
func AddressOf(u *urlpkg.URL) Address {
	scheme := strings.ToLower(u.Scheme)
	port := u.Port()
	if port == "" {
		switch scheme {
		case "http":
			port = "80"
		case "https":
			port = "443"
		}
	}
	return Address{
		Scheme: scheme,
		Host:   strings.ToLower(u.Hostname()),
		Port:   port,
	}
}

// String formats the address as scheme://host:port.
func (a Address) String() string {
	return a.Scheme + "://" + a.Host + ":" + a.Port
}

// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	urlpkg "net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

const (
	nilCtxMsg = "httpc/request: nil context"
	nilURLMsg = "httpc/request: nil URL"
)

// A Request describes one logical HTTP request.
//
// A Request is an immutable value. The execution logic never modifies a
// Request in place: whenever headers must change, or an authentication
// or redirect follow-up is computed, a new Request is derived from the
// old one using Derive. This keeps every physical attempt within a
// logical request execution traceable to the exact Request value it
// transmitted.
//
// The zero Request is not usable; obtain one from New, or from a
// Builder.
type Request struct {
	ctx    context.Context
	method string
	url    *urlpkg.URL
	header http.Header
	body   Body
	tag    interface{}
}

// New returns a new GET, HEAD, POST, etc. Request given a method, URL
// string, and optional body.
//
// An empty method means GET. The URL string must parse per RFC 3986.
// Body may be nil for requests which carry no payload.
//
// The new request uses the background context. To attach a different
// context, use NewWithContext or derive with Builder.Context.
func New(method, url string, body Body) (*Request, error) {
	return NewWithContext(context.Background(), method, url, body)
}

// NewWithContext returns a new Request given a context, method, URL
// string, and optional body.
//
// The context controls cooperative cancellation of the request's
// execution: when it is done, the executing job counts as canceled,
// and the execution stops at the next loop boundary. A result arriving
// after cancellation is never delivered.
func NewWithContext(ctx context.Context, method, url string, body Body) (*Request, error) {
	if ctx == nil {
		return nil, errors.New(nilCtxMsg)
	}
	if method == "" {
		method = "GET"
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("httpc/request: invalid method %q", method)
	}
	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	u.Host = removeEmptyPort(u.Host)
	return &Request{
		ctx:    ctx,
		method: method,
		url:    u,
		header: make(http.Header),
		body:   body,
	}, nil
}

// Context returns the request's context, which controls cooperative
// cancellation of the request's execution. The returned context is
// always non-nil; it defaults to the background context.
func (r *Request) Context() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

// Method returns the HTTP method, e.g. "GET".
func (r *Request) Method() string {
	return r.method
}

// URL returns the target URL. The caller must not modify the returned
// value.
func (r *Request) URL() *urlpkg.URL {
	return r.url
}

// Header returns the first value associated with the given header
// name, or the empty string if the header is absent.
func (r *Request) Header(name string) string {
	return r.header.Get(name)
}

// Headers returns the request's header multimap. The caller must treat
// the returned map as read-only; to change headers, derive a new
// Request.
func (r *Request) Headers() http.Header {
	return r.header
}

// Body returns the request body, or nil if the request has none.
func (r *Request) Body() Body {
	return r.body
}

// Tag returns the opaque tag attached to the request for caller
// bookkeeping, for example to cancel all in-flight requests carrying
// the tag. If no tag was set, the request itself is the tag.
func (r *Request) Tag() interface{} {
	if r.tag != nil {
		return r.tag
	}
	return r
}

// Derive returns a Builder pre-populated with a copy of the request's
// fields, for constructing a variant of the request. The original
// request is not affected by anything done to the Builder.
func (r *Request) Derive() *Builder {
	b := &Builder{
		ctx:    r.ctx,
		method: r.method,
		url:    r.url,
		header: make(http.Header, len(r.header)),
		body:   r.body,
		tag:    r.tag,
	}
	for k, vs := range r.header {
		b.header[k] = append([]string(nil), vs...)
	}
	return b
}

// A Builder assembles the fields of a Request and produces an
// immutable Request value with Build. The zero Builder is valid and
// describes a GET request with no URL; a URL must be set before Build
// is called.
type Builder struct {
	ctx    context.Context
	method string
	url    *urlpkg.URL
	header http.Header
	body   Body
	tag    interface{}
}

// NewBuilder returns an empty request Builder.
func NewBuilder() *Builder {
	return &Builder{header: make(http.Header)}
}

// Context sets the request context. It panics if ctx is nil.
func (b *Builder) Context(ctx context.Context) *Builder {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	b.ctx = ctx
	return b
}

// Method sets the HTTP method. It panics if the method is not a valid
// HTTP token.
func (b *Builder) Method(method string) *Builder {
	if method != "" && !validMethod(method) {
		panic(fmt.Sprintf("httpc/request: invalid method %q", method))
	}
	b.method = method
	return b
}

// URL sets the target URL. It panics if u is nil.
func (b *Builder) URL(u *urlpkg.URL) *Builder {
	if u == nil {
		panic(nilURLMsg)
	}
	b.url = u
	return b
}

// ParseURL parses a URL string and sets the result as the target URL.
func (b *Builder) ParseURL(url string) (*Builder, error) {
	u, err := urlpkg.Parse(url)
	if err != nil {
		return b, err
	}
	u.Host = removeEmptyPort(u.Host)
	b.url = u
	return b, nil
}

// Header sets the header with the given name to the single given
// value, replacing any existing values. It panics if the name or value
// is not valid per RFC 7230.
func (b *Builder) Header(name, value string) *Builder {
	checkHeader(name, value)
	b.lazyHeader().Set(name, value)
	return b
}

// AddHeader adds a value to the header with the given name, keeping
// any existing values. It panics if the name or value is not valid per
// RFC 7230.
func (b *Builder) AddHeader(name, value string) *Builder {
	checkHeader(name, value)
	b.lazyHeader().Add(name, value)
	return b
}

// RemoveHeader removes all values of the header with the given name.
func (b *Builder) RemoveHeader(name string) *Builder {
	b.lazyHeader().Del(name)
	return b
}

// Body sets the request body. A nil body means the request carries no
// payload.
func (b *Builder) Body(body Body) *Builder {
	b.body = body
	return b
}

// Tag attaches an opaque tag to the request for caller bookkeeping.
func (b *Builder) Tag(tag interface{}) *Builder {
	b.tag = tag
	return b
}

// Build returns an immutable Request assembled from the builder's
// current state. It panics if no URL has been set. The builder remains
// usable after Build, and later changes to it do not affect the built
// Request.
func (b *Builder) Build() *Request {
	if b.url == nil {
		panic(nilURLMsg)
	}
	method := b.method
	if method == "" {
		method = "GET"
	}
	header := make(http.Header, len(b.header))
	for k, vs := range b.header {
		header[k] = append([]string(nil), vs...)
	}
	return &Request{
		ctx:    b.ctx,
		method: method,
		url:    b.url,
		header: header,
		body:   b.body,
		tag:    b.tag,
	}
}

func (b *Builder) lazyHeader() http.Header {
	if b.header == nil {
		b.header = make(http.Header)
	}
	return b.header
}

// BasicAuth encodes a username and password into an HTTP Basic
// Authentication credential suitable for use as an Authorization or
// Proxy-Authorization header value.
//
// See RFC 2617: the client sends the userid and password, separated by
// a single colon, within a base64-encoded string. Neither value is
// encrypted, and neither is URL-encoded.
func BasicAuth(username, password string) string {
	auth := username + ":" + password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(auth))
}

func checkHeader(name, value string) {
	if !httpguts.ValidHeaderFieldName(name) {
		panic(fmt.Sprintf("httpc/request: invalid header name %q", name))
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		panic(fmt.Sprintf("httpc/request: invalid header value %q", value))
	}
}

// validMethod reports whether the method is a token per RFC 7230
// section 3.2.6. The empty string is handled by the callers, which
// interpret it as GET.
func validMethod(method string) bool {
	for _, r := range method {
		if !httpguts.IsTokenRune(r) {
			return false
		}
	}
	return true
}

// hasPort is lifted verbatim from net/http/http.go
//
// Given a string of the form "host", "host:port", or "[ipv6::address]:port",
// return true if the string includes a port.
func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort is lifted verbatim from net/http/http.go
//
// removeEmptyPort strips the empty port in ":port" to ""
// as mandated by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}

// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// A Response describes one HTTP response received during the
// execution of a logical request.
//
// A Response is an immutable value. It records the Request whose
// transmission produced it, the status code and header multimap read
// from the wire, and a lazy handle on the response payload. If the
// response was reached by following a redirect, RedirectedBy links to
// the Response which caused the redirect, forming a singly-linked
// chain from the final response back through every redirecting
// response to nil.
//
// Obtain a Response from a ResponseBuilder, or derive a variant of an
// existing Response with Derive.
type Response struct {
	request      *Request
	statusCode   int
	header       http.Header
	body         *ResponseBody
	redirectedBy *Response
}

// Request returns the request whose transmission produced this
// response. It is never nil.
func (r *Response) Request() *Request {
	return r.request
}

// StatusCode returns the HTTP status code, e.g. 200.
func (r *Response) StatusCode() int {
	return r.statusCode
}

// Header returns the first value associated with the given header
// name, or the empty string if the header is absent.
func (r *Response) Header(name string) string {
	return r.header.Get(name)
}

// Headers returns the response's header multimap. The caller must
// treat the returned map as read-only.
func (r *Response) Headers() http.Header {
	return r.header
}

// Body returns the response body handle, or nil if no body was
// attached. The body, once handed to a caller, is bound to the
// connection which produced it: the caller must fully consume it or
// close it before that connection can be reused.
func (r *Response) Body() *ResponseBody {
	return r.body
}

// RedirectedBy returns the response whose redirect led to this
// response, or nil if this response was not reached via a redirect.
// Walking RedirectedBy links visits the redirect chain from the most
// recent hop back to the first.
func (r *Response) RedirectedBy() *Response {
	return r.redirectedBy
}

// Derive returns a ResponseBuilder pre-populated with a copy of the
// response's fields, for constructing a variant of the response. The
// original response is not affected by anything done to the builder.
func (r *Response) Derive() *ResponseBuilder {
	b := &ResponseBuilder{
		request:      r.request,
		statusCode:   r.statusCode,
		header:       make(http.Header, len(r.header)),
		body:         r.body,
		redirectedBy: r.redirectedBy,
	}
	for k, vs := range r.header {
		b.header[k] = append([]string(nil), vs...)
	}
	return b
}

// A ResponseBuilder assembles the fields of a Response and produces
// an immutable Response value with Build. Attempt engines use it to
// materialize a response head read from the wire; the execution logic
// uses it to attach body handles and redirect-chain links.
type ResponseBuilder struct {
	request      *Request
	statusCode   int
	header       http.Header
	body         *ResponseBody
	redirectedBy *Response
}

// NewResponseBuilder returns an empty ResponseBuilder.
func NewResponseBuilder() *ResponseBuilder {
	return &ResponseBuilder{header: make(http.Header)}
}

// Request sets the request whose transmission produced the response.
// It panics if req is nil.
func (b *ResponseBuilder) Request(req *Request) *ResponseBuilder {
	if req == nil {
		panic("httpc/request: nil request")
	}
	b.request = req
	return b
}

// StatusCode sets the HTTP status code.
func (b *ResponseBuilder) StatusCode(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header sets the header with the given name to the single given
// value, replacing any existing values.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.lazyHeader().Set(name, value)
	return b
}

// AddHeader adds a value to the header with the given name, keeping
// any existing values.
func (b *ResponseBuilder) AddHeader(name, value string) *ResponseBuilder {
	b.lazyHeader().Add(name, value)
	return b
}

// Headers replaces the builder's header multimap with a copy of h.
func (b *ResponseBuilder) Headers(h http.Header) *ResponseBuilder {
	b.header = make(http.Header, len(h))
	for k, vs := range h {
		b.header[k] = append([]string(nil), vs...)
	}
	return b
}

// Body sets the response body handle. A nil body means the response
// carries no readable payload.
func (b *ResponseBuilder) Body(body *ResponseBody) *ResponseBuilder {
	b.body = body
	return b
}

// RedirectedBy sets the back-reference to the response whose redirect
// led to this one.
func (b *ResponseBuilder) RedirectedBy(r *Response) *ResponseBuilder {
	b.redirectedBy = r
	return b
}

// Build returns an immutable Response assembled from the builder's
// current state. It panics if no request has been set. The builder
// remains usable after Build, and later changes to it do not affect
// the built Response.
func (b *ResponseBuilder) Build() *Response {
	if b.request == nil {
		panic("httpc/request: response requires a request")
	}
	header := make(http.Header, len(b.header))
	for k, vs := range b.header {
		header[k] = append([]string(nil), vs...)
	}
	return &Response{
		request:      b.request,
		statusCode:   b.statusCode,
		header:       header,
		body:         b.body,
		redirectedBy: b.redirectedBy,
	}
}

func (b *ResponseBuilder) lazyHeader() http.Header {
	if b.header == nil {
		b.header = make(http.Header)
	}
	return b.header
}

// A ResponseBody is a lazy, streaming handle on a response payload.
//
// A ResponseBody never buffers: reading from Source drains the bytes
// directly off the connection which produced the response, and the
// connection cannot be reused until the body is fully consumed or
// closed. Large and unbounded payloads can therefore be streamed
// without wholesale buffering.
type ResponseBody struct {
	contentType string
	length      int64
	source      io.ReadCloser
}

// NewResponseBody wraps a raw byte stream read from a connection into
// a ResponseBody, resolving the content type and content length from
// the given response headers.
//
// The content type is the media type parsed from the Content-Type
// header; an absent or malformed header yields no content type. The
// content length follows standard HTTP resolution: an explicit
// Content-Length header gives the length, chunked transfer encoding
// implies unknown length, and absence of both implies unknown length.
//
// A nil source is treated as an empty stream.
func NewResponseBody(header http.Header, source io.ReadCloser) *ResponseBody {
	if source == nil {
		source = http.NoBody
	}
	return &ResponseBody{
		contentType: contentType(header),
		length:      contentLength(header),
		source:      source,
	}
}

// ContentType returns the media type of the payload, for example
// "text/html", or the empty string if the response declared no
// parseable content type.
func (b *ResponseBody) ContentType() string {
	return b.contentType
}

// ContentLength returns the declared length of the payload in bytes,
// or -1 if the length is unknown (chunked transfer encoding, or no
// length declaration at all).
func (b *ResponseBody) ContentLength() int64 {
	return b.length
}

// Source returns the underlying byte stream for the caller to read
// lazily. Consuming the stream to EOF drains the connection so it may
// be released for reuse.
func (b *ResponseBody) Source() io.ReadCloser {
	return b.source
}

// Close releases the body without necessarily consuming it, closing
// the underlying stream. After Close, the connection which produced
// the response may be finalized by its owner.
func (b *ResponseBody) Close() error {
	return b.source.Close()
}

func contentType(header http.Header) string {
	v := header.Get("Content-Type")
	if v == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return ""
	}
	return mt
}

func contentLength(header http.Header) int64 {
	if chunked(header) {
		return -1
	}
	v := header.Get("Content-Length")
	if v == "" {
		return -1
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

func chunked(header http.Header) bool {
	for _, v := range header.Values("Transfer-Encoding") {
		for _, enc := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(enc), "chunked") {
				return true
			}
		}
	}
	return false
}

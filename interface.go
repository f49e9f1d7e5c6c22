// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpc

import (
	urlpkg "net/url"

	"github.com/gogama/httpc/request"
)

// A Receiver is the result sink of an asynchronously executed Job.
// Exactly one of its methods is invoked exactly once per non-canceled
// Job; a canceled Job invokes neither.
//
// Implementations must be safe for concurrent use if they are shared
// across jobs, since jobs run on separate worker goroutines.
type Receiver interface {
	// OnResponse delivers the final response of a successful
	// execution. The response body streams lazily from the connection
	// which produced it; the receiver must fully consume or close it.
	OnResponse(resp *request.Response)
	// OnFailure delivers the terminal failure of an execution.
	OnFailure(f *Failure)
}

// ReceiverFuncs adapts a pair of ordinary functions to the Receiver
// interface. A nil function field causes the corresponding result to
// be dropped silently.
type ReceiverFuncs struct {
	Response func(resp *request.Response)
	Failure  func(f *Failure)
}

func (r ReceiverFuncs) OnResponse(resp *request.Response) {
	if r.Response != nil {
		r.Response(resp)
	}
}

func (r ReceiverFuncs) OnFailure(f *Failure) {
	if r.Failure != nil {
		r.Failure(f)
	}
}

// Doer is the interface that wraps the basic Do method.
//
// Do executes a logical HTTP request and returns the final response
// (and error, if any). Client implements the Doer interface, and any
// other Doer implementation must behave substantially the same as
// Client.Do.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Doer interface {
	Do(req *request.Request) (*request.Response, error)
}

// Getter is the interface that wraps the basic Get method.
//
// Get creates a logical request to issue a GET to the specified URL,
// executes it, and returns the final response (and error, if any).
// Client implements the Getter interface, and any other Getter
// implementation must behave substantially the same as Client.Get.
//
// Any Doer can be used to emulate a Getter via the Get function.
type Getter interface {
	Get(url string) (*request.Response, error)
}

// Header is the interface that wraps the basic Head method.
//
// Head creates a logical request to issue a HEAD to the specified
// URL, executes it, and returns the final response (and error, if
// any). Client implements the Header interface, and any other Header
// implementation must behave substantially the same as Client.Head.
//
// Any Doer can be used to emulate a Header via the Head function.
type Header interface {
	Head(url string) (*request.Response, error)
}

// Poster is the interface that wraps the basic Post method.
//
// Post creates a logical request to issue a POST to the specified
// URL, executes it, and returns the final response (and error, if
// any). Client implements the Poster interface, and any other Poster
// implementation must behave substantially the same as Client.Post.
//
// The body parameter may be nil for an empty body, or may be any of
// the types supported by request.BodyOf, namely: string; []byte; and
// io.Reader.
//
// Any Doer can be used to emulate a Poster via the Post function.
type Poster interface {
	Post(url, contentType string, body interface{}) (*request.Response, error)
}

// FormPoster is the interface that wraps the basic PostForm method.
//
// PostForm creates a logical request to issue a form POST to the
// specified URL, executes it, and returns the final response (and
// error, if any). Client implements the FormPoster interface, and any
// other FormPoster implementation must behave substantially the same
// as Client.PostForm.
//
// Any Doer can be used to emulate a FormPoster via the PostForm
// function.
type FormPoster interface {
	PostForm(url string, data urlpkg.Values) (*request.Response, error)
}

// IdleCloser is the interface that wraps the basic
// CloseIdleConnections method.
//
// If the underlying implementation supports it, CloseIdleConnections
// closes any connections which were opened for previous requests but
// are now sitting idle in a "keep-alive" state. It does not interrupt
// any connections currently in use.
//
// If the underlying implementation does not support this ability,
// CloseIdleConnections does nothing.
type IdleCloser interface {
	CloseIdleConnections()
}

// Executor is the interface that groups the basic Do, Get, Head,
// Post, PostForm, and CloseIdleConnections methods.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Executor interface {
	Doer
	Getter
	Header
	Poster
	FormPoster
	IdleCloser
}

// Get uses the specified Doer to issue a GET to the specified URL,
// using the same policies as d.Do.
//
// To make a request with custom headers, use request.New and d.Do.
func Get(d Doer, url string) (*request.Response, error) {
	req, err := request.New("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return d.Do(req)
}

// Head uses the specified Doer to issue a HEAD to the specified URL,
// using the same policies as d.Do.
//
// To make a request with custom headers, use request.New and d.Do.
func Head(d Doer, url string) (*request.Response, error) {
	req, err := request.New("HEAD", url, nil)
	if err != nil {
		return nil, err
	}
	return d.Do(req)
}

// Post uses the specified Doer to issue a POST to the specified URL,
// using the same policies as d.Do.
//
// The body parameter may be nil for an empty body, or may be any of
// the types supported by Client.Post and request.BodyOf, namely:
// string; []byte; and io.Reader.
//
// To make a request with custom headers, use request.New and d.Do.
func Post(d Doer, url, contentType string, body interface{}) (*request.Response, error) {
	b, err := request.BodyOf(contentType, body)
	if err != nil {
		return nil, err
	}
	req, err := request.New("POST", url, b)
	if err != nil {
		return nil, err
	}
	return d.Do(req)
}

// PostForm uses the specified Doer to issue a POST to the specified
// URL, with data's keys and values URL-encoded as the request body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
// To set other headers, use request.New and d.Do.
func PostForm(d Doer, url string, data urlpkg.Values) (*request.Response, error) {
	return Post(d, url, "application/x-www-form-urlencoded", data.Encode())
}

// Inflate converts any non-nil Doer into an Executor. This may be
// helpful for interop across library boundaries, i.e. if code that
// only has access to a Doer needs to call a function that requires an
// Executor.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("httpc: nil doer")
	}

	if e, ok := d.(Executor); ok {
		return e
	}

	return inflated{d}
}

type inflated struct {
	doer Doer
}

func (i inflated) Do(req *request.Request) (*request.Response, error) {
	return i.doer.Do(req)
}

func (i inflated) Get(url string) (*request.Response, error) {
	return Get(i.doer, url)
}

func (i inflated) Head(url string) (*request.Response, error) {
	return Head(i.doer, url)
}

func (i inflated) Post(url, contentType string, body interface{}) (*request.Response, error) {
	return Post(i.doer, url, contentType, body)
}

func (i inflated) PostForm(url string, data urlpkg.Values) (*request.Response, error) {
	return PostForm(i.doer, url, data)
}

func (i inflated) CloseIdleConnections() {
	if ic, ok := i.doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

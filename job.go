// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpc

import (
	"errors"
	urlpkg "net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gogama/httpc/request"
)

// ErrNoContentType reports that a request carries a body which
// declares no content type. This is a caller programming error: it is
// detected before any network attempt is made, and the execution
// fails fast.
var ErrNoContentType = errors.New("httpc: request body declares no content type")

// ErrCanceled is returned by Client.Do when the request's execution
// was canceled before a final response was ready. On the asynchronous
// path cancellation delivers nothing at all; the synchronous path
// needs a value to return.
var ErrCanceled = errors.New("httpc: request canceled")

// A Job is one logical request's end-to-end execution, spanning
// possibly multiple physical attempts: transport-error recoveries,
// redirects, and authentication retries.
//
// A Job binds the execution loop to a Receiver. It runs on a single
// worker goroutine, drives at most one live attempt engine at a time,
// and terminates by delivering exactly one callback, unless it was
// canceled, in which case it delivers nothing.
//
// Obtain a Job from Dispatcher.Enqueue. Client.Do constructs and runs
// one internally.
type Job struct {
	client     *Client
	dispatcher *Dispatcher
	receiver   Receiver
	exec       *request.Execution
	// id and url are snapshots taken at construction. The execution's
	// Request is owned by the worker goroutine and changes across
	// follow-ups; the dispatcher logs and schedules off these
	// immutable copies instead.
	id       uuid.UUID
	url      *urlpkg.URL
	tag      interface{}
	engine   Engine
	canceled atomic.Bool
}

func newJob(c *Client, req *request.Request, r Receiver, d *Dispatcher) *Job {
	id := uuid.New()
	return &Job{
		client:     c,
		dispatcher: d,
		receiver:   r,
		id:         id,
		url:        req.URL(),
		tag:        req.Tag(),
		exec: &request.Execution{
			ID:      id,
			Request: req,
		},
	}
}

// Cancel sets the job's cancellation flag. Cancellation is
// cooperative: an in-progress socket read is not interrupted, but the
// execution stops at the next loop boundary, and a result arriving
// after cancellation is never delivered. Cancel is idempotent and
// safe to call from any goroutine.
func (j *Job) Cancel() {
	j.canceled.Store(true)
}

// Canceled reports whether the job has been canceled, whether via
// Cancel, Dispatcher.Cancel, or expiry of its request's context.
func (j *Job) Canceled() bool {
	return j.canceled.Load() || j.exec.Request.Context().Err() != nil
}

// ID returns the unique identifier of the job's execution.
func (j *Job) ID() uuid.UUID {
	return j.id
}

// Tag returns the opaque tag of the job's originating request, used
// by Dispatcher.Cancel to cancel jobs in bulk.
func (j *Job) Tag() interface{} {
	return j.tag
}

// Execution returns the job's execution state. Callers other than
// event handlers must treat it as read-only.
func (j *Job) Execution() *request.Execution {
	return j.exec
}

// run executes the job to completion: it drives the execution loop,
// guarantees the current engine's connection handle is closed, hands
// the terminal result to the receiver unless canceled, and notifies
// the dispatcher so queued work can start.
func (j *Job) run() {
	e := j.exec
	handlers := j.client.handlers()

	handlers.run(BeforeExecutionStart, e)
	e.Start = time.Now()

	resp, err := j.response()

	e.End = time.Now()
	handlers.run(AfterExecutionEnd, e)

	if conn := j.closeEngine(); conn != nil {
		_ = conn.Close()
	}
	if j.dispatcher != nil {
		defer j.dispatcher.finished(j)
	}

	if j.Canceled() {
		return
	}
	if err != nil {
		j.receiver.OnFailure(&Failure{Request: e.Request, Err: err})
		return
	}
	if resp != nil {
		j.receiver.OnResponse(resp)
	}
}

// response drives the execution loop described in the package
// documentation: repeated attempts through the engine, follow-up
// decisions after each response, and connection reuse across
// same-destination redirects. It returns (nil, nil) if cancellation
// was observed before completion.
func (j *Job) response() (*request.Response, error) {
	e := j.exec

	req, err := withTransportHeaders(e.Request)
	if err != nil {
		return nil, err
	}
	e.Request = req
	e.Original = req

	policy := j.client.followUpPolicy()
	handlers := j.client.handlers()

	if j.Canceled() {
		return nil, nil
	}
	engine, err := j.openEngine(nil)
	if err != nil {
		return nil, err
	}

	var redirectedBy *request.Response
	for {
		if j.Canceled() {
			return nil, nil
		}

		e.Response = nil
		e.Err = nil
		handlers.run(BeforeAttempt, e)

		resp, err := attempt(engine, e.Request)
		e.Response = resp
		e.Err = err
		if err != nil && e.Timeout() {
			e.AttemptTimeouts++
		}
		handlers.run(AfterAttempt, e)

		if err != nil {
			next := engine.Recover(err)
			if next == nil {
				return nil, err
			}
			engine = next
			j.engine = next
			e.Attempt++
			handlers.run(AfterRecover, e)
			continue
		}

		followUp, err := policy.Decide(e)
		if err != nil {
			return nil, err
		}

		if followUp == nil {
			final := resp.Derive().
				Body(request.NewResponseBody(resp.Headers(), engine.ResponseBody())).
				RedirectedBy(redirectedBy).
				Build()
			e.Response = final
			engine.ReleaseConnection()
			return final, nil
		}

		// A different destination cannot reuse the connection, so
		// hand it back to the pool before the next hop.
		same := AddressOf(followUp.URL()) == AddressOf(e.Request.URL())
		if !same {
			engine.ReleaseConnection()
		}
		conn := engine.Close()
		j.engine = nil

		redirectedBy = resp.Derive().RedirectedBy(redirectedBy).Build()
		e.Response = redirectedBy
		e.Request = followUp
		e.Attempt++
		handlers.run(AfterFollowUp, e)

		var reuse Connection
		if same {
			reuse = conn
		} else if conn != nil {
			_ = conn.Close()
		}
		engine, err = j.openEngine(reuse)
		if err != nil {
			return nil, err
		}
	}
}

func (j *Job) openEngine(reuse Connection) (Engine, error) {
	engine, err := j.client.transport().Open(j.exec, reuse)
	if err != nil {
		return nil, err
	}
	j.engine = engine
	j.exec.Proxy = engine.Route().Proxy
	return engine, nil
}

func (j *Job) closeEngine() Connection {
	if j.engine == nil {
		return nil
	}
	conn := j.engine.Close()
	j.engine = nil
	return conn
}

// attempt performs one physical exchange: send the request head,
// stream the body if present, read the response head.
func attempt(engine Engine, req *request.Request) (*request.Response, error) {
	if err := engine.SendRequest(); err != nil {
		return nil, err
	}
	if body := req.Body(); body != nil {
		sink, err := engine.RequestBody()
		if err != nil {
			return nil, err
		}
		if _, err = body.WriteTo(sink); err != nil {
			return nil, err
		}
		if err = sink.Flush(); err != nil {
			return nil, err
		}
	}
	return engine.ReadResponse()
}

// withTransportHeaders derives a request whose transport headers
// deterministically reflect its body: a known, non-negative content
// length sets Content-Length and forbids Transfer-Encoding, while an
// unknown length forces chunked transfer encoding and forbids
// Content-Length. A request without a body is returned unchanged.
func withTransportHeaders(req *request.Request) (*request.Request, error) {
	body := req.Body()
	if body == nil {
		return req, nil
	}
	contentType := body.ContentType()
	if contentType == "" {
		return nil, ErrNoContentType
	}
	b := req.Derive().Header("Content-Type", contentType)
	if n := body.ContentLength(); n >= 0 {
		b.Header("Content-Length", strconv.FormatInt(n, 10)).
			RemoveHeader("Transfer-Encoding")
	} else {
		b.Header("Transfer-Encoding", "chunked").
			RemoveHeader("Content-Length")
	}
	return b.Build(), nil
}

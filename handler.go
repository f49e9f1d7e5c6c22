// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpc

import (
	"github.com/gogama/httpc/request"
)

// A HandlerGroup holds one handler chain per execution loop event.
// Install a group into a Client via its Handlers field to observe the
// loop's progress: attempts, recoveries, and follow-ups, as they
// happen.
//
// The zero value is an empty group. A group must be fully populated
// before its Client executes a request and not modified afterward.
type HandlerGroup struct {
	handlers [][]Handler
}

// PushBack appends a handler to the chain for the given event.
// Handlers on one chain run in insertion order. PushBack panics if h
// is nil or evt is not a valid Event.
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	if h == nil {
		panic("httpc: nil handler")
	}

	if g.handlers == nil {
		g.handlers = make([][]Handler, numEvents)
	}

	g.handlers[evt] = append(g.handlers[evt], h)
}

func (g *HandlerGroup) run(evt Event, e *request.Execution) {
	i := int(evt)
	if i < len(g.handlers) {
		run(g.handlers[i], evt, e)
	}
}

func run(chain []Handler, evt Event, e *request.Execution) {
	for _, h := range chain {
		h.Handle(evt, e)
	}
}

// A Handler observes one event within a logical request execution.
//
// Handle is called synchronously on the goroutine driving the
// execution loop, so the execution state it receives is stable for
// the duration of the call; a slow handler delays the loop. The
// fields a handler may rely on at each event are documented on the
// Event constants.
type Handler interface {
	Handle(Event, *request.Execution)
}

// The HandlerFunc type is an adapter to allow the use of ordinary
// functions as event handlers. If f is a function with the
// appropriate signature, HandlerFunc(f) is a Handler that calls f.
type HandlerFunc func(Event, *request.Execution)

// Handle calls f(evt, e).
func (f HandlerFunc) Handle(evt Event, e *request.Execution) {
	f(evt, e)
}

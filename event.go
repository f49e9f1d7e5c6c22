// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpc

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Client to extend it with
// custom functionality.
type Event int

const (
	// BeforeExecutionStart identifies the event that occurs before a
	// logical request execution starts.
	//
	// When the execution fires BeforeExecutionStart, the execution is
	// non-nil but the only fields that have been set are the ID and
	// the request as submitted; transport headers implied by the
	// request body have not been derived yet.
	BeforeExecutionStart Event = iota
	// BeforeAttempt identifies the event that occurs before each
	// physical request attempt during the execution.
	//
	// When the execution fires BeforeAttempt, the execution's Request
	// field holds the request that WILL BE transmitted after all
	// BeforeAttempt handlers have finished, its Attempt field holds
	// the zero-based attempt number, and its Response and Err fields
	// are nil.
	BeforeAttempt
	// AfterAttempt identifies the event that occurs after each
	// physical request attempt, regardless of whether it produced a
	// response head or ended in a transport error.
	//
	// When the execution fires AfterAttempt, exactly one of the
	// execution's Response and Err fields is non-nil. AfterAttempt
	// fires before the attempt engine is consulted for recovery and
	// before the follow-up policy is consulted, so the eventual fate
	// of the attempt is not yet decided.
	AfterAttempt
	// AfterRecover identifies the event that occurs after a transport
	// error was accepted for recovery and a fresh attempt engine was
	// installed.
	//
	// When the execution fires AfterRecover, the execution's Err
	// field holds the recovered error and its Attempt field has been
	// incremented for the upcoming replay attempt.
	AfterRecover
	// AfterFollowUp identifies the event that occurs after the
	// follow-up policy yielded a new request to attempt next, whether
	// a redirect or an authentication retry.
	//
	// When the execution fires AfterFollowUp, the execution's Request
	// field holds the follow-up request that will be attempted next,
	// its Response field holds the response which provoked the
	// follow-up (already linked into the redirect chain), and its
	// Redirects field counts the redirects followed so far.
	AfterFollowUp
	// AfterExecutionEnd identifies the event that occurs after the
	// execution ends, whether it ended with a final response, a
	// failure, or cancellation.
	//
	// When the execution fires AfterExecutionEnd, the execution is in
	// the same state it was in after the final attempt EXCEPT that
	// the end time is set to the time the execution ended.
	AfterExecutionEnd
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events typed as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeExecutionStart",
	"BeforeAttempt",
	"AfterAttempt",
	"AfterRecover",
	"AfterFollowUp",
	"AfterExecutionEnd",
}

// Events returns a slice containing all events which can occur during
// a logical request execution, in the order in which they would
// occur.
func Events() []Event {
	return []Event{
		BeforeExecutionStart,
		BeforeAttempt,
		AfterAttempt,
		AfterRecover,
		AfterFollowUp,
		AfterExecutionEnd,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}

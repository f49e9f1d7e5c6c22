// Copyright 2023 The httpc Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpc

import (
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/gogama/httpc/request"
)

const (
	// DefaultMaxRequests is the number of jobs a Dispatcher runs
	// concurrently when MaxRequests is zero.
	DefaultMaxRequests = 64
	// DefaultMaxRequestsPerHost is the number of jobs a Dispatcher
	// runs concurrently against one host when MaxRequestsPerHost is
	// zero.
	DefaultMaxRequestsPerHost = 5
)

// A Dispatcher executes jobs asynchronously under an admission limit.
// Its zero value is a valid configuration.
//
// Each enqueued job runs on its own worker goroutine; the execution
// loop within a job is synchronous and never fans out. The dispatcher
// bounds how many jobs run at once, globally and per host. Jobs over
// the limit queue in FIFO order and are promoted as running jobs
// finish. The queue is unbounded: admission back-pressure, if needed,
// belongs to the caller.
//
// A Dispatcher is safe for concurrent use by multiple goroutines. Its
// configuration fields must not be modified after the first call to
// Enqueue.
type Dispatcher struct {
	// Client executes the jobs. If Client is nil, a default zero
	// value client is used.
	Client *Client
	// MaxRequests bounds the number of concurrently running jobs.
	// Zero means DefaultMaxRequests.
	MaxRequests int
	// MaxRequestsPerHost bounds the number of concurrently running
	// jobs per target hostname. Zero means DefaultMaxRequestsPerHost.
	MaxRequestsPerHost int
	// Limiter optionally throttles job starts. A job drawn from the
	// queue waits for the limiter before its first attempt; waiting
	// counts against the job's running slot so the admission bound is
	// never exceeded.
	Limiter *rate.Limiter
	// Logger optionally records job lifecycle transitions (enqueued,
	// started, finished, canceled) at debug level. A nil Logger
	// disables logging.
	Logger *slog.Logger

	mu      sync.Mutex
	ready   []*Job
	running map[*Job]string
	perHost map[string]int
}

// Enqueue submits a logical request for asynchronous execution and
// returns its Job. The job starts immediately if the dispatcher is
// under its admission limits, and queues otherwise. The terminal
// result is delivered to r on the job's worker goroutine: exactly one
// of OnResponse or OnFailure, or neither if the job is canceled.
func (d *Dispatcher) Enqueue(req *request.Request, r Receiver) *Job {
	j := newJob(d.client(), req, r, d)
	d.mu.Lock()
	if d.running == nil {
		d.running = make(map[*Job]string)
		d.perHost = make(map[string]int)
	}
	d.ready = append(d.ready, j)
	d.promote()
	d.mu.Unlock()
	d.log("job enqueued", j)
	return j
}

// Cancel sets the cancellation flag on every queued and running job
// whose request carries the given tag, and returns the number of jobs
// flagged. Queued jobs that were canceled deliver nothing when their
// turn comes; running jobs stop at the next loop boundary.
func (d *Dispatcher) Cancel(tag interface{}) int {
	d.mu.Lock()
	var jobs []*Job
	for _, j := range d.ready {
		if j.Tag() == tag {
			jobs = append(jobs, j)
		}
	}
	for j := range d.running {
		if j.Tag() == tag {
			jobs = append(jobs, j)
		}
	}
	d.mu.Unlock()
	for _, j := range jobs {
		j.Cancel()
		d.log("job canceled", j)
	}
	return len(jobs)
}

// finished releases the capacity held by j and promotes queued work.
// It is invoked by the job's task wrapper regardless of outcome.
func (d *Dispatcher) finished(j *Job) {
	d.mu.Lock()
	if host, ok := d.running[j]; ok {
		delete(d.running, j)
		d.perHost[host]--
		if d.perHost[host] == 0 {
			delete(d.perHost, host)
		}
	}
	d.promote()
	d.mu.Unlock()
	d.log("job finished", j)
}

// promote starts queued jobs while capacity allows. A queued job
// blocked only by its host limit does not block jobs to other hosts
// queued behind it. Callers must hold d.mu.
func (d *Dispatcher) promote() {
	maxRequests := d.MaxRequests
	if maxRequests == 0 {
		maxRequests = DefaultMaxRequests
	}
	maxPerHost := d.MaxRequestsPerHost
	if maxPerHost == 0 {
		maxPerHost = DefaultMaxRequestsPerHost
	}

	i := 0
	for _, j := range d.ready {
		// The host key is fixed at promotion: the current request's
		// URL can change across redirects while the job runs.
		host := hostKey(j)
		if len(d.running) >= maxRequests || d.perHost[host] >= maxPerHost {
			d.ready[i] = j
			i++
			continue
		}
		d.running[j] = host
		d.perHost[host]++
		go d.start(j)
	}
	for k := i; k < len(d.ready); k++ {
		d.ready[k] = nil
	}
	d.ready = d.ready[:i]
}

func (d *Dispatcher) start(j *Job) {
	if l := d.Limiter; l != nil {
		if err := l.Wait(j.exec.Request.Context()); err != nil {
			j.Cancel()
		}
	}
	d.log("job started", j)
	j.run()
}

func (d *Dispatcher) client() *Client {
	if d.Client == nil {
		return defaultClient
	}

	return d.Client
}

// log records a lifecycle transition. It reads only the job's
// immutable snapshot fields: the execution itself belongs to the
// worker goroutine, which may be rewriting it concurrently.
func (d *Dispatcher) log(msg string, j *Job) {
	if d.Logger == nil {
		return
	}
	d.Logger.Debug(msg,
		slog.String("execution", j.id.String()),
		slog.String("url", j.url.Redacted()))
}

func hostKey(j *Job) string {
	return j.url.Hostname()
}

var defaultClient = &Client{}

// Package dispatch implements the core dispatch fabric: the work envelope,
// the work queue, and the handler/worker-pool lifecycle — a fixed pool of
// goroutines draining a shared queue, adapted to dispatch accepted sockets
// to a protocol engine.
package dispatch

import (
	"sync"
)

// Queue is a FIFO of *SocketWork with two lifecycle states: OPEN accepts
// enqueue and dequeue; once Finish is called it is FINISHED forever —
// enqueue becomes a no-op and Dequeue drains whatever remains, then reports
// done. Unlike a buffered channel, Queue is unbounded and distinguishes
// "closed and drained" from "closed with work still queued", which a
// channel close conflates (a closed channel drains then yields the zero
// value forever, indistinguishable from "always was empty").
type Queue struct {
	mu       sync.Mutex
	notEmpty sync.Cond
	items    []*SocketWork
	finished bool
}

// NewQueue constructs an empty, OPEN queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.notEmpty.L = &q.mu
	return q
}

// Enqueue appends work to the queue. A no-op once Finish has been called.
func (q *Queue) Enqueue(w *SocketWork) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.finished {
		return
	}
	q.items = append(q.items, w)
	q.notEmpty.Signal()
}

// Dequeue blocks until an item is available or the queue is finished and
// drained. The second return value is false exactly once draining is
// complete — callers treat that as the worker-loop exit signal.
func (q *Queue) Dequeue() (*SocketWork, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if q.finished {
			return nil, false
		}
		q.notEmpty.Wait()
	}
	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return item, true
}

// Finish transitions the queue to FINISHED. Idempotent. Finish does not
// force a drain: workers still consume whatever is already queued, but no
// new caller is required to wait for that drain — shutdown favors latency
// over delivery. A graceful drain is achieved by callers waiting on the
// workers themselves, not the queue.
func (q *Queue) Finish() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.finished {
		return
	}
	q.finished = true
	q.notEmpty.Broadcast()
}

// Len reports the number of items currently queued (diagnostics only).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

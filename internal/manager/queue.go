// Package manager coordinates code execution: it admits jobs through a
// bounded FIFO queue, resolves language configuration, drives the sandbox,
// and classifies diagnostics.
package manager

import (
	"container/list"
	"context"
	"sync"
	"time"

	appErr "codemanager/pkg/errors"
)

// Queue bounds how many jobs run at once. Jobs past the cap wait and are
// admitted strictly in arrival order.
type Queue struct {
	mu       sync.Mutex
	capacity int
	running  int
	waiters  *list.List
}

// waiter is one blocked Acquire call. granted marks that a slot was
// transferred to it under the queue lock, so a racing cancellation knows
// it must hand the slot back.
type waiter struct {
	ready   chan struct{}
	granted bool
}

// Lease is one granted slot. It records when the slot was obtained and
// must be released when the job finishes.
type Lease struct {
	q          *Queue
	AcquiredAt time.Time
	once       sync.Once
}

// Release hands the slot back; it is safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.q.mu.Lock()
		l.q.releaseLocked()
		l.q.mu.Unlock()
	})
}

// Snapshot is a lock-consistent view of the queue.
type Snapshot struct {
	Running       int `json:"running"`
	Waiting       int `json:"waiting"`
	MaxConcurrent int `json:"max_concurrent"`
}

// NewQueue creates a queue admitting at most capacity concurrent jobs.
func NewQueue(capacity int) (*Queue, error) {
	if capacity < 1 {
		return nil, appErr.Newf(appErr.InvalidCapacity, "max_concurrent must be >= 1, got %d", capacity)
	}
	return &Queue{capacity: capacity, waiters: list.New()}, nil
}

// Acquire blocks until a slot is free or ctx is done.
func (q *Queue) Acquire(ctx context.Context) (*Lease, error) {
	q.mu.Lock()
	if q.running < q.capacity && q.waiters.Len() == 0 {
		q.running++
		q.mu.Unlock()
		return q.newLease(), nil
	}

	w := &waiter{ready: make(chan struct{})}
	elem := q.waiters.PushBack(w)
	q.mu.Unlock()

	select {
	case <-w.ready:
		return q.newLease(), nil
	case <-ctx.Done():
		q.mu.Lock()
		if w.granted {
			// The slot was handed over concurrently with cancellation.
			q.releaseLocked()
		} else {
			q.waiters.Remove(elem)
		}
		q.mu.Unlock()
		return nil, appErr.Wrap(ctx.Err(), appErr.Cancelled)
	}
}

// SetCapacity changes the concurrency cap. Raising it wakes queued
// waiters; lowering it never interrupts running jobs, so the queue may
// transiently run above the new cap until they finish.
func (q *Queue) SetCapacity(n int) error {
	if n < 1 {
		return appErr.Newf(appErr.InvalidCapacity, "max_concurrent must be >= 1, got %d", n)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.capacity = n
	q.admitLocked()
	return nil
}

// Snapshot reports current occupancy.
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Snapshot{
		Running:       q.running,
		Waiting:       q.waiters.Len(),
		MaxConcurrent: q.capacity,
	}
}

func (q *Queue) newLease() *Lease {
	return &Lease{q: q, AcquiredAt: time.Now()}
}

func (q *Queue) releaseLocked() {
	q.running--
	q.admitLocked()
}

// admitLocked transfers free slots to the oldest waiters. The slot is
// accounted to the waiter before it wakes, so capacity is never
// double-granted.
func (q *Queue) admitLocked() {
	for q.running < q.capacity && q.waiters.Len() > 0 {
		elem := q.waiters.Front()
		q.waiters.Remove(elem)
		w := elem.Value.(*waiter)
		w.granted = true
		q.running++
		close(w.ready)
	}
}

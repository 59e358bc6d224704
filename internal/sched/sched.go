// Package sched implements the two single-threaded cooperative task
// queues of the concurrency envelope: one core hosts the data-plane
// writer, the other hosts API readers and system tasks. Each is a
// container/heap-backed priority queue of (nextRunAt, priority, fn)
// entries; a task returns how long until it should run again, and 0
// means "do not reschedule".
package sched

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// TaskFunc is a unit of cooperative work. It returns the delay until its
// next run; a delay of 0 means the task does not reschedule itself.
type TaskFunc func() time.Duration

type taskEntry struct {
	nextRunAt time.Time
	priority  int
	name      string
	fn        TaskFunc
	index     int
}

// taskHeap orders by run time first, then by priority (higher runs
// first among entries due at the same instant).
type taskHeap []*taskEntry

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].nextRunAt.Equal(h[j].nextRunAt) {
		return h[i].priority > h[j].priority
	}
	return h[i].nextRunAt.Before(h[j].nextRunAt)
}
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *taskHeap) Push(x any) {
	e := x.(*taskEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Core is one physical core's cooperative scheduler: it drains its
// priority queue on a single goroutine, never running two tasks
// concurrently and never blocking on anything but the wait for the next
// task's run time.
type Core struct {
	name string

	mu      sync.Mutex
	heap    taskHeap
	wake    chan struct{}
}

// NewCore creates a Core identified by name (used only for logging by
// callers; sched itself stays silent).
func NewCore(name string) *Core {
	return &Core{
		name: name,
		wake: make(chan struct{}, 1),
	}
}

// Name returns the core's identifier.
func (c *Core) Name() string { return c.name }

// Schedule adds a task to run first at firstRunAt, with the given
// priority used to break ties among tasks due at the same instant.
func (c *Core) Schedule(name string, firstRunAt time.Time, priority int, fn TaskFunc) {
	c.mu.Lock()
	heap.Push(&c.heap, &taskEntry{nextRunAt: firstRunAt, priority: priority, name: name, fn: fn})
	c.mu.Unlock()
	c.notify()
}

// ScheduleNow adds a task to run as soon as the core is free.
func (c *Core) ScheduleNow(name string, priority int, fn TaskFunc) {
	c.Schedule(name, time.Now(), priority, fn)
}

func (c *Core) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Len reports how many tasks are currently queued.
func (c *Core) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heap.Len()
}

// Run drains the queue until ctx is cancelled. Each iteration waits for
// the next due task (or for Schedule to wake it if a sooner task
// arrives), runs it to completion — there is no task cancellation, only
// a bounded wait on the lock acquisitions inside the task itself — and
// reschedules it if it returned a positive delay.
func (c *Core) Run(ctx context.Context) {
	for {
		c.mu.Lock()
		if c.heap.Len() == 0 {
			c.mu.Unlock()
			select {
			case <-ctx.Done():
				return
			case <-c.wake:
				continue
			}
		}
		next := c.heap[0]
		wait := time.Until(next.nextRunAt)
		c.mu.Unlock()

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-c.wake:
				timer.Stop()
				continue
			case <-timer.C:
			}
		}

		c.mu.Lock()
		if c.heap.Len() == 0 {
			c.mu.Unlock()
			continue
		}
		entry := heap.Pop(&c.heap).(*taskEntry)
		c.mu.Unlock()

		delay := entry.fn()
		if delay > 0 {
			c.Schedule(entry.name, time.Now().Add(delay), entry.priority, entry.fn)
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

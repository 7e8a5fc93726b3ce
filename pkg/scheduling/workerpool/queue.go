package workerpool

import (
	"sync"
	"time"
)

// task is a type-erased unit of work bound to the writer side of a Future.
type task struct {
	id        uint64
	submitted time.Time

	// execute runs the computation and keeps its value for complete.
	execute  func() error
	complete func()
	fail     func(error)
}

// compactThreshold is the number of consumed slots at the front of the
// queue before pop moves the pending tasks back to the start of the slice.
const compactThreshold = 64

// taskQueue is an unbounded FIFO shared by all workers. Closing it is the
// stop signal: pop reports false once the queue is closed and empty.
type taskQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*task
	head   int
	closed bool
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends t and wakes one waiting worker. It returns false once the
// queue has been closed.
func (q *taskQueue) push(t *task) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, t)
	q.mu.Unlock()

	q.cond.Signal()
	return true
}

// pop blocks until a task is available or the queue is closed and empty.
func (q *taskQueue) pop() (*task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.head == len(q.items) && !q.closed {
		q.cond.Wait()
	}
	if q.head == len(q.items) {
		return nil, false
	}

	t := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactThreshold && q.head > len(q.items)/2:
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return t, true
}

// close marks the queue closed and wakes every waiter. Unless drain is set,
// pending tasks are removed and returned to the caller.
func (q *taskQueue) close(drain bool) []*task {
	q.mu.Lock()
	q.closed = true

	var pending []*task
	if !drain && q.head < len(q.items) {
		pending = make([]*task, len(q.items)-q.head)
		copy(pending, q.items[q.head:])
		q.items = nil
		q.head = 0
	}
	q.mu.Unlock()

	q.cond.Broadcast()
	return pending
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

func (q *taskQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

package workerpool

import (
	"sync"
	"testing"
	"time"

	"github.com/vnykmshr/taskflow/internal/testutil"
)

func TestTaskQueueFIFO(t *testing.T) {
	q := newTaskQueue()
	for i := uint64(1); i <= 5; i++ {
		testutil.AssertEqual(t, q.push(&task{id: i}), true)
	}
	testutil.AssertEqual(t, q.len(), 5)

	for i := uint64(1); i <= 5; i++ {
		got, ok := q.pop()
		testutil.AssertEqual(t, ok, true)
		testutil.AssertEqual(t, got.id, i)
	}
	testutil.AssertEqual(t, q.len(), 0)
}

func TestTaskQueuePopBlocksUntilPush(t *testing.T) {
	q := newTaskQueue()
	got := make(chan uint64, 1)

	go func() {
		tk, ok := q.pop()
		if ok {
			got <- tk.id
		}
	}()

	select {
	case <-got:
		t.Fatal("pop returned before anything was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	q.push(&task{id: 42})
	select {
	case id := <-got:
		testutil.AssertEqual(t, id, uint64(42))
	case <-time.After(time.Second):
		t.Fatal("pop did not wake up after push")
	}
}

func TestTaskQueueCloseWakesWaiters(t *testing.T) {
	q := newTaskQueue()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := q.pop()
			if ok {
				t.Error("pop on closed empty queue should report false")
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.close(true)
	wg.Wait()

	testutil.AssertEqual(t, q.push(&task{id: 1}), false)
	testutil.AssertEqual(t, q.isClosed(), true)
}

func TestTaskQueueCloseDrainKeepsPending(t *testing.T) {
	q := newTaskQueue()
	q.push(&task{id: 1})
	q.push(&task{id: 2})

	pending := q.close(true)
	testutil.AssertEqual(t, len(pending), 0)

	first, ok := q.pop()
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, first.id, uint64(1))
	second, ok := q.pop()
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, second.id, uint64(2))

	_, ok = q.pop()
	testutil.AssertEqual(t, ok, false)
}

func TestTaskQueueCloseAbandonReturnsPending(t *testing.T) {
	q := newTaskQueue()
	q.push(&task{id: 1})
	q.push(&task{id: 2})
	q.push(&task{id: 3})
	q.pop()

	pending := q.close(false)
	testutil.AssertEqual(t, len(pending), 2)
	testutil.AssertEqual(t, pending[0].id, uint64(2))
	testutil.AssertEqual(t, pending[1].id, uint64(3))

	_, ok := q.pop()
	testutil.AssertEqual(t, ok, false)
	testutil.AssertEqual(t, q.len(), 0)
}

func TestTaskQueueConcurrentPushPop(t *testing.T) {
	q := newTaskQueue()
	const producers, perProducer = 4, 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.push(&task{id: uint64(p*perProducer + i)})
			}
		}(p)
	}

	seen := make(map[uint64]bool, producers*perProducer)
	var mu sync.Mutex
	var consumers sync.WaitGroup
	for c := 0; c < 3; c++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				tk, ok := q.pop()
				if !ok {
					return
				}
				mu.Lock()
				if seen[tk.id] {
					t.Errorf("task %d popped twice", tk.id)
				}
				seen[tk.id] = true
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	q.close(true)
	consumers.Wait()

	testutil.AssertEqual(t, len(seen), producers*perProducer)
}

func TestTaskQueueCompactsUnderSustainedLoad(t *testing.T) {
	q := newTaskQueue()
	next := uint64(1)
	want := uint64(1)

	// Keep a backlog so the queue never fully empties.
	for ; next <= 3; next++ {
		q.push(&task{id: next})
	}
	for i := 0; i < 10000; i++ {
		q.push(&task{id: next})
		next++

		got, ok := q.pop()
		testutil.AssertEqual(t, ok, true)
		testutil.AssertEqual(t, got.id, want)
		want++
	}

	testutil.AssertEqual(t, q.len(), 3)
	if c := cap(q.items); c > 4*compactThreshold {
		t.Errorf("backing array grew to %d slots for a backlog of 3", c)
	}
	for ; want < next; want++ {
		got, ok := q.pop()
		testutil.AssertEqual(t, ok, true)
		testutil.AssertEqual(t, got.id, want)
	}
}

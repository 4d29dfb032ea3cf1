package vm

import (
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Mutex: Ruby Mutex over a one-slot channel
// ---------------------------------------------------------------------------

// Mutex is a non-reentrant lock owned by a thread. Waiting for it
// releases the interpreter lock.
type Mutex struct {
	Basic
	sem    chan struct{}
	owner  atomic.Pointer[Thread]
	locked atomic.Bool
}

// NewMutex creates an unlocked mutex.
func NewMutex() *Mutex {
	return &Mutex{sem: make(chan struct{}, 1)}
}

func (m *Mutex) tryLock(th *Thread) bool {
	select {
	case m.sem <- struct{}{}:
		m.owner.Store(th)
		m.locked.Store(true)
		return true
	default:
		return false
	}
}

func (tc *ThreadContext) lockMutex(m *Mutex) {
	th := tc.thread
	if m.owner.Load() == th {
		tc.Raise(tc.rt.ThreadError, "deadlock; recursive locking")
	}
	for !m.tryLock(th) {
		acquired := false
		tc.blocking(func() {
			select {
			case m.sem <- struct{}{}:
				acquired = true
			case <-th.wake:
			}
		})
		if acquired {
			m.owner.Store(th)
			m.locked.Store(true)
			return
		}
	}
}

func (tc *ThreadContext) unlockMutex(m *Mutex) {
	rt := tc.rt
	switch m.owner.Load() {
	case nil:
		tc.Raise(rt.ThreadError, "Attempt to unlock a mutex which is not locked")
	case tc.thread:
	default:
		tc.Raise(rt.ThreadError, "Attempt to unlock a mutex which is locked by another thread")
	}
	m.owner.Store(nil)
	m.locked.Store(false)
	<-m.sem
}

// ---------------------------------------------------------------------------
// Mutex primitives
// ---------------------------------------------------------------------------

func (rt *Runtime) registerMutexPrimitives() {
	m := rt.MutexClass
	m.alloc = func(c *Class) Value {
		mu := NewMutex()
		mu.class = c
		return mu
	}

	// lock - acquire, waiting if needed
	m.AddMethod("lock", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.lockMutex(self.(*Mutex))
		return self
	})

	// unlock - release a mutex the current thread holds
	m.AddMethod("unlock", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.unlockMutex(self.(*Mutex))
		return self
	})

	// try_lock - acquire without waiting
	m.AddMethod("try_lock", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		mu := self.(*Mutex)
		if mu.owner.Load() == tc.thread {
			return false
		}
		return mu.tryLock(tc.thread)
	})

	// locked? - whether any thread holds the mutex
	m.AddMethod("locked?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self.(*Mutex).locked.Load()
	})

	// synchronize - run the block holding the mutex
	m.AddMethod("synchronize", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		mu := self.(*Mutex)
		tc.lockMutex(mu)
		defer func() {
			if mu.owner.Load() == tc.thread {
				tc.unlockMutex(mu)
			}
		}()
		return tc.YieldValues(blk)
	})
}

// ---------------------------------------------------------------------------
// Queue: Unbounded FIFO shared between threads
// ---------------------------------------------------------------------------

// Queue is an unbounded FIFO. Pop waits, without the interpreter lock,
// until an item arrives.
type Queue struct {
	Basic
	mu      sync.Mutex
	items   []Value
	ready   chan struct{} // closed and replaced on every push
	waiting atomic.Int32
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{})}
}

// Push appends v and wakes waiting poppers.
func (q *Queue) Push(v Value) {
	q.mu.Lock()
	q.items = append(q.items, v)
	close(q.ready)
	q.ready = make(chan struct{})
	q.mu.Unlock()
}

// tryPop removes the head, or returns the channel to wait on.
func (q *Queue) tryPop() (Value, bool, <-chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) > 0 {
		v := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		return v, true, nil
	}
	return nil, false, q.ready
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (tc *ThreadContext) popQueue(q *Queue, nonBlock bool) Value {
	th := tc.thread
	for {
		v, ok, ready := q.tryPop()
		if ok {
			return v
		}
		if nonBlock {
			tc.Raise(tc.rt.ThreadError, "queue empty")
		}
		if tc.rt.threads.count() <= 1 {
			tc.Raise(tc.rt.ThreadError, "deadlock; thread waiting on an empty queue with no other threads")
		}
		q.waiting.Add(1)
		tc.blocking(func() {
			defer q.waiting.Add(-1)
			select {
			case <-ready:
			case <-th.wake:
			}
		})
	}
}

func (rt *Runtime) registerQueuePrimitives() {
	q := rt.QueueClass
	q.alloc = func(c *Class) Value {
		queue := NewQueue()
		queue.class = c
		return queue
	}

	push := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		self.(*Queue).Push(args[0])
		return self
	}
	// push - append an item
	q.AddMethod("push", 1, push)
	q.AddMethod("<<", 1, push)
	q.AddMethod("enq", 1, push)

	pop := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		nonBlock := len(args) == 1 && Truthy(args[0])
		return tc.popQueue(self.(*Queue), nonBlock)
	}
	// pop - remove the head, waiting while empty
	q.AddMethod("pop", -1, pop)
	q.AddMethod("shift", -1, pop)
	q.AddMethod("deq", -1, pop)

	length := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(self.(*Queue).Len())
	}
	// size - number of queued items
	q.AddMethod("size", 0, length)
	q.AddMethod("length", 0, length)

	// empty? - whether nothing is queued
	q.AddMethod("empty?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self.(*Queue).Len() == 0
	})

	// clear - drop all items
	q.AddMethod("clear", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		queue := self.(*Queue)
		queue.mu.Lock()
		queue.items = nil
		queue.mu.Unlock()
		return self
	})

	// num_waiting - threads blocked in pop
	q.AddMethod("num_waiting", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return int64(self.(*Queue).waiting.Load())
	})
}

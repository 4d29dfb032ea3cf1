package vm

import (
	"math"
	goruntime "runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Thread: A Ruby thread running on a goroutine
// ---------------------------------------------------------------------------

// ThreadStatus is the scheduling state of a thread.
type ThreadStatus int32

const (
	ThreadRunning ThreadStatus = iota
	ThreadSleeping
	ThreadAborting
	ThreadDead
)

// pollInterval is the number of polls between voluntary yields of the
// interpreter lock.
const pollInterval = 64

// threadKill unwinds a thread that was killed. It is not a Ruby exception,
// so rescue clauses do not see it, but ensure clauses run.
type threadKill struct{}

// Thread runs a block on its own goroutine with its own ThreadContext.
// Only the goroutine holding the runtime's interpreter lock runs Ruby code.
type Thread struct {
	Basic
	ID uuid.UUID

	rt *Runtime
	tc *ThreadContext

	status atomic.Int32 // ThreadStatus
	done   chan struct{}
	wake   chan struct{}

	killed  atomic.Bool
	pending atomic.Pointer[Exception] // raised by Thread#raise

	mu        sync.Mutex // guards the fields below and group transfers
	group     *ThreadGroup
	value     Value
	exception *Exception
	locals    map[Symbol]Value
	abort     bool
	priority  int64
}

func (rt *Runtime) newThread() *Thread {
	th := &Thread{
		ID:   uuid.New(),
		rt:   rt,
		done: make(chan struct{}),
		wake: make(chan struct{}, 1),
	}
	th.tc = newThreadContext(rt, th)
	th.status.Store(int32(ThreadRunning))
	return th
}

func (rt *Runtime) bootstrapThreads() {
	rt.defaultGroup = &ThreadGroup{}
	rt.ThreadGroupClass.SetConstant("Default", rt.defaultGroup)
	rt.mainThread = rt.newThread()
	rt.threads.add(rt.mainThread)
	rt.defaultGroup.add(rt.mainThread)
	rt.mainThread.tc.frame = rt.topFrame()
}

// Status returns the scheduling state.
func (th *Thread) Status() ThreadStatus { return ThreadStatus(th.status.Load()) }

// Alive reports whether the thread has not finished.
func (th *Thread) Alive() bool { return th.Status() != ThreadDead }

// Group returns the thread's group, nil once it has finished.
func (th *Thread) Group() *ThreadGroup {
	th.mu.Lock()
	defer th.mu.Unlock()
	return th.group
}

// Done is closed when the thread finishes.
func (th *Thread) Done() <-chan struct{} { return th.done }

// wakeUp interrupts a sleep or blocking wait.
func (th *Thread) wakeUp() {
	select {
	case th.wake <- struct{}{}:
	default:
	}
}

// start runs blk with args on a new goroutine.
func (th *Thread) start(blk *Block, args []Value) {
	rt := th.rt
	rt.threads.add(th)
	go func() {
		rt.gil.Lock()
		defer rt.gil.Unlock()
		tc := th.tc
		if blk.Binding != nil {
			tc.frame = blk.Binding.Frame
		} else {
			tc.frame = rt.topFrame()
		}
		log.Debugf("thread %s started", th.ID)
		v, err := rt.protect(tc, func() Value {
			tc.checkInterrupts()
			return tc.CallBlock(blk, args, NullBlock)
		})
		th.finish(v, err)
	}()
}

// finish records the outcome and detaches the thread from its group.
func (th *Thread) finish(v Value, err error) {
	rt := th.rt
	var ex *Exception
	if re, ok := err.(*RaiseException); ok {
		ex = re.Exception
	}
	th.mu.Lock()
	th.value = v
	th.exception = ex
	abort := th.abort
	th.mu.Unlock()

	if g := th.Group(); g != nil {
		g.remove(th)
	}
	rt.threads.remove(th)
	th.status.Store(int32(ThreadDead))
	close(th.done)

	switch {
	case ex != nil:
		log.Debugf("thread %s terminated with %s", th.ID, ex.MessageString())
		if abort || rt.abortOnException.Load() {
			rt.mainThread.interrupt(ex)
		}
	case err != nil:
		log.Errorf("thread %s: %s", th.ID, err)
	default:
		log.Debugf("thread %s finished", th.ID)
	}
}

// interrupt makes the thread raise ex at its next poll.
func (th *Thread) interrupt(ex *Exception) {
	th.pending.Store(ex)
	th.wakeUp()
}

// kill makes the thread unwind at its next poll.
func (th *Thread) kill() {
	th.killed.Store(true)
	th.wakeUp()
}

// killOtherThreads ends every thread but the main one.
func (rt *Runtime) killOtherThreads() {
	for _, th := range rt.threads.alive() {
		if th != rt.mainThread {
			th.kill()
		}
	}
}

// checkInterrupts delivers a pending kill or Thread#raise. The caller
// holds the interpreter lock.
func (tc *ThreadContext) checkInterrupts() {
	th := tc.thread
	if th == nil {
		return
	}
	if th.killed.Load() {
		th.status.Store(int32(ThreadAborting))
		panic(&threadKill{})
	}
	if ex := th.pending.Swap(nil); ex != nil {
		tc.fillBacktrace(ex)
		panic(&RaiseException{Exception: ex})
	}
}

// poll is the preemption point compiled code reaches at loop and call
// boundaries.
func (tc *ThreadContext) poll() {
	tc.polls++
	if tc.polls%pollInterval == 0 && tc.rt.threads.count() > 1 {
		tc.pass()
	}
	tc.checkInterrupts()
}

// pass lets other threads take the interpreter lock.
func (tc *ThreadContext) pass() {
	tc.rt.gil.Unlock()
	goruntime.Gosched()
	tc.rt.gil.Lock()
}

// blocking runs fn without the interpreter lock. fn must not touch Ruby
// state.
func (tc *ThreadContext) blocking(fn func()) {
	th := tc.thread
	th.status.Store(int32(ThreadSleeping))
	tc.rt.gil.Unlock()
	func() {
		defer tc.rt.gil.Lock()
		fn()
	}()
	th.status.Store(int32(ThreadRunning))
	tc.checkInterrupts()
}

// sleep blocks for d, or until woken when d is negative, and returns the
// whole seconds slept.
func (tc *ThreadContext) sleep(d time.Duration) int64 {
	th := tc.thread
	start := time.Now()
	tc.blocking(func() {
		var timeout <-chan time.Time
		if d >= 0 {
			t := time.NewTimer(d)
			defer t.Stop()
			timeout = t.C
		}
		select {
		case <-timeout:
		case <-th.wake:
		}
	})
	return int64(math.Round(time.Since(start).Seconds()))
}

// join waits for th to finish, up to limit when limit is non-negative.
// It reports whether th finished and re-raises its exception.
func (tc *ThreadContext) join(th *Thread, limit time.Duration) bool {
	if th == tc.thread {
		tc.Raise(tc.rt.ThreadError, "thread tried to join itself")
	}
	var deadline time.Time
	if limit >= 0 {
		deadline = time.Now().Add(limit)
	}
	for th.Alive() {
		finished := false
		tc.blocking(func() {
			var timeout <-chan time.Time
			if limit >= 0 {
				t := time.NewTimer(time.Until(deadline))
				defer t.Stop()
				timeout = t.C
			}
			select {
			case <-th.done:
				finished = true
			case <-timeout:
			case <-tc.thread.wake:
			}
		})
		if !finished && limit >= 0 && !time.Now().Before(deadline) {
			return false
		}
	}
	th.mu.Lock()
	ex := th.exception
	th.mu.Unlock()
	if ex != nil {
		panic(&RaiseException{Exception: ex})
	}
	return true
}

func (th *Thread) statusValue() Value {
	switch th.Status() {
	case ThreadRunning:
		return NewString("run")
	case ThreadSleeping:
		return NewString("sleep")
	case ThreadAborting:
		return NewString("aborting")
	}
	th.mu.Lock()
	defer th.mu.Unlock()
	if th.exception != nil {
		return nil
	}
	return false
}

// ---------------------------------------------------------------------------
// ThreadGroup: Mutually exclusive thread membership
// ---------------------------------------------------------------------------

// ThreadGroup is a set of threads. Membership changes hold the group's
// mutex; moving a thread between groups also holds the thread's mutex, so
// two groups cannot race to adopt the same thread.
type ThreadGroup struct {
	Basic
	mu       sync.Mutex
	members  []*Thread
	enclosed atomic.Bool
}

// add moves th into g, removing it from its previous group.
func (g *ThreadGroup) add(th *Thread) {
	th.mu.Lock()
	defer th.mu.Unlock()
	if old := th.group; old != nil && old != g {
		old.mu.Lock()
		old.removeLocked(th)
		old.mu.Unlock()
	}
	g.mu.Lock()
	if th.group != g {
		g.members = append(g.members, th)
	}
	g.mu.Unlock()
	th.group = g
}

// remove detaches a finished thread.
func (g *ThreadGroup) remove(th *Thread) {
	th.mu.Lock()
	defer th.mu.Unlock()
	g.mu.Lock()
	g.removeLocked(th)
	g.mu.Unlock()
	if th.group == g {
		th.group = nil
	}
}

func (g *ThreadGroup) removeLocked(th *Thread) {
	for i, m := range g.members {
		if m == th {
			g.members = append(g.members[:i], g.members[i+1:]...)
			return
		}
	}
}

// List returns the live members.
func (g *ThreadGroup) List() []*Thread {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Thread, 0, len(g.members))
	for _, th := range g.members {
		if th.Alive() {
			out = append(out, th)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Thread and ThreadGroup primitives
// ---------------------------------------------------------------------------

func (tc *ThreadContext) threadArg(v Value) *Thread {
	th, ok := v.(*Thread)
	if !ok {
		tc.typeError(v, "Thread")
	}
	return th
}

func (tc *ThreadContext) threadLocalKey(v Value) Symbol {
	switch k := v.(type) {
	case Symbol:
		return k
	case *String:
		return Symbol(k.S)
	}
	tc.Raise(tc.rt.TypeError, "%s is not a symbol", tc.Inspect(v))
	return ""
}

// durationArg converts a seconds argument.
func (tc *ThreadContext) durationArg(v Value) time.Duration {
	switch x := v.(type) {
	case int64:
		if x < 0 {
			tc.Raise(tc.rt.ArgumentError, "time interval must be positive")
		}
		return time.Duration(x) * time.Second
	case float64:
		if x < 0 {
			tc.Raise(tc.rt.ArgumentError, "time interval must be positive")
		}
		return time.Duration(x * float64(time.Second))
	}
	tc.Raise(tc.rt.TypeError, "can't convert %s into time interval", tc.rt.RealClassOf(v).Name())
	return 0
}

func (rt *Runtime) registerThreadPrimitives() {
	t := rt.ThreadClass
	meta := rt.metaclass(t)

	newThread := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if !blk.IsGiven() {
			tc.Raise(rt.ThreadError, "must be called with a block")
		}
		th := rt.newThread()
		if g := tc.thread.Group(); g != nil {
			g.add(th)
		} else {
			rt.defaultGroup.add(th)
		}
		b := blk.clone(ThreadBlock)
		th.start(b, append([]Value(nil), args...))
		return th
	}

	// new - start a thread running the block with the arguments
	meta.AddMethod("new", -1, newThread)
	// start - same as new
	meta.AddMethod("start", -1, newThread)
	meta.AddMethod("fork", -1, newThread)

	// current - the running thread
	meta.AddMethod("current", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.thread
	})

	// main - the thread scripts run on
	meta.AddMethod("main", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.mainThread
	})

	// list - all live threads
	meta.AddMethod("list", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		out := NewArray()
		for _, th := range rt.threads.alive() {
			out.Elems = append(out.Elems, th)
		}
		return out
	})

	// pass - let other threads run
	meta.AddMethod("pass", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.pass()
		tc.checkInterrupts()
		return nil
	})

	// stop - sleep until woken
	meta.AddMethod("stop", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.sleep(-1)
		return nil
	})

	// exit - terminate the current thread
	meta.AddMethod("exit", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.thread.kill()
		tc.checkInterrupts()
		return nil
	})

	// abort_on_exception - whether any thread's exception aborts the main thread
	meta.AddMethod("abort_on_exception", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return rt.abortOnException.Load()
	})

	// abort_on_exception= - set the global abort flag
	meta.AddMethod("abort_on_exception=", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		rt.abortOnException.Store(Truthy(args[0]))
		return args[0]
	})

	// join - wait for the thread, re-raising its exception
	t.AddMethod("join", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.checkArity(args, 0, 1)
		limit := time.Duration(-1)
		if len(args) == 1 && args[0] != nil {
			limit = tc.durationArg(args[0])
		}
		if tc.join(self.(*Thread), limit) {
			return self
		}
		return nil
	})

	// value - join and return the block's value
	t.AddMethod("value", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		th := self.(*Thread)
		tc.join(th, -1)
		th.mu.Lock()
		defer th.mu.Unlock()
		return th.value
	})

	// alive? - whether the thread has not finished
	t.AddMethod("alive?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self.(*Thread).Alive()
	})

	// stop? - whether the thread is dead or sleeping
	t.AddMethod("stop?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		s := self.(*Thread).Status()
		return s == ThreadDead || s == ThreadSleeping
	})

	// status - "run", "sleep", "aborting", false or nil
	t.AddMethod("status", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self.(*Thread).statusValue()
	})

	// group - the thread's group
	t.AddMethod("group", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		if g := self.(*Thread).Group(); g != nil {
			return g
		}
		return nil
	})

	// [] - read a thread-local
	t.AddMethod("[]", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		th := self.(*Thread)
		k := tc.threadLocalKey(args[0])
		th.mu.Lock()
		defer th.mu.Unlock()
		return th.locals[k]
	})

	// []= - set a thread-local
	t.AddMethod("[]=", 2, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		th := self.(*Thread)
		k := tc.threadLocalKey(args[0])
		th.mu.Lock()
		defer th.mu.Unlock()
		if th.locals == nil {
			th.locals = make(map[Symbol]Value)
		}
		th.locals[k] = args[1]
		return args[1]
	})

	// key? - whether a thread-local is set
	t.AddMethod("key?", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		th := self.(*Thread)
		k := tc.threadLocalKey(args[0])
		th.mu.Lock()
		defer th.mu.Unlock()
		_, ok := th.locals[k]
		return ok
	})

	// keys - thread-local names
	t.AddMethod("keys", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		th := self.(*Thread)
		th.mu.Lock()
		defer th.mu.Unlock()
		out := NewArray()
		for k := range th.locals {
			out.Elems = append(out.Elems, k)
		}
		return out
	})

	// raise - raise an exception in the thread
	t.AddMethod("raise", -1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		th := self.(*Thread)
		ex := tc.makeException(args)
		if th == tc.thread {
			tc.RaiseException(ex)
		}
		if th.Alive() {
			th.interrupt(ex)
		}
		return nil
	})

	kill := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		th := self.(*Thread)
		th.kill()
		if th == tc.thread {
			tc.checkInterrupts()
		}
		return th
	}
	// kill - terminate the thread
	t.AddMethod("kill", 0, kill)
	t.AddMethod("terminate", 0, kill)
	t.AddMethod("exit", 0, kill)

	wakeup := func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		th := self.(*Thread)
		if !th.Alive() {
			tc.Raise(rt.ThreadError, "killed thread")
		}
		th.wakeUp()
		return th
	}
	// wakeup - end a sleep
	t.AddMethod("wakeup", 0, wakeup)
	t.AddMethod("run", 0, wakeup)

	// priority - scheduling hint, kept but not used
	t.AddMethod("priority", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		th := self.(*Thread)
		th.mu.Lock()
		defer th.mu.Unlock()
		return th.priority
	})

	// priority= - set the scheduling hint
	t.AddMethod("priority=", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		th := self.(*Thread)
		p, ok := args[0].(int64)
		if !ok {
			tc.typeError(args[0], "Integer")
		}
		th.mu.Lock()
		th.priority = p
		th.mu.Unlock()
		return p
	})

	// abort_on_exception - whether this thread's exception aborts the main thread
	t.AddMethod("abort_on_exception", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		th := self.(*Thread)
		th.mu.Lock()
		defer th.mu.Unlock()
		return th.abort
	})

	// abort_on_exception= - set the per-thread abort flag
	t.AddMethod("abort_on_exception=", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		th := self.(*Thread)
		th.mu.Lock()
		th.abort = Truthy(args[0])
		th.mu.Unlock()
		return args[0]
	})

	// inspect - #<Thread:id status>
	t.AddMethod("inspect", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		th := self.(*Thread)
		status := "dead"
		if s, ok := th.statusValue().(*String); ok {
			status = s.S
		}
		return NewString("#<Thread:" + th.ID.String() + " " + status + ">")
	})

	rt.registerThreadGroupPrimitives()
}

func (rt *Runtime) registerThreadGroupPrimitives() {
	g := rt.ThreadGroupClass
	g.alloc = func(c *Class) Value {
		tg := &ThreadGroup{}
		tg.class = c
		return tg
	}

	// add - move a live thread into the group
	g.AddMethod("add", 1, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		group := self.(*ThreadGroup)
		th := tc.threadArg(args[0])
		if group.frozen {
			tc.Raise(rt.ThreadError, "can't move to the frozen thread group")
		}
		if group.enclosed.Load() {
			tc.Raise(rt.ThreadError, "can't move to the enclosed thread group")
		}
		if old := th.Group(); old != nil {
			if old.frozen {
				tc.Raise(rt.ThreadError, "can't move from the frozen thread group")
			}
			if old.enclosed.Load() {
				tc.Raise(rt.ThreadError, "can't move from the enclosed thread group")
			}
		}
		if th.Alive() {
			group.add(th)
		}
		return group
	})

	// list - live members of the group
	g.AddMethod("list", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		out := NewArray()
		for _, th := range self.(*ThreadGroup).List() {
			out.Elems = append(out.Elems, th)
		}
		return out
	})

	// enclose - forbid moving threads in or out
	g.AddMethod("enclose", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		self.(*ThreadGroup).enclosed.Store(true)
		return self
	})

	// enclosed? - whether enclose was called
	g.AddMethod("enclosed?", 0, func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return self.(*ThreadGroup).enclosed.Load()
	})
}

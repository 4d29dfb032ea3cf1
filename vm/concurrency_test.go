package vm

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Threads
// ---------------------------------------------------------------------------

func TestThreadValueAndGroup(t *testing.T) {
	tr := newTestRuntime(t)
	double := NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return args[0].(int64) * 2
	}, 1, NormalBlock)

	th := tr.send(tr.ThreadClass, "new", double, int64(21)).(*Thread)
	if v := tr.send(th, "value", nil); v != int64(42) {
		t.Errorf("value = %v, want 42", v)
	}
	if tr.send(th, "alive?", nil) != false {
		t.Error("a joined thread should be dead")
	}
	if v := tr.send(th, "group", nil); v != nil {
		t.Errorf("a finished thread's group = %v, want nil", v)
	}
	if got := tr.inspect(th); !strings.HasPrefix(got, "#<Thread:"+th.ID.String()) {
		t.Errorf("inspect = %s", got)
	}
}

func TestThreadExceptionReraisedByJoin(t *testing.T) {
	tr := newTestRuntime(t)
	boom := NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		tc.Raise(tc.rt.RuntimeError, "boom")
		return nil
	}, 0, NormalBlock)
	th := tr.send(tr.ThreadClass, "new", boom)
	if _, err := tr.sendErr(th, "join", nil); raised(err) != "RuntimeError" {
		t.Errorf("join: err = %v, want RuntimeError", err)
	}
}

func TestThreadRequiresBlock(t *testing.T) {
	tr := newTestRuntime(t)
	if _, err := tr.sendErr(tr.ThreadClass, "new", nil); raised(err) != "ThreadError" {
		t.Errorf("Thread.new without a block: err = %v, want ThreadError", err)
	}
}

func TestThreadIDsAreUnique(t *testing.T) {
	tr := newTestRuntime(t)
	seen := map[uuid.UUID]bool{tr.mainThread.ID: true}
	for i := 0; i < 50; i++ {
		th := tr.newThread()
		if th.ID == uuid.Nil || seen[th.ID] {
			t.Fatalf("duplicate or nil thread id %s", th.ID)
		}
		seen[th.ID] = true
	}
}

// ---------------------------------------------------------------------------
// ThreadGroup
// ---------------------------------------------------------------------------

func TestThreadGroupMembershipIsExclusive(t *testing.T) {
	tr := newTestRuntime(t)
	groups := []*ThreadGroup{{}, {}, {}, {}}
	threads := make([]*Thread, 20)
	for i := range threads {
		threads[i] = tr.newThread()
	}

	var wg sync.WaitGroup
	for i, th := range threads {
		th := th
		for j := range groups {
			wg.Add(1)
			go func(g *ThreadGroup) {
				defer wg.Done()
				for k := 0; k < 25; k++ {
					g.add(th)
				}
			}(groups[(i+j)%len(groups)])
		}
	}
	wg.Wait()

	for _, th := range threads {
		n := 0
		for _, g := range groups {
			for _, m := range g.List() {
				if m == th {
					n++
				}
			}
		}
		if n != 1 {
			t.Errorf("thread %s is in %d groups, want 1", th.ID, n)
		}
		found := false
		for _, m := range th.Group().List() {
			found = found || m == th
		}
		if !found {
			t.Errorf("thread %s is not listed by its own group", th.ID)
		}
	}
}

func TestThreadGroupAddMovesThread(t *testing.T) {
	tr := newTestRuntime(t)
	g := tr.send(tr.ThreadGroupClass, "new", nil).(*ThreadGroup)
	main := tr.mainThread
	tr.send(g, "add", nil, main)
	if main.Group() != g {
		t.Fatal("add did not move the thread")
	}
	for _, m := range tr.defaultGroup.List() {
		if m == main {
			t.Error("the thread is still listed by its old group")
		}
	}
	if got := tr.inspect(tr.send(g, "list", nil)); !strings.Contains(got, main.ID.String()) {
		t.Errorf("list = %s", got)
	}
}

func TestThreadGroupEnclosed(t *testing.T) {
	tr := newTestRuntime(t)
	g := tr.send(tr.ThreadGroupClass, "new", nil)
	tr.send(g, "enclose", nil)
	if tr.send(g, "enclosed?", nil) != true {
		t.Fatal("enclosed? should be true after enclose")
	}
	if _, err := tr.sendErr(g, "add", nil, tr.mainThread); raised(err) != "ThreadError" {
		t.Errorf("add to an enclosed group: err = %v, want ThreadError", err)
	}

	other := tr.send(tr.ThreadGroupClass, "new", nil)
	tr.send(other, "add", nil, tr.mainThread)
	tr.send(other, "enclose", nil)
	if _, err := tr.sendErr(tr.defaultGroup, "add", nil, tr.mainThread); raised(err) != "ThreadError" {
		t.Errorf("moving out of an enclosed group: err = %v, want ThreadError", err)
	}
}

// ---------------------------------------------------------------------------
// Mutex and Queue
// ---------------------------------------------------------------------------

func TestMutexOwnership(t *testing.T) {
	tr := newTestRuntime(t)
	m := tr.send(tr.MutexClass, "new", nil)
	if _, err := tr.sendErr(m, "unlock", nil); raised(err) != "ThreadError" {
		t.Errorf("unlock of an unlocked mutex: err = %v, want ThreadError", err)
	}
	tr.send(m, "lock", nil)
	if tr.send(m, "locked?", nil) != true {
		t.Error("locked? should be true after lock")
	}
	if tr.send(m, "try_lock", nil) != false {
		t.Error("try_lock by the owner should fail")
	}
	if _, err := tr.sendErr(m, "lock", nil); raised(err) != "ThreadError" {
		t.Errorf("recursive lock: err = %v, want ThreadError", err)
	}
	tr.send(m, "unlock", nil)

	v := tr.send(m, "synchronize", NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		return tc.Send(m, "locked?")
	}, 0, NormalBlock))
	if v != true {
		t.Error("the mutex should be held inside synchronize")
	}
	if tr.send(m, "locked?", nil) != false {
		t.Error("synchronize should release the mutex")
	}
}

func TestQueueHandsValuesBetweenThreads(t *testing.T) {
	tr := newTestRuntime(t)
	q := tr.send(tr.QueueClass, "new", nil)
	if _, err := tr.sendErr(q, "pop", nil, true); raised(err) != "ThreadError" {
		t.Errorf("non-blocking pop of an empty queue: err = %v, want ThreadError", err)
	}

	producer := NewNativeBlock(func(tc *ThreadContext, self Value, args []Value, blk *Block) Value {
		for i := int64(1); i <= 3; i++ {
			tc.Send(q, "push", i)
		}
		return nil
	}, 0, NormalBlock)
	th := tr.send(tr.ThreadClass, "new", producer)

	var got []Value
	for i := 0; i < 3; i++ {
		got = append(got, tr.send(q, "pop", nil))
	}
	tr.send(th, "join", nil)
	if s := tr.inspect(NewArray(got...)); s != "[1, 2, 3]" {
		t.Errorf("popped %s, want [1, 2, 3]", s)
	}
	if tr.send(q, "empty?", nil) != true {
		t.Error("queue should be empty")
	}
}

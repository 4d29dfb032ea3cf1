package vm

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// threadRegistry: Live threads of a runtime
// ---------------------------------------------------------------------------

// threadRegistry tracks the threads that have started and not finished.
// Thread.list and the scheduler's yield decision read it.
type threadRegistry struct {
	mu      sync.RWMutex
	threads map[uuid.UUID]*Thread
	order   []uuid.UUID
}

func (r *threadRegistry) add(th *Thread) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.threads == nil {
		r.threads = make(map[uuid.UUID]*Thread)
	}
	r.threads[th.ID] = th
	r.order = append(r.order, th.ID)
}

func (r *threadRegistry) remove(th *Thread) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.threads, th.ID)
	for i, id := range r.order {
		if id == th.ID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// get looks a thread up by its ID.
func (r *threadRegistry) get(id uuid.UUID) *Thread {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.threads[id]
}

// alive returns the live threads in creation order.
func (r *threadRegistry) alive() []*Thread {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Thread, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.threads[id])
	}
	return out
}

// count returns the number of live threads.
func (r *threadRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.threads)
}

// ids returns the live thread IDs sorted, for diagnostics.
func (r *threadRegistry) ids() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.threads))
	for id := range r.threads {
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out
}

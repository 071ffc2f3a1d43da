package engine

import "sync"

// registry is an insertion-ordered listener set.
//
// Add and remove are O(1) amortized: entries live in a map keyed by a
// monotonic id, and order keeps ids in subscription order. Removed ids are
// left in order until they outnumber live ones, then compacted.
type registry struct {
	mu      sync.Mutex
	nextID  uint64
	entries map[uint64]Listener
	order   []uint64
}

func newRegistry() *registry {
	return &registry{
		entries: make(map[uint64]Listener),
	}
}

func (r *registry) add(l Listener) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.entries[r.nextID] = l
	r.order = append(r.order, r.nextID)
	return r.nextID
}

func (r *registry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return
	}
	delete(r.entries, id)

	if len(r.order) > 2*len(r.entries) {
		r.compact()
	}
}

// compact drops removed ids from order. Caller holds mu.
func (r *registry) compact() {
	live := r.order[:0]
	for _, id := range r.order {
		if _, ok := r.entries[id]; ok {
			live = append(live, id)
		}
	}
	clear(r.order[len(live):])
	r.order = live
}

// snapshot returns the live listeners in subscription order. The slice is
// owned by the caller; later add/remove calls do not affect it.
func (r *registry) snapshot() []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Listener, 0, len(r.entries))
	for _, id := range r.order {
		if l, ok := r.entries[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

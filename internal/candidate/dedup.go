package candidate

import "sync"

// DedupStore remembers candidate identities already forwarded during the
// current negotiation round.
type DedupStore struct {
	mu   sync.Mutex
	seen map[Identity]struct{}
}

func NewDedupStore() *DedupStore {
	return &DedupStore{seen: make(map[Identity]struct{})}
}

// ShouldForward records id and reports true the first time it is seen.
func (d *DedupStore) ShouldForward(id Identity) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = struct{}{}
	return true
}

func (d *DedupStore) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.seen)
}

func (d *DedupStore) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

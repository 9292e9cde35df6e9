package crawler

import (
	"sync"

	"github.com/nao1215/webspider/internal/model"
)

// Frontier is the shared crawl queue. It owns the seen-set, the
// depth-ordered backlog, and the in-flight accounting that together decide
// when a crawl is over. All access goes through its methods; internals are
// never handed out.
//
// Admission is exactly-once per canonical URL: a URL that was ever
// admitted stays in the seen-set for the whole run, so a later fetch
// failure can never re-queue it.
//
// Design decision: The backlog is a slice of FIFO buckets indexed by depth
// rather than a priority heap because:
// 1. maxDepth bounds the bucket count up front
// 2. FIFO within a depth is a plain append and shift
// 3. the shallowest non-empty bucket is found by a short scan
// This gives breadth-first bias cheaply: workers always drain the
// shallowest depth that has work.
type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	// seen holds every canonical URL ever admitted. Entries are never
	// removed during a run.
	seen map[string]struct{}

	// buckets holds pending entries indexed by depth, FIFO within each.
	buckets [][]model.URLEntry

	// pending is the total queued entry count across all buckets.
	pending int

	// inflight counts entries popped but not yet marked done. An entry is
	// in flight until its worker has admitted the children it discovered.
	inflight int

	// admitted counts URLs accepted over the whole run, seeds included.
	// It never exceeds maxPages.
	admitted int

	// closed marks the frontier terminal. Pop returns false without
	// serving queued entries and TryAdmit rejects everything.
	closed bool

	maxDepth int
	maxPages int
}

// NewFrontier creates an empty frontier with the given depth and page
// budgets.
func NewFrontier(maxDepth, maxPages int) *Frontier {
	f := &Frontier{
		seen:     make(map[string]struct{}),
		buckets:  make([][]model.URLEntry, maxDepth+1),
		maxDepth: maxDepth,
		maxPages: maxPages,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// TryAdmit offers an entry to the frontier. The entry's URL is
// canonicalized first; admission fails when the URL does not canonicalize,
// was already seen, sits deeper than maxDepth, or the page budget is
// exhausted. Exactly one of two concurrent TryAdmit calls for the same
// canonical URL succeeds.
func (f *Frontier) TryAdmit(entry model.URLEntry) bool {
	canonical, err := Canonicalize(entry.URL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if entry.Depth < 0 || entry.Depth > f.maxDepth {
		return false
	}
	if f.admitted >= f.maxPages {
		return false
	}
	if _, ok := f.seen[canonical]; ok {
		return false
	}

	f.seen[canonical] = struct{}{}
	entry.URL = canonical
	f.buckets[entry.Depth] = append(f.buckets[entry.Depth], entry)
	f.pending++
	f.admitted++
	f.cond.Signal()
	return true
}

// Pop removes and returns the entry at the shallowest non-empty depth,
// FIFO within that depth. It blocks while the backlog is empty but more
// work may still arrive, and returns ok=false once the crawl is over: the
// frontier was closed, it fully drained, or the admission budget is
// exhausted with nothing left to hand out.
func (f *Frontier) Pop() (model.URLEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.closed {
			return model.URLEntry{}, false
		}
		if f.pending > 0 {
			entry := f.popShallowestLocked()
			f.inflight++
			if f.pending == 0 && f.admitted >= f.maxPages {
				// No admission can ever arrive again; waiting workers
				// may leave instead of watching the stragglers finish.
				f.cond.Broadcast()
			}
			return entry, true
		}
		if f.inflight == 0 || f.admitted >= f.maxPages {
			return model.URLEntry{}, false
		}
		f.cond.Wait()
	}
}

// popShallowestLocked takes the head of the first non-empty bucket.
// Callers hold f.mu and have checked pending > 0.
func (f *Frontier) popShallowestLocked() model.URLEntry {
	for depth := range f.buckets {
		bucket := f.buckets[depth]
		if len(bucket) == 0 {
			continue
		}
		entry := bucket[0]
		f.buckets[depth] = bucket[1:]
		f.pending--
		return entry
	}
	return model.URLEntry{}
}

// Done marks one popped entry fully processed, discovered children
// admitted included. The final Done on an empty backlog makes the
// frontier terminal and wakes every waiting worker.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inflight > 0 {
		f.inflight--
	}
	if f.pending == 0 && f.inflight == 0 {
		f.closed = true
		f.cond.Broadcast()
	}
}

// Close makes the frontier terminal immediately: queued entries are no
// longer served, Pop returns false, and admissions are rejected. Entries
// already popped still finish; Close never interrupts a fetch in flight.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
}

// IsDrained reports whether the backlog is empty and no worker holds an
// in-flight entry.
func (f *Frontier) IsDrained() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending == 0 && f.inflight == 0
}

// Admitted returns how many URLs were accepted over the run, seeds
// included.
func (f *Frontier) Admitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admitted
}

// Pending returns the number of queued entries not yet popped.
func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

package summarize

import "sync"

// ReasonOffline counts fallbacks served because no LLM was configured.
const ReasonOffline = "offline"

// Degradations counts fallback summaries by failure reason.
type Degradations struct {
	mu     sync.Mutex
	counts map[string]int
}

// Record counts one fallback for reason.
func (d *Degradations) Record(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.counts == nil {
		d.counts = make(map[string]int)
	}
	d.counts[reason]++
}

// Snapshot returns a copy of the counters.
func (d *Degradations) Snapshot() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}

// Total returns the number of fallbacks recorded.
func (d *Degradations) Total() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, v := range d.counts {
		n += v
	}
	return n
}

package network

import (
	"EPeer/discovery"
	"EPeer/wire"

	"sync"
	"time"

	"golang.org/x/exp/slices"
)

// Outcome is the terminal result of one attempt.
type Outcome struct {
	Peer        discovery.PeerAddress
	AttemptID   string
	State       State
	Version     int32 // negotiated
	Services    wire.ServiceFlag
	UserAgent   string
	StartHeight int32
	Failure     *Failure // nil when established
	Duration    time.Duration
}

func (o Outcome) Established() bool {
	return o.State == StateEstablished
}

// Reason is ReasonNone for an established outcome.
func (o Outcome) Reason() Reason {
	if o.Failure == nil {
		return ReasonNone
	}
	return o.Failure.Reason
}

// Report maps every candidate address, by PeerAddress.Key, to its outcome.
type Report struct {
	Outcomes  map[string]Outcome
	Discovery *discovery.Result
}

// Sorted returns all outcomes ordered by peer key.
func (r *Report) Sorted() []Outcome {
	return r.filter(func(Outcome) bool { return true })
}

func (r *Report) Established() []Outcome {
	return r.filter(Outcome.Established)
}

func (r *Report) Failed() []Outcome {
	return r.filter(func(o Outcome) bool { return !o.Established() })
}

// Counts tallies outcomes by reason; established peers count as ReasonNone.
func (r *Report) Counts() map[Reason]int {
	counts := make(map[Reason]int)
	for _, o := range r.Outcomes {
		counts[o.Reason()]++
	}
	return counts
}

func (r *Report) filter(keep func(Outcome) bool) []Outcome {
	keys := make([]string, 0, len(r.Outcomes))
	for key := range r.Outcomes {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var out []Outcome
	for _, key := range keys {
		if o := r.Outcomes[key]; keep(o) {
			out = append(out, o)
		}
	}
	return out
}

// collector is the only state shared between attempts of a batch.
type collector struct {
	mu          sync.Mutex
	outcomes    map[string]Outcome
	established int
}

func newCollector() *collector {
	return &collector{outcomes: make(map[string]Outcome)}
}

func (c *collector) record(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[o.Peer.Key()] = o
	if o.Established() {
		c.established++
	}
}

func (c *collector) establishedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.established
}

func (c *collector) report() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	outcomes := make(map[string]Outcome, len(c.outcomes))
	for k, v := range c.outcomes {
		outcomes[k] = v
	}
	return &Report{Outcomes: outcomes}
}

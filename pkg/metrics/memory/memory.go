// Package memory implements an in-memory metrics collector with a
// JSON-friendly snapshot, used by tests and the /metrics/json endpoint.
package memory

import (
	"sync"
	"time"

	"ledgersync/pkg/metrics"
)

// Collector accumulates counters in memory.
type Collector struct {
	mu sync.Mutex

	creates        map[string]int64
	lookups        int64
	lookupsFound   int64
	lookupsMissed  int64
	verifyAttempts map[string]map[string]int64
	runs           int64
	runFailures    int64
	circuitStates  map[string]string
	cacheHits      map[string]int64
	cacheMisses    map[string]int64
}

// New creates an empty collector.
func New() *Collector {
	return &Collector{
		creates:        make(map[string]int64),
		verifyAttempts: make(map[string]map[string]int64),
		circuitStates:  make(map[string]string),
		cacheHits:      make(map[string]int64),
		cacheMisses:    make(map[string]int64),
	}
}

// RecordCreate implements metrics.Collector.
func (c *Collector) RecordCreate(status string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creates[status]++
}

// RecordLookup implements metrics.Collector.
func (c *Collector) RecordLookup(requested, found int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	c.lookupsFound += int64(found)
	c.lookupsMissed += int64(requested - found)
}

// RecordVerifyAttempt implements metrics.Collector.
func (c *Collector) RecordVerifyAttempt(mode string, attempt int, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byOutcome, ok := c.verifyAttempts[mode]
	if !ok {
		byOutcome = make(map[string]int64)
		c.verifyAttempts[mode] = byOutcome
	}
	byOutcome[outcome]++
}

// RecordRun implements metrics.Collector.
func (c *Collector) RecordRun(success bool, accounts int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs++
	if !success {
		c.runFailures++
	}
}

// RecordCircuitState implements metrics.Collector.
func (c *Collector) RecordCircuitState(gateway string, state metrics.CircuitState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.circuitStates[gateway] = state.String()
}

// RecordCacheGet implements metrics.Collector.
func (c *Collector) RecordCacheGet(layer string, hit bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.cacheHits[layer]++
	} else {
		c.cacheMisses[layer]++
	}
}

// Snapshot is a point-in-time copy of the collected counters.
type Snapshot struct {
	Creates        map[string]int64            `json:"creates"`
	Lookups        int64                       `json:"lookups"`
	LookupsFound   int64                       `json:"lookups_found"`
	LookupsMissed  int64                       `json:"lookups_missed"`
	VerifyAttempts map[string]map[string]int64 `json:"verify_attempts"`
	Runs           int64                       `json:"runs"`
	RunFailures    int64                       `json:"run_failures"`
	CircuitStates  map[string]string           `json:"circuit_states"`
	CacheHits      map[string]int64            `json:"cache_hits"`
	CacheMisses    map[string]int64            `json:"cache_misses"`
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Creates:        make(map[string]int64, len(c.creates)),
		Lookups:        c.lookups,
		LookupsFound:   c.lookupsFound,
		LookupsMissed:  c.lookupsMissed,
		VerifyAttempts: make(map[string]map[string]int64, len(c.verifyAttempts)),
		Runs:           c.runs,
		RunFailures:    c.runFailures,
		CircuitStates:  make(map[string]string, len(c.circuitStates)),
		CacheHits:      make(map[string]int64, len(c.cacheHits)),
		CacheMisses:    make(map[string]int64, len(c.cacheMisses)),
	}
	for k, v := range c.creates {
		snap.Creates[k] = v
	}
	for mode, byOutcome := range c.verifyAttempts {
		inner := make(map[string]int64, len(byOutcome))
		for k, v := range byOutcome {
			inner[k] = v
		}
		snap.VerifyAttempts[mode] = inner
	}
	for k, v := range c.circuitStates {
		snap.CircuitStates[k] = v
	}
	for k, v := range c.cacheHits {
		snap.CacheHits[k] = v
	}
	for k, v := range c.cacheMisses {
		snap.CacheMisses[k] = v
	}
	return snap
}

var _ metrics.Collector = (*Collector)(nil)

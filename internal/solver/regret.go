// Package solver implements the DCFR blueprint trainer: regret-matching
// over infoset keys, discounted regret/strategy-sum accumulation,
// external-sampling CFR traversal seeded by the preflop heuristic mix,
// checkpointing, and plateau-based early stopping.
package solver

import (
	"math"
	"sync"

	"github.com/lox/huholdem/internal/engine"
)

const numActions = 8

// RegretEntry accumulates per-infoset regrets and strategy-sum mass over
// the fixed eight-action abstraction, guarded by its own mutex so the
// table can be updated from multiple self-play goroutines.
type RegretEntry struct {
	mu          sync.Mutex
	legalMask   [numActions]bool
	regretSum   [numActions]float64
	strategySum [numActions]float64
	visits      int64
}

// Strategy returns the regret-matching distribution over the legal
// actions this entry has ever seen, uniform when all regrets are
// non-positive.
func (e *RegretEntry) Strategy() [numActions]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.strategyLocked()
}

func (e *RegretEntry) strategyLocked() [numActions]float64 {
	var strat [numActions]float64
	var total float64
	legalCount := 0
	for i := 0; i < numActions; i++ {
		if !e.legalMask[i] {
			continue
		}
		legalCount++
		if e.regretSum[i] > 0 {
			strat[i] = e.regretSum[i]
			total += e.regretSum[i]
		}
	}
	if total <= 0 {
		if legalCount == 0 {
			return strat
		}
		u := 1.0 / float64(legalCount)
		for i := 0; i < numActions; i++ {
			if e.legalMask[i] {
				strat[i] = u
			}
		}
		return strat
	}
	for i := 0; i < numActions; i++ {
		strat[i] /= total
	}
	return strat
}

// AverageStrategy returns the checkpoint-time average policy: the
// normalized strategy_sum vector, uniform fallback if it's all zero.
func (e *RegretEntry) AverageStrategy() [numActions]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var avg [numActions]float64
	var total float64
	legalCount := 0
	for i := 0; i < numActions; i++ {
		if e.legalMask[i] {
			legalCount++
		}
		total += e.strategySum[i]
	}
	if total <= 0 {
		if legalCount == 0 {
			return avg
		}
		u := 1.0 / float64(legalCount)
		for i := 0; i < numActions; i++ {
			if e.legalMask[i] {
				avg[i] = u
			}
		}
		return avg
	}
	for i := 0; i < numActions; i++ {
		avg[i] = e.strategySum[i] / total
	}
	return avg
}

// DCFRMultipliers returns the positive- and negative-regret discount
// factors for iteration t, per the Discounted CFR schedule. Exported so
// the realtime subgame solver (internal/realtime) can apply the same
// discount schedule to its short-horizon regret accumulation.
func DCFRMultipliers(t int) (pos, neg float64) {
	return dcfrMultipliers(t)
}

func dcfrMultipliers(t int) (pos, neg float64) {
	if t < 1 {
		t = 1
	}
	ft := float64(t)
	a := math.Pow(ft, 1.5)
	b := math.Sqrt(ft)
	pos = a / (a + 1)
	neg = b / (b + 2)
	return pos, neg
}

// Update applies one visit's regret and strategy contribution, marking
// the legal action set, discounting existing accumulators per DCFR
// before adding the new iteration's values.
func (e *RegretEntry) Update(legal []engine.Action, regret [numActions]float64, strategy [numActions]float64, reachWeight float64, iteration int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range legal {
		e.legalMask[a] = true
	}
	e.visits++

	pos, neg := dcfrMultipliers(iteration)
	for i := 0; i < numActions; i++ {
		if e.regretSum[i] > 0 {
			e.regretSum[i] *= pos
		} else {
			e.regretSum[i] *= neg
		}
		e.regretSum[i] += regret[i]
		e.strategySum[i] += reachWeight * strategy[i]
	}
}

// AccumulateStrategy records a visit's contribution to the average
// policy without touching regrets or applying DCFR discounting; used for
// opponent-node visits under external sampling, where only the acting
// player's own regret is updated but both players' average strategies
// must accumulate.
func (e *RegretEntry) AccumulateStrategy(legal []engine.Action, strategy [numActions]float64, reachWeight float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range legal {
		e.legalMask[a] = true
	}
	e.visits++
	for i := 0; i < numActions; i++ {
		e.strategySum[i] += reachWeight * strategy[i]
	}
}

// Visits reports how many times this infoset has been updated.
func (e *RegretEntry) Visits() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visits
}

const numShards = 64

// RegretTable is a sharded, concurrency-safe map from infoset key to its
// RegretEntry, sharded by an FNV-1a hash of the key to bound per-shard
// lock contention during parallel self-play.
type RegretTable struct {
	shards [numShards]struct {
		mu      sync.RWMutex
		entries map[string]*RegretEntry
	}
}

// NewRegretTable builds an empty table.
func NewRegretTable() *RegretTable {
	t := &RegretTable{}
	for i := range t.shards {
		t.shards[i].entries = make(map[string]*RegretEntry)
	}
	return t
}

func shardIndex(key string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= 16777619
	}
	return h % numShards
}

// Get returns the entry for key, creating it if absent.
func (t *RegretTable) Get(key string) *RegretEntry {
	idx := shardIndex(key)
	shard := &t.shards[idx]

	shard.mu.RLock()
	e, ok := shard.entries[key]
	shard.mu.RUnlock()
	if ok {
		return e
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if e, ok = shard.entries[key]; ok {
		return e
	}
	e = &RegretEntry{}
	shard.entries[key] = e
	return e
}

// Len returns the total number of infosets tracked.
func (t *RegretTable) Len() int {
	n := 0
	for i := range t.shards {
		t.shards[i].mu.RLock()
		n += len(t.shards[i].entries)
		t.shards[i].mu.RUnlock()
	}
	return n
}

// Snapshot returns the average policy for every tracked infoset, keyed
// by infoset string, action-ordered per engine.Actions.
func (t *RegretTable) Snapshot() map[string][numActions]float64 {
	out := make(map[string][numActions]float64, t.Len())
	for i := range t.shards {
		t.shards[i].mu.RLock()
		for k, e := range t.shards[i].entries {
			out[k] = e.AverageStrategy()
		}
		t.shards[i].mu.RUnlock()
	}
	return out
}

package solver

import (
	"fmt"
	"hash/fnv"
	"sort"

	chd "github.com/opencoff/go-chd"
)

// hashKey maps a string infoset key to the uint64 domain go-chd's
// builder operates over.
func hashKey(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// PriorIndex wraps a trained blueprint's policy map with a minimal
// perfect hash over its infoset keys, so decision-time lookups against a
// large blueprint (millions of keys after a long training run) are O(1)
// array indexing rather than a Go map probe. Built once at load time;
// read-only and safe to share across sessions, matching the blueprint
// prior table's read-only-after-load sharing rule.
type PriorIndex struct {
	mph  *chd.Chd
	keys []string
	vecs [][8]float64
}

// BuildPriorIndex constructs the perfect-hash index from a blueprint's
// policy map. Key order is sorted for reproducibility; keys are fed
// through go-chd's builder and frozen into the final hash.
func BuildPriorIndex(policy map[string][8]float64) (*PriorIndex, error) {
	keys := make([]string, 0, len(policy))
	for k := range policy {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	builder, err := chd.New()
	if err != nil {
		return nil, fmt.Errorf("solver: prior index builder: %w", err)
	}
	for _, k := range keys {
		if err := builder.Add(hashKey(k)); err != nil {
			return nil, fmt.Errorf("solver: prior index builder: %w", err)
		}
	}
	mph, err := builder.Freeze(0.8)
	if err != nil {
		return nil, fmt.Errorf("solver: build prior index: %w", err)
	}

	vecs := make([][8]float64, len(keys))
	for i, k := range keys {
		vecs[i] = policy[k]
	}

	return &PriorIndex{mph: mph, keys: keys, vecs: vecs}, nil
}

// Lookup returns the probability vector for key, false if key isn't one
// of the keys the index was built from (the minimal perfect hash only
// guarantees no collisions among its own key set; an unrelated key must
// be verified against the stored key at the returned slot).
func (p *PriorIndex) Lookup(key string) ([8]float64, bool) {
	if p == nil || len(p.keys) == 0 {
		return [8]float64{}, false
	}
	idx := p.mph.Find(hashKey(key))
	if int(idx) >= len(p.keys) || p.keys[idx] != key {
		return [8]float64{}, false
	}
	return p.vecs[idx], true
}

// Len reports how many keys the index covers.
func (p *PriorIndex) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

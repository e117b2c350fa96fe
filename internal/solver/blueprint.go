package solver

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"

	"github.com/lox/huholdem/internal/engine"
)

// Meta records a trained blueprint's provenance: the knobs the trainer
// ran with and how it stopped. It doubles as the strategy file's meta
// block and the prior file's meta block at load time.
type Meta struct {
	Iterations         int       `json:"iterations"`
	Seed               int64     `json:"seed"`
	SmallBlind         float64   `json:"small_blind"`
	BigBlind           float64   `json:"big_blind"`
	StartStack         float64   `json:"start_stack"`
	MaxRaises          int       `json:"max_raises"`
	EquityTrials       int       `json:"equity_trials"`
	AbstractionVersion string    `json:"abstraction_version"`
	StopReason         string    `json:"stop_reason"`
	Checkpoints        []Summary `json:"checkpoints"`
}

// Summary is one checkpoint's recorded progress.
type Summary struct {
	Iteration    int                `json:"iteration"`
	InfosetCount int                `json:"infoset_count"`
	Drift        float64            `json:"drift"`
	Throughput   float64            `json:"throughput_iters_per_sec"`
	HeapBytes    uint64             `json:"heap_bytes"`
	Evaluation   map[string]float64 `json:"evaluation"`
}

// Blueprint is a persisted infoset -> 8-action probability vector table,
// action-ordered per engine.Actions, each probability rounded to 8
// decimals as the strategy file format requires.
type Blueprint struct {
	Meta   Meta                  `json:"meta"`
	Policy map[string][8]float64 `json:"policy"`
}

// Save writes the blueprint as JSON to path.
func (b *Blueprint) Save(path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("solver: marshal blueprint: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadBlueprint reads a blueprint JSON file.
func LoadBlueprint(path string) (*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("solver: read blueprint: %w", err)
	}
	var b Blueprint
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("solver: unmarshal blueprint: %w", err)
	}
	return &b, nil
}

// Strategy returns the probability vector for key, and false if the key
// isn't present (MissingPrior: callers fall back to EV-only scoring).
func (b *Blueprint) Strategy(key string) ([8]float64, bool) {
	v, ok := b.Policy[key]
	return v, ok
}

func round8(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}

// ExportPolicy builds a Blueprint's policy map from a regret table's
// average strategies, rounding every probability to 8 decimals.
func ExportPolicy(table *RegretTable) map[string][8]float64 {
	raw := table.Snapshot()
	out := make(map[string][8]float64, len(raw))
	for k, v := range raw {
		var rounded [8]float64
		for i, p := range v {
			rounded[i] = round8(p)
		}
		out[k] = rounded
	}
	return out
}

// Drift computes the average L1 distance between two checkpoints'
// policies over the union of keys. A key missing from one side compares
// against the uniform distribution over the other side's support.
func Drift(prev, cur map[string][8]float64) float64 {
	keys := make(map[string]struct{}, len(prev)+len(cur))
	for k := range prev {
		keys[k] = struct{}{}
	}
	for k := range cur {
		keys[k] = struct{}{}
	}
	if len(keys) == 0 {
		return 0
	}
	var total float64
	for k := range keys {
		a, aok := prev[k]
		b, bok := cur[k]
		if !aok {
			a = uniformOverSupport(b)
		}
		if !bok {
			b = uniformOverSupport(a)
		}
		var l1 float64
		for i := 0; i < numActions; i++ {
			l1 += math.Abs(a[i] - b[i])
		}
		total += l1
	}
	return total / float64(len(keys))
}

func uniformOverSupport(v [8]float64) [8]float64 {
	n := 0
	for _, p := range v {
		if p > 0 {
			n++
		}
	}
	if n == 0 {
		return v
	}
	var out [8]float64
	u := 1.0 / float64(n)
	for i, p := range v {
		if p > 0 {
			out[i] = u
		}
	}
	return out
}

const (
	evBlend   = 0.4
	probFloor = 1e-4

	postflopTemperature = 0.30
	preflopTemperature  = 0.40
)

// Blend combines a blueprint prior with EV scores as
// score(a) = evBlend*EV(a) + (1-evBlend)*log(max(floor, prior(a))),
// softmaxes the result, and either returns the argmax (within a 0.05
// tolerance of the top score, tie-broken less aggressive) or samples
// from the distribution.
func Blend(prior [8]float64, ev map[engine.Action]float64, legal []engine.Action, preflop bool, rng *rand.Rand, sample bool) engine.Action {
	temp := postflopTemperature
	if preflop {
		temp = preflopTemperature
	}

	scores := make(map[engine.Action]float64, len(legal))
	best := legal[0]
	var bestScore float64
	first := true
	for _, a := range legal {
		p := math.Max(probFloor, prior[a])
		s := evBlend*ev[a] + (1-evBlend)*math.Log(p)
		scores[a] = s
		if first || s > bestScore {
			bestScore = s
			best = a
			first = false
		}
	}

	if !sample {
		for _, a := range legal {
			if bestScore-scores[a] <= 0.05 && a.Aggression() < best.Aggression() {
				best = a
			}
		}
		return best
	}

	probs := make(map[engine.Action]float64, len(legal))
	var sum float64
	for _, a := range legal {
		p := math.Exp((scores[a] - bestScore) / temp)
		probs[a] = p
		sum += p
	}
	draw := rng.Float64() * sum
	var cum float64
	sortedLegal := append([]engine.Action(nil), legal...)
	sort.Slice(sortedLegal, func(i, j int) bool { return sortedLegal[i] < sortedLegal[j] })
	for _, a := range sortedLegal {
		cum += probs[a]
		if draw <= cum {
			return a
		}
	}
	return best
}

package solver

import (
	"math/rand"

	"github.com/lox/huholdem/internal/classify"
	"github.com/lox/huholdem/internal/engine"
	"github.com/lox/huholdem/internal/equity"
	"github.com/lox/huholdem/internal/infoset"
	"github.com/lox/huholdem/internal/preflop"
	"github.com/lox/huholdem/poker"
)

func preflopContext(s *engine.State) preflop.Context {
	if s.Raises == 0 {
		return preflop.Unopened
	}
	return preflop.FacingRaise
}

// playPreflop advances state through the preflop betting round using the
// heuristic mix for both seats, landing on a postflop node or a terminal
// fold. CFR only traverses the postflop game tree, seeded by this
// preflop rollout.
func playPreflop(s *engine.State, eq *equity.Estimator, trials int, rng *rand.Rand) {
	for s.StreetIdx == engine.Preflop && !s.Terminal {
		legal := s.LegalActions()
		hole := s.Deal.Hole[s.ToAct]
		hs := eq.Estimate(hole, s.Board(), poker.Hand(0), trials, rng).Equity
		tier := classify.ClassifyHole(hole.Cards()[0], hole.Cards()[1])
		mix := preflop.Weights(tier, preflopContext(s), hs, preflop.OpponentTendency{}, legal)
		a := preflop.Sample(mix, nil, legal, rng)
		if err := s.Apply(a); err != nil {
			// Should never occur: Sample only returns actions from legal.
			_ = s.Apply(engine.Fold)
			return
		}
	}
}

// traverse runs external-sampling CFR for traverser from a postflop
// state, returning the traverser's utility in big blinds.
func (tr *Trainer) traverse(s *engine.State, traverser int, iteration int, rng *rand.Rand) float64 {
	if s.Terminal {
		return s.Payoff(traverser) / tr.Params.BigBlind
	}

	actor := s.ToAct
	legal := s.LegalActions()
	hole := s.Deal.Hole[actor]
	hs := tr.Equity.Estimate(hole, s.Board(), poker.Hand(0), tr.EquityTrials, rng).Equity
	key := infoset.Key(s, hs)
	entry := tr.Regrets.Get(key)
	legal = tr.gateRaises(legal, entry)
	strategy := restrictStrategy(entry.Strategy(), legal)

	if actor == traverser {
		var utils [numActions]float64
		var nodeUtil float64
		for _, a := range legal {
			child := cloneAndApply(s, a)
			u := tr.traverse(child, traverser, iteration, rng)
			utils[a] = u
			nodeUtil += strategy[a] * u
		}
		var regret [numActions]float64
		for _, a := range legal {
			regret[a] = utils[a] - nodeUtil
		}
		entry.Update(legal, regret, strategy, 1.0, iteration)
		return nodeUtil
	}

	a := sampleByStrategy(legal, strategy, rng)
	entry.AccumulateStrategy(legal, strategy, 1.0)
	child := cloneAndApply(s, a)
	return tr.traverse(child, traverser, iteration, rng)
}

// gateRaises withholds an infoset's raise sizes until it has been
// visited Config.AdaptiveRaiseVisits times; disabled when the knob is
// zero.
func (tr *Trainer) gateRaises(legal []engine.Action, entry *RegretEntry) []engine.Action {
	n := tr.Config.AdaptiveRaiseVisits
	if n <= 0 || entry.Visits() >= int64(n) {
		return legal
	}
	out := make([]engine.Action, 0, len(legal))
	for _, a := range legal {
		if a == engine.RaiseHalf || a == engine.RaisePot {
			continue
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return legal
	}
	return out
}

// restrictStrategy renormalizes a strategy vector over the node's actual
// legal actions; the entry's own mask is the union of every legal set
// this key has been reached with, which can be wider than this node's.
func restrictStrategy(strat [numActions]float64, legal []engine.Action) [numActions]float64 {
	var out [numActions]float64
	var sum float64
	for _, a := range legal {
		sum += strat[a]
	}
	if sum <= 0 {
		u := 1.0 / float64(len(legal))
		for _, a := range legal {
			out[a] = u
		}
		return out
	}
	for _, a := range legal {
		out[a] = strat[a] / sum
	}
	return out
}

func cloneAndApply(s *engine.State, a engine.Action) *engine.State {
	clone := *s
	clone.History = append([]engine.Action(nil), s.History...)
	if err := clone.Apply(a); err != nil {
		panic(err)
	}
	return &clone
}

func sampleByStrategy(legal []engine.Action, strategy [numActions]float64, rng *rand.Rand) engine.Action {
	var sum float64
	for _, a := range legal {
		sum += strategy[a]
	}
	if sum <= 0 {
		return legal[rng.Intn(len(legal))]
	}
	draw := rng.Float64() * sum
	var cum float64
	for _, a := range legal {
		cum += strategy[a]
		if draw <= cum {
			return a
		}
	}
	return legal[len(legal)-1]
}

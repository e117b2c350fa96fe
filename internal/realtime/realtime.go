// Package realtime implements the short-horizon, time-budgeted DCFR
// subgame solve that runs at decision time on turn/river nodes with big
// enough pots or low enough stack-to-pot ratios: regret-matching
// blended with the blueprint prior, a noisy EV leaf model in place of
// full terminal enumeration, and a millisecond wall-clock budget on an
// injectable github.com/coder/quartz clock.
package realtime

import (
	"math"
	"math/rand"

	"github.com/coder/quartz"

	"github.com/lox/huholdem/internal/belief"
	"github.com/lox/huholdem/internal/classify"
	"github.com/lox/huholdem/internal/engine"
	"github.com/lox/huholdem/internal/score"
	"github.com/lox/huholdem/internal/solver"
)

// Config are the realtime solver's tunable knobs.
type Config struct {
	TriggerPot  float64
	TriggerSPR  float64
	SubgameMS   int
	PriorWeight float64
	Depth       int
}

// DefaultConfig returns the realtime solver's default knobs.
func DefaultConfig() Config {
	return Config{
		TriggerPot:  60,
		TriggerSPR:  4,
		SubgameMS:   300,
		PriorWeight: 0.65,
		Depth:       5,
	}
}

func clampMS(ms int) int {
	if ms < 200 {
		return 200
	}
	if ms > 800 {
		return 800
	}
	return ms
}

// Triggered reports whether the realtime subgame should run for the
// current node: turn or river, pot at or above the pot threshold or SPR
// at or below the SPR threshold, and betting not already closed all-in (nothing left to
// solve once no further action is possible).
func Triggered(s *engine.State, cfg Config) bool {
	if s.Terminal {
		return false
	}
	if s.StreetIdx != engine.Turn && s.StreetIdx != engine.River {
		return false
	}
	if closedAllIn(s) {
		return false
	}
	spr := classify.SPR(s.Stack[s.ToAct], s.Pot)
	return s.Pot >= cfg.TriggerPot || spr <= cfg.TriggerSPR
}

func closedAllIn(s *engine.State) bool {
	return s.Stack[0] <= 1e-9 || s.Stack[1] <= 1e-9
}

// Result is the subgame solve's output: the averaged strategy over the
// current node's legal actions (summing to 1, zero on every non-legal
// action) and the argmax pick.
type Result struct {
	Strategy   map[engine.Action]float64
	Chosen     engine.Action
	Iterations int
}

// projectPrior restricts a blueprint prior vector to the current node's
// legal actions and renormalizes; uniform over legal actions if the
// prior carries no mass there (MissingPrior / prior absent entirely).
func projectPrior(prior [8]float64, hasPrior bool, legal []engine.Action) map[engine.Action]float64 {
	out := make(map[engine.Action]float64, len(legal))
	var sum float64
	if hasPrior {
		for _, a := range legal {
			out[a] = prior[a]
			sum += prior[a]
		}
	}
	if sum <= 0 {
		u := 1.0 / float64(len(legal))
		for _, a := range legal {
			out[a] = u
		}
		return out
	}
	for _, a := range legal {
		out[a] /= sum
	}
	return out
}

func regretMatch(regretSum map[engine.Action]float64, legal []engine.Action) map[engine.Action]float64 {
	strat := make(map[engine.Action]float64, len(legal))
	var total float64
	for _, a := range legal {
		if regretSum[a] > 0 {
			strat[a] = regretSum[a]
			total += regretSum[a]
		}
	}
	if total <= 0 {
		u := 1.0 / float64(len(legal))
		for _, a := range legal {
			strat[a] = u
		}
		return strat
	}
	for _, a := range legal {
		strat[a] /= total
	}
	return strat
}

// leafEV prices one legal action per the EV scorer's base formula, plus
// the subgame's three leaf-model terms: a small Gaussian sizing-noise
// term, a depth continuation term that lets hand strength influence
// future streets without simulating them, and a tension penalty that
// discounts large commitments.
func leafEV(state *engine.State, a engine.Action, hs float64, texture classify.Texture, rates score.ObservedRates, bel belief.Belief, depth int, rng *rand.Rand) float64 {
	base := score.ScoreActions(state, hs, texture, rates, bel, []engine.Action{a})[a]

	pot := math.Max(1, state.Pot)
	noise := rng.NormFloat64() * 0.004 * pot

	strongTilt := bel.Tilt()
	continuation := (hs - 0.5 - 0.25*strongTilt) * pot * 0.24 * float64(depth-1) / float64(depth)

	pay := state.Cost(a)
	tension := 0.06 * (pay / pot) * pay

	return base + noise + continuation - tension
}

// Solve runs the time-budgeted DCFR re-solve at the current node:
// regret-matching blended with the projected blueprint prior at weight
// cfg.PriorWeight, leaf EV sampled fresh every iteration, and discounted
// regret/strategy-sum accumulation identical to the offline trainer's
// schedule. It exits cleanly once the wall clock budget elapses,
// returning the averaged strategy so far (never partial or invalid:
// at least one iteration always runs before the first clock check).
func Solve(clock quartz.Clock, state *engine.State, hs float64, texture classify.Texture, rates score.ObservedRates, bel belief.Belief, prior [8]float64, hasPrior bool, cfg Config, rng *rand.Rand) Result {
	legal := state.LegalActions()
	if len(legal) == 0 {
		return Result{Strategy: map[engine.Action]float64{}, Chosen: engine.Fold}
	}
	if len(legal) == 1 {
		return Result{Strategy: map[engine.Action]float64{legal[0]: 1}, Chosen: legal[0], Iterations: 1}
	}

	priorWeight := cfg.PriorWeight
	depth := cfg.Depth
	if depth < 1 {
		depth = 1
	}
	projected := projectPrior(prior, hasPrior, legal)

	regretSum := make(map[engine.Action]float64, len(legal))
	strategySum := make(map[engine.Action]float64, len(legal))

	budget := clampMS(cfg.SubgameMS)
	start := clock.Now()
	iter := 0

	for {
		iter++
		matched := regretMatch(regretSum, legal)
		strategy := make(map[engine.Action]float64, len(legal))
		for _, a := range legal {
			strategy[a] = (1-priorWeight)*matched[a] + priorWeight*projected[a]
		}

		ev := make(map[engine.Action]float64, len(legal))
		var nodeUtil float64
		for _, a := range legal {
			ev[a] = leafEV(state, a, hs, texture, rates, bel, depth, rng)
			nodeUtil += strategy[a] * ev[a]
		}

		pos, neg := solver.DCFRMultipliers(iter)
		for _, a := range legal {
			if regretSum[a] > 0 {
				regretSum[a] *= pos
			} else {
				regretSum[a] *= neg
			}
			regretSum[a] += ev[a] - nodeUtil
			strategySum[a] += strategy[a]
		}

		elapsedMS := clock.Since(start).Milliseconds()
		if elapsedMS >= int64(budget) {
			break
		}
	}

	var total float64
	for _, a := range legal {
		total += strategySum[a]
	}
	out := make(map[engine.Action]float64, len(legal))
	if total <= 0 {
		u := 1.0 / float64(len(legal))
		for _, a := range legal {
			out[a] = u
		}
	} else {
		for _, a := range legal {
			out[a] = strategySum[a] / total
		}
	}

	chosen := legal[0]
	best := out[chosen]
	for _, a := range legal[1:] {
		if out[a] > best {
			best = out[a]
			chosen = a
		}
	}

	return Result{Strategy: out, Chosen: chosen, Iterations: iter}
}

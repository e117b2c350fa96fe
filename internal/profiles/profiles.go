// Package profiles implements the four fixed rule-based opponents used
// to evaluate blueprint checkpoints and drive evaluation hands: nit,
// station, aggro, and pot_odds. Each choice is a deterministic function
// of (legal actions, to_call, pot, uniform draws).
package profiles

import (
	"math/rand"

	"github.com/lox/huholdem/internal/engine"
	"github.com/lox/huholdem/internal/score"
)

// Decision is a bot decision record: the chosen action plus a short
// rationale for logging.
type Decision struct {
	Action    engine.Action
	Reasoning string
}

// Profile is a deterministic (given its rng draws) policy over legal
// actions, used only for fixed-opponent evaluation, never for the
// blueprint or realtime solver.
type Profile interface {
	Name() string
	Act(legal []engine.Action, toCall, pot float64, rng *rand.Rand) Decision
}

func has(legal []engine.Action, a engine.Action) bool {
	for _, x := range legal {
		if x == a {
			return true
		}
	}
	return false
}

func pick(legal []engine.Action, candidates ...engine.Action) (engine.Action, bool) {
	for _, c := range candidates {
		if has(legal, c) {
			return c, true
		}
	}
	return engine.Fold, false
}

// Nit is tight and fold-heavy: checks when free, folds most bets, rarely
// raises even with the option.
type Nit struct{}

func (Nit) Name() string { return "nit" }

func (Nit) Act(legal []engine.Action, toCall, pot float64, rng *rand.Rand) Decision {
	if toCall <= 1e-9 {
		if rng.Float64() < 0.05 {
			if a, ok := pick(legal, engine.RaiseHalf, engine.BetHalf); ok {
				return Decision{a, "nit rare value bet"}
			}
		}
		if a, ok := pick(legal, engine.Check); ok {
			return Decision{a, "nit checking"}
		}
	}
	roll := rng.Float64()
	switch {
	case roll < 0.70:
		if a, ok := pick(legal, engine.Fold); ok {
			return Decision{a, "nit folding to pressure"}
		}
	case roll < 0.95:
		if a, ok := pick(legal, engine.Call); ok {
			return Decision{a, "nit calling"}
		}
	default:
		if a, ok := pick(legal, engine.RaiseHalf, engine.RaisePot); ok {
			return Decision{a, "nit raising a monster"}
		}
	}
	return fallback(legal)
}

// Station calls far too often and rarely folds or raises.
type Station struct{}

func (Station) Name() string { return "station" }

func (Station) Act(legal []engine.Action, toCall, pot float64, rng *rand.Rand) Decision {
	if toCall <= 1e-9 {
		if rng.Float64() < 0.40 {
			if a, ok := pick(legal, engine.BetHalf, engine.RaiseHalf); ok {
				return Decision{a, "station leading small"}
			}
		}
		if a, ok := pick(legal, engine.Check); ok {
			return Decision{a, "station checking"}
		}
	}
	roll := rng.Float64()
	switch {
	case roll < 0.80:
		if a, ok := pick(legal, engine.Call); ok {
			return Decision{a, "station calling down"}
		}
	case roll < 0.95:
		if a, ok := pick(legal, engine.RaiseHalf); ok {
			return Decision{a, "station raising"}
		}
	}
	if a, ok := pick(legal, engine.Fold); ok {
		return Decision{a, "station folding reluctantly"}
	}
	return fallback(legal)
}

// Aggro bets and raises as its default, folding only rarely.
type Aggro struct{}

func (Aggro) Name() string { return "aggro" }

func (Aggro) Act(legal []engine.Action, toCall, pot float64, rng *rand.Rand) Decision {
	if toCall <= 1e-9 {
		if rng.Float64() < 0.70 {
			if a, ok := pick(legal, engine.RaisePot, engine.BetPot, engine.RaiseHalf, engine.BetHalf); ok {
				return Decision{a, "aggro betting"}
			}
		}
		if a, ok := pick(legal, engine.Check); ok {
			return Decision{a, "aggro checking"}
		}
	}
	roll := rng.Float64()
	switch {
	case roll < 0.50:
		if a, ok := pick(legal, engine.RaisePot, engine.RaiseHalf, engine.AllIn); ok {
			return Decision{a, "aggro reraising"}
		}
	case roll < 0.85:
		if a, ok := pick(legal, engine.Call); ok {
			return Decision{a, "aggro calling"}
		}
	}
	if a, ok := pick(legal, engine.Fold); ok {
		return Decision{a, "aggro folding"}
	}
	return fallback(legal)
}

// PotOdds calls iff the pot odds it's being offered meet a 0.33
// break-even equity threshold; it never bluffs and never raises.
type PotOdds struct{}

func (PotOdds) Name() string { return "pot_odds" }

func (PotOdds) Act(legal []engine.Action, toCall, pot float64, rng *rand.Rand) Decision {
	if toCall <= 1e-9 {
		if a, ok := pick(legal, engine.Check); ok {
			return Decision{a, "pot_odds checking"}
		}
		return fallback(legal)
	}
	reqEq := score.RequiredEquity(pot, toCall)
	if reqEq <= 0.33 {
		if a, ok := pick(legal, engine.Call); ok {
			return Decision{a, "pot_odds call: price is right"}
		}
	}
	if a, ok := pick(legal, engine.Fold); ok {
		return Decision{a, "pot_odds fold: price is wrong"}
	}
	return fallback(legal)
}

func fallback(legal []engine.Action) Decision {
	if len(legal) == 0 {
		return Decision{engine.Fold, "no legal actions"}
	}
	return Decision{legal[0], "fallback to first legal action"}
}

// All returns the four evaluation profiles the checkpoint step runs
// against, in fixed order.
func All() []Profile {
	return []Profile{Nit{}, Station{}, Aggro{}, PotOdds{}}
}

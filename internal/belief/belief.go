// Package belief tracks a per-seat, per-hand categorical range belief
// over {weak, medium, strong} and exposes the hand-strength conditioning
// the EV scorer and preflop mix read. Beliefs start uniform at deal time
// and shift with every observed action.
package belief

import "github.com/lox/huholdem/internal/engine"

// Belief is a probability triple over {weak, medium, strong}, always
// kept normalized to sum 1.
type Belief struct {
	Weak, Medium, Strong float64
}

// Uniform returns the belief prior a fresh hand starts with.
func Uniform() Belief {
	return Belief{Weak: 1.0 / 3, Medium: 1.0 / 3, Strong: 1.0 / 3}
}

type delta struct{ w, m, s float64 }

var (
	facingBetFold       = delta{0.20, 0.04, -0.24}
	facingBetPassive    = delta{-0.05, 0.12, -0.07}
	facingBetAggressive = delta{-0.16, -0.04, 0.20}

	unopenedCheck      = delta{0.10, 0.02, -0.12}
	unopenedAggressive = delta{-0.12, -0.02, 0.14}
)

func isAggressive(a engine.Action) bool {
	switch a {
	case engine.BetHalf, engine.BetPot, engine.RaiseHalf, engine.RaisePot, engine.AllIn:
		return true
	default:
		return false
	}
}

// Update applies the observed action's Δ to the belief, given whether
// the acting seat was facing a bet, then renormalizes (clamping any
// negative mass to zero first).
func (b Belief) Update(action engine.Action, facingBet bool) Belief {
	var d delta
	switch {
	case facingBet && action == engine.Fold:
		d = facingBetFold
	case facingBet && isAggressive(action):
		d = facingBetAggressive
	case facingBet:
		d = facingBetPassive
	case action == engine.Check:
		d = unopenedCheck
	case isAggressive(action):
		d = unopenedAggressive
	default:
		return b.normalize()
	}

	b.Weak += d.w
	b.Medium += d.m
	b.Strong += d.s
	return b.normalize()
}

func (b Belief) normalize() Belief {
	if b.Weak < 0 {
		b.Weak = 0
	}
	if b.Medium < 0 {
		b.Medium = 0
	}
	if b.Strong < 0 {
		b.Strong = 0
	}
	sum := b.Weak + b.Medium + b.Strong
	if sum <= 0 {
		return Uniform()
	}
	b.Weak /= sum
	b.Medium /= sum
	b.Strong /= sum
	return b
}

// ConditionedEquity adjusts a raw hand-strength estimate by the belief's
// strong/weak tilt and medium-mass deviation from its uniform third.
func ConditionedEquity(hs float64, b Belief) float64 {
	adjusted := hs + (-0.11*(b.Strong-b.Weak) + 0.02*(b.Medium-0.33))
	if adjusted < 0.001 {
		return 0.001
	}
	if adjusted > 0.999 {
		return 0.999
	}
	return adjusted
}

// Tilt returns the strong-minus-weak signal the EV scorer's response-rate
// correction reads.
func (b Belief) Tilt() float64 {
	return b.Strong - b.Weak
}

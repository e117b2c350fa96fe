// Package preflop implements the preflop heuristic action mix: a
// tier-by-context base table corrected for equity and observed opponent
// tendencies, then blended with EV scores into a sampled action.
package preflop

import (
	"math"
	"math/rand"

	"github.com/lox/huholdem/internal/classify"
	"github.com/lox/huholdem/internal/engine"
)

// Context distinguishes the two preflop situations the base table covers.
type Context int

const (
	Unopened Context = iota
	FacingRaise
)

// Triple is the coarse raise/call/passive mass a tier+context maps to,
// before equity and opponent-tendency corrections and before the raise
// mass is split across sizes.
type Triple struct {
	Raise, Call, Passive float64
}

var baseTable = map[classify.Tier]map[Context]Triple{
	classify.TierPremium: {
		Unopened:    {Raise: 0.85, Call: 0.10, Passive: 0.05},
		FacingRaise: {Raise: 0.70, Call: 0.25, Passive: 0.05},
	},
	classify.TierStrong: {
		Unopened:    {Raise: 0.55, Call: 0.35, Passive: 0.10},
		FacingRaise: {Raise: 0.30, Call: 0.45, Passive: 0.25},
	},
	classify.TierMedium: {
		Unopened:    {Raise: 0.25, Call: 0.45, Passive: 0.30},
		FacingRaise: {Raise: 0.10, Call: 0.35, Passive: 0.55},
	},
	classify.TierSpeculative: {
		Unopened:    {Raise: 0.10, Call: 0.40, Passive: 0.50},
		FacingRaise: {Raise: 0.03, Call: 0.15, Passive: 0.82},
	},
	classify.TierTrash: {
		Unopened:    {Raise: 0.02, Call: 0.08, Passive: 0.90},
		FacingRaise: {Raise: 0.00, Call: 0.02, Passive: 0.98},
	},
}

const (
	equityCorrectionLow  = 0.42
	equityCorrectionHigh = 0.62
	equityCorrectionMass = 0.08

	threeBetHighRate = 0.28
	threeBetLowRate  = 0.10
	tendencyMass     = 0.07

	allInHSThreshold = 0.80
	allInMass        = 0.05
)

// OpponentTendency carries the observed preflop rates the correction
// step conditions on.
type OpponentTendency struct {
	ThreeBetRate float64
	CallRate     float64
	Samples      int
}

// Base returns the tier/context entry, defensively zero-valued if
// either key is unrecognized.
func Base(tier classify.Tier, ctx Context) Triple {
	return baseTable[tier][ctx]
}

// applyEquityCorrection shifts up to 0.08 of mass toward passive play
// when hs is weak and toward raising when hs is strong.
func applyEquityCorrection(t Triple, hs float64) Triple {
	switch {
	case hs < equityCorrectionLow:
		shiftFromRaiseCall := math.Min(equityCorrectionMass, t.Raise+t.Call)
		fromRaise := shiftFromRaiseCall * proportion(t.Raise, t.Raise+t.Call)
		fromCall := shiftFromRaiseCall - fromRaise
		t.Raise -= fromRaise
		t.Call -= fromCall
		t.Passive += shiftFromRaiseCall
	case hs > equityCorrectionHigh:
		shift := math.Min(equityCorrectionMass, t.Passive)
		t.Passive -= shift
		t.Raise += shift
	}
	return t
}

// applyOpponentCorrection tilts the mix when the opponent's observed
// 3-bet/call behavior is extreme enough to act on; a handful of observed
// hands are required before the read is trusted.
func applyOpponentCorrection(t Triple, o OpponentTendency) Triple {
	if o.Samples < 8 {
		return t
	}
	switch {
	case o.ThreeBetRate > threeBetHighRate:
		shift := math.Min(tendencyMass, t.Raise)
		t.Raise -= shift
		t.Call += shift
	case o.ThreeBetRate < threeBetLowRate && o.CallRate > 0.5:
		shift := math.Min(tendencyMass, t.Passive)
		t.Passive -= shift
		t.Raise += shift
	}
	return t
}

func proportion(part, whole float64) float64 {
	if whole <= 0 {
		return 0.5
	}
	return part / whole
}

// Weights computes the normalized action-probability mix over the legal
// actions at a preflop node: base tier/context triple, equity and
// opponent-tendency corrections, raise-mass split across RAISE_HALF/
// RAISE_POT, and a small carve-out of ALL_IN mass for very strong hands.
func Weights(tier classify.Tier, ctx Context, hs float64, tendency OpponentTendency, legal []engine.Action) map[engine.Action]float64 {
	t := Base(tier, ctx)
	t = applyEquityCorrection(t, hs)
	t = applyOpponentCorrection(t, tendency)

	out := make(map[engine.Action]float64, len(legal))

	raiseMass := t.Raise
	allInCarve := 0.0
	if hs > allInHSThreshold && legalHas(legal, engine.AllIn) {
		allInCarve = math.Min(allInMass, raiseMass)
		raiseMass -= allInCarve
	}

	// Premium hands lean toward the pot-size raise, strong hands split
	// evenly, and weaker tiers that still raise lean toward the cheaper
	// half-pot size.
	potShare := 0.4
	switch tier {
	case classify.TierPremium:
		potShare = 0.6
	case classify.TierStrong:
		potShare = 0.5
	}

	if legalHas(legal, engine.RaiseHalf) {
		out[engine.RaiseHalf] = raiseMass * (1 - potShare)
	}
	if legalHas(legal, engine.RaisePot) {
		out[engine.RaisePot] = raiseMass * potShare
	}
	if legalHas(legal, engine.AllIn) {
		out[engine.AllIn] += allInCarve
	}
	if legalHas(legal, engine.Call) {
		out[engine.Call] = t.Call
	}
	if legalHas(legal, engine.Fold) {
		out[engine.Fold] = t.Passive
	}
	if legalHas(legal, engine.Check) {
		out[engine.Check] = t.Passive
	}

	normalize(out)
	return out
}

func legalHas(legal []engine.Action, a engine.Action) bool {
	for _, x := range legal {
		if x == a {
			return true
		}
	}
	return false
}

func normalize(w map[engine.Action]float64) {
	var sum float64
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		if len(w) == 0 {
			return
		}
		u := 1.0 / float64(len(w))
		for a := range w {
			w[a] = u
		}
		return
	}
	for a := range w {
		w[a] /= sum
	}
}

const (
	sampleBlend       = 0.55
	sampleTemperature = 0.85
	sampleFloor       = 1e-4
)

// Sample blends the heuristic mix with EV scores into a softmax
// distribution (blend=0.55, temperature=0.85) and draws an action from
// it. ev may be nil or incomplete; missing entries score as 0.
func Sample(mix map[engine.Action]float64, ev map[engine.Action]float64, legal []engine.Action, rng *rand.Rand) engine.Action {
	if len(legal) == 0 {
		return engine.Fold
	}
	scores := make(map[engine.Action]float64, len(legal))
	var maxScore float64
	first := true
	for _, a := range legal {
		m := math.Max(sampleFloor, mix[a])
		score := sampleBlend*ev[a] + (1-sampleBlend)*math.Log(m)
		scores[a] = score
		if first || score > maxScore {
			maxScore = score
			first = false
		}
	}

	var sum float64
	probs := make(map[engine.Action]float64, len(legal))
	for _, a := range legal {
		p := math.Exp((scores[a] - maxScore) / sampleTemperature)
		probs[a] = p
		sum += p
	}

	draw := rng.Float64() * sum
	var cumulative float64
	for _, a := range legal {
		cumulative += probs[a]
		if draw <= cumulative {
			return a
		}
	}
	return legal[len(legal)-1]
}

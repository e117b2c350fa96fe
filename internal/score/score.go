// Package score computes per-action expected value for postflop nodes,
// applies deterministic risk penalties and the conservative override,
// and selects a final action. Bet and raise EVs come from an
// opponent-response model tilted by observed tendencies and the current
// range belief.
package score

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/lox/huholdem/internal/belief"
	"github.com/lox/huholdem/internal/classify"
	"github.com/lox/huholdem/internal/engine"
)

// ObservedRates are a seat's empirical postflop response rates to a bet,
// blended into the opponent-response model once enough hands are seen.
type ObservedRates struct {
	Fold, Call, Raise float64
	Samples           int
}

// Decision is the scorer's output: the selected action, the per-action
// EV map it was chosen from, and a short human-readable rationale.
type Decision struct {
	Action    engine.Action
	Scores    map[engine.Action]float64
	Reasoning string
}

// RequiredEquity is the pot-odds break-even equity for calling the
// current bet; zero when nothing is owed.
func RequiredEquity(pot, toCall float64) float64 {
	if toCall <= 1e-9 {
		return 0
	}
	return toCall / (pot + toCall)
}

// PreFilter removes dominated or reckless actions before scoring, and
// restores the original legal set (with a warning) if it over-filters
// down to nothing (EmptyLegalSet).
func PreFilter(state *engine.State, hs, reqEq float64, texture classify.Texture, legal []engine.Action) []engine.Action {
	spr := classify.SPR(state.Stack[state.ToAct], state.Pot)
	filtered := make([]engine.Action, 0, len(legal))
	for _, a := range legal {
		switch {
		case a == engine.Fold && hs > reqEq+0.02:
			continue
		case a == engine.AllIn && (spr > 10 || (spr > 2 && hs < 0.70)):
			continue
		case (a == engine.BetPot || a == engine.RaisePot) && hs < 0.60:
			continue
		}
		filtered = append(filtered, a)
	}
	if len(filtered) == 0 {
		log.Warn().Msg("empty_legal_set: pre-filter removed every action, restoring full legal set")
		return legal
	}
	return filtered
}

func realizeFactor(texture classify.Texture) float64 {
	wet := texture.TwoTone || texture.Monotone || texture.Connected
	switch {
	case wet:
		return 0.90
	case texture.Paired:
		return 0.95
	default:
		return 0.93
	}
}

// opponentResponse derives a {fold, call, raise} categorical from the
// equity the opponent needs to continue profitably and the bet's sizing
// fraction of pot, then tilts it by observed tendency (once trusted) and
// by the current range belief's strong/weak skew.
func opponentResponse(oppReq, sizingFraction float64, rates ObservedRates, bel belief.Belief) (pFold, pCall, pRaise float64) {
	pFold = clamp(0.15+oppReq*0.9+sizingFraction*0.15, 0.05, 0.85)
	pRaise = clamp(0.08-oppReq*0.05, 0.02, 0.15)
	pCall = 1 - pFold - pRaise
	if pCall < 0 {
		pCall = 0
	}

	if rates.Samples >= 8 {
		const w = 0.4
		pFold = (1-w)*pFold + w*rates.Fold
		pCall = (1-w)*pCall + w*rates.Call
		pRaise = (1-w)*pRaise + w*rates.Raise
	}

	tilt := bel.Tilt()
	pCall += 0.18 * tilt
	pRaise += 0.10 * tilt
	pFold -= 0.28 * tilt

	pFold = clamp(pFold, 0, 1)
	pCall = clamp(pCall, 0, 1)
	pRaise = clamp(pRaise, 0, 1)
	sum := pFold + pCall + pRaise
	if sum <= 0 {
		return 1, 0, 0
	}
	return pFold / sum, pCall / sum, pRaise / sum
}

func applyPenalties(ev float64, a engine.Action, hs, spr float64, texture classify.Texture, pot float64) float64 {
	marginal := hs >= 0.4 && hs <= 0.65
	raiseLike := a == engine.RaiseHalf || a == engine.RaisePot || a == engine.AllIn
	aggressive := raiseLike || a == engine.BetHalf || a == engine.BetPot
	dry := !texture.TwoTone && !texture.Monotone && !texture.Connected

	if marginal && spr > 2 && raiseLike {
		ev -= 0.15 * pot
	}
	if texture.Paired && marginal && aggressive {
		ev -= 0.10 * pot
	}
	if dry && (a == engine.BetPot || a == engine.RaisePot) {
		ev -= 0.12 * pot
	}
	if a == engine.AllIn && spr > 6 {
		ev -= 0.30 * pot
	}
	return ev
}

// ScoreActions computes expected value for every action in legal.
func ScoreActions(state *engine.State, hs float64, texture classify.Texture, rates ObservedRates, bel belief.Belief, legal []engine.Action) map[engine.Action]float64 {
	pot := state.Pot
	toCall := state.ToCall()
	spr := classify.SPR(state.Stack[state.ToAct], pot)
	realize := realizeFactor(texture)

	scores := make(map[engine.Action]float64, len(legal))
	for _, a := range legal {
		switch a {
		case engine.Fold:
			scores[a] = 0
		case engine.Check:
			scores[a] = hs * pot
		case engine.Call:
			scores[a] = (hs*pot - (1-hs)*toCall) * realize
		default:
			pay := state.Cost(a)
			oppReq := pay / (pot + 2*pay)
			sizingFraction := pay / math.Max(1, pot)
			pFold, pCall, pRaise := opponentResponse(oppReq, sizingFraction, rates, bel)
			callBranch := hs*(pot+2*pay) - (1-hs)*pay
			ev := pFold*pot + pCall*(hs*(pot+pay)-(1-hs)*pay) + pRaise*(callBranch-0.35*pay)
			scores[a] = applyPenalties(ev, a, hs, spr, texture, pot)
		}
	}
	return scores
}

// SelectAction picks the highest-EV action within a 0.05 tolerance band,
// tie-breaking to the least aggressive candidate.
func SelectAction(scores map[engine.Action]float64, legal []engine.Action) engine.Action {
	best := legal[0]
	bestScore := scores[best]
	for _, a := range legal[1:] {
		if scores[a] > bestScore {
			bestScore = scores[a]
			best = a
		}
	}
	chosen := best
	for _, a := range legal {
		if bestScore-scores[a] <= 0.05 && a.Aggression() < chosen.Aggression() {
			chosen = a
		}
	}
	return chosen
}

func legalHas(legal []engine.Action, a engine.Action) bool {
	for _, x := range legal {
		if x == a {
			return true
		}
	}
	return false
}

// nextLessAggressive returns the most aggressive legal action strictly
// below current's aggression rank, or Check/Fold if nothing qualifies.
func nextLessAggressive(current engine.Action, legal []engine.Action) engine.Action {
	best := engine.Action(-1)
	for _, a := range legal {
		if a.Aggression() < current.Aggression() {
			if best == engine.Action(-1) || a.Aggression() > best.Aggression() {
				best = a
			}
		}
	}
	if best == engine.Action(-1) {
		if legalHas(legal, engine.Check) {
			return engine.Check
		}
		return engine.Fold
	}
	return best
}

// ConservativeOverride applies the post-EV safety rules that can replace
// the scorer's chosen action outright.
func ConservativeOverride(chosen engine.Action, hs, spr, reqEq float64, texture classify.Texture, toCall float64, legal []engine.Action) engine.Action {
	dry := !texture.TwoTone && !texture.Monotone && !texture.Connected

	if texture.Paired && hs > 0.40 && hs < 0.70 && spr > 2 {
		if toCall > 1e-9 && legalHas(legal, engine.Call) {
			return engine.Call
		}
		if legalHas(legal, engine.Check) {
			return engine.Check
		}
	}

	if chosen == engine.AllIn && spr > 1.5 && hs < 0.70 {
		chosen = nextLessAggressive(engine.AllIn, legal)
	}

	if (chosen == engine.BetPot || chosen == engine.RaisePot) && dry && hs < 0.68 {
		chosen = nextLessAggressive(chosen, legal)
	}

	if (chosen == engine.RaiseHalf || chosen == engine.RaisePot) && hs < reqEq+0.18 {
		if legalHas(legal, engine.Call) {
			return engine.Call
		}
	}

	return chosen
}

// Decide runs the full pipeline: pre-filter, EV scoring, selection, and
// the conservative override, for the seat currently to act.
func Decide(state *engine.State, hs float64, texture classify.Texture, rates ObservedRates, bel belief.Belief) Decision {
	legal := state.LegalActions()
	toCall := state.ToCall()
	reqEq := RequiredEquity(state.Pot, toCall)

	filtered := PreFilter(state, hs, reqEq, texture, legal)
	scores := ScoreActions(state, hs, texture, rates, bel, filtered)
	chosen := SelectAction(scores, filtered)

	spr := classify.SPR(state.Stack[state.ToAct], state.Pot)
	final := ConservativeOverride(chosen, hs, spr, reqEq, texture, toCall, legal)

	return Decision{Action: final, Scores: scores, Reasoning: "ev-scored, conservative guard applied"}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

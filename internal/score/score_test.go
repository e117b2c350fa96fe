package score

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/huholdem/internal/belief"
	"github.com/lox/huholdem/internal/classify"
	"github.com/lox/huholdem/internal/engine"
)

func postflopState(t *testing.T) *engine.State {
	t.Helper()
	deal := engine.DealHand(rand.New(rand.NewSource(3)))
	s := engine.NewState(engine.DefaultParams(), deal)
	require.NoError(t, s.Apply(engine.Call))
	require.NoError(t, s.Apply(engine.Check))
	require.Equal(t, engine.Flop, s.StreetIdx)
	return s
}

func TestRequiredEquityZeroWhenUnopened(t *testing.T) {
	assert.Equal(t, 0.0, RequiredEquity(10, 0))
}

func TestRequiredEquityStandardPotOdds(t *testing.T) {
	// to_call=10 into a pot of 20 -> breakeven equity 10/30
	assert.InDelta(t, 1.0/3, RequiredEquity(20, 10), 1e-9)
}

func TestPreFilterRemovesDominatedFold(t *testing.T) {
	s := postflopState(t)
	legal := s.LegalActions() // unopened postflop: no to_call, Fold shouldn't even be legal
	assert.NotContains(t, legal, engine.Fold)
	filtered := PreFilter(s, 0.9, 0, classify.Texture{}, legal)
	assert.NotContains(t, filtered, engine.Fold)
}

func TestPreFilterRestoresOnEmptyResult(t *testing.T) {
	legal := []engine.Action{engine.BetPot}
	s := postflopState(t)
	filtered := PreFilter(s, 0.1, 0, classify.Texture{}, legal) // hs<0.60 removes the only action
	assert.Equal(t, legal, filtered)
}

func TestFoldAlwaysScoresZero(t *testing.T) {
	s := postflopState(t)
	require.NoError(t, s.Apply(engine.BetPot))
	legal := s.LegalActions()
	require.Contains(t, legal, engine.Fold)
	scores := ScoreActions(s, 0.3, classify.Texture{}, ObservedRates{}, belief.Uniform(), legal)
	assert.Equal(t, 0.0, scores[engine.Fold])
}

func TestConservativeOverrideForcesCallOnPairedMarginalBoard(t *testing.T) {
	texture := classify.Texture{Paired: true}
	legal := []engine.Action{engine.Fold, engine.Call, engine.RaiseHalf, engine.RaisePot, engine.AllIn}
	got := ConservativeOverride(engine.RaisePot, 0.55, 3.0, 0.2, texture, 5, legal)
	assert.Equal(t, engine.Call, got)
}

func TestConservativeOverrideDowngradesRiskyAllIn(t *testing.T) {
	legal := []engine.Action{engine.Fold, engine.Call, engine.RaiseHalf, engine.RaisePot, engine.AllIn}
	got := ConservativeOverride(engine.AllIn, 0.5, 2.0, 0.2, classify.Texture{}, 5, legal)
	assert.NotEqual(t, engine.AllIn, got)
}

func TestSelectActionTieBreaksLessAggressive(t *testing.T) {
	legal := []engine.Action{engine.Check, engine.BetHalf, engine.BetPot}
	scores := map[engine.Action]float64{engine.Check: 1.0, engine.BetHalf: 1.02, engine.BetPot: 1.01}
	got := SelectAction(scores, legal)
	assert.Equal(t, engine.Check, got, "within the 0.05 tolerance band, the least aggressive action wins")
}

func TestDecideReturnsLegalAction(t *testing.T) {
	s := postflopState(t)
	d := Decide(s, 0.6, classify.Texture{}, ObservedRates{}, belief.Uniform())
	assert.Contains(t, s.LegalActions(), d.Action)
}

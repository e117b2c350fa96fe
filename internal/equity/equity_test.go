package equity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/huholdem/poker"
)

func mustHand(t *testing.T, ss ...string) poker.Hand {
	t.Helper()
	var h poker.Hand
	for _, s := range ss {
		c, err := poker.ParseCard(s)
		require.NoError(t, err)
		h.AddCard(c)
	}
	return h
}

func TestEstimateDegenerateHeroReturnsCoinFlip(t *testing.T) {
	e := NewEstimator(64)
	var empty poker.Hand
	r := e.Estimate(empty, poker.Hand(0), poker.Hand(0), 200, rand.New(rand.NewSource(1)))
	assert.Equal(t, 0.5, r.Equity)
}

func TestEstimatePocketAcesDominateDeuceThree(t *testing.T) {
	e := NewEstimator(64)
	hero := mustHand(t, "Ah", "Ac")
	opp := mustHand(t, "2d", "3d")
	r := e.Estimate(hero, poker.Hand(0), opp, 400, rand.New(rand.NewSource(1)))
	assert.Greater(t, r.Equity, 0.75)
	assert.Equal(t, 400, r.Total)
}

func TestEstimateIsCachedByCanonicalKey(t *testing.T) {
	e := NewEstimator(64)
	hero := mustHand(t, "Ah", "Kh")
	board := mustHand(t, "2c", "7d", "9h")
	r1 := e.Estimate(hero, board, poker.Hand(0), 300, rand.New(rand.NewSource(2)))
	r2 := e.Estimate(hero, board, poker.Hand(0), 300, rand.New(rand.NewSource(99)))
	assert.Equal(t, r1, r2, "a cached lookup must ignore the rng used on the second call")
	assert.Equal(t, int64(1), e.Rollouts(), "second query must be served from cache")
}

// TestEstimateConvergesOnKnownSpot pins the canonical convergence spot:
// AhKh on QhJhTs has made the nut straight with a royal flush draw and
// runs at roughly 0.84 equity against a random hand.
func TestEstimateConvergesOnKnownSpot(t *testing.T) {
	e := NewEstimator(64)
	hero := mustHand(t, "Ah", "Kh")
	board := mustHand(t, "Qh", "Jh", "Ts")
	r := e.Estimate(hero, board, poker.Hand(0), 2000, rand.New(rand.NewSource(5)))
	assert.InDelta(t, 0.84, r.Equity, 0.05)
	assert.GreaterOrEqual(t, r.Equity, r.CILow)
	assert.LessOrEqual(t, r.Equity, r.CIHigh)
}

func TestClampTrials(t *testing.T) {
	assert.Equal(t, MinTrials, ClampTrials(1, true))
	assert.Equal(t, TrainMaxTrials, ClampTrials(10000, true))
	assert.Equal(t, EvalMaxTrials, ClampTrials(10000, false))
}

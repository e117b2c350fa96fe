package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/huholdem/poker"
)

// TestRandomPlayoutsPreserveInvariants drives many hands with uniformly
// random legal actions and checks the state-machine invariants at every
// step: chip conservation, commit/bet bounds, raise cap, and history
// growth.
func TestRandomPlayoutsPreserveInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	params := DefaultParams()

	for hand := 0; hand < 200; hand++ {
		s := NewState(params, DealHand(rng))
		for !s.Terminal {
			legal := s.LegalActions()
			require.NotEmpty(t, legal)
			prevHistory := len(s.History)

			a := legal[rng.Intn(len(legal))]
			require.NoError(t, s.Apply(a))

			assert.Len(t, s.History, prevHistory+1)
			assert.InDelta(t, 2*params.StartStack, s.Pot+s.Stack[0]+s.Stack[1], 1e-9)
			assert.LessOrEqual(t, s.Raises, params.MaxRaises)
			for seat := 0; seat < 2; seat++ {
				assert.GreaterOrEqual(t, s.Stack[seat], 0.0)
				assert.GreaterOrEqual(t, s.Commit[seat], 0.0)
				assert.LessOrEqual(t, s.Commit[seat], s.CurrentBet+1e-9)
			}
		}

		assert.ErrorIs(t, s.Apply(Fold), ErrTerminal)
		assert.InDelta(t, 2*params.StartStack, s.Stack[0]+s.Stack[1], 1e-9)
		assert.InDelta(t, 0.0, s.Payoff(0)+s.Payoff(1), 1e-9, "heads-up payoffs are zero-sum")
	}
}

// TestCheckThroughToShowdown plays a fully checked-down hand with fixed
// cards: hero's pair of aces beats villain's pair of kings at showdown.
func TestCheckThroughToShowdown(t *testing.T) {
	var deal Deal
	deal.Hole[0] = poker.NewHand(mustCard(t, "As"), mustCard(t, "Qs"))
	deal.Hole[1] = poker.NewHand(mustCard(t, "Kc"), mustCard(t, "Jd"))
	deal.BoardCards = [5]poker.Card{
		mustCard(t, "Ah"), mustCard(t, "Kh"), mustCard(t, "2c"),
		mustCard(t, "9d"), mustCard(t, "5s"),
	}

	s := NewState(DefaultParams(), deal)
	require.NoError(t, s.Apply(Call))  // SB completes
	require.NoError(t, s.Apply(Check)) // BB option
	for street := Flop; street <= River; street++ {
		require.Equal(t, street, s.StreetIdx)
		require.NoError(t, s.Apply(Check))
		require.NoError(t, s.Apply(Check))
	}

	require.True(t, s.Terminal)
	assert.Equal(t, 0, s.Winner)
	assert.Equal(t, 2.0, s.Payoff(0), "hero collects the big blind the villain committed")
	assert.Equal(t, -2.0, s.Payoff(1))
}

// TestIllegalActionRejectedWithoutMutation covers the legality guard:
// a postflop unopened node must reject Fold and leave state untouched.
func TestIllegalActionRejectedWithoutMutation(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	s := NewState(DefaultParams(), DealHand(rng))
	require.NoError(t, s.Apply(Call))
	require.NoError(t, s.Apply(Check))
	require.Equal(t, Flop, s.StreetIdx)

	before := *s
	err := s.Apply(Fold)
	assert.ErrorIs(t, err, ErrIllegalAction)
	assert.Equal(t, before.Pot, s.Pot)
	assert.Equal(t, before.Stack, s.Stack)
	assert.Equal(t, len(before.History), len(s.History))
}

// TestBoardRevealsIncrementally checks the 0/3/4/5 reveal schedule.
func TestBoardRevealsIncrementally(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	deal := DealHand(rng)
	assert.Equal(t, 0, deal.VisibleBoard(Preflop).CountCards())
	assert.Equal(t, 3, deal.VisibleBoard(Flop).CountCards())
	assert.Equal(t, 4, deal.VisibleBoard(Turn).CountCards())
	assert.Equal(t, 5, deal.VisibleBoard(River).CountCards())
}

package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHand(t *testing.T, cards ...string) Hand {
	t.Helper()
	var h Hand
	for _, c := range cards {
		card, err := ParseCard(c)
		require.NoError(t, err)
		h.AddCard(card)
	}
	return h
}

func TestEvaluate7Cards_Categories(t *testing.T) {
	tests := []struct {
		name  string
		cards []string
		want  HandRank
	}{
		{"straight flush", []string{"2h", "3h", "4h", "5h", "6h", "9c", "2c"}, StraightFlush},
		{"four of a kind", []string{"9c", "9d", "9h", "9s", "2c", "3d", "4h"}, FourOfAKind},
		{"full house", []string{"Kc", "Kd", "Kh", "2s", "2c", "9d", "3h"}, FullHouse},
		{"flush", []string{"2h", "5h", "9h", "Jh", "Kh", "3c", "4d"}, Flush},
		{"straight", []string{"9c", "Th", "Jd", "Qs", "Kc", "2d", "3h"}, Straight},
		{"three of a kind", []string{"7c", "7d", "7h", "2s", "9c", "Kd", "3h"}, ThreeOfAKind},
		{"two pair", []string{"7c", "7d", "3h", "3s", "9c", "Kd", "2h"}, TwoPair},
		{"pair", []string{"7c", "7d", "4h", "9s", "Kc", "2d", "3h"}, Pair},
		{"high card", []string{"2c", "5d", "9h", "Jc", "Kd", "3h", "7s"}, HighCard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := mustHand(t, tt.cards...)
			got := Evaluate7Cards(h)
			assert.Equal(t, tt.want, got.Type())
		})
	}
}

func TestEvaluate7Cards_WheelStraight(t *testing.T) {
	h := mustHand(t, "Ah", "2c", "3d", "4h", "5s", "9c", "Kd")
	got := Evaluate7Cards(h)
	assert.Equal(t, Straight, got.Type())
}

func TestCompareHands(t *testing.T) {
	aces := mustHand(t, "Ac", "Ad", "2h", "5d", "9s", "Jc", "Kd")
	kings := mustHand(t, "Kc", "Kd", "2h", "5d", "9s", "Jc", "Ad")
	rankA := Evaluate7Cards(aces)
	rankK := Evaluate7Cards(kings)
	assert.Equal(t, 1, CompareHands(rankA, rankK))
	assert.Equal(t, -1, CompareHands(rankK, rankA))
	assert.Equal(t, 0, CompareHands(rankA, rankA))
}

func TestDeckDealsDistinctCards(t *testing.T) {
	d := NewDeck(nil)
	seen := make(map[Card]bool)
	for i := 0; i < 52; i++ {
		c := d.DealOne()
		require.NotZero(t, c)
		require.False(t, seen[c])
		seen[c] = true
	}
	assert.Zero(t, d.DealOne())
	assert.Equal(t, 0, d.CardsRemaining())
}

func TestParseCardRoundTrip(t *testing.T) {
	c, err := ParseCard("Ah")
	require.NoError(t, err)
	assert.Equal(t, "Ah", c.String())
	assert.Equal(t, Ace, c.Rank())
	assert.Equal(t, Hearts, c.Suit())
}

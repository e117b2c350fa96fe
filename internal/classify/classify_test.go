package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/huholdem/poker"
)

func cards(t *testing.T, ss ...string) poker.Hand {
	t.Helper()
	var h poker.Hand
	for _, s := range ss {
		c, err := poker.ParseCard(s)
		require.NoError(t, err)
		h.AddCard(c)
	}
	return h
}

func TestAnalyzeBoard(t *testing.T) {
	monotone := AnalyzeBoard(cards(t, "2h", "7h", "Kh"))
	assert.True(t, monotone.Monotone)
	assert.True(t, monotone.TwoTone)

	paired := AnalyzeBoard(cards(t, "2h", "2c", "9d"))
	assert.True(t, paired.Paired)
	assert.False(t, paired.Monotone)

	connected := AnalyzeBoard(cards(t, "7h", "8c", "9d"))
	assert.True(t, connected.Connected)

	dry := AnalyzeBoard(cards(t, "2h", "7c", "Kd"))
	assert.False(t, dry.Connected)
	assert.False(t, dry.Paired)
	assert.False(t, dry.TwoTone)
}

func TestSPRBand(t *testing.T) {
	assert.Equal(t, "0_1", SPRBand(5, 10))
	assert.Equal(t, "1_2", SPRBand(15, 10))
	assert.Equal(t, "2_4", SPRBand(35, 10))
	assert.Equal(t, "4_8", SPRBand(70, 10))
	assert.Equal(t, "8_plus", SPRBand(200, 10))
}

func TestHSBand(t *testing.T) {
	assert.Equal(t, 0, HSBand(0))
	assert.Equal(t, 9, HSBand(1))
	assert.Equal(t, 5, HSBand(0.55))
}

func TestClassifyHolePremium(t *testing.T) {
	ak, _ := poker.ParseCard("Ah")
	kk, _ := poker.ParseCard("Kh")
	assert.Equal(t, TierPremium, ClassifyHole(ak, kk))

	qq1, _ := poker.ParseCard("Qc")
	qq2, _ := poker.ParseCard("Qd")
	assert.Equal(t, TierPremium, ClassifyHole(qq1, qq2))
}

func TestClassifyHoleTrash(t *testing.T) {
	c1, _ := poker.ParseCard("2c")
	c2, _ := poker.ParseCard("7d")
	assert.Equal(t, TierTrash, ClassifyHole(c1, c2))
}

package infoset

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/huholdem/internal/engine"
)

func TestKeyIsDeterministicForEquivalentStates(t *testing.T) {
	deal := engine.DealHand(rand.New(rand.NewSource(7)))
	s1 := engine.NewState(engine.DefaultParams(), deal)
	s2 := engine.NewState(engine.DefaultParams(), deal)

	require.NoError(t, s1.Apply(engine.Call))
	require.NoError(t, s2.Apply(engine.Call))

	assert.Equal(t, Key(s1, 0.5), Key(s2, 0.5))
}

func TestKeyReflectsBetStateAndPosition(t *testing.T) {
	deal := engine.DealHand(rand.New(rand.NewSource(7)))
	s := engine.NewState(engine.DefaultParams(), deal)

	k := Key(s, 0.5)
	assert.Contains(t, k, "preflop")
	assert.Contains(t, k, "OOP")
	assert.Contains(t, k, "facingBet")

	require.NoError(t, s.Apply(engine.Call))
	k2 := Key(s, 0.5)
	assert.Contains(t, k2, "IP")
	assert.Contains(t, k2, "unopened")
}

func TestKeyHSBandBoundary(t *testing.T) {
	deal := engine.DealHand(rand.New(rand.NewSource(7)))
	s := engine.NewState(engine.DefaultParams(), deal)
	assert.Contains(t, Key(s, 1.0), "hs=9")
	assert.Contains(t, Key(s, 0.0), "hs=0")
}

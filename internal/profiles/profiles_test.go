package profiles

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lox/huholdem/internal/engine"
)

var fullLegal = []engine.Action{engine.Fold, engine.Check, engine.Call, engine.BetHalf, engine.BetPot, engine.RaiseHalf, engine.RaisePot, engine.AllIn}

func TestAllProfilesReturnLegalActions(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, p := range All() {
		for i := 0; i < 200; i++ {
			d := p.Act(fullLegal, 10, 20, rng)
			assert.Contains(t, fullLegal, d.Action, "%s produced an illegal action", p.Name())
		}
	}
}

func TestPotOddsFoldsBadPrice(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	legal := []engine.Action{engine.Fold, engine.Call}
	// to_call=100 into pot=50 -> required equity 100/150 = 0.667, well above 0.33
	d := PotOdds{}.Act(legal, 100, 50, rng)
	assert.Equal(t, engine.Fold, d.Action)
}

func TestPotOddsCallsGoodPrice(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	legal := []engine.Action{engine.Fold, engine.Call}
	// to_call=5 into pot=95 -> required equity 5/100 = 0.05
	d := PotOdds{}.Act(legal, 5, 95, rng)
	assert.Equal(t, engine.Call, d.Action)
}

func TestNitChecksWhenFree(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	legal := []engine.Action{engine.Check, engine.BetHalf, engine.BetPot}
	seenCheck := false
	for i := 0; i < 50; i++ {
		d := Nit{}.Act(legal, 0, 10, rng)
		if d.Action == engine.Check {
			seenCheck = true
		}
	}
	assert.True(t, seenCheck)
}

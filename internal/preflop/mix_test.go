package preflop

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lox/huholdem/internal/classify"
	"github.com/lox/huholdem/internal/engine"
)

var allLegal = []engine.Action{engine.Fold, engine.Call, engine.RaiseHalf, engine.RaisePot, engine.AllIn}

func sumWeights(w map[engine.Action]float64) float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

func TestWeightsNormalizeToOne(t *testing.T) {
	w := Weights(classify.TierMedium, Unopened, 0.5, OpponentTendency{}, allLegal)
	assert.InDelta(t, 1.0, sumWeights(w), 1e-9)
}

func TestWeightsExcludeIllegalActions(t *testing.T) {
	legal := []engine.Action{engine.Fold, engine.Call}
	w := Weights(classify.TierPremium, Unopened, 0.7, OpponentTendency{}, legal)
	assert.NotContains(t, w, engine.RaiseHalf)
	assert.NotContains(t, w, engine.RaisePot)
	assert.InDelta(t, 1.0, sumWeights(w), 1e-9)
}

func TestPremiumTiltsMoreAggressiveThanTrash(t *testing.T) {
	premium := Weights(classify.TierPremium, Unopened, 0.75, OpponentTendency{}, allLegal)
	trash := Weights(classify.TierTrash, Unopened, 0.2, OpponentTendency{}, allLegal)

	premiumRaise := premium[engine.RaiseHalf] + premium[engine.RaisePot] + premium[engine.AllIn]
	trashRaise := trash[engine.RaiseHalf] + trash[engine.RaisePot] + trash[engine.AllIn]
	assert.Greater(t, premiumRaise, trashRaise)
}

func TestHighEquityCarvesOutAllInMass(t *testing.T) {
	w := Weights(classify.TierPremium, Unopened, 0.9, OpponentTendency{}, allLegal)
	assert.Greater(t, w[engine.AllIn], 0.0)
}

func TestOpponentTendencyRequiresSampleFloor(t *testing.T) {
	withRead := Weights(classify.TierMedium, Unopened, 0.5, OpponentTendency{ThreeBetRate: 0.5, Samples: 2}, allLegal)
	withoutRead := Weights(classify.TierMedium, Unopened, 0.5, OpponentTendency{}, allLegal)
	assert.Equal(t, withoutRead, withRead, "fewer than 8 observed hands must not move the mix")
}

func TestSampleReturnsLegalAction(t *testing.T) {
	mix := Weights(classify.TierStrong, Unopened, 0.6, OpponentTendency{}, allLegal)
	ev := map[engine.Action]float64{engine.Fold: 0, engine.Call: 0.1, engine.RaiseHalf: 0.3, engine.RaisePot: 0.25, engine.AllIn: -0.2}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		a := Sample(mix, ev, allLegal, rng)
		assert.Contains(t, allLegal, a)
	}
}

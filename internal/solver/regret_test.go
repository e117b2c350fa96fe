package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lox/huholdem/internal/engine"
)

func TestStrategyUniformWhenNoPositiveRegret(t *testing.T) {
	e := &RegretEntry{}
	legal := []engine.Action{engine.Check, engine.BetHalf, engine.BetPot}
	e.Update(legal, [numActions]float64{}, [numActions]float64{}, 1.0, 1)

	strat := e.Strategy()
	for _, a := range legal {
		assert.InDelta(t, 1.0/3, strat[a], 1e-9)
	}
	assert.Equal(t, 0.0, strat[engine.Fold])
}

func TestStrategyProportionalToPositiveRegret(t *testing.T) {
	e := &RegretEntry{}
	legal := []engine.Action{engine.Check, engine.BetHalf}
	var regret [numActions]float64
	regret[engine.Check] = 1
	regret[engine.BetHalf] = 3
	e.Update(legal, regret, [numActions]float64{}, 1.0, 1)

	strat := e.Strategy()
	assert.InDelta(t, 0.25, strat[engine.Check], 1e-9)
	assert.InDelta(t, 0.75, strat[engine.BetHalf], 1e-9)
}

func TestDCFRMultipliersSchedule(t *testing.T) {
	pos, neg := DCFRMultipliers(1)
	assert.InDelta(t, 0.5, pos, 1e-9)     // 1/(1+1)
	assert.InDelta(t, 1.0/3, neg, 1e-9)   // 1/(1+2)

	pos100, neg100 := DCFRMultipliers(100)
	assert.Greater(t, pos100, pos, "positive discount approaches 1 with t")
	assert.Greater(t, neg100, neg)
	assert.Less(t, pos100, 1.0)
	assert.Less(t, neg100, 1.0)
}

func TestUpdateDiscountsBeforeAdding(t *testing.T) {
	e := &RegretEntry{}
	legal := []engine.Action{engine.Check, engine.BetHalf}

	var first [numActions]float64
	first[engine.Check] = 10
	first[engine.BetHalf] = -10
	e.Update(legal, first, [numActions]float64{}, 1.0, 1)

	e.Update(legal, [numActions]float64{}, [numActions]float64{}, 1.0, 2)

	pos, neg := DCFRMultipliers(2)
	e.mu.Lock()
	defer e.mu.Unlock()
	assert.InDelta(t, 10*pos, e.regretSum[engine.Check], 1e-9)
	assert.InDelta(t, -10*neg, e.regretSum[engine.BetHalf], 1e-9)
}

func TestAverageStrategyNormalizesStrategySum(t *testing.T) {
	e := &RegretEntry{}
	legal := []engine.Action{engine.Check, engine.BetHalf}
	var strat [numActions]float64
	strat[engine.Check] = 0.75
	strat[engine.BetHalf] = 0.25
	e.AccumulateStrategy(legal, strat, 1.0)
	e.AccumulateStrategy(legal, strat, 1.0)

	avg := e.AverageStrategy()
	assert.InDelta(t, 0.75, avg[engine.Check], 1e-9)
	assert.InDelta(t, 0.25, avg[engine.BetHalf], 1e-9)
}

func TestAverageStrategyUniformFallback(t *testing.T) {
	e := &RegretEntry{}
	legal := []engine.Action{engine.Fold, engine.Call}
	e.Update(legal, [numActions]float64{}, [numActions]float64{}, 0, 1)

	avg := e.AverageStrategy()
	assert.InDelta(t, 0.5, avg[engine.Fold], 1e-9)
	assert.InDelta(t, 0.5, avg[engine.Call], 1e-9)
}

func TestRegretTableGetCreatesOnce(t *testing.T) {
	tbl := NewRegretTable()
	a := tbl.Get("flop|IP|tex=0000|spr=2_4|unopened|r=0|hs=5")
	b := tbl.Get("flop|IP|tex=0000|spr=2_4|unopened|r=0|hs=5")
	assert.Same(t, a, b)
	assert.Equal(t, 1, tbl.Len())
}

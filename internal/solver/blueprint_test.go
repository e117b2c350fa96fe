package solver

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/huholdem/internal/engine"
)

func testBlueprint() *Blueprint {
	return &Blueprint{
		Meta: Meta{
			Iterations:         500,
			Seed:               7,
			SmallBlind:         1,
			BigBlind:           2,
			StartStack:         200,
			MaxRaises:          3,
			EquityTrials:       180,
			AbstractionVersion: "infoset_v1",
			StopReason:         "target_iterations_reached",
		},
		Policy: map[string][8]float64{
			"flop|IP|tex=0000|spr=2_4|unopened|r=0|hs=5":  {0, 0.5, 0, 0.25, 0.25, 0, 0, 0},
			"turn|OOP|tex=1000|spr=1_2|facingBet|r=1|hs=7": {0.1, 0, 0.6, 0, 0, 0.3, 0, 0},
		},
	}
}

func TestBlueprintSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blueprint.json")
	bp := testBlueprint()
	require.NoError(t, bp.Save(path))

	loaded, err := LoadBlueprint(path)
	require.NoError(t, err)
	assert.Equal(t, bp.Meta, loaded.Meta)
	require.Len(t, loaded.Policy, len(bp.Policy))
	for k, want := range bp.Policy {
		got, ok := loaded.Strategy(k)
		require.True(t, ok, "key %s lost in round trip", k)
		for i := range want {
			assert.InDelta(t, want[i], got[i], 1e-7)
		}
	}
}

func TestStrategyMissingKey(t *testing.T) {
	bp := testBlueprint()
	_, ok := bp.Strategy("river|IP|tex=0000|spr=0_1|unopened|r=0|hs=0")
	assert.False(t, ok)
}

func TestDriftZeroForIdenticalPolicies(t *testing.T) {
	p := testBlueprint().Policy
	assert.Equal(t, 0.0, Drift(p, p))
}

func TestDriftGrowsWithDivergence(t *testing.T) {
	prev := map[string][8]float64{"k": {0, 1, 0, 0, 0, 0, 0, 0}}
	cur := map[string][8]float64{"k": {0, 0, 1, 0, 0, 0, 0, 0}}
	assert.InDelta(t, 2.0, Drift(prev, cur), 1e-9)
}

// TestBlendPrefersHighEVHighPriorAction: with EV {FOLD:0, CALL:+0.5,
// RAISE_HALF:+0.6} and prior {0.1, 0.3, 0.6}, RAISE_HALF must rank on
// top.
func TestBlendPrefersHighEVHighPriorAction(t *testing.T) {
	legal := []engine.Action{engine.Fold, engine.Call, engine.RaiseHalf}
	var prior [8]float64
	prior[engine.Fold] = 0.1
	prior[engine.Call] = 0.3
	prior[engine.RaiseHalf] = 0.6
	ev := map[engine.Action]float64{
		engine.Fold:      0,
		engine.Call:      0.5,
		engine.RaiseHalf: 0.6,
	}

	rng := rand.New(rand.NewSource(1))
	chosen := Blend(prior, ev, legal, false, rng, false)
	assert.Equal(t, engine.RaiseHalf, chosen)
}

func TestBlendSamplesOnlyLegalActions(t *testing.T) {
	legal := []engine.Action{engine.Check, engine.BetHalf}
	var prior [8]float64
	prior[engine.Check] = 0.5
	prior[engine.BetHalf] = 0.5
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		a := Blend(prior, map[engine.Action]float64{}, legal, true, rng, true)
		assert.Contains(t, legal, a)
	}
}

func TestExportPolicyRoundsToEightDecimals(t *testing.T) {
	tbl := NewRegretTable()
	e := tbl.Get("k")
	legal := []engine.Action{engine.Check, engine.BetHalf, engine.BetPot}
	var strat [8]float64
	strat[engine.Check] = 1.0 / 3
	strat[engine.BetHalf] = 1.0 / 3
	strat[engine.BetPot] = 1.0 / 3
	e.AccumulateStrategy(legal, strat, 1.0)

	policy := ExportPolicy(tbl)
	vec := policy["k"]
	assert.InDelta(t, 0.33333333, vec[engine.Check], 1e-8)
	assert.Equal(t, round8(vec[engine.Check]), vec[engine.Check])
}

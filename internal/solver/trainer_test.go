package solver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/huholdem/internal/engine"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.TargetIterations = 30
	cfg.EquityTrials = 100
	cfg.CheckpointEvery = 10
	cfg.TablesPerIteration = 2
	cfg.Parallelism = 2
	cfg.MinItersBeforeStop = 1000 // never plateau-stop in a 30-iteration run
	cfg.EvalHandsPerProfile = 4
	cfg.AdaptiveRaiseVisits = 0
	return cfg
}

func TestTrainerRunProducesBlueprint(t *testing.T) {
	tr := NewTrainer(engine.DefaultParams(), smallConfig())
	var checkpoints int
	bp, err := tr.Run(context.Background(), func(Summary) { checkpoints++ })
	require.NoError(t, err)

	assert.Equal(t, 3, checkpoints)
	assert.Equal(t, 30, bp.Meta.Iterations)
	assert.Equal(t, "target_iterations_reached", bp.Meta.StopReason)
	assert.Len(t, bp.Meta.Checkpoints, 3)
	assert.NotEmpty(t, bp.Policy, "30 iterations of self-play should visit postflop infosets")
}

func TestTrainerPolicyVectorsAreDistributions(t *testing.T) {
	tr := NewTrainer(engine.DefaultParams(), smallConfig())
	bp, err := tr.Run(context.Background(), nil)
	require.NoError(t, err)

	for key, vec := range bp.Policy {
		var sum float64
		for _, p := range vec {
			assert.GreaterOrEqual(t, p, 0.0, "negative probability at %s", key)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-6, "policy at %s does not sum to 1", key)
	}
}

func TestTrainerCheckpointEvaluatesAllProfiles(t *testing.T) {
	tr := NewTrainer(engine.DefaultParams(), smallConfig())
	var last Summary
	_, err := tr.Run(context.Background(), func(s Summary) { last = s })
	require.NoError(t, err)

	for _, name := range []string{"nit", "station", "aggro", "pot_odds", "aggregate"} {
		assert.Contains(t, last.Evaluation, name)
	}
	assert.Greater(t, last.Throughput, 0.0)
}

func TestTrainerHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := NewTrainer(engine.DefaultParams(), smallConfig())
	_, err := tr.Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveCheckpointAndResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	cfg := smallConfig()
	cfg.CheckpointPath = path

	tr := NewTrainer(engine.DefaultParams(), cfg)
	_, err := tr.Run(context.Background(), nil)
	require.NoError(t, err)

	resumed, bp, err := ResumeTrainer(path, cfg)
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultParams(), resumed.Params)
	assert.NotEmpty(t, bp.Meta.Checkpoints)
	assert.Len(t, resumed.history, len(bp.Meta.Checkpoints))
}

func TestGateRaisesWithholdsRaisesUntilVisited(t *testing.T) {
	cfg := smallConfig()
	cfg.AdaptiveRaiseVisits = 5
	tr := NewTrainer(engine.DefaultParams(), cfg)

	entry := &RegretEntry{}
	legal := []engine.Action{engine.Fold, engine.Call, engine.RaiseHalf, engine.RaisePot, engine.AllIn}

	gated := tr.gateRaises(legal, entry)
	assert.NotContains(t, gated, engine.RaiseHalf)
	assert.NotContains(t, gated, engine.RaisePot)
	assert.Contains(t, gated, engine.Call)

	for i := 0; i < 5; i++ {
		entry.AccumulateStrategy(legal, [8]float64{}, 0)
	}
	assert.Equal(t, legal, tr.gateRaises(legal, entry))
}

func TestRestrictStrategyRenormalizesOverLegal(t *testing.T) {
	var strat [8]float64
	strat[engine.Check] = 0.5
	strat[engine.BetHalf] = 0.25
	strat[engine.BetPot] = 0.25

	out := restrictStrategy(strat, []engine.Action{engine.Check, engine.BetHalf})
	assert.InDelta(t, 2.0/3, out[engine.Check], 1e-9)
	assert.InDelta(t, 1.0/3, out[engine.BetHalf], 1e-9)
	assert.Equal(t, 0.0, out[engine.BetPot])
}

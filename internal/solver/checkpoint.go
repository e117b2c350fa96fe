package solver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lox/huholdem/internal/engine"
)

// SaveCheckpoint writes the trainer's current blueprint to path, via a
// temp-file-plus-rename so a crash mid-write never leaves a truncated
// file behind.
func (tr *Trainer) SaveCheckpoint(path string) error {
	bp := &Blueprint{
		Meta: Meta{
			Seed:               tr.Config.Seed,
			SmallBlind:         tr.Params.SmallBlind,
			BigBlind:           tr.Params.BigBlind,
			StartStack:         tr.Params.StartStack,
			MaxRaises:          tr.Params.MaxRaises,
			EquityTrials:       tr.EquityTrials,
			AbstractionVersion: "infoset_v1",
			StopReason:         "checkpoint",
			Checkpoints:        tr.history,
		},
		Policy: ExportPolicy(tr.Regrets),
	}
	if len(tr.history) > 0 {
		bp.Meta.Iterations = tr.history[len(tr.history)-1].Iteration
	}
	return saveAtomic(path, bp)
}

func saveAtomic(path string, bp *Blueprint) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("solver: create checkpoint dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("solver: create checkpoint temp: %w", err)
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("solver: encode checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("solver: close checkpoint temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("solver: persist checkpoint: %w", err)
	}
	return nil
}

// ResumeTrainer rebuilds a trainer from a previously saved checkpoint
// file: the regret table itself isn't part of the checkpoint (only the
// exported average policy is, since RegretEntry.regretSum/strategySum
// aren't separable from the averaged strategy once exported), so resuming
// restarts regret accumulation fresh but keeps the checkpoint history and
// iteration count for plateau evaluation continuity.
func ResumeTrainer(path string, cfg Config) (*Trainer, *Blueprint, error) {
	bp, err := LoadBlueprint(path)
	if err != nil {
		return nil, nil, err
	}
	params := engine.Params{
		StartStack: bp.Meta.StartStack,
		SmallBlind: bp.Meta.SmallBlind,
		BigBlind:   bp.Meta.BigBlind,
		MaxRaises:  bp.Meta.MaxRaises,
	}
	tr := NewTrainer(params, cfg)
	tr.history = bp.Meta.Checkpoints
	if len(tr.history) > 0 {
		tr.prevPolicy = bp.Policy
	}
	return tr, bp, nil
}

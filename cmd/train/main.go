// Command train runs the DCFR blueprint trainer and writes the
// resulting strategy file.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lox/huholdem/internal/config"
	"github.com/lox/huholdem/internal/solver"
)

var cli struct {
	Debug bool `help:"enable debug logging"`

	Out             string  `help:"path to write the blueprint strategy file" required:""`
	ConfigFile      string  `help:"path to an HCL engine config" name:"config"`
	Iterations      int     `help:"target iteration count" default:"100000"`
	Seed            int64   `help:"random seed" default:"1"`
	CheckpointEvery int     `help:"checkpoint interval in iterations" default:"1000"`
	CheckpointPath  string  `help:"path to persist periodic checkpoints"`
	ResumeFrom      string  `help:"resume training from a previous checkpoint file"`
	Parallelism     int     `help:"concurrent self-play tables per iteration" default:"8"`
	TablesPerIter   int     `help:"tables dealt per iteration" default:"8"`
	MinItersStop    int     `help:"minimum iterations before plateau stop is considered" default:"10000"`
	AdaptiveRaises  int     `help:"visits before an infoset's raise sizes unlock, 0 to disable" default:"500"`
	DriftPlateau    float64 `help:"L1 drift plateau threshold"`
	EVPlateau       float64 `help:"aggregate EV plateau threshold"`
	EvalHands       int     `help:"evaluation hands per opponent profile" default:"200"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("train"),
		kong.Description("DCFR blueprint trainer for the heads-up hold'em decision engine"),
		kong.UsageOnError(),
	)
	setupLogger(cli.Debug)

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}
}

func run() error {
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	trainCfg := solver.DefaultConfig()
	trainCfg.TargetIterations = cli.Iterations
	trainCfg.Seed = cli.Seed
	trainCfg.CheckpointEvery = cli.CheckpointEvery
	trainCfg.CheckpointPath = cli.CheckpointPath
	trainCfg.Parallelism = cli.Parallelism
	trainCfg.TablesPerIteration = cli.TablesPerIter
	trainCfg.MinItersBeforeStop = cli.MinItersStop
	trainCfg.EvalHandsPerProfile = cli.EvalHands
	trainCfg.AdaptiveRaiseVisits = cli.AdaptiveRaises
	if cli.DriftPlateau > 0 {
		trainCfg.DriftPlateauThreshold = cli.DriftPlateau
	} else {
		trainCfg.DriftPlateauThreshold = cfg.Blend.DriftPlateau
	}
	if cli.EVPlateau > 0 {
		trainCfg.EVPlateauThreshold = cli.EVPlateau
	} else {
		trainCfg.EVPlateauThreshold = cfg.Blend.EVPlateau
	}

	var trainer *solver.Trainer
	if cli.ResumeFrom != "" {
		trainer, _, err = solver.ResumeTrainer(cli.ResumeFrom, trainCfg)
		if err != nil {
			return fmt.Errorf("resume checkpoint: %w", err)
		}
		log.Info().Str("checkpoint", cli.ResumeFrom).Msg("resuming training run")
	} else {
		trainer = solver.NewTrainer(cfg.EngineParams(), trainCfg)
	}

	bp, err := trainer.Run(context.Background(), func(s solver.Summary) {
		log.Info().Int("iteration", s.Iteration).Int("infosets", s.InfosetCount).
			Float64("drift", s.Drift).Interface("evaluation", s.Evaluation).Msg("checkpoint")
	})
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	if err := bp.Save(cli.Out); err != nil {
		return fmt.Errorf("save blueprint: %w", err)
	}
	log.Info().Str("path", cli.Out).Str("stop_reason", bp.Meta.StopReason).
		Int("infosets", len(bp.Policy)).Msg("training complete")
	return nil
}

func setupLogger(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
}

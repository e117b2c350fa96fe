// Package config loads the engine's ambient parameters from an HCL
// file: typed blocks with optional HCL tags, a Default constructor so
// the program runs file-less, and a Validate method that rejects
// out-of-range values before a session or trainer run starts.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/huholdem/internal/engine"
	"github.com/lox/huholdem/internal/realtime"
)

// EngineConfig is the complete set of ambient engine parameters,
// grouped into table-level settings, realtime-solver settings, and
// solver/blending settings.
type EngineConfig struct {
	Table    TableParams    `hcl:"table,block"`
	Realtime RealtimeParams `hcl:"realtime,block"`
	Blend    BlendParams    `hcl:"blend,block"`
}

// TableParams are the fixed stakes and raise cap a hand is dealt under.
type TableParams struct {
	StartStack   float64 `hcl:"start_stack,optional"`
	SmallBlind   float64 `hcl:"small_blind,optional"`
	BigBlind     float64 `hcl:"big_blind,optional"`
	MaxRaises    int     `hcl:"max_raises,optional"`
	EquityTrials int     `hcl:"equity_trials,optional"`
}

// RealtimeParams govern the turn/river subgame re-solve.
type RealtimeParams struct {
	SubgameMS    int     `hcl:"subgame_ms,optional"`
	SubgameDepth int     `hcl:"subgame_depth,optional"`
	TriggerPot   float64 `hcl:"trigger_pot,optional"`
	TriggerSPR   float64 `hcl:"trigger_spr,optional"`
	PriorWeight  float64 `hcl:"prior_weight,optional"`
}

// BlendParams govern blueprint-prior/EV blending and DCFR plateau
// stopping.
type BlendParams struct {
	EVBlend      float64 `hcl:"ev_blend,optional"`
	ProbFloor    float64 `hcl:"prob_floor,optional"`
	DriftPlateau float64 `hcl:"drift_plateau,optional"`
	EVPlateau    float64 `hcl:"ev_plateau,optional"`
}

// Default returns the engine's default parameters, the constructor
// every caller falls back to when no config file is given.
func Default() *EngineConfig {
	return &EngineConfig{
		Table: TableParams{
			StartStack:   200,
			SmallBlind:   1,
			BigBlind:     2,
			MaxRaises:    3,
			EquityTrials: 600,
		},
		Realtime: RealtimeParams{
			SubgameMS:    300,
			SubgameDepth: 5,
			TriggerPot:   60,
			TriggerSPR:   4,
			PriorWeight:  0.65,
		},
		Blend: BlendParams{
			EVBlend:      0.4,
			ProbFloor:    1e-4,
			DriftPlateau: 0.015,
			EVPlateau:    0.02,
		},
	}
}

// Load reads an HCL engine config from filename, falling back to
// Default() if the file doesn't exist, and filling any zero-valued
// field left unset in the file with its default.
func Load(filename string) (*EngineConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parse %s: %s", filename, diags.Error())
	}

	cfg := Default()
	diags = gohcl.DecodeBody(file.Body, nil, cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: decode %s: %s", filename, diags.Error())
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *EngineConfig) {
	d := Default()
	if cfg.Table.StartStack == 0 {
		cfg.Table.StartStack = d.Table.StartStack
	}
	if cfg.Table.SmallBlind == 0 {
		cfg.Table.SmallBlind = d.Table.SmallBlind
	}
	if cfg.Table.BigBlind == 0 {
		cfg.Table.BigBlind = d.Table.BigBlind
	}
	if cfg.Table.MaxRaises == 0 {
		cfg.Table.MaxRaises = d.Table.MaxRaises
	}
	if cfg.Table.EquityTrials == 0 {
		cfg.Table.EquityTrials = d.Table.EquityTrials
	}
	if cfg.Realtime.SubgameMS == 0 {
		cfg.Realtime.SubgameMS = d.Realtime.SubgameMS
	}
	if cfg.Realtime.SubgameDepth == 0 {
		cfg.Realtime.SubgameDepth = d.Realtime.SubgameDepth
	}
	if cfg.Realtime.TriggerPot == 0 {
		cfg.Realtime.TriggerPot = d.Realtime.TriggerPot
	}
	if cfg.Realtime.TriggerSPR == 0 {
		cfg.Realtime.TriggerSPR = d.Realtime.TriggerSPR
	}
	if cfg.Realtime.PriorWeight == 0 {
		cfg.Realtime.PriorWeight = d.Realtime.PriorWeight
	}
	if cfg.Blend.EVBlend == 0 {
		cfg.Blend.EVBlend = d.Blend.EVBlend
	}
	if cfg.Blend.ProbFloor == 0 {
		cfg.Blend.ProbFloor = d.Blend.ProbFloor
	}
	if cfg.Blend.DriftPlateau == 0 {
		cfg.Blend.DriftPlateau = d.Blend.DriftPlateau
	}
	if cfg.Blend.EVPlateau == 0 {
		cfg.Blend.EVPlateau = d.Blend.EVPlateau
	}
}

// Validate rejects an out-of-range configuration before it reaches a
// session or trainer.
func (c *EngineConfig) Validate() error {
	if c.Table.StartStack <= 0 {
		return errors.New("config: start stack must be > 0")
	}
	if c.Table.SmallBlind <= 0 {
		return errors.New("config: small blind must be > 0")
	}
	if c.Table.BigBlind <= c.Table.SmallBlind {
		return errors.New("config: big blind must exceed small blind")
	}
	if c.Table.MaxRaises < 0 {
		return errors.New("config: max raises cannot be negative")
	}
	if c.Table.EquityTrials < 100 {
		return errors.New("config: equity trials must be >= 100")
	}
	if c.Realtime.SubgameMS < 200 || c.Realtime.SubgameMS > 800 {
		return errors.New("config: realtime subgame ms must be within [200, 800]")
	}
	if c.Realtime.SubgameDepth < 1 {
		return errors.New("config: realtime subgame depth must be >= 1")
	}
	if c.Realtime.PriorWeight < 0 || c.Realtime.PriorWeight > 1 {
		return errors.New("config: realtime prior weight must be within [0, 1]")
	}
	if c.Blend.EVBlend < 0 || c.Blend.EVBlend > 1 {
		return errors.New("config: ev blend must be within [0, 1]")
	}
	if c.Blend.ProbFloor <= 0 {
		return errors.New("config: prob floor must be > 0")
	}
	return nil
}

// EngineParams projects the table block onto engine.Params, the state
// machine's own parameter struct.
func (c *EngineConfig) EngineParams() engine.Params {
	return engine.Params{
		StartStack: c.Table.StartStack,
		SmallBlind: c.Table.SmallBlind,
		BigBlind:   c.Table.BigBlind,
		MaxRaises:  c.Table.MaxRaises,
	}
}

// RealtimeConfig projects the realtime block onto realtime.Config.
func (c *EngineConfig) RealtimeConfig() realtime.Config {
	return realtime.Config{
		TriggerPot:  c.Realtime.TriggerPot,
		TriggerSPR:  c.Realtime.TriggerSPR,
		SubgameMS:   c.Realtime.SubgameMS,
		PriorWeight: c.Realtime.PriorWeight,
		Depth:       c.Realtime.SubgameDepth,
	}
}

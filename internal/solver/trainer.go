package solver

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/huholdem/internal/classify"
	"github.com/lox/huholdem/internal/engine"
	"github.com/lox/huholdem/internal/equity"
	"github.com/lox/huholdem/internal/infoset"
	"github.com/lox/huholdem/internal/preflop"
	"github.com/lox/huholdem/internal/profiles"
	"github.com/lox/huholdem/poker"
)

// Config are the DCFR trainer's tunable knobs.
type Config struct {
	TargetIterations      int
	Seed                  int64
	EquityTrials          int
	CheckpointEvery       int
	TablesPerIteration    int
	Parallelism           int
	MinItersBeforeStop    int
	DriftPlateauThreshold float64
	EVPlateauThreshold    float64
	EvalHandsPerProfile   int

	// AdaptiveRaiseVisits, when positive, widens an infoset's raise
	// actions only once the infoset has been visited that many times,
	// reducing early-training variance. Zero disables the gate.
	AdaptiveRaiseVisits int

	// CheckpointPath, if set, is where Run persists an atomic checkpoint
	// snapshot after every checkpoint interval.
	CheckpointPath string
}

// DefaultConfig returns the trainer's default knobs.
func DefaultConfig() Config {
	return Config{
		TargetIterations:      100_000,
		Seed:                  1,
		EquityTrials:          equity.DefaultTrainTrials,
		CheckpointEvery:       1000,
		TablesPerIteration:    8,
		Parallelism:           8,
		MinItersBeforeStop:    10_000,
		DriftPlateauThreshold: 0.015,
		EVPlateauThreshold:    0.02,
		EvalHandsPerProfile:   200,
		AdaptiveRaiseVisits:   500,
	}
}

// Trainer runs the DCFR blueprint trainer: each iteration deals a fresh
// hand, rolls preflop forward via the heuristic mix to reach a postflop
// node, then runs external-sampling CFR with DCFR discounting over the
// remaining streets.
type Trainer struct {
	Params       engine.Params
	Config       Config
	EquityTrials int
	Regrets      *RegretTable
	Equity       *equity.Estimator

	prevPolicy map[string][8]float64
	history    []Summary
	lastMark   time.Time
}

// NewTrainer builds a trainer ready to run.
func NewTrainer(params engine.Params, cfg Config) *Trainer {
	return &Trainer{
		Params:       params,
		Config:       cfg,
		EquityTrials: equity.ClampTrials(cfg.EquityTrials, true),
		Regrets:      NewRegretTable(),
		Equity:       equity.NewEstimator(4096),
	}
}

// Run drives iterations to completion, invoking onCheckpoint after every
// checkpoint interval, and returns the final blueprint plus its meta
// block (stop reason, checkpoint history).
func (tr *Trainer) Run(ctx context.Context, onCheckpoint func(Summary)) (*Blueprint, error) {
	stopReason := "target_iterations_reached"
	tr.lastMark = time.Now()
	itersRun := 0

	for iter := 1; iter <= tr.Config.TargetIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := tr.singleIteration(iter); err != nil {
			return nil, fmt.Errorf("solver: iteration %d: %w", iter, err)
		}
		itersRun = iter

		if tr.Config.CheckpointEvery > 0 && iter%tr.Config.CheckpointEvery == 0 {
			summary := tr.checkpoint(iter)
			tr.history = append(tr.history, summary)
			if onCheckpoint != nil {
				onCheckpoint(summary)
			}
			log.Info().Int("iter", iter).Int("infosets", summary.InfosetCount).
				Float64("drift", summary.Drift).Msg("checkpoint")

			if tr.Config.CheckpointPath != "" {
				if err := tr.SaveCheckpoint(tr.Config.CheckpointPath); err != nil {
					log.Warn().Err(err).Str("path", tr.Config.CheckpointPath).Msg("checkpoint save failed")
				}
			}

			if iter >= tr.Config.MinItersBeforeStop && tr.plateauReached() {
				stopReason = "plateau_reached"
				break
			}
		}
	}

	bp := &Blueprint{
		Meta: Meta{
			Iterations:         itersRun,
			Seed:               tr.Config.Seed,
			SmallBlind:         tr.Params.SmallBlind,
			BigBlind:           tr.Params.BigBlind,
			StartStack:         tr.Params.StartStack,
			MaxRaises:          tr.Params.MaxRaises,
			EquityTrials:       tr.EquityTrials,
			AbstractionVersion: "infoset_v1",
			StopReason:         stopReason,
			Checkpoints:        tr.history,
		},
		Policy: ExportPolicy(tr.Regrets),
	}
	return bp, nil
}

// singleIteration runs TablesPerIteration independent hands concurrently,
// alternating which seat is the traverser by parity of the iteration
// index.
func (tr *Trainer) singleIteration(iter int) error {
	g := new(errgroup.Group)
	g.SetLimit(maxInt(1, tr.Config.Parallelism))

	traverser := iter % 2
	for i := 0; i < maxInt(1, tr.Config.TablesPerIteration); i++ {
		tableSeed := tr.Config.Seed + int64(iter)*10_000 + int64(i)
		g.Go(func() error {
			rng := rand.New(rand.NewSource(tableSeed))
			deal := engine.DealHand(rng)
			s := engine.NewState(tr.Params, deal)
			playPreflop(s, tr.Equity, tr.EquityTrials, rng)

			if s.Terminal || s.StreetIdx == engine.Preflop {
				return nil // iteration yields no updates (terminal, or never escaped preflop)
			}
			tr.traverse(s, traverser, iter, rng)
			return nil
		})
	}
	return g.Wait()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// checkpoint exports the current average policy, measures drift against
// the previous checkpoint, and evaluates it against the fixed opponent
// profiles.
func (tr *Trainer) checkpoint(iter int) Summary {
	policy := ExportPolicy(tr.Regrets)
	drift := 0.0
	if tr.prevPolicy != nil {
		drift = Drift(tr.prevPolicy, policy)
	}
	tr.prevPolicy = policy

	elapsed := time.Since(tr.lastMark)
	tr.lastMark = time.Now()
	throughput := 0.0
	if elapsed > 0 && tr.Config.CheckpointEvery > 0 {
		throughput = float64(tr.Config.CheckpointEvery) / elapsed.Seconds()
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	evalResults := make(map[string]float64, len(profiles.All())+1)
	var aggregate float64
	rng := rand.New(rand.NewSource(tr.Config.Seed + int64(iter)))
	for _, p := range profiles.All() {
		ev := tr.evaluateProfile(policy, p, rng)
		evalResults[p.Name()] = ev
		aggregate += ev
	}
	aggregate /= float64(len(profiles.All()))
	evalResults["aggregate"] = aggregate

	return Summary{
		Iteration:    iter,
		InfosetCount: tr.Regrets.Len(),
		Drift:        drift,
		Throughput:   throughput,
		HeapBytes:    mem.HeapAlloc,
		Evaluation:   evalResults,
	}
}

// evaluateProfile plays EvalHandsPerProfile hands against profile,
// alternating which seat it occupies, and returns its average EV in big
// blinds.
func (tr *Trainer) evaluateProfile(policy map[string][8]float64, p profiles.Profile, rng *rand.Rand) float64 {
	hands := tr.Config.EvalHandsPerProfile
	if hands <= 0 {
		hands = 1
	}
	var total float64
	for i := 0; i < hands; i++ {
		botSeat := i % 2
		total += tr.playEvalHand(policy, p, botSeat, rng)
	}
	return total / float64(hands)
}

// playEvalHand runs one hand of the blueprint's average policy against a
// fixed profile bot, returning the bot's payoff in big blinds.
func (tr *Trainer) playEvalHand(policy map[string][8]float64, p profiles.Profile, botSeat int, rng *rand.Rand) float64 {
	deal := engine.DealHand(rng)
	s := engine.NewState(tr.Params, deal)

	for !s.Terminal {
		legal := s.LegalActions()
		var a engine.Action
		if s.ToAct == botSeat {
			d := p.Act(legal, s.ToCall(), s.Pot, rng)
			a = d.Action
		} else {
			a = tr.blueprintAct(s, policy, legal, rng)
		}
		if !actionLegal(legal, a) {
			a = legal[0]
		}
		_ = s.Apply(a)
	}
	return s.Payoff(botSeat) / tr.Params.BigBlind
}

// blueprintAct chooses an action for the blueprint seat during
// evaluation: the preflop heuristic mix before the flop, the exported
// average policy (uniform fallback on a missing key) after it.
func (tr *Trainer) blueprintAct(s *engine.State, policy map[string][8]float64, legal []engine.Action, rng *rand.Rand) engine.Action {
	hole := s.Deal.Hole[s.ToAct]
	hs := tr.Equity.Estimate(hole, s.Board(), poker.Hand(0), tr.EquityTrials, rng).Equity

	if s.StreetIdx == engine.Preflop {
		tier := classify.ClassifyHole(hole.Cards()[0], hole.Cards()[1])
		mix := preflop.Weights(tier, preflopContext(s), hs, preflop.OpponentTendency{}, legal)
		return preflop.Sample(mix, nil, legal, rng)
	}

	key := infoset.Key(s, hs)
	vec, ok := policy[key]
	if !ok {
		return legal[rng.Intn(len(legal))]
	}
	return sampleByStrategy(legal, vec, rng)
}

func actionLegal(legal []engine.Action, a engine.Action) bool {
	for _, x := range legal {
		if x == a {
			return true
		}
	}
	return false
}

// plateauReached reports whether training has flattened out: the last
// three checkpoints each have drift at or below the plateau threshold,
// and their aggregate-EV range is at or below the EV threshold.
func (tr *Trainer) plateauReached() bool {
	n := len(tr.history)
	if n < 3 {
		return false
	}
	last3 := tr.history[n-3:]
	minEV, maxEV := math.Inf(1), math.Inf(-1)
	for _, s := range last3 {
		if s.Drift > tr.Config.DriftPlateauThreshold {
			return false
		}
		ev := s.Evaluation["aggregate"]
		if ev < minEV {
			minEV = ev
		}
		if ev > maxEV {
			maxEV = ev
		}
	}
	return maxEV-minEV <= tr.Config.EVPlateauThreshold
}

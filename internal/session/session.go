// Package session implements the decision engine's external operations:
// new_hand, apply_human_action, health, and diag. It glues the game
// state machine, equity estimator, infoset keyer, preflop mix, EV
// scorer, blueprint prior, realtime subgame solver, and opponent belief
// tracker into the per-hand bot-turn loop, and owns the session table
// and diagnostics counters as an explicit engine handle rather than
// module-level globals.
package session

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/coder/quartz"
	"github.com/rs/zerolog/log"

	"github.com/lox/huholdem/internal/belief"
	"github.com/lox/huholdem/internal/classify"
	"github.com/lox/huholdem/internal/config"
	"github.com/lox/huholdem/internal/engine"
	"github.com/lox/huholdem/internal/equity"
	"github.com/lox/huholdem/internal/infoset"
	"github.com/lox/huholdem/internal/preflop"
	"github.com/lox/huholdem/internal/realtime"
	"github.com/lox/huholdem/internal/score"
	"github.com/lox/huholdem/internal/solver"
	"github.com/lox/huholdem/poker"
)

// ErrBadSession is returned when an operation names an unknown session
// handle; the call is rejected with no state change.
var ErrBadSession = errors.New("session: unknown session id")

// ErrInvalidAction is returned when apply_human_action names an index
// outside the current legal action set; the hand is left untouched.
var ErrInvalidAction = errors.New("session: bad action index")

// ErrNoHandInProgress is returned by apply_human_action when the named
// session has no current hand (e.g. hand already terminal).
var ErrNoHandInProgress = errors.New("session: no hand in progress")

// ActionLogEntry records one bot decision for the caller's diagnostics,
// carrying the same short Reasoning string every decision path in this
// module attaches to its choice.
type ActionLogEntry struct {
	Seat      int
	Action    engine.Action
	Reasoning string
}

// StateSnapshot is the read-only, transport-agnostic view of a hand
// returned after every state-advancing operation.
type StateSnapshot struct {
	StreetIdx     int
	Pot           float64
	CurrentBet    float64
	Commit        [2]float64
	Stack         [2]float64
	Raises        int
	ToAct         int
	Terminal      bool
	Winner        int
	Board         []poker.Card
	HumanHole     []poker.Card
	LegalForHuman []engine.Action
}

// TerminalResult is populated on StateSnapshot.Terminal, giving the
// human-facing payoff and updated session score.
type TerminalResult struct {
	Winner      int
	HumanPayoff float64
	Score       Score
}

// Score is the session's running win/loss/tie/net tally, persisted
// across hands.
type Score struct {
	Wins, Losses, Ties int
	Net                float64
}

// StreetStats are the postflop facing-bet response counts for one
// street, from which response rates are derived.
type StreetStats struct {
	FacingBet, FoldVsBet, CallVsBet, RaiseVsBet int
}

// Stats are the session's persistent opponent-tendency counters,
// tracking the human seat's observed preflop and postflop response
// behavior across every hand in the session.
type Stats struct {
	FacingRaisePF int
	ThreeBetPF    int
	CallVsRaisePF int
	Postflop      [4]StreetStats
}

// PreflopTendency projects the raw preflop counters onto the rates the
// preflop heuristic mix's opponent correction reads.
func (s Stats) PreflopTendency() preflop.OpponentTendency {
	if s.FacingRaisePF == 0 {
		return preflop.OpponentTendency{}
	}
	return preflop.OpponentTendency{
		ThreeBetRate: float64(s.ThreeBetPF) / float64(s.FacingRaisePF),
		CallRate:     float64(s.CallVsRaisePF) / float64(s.FacingRaisePF),
		Samples:      s.FacingRaisePF,
	}
}

// PostflopRates aggregates the per-street postflop counters into the
// single observed-rate triple the EV scorer's opponent-response model
// reads.
func (s Stats) PostflopRates() score.ObservedRates {
	var facing, fold, call, raise int
	for _, st := range s.Postflop {
		facing += st.FacingBet
		fold += st.FoldVsBet
		call += st.CallVsBet
		raise += st.RaiseVsBet
	}
	if facing == 0 {
		return score.ObservedRates{}
	}
	return score.ObservedRates{
		Fold:    float64(fold) / float64(facing),
		Call:    float64(call) / float64(facing),
		Raise:   float64(raise) / float64(facing),
		Samples: facing,
	}
}

// currentHand is the ephemeral per-hand context: the live game state,
// per-seat range belief (reset to uniform at deal time, never
// persisted), and this hand's own RNG stream.
type currentHand struct {
	state  *engine.State
	belief [2]belief.Belief
	rng    *rand.Rand
	log    []ActionLogEntry
}

// Session is one human's opaque handle: persistent score/stats plus
// whatever hand is currently live.
type Session struct {
	mu        sync.Mutex
	id        string
	humanSeat int
	handIndex int
	score     Score
	stats     Stats
	hand      *currentHand
}

// Diag holds the recoverable-condition counters: board-invariant
// warnings, evaluator-suspect warnings, illegal-state warnings, and
// blueprint-prior/realtime-subgame hit/miss counts.
type Diag struct {
	BoardInvariantWarnings int64
	EvalSuspectWarnings    int64
	IllegalStateWarnings   int64
	PriorHits              int64
	PriorMisses            int64
	RealtimeHits           int64
	RealtimeFallbacks      int64
}

func (d *Diag) incBoardInvariant()   { atomic.AddInt64(&d.BoardInvariantWarnings, 1) }
func (d *Diag) incEvalSuspect()      { atomic.AddInt64(&d.EvalSuspectWarnings, 1) }
func (d *Diag) incIllegalState()     { atomic.AddInt64(&d.IllegalStateWarnings, 1) }
func (d *Diag) incPriorHit()         { atomic.AddInt64(&d.PriorHits, 1) }
func (d *Diag) incPriorMiss()        { atomic.AddInt64(&d.PriorMisses, 1) }
func (d *Diag) incRealtimeHit()      { atomic.AddInt64(&d.RealtimeHits, 1) }
func (d *Diag) incRealtimeFallback() { atomic.AddInt64(&d.RealtimeFallbacks, 1) }

// Snapshot returns a point-in-time copy of the diagnostics counters.
func (d *Diag) Snapshot() Diag {
	return Diag{
		BoardInvariantWarnings: atomic.LoadInt64(&d.BoardInvariantWarnings),
		EvalSuspectWarnings:    atomic.LoadInt64(&d.EvalSuspectWarnings),
		IllegalStateWarnings:   atomic.LoadInt64(&d.IllegalStateWarnings),
		PriorHits:              atomic.LoadInt64(&d.PriorHits),
		PriorMisses:            atomic.LoadInt64(&d.PriorMisses),
		RealtimeHits:           atomic.LoadInt64(&d.RealtimeHits),
		RealtimeFallbacks:      atomic.LoadInt64(&d.RealtimeFallbacks),
	}
}

// Health is the static configuration snapshot the health() operation
// returns.
type Health struct {
	StartStack         float64
	SmallBlind         float64
	BigBlind           float64
	MaxRaises          int
	EquityTrials       int
	RealtimeSubgameMS  int
	AbstractionVersion string
}

// Engine owns every shared, read-only-after-load resource (blueprint
// prior, equity cache, RNG seeding) plus the session table and
// diagnostics struct, passed by reference rather than kept as module
// globals.
type Engine struct {
	Params       engine.Params
	EquityTrials int
	RealtimeCfg  realtime.Config
	Clock        quartz.Clock
	Equity       *equity.Estimator
	Prior        *solver.Blueprint
	PriorIndex   *solver.PriorIndex

	Diag *Diag

	mu       sync.Mutex
	sessions map[string]*Session
	nextID   int64
	seed     int64
}

// NewEngine builds an engine handle from a loaded config, with an
// optional blueprint prior (nil means every decision falls back to
// EV-only scoring per MissingPrior).
func NewEngine(cfg *config.EngineConfig, prior *solver.Blueprint, seed int64) *Engine {
	e := &Engine{
		Params:       cfg.EngineParams(),
		EquityTrials: equity.ClampTrials(cfg.Table.EquityTrials, false),
		RealtimeCfg:  cfg.RealtimeConfig(),
		Clock:        quartz.NewReal(),
		Equity:       equity.NewEstimator(4096),
		Prior:        prior,
		Diag:         &Diag{},
		sessions:     make(map[string]*Session),
		seed:         seed,
	}
	if prior != nil && len(prior.Policy) > 0 {
		idx, err := solver.BuildPriorIndex(prior.Policy)
		if err != nil {
			log.Warn().Err(err).Msg("failed to build blueprint prior index, falling back to uncached lookups")
		} else {
			e.PriorIndex = idx
		}
	}
	return e
}

// Health reports the engine's static configuration.
func (e *Engine) Health() Health {
	abstraction := "none"
	if e.Prior != nil {
		abstraction = e.Prior.Meta.AbstractionVersion
	}
	return Health{
		StartStack:         e.Params.StartStack,
		SmallBlind:         e.Params.SmallBlind,
		BigBlind:           e.Params.BigBlind,
		MaxRaises:          e.Params.MaxRaises,
		EquityTrials:       e.EquityTrials,
		RealtimeSubgameMS:  e.RealtimeCfg.SubgameMS,
		AbstractionVersion: abstraction,
	}
}

// DiagCounters reports the diagnostic counters accumulated so far.
func (e *Engine) DiagCounters() Diag {
	return e.Diag.Snapshot()
}

func (e *Engine) nextSeed() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	return e.seed + e.nextID*1_000_003
}

// NewHand creates a fresh session for humanSeat, deals the first hand,
// and runs the bot through its turns until the human must act or the
// hand is already terminal.
func (e *Engine) NewHand(humanSeat int) (string, StateSnapshot, []ActionLogEntry, *TerminalResult, error) {
	if humanSeat != 0 && humanSeat != 1 {
		return "", StateSnapshot{}, nil, nil, fmt.Errorf("session: human seat must be 0 or 1, got %d", humanSeat)
	}

	e.mu.Lock()
	e.nextID++
	id := fmt.Sprintf("sess-%d", e.nextID)
	e.mu.Unlock()

	sess := &Session{id: id, humanSeat: humanSeat}
	e.mu.Lock()
	e.sessions[id] = sess
	e.mu.Unlock()

	snap, logEntries, terminal := e.dealHand(sess)
	return id, snap, logEntries, terminal, nil
}

// NextHand deals a new hand within an existing session, carrying its
// persistent score/stats forward and resetting range belief to uniform.
func (e *Engine) NextHand(sessionID string) (StateSnapshot, []ActionLogEntry, *TerminalResult, error) {
	sess, err := e.lookup(sessionID)
	if err != nil {
		return StateSnapshot{}, nil, nil, err
	}
	snap, logEntries, terminal := e.dealHand(sess)
	return snap, logEntries, terminal, nil
}

func (e *Engine) lookup(sessionID string) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[sessionID]
	if !ok {
		return nil, ErrBadSession
	}
	return sess, nil
}

// dealHand posts blinds for a new hand, resets per-hand belief, and
// runs the bot-turn loop until the human must act or the hand ends.
func (e *Engine) dealHand(sess *Session) (StateSnapshot, []ActionLogEntry, *TerminalResult) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.handIndex++
	rng := rand.New(rand.NewSource(e.nextSeed()))
	deal := engine.DealHand(rng)
	state := engine.NewState(e.Params, deal)
	sess.hand = &currentHand{
		state:  state,
		belief: [2]belief.Belief{belief.Uniform(), belief.Uniform()},
		rng:    rng,
	}

	e.runBotLoop(sess)
	snap := e.snapshot(sess)
	logEntries := sess.hand.log

	var terminal *TerminalResult
	if state.Terminal {
		terminal = e.settle(sess)
	}
	return snap, logEntries, terminal
}

// ApplyHumanAction validates and applies the human's chosen action
// (by index into the current legal action set), then runs the bot
// through its subsequent turns until the human must act again or the
// hand concludes.
func (e *Engine) ApplyHumanAction(sessionID string, actionIndex int) (StateSnapshot, []ActionLogEntry, *TerminalResult, error) {
	sess, err := e.lookup(sessionID)
	if err != nil {
		return StateSnapshot{}, nil, nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.hand == nil || sess.hand.state.Terminal {
		return StateSnapshot{}, nil, nil, ErrNoHandInProgress
	}
	state := sess.hand.state
	if state.ToAct != sess.humanSeat {
		return StateSnapshot{}, nil, nil, fmt.Errorf("session: not human's turn")
	}

	legal := state.LegalActions()
	if actionIndex < 0 || actionIndex >= len(legal) {
		return StateSnapshot{}, nil, nil, ErrInvalidAction
	}
	action := legal[actionIndex]

	sess.hand.log = nil // only this call's subsequent bot actions are logged
	e.applyAndRecord(sess, sess.humanSeat, action)
	e.runBotLoop(sess)

	snap := e.snapshot(sess)
	var terminal *TerminalResult
	if state.Terminal {
		terminal = e.settle(sess)
	}
	return snap, sess.hand.log, terminal, nil
}

// runBotLoop plays the bot's seat forward until the human must act or
// the hand is terminal.
func (e *Engine) runBotLoop(sess *Session) {
	hand := sess.hand
	state := hand.state
	for !state.Terminal && state.ToAct != sess.humanSeat {
		action, reasoning := e.decide(sess, state)
		hand.log = append(hand.log, ActionLogEntry{Seat: state.ToAct, Action: action, Reasoning: reasoning})
		e.applyAndRecord(sess, state.ToAct, action)
	}
}

// applyAndRecord applies a legal action, updates the session's observed
// tendency counters (human seat only) and the per-hand belief for the
// acting seat, and appends to history.
func (e *Engine) applyAndRecord(sess *Session, actor int, action engine.Action) {
	hand := sess.hand
	state := hand.state
	street := state.StreetIdx
	facingBet := state.ToCall() > 1e-9
	facingRaise := street == engine.Preflop && state.Raises > 0

	if err := state.Apply(action); err != nil {
		// The only caller paths that reach here pick from
		// state.LegalActions() directly, so this should never occur;
		// treat as an illegal-state warning and fold defensively rather
		// than leave the hand stuck.
		log.Warn().Err(err).Msg("illegal_state_warning: apply failed on a chosen action")
		e.Diag.incIllegalState()
		_ = state.Apply(engine.Fold)
		action = engine.Fold
	}

	if actor == sess.humanSeat {
		sess.stats.record(street, facingBet, facingRaise, action)
	}
	hand.belief[actor] = hand.belief[actor].Update(action, facingBet)
}

func (s *Stats) record(street int, facingBet, facingRaise bool, a engine.Action) {
	if street == engine.Preflop {
		if !facingRaise {
			return
		}
		s.FacingRaisePF++
		switch {
		case isAggressive(a):
			s.ThreeBetPF++
		case a == engine.Call:
			s.CallVsRaisePF++
		}
		return
	}
	if !facingBet {
		return
	}
	st := &s.Postflop[street]
	st.FacingBet++
	switch {
	case a == engine.Fold:
		st.FoldVsBet++
	case a == engine.Call:
		st.CallVsBet++
	case isAggressive(a):
		st.RaiseVsBet++
	}
}

func isAggressive(a engine.Action) bool {
	switch a {
	case engine.BetHalf, engine.BetPot, engine.RaiseHalf, engine.RaisePot, engine.AllIn:
		return true
	default:
		return false
	}
}

// decide runs the runtime decision pipeline for the seat currently to
// act: hand-strength estimate conditioned on the belief held about the
// opponent, preflop heuristic mix or postflop EV scoring plus optional
// blueprint blending, an optional realtime subgame re-solve, and a
// legality guard on the final pick.
func (e *Engine) decide(sess *Session, s *engine.State) (engine.Action, string) {
	hand := sess.hand
	actor := s.ToAct
	legal := s.LegalActions()
	hole := s.Deal.Hole[actor]
	board := e.safeBoard(s)

	est := e.Equity.Estimate(hole, board, poker.Hand(0), e.EquityTrials, hand.rng)
	if est.Suspect {
		e.Diag.incEvalSuspect()
	}
	opponentBelief := hand.belief[1-actor]
	hs := belief.ConditionedEquity(est.Equity, opponentBelief)

	if s.StreetIdx == engine.Preflop {
		tier := classify.ClassifyHole(hole.Cards()[0], hole.Cards()[1])
		ctx := preflop.Unopened
		if s.Raises > 0 {
			ctx = preflop.FacingRaise
		}
		mix := preflop.Weights(tier, ctx, hs, sess.stats.PreflopTendency(), legal)
		a := preflop.Sample(mix, nil, legal, hand.rng)
		return e.guard(legal, a), "preflop heuristic mix"
	}

	texture := classify.AnalyzeBoard(board)
	rates := sess.stats.PostflopRates()
	dec := score.Decide(s, hs, texture, rates, opponentBelief)
	chosen := dec.Action
	reasoning := dec.Reasoning

	key := infoset.Key(s, hs)
	var prior [8]float64
	hasPrior := false
	if e.Prior != nil {
		if vec, ok := e.priorLookup(key); ok {
			e.Diag.incPriorHit()
			prior = vec
			hasPrior = true
			chosen = solver.Blend(vec, dec.Scores, legal, false, hand.rng, false)
			reasoning = "blueprint-blended ev"
		} else {
			e.Diag.incPriorMiss()
		}
	}

	if realtime.Triggered(s, e.RealtimeCfg) {
		result := realtime.Solve(e.Clock, s, hs, texture, rates, opponentBelief, prior, hasPrior, e.RealtimeCfg, hand.rng)
		if len(result.Strategy) > 0 {
			e.Diag.incRealtimeHit()
			chosen = result.Chosen
			reasoning = "realtime subgame"
		} else {
			e.Diag.incRealtimeFallback()
		}
	}

	return e.guard(legal, chosen), reasoning
}

// priorLookup resolves an infoset key against the blueprint prior,
// through the perfect-hash index when one was built at load time and
// the plain policy map otherwise.
func (e *Engine) priorLookup(key string) ([8]float64, bool) {
	if e.PriorIndex != nil {
		return e.PriorIndex.Lookup(key)
	}
	return e.Prior.Strategy(key)
}

// guard enforces the runtime's legality invariant: every bot action is
// drawn from the current legal set, falling back to the first legal
// action (and an illegal-state warning) if some upstream stage ever
// proposes one that isn't.
func (e *Engine) guard(legal []engine.Action, a engine.Action) engine.Action {
	for _, x := range legal {
		if x == a {
			return a
		}
	}
	e.Diag.incIllegalState()
	return legal[0]
}

// safeBoard re-derives the board from the pre-dealt full deal if the
// state's own board view ever disagrees with the street's expected
// card count. Structurally this cannot happen given engine.State's own
// bookkeeping, but every decision-time board read goes through this
// guard rather than calling s.Board() directly.
func (e *Engine) safeBoard(s *engine.State) poker.Hand {
	board := s.Board()
	expected := map[int]int{engine.Preflop: 0, engine.Flop: 3, engine.Turn: 4, engine.River: 5}[s.StreetIdx]
	if board.CountCards() != expected {
		log.Warn().Int("street", s.StreetIdx).Int("cards", board.CountCards()).
			Msg("board_invariant_warning: board length mismatch, re-slicing from dealt board")
		e.Diag.incBoardInvariant()
		return s.Deal.VisibleBoard(s.StreetIdx)
	}
	return board
}

// settle finalizes the session's score once a hand reaches terminal,
// returning the human-facing result. ApplyHumanAction only calls this
// once per hand (the transition that sets Terminal), and engine.State's
// own award() is independently idempotent besides.
func (e *Engine) settle(sess *Session) *TerminalResult {
	state := sess.hand.state
	payoff := state.Payoff(sess.humanSeat)
	sess.score.Net += payoff
	switch {
	case payoff > 1e-9:
		sess.score.Wins++
	case payoff < -1e-9:
		sess.score.Losses++
	default:
		sess.score.Ties++
	}
	return &TerminalResult{Winner: state.Winner, HumanPayoff: payoff, Score: sess.score}
}

// snapshot builds the read-only state view returned after every
// operation, revealing only the human's own hole cards.
func (e *Engine) snapshot(sess *Session) StateSnapshot {
	s := sess.hand.state
	board := e.safeBoard(s)
	var legalForHuman []engine.Action
	if !s.Terminal && s.ToAct == sess.humanSeat {
		legalForHuman = s.LegalActions()
	}
	return StateSnapshot{
		StreetIdx:     s.StreetIdx,
		Pot:           s.Pot,
		CurrentBet:    s.CurrentBet,
		Commit:        s.Commit,
		Stack:         s.Stack,
		Raises:        s.Raises,
		ToAct:         s.ToAct,
		Terminal:      s.Terminal,
		Winner:        s.Winner,
		Board:         board.Cards(),
		HumanHole:     s.Deal.Hole[sess.humanSeat].Cards(),
		LegalForHuman: legalForHuman,
	}
}

// Score returns the session's current running score.
func (e *Engine) Score(sessionID string) (Score, error) {
	sess, err := e.lookup(sessionID)
	if err != nil {
		return Score{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.score, nil
}

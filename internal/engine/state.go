// Package engine implements the heads-up no-limit hold'em game state
// machine: the fixed eight-action abstraction, legal-action and bet-sizing
// rules, street advancement, and terminal resolution, with strict
// two-seat chip accounting.
package engine

import (
	"errors"
	"math/rand"

	"github.com/lox/huholdem/poker"
)

const eps = 1e-9

// Street indexes the four betting rounds.
const (
	Preflop = iota
	Flop
	Turn
	River
)

// ErrIllegalAction is returned by Apply when the action is not in the
// current state's legal action set.
var ErrIllegalAction = errors.New("engine: illegal action")

// ErrTerminal is returned by Apply once a hand has already concluded.
var ErrTerminal = errors.New("engine: hand is already terminal")

// Params are the table parameters fixed for a hand.
type Params struct {
	StartStack float64
	SmallBlind float64
	BigBlind   float64
	MaxRaises  int
}

// DefaultParams returns the default stakes and raise cap.
func DefaultParams() Params {
	return Params{StartStack: 200, SmallBlind: 1, BigBlind: 2, MaxRaises: 3}
}

// Deal is the immutable card assignment for one hand: two hole-card pairs
// and the full five-card board, drawn upfront and revealed incrementally
// as the state machine advances streets.
type Deal struct {
	Hole       [2]poker.Hand
	BoardCards [5]poker.Card
}

// DealHand deals hole cards and a full board from a fresh shuffled deck.
func DealHand(rng *rand.Rand) Deal {
	deck := poker.NewDeck(rng)
	var d Deal
	for _, c := range deck.Deal(2) {
		d.Hole[0].AddCard(c)
	}
	for _, c := range deck.Deal(2) {
		d.Hole[1].AddCard(c)
	}
	copy(d.BoardCards[:], deck.Deal(5))
	return d
}

func streetBoardCount(street int) int {
	switch street {
	case Preflop:
		return 0
	case Flop:
		return 3
	case Turn:
		return 4
	default:
		return 5
	}
}

// VisibleBoard returns the board cards revealed as of the given street.
func (d Deal) VisibleBoard(street int) poker.Hand {
	n := streetBoardCount(street)
	var h poker.Hand
	for i := 0; i < n; i++ {
		h.AddCard(d.BoardCards[i])
	}
	return h
}

// State is the mutable per-hand game state: street, pot, per-seat
// commitments and remaining stacks, raise count, and the acted/to-act
// bookkeeping the betting-round-closure rule reads.
type State struct {
	Params Params
	Deal   Deal

	StreetIdx  int
	Pot        float64
	CurrentBet float64
	Commit     [2]float64
	Stack      [2]float64
	Raises     int
	Acted      [2]bool
	ToAct      int
	History    []Action

	Terminal bool
	Winner   int // 0 or 1, -1 for a split pot
	awarded  bool
}

// NewState posts blinds and returns the state a hand starts in. Seat 0 is
// the small blind/button and acts first preflop; seat 1 is the big blind.
func NewState(params Params, deal Deal) *State {
	s := &State{
		Params: params,
		Deal:   deal,
		Stack:  [2]float64{params.StartStack, params.StartStack},
		Winner: -1,
	}
	s.Commit[0] = minF(params.SmallBlind, s.Stack[0])
	s.Stack[0] -= s.Commit[0]
	s.Commit[1] = minF(params.BigBlind, s.Stack[1])
	s.Stack[1] -= s.Commit[1]
	s.Pot = s.Commit[0] + s.Commit[1]
	s.CurrentBet = s.Commit[1]
	s.ToAct = 0
	return s
}

// Board returns the board cards visible at the current street.
func (s *State) Board() poker.Hand {
	return s.Deal.VisibleBoard(s.StreetIdx)
}

// ToCall is the amount the seat to act must add to match current_bet.
func (s *State) ToCall() float64 {
	return maxF(0, s.CurrentBet-s.Commit[s.ToAct])
}

// LegalActions enumerates the actions available to the seat to act.
func (s *State) LegalActions() []Action {
	if s.Terminal {
		return nil
	}
	toCall := s.ToCall()
	stack := s.Stack[s.ToAct]
	var out []Action

	if toCall <= eps {
		out = append(out, Check)
		if stack > 0 {
			if s.StreetIdx == Preflop {
				if s.Raises < s.Params.MaxRaises {
					out = append(out, RaiseHalf, RaisePot)
				}
			} else {
				out = append(out, BetHalf, BetPot)
			}
			out = append(out, AllIn)
		}
		return out
	}

	out = append(out, Fold, Call)
	if stack > toCall {
		if s.Raises < s.Params.MaxRaises {
			out = append(out, RaiseHalf, RaisePot)
		}
		out = append(out, AllIn)
	}
	return out
}

// targetFor computes the post-action commit total for the seat to act
// under each sized action's bet-sizing rule.
func (s *State) targetFor(a Action) float64 {
	actor := s.ToAct
	commit := s.Commit[actor]
	stack := s.Stack[actor]
	toCall := s.ToCall()
	pot := s.Pot
	bb := s.Params.BigBlind

	switch a {
	case Call:
		return commit + minF(stack, toCall)
	case BetHalf:
		return commit + minF(stack, maxF(1, pot*0.5))
	case BetPot:
		return commit + minF(stack, maxF(1, pot*1.0))
	case RaiseHalf:
		if s.StreetIdx == Preflop {
			return s.CurrentBet + minF(stack, maxF(toCall*2, bb*2))
		}
		return s.CurrentBet + minF(stack, maxF(toCall, maxF(1, pot*0.5)))
	case RaisePot:
		if s.StreetIdx == Preflop {
			return s.CurrentBet + minF(stack, maxF(toCall*3, bb*3))
		}
		return s.CurrentBet + minF(stack, maxF(toCall, maxF(1, pot*1.0)))
	case AllIn:
		return commit + stack
	default:
		return commit
	}
}

// Cost returns the chip amount the seat to act would add to its
// commitment by choosing action a, without mutating state. Used by the
// EV scorer to price sized actions ahead of selection.
func (s *State) Cost(a Action) float64 {
	switch a {
	case Fold, Check:
		return 0
	default:
		target := s.targetFor(a)
		pay := target - s.Commit[s.ToAct]
		if pay > s.Stack[s.ToAct] {
			pay = s.Stack[s.ToAct]
		}
		if pay < 0 {
			pay = 0
		}
		return pay
	}
}

// Apply applies a legal action, mutating the state in place: moving
// chips, advancing the turn or street, and resolving terminal hands.
func (s *State) Apply(a Action) error {
	if s.Terminal {
		return ErrTerminal
	}
	if !contains(s.LegalActions(), a) {
		return ErrIllegalAction
	}

	actor := s.ToAct

	if a == Fold {
		s.Terminal = true
		s.Winner = 1 - actor
		s.History = append(s.History, a)
		s.award()
		return nil
	}

	if a == Check || (a == Call && s.ToCall() <= eps) {
		s.Acted[actor] = true
		s.History = append(s.History, a)
		s.settleRound(actor)
		return nil
	}

	target := s.targetFor(a)
	s.commitTo(actor, target)
	s.History = append(s.History, a)
	s.settleRound(actor)
	return nil
}

func (s *State) commitTo(actor int, target float64) {
	pay := target - s.Commit[actor]
	if pay > s.Stack[actor] {
		pay = s.Stack[actor]
	}
	if pay < 0 {
		pay = 0
	}
	s.Stack[actor] -= pay
	s.Commit[actor] += pay
	s.Pot += pay

	if s.Commit[actor] > s.CurrentBet+eps {
		s.CurrentBet = s.Commit[actor]
		s.Raises++
		s.Acted = [2]bool{false, false}
	}
	s.Acted[actor] = true
}

// settleRound passes the turn to the other seat, or advances the street
// (possibly straight through to showdown) once the round is closed.
func (s *State) settleRound(actor int) {
	matched := abs(s.Commit[0]-s.Commit[1]) <= eps
	closed := matched && (s.Stack[0] <= eps || s.Stack[1] <= eps || (s.Acted[0] && s.Acted[1]))
	if !closed {
		s.ToAct = 1 - actor
		return
	}
	s.advanceStreet()
}

// advanceStreet resets betting state for the next street, skipping
// straight to showdown once either seat is all-in (no chips left for
// further action).
func (s *State) advanceStreet() {
	for {
		if s.StreetIdx == River {
			s.settle()
			return
		}
		s.StreetIdx++
		s.CurrentBet = 0
		s.Commit = [2]float64{0, 0}
		s.Raises = 0
		s.Acted = [2]bool{false, false}
		s.ToAct = 0
		if s.Stack[0] > eps && s.Stack[1] > eps {
			return
		}
	}
}

// settle evaluates the showdown and awards the pot.
func (s *State) settle() {
	s.Terminal = true
	board := s.Deal.VisibleBoard(River)
	h0 := poker.Evaluate7Cards(s.Deal.Hole[0] | board)
	h1 := poker.Evaluate7Cards(s.Deal.Hole[1] | board)
	switch poker.CompareHands(h0, h1) {
	case 1:
		s.Winner = 0
	case -1:
		s.Winner = 1
	default:
		s.Winner = -1
	}
	s.award()
}

// award moves the pot into the winner's stack (split on tie). Idempotent:
// a hand's pot is awarded exactly once regardless of how many times
// settle/Apply paths reach a terminal state.
func (s *State) award() {
	if s.awarded {
		return
	}
	s.awarded = true
	switch s.Winner {
	case 0:
		s.Stack[0] += s.Pot
	case 1:
		s.Stack[1] += s.Pot
	default:
		half := s.Pot / 2
		s.Stack[0] += half
		s.Stack[1] += half
	}
	s.Pot = 0
}

// Payoff returns a seat's net result relative to its starting stack.
func (s *State) Payoff(seat int) float64 {
	return s.Stack[seat] - s.Params.StartStack
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func abs(a float64) float64 {
	if a < 0 {
		return -a
	}
	return a
}

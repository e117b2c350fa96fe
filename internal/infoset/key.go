// Package infoset composes the canonical information-set key the
// blueprint trainer, prior store, and realtime solver all key strategies
// by: street, position, board-texture bits, SPR band, bet state, raise
// count, and hand-strength band, joined into one deterministic string.
package infoset

import (
	"fmt"

	"github.com/lox/huholdem/internal/classify"
	"github.com/lox/huholdem/internal/engine"
)

func streetName(street int) string {
	switch street {
	case engine.Preflop:
		return "preflop"
	case engine.Flop:
		return "flop"
	case engine.Turn:
		return "turn"
	default:
		return "river"
	}
}

// Position reports the HU position label for an acting seat: seat 1 is
// in position on every postflop street.
func Position(actingSeat int) string {
	if actingSeat == 1 {
		return "IP"
	}
	return "OOP"
}

// Key composes the canonical infoset string for a state, the seat to
// act, and that seat's current hand-strength estimate.
func Key(s *engine.State, hs float64) string {
	texture := classify.AnalyzeBoard(s.Board())
	spr := classify.SPRBand(int(s.Stack[s.ToAct]), int(s.Pot))
	hsBand := classify.HSBand(hs)

	betState := "unopened"
	if s.ToCall() > 1e-9 {
		betState = "facingBet"
	}

	return fmt.Sprintf("%s|%s|tex=%04b|spr=%s|%s|r=%d|hs=%d",
		streetName(s.StreetIdx),
		Position(s.ToAct),
		texture.Bits(),
		spr,
		betState,
		s.Raises,
		hsBand,
	)
}

// Package classify derives the coarse board-texture and hand-strength
// signals the infoset keyer and preflop heuristic mix depend on: the
// four-bit texture encoding, SPR and hand-strength banding, and preflop
// hand tiers.
package classify

import (
	"math/bits"

	"github.com/lox/huholdem/poker"
)

// Texture captures the four texture bits the infoset key composes into
// a single nibble: paired, two-tone, monotone, connected.
type Texture struct {
	Paired    bool
	TwoTone   bool
	Monotone  bool
	Connected bool
}

// Bits packs the texture into the 4-bit <paired><two_tone><monotone><connected>
// layout the infoset key format requires.
func (t Texture) Bits() uint8 {
	var b uint8
	if t.Paired {
		b |= 1 << 3
	}
	if t.TwoTone {
		b |= 1 << 2
	}
	if t.Monotone {
		b |= 1 << 1
	}
	if t.Connected {
		b |= 1
	}
	return b
}

// AnalyzeBoard computes the board's texture bits. Boards with fewer than
// three cards are reported as maximally dry (all bits false).
func AnalyzeBoard(board poker.Hand) Texture {
	if board.CountCards() < 3 {
		return Texture{}
	}

	suitCounts := make([]int, 4)
	for suit := uint8(0); suit < 4; suit++ {
		suitCounts[suit] = bits.OnesCount16(board.GetSuitMask(suit))
	}
	maxSuit := 0
	for _, c := range suitCounts {
		if c > maxSuit {
			maxSuit = c
		}
	}

	return Texture{
		Paired:    CountPairs(board) > 0,
		TwoTone:   maxSuit >= 2,
		Monotone:  maxSuit >= 3 && board.CountCards() == maxSuit,
		Connected: isConnected(board),
	}
}

// CountPairs returns the number of distinct ranks appearing at least
// twice on the board.
func CountPairs(board poker.Hand) int {
	counts := make(map[uint8]int, 5)
	for _, c := range board.Cards() {
		counts[c.Rank()]++
	}
	pairs := 0
	for _, n := range counts {
		if n >= 2 {
			pairs++
		}
	}
	return pairs
}

// CountHighCards returns how many board cards are Ten or higher.
func CountHighCards(board poker.Hand) int {
	high := 0
	for _, c := range board.Cards() {
		if c.Rank() >= poker.Ten {
			high++
		}
	}
	return high
}

// isConnected counts adjacent-within-2 pairs among the board's distinct
// ranks (sorted ascending); the board is connected when at least two
// such pairs exist.
func isConnected(board poker.Hand) bool {
	seen := make(map[uint8]bool)
	var ranks []uint8
	for _, c := range board.Cards() {
		r := c.Rank()
		if !seen[r] {
			seen[r] = true
			ranks = append(ranks, r)
		}
	}
	for i := 0; i < len(ranks); i++ {
		for j := i + 1; j < len(ranks); j++ {
			if ranks[i] > ranks[j] {
				ranks[i], ranks[j] = ranks[j], ranks[i]
			}
		}
	}
	adjacent := 0
	for i := 1; i < len(ranks); i++ {
		if int(ranks[i])-int(ranks[i-1]) <= 2 {
			adjacent++
		}
	}
	return adjacent >= 2
}

// SPR is the raw stack-to-pot ratio, pot floored at 1 to avoid division
// by zero.
func SPR(stack, pot float64) float64 {
	if pot < 1 {
		pot = 1
	}
	return stack / pot
}

// SPRBand buckets a stack-to-pot ratio into the five bands the infoset
// key format names.
func SPRBand(stack, pot int) string {
	spr := SPR(float64(stack), float64(pot))
	switch {
	case spr < 1:
		return "0_1"
	case spr < 2:
		return "1_2"
	case spr < 4:
		return "2_4"
	case spr < 8:
		return "4_8"
	default:
		return "8_plus"
	}
}

// HSBand buckets a clamped [0,1] hand-strength estimate into the 0..9
// decile the infoset key format names.
func HSBand(hs float64) int {
	if hs < 0 {
		hs = 0
	}
	if hs > 0.999999 {
		hs = 0.999999
	}
	band := int(hs * 10)
	if band > 9 {
		band = 9
	}
	if band < 0 {
		band = 0
	}
	return band
}

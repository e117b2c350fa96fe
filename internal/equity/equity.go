// Package equity estimates hero hand strength against a random or
// specified opponent hand via Monte Carlo rollout, with a bounded result
// cache keyed by canonical query and singleflight-deduplicated
// concurrent lookups.
package equity

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync/atomic"

	lru "github.com/opencoff/golang-lru"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/lox/huholdem/poker"
)

// Result is a rollout outcome: wins/ties/total sample counts plus the
// derived equity and confidence interval.
type Result struct {
	Wins    int
	Ties    int
	Total   int
	Equity  float64
	CILow   float64
	CIHigh  float64
	Suspect bool
}

// suspectEquity flags extreme equity values drawn from too few samples
// to trust on a board that isn't yet fully revealed (EvalSuspect).
func suspectEquity(eq float64, trials int, onRiver bool) bool {
	extreme := eq <= 1e-4 || eq >= 0.9999
	return extreme && trials < MinTrials*2 && !onRiver
}

const (
	// MinTrials is the lower clamp for caller-supplied trial counts;
	// TrainMaxTrials and EvalMaxTrials are the upper clamps.
	MinTrials = 100
	// TrainMaxTrials bounds trials during DCFR training iterations, where
	// the estimator runs on the hot path of every traversal.
	TrainMaxTrials = 300
	// EvalMaxTrials bounds trials for interactive/decision-time lookups.
	EvalMaxTrials = 2000

	// DefaultTrainTrials and DefaultEvalTrials are the default trial
	// counts for each caller class.
	DefaultTrainTrials = 180
	DefaultEvalTrials  = 600
)

// ClampTrials bounds a requested trial count to the legal range for a
// caller class.
func ClampTrials(n int, training bool) int {
	max := EvalMaxTrials
	if training {
		max = TrainMaxTrials
	}
	if n < MinTrials {
		return MinTrials
	}
	if n > max {
		return max
	}
	return n
}

// Estimator runs and caches Monte Carlo equity rollouts.
type Estimator struct {
	cache    lru.Cache
	flight   singleflight.Group
	rollouts int64
}

// NewEstimator builds an estimator with a bounded LRU result cache.
func NewEstimator(cacheSize int) *Estimator {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	c, err := lru.NewSimple(cacheSize)
	if err != nil {
		panic(err)
	}
	return &Estimator{cache: c}
}

// Estimate computes hero's equity against a random (unknown opponent=0)
// or specific opponent hand, given the visible board and a trial count.
// Degenerate hero hands (not exactly 2 cards) return 0.5.
func (e *Estimator) Estimate(hero poker.Hand, board poker.Hand, opponent poker.Hand, trials int, rng *rand.Rand) Result {
	if hero.CountCards() != 2 {
		return Result{Equity: 0.5}
	}

	key := canonicalKey(hero, board, opponent, trials)
	v, _, _ := e.flight.Do(key, func() (interface{}, error) {
		if cached, ok := e.cache.Get(key); ok {
			return cached, nil
		}
		atomic.AddInt64(&e.rollouts, 1)
		r := rollout(hero, board, opponent, trials, rng)
		e.cache.Add(key, r)
		return r, nil
	})
	return v.(Result)
}

// Rollouts reports how many full Monte Carlo rollouts have actually run,
// as opposed to queries answered from cache.
func (e *Estimator) Rollouts() int64 {
	return atomic.LoadInt64(&e.rollouts)
}

func rollout(hero, board, opponent poker.Hand, trials int, rng *rand.Rand) Result {
	used := hero | board | opponent
	wins, ties := 0, 0

	for i := 0; i < trials; i++ {
		avail := poker.NewAvailableDeck(rng, used)
		cursor := 0

		finalBoard := board
		for finalBoard.CountCards() < 5 {
			finalBoard.AddCard(avail[cursor])
			cursor++
		}

		oppHand := opponent
		if oppHand.CountCards() != 2 {
			oppHand = poker.NewHand(avail[cursor], avail[cursor+1])
			cursor += 2
		}

		heroRank := poker.Evaluate7Cards(hero | finalBoard)
		oppRank := poker.Evaluate7Cards(oppHand | finalBoard)

		switch poker.CompareHands(heroRank, oppRank) {
		case 1:
			wins++
		case 0:
			ties++
		}
	}

	r := Result{Wins: wins, Ties: ties, Total: trials}
	r.Equity = (float64(wins) + 0.5*float64(ties)) / float64(trials)
	r.CILow, r.CIHigh = confidenceInterval(r.Equity, trials)
	r.Suspect = suspectEquity(r.Equity, trials, board.CountCards() == 5)
	if r.Suspect {
		log.Warn().Float64("equity", r.Equity).Int("trials", trials).Msg("eval_suspect: extreme equity from few samples pre-river")
	}
	return r
}

func confidenceInterval(eq float64, n int) (float64, float64) {
	if n == 0 {
		return 0, 0
	}
	se := math.Sqrt(eq * (1 - eq) / float64(n))
	margin := 1.96 * se
	lo := eq - margin
	hi := eq + margin
	if lo < 0 {
		lo = 0
	}
	if hi > 1 {
		hi = 1
	}
	return lo, hi
}

// canonicalKey produces a cache key invariant to card-order within the
// hero, board, and opponent sets for a given trial count.
func canonicalKey(hero, board, opponent poker.Hand, trials int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%d", sortedCardString(hero), sortedCardString(board), sortedCardString(opponent), trials)
	return b.String()
}

func sortedCardString(h poker.Hand) string {
	cards := h.Cards()
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = c.String()
	}
	sort.Strings(names)
	return strings.Join(names, "")
}

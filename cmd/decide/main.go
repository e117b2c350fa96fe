// Command decide drives an interactive terminal session against the
// bot: a small CLI that loads config and an optional blueprint prior,
// then loops reading stdin until the human quits.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lox/huholdem/internal/config"
	"github.com/lox/huholdem/internal/session"
	"github.com/lox/huholdem/internal/solver"
)

var cli struct {
	Debug      bool   `help:"enable debug logging"`
	ConfigFile string `help:"path to an HCL engine config" name:"config"`
	Blueprint  string `help:"path to a trained blueprint strategy file"`
	Seed       int64  `help:"engine RNG seed" default:"1"`
	HumanSeat  int    `help:"seat the human plays (0 or 1)" default:"0"`
	Hands      int    `help:"number of hands to play before exiting, 0 for unlimited" default:"0"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("decide"),
		kong.Description("interactive heads-up hold'em session against the decision engine"),
		kong.UsageOnError(),
	)
	setupLogger(cli.Debug)

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("session failed")
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

	var prior *solver.Blueprint
	if cli.Blueprint != "" {
		prior, err = solver.LoadBlueprint(cli.Blueprint)
		if err != nil {
			return fmt.Errorf("load blueprint: %w", err)
		}
		log.Info().Str("path", cli.Blueprint).Int("infosets", len(prior.Policy)).Msg("loaded blueprint prior")
	}

	eng := session.NewEngine(cfg, prior, cli.Seed)
	h := eng.Health()
	log.Info().Float64("start_stack", h.StartStack).Float64("small_blind", h.SmallBlind).
		Float64("big_blind", h.BigBlind).Str("abstraction", h.AbstractionVersion).Msg("engine ready")

	reader := bufio.NewReader(os.Stdin)
	id, snap, logEntries, terminal, err := eng.NewHand(cli.HumanSeat)
	if err != nil {
		return err
	}
	printLog(logEntries)
	handsPlayed := 0

	for {
		if terminal != nil {
			printTerminal(terminal)
			handsPlayed++
			if cli.Hands > 0 && handsPlayed >= cli.Hands {
				return nil
			}
			if !promptContinue(reader) {
				return nil
			}
			snap, logEntries, terminal, err = eng.NextHand(id)
			if err != nil {
				return err
			}
			printLog(logEntries)
			continue
		}

		printSnapshot(snap)
		idx := promptAction(reader, snap)
		snap, logEntries, terminal, err = eng.ApplyHumanAction(id, idx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		printLog(logEntries)
	}
}

func printSnapshot(s session.StateSnapshot) {
	fmt.Printf("\n--- pot=%.2f board=%v hole=%v stacks=%v ---\n", s.Pot, s.Board, s.HumanHole, s.Stack)
	for i, a := range s.LegalForHuman {
		fmt.Printf("  [%d] %s\n", i, a)
	}
}

func printLog(entries []session.ActionLogEntry) {
	for _, e := range entries {
		fmt.Printf("bot(seat %d): %s (%s)\n", e.Seat, e.Action, e.Reasoning)
	}
}

func printTerminal(t *session.TerminalResult) {
	fmt.Printf("\nhand over: winner=seat %d payoff=%.2f | score wins=%d losses=%d ties=%d net=%.2f\n",
		t.Winner, t.HumanPayoff, t.Score.Wins, t.Score.Losses, t.Score.Ties, t.Score.Net)
}

func promptAction(reader *bufio.Reader, s session.StateSnapshot) int {
	for {
		fmt.Print("choose action index: ")
		line, _ := reader.ReadString('\n')
		idx, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || idx < 0 || idx >= len(s.LegalForHuman) {
			fmt.Println("invalid index, try again")
			continue
		}
		return idx
	}
}

func promptContinue(reader *bufio.Reader) bool {
	fmt.Print("play another hand? [Y/n] ")
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "" || line == "y" || line == "yes"
}

func setupLogger(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
}

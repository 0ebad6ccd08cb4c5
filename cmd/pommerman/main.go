package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amalg/go-pommerman/internal/agent"
	"github.com/amalg/go-pommerman/internal/game"
	"github.com/amalg/go-pommerman/internal/replay"
	"github.com/amalg/go-pommerman/internal/results"
	"github.com/amalg/go-pommerman/internal/ui"
)

type options struct {
	configPath string
	seed       int64
	agents     string
	steps      int
	tui        bool
	logFile    string
	replayDir  string
	resultsDB  string
	standings  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Match config file (YAML)")
	flag.Int64Var(&opts.seed, "seed", 0, "Board seed (overrides config when non-zero)")
	flag.StringVar(&opts.agents, "agents", "", "Comma-separated agent kinds per slot: lazy, random, harmless, human")
	flag.IntVar(&opts.steps, "steps", 0, "Step limit (overrides config when non-zero)")
	flag.BoolVar(&opts.tui, "tui", false, "Watch or play the match in the terminal")
	flag.StringVar(&opts.logFile, "log", "", "Log file path (default: stderr, discarded with -tui)")
	flag.StringVar(&opts.replayDir, "replay-dir", "", "Directory to record the replay into")
	flag.StringVar(&opts.resultsDB, "results", "", "SQLite results ledger")
	flag.BoolVar(&opts.standings, "standings", false, "Print the standings from -results and exit")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	config := game.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if config, err = game.LoadConfig(opts.configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if opts.seed != 0 {
		config.Seed = opts.seed
	}
	if opts.agents != "" {
		config.Agents = strings.Split(opts.agents, ",")
	}
	if opts.steps != 0 {
		config.MaxSteps = opts.steps
	}
	if opts.replayDir != "" {
		config.ReplayDir = opts.replayDir
	}
	if opts.resultsDB != "" {
		config.ResultsDB = opts.resultsDB
	}
	if err := config.Validate(); err != nil {
		return err
	}

	if opts.standings {
		return printStandings(config.ResultsDB)
	}

	// Redirect log output before any engine code runs. Any stderr output
	// would corrupt Bubbletea's terminal rendering.
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
	} else if opts.tui {
		log.SetOutput(io.Discard)
	}

	engine := game.NewEngine(config)
	var kinds [game.AgentCount]string
	var human *agent.Human
	humanID := -1
	for i, kind := range config.Agents {
		kind = strings.TrimSpace(kind)
		a, err := agent.New(kind, config.Seed+int64(i)+1)
		if err != nil {
			return fmt.Errorf("agent %d: %w", i, err)
		}
		if h, ok := a.(*agent.Human); ok {
			if human != nil {
				return fmt.Errorf("only one human agent per match")
			}
			human, humanID = h, i
		}
		id, err := engine.AddAgent(a)
		if err != nil {
			return err
		}
		kinds[id] = kind
	}
	if human != nil && !opts.tui {
		return fmt.Errorf("a human agent needs -tui")
	}

	started := time.Now()
	var recorder *replay.Writer
	var replayPath string
	if config.ReplayDir != "" {
		replayPath = filepath.Join(config.ReplayDir, replay.FileName(started, config.Seed))
		w, err := replay.Create(replayPath, replay.Header{
			Started: started,
			Config:  config,
			Seated:  engine.Seated(),
			Agents:  kinds[:],
		})
		if err != nil {
			return fmt.Errorf("create replay: %w", err)
		}
		defer w.Close()
		recorder = w
		log.Printf("[REPLAY] recording to %s", replayPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var frames chan game.Frame
	if opts.tui {
		frames = make(chan game.Frame, 64)
	}
	engine.OnTick(func(f game.Frame) {
		if recorder != nil {
			if err := recorder.WriteFrame(f); err != nil {
				log.Printf("[REPLAY] write tick %d: %v", f.State.TimeStep, err)
			}
		}
		if frames != nil {
			select {
			case frames <- f:
			default:
				// The TUI is behind; it will catch up on the next tick.
			}
		}
	})

	if opts.tui {
		if err := playInTerminal(ctx, engine, frames, human, humanID); err != nil {
			return err
		}
	} else {
		if err := engine.StartGame(); err != nil {
			return err
		}
		log.Printf("[MATCH] seed %d, %d agents", config.Seed, len(config.Agents))
		if _, err := engine.RunToEnd(ctx); err != nil {
			return err
		}
	}

	result := engine.Result()
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			return fmt.Errorf("close replay: %w", err)
		}
	}
	printResult(result, kinds)

	if config.ResultsDB != "" && result.Steps > 0 {
		ledger, err := results.Open(config.ResultsDB)
		if err != nil {
			return fmt.Errorf("open results: %w", err)
		}
		defer ledger.Close()
		id, err := ledger.RecordMatch(context.Background(), results.Match{
			RecordedAt: started,
			Replay:     replayPath,
			Kinds:      kinds,
			Result:     result,
		})
		if err != nil {
			return fmt.Errorf("record results: %w", err)
		}
		log.Printf("[RESULTS] match %d recorded", id)
	}
	return nil
}

// playInTerminal runs the match behind the TUI. The match starts when the
// player presses Enter and stops when the TUI exits.
func playInTerminal(ctx context.Context, engine *game.Engine, frames chan game.Frame, human *agent.Human, humanID int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	start := func() {
		if err := engine.StartGame(); err != nil {
			log.Printf("[MATCH] start: %v", err)
			close(done)
			return
		}
		go func() {
			defer close(done)
			if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[MATCH] %v", err)
			}
		}()
	}

	model := ui.NewModel(frames, humanID).WithStart(start)
	if human != nil {
		model = model.WithInput(human)
	}
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()

	engine.Stop()
	if engine.Status() != game.StatusLobby {
		<-done
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func printResult(r game.MatchResult, kinds [game.AgentCount]string) {
	switch {
	case r.Winner >= 0:
		fmt.Printf("Finished after %d steps. The winner is agent %d (%s)\n", r.Steps, r.Winner, kinds[r.Winner])
	case r.Draw:
		fmt.Printf("Draw after %d steps\n", r.Steps)
	default:
		fmt.Printf("Stopped after %d steps\n", r.Steps)
	}
	for id, a := range r.Agents {
		if kinds[id] == "" {
			continue
		}
		state := "alive"
		if a.Dead {
			state = fmt.Sprintf("died at %d", a.DiedAt)
		}
		fmt.Printf("  agent %d %-8s %-12s wood %-3d power-ups %d\n", id, kinds[id], state, a.WoodDemolished, a.PowerupsCollected)
	}
	if r.Faults > 0 {
		fmt.Printf("  %d inconsistent tick(s), see the log\n", r.Faults)
	}
}

func printStandings(path string) error {
	if path == "" {
		return fmt.Errorf("-standings needs -results or results_db")
	}
	ledger, err := results.Open(path)
	if err != nil {
		return err
	}
	defer ledger.Close()

	standings, err := ledger.Standings(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("%-10s %6s %6s %8s %6s %9s\n", "kind", "played", "wins", "survived", "wood", "power-ups")
	for _, s := range standings {
		fmt.Printf("%-10s %6d %6d %8d %6d %9d\n", s.Kind, s.Played, s.Wins, s.Survived, s.Wood, s.Powerups)
	}
	return nil
}

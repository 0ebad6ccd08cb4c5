package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amalg/go-pommerman/internal/game"
	"github.com/amalg/go-pommerman/internal/replay"
	"github.com/amalg/go-pommerman/internal/ui"
)

func main() {
	var (
		path   = flag.String("file", "", "path to a .jsonl.zst replay")
		verify = flag.Bool("verify", false, "re-simulate the match and check every tick")
		watch  = flag.Bool("tui", false, "play the replay back in the terminal")
		rate   = flag.Int("rate", 0, "ticks per second for -tui (default: the match tick rate)")
	)
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "missing -file")
		os.Exit(2)
	}

	var err error
	switch {
	case *verify:
		err = verifyReplay(*path)
	case *watch:
		err = watchReplay(*path, *rate)
	default:
		err = summarize(*path)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
}

func summarize(path string) error {
	h, frames, err := replay.ReadAll(path)
	if err != nil {
		return err
	}
	fmt.Printf("replay v%d started=%s seed=%d max_steps=%d agents=%v ticks=%d\n",
		h.Version, h.Started.Format(time.RFC3339), h.Config.Seed, h.Config.MaxSteps, h.Agents, len(frames))
	if len(frames) == 0 {
		return nil
	}

	last := frames[len(frames)-1]
	var kicks, deaths int
	for _, f := range frames {
		kicks += f.Report.Kicks
		deaths += f.Report.Deaths
	}
	switch {
	case last.Status != game.StatusOver:
		fmt.Println("result: unfinished")
	case last.Winner >= 0:
		fmt.Printf("result: agent %d wins\n", last.Winner)
	default:
		fmt.Println("result: draw")
	}
	fmt.Printf("kicks=%d deaths=%d wood=%d longest_chain=%d\n",
		kicks, deaths, last.State.WoodDemolished, last.State.LongestChainedBombDistance)
	return nil
}

func verifyReplay(path string) error {
	r, err := replay.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	checked, err := replay.Verify(r)
	if err != nil {
		return fmt.Errorf("after %d ticks: %w", checked, err)
	}
	fmt.Printf("replay ok: checked=%d ticks (seed=%d)\n", checked, r.Header.Config.Seed)
	return nil
}

func watchReplay(path string, rate int) error {
	r, err := replay.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	if rate <= 0 {
		rate = r.Header.Config.TickRate
	}
	if rate <= 0 {
		rate = game.DefaultConfig().TickRate
	}

	frames := make(chan game.Frame)
	quit := make(chan struct{})
	go func() {
		defer close(frames)
		ticker := time.NewTicker(time.Second / time.Duration(rate))
		defer ticker.Stop()
		for {
			f, err := r.Next()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					fmt.Fprintln(os.Stderr, "replay:", err)
				}
				return
			}
			select {
			case <-quit:
				return
			case <-ticker.C:
			}
			select {
			case <-quit:
				return
			case frames <- f:
			}
		}
	}()
	defer close(quit)

	p := tea.NewProgram(ui.NewModel(frames, -1), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

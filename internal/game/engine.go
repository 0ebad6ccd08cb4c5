package game

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Agent decides the move of one agent slot. Act receives a private copy of
// the state and should return before ctx expires; late answers are
// replaced by MoveIdle.
type Agent interface {
	Act(ctx context.Context, s *State, id int) Move
}

// Frame is the published outcome of one tick.
type Frame struct {
	State  State            `json:"state"`
	Moves  [AgentCount]Move `json:"moves"`
	Report StepReport       `json:"report"`
	Status GameStatus       `json:"status"`
	Winner int              `json:"winner"`
}

// MatchResult summarises a finished match.
type MatchResult struct {
	Seed   int64                 `json:"seed"`
	Steps  int                   `json:"steps"`
	Winner int                   `json:"winner"` // -1 on a draw
	Draw   bool                  `json:"draw"`
	Faults int                   `json:"faults"` // Ticks that reported an inconsistent state
	Agents [AgentCount]AgentInfo `json:"agents"`
}

// Engine is the authoritative match loop. It collects one move per agent
// every tick, each under its own time budget, and advances the state.
type Engine struct {
	State  *State
	Config GameConfig

	agents [AgentCount]Agent
	status GameStatus
	faults int
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	onTick func(Frame) // Callback after each tick with a COPY of state
}

// NewEngine creates a new match engine with a board generated from config.
func NewEngine(config GameConfig) *Engine {
	return &Engine{
		State:  NewState(config),
		Config: config,
		status: StatusLobby,
		done:   make(chan struct{}),
	}
}

// OnTick sets a callback that is invoked after every tick with a copy of
// the state. Used by the TUI and the replay recorder.
func (e *Engine) OnTick(fn func(Frame)) {
	e.onTick = fn
}

// AddAgent puts a decider into the next free slot and returns the slot.
// Returns an error if the match is full or already running.
func (e *Engine) AddAgent(a Agent) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusLobby {
		return -1, fmt.Errorf("match already started")
	}
	for id := range e.agents {
		if e.agents[id] == nil {
			e.agents[id] = a
			return id, nil
		}
	}
	return -1, fmt.Errorf("match is full (%d/%d agents)", AgentCount, AgentCount)
}

// StartGame transitions the match from lobby to running. Empty slots are
// taken off the board.
func (e *Engine) StartGame() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusLobby {
		return fmt.Errorf("match already started")
	}
	seated := 0
	for _, a := range e.agents {
		if a != nil {
			seated++
		}
	}
	if seated < 1 {
		return fmt.Errorf("need at least 1 agent to start")
	}
	for id, a := range e.agents {
		if a == nil {
			e.State.RemoveAgent(id)
		}
	}
	e.status = StatusRunning
	return nil
}

// Seated reports which slots hold an agent.
func (e *Engine) Seated() [AgentCount]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	var seated [AgentCount]bool
	for id, a := range e.agents {
		seated[id] = a != nil
	}
	return seated
}

// Status returns the current match phase.
func (e *Engine) Status() GameStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Run advances the match at the configured tick rate until it is over,
// ctx is cancelled or Stop is called.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(e.Config.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.done:
			return nil
		case <-ticker.C:
			if err := e.Tick(ctx); err != nil {
				if err == ErrMatchOver {
					return nil
				}
				return err
			}
		}
	}
}

// RunToEnd advances the match as fast as the agents answer and returns
// the result.
func (e *Engine) RunToEnd(ctx context.Context) (MatchResult, error) {
	for {
		if err := ctx.Err(); err != nil {
			return e.Result(), err
		}
		if err := e.Tick(ctx); err != nil {
			if err == ErrMatchOver {
				return e.Result(), nil
			}
			return e.Result(), err
		}
	}
}

// Stop halts Run.
func (e *Engine) Stop() {
	e.once.Do(func() { close(e.done) })
}

// Tick plays one tick. Inconsistent ticks are logged and counted but do
// not stop the match.
// IMPORTANT: moves are collected without holding the lock, and the
// callback runs after the lock is released (onTick may call back into the
// engine).
func (e *Engine) Tick(ctx context.Context) error {
	e.mu.Lock()
	if e.status != StatusRunning {
		e.mu.Unlock()
		return ErrMatchOver
	}
	view := e.State.Clone()
	e.mu.Unlock()

	moves := e.collectMoves(ctx, view)

	e.mu.Lock()
	report, err := StepWithReport(e.State, moves)
	if err != nil {
		e.faults++
		log.Printf("[ENGINE] tick %d: %v", e.State.TimeStep, err)
	}
	if report.RejectedPlants > 0 {
		log.Printf("[ENGINE] tick %d: %d plant move(s) ignored", e.State.TimeStep, report.RejectedPlants)
	}
	e.checkWinCondition()

	frame := Frame{
		State:  *e.State,
		Moves:  moves,
		Report: report,
		Status: e.status,
		Winner: e.State.Winner(),
	}
	e.mu.Unlock()

	if e.onTick != nil {
		e.onTick(frame)
	}
	return nil
}

// collectMoves asks every living agent for its move in parallel.
func (e *Engine) collectMoves(ctx context.Context, s *State) [AgentCount]Move {
	var moves [AgentCount]Move
	g, gctx := errgroup.WithContext(ctx)
	for id, a := range e.agents {
		id, a := id, a
		if a == nil || !s.Agents[id].Visible() {
			continue
		}
		view := s.Clone()
		g.Go(func() error {
			moves[id] = decide(gctx, a, view, id, e.Config.DecisionTimeout)
			return nil
		})
	}
	_ = g.Wait()
	return moves
}

// decide runs one agent under its time budget. A late agent plays idle.
func decide(ctx context.Context, a Agent, view *State, id int, budget time.Duration) Move {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	ch := make(chan Move, 1)
	go func() { ch <- a.Act(ctx, view, id) }()

	select {
	case m := <-ch:
		return m
	case <-ctx.Done():
		log.Printf("[ENGINE] agent %d missed its %s budget, playing idle", id, budget)
		return MoveIdle
	}
}

// checkWinCondition ends the match when at most one agent survives or the
// step limit is reached. Must be called while e.mu is held.
func (e *Engine) checkWinCondition() {
	if e.status != StatusRunning {
		return
	}
	seated := 0
	for _, a := range e.agents {
		if a != nil {
			seated++
		}
	}

	switch {
	case e.State.AliveAgents == 0:
		// Draw: everyone died simultaneously
		e.status = StatusOver
	case e.State.AliveAgents == 1 && seated > 1:
		e.status = StatusOver
	case e.State.TimeStep >= e.Config.MaxSteps:
		e.status = StatusOver
	}
}

// Result returns the summary of the match so far.
func (e *Engine) Result() MatchResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	winner := -1
	if e.status == StatusOver {
		winner = e.State.Winner()
	}
	return MatchResult{
		Seed:   e.Config.Seed,
		Steps:  e.State.TimeStep,
		Winner: winner,
		Draw:   e.status == StatusOver && winner < 0,
		Faults: e.faults,
		Agents: e.State.Agents,
	}
}

// GetStateCopy returns a copy of the state safe to read concurrently.
func (e *Engine) GetStateCopy() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.State
}

package game

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// scripted plays its moves in order, then idles.
type scripted struct {
	moves []Move
	n     int
}

func (a *scripted) Act(ctx context.Context, s *State, id int) Move {
	if a.n >= len(a.moves) {
		return MoveIdle
	}
	m := a.moves[a.n]
	a.n++
	return m
}

// stalling does not answer until released.
type stalling struct{ release chan struct{} }

func (a stalling) Act(ctx context.Context, s *State, id int) Move {
	<-a.release
	return MoveBomb
}

func TestNewState(t *testing.T) {
	config := DefaultConfig()
	s := NewState(config)

	// Check pillar pattern (odd,odd positions)
	for y := 1; y < BoardSize; y += 2 {
		for x := 1; x < BoardSize; x += 2 {
			if s.Board[y][x].Kind != Rigid {
				t.Errorf("pillar at (%d,%d) should be rigid, got %s", x, y, s.Board[y][x].Kind)
			}
		}
	}

	// Check spawn corners hold their agents and have room to move
	for id, sp := range SpawnPositions() {
		if !s.Board.At(sp).IsAgent(id) {
			t.Errorf("spawn %v should hold agent %d, got %+v", sp, id, s.Board.At(sp))
		}
		if s.Agents[id].Pos != sp {
			t.Errorf("agent %d should start at %v, got %v", id, sp, s.Agents[id].Pos)
		}
		for _, d := range rays {
			if p := sp.Step(d); p.InBounds() && s.Board.At(p).Kind == Wood {
				t.Errorf("tile %v next to spawn should be clear", p)
			}
		}
	}

	if s.AliveAgents != AgentCount || s.TimeStep != 0 {
		t.Errorf("fresh state should have %d agents alive at step 0", AgentCount)
	}

	again := NewState(config)
	if again.Board != s.Board {
		t.Error("same seed should generate the same board")
	}
}

func TestNewStateNoWood(t *testing.T) {
	config := DefaultConfig()
	config.WoodDensity = 0
	s := NewState(config)

	for y := range s.Board {
		for x := range s.Board[y] {
			if s.Board[y][x].Kind == Wood {
				t.Fatalf("unexpected wood at (%d,%d)", x, y)
			}
		}
	}
}

func TestAddAgent(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	for i := 0; i < AgentCount; i++ {
		id, err := engine.AddAgent(&scripted{})
		if err != nil {
			t.Fatalf("failed to add agent %d: %v", i, err)
		}
		if id != i {
			t.Errorf("expected slot %d, got %d", i, id)
		}
	}
	if _, err := engine.AddAgent(&scripted{}); err == nil {
		t.Error("adding agent beyond max should fail")
	}
}

func TestStartGameClearsEmptySlots(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	if err := engine.StartGame(); err == nil {
		t.Fatal("starting without agents should fail")
	}
	if s := engine.GetStateCopy(); s.AliveAgents != AgentCount {
		t.Fatalf("failed start should leave the board alone, %d agents alive", s.AliveAgents)
	}

	engine.AddAgent(&scripted{})
	engine.AddAgent(&scripted{})
	if err := engine.StartGame(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := engine.AddAgent(&scripted{}); err == nil {
		t.Error("joining a running match should fail")
	}

	s := engine.GetStateCopy()
	if s.AliveAgents != 2 {
		t.Errorf("expected 2 agents alive, got %d", s.AliveAgents)
	}
	spawns := SpawnPositions()
	for id := 2; id < AgentCount; id++ {
		if s.Agents[id].Visible() || s.Board.At(spawns[id]).Kind != Passage {
			t.Errorf("empty slot %d should be off the board", id)
		}
	}
}

func TestWinCondition(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	engine.AddAgent(&scripted{})
	engine.AddAgent(&scripted{})
	engine.StartGame()

	// Kill agent 1
	engine.State.Board.Set(engine.State.Agents[1].Pos, Item{Kind: Passage})
	engine.State.Kill(1)
	engine.checkWinCondition()

	if engine.Status() != StatusOver {
		t.Error("match should be over when only 1 agent alive")
	}
	if r := engine.Result(); r.Winner != 0 || r.Draw {
		t.Errorf("winner should be agent 0, got %+v", r)
	}
	if err := engine.Tick(context.Background()); err != ErrMatchOver {
		t.Errorf("ticking a finished match should return ErrMatchOver, got %v", err)
	}
}

func TestRunToEndStepLimit(t *testing.T) {
	config := DefaultConfig()
	config.MaxSteps = 5
	engine := NewEngine(config)
	engine.AddAgent(&scripted{})
	engine.AddAgent(&scripted{})
	engine.StartGame()

	var frames []Frame
	engine.OnTick(func(f Frame) { frames = append(frames, f) })

	result, err := engine.RunToEnd(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Steps != 5 || !result.Draw || result.Winner != -1 {
		t.Errorf("expected a draw after 5 steps, got %+v", result)
	}
	if len(frames) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(frames))
	}
	if frames[4].Status != StatusOver || frames[0].State.TimeStep != 1 {
		t.Error("frames should carry the state after each tick")
	}
}

func TestRunToEndEndsDespiteFaults(t *testing.T) {
	config := DefaultConfig()
	config.MaxSteps = 3
	engine := NewEngine(config)
	engine.AddAgent(&scripted{})
	engine.AddAgent(&scripted{})
	engine.StartGame()

	// Agent 1 claims agent 0's cell, so every tick fails to resolve.
	engine.State.Board.Set(engine.State.Agents[1].Pos, Item{Kind: Passage})
	engine.State.Agents[1].Pos = engine.State.Agents[0].Pos

	result, err := engine.RunToEnd(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Steps != 3 || result.Faults != 3 {
		t.Errorf("expected 3 faulted steps before the limit, got %+v", result)
	}
}

func TestTickAppliesMoves(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	engine.AddAgent(&scripted{moves: []Move{MoveDown, MoveBomb}})
	engine.AddAgent(&scripted{})
	engine.StartGame()

	ctx := context.Background()
	engine.Tick(ctx)
	engine.Tick(ctx)

	s := engine.GetStateCopy()
	if s.Agents[0].Pos != (Position{X: 0, Y: 1}) {
		t.Errorf("agent 0 should move down, got %v", s.Agents[0].Pos)
	}
	if !s.HasBomb(0, 1) {
		t.Error("agent 0 should have planted a bomb")
	}
}

func TestSlowAgentPlaysIdle(t *testing.T) {
	config := DefaultConfig()
	config.DecisionTimeout = 10 * time.Millisecond
	engine := NewEngine(config)
	release := make(chan struct{})
	defer close(release)
	engine.AddAgent(stalling{release: release})
	engine.AddAgent(&scripted{})
	engine.StartGame()

	if err := engine.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if engine.GetStateCopy().Bombs.Count != 0 {
		t.Error("late move should be replaced by idle")
	}
}

func TestRunStops(t *testing.T) {
	config := DefaultConfig()
	config.TickRate = 1000
	engine := NewEngine(config)
	engine.AddAgent(&scripted{})
	engine.AddAgent(&scripted{})
	engine.StartGame()

	done := make(chan error, 1)
	go func() { done <- engine.Run(context.Background()) }()
	engine.Stop()
	engine.Stop() // Second stop is a no-op

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "match.yaml")
	raw := []byte("seed: 42\nwood_density: 0.2\ndecision_timeout: 50ms\nagents: [lazy, random]\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if config.Seed != 42 || config.WoodDensity != 0.2 || config.DecisionTimeout != 50*time.Millisecond {
		t.Errorf("values not read: %+v", config)
	}
	if len(config.Agents) != 2 || config.Agents[0] != "lazy" {
		t.Errorf("agents not read: %v", config.Agents)
	}
	if config.MaxSteps != DefaultConfig().MaxSteps {
		t.Errorf("missing keys should keep defaults, got max_steps %d", config.MaxSteps)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("wood_density: 1.5\n"), 0o644)

	if _, err := LoadConfig(bad); err == nil {
		t.Error("density above 1 should be rejected")
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should be an error")
	}
}

package obs

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/amalg/go-pommerman/internal/game"
)

func TestFromStateAndBack(t *testing.T) {
	s := game.NewState(game.DefaultConfig())
	s.PlantBomb(0, 0, 0)
	s.Bombs.Items[0].Timer = 4
	s.PlantBomb(1, 0, game.UnknownOwner)
	s.Bombs.Items[1].Timer = 2
	s.Agents[0].CanKick = true

	o := FromState(s, 0)
	raw, err := json.Marshal(o)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	got, id, err := parsed.State()
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if id != 0 {
		t.Errorf("expected own id 0, got %d", id)
	}
	for y := range s.Board {
		for x := range s.Board[y] {
			if got.Board[y][x].Kind != s.Board[y][x].Kind {
				t.Errorf("(%d,%d): expected %s, got %s", x, y, s.Board[y][x].Kind, got.Board[y][x].Kind)
			}
		}
	}
	if !got.Board[0][0].HasBombBeneath() {
		t.Error("bomb under agent 0 should survive the round trip")
	}
	if got.Bombs.Count != 2 {
		t.Fatalf("expected 2 bombs, got %d", got.Bombs.Count)
	}
	first := got.Bombs.Items[0]
	if first.Pos != (game.Position{X: 1, Y: 0}) || first.Timer != 2 || first.Owner != game.UnknownOwner {
		t.Errorf("bombs should be sorted by fuse, first is %+v", first)
	}
	if got.Bombs.Items[1].Strength != s.Agents[0].BombStrength {
		t.Errorf("strength not restored: %d", got.Bombs.Items[1].Strength)
	}
	if !got.Agents[0].CanKick || got.Agents[0].BombStrength != s.Agents[0].BombStrength {
		t.Errorf("own stats not restored: %+v", got.Agents[0])
	}
}

func TestParseRejectsBadObservation(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"missing board": `{"bomb_life":[],"bomb_blast_strength":[],"alive":[],"position":[0,0],"blast_strength":2,"can_kick":false,"ammo":1}`,
	}

	o := FromState(game.NewState(game.DefaultConfig()), 0)
	o.Board[3][3] = 42
	raw, _ := json.Marshal(o)
	cases["unknown code"] = string(raw)

	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestStateFromFoggyBoard(t *testing.T) {
	o := FromState(game.NewState(game.DefaultConfig()), 2)
	for y := 0; y < game.BoardSize; y++ {
		for x := 0; x < 5; x++ {
			o.Board[y][x] = CodeFog
		}
	}
	o.FlameLife[10][9] = 1
	o.Board[10][9] = CodeFlames
	o.Board[9][10] = CodeKick

	s, id, err := o.State()
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if id != 2 {
		t.Errorf("expected own id 2, got %d", id)
	}
	if s.Agents[0].Visible() || s.Agents[0].Dead {
		t.Error("agent in fog should be alive but off the board")
	}
	if s.AliveAgents != game.AgentCount {
		t.Errorf("expected all agents alive, got %d", s.AliveAgents)
	}
	if s.Flames.Count != 1 || s.Flames.Items[0].TimeLeft != 1 {
		t.Errorf("flame life not restored: %+v", s.Flames.Slice())
	}

	// Stepping the rebuilt state works like any other.
	if err := game.Step(s, [game.AgentCount]game.Move{}); err != nil {
		t.Fatalf("step: %v", err)
	}
	if s.Board[10][9].Kind != game.Passage {
		t.Errorf("flame should burn out, got %s", s.Board[10][9].Kind)
	}
}

func TestStateDeadAgents(t *testing.T) {
	o := FromState(game.NewState(game.DefaultConfig()), 0)
	o.Alive = []int{CodeAgent0, CodeAgent3}

	s, _, err := o.State()
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if !s.Agents[1].Dead || !s.Agents[2].Dead || s.AliveAgents != 2 {
		t.Errorf("agents missing from the alive list should be dead, alive=%d", s.AliveAgents)
	}
	if s.Board[0][10].Kind != game.Passage {
		t.Error("dead agent should be removed from the board")
	}
}

func TestStateRejectsMissingSelf(t *testing.T) {
	o := FromState(game.NewState(game.DefaultConfig()), 0)
	o.Position = [2]int{5, 5}

	_, _, err := o.State()
	if err == nil || !strings.Contains(err.Error(), "own position") {
		t.Errorf("expected own position error, got %v", err)
	}
}

func TestStateManyBurningCells(t *testing.T) {
	o := FromState(game.NewState(game.DefaultConfig()), 0)
	burning := 0
	for y := 3; y <= 7; y++ {
		for x := 0; x < game.BoardSize; x++ {
			o.Board[y][x] = CodeFlames
			o.FlameLife[y][x] = float64(1 + x%3)
			burning++
		}
	}
	if burning <= game.MaxFlames {
		t.Fatalf("need more than %d burning cells, have %d", game.MaxFlames, burning)
	}

	s, _, err := o.State()
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if s.Flames.Count != 3 {
		t.Errorf("cells should be grouped by remaining life, got %d flames", s.Flames.Count)
	}

	if err := game.Step(s, [game.AgentCount]game.Move{}); err != nil {
		t.Fatalf("step: %v", err)
	}
	if s.Board[5][0].Kind != game.Passage || s.Board[5][1].Kind != game.FlameItem {
		t.Errorf("only cells with one tick left should burn out, got %s and %s", s.Board[5][0].Kind, s.Board[5][1].Kind)
	}
	for i := 0; i < 2; i++ {
		game.Step(s, [game.AgentCount]game.Move{})
	}
	for y := 3; y <= 7; y++ {
		for x := 0; x < game.BoardSize; x++ {
			if s.Board[y][x].Kind == game.FlameItem {
				t.Fatalf("(%d,%d) still burning after three ticks", x, y)
			}
		}
	}
}

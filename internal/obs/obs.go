// Package obs converts agent observations to and from game states.
//
// An observation is what one agent sees of the match: the board as item
// codes plus per-cell bomb and flame grids. Observations from other tools
// arrive as JSON and are validated against an embedded schema before they
// are turned into a state the engine can step.
package obs

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/amalg/go-pommerman/internal/game"
)

// Item codes used on the observation board.
const (
	CodePassage = iota
	CodeRigid
	CodeWood
	CodeBomb
	CodeFlames
	CodeFog
	CodeExtraBomb
	CodeIncrRange
	CodeKick
	CodeAgentDummy
	CodeAgent0
	CodeAgent1
	CodeAgent2
	CodeAgent3
)

//go:embed observation.schema.json
var schemaText string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("observation.schema.json", schemaText)
	})
	return schema, schemaErr
}

// Observation is one agent's view of the board. Grids are indexed
// [row][column]; Position is (row, column) of the observing agent.
type Observation struct {
	Board               [][]int     `json:"board"`
	BombLife            [][]float64 `json:"bomb_life"`
	BombBlastStrength   [][]float64 `json:"bomb_blast_strength"`
	BombMovingDirection [][]float64 `json:"bomb_moving_direction,omitempty"`
	FlameLife           [][]float64 `json:"flame_life,omitempty"`
	Alive               []int       `json:"alive"`
	Position            [2]int      `json:"position"`
	BlastStrength       int         `json:"blast_strength"`
	CanKick             bool        `json:"can_kick"`
	Ammo                int         `json:"ammo"`
	StepCount           int         `json:"step_count"`
}

// Parse validates raw against the observation schema and decodes it.
func Parse(raw []byte) (Observation, error) {
	var o Observation
	sch, err := compiledSchema()
	if err != nil {
		return o, fmt.Errorf("compile observation schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return o, fmt.Errorf("decode observation: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return o, fmt.Errorf("invalid observation: %w", err)
	}
	if err := json.Unmarshal(raw, &o); err != nil {
		return o, fmt.Errorf("decode observation: %w", err)
	}
	return o, nil
}

type observedBomb struct {
	pos      game.Position
	life     int
	strength int
	dir      game.Direction
}

// State rebuilds a game state from the observation and returns it with the
// id of the observing agent.
//
// Bombs are attributed to game.UnknownOwner and ordered by remaining fuse.
// Burning cells with the same remaining life share one flame.
// Observed blast strengths count the bomb's own cell, so one is subtracted
// to get the ray length. Agents hidden by fog stay alive but off the board.
func (o *Observation) State() (*game.State, int, error) {
	if len(o.Board) != game.BoardSize {
		return nil, -1, fmt.Errorf("board has %d rows, want %d", len(o.Board), game.BoardSize)
	}

	s := game.NewEmptyState()
	s.TimeStep = o.StepCount

	var bombs []observedBomb
	flames := make(map[int][]game.Position)
	addBomb := func(x, y int) {
		bombs = append(bombs, observedBomb{
			pos:      game.Position{X: x, Y: y},
			life:     int(cell(o.BombLife, x, y)),
			strength: int(cell(o.BombBlastStrength, x, y)) - 1,
			dir:      game.Direction(cell(o.BombMovingDirection, x, y)),
		})
	}

	for y, row := range o.Board {
		if len(row) != game.BoardSize {
			return nil, -1, fmt.Errorf("board row %d has %d cells, want %d", y, len(row), game.BoardSize)
		}
		for x, code := range row {
			p := game.Position{X: x, Y: y}
			switch code {
			case CodePassage:
			case CodeRigid:
				s.Board.Set(p, game.Item{Kind: game.Rigid})
			case CodeWood:
				s.Board.Set(p, game.Item{Kind: game.Wood})
			case CodeBomb:
				addBomb(x, y)
			case CodeFlames:
				life := int(cell(o.FlameLife, x, y))
				if life <= 0 {
					life = game.FlameLifetime
				}
				flames[life] = append(flames[life], p)
			case CodeFog:
				s.Board.Set(p, game.Item{Kind: game.Fog})
			case CodeExtraBomb:
				s.Board.Set(p, game.Item{Kind: game.ExtraBomb})
			case CodeIncrRange:
				s.Board.Set(p, game.Item{Kind: game.IncrRange})
			case CodeKick:
				s.Board.Set(p, game.Item{Kind: game.Kick})
			case CodeAgentDummy:
				s.Board.Set(p, game.Item{Kind: game.AgentDummy})
			case CodeAgent0, CodeAgent1, CodeAgent2, CodeAgent3:
				s.PutAgent(code-CodeAgent0, x, y)
				if cell(o.BombBlastStrength, x, y) > 0 {
					// Bomb under the agent
					addBomb(x, y)
				}
			default:
				return nil, -1, fmt.Errorf("unknown item code %d at (%d,%d)", code, x, y)
			}
		}
	}

	// Cells burning out together become one flame.
	lives := make([]int, 0, len(flames))
	for life := range flames {
		lives = append(lives, life)
	}
	sort.Ints(lives)
	for _, life := range lives {
		if !s.AddFlame(life, flames[life]...) {
			return nil, -1, fmt.Errorf("too many flame lifetimes, limit %d", game.MaxFlames)
		}
	}

	sort.SliceStable(bombs, func(i, j int) bool { return bombs[i].life < bombs[j].life })
	for _, b := range bombs {
		if !s.PlantBomb(b.pos.X, b.pos.Y, game.UnknownOwner) {
			return nil, -1, fmt.Errorf("cannot place bomb at (%d,%d)", b.pos.X, b.pos.Y)
		}
		placed := s.GetBomb(b.pos.X, b.pos.Y)
		placed.Strength = max(b.strength, 0)
		placed.Timer = b.life
		placed.Dir = b.dir
	}

	for id := 0; id < game.AgentCount; id++ {
		if !contains(o.Alive, CodeAgent0+id) {
			s.RemoveAgent(id)
		}
	}

	self := game.Position{X: o.Position[1], Y: o.Position[0]}
	if !self.InBounds() {
		return nil, -1, fmt.Errorf("position (%d,%d) is off the board", self.X, self.Y)
	}
	id := s.GetAgent(self.X, self.Y)
	if id < 0 {
		return nil, -1, fmt.Errorf("no living agent at own position (%d,%d)", self.X, self.Y)
	}
	me := &s.Agents[id]
	me.CanKick = o.CanKick
	me.BombStrength = max(o.BlastStrength-1, 0)
	me.MaxBombCount = o.Ammo
	me.BombCount = 0

	return s, id, nil
}

// FromState builds the observation agent id has of s. Nothing is hidden:
// the observation shows the full board.
func FromState(s *game.State, id int) Observation {
	o := Observation{
		Board:               makeGrid[int](),
		BombLife:            makeGrid[float64](),
		BombBlastStrength:   makeGrid[float64](),
		BombMovingDirection: makeGrid[float64](),
		FlameLife:           makeGrid[float64](),
		Alive:               []int{},
		StepCount:           s.TimeStep,
	}

	for y := range s.Board {
		for x, it := range s.Board[y] {
			o.Board[y][x] = code(it)
		}
	}
	for _, b := range s.Bombs.Slice() {
		o.BombLife[b.Pos.Y][b.Pos.X] = float64(b.Timer)
		o.BombBlastStrength[b.Pos.Y][b.Pos.X] = float64(b.Strength + 1)
		o.BombMovingDirection[b.Pos.Y][b.Pos.X] = float64(b.Dir)
	}
	life := make(map[uint16]int, s.Flames.Count)
	for _, f := range s.Flames.Slice() {
		life[f.Signature] = f.TimeLeft
	}
	for y := range s.Board {
		for x, it := range s.Board[y] {
			if it.Kind == game.FlameItem {
				o.FlameLife[y][x] = float64(life[it.Signature])
			}
		}
	}

	for i := range s.Agents {
		if !s.Agents[i].Dead {
			o.Alive = append(o.Alive, CodeAgent0+i)
		}
	}
	if id >= 0 && id < game.AgentCount {
		a := s.Agents[id]
		o.Position = [2]int{a.Pos.Y, a.Pos.X}
		o.BlastStrength = a.BombStrength + 1
		o.CanKick = a.CanKick
		o.Ammo = max(a.MaxBombCount-a.BombCount, 0)
	}
	return o
}

func code(it game.Item) int {
	switch it.Kind {
	case game.Rigid:
		return CodeRigid
	case game.Wood:
		return CodeWood
	case game.BombItem:
		return CodeBomb
	case game.FlameItem:
		return CodeFlames
	case game.Fog:
		return CodeFog
	case game.ExtraBomb:
		return CodeExtraBomb
	case game.IncrRange:
		return CodeIncrRange
	case game.Kick:
		return CodeKick
	case game.AgentDummy:
		return CodeAgentDummy
	case game.AgentItem:
		return CodeAgent0 + int(it.Agent)
	}
	return CodePassage
}

func makeGrid[T int | float64]() [][]T {
	g := make([][]T, game.BoardSize)
	for i := range g {
		g[i] = make([]T, game.BoardSize)
	}
	return g
}

// cell reads grid at (x, y), treating missing grids and rows as zero.
func cell(grid [][]float64, x, y int) float64 {
	if y >= len(grid) || x >= len(grid[y]) {
		return 0
	}
	return grid[y][x]
}

func contains(list []int, v int) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

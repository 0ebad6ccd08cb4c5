package game

import "time"

// Board dimensions and fixed capacities. The state is made of arrays only so
// that a plain value copy of State is a deep copy.
const (
	BoardSize        = 11
	AgentCount       = 4
	MaxBombsPerAgent = 5
	MaxBombs         = AgentCount * MaxBombsPerAgent
	MaxFlames        = MaxBombs + AgentCount*FlameLifetime

	BombLifetime  = 10 // Ticks from planting to detonation
	FlameLifetime = 3  // Ticks a flame stays on the board

	// UnknownOwner marks a bomb whose planter was never observed.
	UnknownOwner = -1
)

// ItemKind is the tag of a single board cell.
type ItemKind uint8

const (
	Passage ItemKind = iota
	Rigid            // Indestructible
	Wood             // Destructible, may conceal a power-up
	BombItem
	FlameItem
	ExtraBomb
	IncrRange
	Kick
	Fog        // Unknown contents (partial observability)
	AgentDummy // Agent of unknown identity
	AgentItem
)

var kindNames = [...]string{
	Passage:    "passage",
	Rigid:      "rigid",
	Wood:       "wood",
	BombItem:   "bomb",
	FlameItem:  "flame",
	ExtraBomb:  "extra_bomb",
	IncrRange:  "incr_range",
	Kick:       "kick",
	Fog:        "fog",
	AgentDummy: "agent_dummy",
	AgentItem:  "agent",
}

func (k ItemKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Item is the content of one cell. Hidden holds whatever lies beneath the
// visible item: the power-up inside a Wood block, the power-up a Flame
// reveals when it burns out, the power-up a sliding Bomb came to rest on,
// or BombItem when an agent stands on its bomb.
type Item struct {
	Kind      ItemKind `json:"kind"`
	Agent     uint8    `json:"agent,omitempty"`
	Hidden    ItemKind `json:"hidden,omitempty"`
	Signature uint16   `json:"signature,omitempty"`
}

// AgentCell returns the item for agent id.
func AgentCell(id int) Item { return Item{Kind: AgentItem, Agent: uint8(id)} }

// FlameCell returns a flame item of the given chain signature.
func FlameCell(signature uint16, reveal ItemKind) Item {
	return Item{Kind: FlameItem, Signature: signature, Hidden: reveal}
}

// IsPowerUp reports whether k is one of the collectible power-ups.
func IsPowerUp(k ItemKind) bool {
	return k == ExtraBomb || k == IncrRange || k == Kick
}

// IsAgent reports whether the cell holds agent id.
func (it Item) IsAgent(id int) bool {
	return it.Kind == AgentItem && int(it.Agent) == id
}

// HasBombBeneath reports whether a bomb shares the cell with an agent.
func (it Item) HasBombBeneath() bool {
	return it.Kind == AgentItem && it.Hidden == BombItem
}

// Direction represents a movement direction. Idle means "not moving".
type Direction uint8

const (
	DirIdle Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

// Move is the action an agent intends for one tick. The directional moves
// share their values with the matching Direction.
type Move uint8

const (
	MoveIdle Move = iota
	MoveUp
	MoveDown
	MoveLeft
	MoveRight
	MoveBomb
)

// MoveCount is the number of distinct moves.
const MoveCount = 6

var moveNames = [...]string{"idle", "up", "down", "left", "right", "bomb"}

func (m Move) String() string {
	if int(m) < len(moveNames) {
		return moveNames[m]
	}
	return "invalid"
}

// Direction returns the direction of a directional move, DirIdle otherwise.
func (m Move) Direction() Direction {
	if m >= MoveUp && m <= MoveRight {
		return Direction(m)
	}
	return DirIdle
}

// Position represents a coordinate on the board.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// OffBoard is the sentinel position of agents that are dead or not visible.
var OffBoard = Position{X: -1, Y: -1}

// Step returns the neighbouring cell in direction d.
func (p Position) Step(d Direction) Position {
	switch d {
	case DirUp:
		p.Y--
	case DirDown:
		p.Y++
	case DirLeft:
		p.X--
	case DirRight:
		p.X++
	}
	return p
}

// InBounds reports whether p lies on the board.
func (p Position) InBounds() bool {
	return p.X >= 0 && p.X < BoardSize && p.Y >= 0 && p.Y < BoardSize
}

// Distance is the Manhattan distance between p and q.
func (p Position) Distance(q Position) int {
	return abs(p.X-q.X) + abs(p.Y-q.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// AgentInfo holds everything known about one agent.
type AgentInfo struct {
	ID           int      `json:"id"`
	Pos          Position `json:"pos"`
	Dead         bool     `json:"dead"`
	DiedAt       int      `json:"died_at"`
	BombCount    int      `json:"bomb_count"`     // Bombs currently in flight
	MaxBombCount int      `json:"max_bomb_count"` // Max simultaneous bombs
	BombStrength int      `json:"bomb_strength"`  // Flame reach per ray
	CanKick      bool     `json:"can_kick"`

	WoodDemolished    int `json:"wood_demolished"`
	PowerupsCollected int `json:"powerups_collected"`

	ExtraBombPowerupPoints  float64 `json:"extra_bomb_points"`
	ExtraRangePowerupPoints float64 `json:"extra_range_points"`
	FirstKickPowerupPoints  float64 `json:"first_kick_points"`
	OtherKickPowerupPoints  float64 `json:"other_kick_points"`
}

// Visible reports whether the agent takes part in move resolution.
func (a *AgentInfo) Visible() bool {
	return !a.Dead && a.Pos.X >= 0 && a.Pos.Y >= 0
}

// Bomb is an armed bomb on the board.
type Bomb struct {
	Owner    int       `json:"owner"` // Agent id or UnknownOwner
	Pos      Position  `json:"pos"`
	Strength int       `json:"strength"`
	Timer    int       `json:"timer"` // Ticks left until detonation
	Dir      Direction `json:"dir"`   // Non-idle while sliding after a kick
	Moved    bool      `json:"moved"` // Already processed this tick
}

// Flame is one explosion's fire. Its cells are the board cells that carry
// its Signature; Pos and Strength record the blast that lit it.
type Flame struct {
	Pos       Position `json:"pos"`
	Strength  int      `json:"strength"`
	TimeLeft  int      `json:"time_left"`
	Signature uint16   `json:"signature"`
}

// GameStatus represents the current match phase.
type GameStatus int

const (
	StatusLobby   GameStatus = iota // Waiting for agents
	StatusRunning                   // Match in progress
	StatusOver                      // Match finished
)

// GameConfig holds configurable parameters for a match.
type GameConfig struct {
	Seed            int64         `yaml:"seed" json:"seed"`
	WoodDensity     float64       `yaml:"wood_density" json:"wood_density"`         // 0.0 to 1.0
	PowerUpChance   float64       `yaml:"powerup_chance" json:"powerup_chance"`     // Chance a wood block hides a power-up
	MaxSteps        int           `yaml:"max_steps" json:"max_steps"`               // Draw after this many ticks
	TickRate        int           `yaml:"tick_rate" json:"tick_rate"`               // Ticks per second in real-time mode
	DecisionTimeout time.Duration `yaml:"decision_timeout" json:"decision_timeout"` // Wall-clock budget per decision
	Agents          []string      `yaml:"agents" json:"agents"`                     // Decider kind per agent slot
	ReplayDir       string        `yaml:"replay_dir" json:"replay_dir"`
	ResultsDB       string        `yaml:"results_db" json:"results_db"`
}

// DefaultConfig returns a sensible default match configuration.
func DefaultConfig() GameConfig {
	return GameConfig{
		Seed:            0x1337,
		WoodDensity:     0.5,
		PowerUpChance:   0.3,
		MaxSteps:        800,
		TickRate:        10,
		DecisionTimeout: 100 * time.Millisecond,
		Agents:          []string{"random", "random", "random", "random"},
	}
}

// SpawnPositions returns the corner spawn positions for agents.
// These corners and their adjacent tiles are kept clear of wood.
func SpawnPositions() [AgentCount]Position {
	return [AgentCount]Position{
		{X: 0, Y: 0},                         // Top-left
		{X: BoardSize - 1, Y: 0},             // Top-right
		{X: BoardSize - 1, Y: BoardSize - 1}, // Bottom-right
		{X: 0, Y: BoardSize - 1},             // Bottom-left
	}
}

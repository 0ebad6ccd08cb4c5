package game

// Board is the grid of cells, indexed [y][x].
type Board [BoardSize][BoardSize]Item

// At returns the item at p. p must be in bounds.
func (b *Board) At(p Position) Item { return b[p.Y][p.X] }

// Set writes the item at p. p must be in bounds.
func (b *Board) Set(p Position, it Item) { b[p.Y][p.X] = it }

// BombQueue is a fixed-capacity list of bombs kept in arming order, which
// is also fuse order for bombs armed by the engine.
type BombQueue struct {
	Items [MaxBombs]Bomb `json:"items"`
	Count int            `json:"count"`
}

// Full reports whether no more bombs can be armed.
func (q *BombQueue) Full() bool { return q.Count >= MaxBombs }

// Push appends b. The caller checks Full first.
func (q *BombQueue) Push(b Bomb) { q.Items[q.Count] = b; q.Count++ }

// RemoveAt deletes the bomb at index i, keeping order.
func (q *BombQueue) RemoveAt(i int) {
	copy(q.Items[i:q.Count], q.Items[i+1:q.Count])
	q.Count--
	q.Items[q.Count] = Bomb{}
}

// Slice returns the live bombs. The slice aliases the queue.
func (q *BombQueue) Slice() []Bomb { return q.Items[:q.Count] }

// FlameQueue is a fixed-capacity FIFO of flames in spawn order.
type FlameQueue struct {
	Items [MaxFlames]Flame `json:"items"`
	Count int              `json:"count"`
}

// Slice returns the live flames. The slice aliases the queue.
func (q *FlameQueue) Slice() []Flame { return q.Items[:q.Count] }

func (q *FlameQueue) push(f Flame) bool {
	if q.Count >= MaxFlames {
		return false
	}
	q.Items[q.Count] = f
	q.Count++
	return true
}

func (q *FlameQueue) popFront() Flame {
	f := q.Items[0]
	copy(q.Items[:q.Count], q.Items[1:q.Count])
	q.Count--
	q.Items[q.Count] = Flame{}
	return f
}

// State is the complete game state advanced by Step. It owns no pointers,
// so assigning a State copies it entirely.
type State struct {
	Board  Board                 `json:"board"`
	Agents [AgentCount]AgentInfo `json:"agents"`
	Bombs  BombQueue             `json:"bombs"`
	Flames FlameQueue            `json:"flames"`

	TimeStep    int `json:"time_step"`
	RelTimeStep int `json:"rel_time_step"` // Ticks simulated ahead by look-ahead callers
	AliveAgents int `json:"alive_agents"`

	WoodDemolished             int `json:"wood_demolished"`
	LongestChainedBombDistance int `json:"longest_chained_bomb_distance"`

	nextSignature uint16
}

// NewEmptyState returns a board of passages with all agents off the board
// and alive, carrying default stats.
func NewEmptyState() *State {
	s := &State{}
	for i := range s.Agents {
		s.Agents[i] = AgentInfo{
			ID:           i,
			Pos:          OffBoard,
			MaxBombCount: 1,
			BombStrength: 1,
		}
	}
	s.AliveAgents = AgentCount
	return s
}

// Clone returns a copy of s that can be advanced independently.
func (s *State) Clone() *State {
	c := *s
	return &c
}

// PutAgent places agent id at (x, y), replacing whatever was there.
func (s *State) PutAgent(id, x, y int) {
	p := Position{X: x, Y: y}
	if !p.InBounds() || id < 0 || id >= AgentCount {
		return
	}
	s.Agents[id].Pos = p
	s.Board.Set(p, AgentCell(id))
}

// PutAgentsInCorners places the four agents on the spawn corners.
func (s *State) PutAgentsInCorners() {
	for id, p := range SpawnPositions() {
		s.PutAgent(id, p.X, p.Y)
	}
}

// GetAgent returns the id of the visible agent standing at (x, y), or -1.
func (s *State) GetAgent(x, y int) int {
	for i := range s.Agents {
		a := &s.Agents[i]
		if a.Visible() && a.Pos.X == x && a.Pos.Y == y {
			return i
		}
	}
	return -1
}

// Kill marks agent id as dead at the current time step and takes it off the
// board. The caller decides what the agent's cell becomes.
func (s *State) Kill(id int) {
	a := &s.Agents[id]
	if a.Dead {
		return
	}
	a.Dead = true
	a.DiedAt = s.TimeStep
	a.Pos = OffBoard
	s.AliveAgents--
}

// RemoveAgent takes agent id off the board for the whole match, as if it
// had died before the first tick.
func (s *State) RemoveAgent(id int) {
	if p := s.Agents[id].Pos; p.InBounds() && s.Board.At(p).IsAgent(id) {
		s.Board.Set(p, Item{Kind: Passage})
	}
	s.Kill(id)
}

// IsOver reports whether at most one agent is left alive.
func (s *State) IsOver() bool {
	return s.AliveAgents <= 1
}

// Winner returns the id of the only surviving agent, or -1 on a draw or
// while the match is undecided.
func (s *State) Winner() int {
	if s.AliveAgents != 1 {
		return -1
	}
	for i := range s.Agents {
		if !s.Agents[i].Dead {
			return i
		}
	}
	return -1
}

func (s *State) newSignature() uint16 {
	s.nextSignature++
	if s.nextSignature == 0 {
		s.nextSignature = 1
	}
	return s.nextSignature
}

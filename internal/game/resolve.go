package game

const noIndex = -1

// resolver is the tick-local scratch of move resolution. It lives on the
// stack of one Step call and never outlives it.
type resolver struct {
	s      *State
	moves  [AgentCount]Move
	report StepReport

	active    [AgentCount]bool
	agentDest [AgentCount]Position
	bombDest  [MaxBombs]Position

	kickedBomb [AgentCount]int // Bomb kicked by the agent, or noIndex
	kicker     [MaxBombs]int   // Agent that kicked the bomb, or noIndex

	agentOcc [BoardSize][BoardSize]uint8
	bombOcc  [BoardSize][BoardSize]uint8

	order   [AgentCount]int // Chain members, free end first
	ordered int
	cycle   [AgentCount]bool // Members of the ouroboros
}

func newResolver(s *State, moves [AgentCount]Move) resolver {
	r := resolver{s: s, moves: moves}
	for i := range r.kickedBomb {
		r.kickedBomb[i] = noIndex
	}
	for i := range r.kicker {
		r.kicker[i] = noIndex
	}
	return r
}

func (r *resolver) moving(i int) bool {
	return r.active[i] && r.agentDest[i] != r.s.Agents[i].Pos
}

func (r *resolver) bombMoving(i int) bool {
	return r.bombDest[i] != r.s.Bombs.Items[i].Pos
}

// project computes where every agent and bomb wants to be, ignoring
// everybody else. Plant moves arm their bomb here.
func (r *resolver) project() {
	s := r.s
	for i := range s.Agents {
		a := &s.Agents[i]
		r.active[i] = a.Visible()
		r.agentDest[i] = a.Pos
		if r.active[i] && r.moves[i] == MoveBomb && !s.PlantBomb(a.Pos.X, a.Pos.Y, i) {
			r.report.RejectedPlants++
		}
	}

	for i := range s.Agents {
		d := r.moves[i].Direction()
		if !r.active[i] || d == DirIdle {
			continue
		}
		a := &s.Agents[i]
		if p := a.Pos.Step(d); r.agentCanEnter(a, p) {
			r.agentDest[i] = p
		}
	}

	for i := 0; i < s.Bombs.Count; i++ {
		b := &s.Bombs.Items[i]
		r.bombDest[i] = b.Pos
		if b.Dir == DirIdle {
			continue
		}
		if p := b.Pos.Step(b.Dir); bombCanEnter(&s.Board, p) {
			r.bombDest[i] = p
			continue
		}
		b.Dir = DirIdle
		r.report.BombsStopped++
	}
}

func (r *resolver) agentCanEnter(a *AgentInfo, p Position) bool {
	if !p.InBounds() {
		return false
	}
	it := r.s.Board.At(p)
	switch it.Kind {
	case Rigid, Wood, Fog, AgentDummy:
		return false
	case BombItem:
		return a.CanKick
	}
	if it.HasBombBeneath() {
		return a.CanKick
	}
	return true
}

// fixSwaps stops pairs of agents that want to trade cells.
func (r *resolver) fixSwaps() {
	agents := &r.s.Agents
	for i := 0; i < AgentCount; i++ {
		for j := i + 1; j < AgentCount; j++ {
			if !r.moving(i) || !r.moving(j) {
				continue
			}
			if r.agentDest[i] == agents[j].Pos && r.agentDest[j] == agents[i].Pos {
				r.agentDest[i] = agents[i].Pos
				r.agentDest[j] = agents[j].Pos
				r.report.Swaps++
			}
		}
	}
}

// tally recounts how many agents and bombs claim every cell.
func (r *resolver) tally() {
	r.agentOcc = [BoardSize][BoardSize]uint8{}
	r.bombOcc = [BoardSize][BoardSize]uint8{}
	for i := range r.agentDest {
		if r.active[i] {
			d := r.agentDest[i]
			r.agentOcc[d.Y][d.X]++
		}
	}
	for i := 0; i < r.s.Bombs.Count; i++ {
		d := r.bombDest[i]
		r.bombOcc[d.Y][d.X]++
	}
}

// resolveConflicts sends movers back to their cells until no cell is
// claimed twice. Every pass either reverts a mover or ends the loop, so it
// stops after at most AgentCount+MaxBombs passes. In strict mode an agent
// and a bomb may not end on the same cell unless neither moved.
func (r *resolver) resolveConflicts(strict bool) {
	for {
		r.tally()
		changed := false

		for i := range r.agentDest {
			if !r.moving(i) {
				continue
			}
			d := r.agentDest[i]
			agents, bombs := r.agentOcc[d.Y][d.X], r.bombOcc[d.Y][d.X]
			if agents > 1 || bombs > 1 || (strict && bombs != 0) {
				r.revertAgent(i)
				changed = true
			}
		}

		for i := 0; i < r.s.Bombs.Count; i++ {
			if !r.bombMoving(i) {
				continue
			}
			d := r.bombDest[i]
			agents, bombs := r.agentOcc[d.Y][d.X], r.bombOcc[d.Y][d.X]
			if bombs > 1 || agents > 1 || (strict && agents != 0) {
				r.revertBomb(i)
				changed = true
			}
		}

		if !changed {
			return
		}
	}
}

// revertAgent keeps agent i in place and cancels the kick it made.
func (r *resolver) revertAgent(i int) {
	r.agentDest[i] = r.s.Agents[i].Pos
	if k := r.kickedBomb[i]; k != noIndex {
		r.bombDest[k] = r.s.Bombs.Items[k].Pos
		r.kicker[k] = noIndex
		r.kickedBomb[i] = noIndex
		r.report.KicksUndone++
	}
}

// revertBomb keeps bomb i in place and sends its kicker back.
func (r *resolver) revertBomb(i int) {
	r.bombDest[i] = r.s.Bombs.Items[i].Pos
	if j := r.kicker[i]; j != noIndex {
		r.agentDest[j] = r.s.Agents[j].Pos
		r.kickedBomb[j] = noIndex
		r.kicker[i] = noIndex
		r.report.KicksUndone++
	}
}

// agentHeadingTo returns the active agent whose destination is p.
func (r *resolver) agentHeadingTo(p Position) int {
	for i := range r.agentDest {
		if r.active[i] && r.agentDest[i] == p {
			return i
		}
	}
	return noIndex
}

// agentStandingOn returns the active agent currently at p.
func (r *resolver) agentStandingOn(p Position) int {
	for i := range r.s.Agents {
		if r.active[i] && r.s.Agents[i].Pos == p {
			return i
		}
	}
	return noIndex
}

// handleKicks settles every bomb that an agent wants to step onto. A
// kicker pushes a resting bomb one cell further when that cell is free;
// anyone else is stopped. Decisions are taken on one tally and applied
// afterwards so that the order of bombs does not matter.
func (r *resolver) handleKicks() {
	s := r.s
	r.tally()

	var stopAgent [AgentCount]bool
	var stopBomb [MaxBombs]bool
	for i := 0; i < s.Bombs.Count; i++ {
		d := r.bombDest[i]
		if r.agentOcc[d.Y][d.X] == 0 {
			continue
		}
		j := r.agentHeadingTo(d)
		if j == noIndex {
			continue
		}
		b := &s.Bombs.Items[i]
		if !r.moving(j) {
			if d != b.Pos {
				stopBomb[i] = true
			}
			continue
		}
		if d != b.Pos || !s.Agents[j].CanKick {
			stopAgent[j] = true
			stopBomb[i] = d != b.Pos
			continue
		}

		target := d.Step(r.moves[j].Direction())
		if !r.kickable(target) {
			stopAgent[j] = true
			continue
		}
		r.bombDest[i] = target
		r.kicker[i] = j
		r.kickedBomb[j] = i
		r.report.Kicks++
	}

	for i := 0; i < s.Bombs.Count; i++ {
		if stopBomb[i] {
			r.revertBomb(i)
		}
	}
	for j := range stopAgent {
		if stopAgent[j] {
			r.revertAgent(j)
		}
	}
}

// kickable reports whether a kicked bomb may land on p.
func (r *resolver) kickable(p Position) bool {
	if !p.InBounds() {
		return false
	}
	it := r.s.Board.At(p)
	switch {
	case it.Kind == Rigid, it.Kind == Wood, it.Kind == Fog, it.Kind == AgentDummy:
		return false
	case it.Kind == BombItem, it.HasBombBeneath(), IsPowerUp(it.Kind):
		return false
	}
	return r.agentOcc[p.Y][p.X] == 0 && r.bombOcc[p.Y][p.X] == 0
}

// plan checks the resolved destinations and orders the agent moves: every
// chain runs from its free end backwards and the agents left over must form
// a closed cycle that moves at once.
func (r *resolver) plan() error {
	s := r.s
	r.tally()
	for i := range r.agentDest {
		if !r.active[i] {
			continue
		}
		d := r.agentDest[i]
		if r.agentOcc[d.Y][d.X] > 1 {
			return inconsistent("cell (%d,%d) claimed by %d agents", d.X, d.Y, r.agentOcc[d.Y][d.X])
		}
		if r.moving(i) && r.bombOcc[d.Y][d.X] != 0 {
			return inconsistent("agent %d moves onto a bomb at (%d,%d)", i, d.X, d.Y)
		}
	}
	for i := 0; i < s.Bombs.Count; i++ {
		d := r.bombDest[i]
		if r.bombOcc[d.Y][d.X] > 1 {
			return inconsistent("cell (%d,%d) claimed by %d bombs", d.X, d.Y, r.bombOcc[d.Y][d.X])
		}
		if r.bombMoving(i) && r.agentOcc[d.Y][d.X] != 0 {
			return inconsistent("bomb %d moves onto an agent at (%d,%d)", i, d.X, d.Y)
		}
	}

	// follower[j] is the agent that wants the cell j is leaving.
	var follower [AgentCount]int
	var waits [AgentCount]bool
	for i := range follower {
		follower[i] = noIndex
	}
	for i := range r.agentDest {
		if !r.moving(i) {
			continue
		}
		j := r.agentStandingOn(r.agentDest[i])
		if j == noIndex {
			continue
		}
		if !r.moving(j) {
			return inconsistent("agent %d moves onto resting agent %d", i, j)
		}
		if follower[j] != noIndex {
			return inconsistent("agents %d and %d both follow agent %d", follower[j], i, j)
		}
		follower[j] = i
		waits[i] = true
	}

	var placed [AgentCount]bool
	for root := range r.agentDest {
		if !r.moving(root) || waits[root] {
			continue
		}
		for k, n := root, 0; k != noIndex; k, n = follower[k], n+1 {
			if k < 0 || k >= AgentCount || n >= AgentCount || placed[k] {
				return inconsistent("dependency chain from agent %d reached index %d", root, k)
			}
			placed[k] = true
			r.order[r.ordered] = k
			r.ordered++
		}
	}

	for i := range r.agentDest {
		if !r.moving(i) || placed[i] {
			continue
		}
		for k, n := follower[i], 0; k != i; k, n = follower[k], n+1 {
			if k < 0 || k >= AgentCount || n >= AgentCount {
				return inconsistent("agent %d is neither in a chain nor in a cycle", i)
			}
		}
		r.cycle[i] = true
		r.report.Ouroboros = true
	}
	return nil
}

// commitAgents writes the agents onto their destinations in planned order.
func (r *resolver) commitAgents() {
	for n := 0; n < r.ordered; n++ {
		i := r.order[n]
		r.vacate(i)
		r.occupy(i)
	}
	for i := range r.cycle {
		if r.cycle[i] {
			r.vacate(i)
		}
	}
	for i := range r.cycle {
		if r.cycle[i] {
			r.occupy(i)
		}
	}
}

func (r *resolver) vacate(i int) {
	p := r.s.Agents[i].Pos
	it := r.s.Board.At(p)
	switch {
	case !it.IsAgent(i):
	case it.HasBombBeneath():
		r.s.Board.Set(p, Item{Kind: BombItem})
	default:
		r.s.Board.Set(p, Item{Kind: Passage})
	}
}

// occupy moves agent i onto its destination, collecting power-ups and
// burning in flames.
func (r *resolver) occupy(i int) {
	s := r.s
	d := r.agentDest[i]
	it := s.Board.At(d)
	switch {
	case it.Kind == FlameItem:
		s.Kill(i)
		return
	case IsPowerUp(it.Kind):
		s.ConsumePowerup(i, it.Kind)
	case it.Kind == BombItem && IsPowerUp(it.Hidden):
		// The kicked bomb uncovers the power-up it rested on.
		s.ConsumePowerup(i, it.Hidden)
	}
	s.Board.Set(d, AgentCell(i))
	s.Agents[i].Pos = d
}

// commitBombs moves the sliding and kicked bombs. A bomb heading into
// fire detonates where it is.
func (r *resolver) commitBombs() error {
	s := r.s
	var moved [MaxBombs]bool
	var ignite [MaxBombs]Position
	n := 0

	for i := 0; i < s.Bombs.Count; i++ {
		b := &s.Bombs.Items[i]
		if !r.bombMoving(i) {
			if b.Dir != DirIdle {
				b.Dir = DirIdle
				r.report.BombsStopped++
			}
			continue
		}
		if j := r.kicker[i]; j != noIndex {
			b.Dir = r.moves[j].Direction()
		}
		if s.Board.At(r.bombDest[i]).Kind == FlameItem {
			b.Dir = DirIdle
			ignite[n] = b.Pos
			n++
			continue
		}
		moved[i] = true
		s.vacateBomb(b.Pos)
	}

	for i := 0; i < s.Bombs.Count; i++ {
		if !moved[i] {
			continue
		}
		b := &s.Bombs.Items[i]
		s.placeBomb(r.bombDest[i])
		b.Pos = r.bombDest[i]
		b.Moved = true
	}
	return s.igniteAt(ignite[:n])
}

package game

// PlantBomb arms a bomb for agentID at (x, y). It returns false without
// changing anything when the agent has no bombs left, the cell cannot hold
// a bomb or the bomb list is full. agentID may be UnknownOwner.
func (s *State) PlantBomb(x, y, agentID int) bool {
	p := Position{X: x, Y: y}
	if !p.InBounds() || s.Bombs.Full() || s.HasBomb(x, y) {
		return false
	}

	strength := 1
	var owner *AgentInfo
	if agentID >= 0 && agentID < AgentCount {
		owner = &s.Agents[agentID]
		if owner.Dead || owner.BombCount >= owner.MaxBombCount {
			return false
		}
		strength = owner.BombStrength
	} else {
		agentID = UnknownOwner
	}

	cell := s.Board.At(p)
	switch {
	case cell.Kind == AgentItem:
		cell.Hidden = BombItem
	case cell.Kind == Passage:
		cell = Item{Kind: BombItem}
	case IsPowerUp(cell.Kind):
		cell = Item{Kind: BombItem, Hidden: cell.Kind}
	default:
		return false
	}

	s.Board.Set(p, cell)
	s.Bombs.Push(Bomb{
		Owner:    agentID,
		Pos:      p,
		Strength: strength,
		Timer:    BombLifetime,
	})
	if owner != nil {
		owner.BombCount++
	}
	return true
}

// HasBomb reports whether a bomb lies at (x, y).
func (s *State) HasBomb(x, y int) bool {
	return s.GetBombIndex(x, y) >= 0
}

// GetBombIndex returns the index of the bomb at (x, y) or -1.
func (s *State) GetBombIndex(x, y int) int {
	for i := 0; i < s.Bombs.Count; i++ {
		if s.Bombs.Items[i].Pos.X == x && s.Bombs.Items[i].Pos.Y == y {
			return i
		}
	}
	return -1
}

// GetBomb returns the bomb at (x, y) or nil. The pointer is only valid until
// the bomb list changes.
func (s *State) GetBomb(x, y int) *Bomb {
	if i := s.GetBombIndex(x, y); i >= 0 {
		return &s.Bombs.Items[i]
	}
	return nil
}

// TickBombs shortens every fuse by one tick and detonates the bombs whose
// fuse ran out, including the chain reactions they cause.
func (s *State) TickBombs() error {
	for i := 0; i < s.Bombs.Count; i++ {
		s.Bombs.Items[i].Timer--
	}

	var firstErr error
	for {
		idx := -1
		for i := 0; i < s.Bombs.Count; i++ {
			if s.Bombs.Items[i].Timer <= 0 {
				idx = i
				break
			}
		}
		if idx < 0 {
			return firstErr
		}
		if err := s.detonate(idx, 0); err != nil && firstErr == nil {
			firstErr = err
		}
	}
}

// ExplodeBombAt detonates the bomb at index i immediately.
func (s *State) ExplodeBombAt(i int) error {
	if i < 0 || i >= s.Bombs.Count {
		return inconsistent("bomb index %d out of range", i)
	}
	return s.detonate(i, 0)
}

// detonate removes bomb i and spreads its fire. chain is the grid distance
// travelled along the chain reaction that reached this bomb.
func (s *State) detonate(i, chain int) error {
	b := s.Bombs.Items[i]
	s.Bombs.RemoveAt(i)

	if b.Owner >= 0 && b.Owner < AgentCount && s.Agents[b.Owner].BombCount > 0 {
		s.Agents[b.Owner].BombCount--
	}
	if chain > s.LongestChainedBombDistance {
		s.LongestChainedBombDistance = chain
	}
	return s.spawnFlame(b.Pos, b.Strength, b.Owner, chain)
}

// TickAndMoveBombs fast-forwards the bombs already on the board while no
// agent acts: fuses burn, sliding bombs keep sliding and flames age. It
// stops once no bomb is left, the match is decided, or a full bomb
// lifetime has passed.
func (s *State) TickAndMoveBombs() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for t := 0; t < BombLifetime && s.Bombs.Count > 0 && !s.IsOver(); t++ {
		s.RelTimeStep++
		s.TickFlames()
		keep(s.slideBombs())
		keep(s.TickBombs())
	}
	return firstErr
}

// slideBombs advances every moving bomb by one cell without agents moving.
// A bomb sliding into fire detonates where it is.
func (s *State) slideBombs() error {
	var ignite [MaxBombs]Position
	n := 0
	for i := 0; i < s.Bombs.Count; i++ {
		b := &s.Bombs.Items[i]
		if b.Dir == DirIdle {
			continue
		}
		next := b.Pos.Step(b.Dir)
		if !bombCanEnter(&s.Board, next) {
			b.Dir = DirIdle
			continue
		}
		if s.Board.At(next).Kind == FlameItem {
			b.Dir = DirIdle
			ignite[n] = b.Pos
			n++
			continue
		}
		s.vacateBomb(b.Pos)
		s.placeBomb(next)
		b.Pos = next
		b.Moved = true
	}
	return s.igniteAt(ignite[:n])
}

// igniteAt detonates the bombs still found at the given cells.
func (s *State) igniteAt(cells []Position) error {
	var firstErr error
	for _, p := range cells {
		idx := s.GetBombIndex(p.X, p.Y)
		if idx < 0 {
			// Already taken by an earlier chain reaction.
			continue
		}
		if err := s.detonate(idx, 0); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// bombCanEnter reports whether a sliding bomb may move onto p.
func bombCanEnter(board *Board, p Position) bool {
	if !p.InBounds() {
		return false
	}
	k := board.At(p).Kind
	return k == Passage || k == FlameItem || IsPowerUp(k)
}

// vacateBomb clears the bomb item at p, restoring a power-up it rested on.
// Cells already taken by an agent are left alone.
func (s *State) vacateBomb(p Position) {
	it := s.Board.At(p)
	switch {
	case it.Kind == BombItem && IsPowerUp(it.Hidden):
		s.Board.Set(p, Item{Kind: it.Hidden})
	case it.Kind == BombItem:
		s.Board.Set(p, Item{Kind: Passage})
	case it.HasBombBeneath():
		it.Hidden = Passage
		s.Board.Set(p, it)
	}
}

// placeBomb writes a bomb item on p, keeping a power-up underneath.
func (s *State) placeBomb(p Position) {
	it := s.Board.At(p)
	if IsPowerUp(it.Kind) {
		s.Board.Set(p, Item{Kind: BombItem, Hidden: it.Kind})
		return
	}
	s.Board.Set(p, Item{Kind: BombItem})
}

package game

var rays = [4]Direction{DirUp, DirDown, DirLeft, DirRight}

// TickFlames ages every flame by one tick and removes the ones that burned
// out. Flames leave in spawn order; each expired flame restores the cells
// that still carry its signature.
func (s *State) TickFlames() {
	for i := 0; i < s.Flames.Count; i++ {
		s.Flames.Items[i].TimeLeft--
	}
	for s.Flames.Count > 0 && s.Flames.Items[0].TimeLeft <= 0 {
		s.PopFlame()
	}
}

// PopFlame removes the oldest flame and clears the cells that still carry
// its signature.
func (s *State) PopFlame() {
	if s.Flames.Count == 0 {
		return
	}
	f := s.Flames.popFront()
	for y := range s.Board {
		for x := range s.Board[y] {
			s.extinguish(Position{X: x, Y: y}, f.Signature)
		}
	}
}

// extinguish reverts p to its revealed power-up or a passage when it still
// burns with the given signature. Cells overwritten by a younger explosion
// belong to that explosion.
func (s *State) extinguish(p Position, signature uint16) {
	it := s.Board.At(p)
	if it.Kind != FlameItem || it.Signature != signature {
		return
	}
	if IsPowerUp(it.Hidden) {
		s.Board.Set(p, Item{Kind: it.Hidden})
		return
	}
	s.Board.Set(p, Item{Kind: Passage})
}

// SpawnFlame explodes fire of the given strength from (x, y) as if a bomb of
// ownerID detonated there. Bombs in reach detonate as a chain reaction.
func (s *State) SpawnFlame(x, y, strength, ownerID int) error {
	origin := Position{X: x, Y: y}
	if !origin.InBounds() {
		return nil
	}
	return s.spawnFlame(origin, strength, ownerID, 0)
}

func (s *State) spawnFlame(origin Position, strength, owner, chain int) error {
	sig := s.newSignature()
	if s.Flames.Count >= MaxFlames {
		s.PopFlame()
	}
	s.Flames.push(Flame{
		Pos:       origin,
		Strength:  strength,
		TimeLeft:  FlameLifetime,
		Signature: sig,
	})

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	_, err := s.burn(origin, origin, sig, owner, chain)
	keep(err)
	for _, d := range rays {
		p := origin
		for dist := 1; dist <= strength; dist++ {
			p = p.Step(d)
			if !p.InBounds() {
				break
			}
			cont, err := s.burn(origin, p, sig, owner, chain)
			keep(err)
			if !cont {
				break
			}
		}
	}
	return firstErr
}

// burn sets p on fire and reports whether the ray may continue past it.
func (s *State) burn(origin, p Position, sig uint16, owner, chain int) (bool, error) {
	it := s.Board.At(p)
	switch it.Kind {
	case Rigid, Fog:
		return false, nil
	case Wood:
		s.Board.Set(p, FlameCell(sig, it.Hidden))
		s.WoodDemolished++
		if owner >= 0 && owner < AgentCount {
			s.Agents[owner].WoodDemolished++
		}
		return false, nil
	}

	var err error
	if it.Kind == BombItem || it.HasBombBeneath() {
		if idx := s.GetBombIndex(p.X, p.Y); idx >= 0 {
			err = s.detonate(idx, chain+origin.Distance(p))
		} else if p != origin {
			err = inconsistent("no bomb at (%d,%d) under a bomb cell", p.X, p.Y)
		}
		it = s.Board.At(p)
	}
	if it.Kind == AgentItem {
		s.Kill(int(it.Agent))
	}

	reveal := Passage
	switch it.Kind {
	case FlameItem:
		reveal = it.Hidden
	case BombItem:
		if IsPowerUp(it.Hidden) {
			reveal = it.Hidden
		}
	}
	s.Board.Set(p, FlameCell(sig, reveal))
	return true, err
}

// AddFlame sets cells on fire as one flame that burns out after timeLeft
// ticks. Used when rebuilding a state from an observation, where only the
// burning cells are known. Flames must be added oldest first.
func (s *State) AddFlame(timeLeft int, cells ...Position) bool {
	if len(cells) == 0 {
		return true
	}
	for _, p := range cells {
		if !p.InBounds() {
			return false
		}
	}
	sig := s.newSignature()
	if !s.Flames.push(Flame{Pos: cells[0], TimeLeft: timeLeft, Signature: sig}) {
		return false
	}
	for _, p := range cells {
		reveal := Passage
		if it := s.Board.At(p); IsPowerUp(it.Kind) {
			reveal = it.Kind
		}
		s.Board.Set(p, FlameCell(sig, reveal))
	}
	return true
}

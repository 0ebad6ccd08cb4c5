package game

// StepReport summarises what move resolution did during one tick.
type StepReport struct {
	Swaps          int  `json:"swaps"`           // Agent pairs stopped from trading cells
	Ouroboros      bool `json:"ouroboros"`       // A closed cycle of agents moved together
	Kicks          int  `json:"kicks"`           // Bombs set in motion by a kick
	KicksUndone    int  `json:"kicks_undone"`    // Kicks cancelled by later conflicts
	RejectedPlants int  `json:"rejected_plants"` // Plant moves over budget or on a bomb
	BombsStopped   int  `json:"bombs_stopped"`   // Sliding bombs that came to rest
	Deaths         int  `json:"deaths"`          // Agents killed during the tick
}

// Step advances s by one tick given one move per agent. Moves of dead or
// unseen agents are ignored. A non-nil error wraps ErrInconsistentState;
// the board is still self-consistent but the tick should not be trusted.
// When resolution fails no agent or bomb moves, but fuses still burn and
// the clock still advances.
func Step(s *State, moves [AgentCount]Move) error {
	_, err := StepWithReport(s, moves)
	return err
}

// StepWithReport is Step that also returns what happened during the tick.
//
// The tick runs in a fixed order: flames age, every mover projects its
// destination, swaps are cancelled, conflicts are resolved to a fixed
// point, kicks are settled and reconciled, agents are committed along
// their dependency chains, bombs slide and finally fuses burn.
func StepWithReport(s *State, moves [AgentCount]Move) (StepReport, error) {
	for i := 0; i < s.Bombs.Count; i++ {
		s.Bombs.Items[i].Moved = false
	}
	s.TickFlames()

	r := newResolver(s, moves)
	r.project()
	r.fixSwaps()
	r.resolveConflicts(false)
	r.handleKicks()
	r.resolveConflicts(true)
	alive := s.AliveAgents
	err := r.plan()
	if err == nil {
		r.commitAgents()
		err = r.commitBombs()
	}
	if tickErr := s.TickBombs(); tickErr != nil && err == nil {
		err = tickErr
	}
	r.report.Deaths = alive - s.AliveAgents
	s.TimeStep++
	return r.report, err
}

package game

import (
	"math/rand"
)

// hiddenPowerUps are the power-ups wood may conceal, drawn uniformly.
var hiddenPowerUps = [...]ItemKind{ExtraBomb, IncrRange, Kick}

// NewState generates a fresh match state from config.Seed.
//
// Layout rules:
//   - Rigid pillar at every position where both X and Y are odd
//   - Random Wood fill at config.WoodDensity, each block hiding a
//     power-up with probability config.PowerUpChance
//   - Spawn corners (and their adjacent 2 tiles) are kept clear
//   - Agents start in the four corners
func NewState(config GameConfig) *State {
	rng := rand.New(rand.NewSource(config.Seed))
	s := NewEmptyState()

	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			if x%2 == 1 && y%2 == 1 {
				s.Board[y][x] = Item{Kind: Rigid}
			}
		}
	}

	spawns := SpawnPositions()
	safeSet := makeSafeSet(spawns[:])

	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			if s.Board[y][x].Kind != Passage {
				continue
			}
			if safeSet[Position{X: x, Y: y}] {
				continue
			}
			if rng.Float64() >= config.WoodDensity {
				continue
			}
			wood := Item{Kind: Wood}
			if rng.Float64() < config.PowerUpChance {
				wood.Hidden = hiddenPowerUps[rng.Intn(len(hiddenPowerUps))]
			}
			s.Board[y][x] = wood
		}
	}

	s.PutAgentsInCorners()
	return s
}

// makeSafeSet returns a set of positions that must remain clear for spawning.
// Each spawn corner gets 3 clear tiles: the spawn position plus the two
// adjacent positions that lie on the board.
func makeSafeSet(spawns []Position) map[Position]bool {
	safe := make(map[Position]bool)
	for _, sp := range spawns {
		safe[sp] = true
		for _, d := range rays {
			if p := sp.Step(d); p.InBounds() {
				safe[p] = true
			}
		}
	}
	return safe
}

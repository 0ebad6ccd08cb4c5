// Package agent provides the simple deciders that can sit in a match slot.
package agent

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/amalg/go-pommerman/internal/game"
)

// Kinds accepted by New, as written in the config file.
const (
	KindLazy     = "lazy"
	KindRandom   = "random"
	KindHarmless = "harmless"
	KindHuman    = "human"
)

// New builds the agent named by kind. seed feeds the random deciders.
func New(kind string, seed int64) (game.Agent, error) {
	switch kind {
	case KindLazy:
		return Lazy{}, nil
	case KindRandom:
		return NewRandom(seed), nil
	case KindHarmless:
		return NewHarmless(seed), nil
	case KindHuman:
		return &Human{}, nil
	}
	return nil, fmt.Errorf("unknown agent kind %q", kind)
}

// Lazy always stays idle.
type Lazy struct{}

func (Lazy) Act(ctx context.Context, s *game.State, id int) game.Move {
	return game.MoveIdle
}

// Random picks uniformly among all moves, bombs included.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (a *Random) Act(ctx context.Context, s *game.State, id int) game.Move {
	a.mu.Lock()
	defer a.mu.Unlock()
	return game.Move(a.rng.Intn(game.MoveCount))
}

// Harmless moves at random but never plants a bomb.
type Harmless struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewHarmless(seed int64) *Harmless {
	return &Harmless{rng: rand.New(rand.NewSource(seed))}
}

func (a *Harmless) Act(ctx context.Context, s *game.State, id int) game.Move {
	a.mu.Lock()
	defer a.mu.Unlock()
	return game.Move(a.rng.Intn(int(game.MoveBomb)))
}

// Human plays the last move set from the keyboard. Each key press is played
// once; without input the agent stays idle.
type Human struct {
	next atomic.Uint32
}

// Set queues m for the next tick, replacing any move not yet played.
func (a *Human) Set(m game.Move) {
	a.next.Store(uint32(m))
}

func (a *Human) Act(ctx context.Context, s *game.State, id int) game.Move {
	return game.Move(a.next.Swap(uint32(game.MoveIdle)))
}

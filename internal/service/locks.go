package service

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TournamentLocks serializes every bracket mutation of a single tournament.
// Different tournaments never wait on each other. An entry lives only while
// someone holds or waits for it.
type TournamentLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*tournamentLock
}

type tournamentLock struct {
	sync.Mutex
	refs int
}

func NewTournamentLocks() *TournamentLocks {
	return &TournamentLocks{locks: make(map[uuid.UUID]*tournamentLock)}
}

// Lock blocks until the tournament is free and returns the matching unlock.
func (l *TournamentLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	tl, ok := l.locks[id]
	if !ok {
		tl = &tournamentLock{}
		l.locks[id] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.Lock()
	return func() {
		tl.Unlock()

		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *TournamentLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// LockedRand shares one random source between tournaments finalizing in parallel.
type LockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRand returns the process wide shuffler. A zero seed uses the clock.
func NewRand(seed uint64) *LockedRand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &LockedRand{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *LockedRand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng.Shuffle(n, swap)
}

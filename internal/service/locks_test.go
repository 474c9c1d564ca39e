package service

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTournamentLocks(t *testing.T) {
	locks := NewTournamentLocks()
	id := uuid.New()

	unlock := locks.Lock(id)
	assert.Equal(t, 1, locks.size())
	unlock()
	assert.Zero(t, locks.size())

	var (
		wg      sync.WaitGroup
		counter int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(id)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, locks.size())

	// a different tournament is not blocked by a held one
	unlock = locks.Lock(id)
	other := locks.Lock(uuid.New())
	assert.Equal(t, 2, locks.size())
	other()
	unlock()
	assert.Zero(t, locks.size())
}

package gateway

import (
	"sync"

	"github.com/mcoot/blockbattle/internal/model"
)

// sequencer hands out one mutex per room so that intents for a room are
// applied, and their broadcasts emitted, strictly one at a time. Locks
// are reference counted and dropped once nobody holds or waits on them.
type sequencer struct {
	mu    sync.Mutex
	locks map[model.RoomID]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newSequencer() *sequencer {
	return &sequencer{locks: make(map[model.RoomID]*roomLock)}
}

// lock blocks until the room's turn and returns the matching unlock
func (s *sequencer) lock(id model.RoomID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &roomLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// size returns the number of rooms with a live lock
func (s *sequencer) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

package api

import (
	"sync"

	"github.com/benplehn/btc-sub000/internal/engine"
	"github.com/google/uuid"
)

// runStore keeps the most recent results in memory, evicting the oldest
// once max is reached. Nothing is persisted.
type runStore struct {
	mu    sync.RWMutex
	max   int
	order []string
	runs  map[string]*engine.Result
}

func newRunStore(max int) *runStore {
	if max <= 0 {
		max = 1
	}
	return &runStore{max: max, runs: make(map[string]*engine.Result, max)}
}

func (s *runStore) put(res *engine.Result) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.order) >= s.max {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
	s.order = append(s.order, id)
	s.runs[id] = res
	return id
}

func (s *runStore) get(id string) (*engine.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.runs[id]
	return res, ok
}

func (s *runStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

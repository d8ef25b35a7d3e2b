package progress

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrLearnerNotFound is returned by stores for learners with no saved progress.
var ErrLearnerNotFound = errors.New("learner not found")

// Store persists learner progress. Implementations return copies so that
// callers never share state with the store.
type Store interface {
	Load(ctx context.Context, learnerID string) (*LearnerProgress, error)
	Save(ctx context.Context, p *LearnerProgress) error
	List(ctx context.Context) ([]string, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	learners map[string]*LearnerProgress
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		learners: make(map[string]*LearnerProgress),
	}
}

func (s *MemoryStore) Load(_ context.Context, learnerID string) (*LearnerProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.learners[learnerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLearnerNotFound, learnerID)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, p *LearnerProgress) error {
	if p == nil || p.LearnerID == "" {
		return fmt.Errorf("learner_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.learners[p.LearnerID] = p.Clone()
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.learners))
	for id := range s.learners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

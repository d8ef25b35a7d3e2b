package progress

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/p-n-ai/pai-notebooks/internal/platform/cache"
)

const (
	cacheKeyPrefix   = "learn:progress:"
	cacheLearnersKey = "learn:learners"
)

// CacheStore keeps one JSON snapshot per learner in Redis.
type CacheStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewCacheStore creates a Redis-backed progress store. A zero ttl keeps
// snapshots forever.
func NewCacheStore(c *cache.Cache, ttl time.Duration) (*CacheStore, error) {
	if c == nil || c.Client == nil {
		return nil, fmt.Errorf("cache client is nil")
	}
	return &CacheStore{cache: c, ttl: ttl}, nil
}

func (s *CacheStore) Load(ctx context.Context, learnerID string) (*LearnerProgress, error) {
	var p LearnerProgress
	err := s.cache.GetJSON(ctx, cacheKeyPrefix+learnerID, &p)
	if errors.Is(err, cache.ErrMiss) {
		return nil, fmt.Errorf("%w: %s", ErrLearnerNotFound, learnerID)
	}
	if err != nil {
		return nil, err
	}
	if p.Lessons == nil {
		p.Lessons = make(map[string]LessonRecord)
	}
	if p.Badges == nil {
		p.Badges = []string{}
	}
	if p.Activity == nil {
		p.Activity = []ActivityEntry{}
	}
	return &p, nil
}

func (s *CacheStore) Save(ctx context.Context, p *LearnerProgress) error {
	if p == nil || p.LearnerID == "" {
		return fmt.Errorf("learner_id is required")
	}
	if err := s.cache.SetJSON(ctx, cacheKeyPrefix+p.LearnerID, p, s.ttl); err != nil {
		return err
	}
	if err := s.cache.Client.SAdd(ctx, cacheLearnersKey, p.LearnerID).Err(); err != nil {
		return fmt.Errorf("indexing learner: %w", err)
	}
	return nil
}

func (s *CacheStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.cache.Client.SMembers(ctx, cacheLearnersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing learners: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

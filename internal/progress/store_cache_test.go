package progress_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/p-n-ai/pai-notebooks/internal/platform/cache"
	"github.com/p-n-ai/pai-notebooks/internal/progress"
)

func TestNewCacheStore_NilClient(t *testing.T) {
	if _, err := progress.NewCacheStore(nil, 0); err == nil {
		t.Fatal("expected error for nil cache")
	}
}

func TestCacheStore_RoundTrip(t *testing.T) {
	url := os.Getenv("LEARN_TEST_CACHE_URL")
	if url == "" {
		t.Skip("LEARN_TEST_CACHE_URL not set")
	}
	ctx := context.Background()

	c, err := cache.New(ctx, url)
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}
	defer c.Close()

	store, err := progress.NewCacheStore(c, 0)
	if err != nil {
		t.Fatalf("NewCacheStore() error = %v", err)
	}

	learner := "cache-test-" + t.Name()
	defer c.Client.Del(ctx, "learn:progress:"+learner)
	defer c.Client.SRem(ctx, "learn:learners", learner)

	if _, err := store.Load(ctx, learner); !errors.Is(err, progress.ErrLearnerNotFound) {
		t.Fatalf("Load() error = %v, want ErrLearnerNotFound", err)
	}

	if err := store.Save(ctx, &progress.LearnerProgress{LearnerID: learner, TotalPoints: 42}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.Load(ctx, learner)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.TotalPoints != 42 {
		t.Errorf("TotalPoints = %d, want 42", got.TotalPoints)
	}
	if got.Lessons == nil || got.Badges == nil {
		t.Error("Load() should normalise nil collections")
	}

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	found := false
	for _, id := range ids {
		found = found || id == learner
	}
	if !found {
		t.Errorf("List() = %v, missing %s", ids, learner)
	}
}

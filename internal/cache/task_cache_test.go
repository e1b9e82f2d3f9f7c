package cache

import (
	"context"
	"testing"
	"time"

	dom "taskboard/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*TaskCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewTaskCache(rdb, time.Minute), mr
}

func TestTaskCache_MissThenHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	got, err := c.GetList(ctx, 1)
	if err != nil {
		t.Fatalf("GetList error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected miss, got %+v", got)
	}

	list := []dom.Task{{ID: 1, UserID: 1, Title: "Run 5k"}}
	if err := c.SetList(ctx, 1, list); err != nil {
		t.Fatalf("SetList error: %v", err)
	}

	got, err = c.GetList(ctx, 1)
	if err != nil {
		t.Fatalf("GetList error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Run 5k" {
		t.Fatalf("unexpected cached list: %+v", got)
	}
}

func TestTaskCache_EmptyListIsCached(t *testing.T) {
	// An empty list is a real cache entry, not a miss: GetList must return a
	// non-nil slice after SetList(nil).
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.SetList(ctx, 1, nil); err != nil {
		t.Fatalf("SetList error: %v", err)
	}
	got, err := c.GetList(ctx, 1)
	if err != nil {
		t.Fatalf("GetList error: %v", err)
	}
	if got == nil {
		t.Fatalf("cached empty list must not look like a miss")
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}
}

func TestTaskCache_KeysArePerUser(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.SetList(ctx, 1, []dom.Task{{ID: 1, UserID: 1, Title: "alice task"}}); err != nil {
		t.Fatalf("SetList error: %v", err)
	}

	got, err := c.GetList(ctx, 2)
	if err != nil {
		t.Fatalf("GetList error: %v", err)
	}
	if got != nil {
		t.Fatalf("user 2 must not see user 1's cached list: %+v", got)
	}
}

func TestTaskCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.SetList(ctx, 1, []dom.Task{{ID: 1, UserID: 1, Title: "x"}}); err != nil {
		t.Fatalf("SetList error: %v", err)
	}
	if err := c.Invalidate(ctx, 1); err != nil {
		t.Fatalf("Invalidate error: %v", err)
	}
	got, err := c.GetList(ctx, 1)
	if err != nil {
		t.Fatalf("GetList error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected miss after invalidation, got %+v", got)
	}
}

func TestTaskCache_TTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.SetList(ctx, 1, []dom.Task{{ID: 1, UserID: 1, Title: "x"}}); err != nil {
		t.Fatalf("SetList error: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	got, err := c.GetList(ctx, 1)
	if err != nil {
		t.Fatalf("GetList error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected miss after TTL, got %+v", got)
	}
}

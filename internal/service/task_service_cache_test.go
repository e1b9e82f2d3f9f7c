package service

import (
	"context"
	"testing"
	"time"

	"taskboard/internal/cache"
	dom "taskboard/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newCachedTaskService(t *testing.T) (*TaskService, *memTaskRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	repo := newMemTaskRepo()
	return NewTaskService(repo, cache.NewTaskCache(rdb, time.Minute)), repo
}

func TestTaskList_EmptyListServedFromCache(t *testing.T) {
	svc, repo := newCachedTaskService(t)
	ctx := context.Background()

	// First read of a task-less user warms the cache with an empty list.
	list, err := svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}

	// A task slipped in behind the service's back stays hidden: the empty
	// list is a cache hit, not a repeated miss.
	repo.tasks[99] = dom.Task{ID: 99, UserID: 1, Title: "hidden"}
	list, err = svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("empty list must be served from cache, got %+v", list)
	}
}

func TestTaskList_CacheInvalidatedOnWrite(t *testing.T) {
	svc, repo := newCachedTaskService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, 1, "Run 5k", "")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// Warm the cache.
	list, err := svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 task, got %d", len(list))
	}

	// A write behind the service's back stays hidden by the cached list.
	stale := repo.tasks[task.ID]
	stale.Title = "changed behind the cache"
	repo.tasks[task.ID] = stale
	list, err = svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Run 5k" {
		t.Fatalf("expected the cached list, got %+v", list)
	}

	// Completing the task invalidates the cached list, so the next read
	// reflects the change.
	if _, err := svc.Update(ctx, 1, task.ID, nil, nil, boolPtr(true)); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	list, err = svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 1 || !list[0].Completed {
		t.Fatalf("expected completed task after invalidation, got %+v", list)
	}

	// Delete invalidates as well.
	if err := svc.Delete(ctx, 1, task.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	list, err = svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list after delete, got %+v", list)
	}
}

package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"taskboard/internal/cache"
	dom "taskboard/internal/domain"
	"taskboard/internal/repo"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("not authorized")
	ErrTitleRequired = errors.New("title is required")
)

// TaskService owns the task lifecycle. Every operation is scoped to the
// requesting user: existence is checked before ownership, so updating or
// deleting someone else's task fails with ErrForbidden, and a missing task
// with ErrNotFound.
type TaskService struct {
	repo  repo.TaskRepo
	cache *cache.TaskCache
	sf    singleflight.Group
}

// NewTaskService creates a TaskService. If c is nil, caching is disabled.
func NewTaskService(r repo.TaskRepo, c *cache.TaskCache) *TaskService {
	return &TaskService{repo: r, cache: c}
}

func (s *TaskService) Create(ctx context.Context, userID int64, title, description string) (dom.Task, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return dom.Task{}, ErrTitleRequired
	}

	t, err := s.repo.Create(ctx, dom.Task{
		UserID:      userID,
		Title:       title,
		Description: description,
	})
	if err != nil {
		return dom.Task{}, err
	}
	s.invalidateCache(ctx, userID)
	return t, nil
}

func (s *TaskService) List(ctx context.Context, userID int64) ([]dom.Task, error) {
	if s.cache != nil {
		key := "list:" + strconv.FormatInt(userID, 10)
		v, err, _ := s.sf.Do(key, func() (interface{}, error) {
			if list, err := s.cache.GetList(ctx, userID); err == nil && list != nil {
				return list, nil
			}
			list, err := s.repo.ListByOwner(ctx, userID)
			if err != nil {
				return nil, err
			}
			_ = s.cache.SetList(ctx, userID, list)
			return list, nil
		})
		if err != nil {
			return nil, err
		}
		return v.([]dom.Task), nil
	}
	return s.repo.ListByOwner(ctx, userID)
}

// Update applies a partial patch to the user's own task. nil fields keep their
// current values; completed=false is an explicit write, not an omission.
func (s *TaskService) Update(ctx context.Context, userID, id int64, title, description *string, completed *bool) (dom.Task, error) {
	existing, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return dom.Task{}, err
	}
	patch := existing
	if title != nil {
		v := strings.TrimSpace(*title)
		if v == "" {
			return dom.Task{}, ErrTitleRequired
		}
		patch.Title = v
	}
	if description != nil {
		patch.Description = strings.TrimSpace(*description)
	}
	if completed != nil {
		patch.Completed = *completed
	}
	t, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Task{}, ErrNotFound
		}
		return dom.Task{}, err
	}
	s.invalidateCache(ctx, userID)
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.loadOwned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCache(ctx, userID)
	return nil
}

// loadOwned fetches a task and checks the requester owns it. Existence first,
// then ownership.
func (s *TaskService) loadOwned(ctx context.Context, userID, id int64) (dom.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Task{}, ErrNotFound
		}
		return dom.Task{}, err
	}
	if t.UserID != userID {
		return dom.Task{}, ErrForbidden
	}
	return t, nil
}

func (s *TaskService) invalidateCache(ctx context.Context, userID int64) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, userID)
	}
}

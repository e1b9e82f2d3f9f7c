package domain

import "time"

// Domain entity: business object, independent of Gin, Postgres, Redis.
// UserID is the owning account; every read and write is scoped to it.
type Task struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	Completed   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

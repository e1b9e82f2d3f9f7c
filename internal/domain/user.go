package domain

import "time"

// User is the domain entity for a registered account.
// PasswordHash never leaves the service layer; dto.UserResponse drops it.
type User struct {
	ID           int64
	Username     string
	Email        *string
	Bio          string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

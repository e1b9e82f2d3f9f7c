package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"taskboard/internal/auth"
	dom "taskboard/internal/domain"
	"taskboard/internal/repo"
	"taskboard/internal/utils"

	"github.com/jackc/pgx/v5"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrInvalidUsername    = errors.New("username must be between 3 and 30 characters")
)

// UserService handles registration, credential checks and profile updates.
type UserService struct {
	repo   repo.UserRepo
	hasher *auth.PasswordHasher
}

// NewUserService returns a new UserService.
func NewUserService(repo repo.UserRepo, hasher *auth.PasswordHasher) *UserService {
	return &UserService{repo: repo, hasher: hasher}
}

// Register creates a new user with a hashed password. The password must pass
// the strength policy; the username must be free.
func (s *UserService) Register(ctx context.Context, username, password string) (dom.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return dom.User{}, ErrInvalidCredentials
	}
	if err := auth.ValidatePasswordStrength(password); err != nil {
		return dom.User{}, err
	}

	// Early duplicate check for a clean error; the unique index is the real
	// guarantee if two registrations race.
	_, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		return dom.User{}, ErrUsernameTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return dom.User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return dom.User{}, err
	}
	u, err := s.repo.Create(ctx, username, hash)
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			return dom.User{}, ErrUsernameTaken
		}
		return dom.User{}, err
	}
	return u, nil
}

// ValidateCredentials checks username and password; returns the user if valid.
func (s *UserService) ValidateCredentials(ctx context.Context, username, password string) (dom.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return dom.User{}, ErrInvalidCredentials
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.User{}, ErrInvalidCredentials
		}
		return dom.User{}, err
	}
	if !s.hasher.Compare(u.PasswordHash, password) {
		return dom.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// UpdateProfile applies a partial profile patch. nil fields keep their current
// value; a new username or email is checked against all other accounts before
// the write, with the unique indexes as the backstop.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, username, email, bio *string) (dom.User, error) {
	existing, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.User{}, ErrNotFound
		}
		return dom.User{}, err
	}

	newUsername := existing.Username
	if username != nil {
		v := strings.TrimSpace(*username)
		if n := utf8.RuneCountInString(v); n < 3 || n > 30 {
			return dom.User{}, ErrInvalidUsername
		}
		newUsername = v
	}
	newEmail := existing.Email
	if email != nil {
		v := strings.ToLower(strings.TrimSpace(*email))
		if v == "" {
			newEmail = nil
		} else {
			newEmail = &v
		}
	}
	newBio := existing.Bio
	if bio != nil {
		newBio = strings.TrimSpace(*bio)
	}

	if newUsername != existing.Username {
		if _, err := s.repo.GetByUsername(ctx, newUsername); err == nil {
			return dom.User{}, ErrUsernameTaken
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return dom.User{}, err
		}
	}
	if newEmail != nil && (existing.Email == nil || *newEmail != *existing.Email) {
		if other, err := s.repo.GetByEmail(ctx, *newEmail); err == nil && other.ID != userID {
			return dom.User{}, ErrEmailTaken
		} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return dom.User{}, err
		}
	}

	u, err := s.repo.UpdateProfile(ctx, userID, newUsername, newEmail, newBio)
	if err != nil {
		switch utils.UniqueConstraintName(err) {
		case "users_username_key":
			return dom.User{}, ErrUsernameTaken
		case "users_email_key":
			return dom.User{}, ErrEmailTaken
		}
		if utils.IsPGUniqueViolation(err) {
			return dom.User{}, ErrUsernameTaken
		}
		return dom.User{}, err
	}
	return u, nil
}

// ChangePassword verifies the current password, checks the new one against the
// strength policy and stores its hash. This is the only path that recomputes
// the hash.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if !s.hasher.Compare(u.PasswordHash, currentPassword) {
		return ErrWrongPassword
	}
	if err := auth.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, hash)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskboard/internal/auth"
	dom "taskboard/internal/domain"
	"taskboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// In-memory repositories behaving like the Postgres ones: pgx.ErrNoRows on
// miss, 23505 PgError on unique index hits.

type memUserRepo struct {
	nextID int64
	users  map[int64]dom.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[int64]dom.User{}}
}

func (m *memUserRepo) Create(ctx context.Context, username, passwordHash string) (dom.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return dom.User{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
		}
	}
	m.nextID++
	now := time.Now()
	u := dom.User{ID: m.nextID, Username: username, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}
	m.users[u.ID] = u
	return u, nil
}

func (m *memUserRepo) GetByID(ctx context.Context, id int64) (dom.User, error) {
	u, ok := m.users[id]
	if !ok {
		return dom.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memUserRepo) GetByUsername(ctx context.Context, username string) (dom.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return dom.User{}, pgx.ErrNoRows
}

func (m *memUserRepo) GetByEmail(ctx context.Context, email string) (dom.User, error) {
	for _, u := range m.users {
		if u.Email != nil && *u.Email == email {
			return u, nil
		}
	}
	return dom.User{}, pgx.ErrNoRows
}

func (m *memUserRepo) UpdateProfile(ctx context.Context, id int64, username string, email *string, bio string) (dom.User, error) {
	u, ok := m.users[id]
	if !ok {
		return dom.User{}, pgx.ErrNoRows
	}
	u.Username = username
	u.Email = email
	u.Bio = bio
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return u, nil
}

func (m *memUserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.PasswordHash = passwordHash
	m.users[id] = u
	return nil
}

type memTaskRepo struct {
	nextID int64
	tasks  map[int64]dom.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: map[int64]dom.Task{}}
}

func (m *memTaskRepo) Create(ctx context.Context, t dom.Task) (dom.Task, error) {
	m.nextID++
	t.ID = m.nextID
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	m.tasks[t.ID] = t
	return t, nil
}

func (m *memTaskRepo) GetByID(ctx context.Context, id int64) (dom.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return dom.Task{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memTaskRepo) ListByOwner(ctx context.Context, userID int64) ([]dom.Task, error) {
	var list []dom.Task
	for _, t := range m.tasks {
		if t.UserID == userID {
			list = append(list, t)
		}
	}
	return list, nil
}

func (m *memTaskRepo) Update(ctx context.Context, id int64, patch dom.Task) (dom.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return dom.Task{}, pgx.ErrNoRows
	}
	t.Title = patch.Title
	t.Description = patch.Description
	t.Completed = patch.Completed
	t.UpdatedAt = time.Now()
	m.tasks[id] = t
	return t, nil
}

func (m *memTaskRepo) Delete(ctx context.Context, id int64) error {
	delete(m.tasks, id)
	return nil
}

// newTestRouter wires the real handlers, services and auth middleware over
// in-memory storage, mirroring app.Setup.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := newMemUserRepo()
	tasks := newMemTaskRepo()
	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)

	userSvc := service.NewUserService(users, hasher)
	taskSvc := service.NewTaskService(tasks, nil)

	r := gin.New()
	authHandler := NewAuthHandler(tokens, userSvc)
	r.POST("/auth/register", authHandler.Register)
	r.POST("/auth/login", authHandler.Login)

	protected := r.Group("", auth.RequireAuth(tokens, users))
	profileHandler := NewProfileHandler(userSvc)
	protected.GET("/profile", profileHandler.Get)
	protected.PUT("/profile", profileHandler.Update)
	protected.PUT("/profile/password", profileHandler.ChangePassword)

	taskHandler := NewTaskHandler(taskSvc)
	protected.GET("/tasks", taskHandler.List)
	protected.POST("/tasks", taskHandler.Create)
	protected.PUT("/tasks/:id", taskHandler.Update)
	protected.DELETE("/tasks/:id", taskHandler.Delete)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return out
}

// registerUser registers a user and returns their bearer token.
func registerUser(t *testing.T, r *gin.Engine, username, password string) string {
	t.Helper()
	w := doJSON(t, r, "POST", "/auth/register", "", `{"username":"`+username+`","password":"`+password+`"}`)
	if w.Code != 201 {
		t.Fatalf("register %s: expected 201, got %d (%s)", username, w.Code, w.Body.String())
	}
	body := decodeJSON(t, w)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("register %s: no token in response %q", username, w.Body.String())
	}
	return token
}

package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Bidon15/socialauth/internal/auth"
	"github.com/Bidon15/socialauth/internal/models"
	"github.com/Bidon15/socialauth/internal/repository"
)

// Mock repositories for testing
type mockUserRepo struct {
	mu         sync.Mutex
	users      map[string]*models.User
	byUsername map[string]*models.User
	getErr     error
	createErr  error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:      make(map[string]*models.User),
		byUsername: make(map[string]*models.User),
	}
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.users[user.ID]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := m.byUsername[user.Username]; ok {
		return repository.ErrDuplicate
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	m.byUsername[user.Username] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.users[id], nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.byUsername[username], nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		delete(m.byUsername, u.Username)
		delete(m.users, id)
	}
	return nil
}

type mockConnectionRepo struct {
	mu        sync.Mutex
	conns     map[string]*models.Connection // keyed by follower|following
	createErr error
	creates   int
	deletes   int
}

func newMockConnectionRepo() *mockConnectionRepo {
	return &mockConnectionRepo{conns: make(map[string]*models.Connection)}
}

func pairKey(followerID, followingID string) string {
	return followerID + "|" + followingID
}

func (m *mockConnectionRepo) Find(ctx context.Context, followerID, followingID string) (*models.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conns[pairKey(followerID, followingID)], nil
}

func (m *mockConnectionRepo) Create(ctx context.Context, conn *models.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	key := pairKey(conn.FollowerID, conn.FollowingID)
	if _, ok := m.conns[key]; ok {
		return repository.ErrDuplicate
	}
	conn.CreatedAt = time.Now()
	m.conns[key] = conn
	m.creates++
	return nil
}

func (m *mockConnectionRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, c := range m.conns {
		if c.ID == id {
			delete(m.conns, key)
			m.deletes++
		}
	}
	return nil
}

// failingHasher always fails to hash.
type failingHasher struct{}

func (failingHasher) Hash(string) (string, error) { return "", io.ErrUnexpectedEOF }
func (failingHasher) Verify(string, string) bool  { return false }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTokens() *auth.TokenIssuer {
	return auth.NewTokenIssuer("test-secret", time.Hour)
}

func testHasher() auth.PasswordHasher {
	// Minimum cost keeps the tests fast.
	return auth.NewBcryptHasher(4)
}

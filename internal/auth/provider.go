package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Provider validates credentials. Implementations are injected so the HTTP
// layer never knows where accounts live.
type Provider interface {
	Authenticate(ctx context.Context, email, password string) (User, error)
}

// StoreProvider authenticates against the users table with bcrypt hashes.
type StoreProvider struct {
	pool *pgxpool.Pool
}

// NewStoreProvider constructs the database-backed provider.
func NewStoreProvider(pool *pgxpool.Pool) *StoreProvider {
	return &StoreProvider{pool: pool}
}

// Authenticate validates email/password credentials.
func (p *StoreProvider) Authenticate(ctx context.Context, email, password string) (User, error) {
	var user User
	err := p.pool.QueryRow(ctx, `SELECT id, email, password_hash, is_active, created_at, updated_at FROM users WHERE email=$1`, strings.ToLower(email)).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if !user.IsActive {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// FixtureProvider holds accounts in memory. Selected by AUTH_MODE=fixture for
// local development and tests; passwords are still bcrypt-hashed so the code
// path matches production.
type FixtureProvider struct {
	mu     sync.RWMutex
	users  map[string]User
	nextID int64
}

// NewFixtureProvider constructs an empty fixture provider.
func NewFixtureProvider() *FixtureProvider {
	return &FixtureProvider{users: make(map[string]User), nextID: 1}
}

// AddUser registers a fixture account.
func (p *FixtureProvider) AddUser(email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[strings.ToLower(email)] = User{ID: p.nextID, Email: strings.ToLower(email), PasswordHash: string(hash), IsActive: true}
	p.nextID++
	return nil
}

// Authenticate validates credentials against the fixture accounts.
func (p *FixtureProvider) Authenticate(ctx context.Context, email, password string) (User, error) {
	p.mu.RLock()
	user, ok := p.users[strings.ToLower(email)]
	p.mu.RUnlock()
	if !ok || !user.IsActive {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

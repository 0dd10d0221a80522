package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/google/uuid"
)

// UserRepository keeps identity provider users in memory
type UserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]domain.User
}

// NewUserRepository creates an empty user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]domain.User)}
}

// Create stores a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := domain.NormalizeEmail(user.Email)
	for _, u := range r.users {
		if u.Email == email {
			return fmt.Errorf("user with email %s already exists", email)
		}
	}
	u := *user
	u.Email = email
	r.users[u.ID] = u
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email = domain.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

// EmailExists checks if an email is registered
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	u, err := r.GetByEmail(ctx, email)
	return u != nil, err
}

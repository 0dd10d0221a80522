package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Rrens/workspace-access/internal/domain"
)

type userRepo struct {
	q       querier
	writeMu *sync.Mutex
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, domain.NormalizeEmail(user.Email), user.DisplayName, user.PasswordHash,
		toNanos(user.CreatedAt), toNanos(user.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepo) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	var (
		user             domain.User
		created, updated int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM users WHERE `+where, arg).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.CreatedAt = fromNanos(created)
	user.UpdatedAt = fromNanos(updated)
	return &user, nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, `id = ?`, id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `email = ?`, domain.NormalizeEmail(email))
}

func (r *userRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, domain.NormalizeEmail(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workspace is the access-control boundary holding members, settings and activity
type Workspace struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkspaceCreate represents workspace creation data
type WorkspaceCreate struct {
	Name string `json:"name" validate:"required,max=255"`
}

// Identity is the caller as supplied by the identity provider.
// The core never authenticates it.
type Identity struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	Email       string    `json:"email" validate:"required,email,max=255"`
	DisplayName string    `json:"display_name" validate:"max=255"`
}

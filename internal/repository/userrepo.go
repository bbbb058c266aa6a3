package repository

import (
	"context"

	"github.com/gatewarden/authdb/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserUpdate lists the user fields a partial update may change.
type UserUpdate struct {
	Name       *string
	Password   *string // new argon2id digest
	Email      *string
	Phone      *string
	PublicKey  []byte
	PrivateKey []byte
}

// UserRepository provides CRUD access for users and role assignments.
type UserRepository interface {
	// Create inserts a new user row.
	Create(ctx context.Context, u *model.User) error
	// Read loads a user aggregate with assigned roles and their access secrets.
	Read(ctx context.Context, id uuid.UUID) (*model.User, error)
	// ReadByName loads a user aggregate by unique name.
	ReadByName(ctx context.Context, name string) (*model.User, error)
	// ListByRole lists users assigned a role, without nested role lists.
	ListByRole(ctx context.Context, roleID uuid.UUID) ([]model.User, error)
	// Update applies supplied fields only.
	Update(ctx context.Context, id uuid.UUID, up UserUpdate) error
	// Delete removes a user; fails with ErrHasDependents while role
	// assignments, tokens or profile entries reference it.
	Delete(ctx context.Context, id uuid.UUID) error

	// AddRole assigns a role to a user; duplicates fail with ErrAlreadyExists.
	AddRole(ctx context.Context, userID, roleID uuid.UUID) error
	// RemoveRole drops an assignment; removing an absent one is not an error.
	RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error
}

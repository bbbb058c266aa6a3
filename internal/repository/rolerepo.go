package repository

import (
	"context"

	"github.com/gatewarden/authdb/internal/model"
	"github.com/gofrs/uuid/v5"
)

// RoleUpdate lists the role fields a partial update may change.
type RoleUpdate struct {
	Name            *string
	Multi           *bool
	IPLock          *bool
	AccessDuration  *int32
	RefreshDuration *int32
	AccessKey       []byte
}

// RoleRepository provides CRUD access for roles and the role-access grant set.
type RoleRepository interface {
	// Create inserts a new role under an existing API.
	Create(ctx context.Context, role *model.Role) error
	// Read loads a role aggregate with its granted procedure ids.
	Read(ctx context.Context, id uuid.UUID) (*model.Role, error)
	// ReadByName loads a role aggregate by (api, name).
	ReadByName(ctx context.Context, apiID uuid.UUID, name string) (*model.Role, error)
	// ListByApi lists roles of one API without grant lists.
	ListByApi(ctx context.Context, apiID uuid.UUID) ([]model.Role, error)
	// ListByUser lists roles assigned to a user without grant lists.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Role, error)
	// Update applies supplied fields only.
	Update(ctx context.Context, id uuid.UUID, up RoleUpdate) error
	// Delete removes a role; fails with ErrHasDependents while grants,
	// assignments or profile entries reference it.
	Delete(ctx context.Context, id uuid.UUID) error

	// AddAccess grants a procedure to a role. The pair must share one API;
	// cross-API pairs fail with ErrInvalidGrant, duplicates with ErrAlreadyExists.
	AddAccess(ctx context.Context, roleID, procedureID uuid.UUID) error
	// RemoveAccess revokes a grant; removing an absent grant is not an error.
	RemoveAccess(ctx context.Context, roleID, procedureID uuid.UUID) error
	// ListAccess returns all procedure ids granted to a role.
	ListAccess(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)
	// IsAuthorized reports whether any of the user's roles holds a same-API
	// grant for the procedure.
	IsAuthorized(ctx context.Context, userID, procedureID uuid.UUID) (bool, error)
}

package repository

import (
	"context"

	"github.com/gatewarden/authdb/internal/model"
	"github.com/gofrs/uuid/v5"
)

// RoleProfileUpdate lists the role-profile fields a partial update may change.
type RoleProfileUpdate struct {
	Name *string
	Type *model.DataType
	Mode *model.ProfileMode
}

// UserProfileUpdate lists the user-profile fields a partial update may change.
type UserProfileUpdate struct {
	Name  *string
	Value *model.DataValue
}

// ProfileRepository provides CRUD access for role and user profile entries.
type ProfileRepository interface {
	// CreateRoleProfile inserts a profile declaration and returns its id.
	CreateRoleProfile(ctx context.Context, p *model.RoleProfile) (int32, error)
	// ReadRoleProfile loads one declaration by id.
	ReadRoleProfile(ctx context.Context, id int32) (*model.RoleProfile, error)
	// ListRoleProfileByRole lists declarations of one role.
	ListRoleProfileByRole(ctx context.Context, roleID uuid.UUID) ([]model.RoleProfile, error)
	// UpdateRoleProfile applies supplied fields only.
	UpdateRoleProfile(ctx context.Context, id int32, up RoleProfileUpdate) error
	// DeleteRoleProfile removes one declaration.
	DeleteRoleProfile(ctx context.Context, id int32) error

	// CreateUserProfile inserts a value row; the order is the next free slot
	// under (user, name). Returns the new row id.
	CreateUserProfile(ctx context.Context, p *model.UserProfile) (int32, error)
	// ReadUserProfile loads one value row by id.
	ReadUserProfile(ctx context.Context, id int32) (*model.UserProfile, error)
	// ListUserProfileByUser lists value rows of one user ordered by (name, order).
	ListUserProfileByUser(ctx context.Context, userID uuid.UUID) ([]model.UserProfile, error)
	// UpdateUserProfile applies supplied fields only.
	UpdateUserProfile(ctx context.Context, id int32, up UserProfileUpdate) error
	// DeleteUserProfile removes one value row.
	DeleteUserProfile(ctx context.Context, id int32) error
	// SwapUserProfile exchanges the order of two values under (user, name).
	SwapUserProfile(ctx context.Context, userID uuid.UUID, name string, orderA, orderB int16) error
}

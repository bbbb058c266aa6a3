package service

import (
	"context"
	"errors"

	"github.com/gatewarden/authdb/internal/model"
	"github.com/gatewarden/authdb/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// UpdateRoleProfileInput lists the declaration fields a partial update may change.
type UpdateRoleProfileInput struct {
	Name *string
	Type *model.DataType
	Mode *model.ProfileMode
}

// UpdateUserProfileInput lists the value fields a partial update may change.
type UpdateUserProfileInput struct {
	Name  *string
	Value *model.DataValue
}

// ProfileService manages role profile declarations and user profile values.
type ProfileService interface {
	// AddRoleProfile declares a profile field for users holding the role.
	AddRoleProfile(ctx context.Context, roleID uuid.UUID, name string, typ model.DataType, mode model.ProfileMode) (int32, error)
	// ReadRoleProfile loads one declaration by id.
	ReadRoleProfile(ctx context.Context, id int32) (*model.RoleProfile, error)
	// ListRoleProfileByRole lists declarations of one role.
	ListRoleProfileByRole(ctx context.Context, roleID uuid.UUID) ([]model.RoleProfile, error)
	// UpdateRoleProfile applies supplied fields only.
	UpdateRoleProfile(ctx context.Context, id int32, in UpdateRoleProfileInput) error
	// DeleteRoleProfile removes one declaration.
	DeleteRoleProfile(ctx context.Context, id int32) error

	// AddUserProfile stores a typed value at the next order slot under
	// (user, name).
	AddUserProfile(ctx context.Context, userID uuid.UUID, name string, value model.DataValue) (int32, error)
	// ReadUserProfile loads one value by id.
	ReadUserProfile(ctx context.Context, id int32) (*model.UserProfile, error)
	// ListUserProfileByUser lists values of one user ordered by (name, order).
	ListUserProfileByUser(ctx context.Context, userID uuid.UUID) ([]model.UserProfile, error)
	// UpdateUserProfile applies supplied fields only.
	UpdateUserProfile(ctx context.Context, id int32, in UpdateUserProfileInput) error
	// DeleteUserProfile removes one value.
	DeleteUserProfile(ctx context.Context, id int32) error
	// SwapUserProfile exchanges the order of two values under (user, name).
	SwapUserProfile(ctx context.Context, userID uuid.UUID, name string, orderA, orderB int16) error
}

type ProfileServiceImpl struct {
	profiles repository.ProfileRepository
}

// NewProfileService constructs ProfileService with required dependencies.
func NewProfileService(profiles repository.ProfileRepository) *ProfileServiceImpl {
	return &ProfileServiceImpl{profiles: profiles}
}

func (s *ProfileServiceImpl) AddRoleProfile(ctx context.Context, roleID uuid.UUID, name string, typ model.DataType, mode model.ProfileMode) (int32, error) {
	if roleID == uuid.Nil || name == "" {
		return 0, errors.New("empty role id/name")
	}
	return s.profiles.CreateRoleProfile(ctx, &model.RoleProfile{
		RoleID: roleID,
		Name:   name,
		Type:   typ,
		Mode:   mode,
	})
}

func (s *ProfileServiceImpl) ReadRoleProfile(ctx context.Context, id int32) (*model.RoleProfile, error) {
	return s.profiles.ReadRoleProfile(ctx, id)
}

func (s *ProfileServiceImpl) ListRoleProfileByRole(ctx context.Context, roleID uuid.UUID) ([]model.RoleProfile, error) {
	return s.profiles.ListRoleProfileByRole(ctx, roleID)
}

func (s *ProfileServiceImpl) UpdateRoleProfile(ctx context.Context, id int32, in UpdateRoleProfileInput) error {
	return s.profiles.UpdateRoleProfile(ctx, id, repository.RoleProfileUpdate{
		Name: in.Name,
		Type: in.Type,
		Mode: in.Mode,
	})
}

func (s *ProfileServiceImpl) DeleteRoleProfile(ctx context.Context, id int32) error {
	return s.profiles.DeleteRoleProfile(ctx, id)
}

func (s *ProfileServiceImpl) AddUserProfile(ctx context.Context, userID uuid.UUID, name string, value model.DataValue) (int32, error) {
	if userID == uuid.Nil || name == "" {
		return 0, errors.New("empty user id/name")
	}
	return s.profiles.CreateUserProfile(ctx, &model.UserProfile{
		UserID: userID,
		Name:   name,
		Value:  value,
	})
}

func (s *ProfileServiceImpl) ReadUserProfile(ctx context.Context, id int32) (*model.UserProfile, error) {
	return s.profiles.ReadUserProfile(ctx, id)
}

func (s *ProfileServiceImpl) ListUserProfileByUser(ctx context.Context, userID uuid.UUID) ([]model.UserProfile, error) {
	return s.profiles.ListUserProfileByUser(ctx, userID)
}

func (s *ProfileServiceImpl) UpdateUserProfile(ctx context.Context, id int32, in UpdateUserProfileInput) error {
	return s.profiles.UpdateUserProfile(ctx, id, repository.UserProfileUpdate{
		Name:  in.Name,
		Value: in.Value,
	})
}

func (s *ProfileServiceImpl) DeleteUserProfile(ctx context.Context, id int32) error {
	return s.profiles.DeleteUserProfile(ctx, id)
}

func (s *ProfileServiceImpl) SwapUserProfile(ctx context.Context, userID uuid.UUID, name string, orderA, orderB int16) error {
	if orderA == orderB {
		return nil
	}
	return s.profiles.SwapUserProfile(ctx, userID, name, orderA, orderB)
}

package service

import (
	"context"
	"errors"

	pkgcrypto "github.com/gatewarden/authdb/internal/crypto"
	"github.com/gatewarden/authdb/internal/model"
	"github.com/gatewarden/authdb/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// CreateRoleInput carries the attributes of a new role. Durations are in
// seconds; the access key is generated by the service.
type CreateRoleInput struct {
	ApiID           uuid.UUID
	Name            string
	Multi           bool
	IPLock          bool
	AccessDuration  int32
	RefreshDuration int32
}

// UpdateRoleInput lists the role fields a partial update may change.
type UpdateRoleInput struct {
	Name            *string
	Multi           *bool
	IPLock          *bool
	AccessDuration  *int32
	RefreshDuration *int32
}

// AccessService manages roles and resolves role -> procedure grants.
type AccessService interface {
	// CreateRole registers a role under an API with a fresh access key.
	CreateRole(ctx context.Context, in CreateRoleInput) (*model.Role, error)
	// ReadRole loads a role aggregate with its granted procedure ids.
	ReadRole(ctx context.Context, id uuid.UUID) (*model.Role, error)
	// ReadRoleByName loads a role aggregate by (api, name).
	ReadRoleByName(ctx context.Context, apiID uuid.UUID, name string) (*model.Role, error)
	// ListRoleByApi lists roles of one API.
	ListRoleByApi(ctx context.Context, apiID uuid.UUID) ([]model.Role, error)
	// ListRoleByUser lists roles assigned to a user.
	ListRoleByUser(ctx context.Context, userID uuid.UUID) ([]model.Role, error)
	// UpdateRole applies supplied fields only.
	UpdateRole(ctx context.Context, id uuid.UUID, in UpdateRoleInput) error
	// RotateRoleKey replaces the role access key, invalidating future signatures.
	RotateRoleKey(ctx context.Context, id uuid.UUID) error
	// DeleteRole removes a role once grants and assignments are gone.
	DeleteRole(ctx context.Context, id uuid.UUID) error

	// Grant allows a role to invoke a procedure of the same API. Cross-API
	// pairs fail with ErrInvalidGrant, duplicates with ErrAlreadyExists.
	Grant(ctx context.Context, roleID, procedureID uuid.UUID) error
	// Revoke withdraws a grant; revoking an absent grant is not an error.
	Revoke(ctx context.Context, roleID, procedureID uuid.UUID) error
	// GrantedProcedures returns all procedure ids a role may invoke.
	GrantedProcedures(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)
	// IsAuthorized reports whether a user may invoke a procedure through
	// any assigned role scoped to the procedure's API.
	IsAuthorized(ctx context.Context, userID, procedureID uuid.UUID) (bool, error)
}

type AccessServiceImpl struct {
	roles repository.RoleRepository
}

// NewAccessService constructs AccessService with required dependencies.
func NewAccessService(roles repository.RoleRepository) *AccessServiceImpl {
	return &AccessServiceImpl{roles: roles}
}

func (s *AccessServiceImpl) CreateRole(ctx context.Context, in CreateRoleInput) (*model.Role, error) {
	if in.ApiID == uuid.Nil || in.Name == "" {
		return nil, errors.New("empty api id/name")
	}
	if in.AccessDuration < 0 || in.RefreshDuration < 0 {
		return nil, errors.New("negative duration")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	accessKey, err := pkgcrypto.GenerateAccessKey()
	if err != nil {
		return nil, err
	}
	role := &model.Role{
		ID:              id,
		ApiID:           in.ApiID,
		Name:            in.Name,
		Multi:           in.Multi,
		IPLock:          in.IPLock,
		AccessDuration:  in.AccessDuration,
		RefreshDuration: in.RefreshDuration,
		AccessKey:       accessKey,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *AccessServiceImpl) ReadRole(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	return s.roles.Read(ctx, id)
}

func (s *AccessServiceImpl) ReadRoleByName(ctx context.Context, apiID uuid.UUID, name string) (*model.Role, error) {
	if apiID == uuid.Nil || name == "" {
		return nil, errors.New("empty api id/name")
	}
	return s.roles.ReadByName(ctx, apiID, name)
}

func (s *AccessServiceImpl) ListRoleByApi(ctx context.Context, apiID uuid.UUID) ([]model.Role, error) {
	return s.roles.ListByApi(ctx, apiID)
}

func (s *AccessServiceImpl) ListRoleByUser(ctx context.Context, userID uuid.UUID) ([]model.Role, error) {
	return s.roles.ListByUser(ctx, userID)
}

func (s *AccessServiceImpl) UpdateRole(ctx context.Context, id uuid.UUID, in UpdateRoleInput) error {
	return s.roles.Update(ctx, id, repository.RoleUpdate{
		Name:            in.Name,
		Multi:           in.Multi,
		IPLock:          in.IPLock,
		AccessDuration:  in.AccessDuration,
		RefreshDuration: in.RefreshDuration,
	})
}

func (s *AccessServiceImpl) RotateRoleKey(ctx context.Context, id uuid.UUID) error {
	accessKey, err := pkgcrypto.GenerateAccessKey()
	if err != nil {
		return err
	}
	return s.roles.Update(ctx, id, repository.RoleUpdate{AccessKey: accessKey})
}

func (s *AccessServiceImpl) DeleteRole(ctx context.Context, id uuid.UUID) error {
	return s.roles.Delete(ctx, id)
}

func (s *AccessServiceImpl) Grant(ctx context.Context, roleID, procedureID uuid.UUID) error {
	if roleID == uuid.Nil || procedureID == uuid.Nil {
		return errors.New("empty role/procedure id")
	}
	return s.roles.AddAccess(ctx, roleID, procedureID)
}

func (s *AccessServiceImpl) Revoke(ctx context.Context, roleID, procedureID uuid.UUID) error {
	return s.roles.RemoveAccess(ctx, roleID, procedureID)
}

func (s *AccessServiceImpl) GrantedProcedures(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	return s.roles.ListAccess(ctx, roleID)
}

func (s *AccessServiceImpl) IsAuthorized(ctx context.Context, userID, procedureID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || procedureID == uuid.Nil {
		return false, nil
	}
	return s.roles.IsAuthorized(ctx, userID, procedureID)
}

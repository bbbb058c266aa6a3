// Package service contains application services over the repositories.
package service

import (
	"context"
	"errors"

	pkgcrypto "github.com/gatewarden/authdb/internal/crypto"
	"github.com/gatewarden/authdb/internal/model"
	"github.com/gatewarden/authdb/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// CreateApiInput carries the caller-supplied attributes of a new API.
// Password is plaintext; the service stores only its digest.
type CreateApiInput struct {
	Name        string
	Address     string
	Category    string
	Description string
	Password    string
}

// UpdateApiInput lists the API fields a partial update may change.
// Password is plaintext and re-hashed before storage.
type UpdateApiInput struct {
	Name        *string
	Address     *string
	Category    *string
	Description *string
	Password    *string
}

// UpdateProcedureInput lists the procedure fields a partial update may change.
type UpdateProcedureInput struct {
	Name        *string
	Description *string
}

// ApiService manages APIs, their procedures and their credential material.
type ApiService interface {
	// Create registers an API, hashing its password and generating a
	// keypair plus a shared access key.
	Create(ctx context.Context, in CreateApiInput) (*model.Api, error)
	// Read loads the API aggregate with procedures and authorized role names.
	Read(ctx context.Context, id uuid.UUID) (*model.Api, error)
	// ReadByName loads the aggregate by unique name.
	ReadByName(ctx context.Context, name string) (*model.Api, error)
	// ListByCategory lists APIs of one category without nested procedures.
	ListByCategory(ctx context.Context, category string) ([]model.Api, error)
	// Update applies supplied fields only.
	Update(ctx context.Context, id uuid.UUID, in UpdateApiInput) error
	// RotateKeys replaces the API keypair and access key.
	RotateKeys(ctx context.Context, id uuid.UUID) error
	// Delete removes an API once its procedures are gone.
	Delete(ctx context.Context, id uuid.UUID) error

	// CreateProcedure registers a procedure under an existing API.
	CreateProcedure(ctx context.Context, apiID uuid.UUID, name, description string) (*model.Procedure, error)
	// ReadProcedure loads a procedure with its authorized role names.
	ReadProcedure(ctx context.Context, id uuid.UUID) (*model.Procedure, error)
	// ReadProcedureByName loads a procedure by (api, name).
	ReadProcedureByName(ctx context.Context, apiID uuid.UUID, name string) (*model.Procedure, error)
	// ListProcedureByApi lists procedures of one API.
	ListProcedureByApi(ctx context.Context, apiID uuid.UUID) ([]model.Procedure, error)
	// UpdateProcedure applies supplied fields only.
	UpdateProcedure(ctx context.Context, id uuid.UUID, in UpdateProcedureInput) error
	// DeleteProcedure removes a procedure once grants referencing it are gone.
	DeleteProcedure(ctx context.Context, id uuid.UUID) error
}

type ApiServiceImpl struct {
	apis repository.ApiRepository
}

// NewApiService constructs ApiService with required dependencies.
func NewApiService(apis repository.ApiRepository) *ApiServiceImpl {
	return &ApiServiceImpl{apis: apis}
}

func (s *ApiServiceImpl) Create(ctx context.Context, in CreateApiInput) (*model.Api, error) {
	if in.Name == "" || in.Address == "" || in.Password == "" {
		return nil, errors.New("empty name/address/password")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	digest, err := pkgcrypto.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	priv, pub, err := pkgcrypto.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	accessKey, err := pkgcrypto.GenerateAccessKey()
	if err != nil {
		return nil, err
	}
	api := &model.Api{
		ID:          id,
		Name:        in.Name,
		Address:     in.Address,
		Category:    in.Category,
		Description: in.Description,
		Password:    digest,
		PublicKey:   pub,
		PrivateKey:  priv,
		AccessKey:   accessKey,
	}
	if err := s.apis.Create(ctx, api); err != nil {
		return nil, err
	}
	return api, nil
}

func (s *ApiServiceImpl) Read(ctx context.Context, id uuid.UUID) (*model.Api, error) {
	return s.apis.Read(ctx, id)
}

func (s *ApiServiceImpl) ReadByName(ctx context.Context, name string) (*model.Api, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}
	return s.apis.ReadByName(ctx, name)
}

func (s *ApiServiceImpl) ListByCategory(ctx context.Context, category string) ([]model.Api, error) {
	return s.apis.ListByCategory(ctx, category)
}

func (s *ApiServiceImpl) Update(ctx context.Context, id uuid.UUID, in UpdateApiInput) error {
	up := repository.ApiUpdate{
		Name:        in.Name,
		Address:     in.Address,
		Category:    in.Category,
		Description: in.Description,
	}
	if in.Password != nil {
		digest, err := pkgcrypto.HashPassword(*in.Password)
		if err != nil {
			return err
		}
		up.Password = &digest
	}
	return s.apis.Update(ctx, id, up)
}

func (s *ApiServiceImpl) RotateKeys(ctx context.Context, id uuid.UUID) error {
	priv, pub, err := pkgcrypto.GenerateKeypair()
	if err != nil {
		return err
	}
	accessKey, err := pkgcrypto.GenerateAccessKey()
	if err != nil {
		return err
	}
	return s.apis.Update(ctx, id, repository.ApiUpdate{
		PublicKey:  pub,
		PrivateKey: priv,
		AccessKey:  accessKey,
	})
}

func (s *ApiServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return s.apis.Delete(ctx, id)
}

func (s *ApiServiceImpl) CreateProcedure(ctx context.Context, apiID uuid.UUID, name, description string) (*model.Procedure, error) {
	if apiID == uuid.Nil || name == "" {
		return nil, errors.New("empty api id/name")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	proc := &model.Procedure{
		ID:          id,
		ApiID:       apiID,
		Name:        name,
		Description: description,
	}
	if err := s.apis.CreateProcedure(ctx, proc); err != nil {
		return nil, err
	}
	return proc, nil
}

func (s *ApiServiceImpl) ReadProcedure(ctx context.Context, id uuid.UUID) (*model.Procedure, error) {
	return s.apis.ReadProcedure(ctx, id)
}

func (s *ApiServiceImpl) ReadProcedureByName(ctx context.Context, apiID uuid.UUID, name string) (*model.Procedure, error) {
	if apiID == uuid.Nil || name == "" {
		return nil, errors.New("empty api id/name")
	}
	return s.apis.ReadProcedureByName(ctx, apiID, name)
}

func (s *ApiServiceImpl) ListProcedureByApi(ctx context.Context, apiID uuid.UUID) ([]model.Procedure, error) {
	return s.apis.ListProcedureByApi(ctx, apiID)
}

func (s *ApiServiceImpl) UpdateProcedure(ctx context.Context, id uuid.UUID, in UpdateProcedureInput) error {
	return s.apis.UpdateProcedure(ctx, id, repository.ProcedureUpdate{
		Name:        in.Name,
		Description: in.Description,
	})
}

func (s *ApiServiceImpl) DeleteProcedure(ctx context.Context, id uuid.UUID) error {
	return s.apis.DeleteProcedure(ctx, id)
}

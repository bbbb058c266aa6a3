// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gatewarden/authdb/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ApiUpdate lists the API fields a partial update may change.
// Nil fields are left untouched.
type ApiUpdate struct {
	Name        *string
	Address     *string
	Category    *string
	Description *string
	Password    *string // new argon2id digest
	PublicKey   []byte
	PrivateKey  []byte
	AccessKey   []byte
}

// ProcedureUpdate lists the procedure fields a partial update may change.
type ProcedureUpdate struct {
	Name        *string
	Description *string
}

// ApiRepository provides CRUD access for APIs and their procedures.
type ApiRepository interface {
	// Create inserts a new API row; credentials must be populated by the caller.
	Create(ctx context.Context, api *model.Api) error
	// Read loads an API aggregate with its procedures and their authorized role names.
	Read(ctx context.Context, id uuid.UUID) (*model.Api, error)
	// ReadByName loads an API aggregate by unique name.
	ReadByName(ctx context.Context, name string) (*model.Api, error)
	// ListByCategory lists APIs without nested procedures.
	ListByCategory(ctx context.Context, category string) ([]model.Api, error)
	// Update applies supplied fields only.
	Update(ctx context.Context, id uuid.UUID, up ApiUpdate) error
	// Delete removes an API; fails with ErrHasDependents while procedures exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// CreateProcedure inserts a procedure under an existing API.
	CreateProcedure(ctx context.Context, proc *model.Procedure) error
	// ReadProcedure loads a procedure with its authorized role names.
	ReadProcedure(ctx context.Context, id uuid.UUID) (*model.Procedure, error)
	// ReadProcedureByName loads a procedure by (api, name).
	ReadProcedureByName(ctx context.Context, apiID uuid.UUID, name string) (*model.Procedure, error)
	// ListProcedureByApi lists procedures of one API.
	ListProcedureByApi(ctx context.Context, apiID uuid.UUID) ([]model.Procedure, error)
	// UpdateProcedure applies supplied fields only.
	UpdateProcedure(ctx context.Context, id uuid.UUID, up ProcedureUpdate) error
	// DeleteProcedure removes a procedure; fails while grants reference it.
	DeleteProcedure(ctx context.Context, id uuid.UUID) error
}

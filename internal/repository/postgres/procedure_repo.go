package postgres

import (
	"context"
	"database/sql"

	"github.com/gatewarden/authdb/internal/errs"
	"github.com/gatewarden/authdb/internal/flatten"
	"github.com/gatewarden/authdb/internal/model"
	"github.com/gatewarden/authdb/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// procJoin is one decoded row of the procedure -> role left join.
type procJoin struct {
	id          uuid.UUID
	apiID       uuid.UUID
	name        string
	description string

	roleID   uuid.NullUUID
	roleName sql.NullString
}

// procSpec folds ordered join rows into procedures carrying authorized role names.
var procSpec = flatten.Spec[procJoin, model.Procedure, uuid.UUID, uuid.UUID, uuid.UUID]{
	ParentID: func(r procJoin) uuid.UUID { return r.id },
	NewParent: func(r procJoin) model.Procedure {
		return model.Procedure{
			ID:          r.id,
			ApiID:       r.apiID,
			Name:        r.name,
			Description: r.description,
		}
	},
	ChildID: func(r procJoin) (uuid.UUID, bool) { return r.roleID.UUID, r.roleID.Valid },
	AddChild: func(p *model.Procedure, r procJoin) {
		p.Roles = append(p.Roles, r.roleName.String)
	},
}

const procJoinSelect = `
SELECT p.id, p.api_id, p.name, p.description, r.id, r.name
FROM api_procedure p
LEFT JOIN role_access ra ON ra.procedure_id = p.id
LEFT JOIN role r ON r.id = ra.role_id`

func (repo *ApiRepo) selectProcedures(ctx context.Context, q string, args ...any) ([]model.Procedure, error) {
	rows, err := repo.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	acc := flatten.New(procSpec)
	for rows.Next() {
		var r procJoin
		if err := rows.Scan(&r.id, &r.apiID, &r.name, &r.description, &r.roleID, &r.roleName); err != nil {
			return nil, err
		}
		acc.Push(r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return acc.Done(), nil
}

// CreateProcedure inserts a procedure under an existing API.
func (repo *ApiRepo) CreateProcedure(ctx context.Context, proc *model.Procedure) error {
	const q = `
INSERT INTO api_procedure (id, api_id, name, description)
VALUES ($1, $2, $3, $4)`
	_, err := repo.db.Pool.Exec(ctx, q, proc.ID, proc.ApiID, proc.Name, proc.Description)
	switch {
	case isUniqueViolation(err):
		return errs.ErrAlreadyExists
	case isForeignKeyViolation(err):
		// owning API does not exist
		return errs.ErrNotFound
	}
	return err
}

// ReadProcedure loads a procedure with its authorized role names.
func (repo *ApiRepo) ReadProcedure(ctx context.Context, id uuid.UUID) (*model.Procedure, error) {
	const q = procJoinSelect + `
WHERE p.id=$1
ORDER BY p.id, r.name`
	procs, err := repo.selectProcedures(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if len(procs) == 0 {
		return nil, errs.ErrNotFound
	}
	return &procs[0], nil
}

// ReadProcedureByName loads a procedure by (api, name).
func (repo *ApiRepo) ReadProcedureByName(ctx context.Context, apiID uuid.UUID, name string) (*model.Procedure, error) {
	const q = procJoinSelect + `
WHERE p.api_id=$1 AND p.name=$2
ORDER BY p.id, r.name`
	procs, err := repo.selectProcedures(ctx, q, apiID, name)
	if err != nil {
		return nil, err
	}
	if len(procs) == 0 {
		return nil, errs.ErrNotFound
	}
	return &procs[0], nil
}

// ListProcedureByApi lists procedures of one API with their role names.
func (repo *ApiRepo) ListProcedureByApi(ctx context.Context, apiID uuid.UUID) ([]model.Procedure, error) {
	const q = procJoinSelect + `
WHERE p.api_id=$1
ORDER BY p.id, r.name`
	return repo.selectProcedures(ctx, q, apiID)
}

// UpdateProcedure applies supplied fields only.
func (repo *ApiRepo) UpdateProcedure(ctx context.Context, id uuid.UUID, up repository.ProcedureUpdate) error {
	var a assignments
	if up.Name != nil {
		a.set("name", *up.Name)
	}
	if up.Description != nil {
		a.set("description", *up.Description)
	}
	if a.empty() {
		return nil
	}
	q := "UPDATE api_procedure SET " + a.setClause() + " WHERE id=" + a.bind(id)
	tag, err := repo.db.Pool.Exec(ctx, q, a.args...)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteProcedure removes a procedure; grants referencing it must go first.
func (repo *ApiRepo) DeleteProcedure(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM api_procedure WHERE id=$1`
	tag, err := repo.db.Pool.Exec(ctx, q, id)
	if isForeignKeyViolation(err) {
		return errs.ErrHasDependents
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

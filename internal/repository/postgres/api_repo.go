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

// ApiRepo implements ApiRepository using PostgreSQL.
type ApiRepo struct{ db *DB }

// NewApiRepo constructs an API repository.
func NewApiRepo(db *DB) *ApiRepo { return &ApiRepo{db: db} }

// apiJoin is one decoded row of the api -> procedure -> role left join.
// Everything from the procedure level down is nullable.
type apiJoin struct {
	id          uuid.UUID
	name        string
	address     string
	category    string
	description string
	password    string
	publicKey   []byte
	privateKey  []byte
	accessKey   []byte

	procID   uuid.NullUUID
	procName sql.NullString
	procDesc sql.NullString

	roleID   uuid.NullUUID
	roleName sql.NullString
}

// apiSpec folds ordered join rows into Api aggregates: one Api per distinct
// id, procedures deduplicated by id, authorized role names attached to the
// most recently appended procedure.
var apiSpec = flatten.Spec[apiJoin, model.Api, uuid.UUID, uuid.UUID, uuid.UUID]{
	ParentID: func(r apiJoin) uuid.UUID { return r.id },
	NewParent: func(r apiJoin) model.Api {
		return model.Api{
			ID:          r.id,
			Name:        r.name,
			Address:     r.address,
			Category:    r.category,
			Description: r.description,
			Password:    r.password,
			PublicKey:   r.publicKey,
			PrivateKey:  r.privateKey,
			AccessKey:   r.accessKey,
		}
	},
	ChildID: func(r apiJoin) (uuid.UUID, bool) { return r.procID.UUID, r.procID.Valid },
	AddChild: func(a *model.Api, r apiJoin) {
		a.Procedures = append(a.Procedures, model.Procedure{
			ID:          r.procID.UUID,
			ApiID:       a.ID,
			Name:        r.procName.String,
			Description: r.procDesc.String,
		})
	},
	GrandchildID: func(r apiJoin) (uuid.UUID, bool) { return r.roleID.UUID, r.roleID.Valid },
	AddGrandchild: func(a *model.Api, r apiJoin) {
		p := &a.Procedures[len(a.Procedures)-1]
		p.Roles = append(p.Roles, r.roleName.String)
	},
}

const apiJoinSelect = `
SELECT a.id, a.name, a.address, a.category, a.description, a.password, a.public_key, a.private_key, a.access_key,
       p.id, p.name, p.description, r.id, r.name
FROM api a
LEFT JOIN api_procedure p ON p.api_id = a.id
LEFT JOIN role_access ra ON ra.procedure_id = p.id
LEFT JOIN role r ON r.id = ra.role_id`

// selectApis runs an api join query and folds the ordered rows.
func (repo *ApiRepo) selectApis(ctx context.Context, q string, args ...any) ([]model.Api, error) {
	rows, err := repo.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	acc := flatten.New(apiSpec)
	for rows.Next() {
		var r apiJoin
		if err := rows.Scan(
			&r.id, &r.name, &r.address, &r.category, &r.description,
			&r.password, &r.publicKey, &r.privateKey, &r.accessKey,
			&r.procID, &r.procName, &r.procDesc, &r.roleID, &r.roleName,
		); err != nil {
			return nil, err
		}
		acc.Push(r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return acc.Done(), nil
}

// Read loads an API aggregate with its procedures and their authorized role names.
func (repo *ApiRepo) Read(ctx context.Context, id uuid.UUID) (*model.Api, error) {
	const q = apiJoinSelect + `
WHERE a.id=$1
ORDER BY a.id, p.id, r.name`
	apis, err := repo.selectApis(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if len(apis) == 0 {
		return nil, errs.ErrNotFound
	}
	return &apis[0], nil
}

// ReadByName loads an API aggregate by unique name.
func (repo *ApiRepo) ReadByName(ctx context.Context, name string) (*model.Api, error) {
	const q = apiJoinSelect + `
WHERE a.name=$1
ORDER BY a.id, p.id, r.name`
	apis, err := repo.selectApis(ctx, q, name)
	if err != nil {
		return nil, err
	}
	if len(apis) == 0 {
		return nil, errs.ErrNotFound
	}
	return &apis[0], nil
}

// ListByCategory lists APIs without nested procedures.
func (repo *ApiRepo) ListByCategory(ctx context.Context, category string) ([]model.Api, error) {
	const q = `
SELECT id, name, address, category, description, password, public_key, private_key, access_key
FROM api WHERE category=$1 ORDER BY id`
	rows, err := repo.db.Pool.Query(ctx, q, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Api
	for rows.Next() {
		var a model.Api
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Address, &a.Category, &a.Description,
			&a.Password, &a.PublicKey, &a.PrivateKey, &a.AccessKey,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create inserts a new API row.
func (repo *ApiRepo) Create(ctx context.Context, api *model.Api) error {
	const q = `
INSERT INTO api (id, name, address, category, description, password, public_key, private_key, access_key)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.Pool.Exec(ctx, q,
		api.ID, api.Name, api.Address, api.Category, api.Description,
		api.Password, api.PublicKey, api.PrivateKey, api.AccessKey)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Update applies supplied fields only.
func (repo *ApiRepo) Update(ctx context.Context, id uuid.UUID, up repository.ApiUpdate) error {
	var a assignments
	if up.Name != nil {
		a.set("name", *up.Name)
	}
	if up.Address != nil {
		a.set("address", *up.Address)
	}
	if up.Category != nil {
		a.set("category", *up.Category)
	}
	if up.Description != nil {
		a.set("description", *up.Description)
	}
	if up.Password != nil {
		a.set("password", *up.Password)
	}
	if up.PublicKey != nil {
		a.set("public_key", up.PublicKey)
	}
	if up.PrivateKey != nil {
		a.set("private_key", up.PrivateKey)
	}
	if up.AccessKey != nil {
		a.set("access_key", up.AccessKey)
	}
	if a.empty() {
		return nil
	}
	q := "UPDATE api SET " + a.setClause() + " WHERE id=" + a.bind(id)
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

// Delete removes an API; dependents must be removed first.
func (repo *ApiRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM api WHERE id=$1`
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

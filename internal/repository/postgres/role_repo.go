package postgres

import (
	"context"
	"errors"

	"github.com/gatewarden/authdb/internal/errs"
	"github.com/gatewarden/authdb/internal/flatten"
	"github.com/gatewarden/authdb/internal/model"
	"github.com/gatewarden/authdb/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// RoleRepo implements RoleRepository using PostgreSQL.
type RoleRepo struct{ db *DB }

// NewRoleRepo constructs a role repository.
func NewRoleRepo(db *DB) *RoleRepo { return &RoleRepo{db: db} }

// roleJoin is one decoded row of the role -> role_access left join.
type roleJoin struct {
	id              uuid.UUID
	apiID           uuid.UUID
	name            string
	multi           bool
	ipLock          bool
	accessDuration  int32
	refreshDuration int32
	accessKey       []byte

	procedureID uuid.NullUUID
}

// roleSpec folds ordered join rows into Role aggregates with granted procedure ids.
var roleSpec = flatten.Spec[roleJoin, model.Role, uuid.UUID, uuid.UUID, uuid.UUID]{
	ParentID: func(r roleJoin) uuid.UUID { return r.id },
	NewParent: func(r roleJoin) model.Role {
		return model.Role{
			ID:              r.id,
			ApiID:           r.apiID,
			Name:            r.name,
			Multi:           r.multi,
			IPLock:          r.ipLock,
			AccessDuration:  r.accessDuration,
			RefreshDuration: r.refreshDuration,
			AccessKey:       r.accessKey,
		}
	},
	ChildID: func(r roleJoin) (uuid.UUID, bool) { return r.procedureID.UUID, r.procedureID.Valid },
	AddChild: func(role *model.Role, r roleJoin) {
		role.Procedures = append(role.Procedures, r.procedureID.UUID)
	},
}

const roleJoinSelect = `
SELECT r.id, r.api_id, r.name, r.multi, r.ip_lock, r.access_duration, r.refresh_duration, r.access_key,
       ra.procedure_id
FROM role r
LEFT JOIN role_access ra ON ra.role_id = r.id`

func (repo *RoleRepo) selectRoles(ctx context.Context, q string, args ...any) ([]model.Role, error) {
	rows, err := repo.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	acc := flatten.New(roleSpec)
	for rows.Next() {
		var r roleJoin
		if err := rows.Scan(
			&r.id, &r.apiID, &r.name, &r.multi, &r.ipLock,
			&r.accessDuration, &r.refreshDuration, &r.accessKey, &r.procedureID,
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

// Create inserts a new role under an existing API.
func (repo *RoleRepo) Create(ctx context.Context, role *model.Role) error {
	const q = `
INSERT INTO role (id, api_id, name, multi, ip_lock, access_duration, refresh_duration, access_key)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.Pool.Exec(ctx, q,
		role.ID, role.ApiID, role.Name, role.Multi, role.IPLock,
		role.AccessDuration, role.RefreshDuration, role.AccessKey)
	switch {
	case isUniqueViolation(err):
		return errs.ErrAlreadyExists
	case isForeignKeyViolation(err):
		return errs.ErrNotFound
	}
	return err
}

// Read loads a role aggregate with its granted procedure ids.
func (repo *RoleRepo) Read(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	const q = roleJoinSelect + `
WHERE r.id=$1
ORDER BY r.id, ra.procedure_id`
	roles, err := repo.selectRoles(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, errs.ErrNotFound
	}
	return &roles[0], nil
}

// ReadByName loads a role aggregate by (api, name).
func (repo *RoleRepo) ReadByName(ctx context.Context, apiID uuid.UUID, name string) (*model.Role, error) {
	const q = roleJoinSelect + `
WHERE r.api_id=$1 AND r.name=$2
ORDER BY r.id, ra.procedure_id`
	roles, err := repo.selectRoles(ctx, q, apiID, name)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, errs.ErrNotFound
	}
	return &roles[0], nil
}

// ListByApi lists roles of one API without grant lists.
func (repo *RoleRepo) ListByApi(ctx context.Context, apiID uuid.UUID) ([]model.Role, error) {
	const q = `
SELECT id, api_id, name, multi, ip_lock, access_duration, refresh_duration, access_key
FROM role WHERE api_id=$1 ORDER BY id`
	return repo.scanRoles(ctx, q, apiID)
}

// ListByUser lists roles assigned to a user without grant lists.
func (repo *RoleRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Role, error) {
	const q = `
SELECT r.id, r.api_id, r.name, r.multi, r.ip_lock, r.access_duration, r.refresh_duration, r.access_key
FROM role r
JOIN user_role ur ON ur.role_id = r.id
WHERE ur.user_id=$1 ORDER BY r.id`
	return repo.scanRoles(ctx, q, userID)
}

func (repo *RoleRepo) scanRoles(ctx context.Context, q string, args ...any) ([]model.Role, error) {
	rows, err := repo.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Role
	for rows.Next() {
		var r model.Role
		if err := rows.Scan(
			&r.ID, &r.ApiID, &r.Name, &r.Multi, &r.IPLock,
			&r.AccessDuration, &r.RefreshDuration, &r.AccessKey,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Update applies supplied fields only.
func (repo *RoleRepo) Update(ctx context.Context, id uuid.UUID, up repository.RoleUpdate) error {
	var a assignments
	if up.Name != nil {
		a.set("name", *up.Name)
	}
	if up.Multi != nil {
		a.set("multi", *up.Multi)
	}
	if up.IPLock != nil {
		a.set("ip_lock", *up.IPLock)
	}
	if up.AccessDuration != nil {
		a.set("access_duration", *up.AccessDuration)
	}
	if up.RefreshDuration != nil {
		a.set("refresh_duration", *up.RefreshDuration)
	}
	if up.AccessKey != nil {
		a.set("access_key", up.AccessKey)
	}
	if a.empty() {
		return nil
	}
	q := "UPDATE role SET " + a.setClause() + " WHERE id=" + a.bind(id)
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

// Delete removes a role; grants and assignments must be removed first.
func (repo *RoleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM role WHERE id=$1`
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

// AddAccess grants a procedure to a role after verifying both sides share one API.
func (repo *RoleRepo) AddAccess(ctx context.Context, roleID, procedureID uuid.UUID) error {
	const check = `
SELECT r.api_id = p.api_id
FROM role r, api_procedure p
WHERE r.id=$1 AND p.id=$2`
	var sameAPI bool
	if err := repo.db.Pool.QueryRow(ctx, check, roleID, procedureID).Scan(&sameAPI); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	if !sameAPI {
		return errs.ErrInvalidGrant
	}

	const ins = `INSERT INTO role_access (role_id, procedure_id) VALUES ($1, $2)`
	_, err := repo.db.Pool.Exec(ctx, ins, roleID, procedureID)
	switch {
	case isUniqueViolation(err):
		return errs.ErrAlreadyExists
	case isForeignKeyViolation(err):
		return errs.ErrNotFound
	}
	return err
}

// RemoveAccess revokes a grant; removing an absent grant is not an error.
func (repo *RoleRepo) RemoveAccess(ctx context.Context, roleID, procedureID uuid.UUID) error {
	const q = `DELETE FROM role_access WHERE role_id=$1 AND procedure_id=$2`
	_, err := repo.db.Pool.Exec(ctx, q, roleID, procedureID)
	return err
}

// ListAccess returns all procedure ids granted to a role.
func (repo *RoleRepo) ListAccess(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT procedure_id FROM role_access WHERE role_id=$1 ORDER BY procedure_id`
	rows, err := repo.db.Pool.Query(ctx, q, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// IsAuthorized reports whether any of the user's roles holds a same-API grant
// for the procedure. The api scope predicate guards against stray grant rows.
func (repo *RoleRepo) IsAuthorized(ctx context.Context, userID, procedureID uuid.UUID) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1
  FROM user_role ur
  JOIN role r ON r.id = ur.role_id
  JOIN role_access ra ON ra.role_id = r.id
  JOIN api_procedure p ON p.id = ra.procedure_id
  WHERE ur.user_id=$1 AND ra.procedure_id=$2 AND r.api_id = p.api_id
)`
	var ok bool
	if err := repo.db.Pool.QueryRow(ctx, q, userID, procedureID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

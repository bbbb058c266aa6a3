package postgres

import (
	"context"
	"errors"

	"github.com/gatewarden/authdb/internal/errs"
	"github.com/gatewarden/authdb/internal/model"
	"github.com/gatewarden/authdb/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// ProfileRepo implements ProfileRepository using PostgreSQL.
type ProfileRepo struct{ db *DB }

// NewProfileRepo constructs a profile repository.
func NewProfileRepo(db *DB) *ProfileRepo { return &ProfileRepo{db: db} }

// CreateRoleProfile inserts a profile declaration and returns its id.
func (r *ProfileRepo) CreateRoleProfile(ctx context.Context, p *model.RoleProfile) (int32, error) {
	const q = `
INSERT INTO profile_role (role_id, name, type, mode)
VALUES ($1, $2, $3, $4)
RETURNING id`
	var id int32
	err := r.db.Pool.QueryRow(ctx, q, p.RoleID, p.Name, int16(p.Type), int16(p.Mode)).Scan(&id)
	if isForeignKeyViolation(err) {
		return 0, errs.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ReadRoleProfile loads one declaration by id.
func (r *ProfileRepo) ReadRoleProfile(ctx context.Context, id int32) (*model.RoleProfile, error) {
	const q = `
SELECT id, role_id, name, type, mode
FROM profile_role WHERE id=$1`
	var p model.RoleProfile
	var typ, mode int16
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.RoleID, &p.Name, &typ, &mode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	p.Type = model.DataType(typ)
	p.Mode = model.ProfileMode(mode)
	return &p, nil
}

// ListRoleProfileByRole lists declarations of one role.
func (r *ProfileRepo) ListRoleProfileByRole(ctx context.Context, roleID uuid.UUID) ([]model.RoleProfile, error) {
	const q = `
SELECT id, role_id, name, type, mode
FROM profile_role WHERE role_id=$1 ORDER BY id`
	rows, err := r.db.Pool.Query(ctx, q, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RoleProfile
	for rows.Next() {
		var p model.RoleProfile
		var typ, mode int16
		if err := rows.Scan(&p.ID, &p.RoleID, &p.Name, &typ, &mode); err != nil {
			return nil, err
		}
		p.Type = model.DataType(typ)
		p.Mode = model.ProfileMode(mode)
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateRoleProfile applies supplied fields only.
func (r *ProfileRepo) UpdateRoleProfile(ctx context.Context, id int32, up repository.RoleProfileUpdate) error {
	var a assignments
	if up.Name != nil {
		a.set("name", *up.Name)
	}
	if up.Type != nil {
		a.set("type", int16(*up.Type))
	}
	if up.Mode != nil {
		a.set("mode", int16(*up.Mode))
	}
	if a.empty() {
		return nil
	}
	q := "UPDATE profile_role SET " + a.setClause() + " WHERE id=" + a.bind(id)
	tag, err := r.db.Pool.Exec(ctx, q, a.args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteRoleProfile removes one declaration.
func (r *ProfileRepo) DeleteRoleProfile(ctx context.Context, id int32) error {
	const q = `DELETE FROM profile_role WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CreateUserProfile inserts a value row at the next free order slot under
// (user, name) and returns the new row id.
func (r *ProfileRepo) CreateUserProfile(ctx context.Context, p *model.UserProfile) (int32, error) {
	const q = `
INSERT INTO profile_user (user_id, name, "order", type, value)
VALUES ($1, $2,
        (SELECT COALESCE(MAX("order")+1, 0) FROM profile_user WHERE user_id=$1 AND name=$2),
        $3, $4)
RETURNING id`
	var id int32
	err := r.db.Pool.QueryRow(ctx, q, p.UserID, p.Name, int16(p.Value.Type), p.Value.Bytes).Scan(&id)
	if isForeignKeyViolation(err) {
		return 0, errs.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ReadUserProfile loads one value row by id.
func (r *ProfileRepo) ReadUserProfile(ctx context.Context, id int32) (*model.UserProfile, error) {
	const q = `
SELECT id, user_id, name, "order", type, value
FROM profile_user WHERE id=$1`
	var p model.UserProfile
	var typ int16
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.UserID, &p.Name, &p.Order, &typ, &p.Value.Bytes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	p.Value.Type = model.DataType(typ)
	return &p, nil
}

// ListUserProfileByUser lists value rows of one user ordered by (name, order).
func (r *ProfileRepo) ListUserProfileByUser(ctx context.Context, userID uuid.UUID) ([]model.UserProfile, error) {
	const q = `
SELECT id, user_id, name, "order", type, value
FROM profile_user WHERE user_id=$1 ORDER BY name, "order"`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UserProfile
	for rows.Next() {
		var p model.UserProfile
		var typ int16
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Order, &typ, &p.Value.Bytes); err != nil {
			return nil, err
		}
		p.Value.Type = model.DataType(typ)
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateUserProfile applies supplied fields only.
func (r *ProfileRepo) UpdateUserProfile(ctx context.Context, id int32, up repository.UserProfileUpdate) error {
	var a assignments
	if up.Name != nil {
		a.set("name", *up.Name)
	}
	if up.Value != nil {
		a.set("type", int16(up.Value.Type))
		a.set("value", up.Value.Bytes)
	}
	if a.empty() {
		return nil
	}
	q := "UPDATE profile_user SET " + a.setClause() + " WHERE id=" + a.bind(id)
	tag, err := r.db.Pool.Exec(ctx, q, a.args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteUserProfile removes one value row.
func (r *ProfileRepo) DeleteUserProfile(ctx context.Context, id int32) error {
	const q = `DELETE FROM profile_user WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SwapUserProfile exchanges the order of two values under (user, name).
func (r *ProfileRepo) SwapUserProfile(ctx context.Context, userID uuid.UUID, name string, orderA, orderB int16) error {
	const q = `
UPDATE profile_user
SET "order" = CASE "order" WHEN $3 THEN $4::smallint ELSE $3::smallint END
WHERE user_id=$1 AND name=$2 AND "order" IN ($3, $4)`
	tag, err := r.db.Pool.Exec(ctx, q, userID, name, orderA, orderB)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

package postgres

import (
	"context"

	"github.com/gatewarden/authdb/internal/errs"
	"github.com/gatewarden/authdb/internal/flatten"
	"github.com/gatewarden/authdb/internal/model"
	"github.com/gatewarden/authdb/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// userJoin is one decoded row of the user -> user_role -> role left join.
// The role level is nullable; its non-key columns are only read when the
// role id is present.
type userJoin struct {
	id         uuid.UUID
	name       string
	password   string
	email      string
	phone      string
	publicKey  []byte
	privateKey []byte

	roleID          uuid.NullUUID
	apiID           uuid.NullUUID
	roleName        *string
	multi           *bool
	ipLock          *bool
	accessDuration  *int32
	refreshDuration *int32
	accessKey       []byte
}

// userSpec folds ordered join rows into User aggregates whose role rows carry
// the per-API access secrets.
var userSpec = flatten.Spec[userJoin, model.User, uuid.UUID, uuid.UUID, uuid.UUID]{
	ParentID: func(r userJoin) uuid.UUID { return r.id },
	NewParent: func(r userJoin) model.User {
		return model.User{
			ID:         r.id,
			Name:       r.name,
			Password:   r.password,
			Email:      r.email,
			Phone:      r.phone,
			PublicKey:  r.publicKey,
			PrivateKey: r.privateKey,
		}
	},
	ChildID: func(r userJoin) (uuid.UUID, bool) { return r.roleID.UUID, r.roleID.Valid },
	AddChild: func(u *model.User, r userJoin) {
		ur := model.UserRole{
			RoleID:    r.roleID.UUID,
			ApiID:     r.apiID.UUID,
			AccessKey: r.accessKey,
		}
		if r.roleName != nil {
			ur.Role = *r.roleName
		}
		if r.multi != nil {
			ur.Multi = *r.multi
		}
		if r.ipLock != nil {
			ur.IPLock = *r.ipLock
		}
		if r.accessDuration != nil {
			ur.AccessDuration = *r.accessDuration
		}
		if r.refreshDuration != nil {
			ur.RefreshDuration = *r.refreshDuration
		}
		u.Roles = append(u.Roles, ur)
	},
}

const userJoinSelect = `
SELECT u.id, u.name, u.password, u.email, u.phone, u.public_key, u.private_key,
       r.id, r.api_id, r.name, r.multi, r.ip_lock, r.access_duration, r.refresh_duration, r.access_key
FROM "user" u
LEFT JOIN user_role ur ON ur.user_id = u.id
LEFT JOIN role r ON r.id = ur.role_id`

func (repo *UserRepo) selectUsers(ctx context.Context, q string, args ...any) ([]model.User, error) {
	rows, err := repo.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	acc := flatten.New(userSpec)
	for rows.Next() {
		var r userJoin
		if err := rows.Scan(
			&r.id, &r.name, &r.password, &r.email, &r.phone, &r.publicKey, &r.privateKey,
			&r.roleID, &r.apiID, &r.roleName, &r.multi, &r.ipLock,
			&r.accessDuration, &r.refreshDuration, &r.accessKey,
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

// Create inserts a new user row.
func (repo *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO "user" (id, name, password, email, phone, public_key, private_key)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.Pool.Exec(ctx, q,
		u.ID, u.Name, u.Password, u.Email, u.Phone, u.PublicKey, u.PrivateKey)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Read loads a user aggregate with assigned roles and their access secrets.
func (repo *UserRepo) Read(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = userJoinSelect + `
WHERE u.id=$1
ORDER BY u.id, r.id`
	users, err := repo.selectUsers(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, errs.ErrNotFound
	}
	return &users[0], nil
}

// ReadByName loads a user aggregate by unique name.
func (repo *UserRepo) ReadByName(ctx context.Context, name string) (*model.User, error) {
	const q = userJoinSelect + `
WHERE u.name=$1
ORDER BY u.id, r.id`
	users, err := repo.selectUsers(ctx, q, name)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, errs.ErrNotFound
	}
	return &users[0], nil
}

// ListByRole lists users assigned a role, without nested role lists.
func (repo *UserRepo) ListByRole(ctx context.Context, roleID uuid.UUID) ([]model.User, error) {
	const q = `
SELECT u.id, u.name, u.password, u.email, u.phone, u.public_key, u.private_key
FROM "user" u
JOIN user_role ur ON ur.user_id = u.id
WHERE ur.role_id=$1 ORDER BY u.id`
	rows, err := repo.db.Pool.Query(ctx, q, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Password, &u.Email, &u.Phone, &u.PublicKey, &u.PrivateKey); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update applies supplied fields only.
func (repo *UserRepo) Update(ctx context.Context, id uuid.UUID, up repository.UserUpdate) error {
	var a assignments
	if up.Name != nil {
		a.set("name", *up.Name)
	}
	if up.Password != nil {
		a.set("password", *up.Password)
	}
	if up.Email != nil {
		a.set("email", *up.Email)
	}
	if up.Phone != nil {
		a.set("phone", *up.Phone)
	}
	if up.PublicKey != nil {
		a.set("public_key", up.PublicKey)
	}
	if up.PrivateKey != nil {
		a.set("private_key", up.PrivateKey)
	}
	if a.empty() {
		return nil
	}
	q := `UPDATE "user" SET ` + a.setClause() + " WHERE id=" + a.bind(id)
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

// Delete removes a user; assignments and tokens must be removed first.
func (repo *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM "user" WHERE id=$1`
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

// AddRole assigns a role to a user.
func (repo *UserRepo) AddRole(ctx context.Context, userID, roleID uuid.UUID) error {
	const q = `INSERT INTO user_role (user_id, role_id) VALUES ($1, $2)`
	_, err := repo.db.Pool.Exec(ctx, q, userID, roleID)
	switch {
	case isUniqueViolation(err):
		return errs.ErrAlreadyExists
	case isForeignKeyViolation(err):
		return errs.ErrNotFound
	}
	return err
}

// RemoveRole drops an assignment; removing an absent one is not an error.
func (repo *UserRepo) RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error {
	const q = `DELETE FROM user_role WHERE user_id=$1 AND role_id=$2`
	_, err := repo.db.Pool.Exec(ctx, q, userID, roleID)
	return err
}

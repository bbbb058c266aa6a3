package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatewarden/authdb/internal/errs"
	"github.com/gatewarden/authdb/internal/model"
	"github.com/gatewarden/authdb/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// TokenRepo implements TokenRepository using PostgreSQL.
type TokenRepo struct{ db *DB }

// NewTokenRepo constructs a token repository.
func NewTokenRepo(db *DB) *TokenRepo { return &TokenRepo{db: db} }

const tokenColumns = `access_id, user_id, role_id, refresh_token, auth_token, expire, ip`

// Insert stores freshly issued token rows in one transaction.
func (r *TokenRepo) Insert(ctx context.Context, tokens []model.Token) (err error) {
	if len(tokens) == 0 {
		return nil
	}
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const ins = `
INSERT INTO token (access_id, user_id, role_id, refresh_token, auth_token, expire, ip)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range tokens {
		t := &tokens[i]
		if _, err = tx.Exec(ctx, ins, t.AccessID, t.UserID, t.RoleID, t.RefreshToken, t.AuthToken, t.Expire, t.IP); err != nil {
			switch {
			case isUniqueViolation(err):
				err = fmt.Errorf("token[%d]: %w", i, errs.ErrAlreadyExists)
			case isForeignKeyViolation(err):
				// owning user or role does not exist
				err = fmt.Errorf("token[%d]: %w", i, errs.ErrNotFound)
			}
			return err
		}
	}
	return nil
}

// ReadByAccess loads a single token by access id.
func (r *TokenRepo) ReadByAccess(ctx context.Context, accessID int32) (*model.Token, error) {
	const q = `
SELECT ` + tokenColumns + `
FROM token WHERE access_id=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, accessID))
}

// ReadByRefresh loads a single token by its current refresh secret.
func (r *TokenRepo) ReadByRefresh(ctx context.Context, refreshToken string) (*model.Token, error) {
	const q = `
SELECT ` + tokenColumns + `
FROM token WHERE refresh_token=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, refreshToken))
}

func (r *TokenRepo) scanOne(row pgx.Row) (*model.Token, error) {
	var t model.Token
	if err := row.Scan(&t.AccessID, &t.UserID, &t.RoleID, &t.RefreshToken, &t.AuthToken, &t.Expire, &t.IP); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListByAuth lists all tokens sharing a group label.
func (r *TokenRepo) ListByAuth(ctx context.Context, authToken string) ([]model.Token, error) {
	const q = `
SELECT ` + tokenColumns + `
FROM token WHERE auth_token=$1 ORDER BY access_id`
	return r.scanMany(ctx, q, authToken)
}

// ListByUser lists all tokens of a user.
func (r *TokenRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Token, error) {
	const q = `
SELECT ` + tokenColumns + `
FROM token WHERE user_id=$1 ORDER BY access_id`
	return r.scanMany(ctx, q, userID)
}

func (r *TokenRepo) scanMany(ctx context.Context, q string, args ...any) ([]model.Token, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Token
	for rows.Next() {
		var t model.Token
		if err := rows.Scan(&t.AccessID, &t.UserID, &t.RoleID, &t.RefreshToken, &t.AuthToken, &t.Expire, &t.IP); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountActive counts rows of a user under one role with expire > now.
// Expired rows are never swept here; they only stop counting as active.
func (r *TokenRepo) CountActive(ctx context.Context, userID, roleID uuid.UUID, now time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM token WHERE user_id=$1 AND role_id=$2 AND expire > $3`
	var n int
	if err := r.db.Pool.QueryRow(ctx, q, userID, roleID, now).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// selectorClause renders the WHERE predicate of a token selector, binding its
// argument through the shared assignments builder.
func selectorClause(a *assignments, sel repository.TokenSelector) (string, error) {
	switch {
	case sel.AccessID != nil:
		return "access_id=" + a.bind(*sel.AccessID), nil
	case sel.AuthToken != nil:
		return "auth_token=" + a.bind(*sel.AuthToken), nil
	case sel.UserID != nil:
		return "user_id=" + a.bind(*sel.UserID), nil
	}
	return "", errors.New("empty token selector")
}

// Update applies shared field changes to all selected rows.
func (r *TokenRepo) Update(ctx context.Context, sel repository.TokenSelector, up repository.TokenUpdate) (int64, error) {
	var a assignments
	if up.AuthToken != nil {
		a.set("auth_token", *up.AuthToken)
	}
	if up.Expire != nil {
		a.set("expire", *up.Expire)
	}
	if up.IP != nil {
		a.set("ip", up.IP)
	}
	if a.empty() {
		return 0, nil
	}
	where, err := selectorClause(&a, sel)
	if err != nil {
		return 0, err
	}
	q := "UPDATE token SET " + a.setClause() + " WHERE " + where
	tag, err := r.db.Pool.Exec(ctx, q, a.args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Rotate writes a distinct refresh secret to each listed row in one
// transaction. refresh_token is unique store-wide, so a group rotation must
// update row by row; shared field changes come from up.
func (r *TokenRepo) Rotate(ctx context.Context, rotations []repository.TokenRotation, up repository.TokenUpdate) (n int64, err error) {
	if len(rotations) == 0 {
		return 0, nil
	}
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	for _, rot := range rotations {
		var a assignments
		a.set("refresh_token", rot.RefreshToken)
		if up.AuthToken != nil {
			a.set("auth_token", *up.AuthToken)
		}
		if up.Expire != nil {
			a.set("expire", *up.Expire)
		}
		if up.IP != nil {
			a.set("ip", up.IP)
		}
		q := "UPDATE token SET " + a.setClause() + " WHERE access_id=" + a.bind(rot.AccessID)
		tag, execErr := tx.Exec(ctx, q, a.args...)
		if execErr != nil {
			err = execErr
			return 0, err
		}
		n += tag.RowsAffected()
	}
	return n, nil
}

// Delete removes all selected rows; zero rows affected is success.
func (r *TokenRepo) Delete(ctx context.Context, sel repository.TokenSelector) (int64, error) {
	var a assignments
	where, err := selectorClause(&a, sel)
	if err != nil {
		return 0, err
	}
	q := "DELETE FROM token WHERE " + where
	tag, err := r.db.Pool.Exec(ctx, q, a.args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

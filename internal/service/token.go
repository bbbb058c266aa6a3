package service

import (
	"bytes"
	"context"
	"errors"
	"time"

	pkgcrypto "github.com/gatewarden/authdb/internal/crypto"
	"github.com/gatewarden/authdb/internal/errs"
	"github.com/gatewarden/authdb/internal/model"
	"github.com/gatewarden/authdb/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// opaqueLen is the length of generated refresh secrets and group labels.
const opaqueLen = 32

// RotateInput selects a token row or row-group and describes the rotation.
// Exactly one of AccessID/AuthToken must be set. The refresh secret is always
// regenerated; the group label changes only when NewAuthToken is supplied.
// MatchIP, when set, must equal the stored ip of every selected row.
type RotateInput struct {
	AccessID     *int32
	AuthToken    *string
	NewAuthToken *string
	Expire       *time.Time
	IP           []byte
	MatchIP      []byte
}

// TokenService issues, rotates, reads and revokes credential tokens,
// enforcing the multi-session and IP-lock policy of the owning role.
type TokenService interface {
	// CreateAccessToken issues one session. A non-empty authToken adds the
	// session under an existing login's group label; empty generates a
	// fresh label.
	CreateAccessToken(ctx context.Context, userID, roleID uuid.UUID, authToken string, ip []byte) (*model.Token, error)
	// CreateAuthToken issues count sessions sharing one freshly generated
	// group label. count > 1 requires a multi role.
	CreateAuthToken(ctx context.Context, userID, roleID uuid.UUID, count int, ip []byte) ([]model.Token, error)
	// ReadAccessToken loads one token by access id.
	ReadAccessToken(ctx context.Context, accessID int32) (*model.Token, error)
	// ReadRefreshToken loads one token by its current refresh secret.
	ReadRefreshToken(ctx context.Context, refreshToken string) (*model.Token, error)
	// ListAuthToken lists all tokens sharing a group label.
	ListAuthToken(ctx context.Context, authToken string) ([]model.Token, error)
	// ListTokenByUser lists all tokens of a user.
	ListTokenByUser(ctx context.Context, userID uuid.UUID) ([]model.Token, error)
	// Rotate regenerates the refresh secret of every selected row, each
	// with its own fresh value, and returns the rotated rows carrying the
	// new secrets and the (possibly replaced) group label.
	Rotate(ctx context.Context, in RotateInput) ([]model.Token, error)
	// DeleteAccessToken revokes one session; absent is success.
	DeleteAccessToken(ctx context.Context, accessID int32) error
	// DeleteAuthToken revokes every session under a group label.
	DeleteAuthToken(ctx context.Context, authToken string) error
	// DeleteTokenByUser revokes all sessions of a user.
	DeleteTokenByUser(ctx context.Context, userID uuid.UUID) error
	// SignAccessToken mints a short-lived HS256 JWT over the role access key.
	SignAccessToken(ctx context.Context, userID, roleID uuid.UUID) (string, time.Time, error)
	// VerifyAccessToken validates a JWT against a role access key and
	// returns the subject user id.
	VerifyAccessToken(tokenString string, accessKey []byte) (uuid.UUID, error)
}

type TokenServiceImpl struct {
	tokens repository.TokenRepository
	roles  repository.RoleRepository
	ids    repository.AccessIDAllocator
	now    func() time.Time
}

// NewTokenService constructs TokenService with required dependencies.
func NewTokenService(tokens repository.TokenRepository, roles repository.RoleRepository, ids repository.AccessIDAllocator) *TokenServiceImpl {
	return &TokenServiceImpl{tokens: tokens, roles: roles, ids: ids, now: time.Now}
}

func (s *TokenServiceImpl) CreateAccessToken(ctx context.Context, userID, roleID uuid.UUID, authToken string, ip []byte) (*model.Token, error) {
	rows, err := s.issue(ctx, userID, roleID, 1, authToken, ip)
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

func (s *TokenServiceImpl) CreateAuthToken(ctx context.Context, userID, roleID uuid.UUID, count int, ip []byte) ([]model.Token, error) {
	if count <= 0 {
		return nil, errors.New("non-positive session count")
	}
	return s.issue(ctx, userID, roleID, count, "", ip)
}

// issue allocates ids, generates secrets and stores count rows sharing one
// group label.
func (s *TokenServiceImpl) issue(ctx context.Context, userID, roleID uuid.UUID, count int, authToken string, ip []byte) ([]model.Token, error) {
	if userID == uuid.Nil {
		return nil, errors.New("empty user id")
	}
	role, err := s.roles.Read(ctx, roleID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !role.Multi {
		if count > 1 {
			return nil, errs.ErrMultiSession
		}
		active, err := s.tokens.CountActive(ctx, userID, roleID, now)
		if err != nil {
			return nil, err
		}
		if active > 0 {
			return nil, errs.ErrMultiSession
		}
	}
	if authToken == "" {
		if authToken, err = pkgcrypto.RandString(opaqueLen); err != nil {
			return nil, err
		}
	}
	accessIDs, err := s.ids.NextN(ctx, count)
	if err != nil {
		return nil, err
	}
	expire := now.Add(time.Duration(role.RefreshDuration) * time.Second).UTC()

	rows := make([]model.Token, 0, count)
	for _, id := range accessIDs {
		refresh, err := pkgcrypto.RandString(opaqueLen)
		if err != nil {
			return nil, err
		}
		rows = append(rows, model.Token{
			AccessID:     id,
			UserID:       userID,
			RoleID:       roleID,
			RefreshToken: refresh,
			AuthToken:    authToken,
			Expire:       expire,
			IP:           ip,
		})
	}
	if err := s.tokens.Insert(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TokenServiceImpl) ReadAccessToken(ctx context.Context, accessID int32) (*model.Token, error) {
	return s.tokens.ReadByAccess(ctx, accessID)
}

func (s *TokenServiceImpl) ReadRefreshToken(ctx context.Context, refreshToken string) (*model.Token, error) {
	if refreshToken == "" {
		return nil, errors.New("empty refresh token")
	}
	return s.tokens.ReadByRefresh(ctx, refreshToken)
}

func (s *TokenServiceImpl) ListAuthToken(ctx context.Context, authToken string) ([]model.Token, error) {
	if authToken == "" {
		return nil, errors.New("empty auth token")
	}
	return s.tokens.ListByAuth(ctx, authToken)
}

func (s *TokenServiceImpl) ListTokenByUser(ctx context.Context, userID uuid.UUID) ([]model.Token, error) {
	return s.tokens.ListByUser(ctx, userID)
}

func (s *TokenServiceImpl) Rotate(ctx context.Context, in RotateInput) ([]model.Token, error) {
	var existing []model.Token

	switch {
	case in.AccessID != nil && in.AuthToken == nil:
		tok, err := s.tokens.ReadByAccess(ctx, *in.AccessID)
		if err != nil {
			return nil, err
		}
		existing = []model.Token{*tok}
	case in.AuthToken != nil && in.AccessID == nil:
		rows, err := s.tokens.ListByAuth(ctx, *in.AuthToken)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, errs.ErrNotFound
		}
		existing = rows
	default:
		return nil, errors.New("rotate selector must be access id or auth token")
	}

	// IP binding is checked before anything changes.
	if in.MatchIP != nil {
		for i := range existing {
			if !bytes.Equal(existing[i].IP, in.MatchIP) {
				return nil, errs.ErrUnauthorized
			}
		}
	}

	// Every row gets its own secret; refresh_token is unique store-wide,
	// so a group cannot share one.
	rotations := make([]repository.TokenRotation, 0, len(existing))
	rotated := make([]model.Token, 0, len(existing))
	for i := range existing {
		refresh, err := pkgcrypto.RandString(opaqueLen)
		if err != nil {
			return nil, err
		}
		rotations = append(rotations, repository.TokenRotation{
			AccessID:     existing[i].AccessID,
			RefreshToken: refresh,
		})
		row := existing[i]
		row.RefreshToken = refresh
		if in.NewAuthToken != nil {
			row.AuthToken = *in.NewAuthToken
		}
		if in.Expire != nil {
			row.Expire = *in.Expire
		}
		if in.IP != nil {
			row.IP = in.IP
		}
		rotated = append(rotated, row)
	}
	up := repository.TokenUpdate{
		AuthToken: in.NewAuthToken,
		Expire:    in.Expire,
		IP:        in.IP,
	}
	n, err := s.tokens.Rotate(ctx, rotations, up)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errs.ErrNotFound
	}
	return rotated, nil
}

func (s *TokenServiceImpl) DeleteAccessToken(ctx context.Context, accessID int32) error {
	_, err := s.tokens.Delete(ctx, repository.TokenSelector{AccessID: &accessID})
	return err
}

func (s *TokenServiceImpl) DeleteAuthToken(ctx context.Context, authToken string) error {
	if authToken == "" {
		return errors.New("empty auth token")
	}
	_, err := s.tokens.Delete(ctx, repository.TokenSelector{AuthToken: &authToken})
	return err
}

func (s *TokenServiceImpl) DeleteTokenByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.tokens.Delete(ctx, repository.TokenSelector{UserID: &userID})
	return err
}

// SignAccessToken creates a signed HS256 JWT for the given subject, keyed by
// the role access key and bounded by the role access duration.
func (s *TokenServiceImpl) SignAccessToken(ctx context.Context, userID, roleID uuid.UUID) (string, time.Time, error) {
	role, err := s.roles.Read(ctx, roleID)
	if err != nil {
		return "", time.Time{}, err
	}
	now := s.now()
	exp := now.Add(time.Duration(role.AccessDuration) * time.Second)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(role.AccessKey)
	return signed, exp, err
}

// VerifyAccessToken parses and validates a JWT and returns the subject user id.
func (s *TokenServiceImpl) VerifyAccessToken(tokenString string, accessKey []byte) (uuid.UUID, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return accessKey, nil
	})
	if err != nil || !tok.Valid {
		return uuid.Nil, errs.ErrUnauthorized
	}
	claims, ok := tok.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return uuid.Nil, errs.ErrUnauthorized
	}
	userID, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return userID, nil
}

package service

import (
	"context"
	"errors"

	pkgcrypto "github.com/gatewarden/authdb/internal/crypto"
	"github.com/gatewarden/authdb/internal/errs"
	"github.com/gatewarden/authdb/internal/limiter"
	"github.com/gatewarden/authdb/internal/model"
	"github.com/gatewarden/authdb/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// CreateUserInput carries the caller-supplied attributes of a new user.
// Password is plaintext; the service stores only its digest.
type CreateUserInput struct {
	Name     string
	Password string
	Email    string
	Phone    string
}

// UpdateUserInput lists the user fields a partial update may change.
// Password is plaintext and re-hashed before storage.
type UpdateUserInput struct {
	Name     *string
	Password *string
	Email    *string
	Phone    *string
}

// UserService manages users, their role assignments and authentication.
type UserService interface {
	// Create registers a user with a hashed password and a fresh keypair.
	Create(ctx context.Context, in CreateUserInput) (*model.User, error)
	// Read loads the user aggregate with assigned roles and access secrets.
	Read(ctx context.Context, id uuid.UUID) (*model.User, error)
	// ReadByName loads the aggregate by unique name.
	ReadByName(ctx context.Context, name string) (*model.User, error)
	// ListByRole lists users assigned a role.
	ListByRole(ctx context.Context, roleID uuid.UUID) ([]model.User, error)
	// Update applies supplied fields only.
	Update(ctx context.Context, id uuid.UUID, in UpdateUserInput) error
	// Delete removes a user once assignments and tokens are gone.
	Delete(ctx context.Context, id uuid.UUID) error
	// AddRole assigns a role to a user.
	AddRole(ctx context.Context, userID, roleID uuid.UUID) error
	// RemoveRole drops an assignment; dropping an absent one is not an error.
	RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error
	// Authenticate applies rate limiting and verifies the password. On
	// success it returns the aggregate whose role rows carry the access
	// keys and durations needed to mint sessions.
	Authenticate(ctx context.Context, name, password, ip string) (*model.User, error)
}

type UserServiceImpl struct {
	users repository.UserRepository
	lim   limiter.Limiter
}

// NewUserService constructs UserService with required dependencies.
func NewUserService(users repository.UserRepository, lim limiter.Limiter) *UserServiceImpl {
	return &UserServiceImpl{users: users, lim: lim}
}

func (s *UserServiceImpl) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	if in.Name == "" || in.Password == "" {
		return nil, errors.New("empty name/password")
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
	u := &model.User{
		ID:         id,
		Name:       in.Name,
		Password:   digest,
		Email:      in.Email,
		Phone:      in.Phone,
		PublicKey:  pub,
		PrivateKey: priv,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserServiceImpl) Read(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.users.Read(ctx, id)
}

func (s *UserServiceImpl) ReadByName(ctx context.Context, name string) (*model.User, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}
	return s.users.ReadByName(ctx, name)
}

func (s *UserServiceImpl) ListByRole(ctx context.Context, roleID uuid.UUID) ([]model.User, error) {
	return s.users.ListByRole(ctx, roleID)
}

func (s *UserServiceImpl) Update(ctx context.Context, id uuid.UUID, in UpdateUserInput) error {
	up := repository.UserUpdate{
		Name:  in.Name,
		Email: in.Email,
		Phone: in.Phone,
	}
	if in.Password != nil {
		digest, err := pkgcrypto.HashPassword(*in.Password)
		if err != nil {
			return err
		}
		up.Password = &digest
	}
	return s.users.Update(ctx, id, up)
}

func (s *UserServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return s.users.Delete(ctx, id)
}

func (s *UserServiceImpl) AddRole(ctx context.Context, userID, roleID uuid.UUID) error {
	return s.users.AddRole(ctx, userID, roleID)
}

func (s *UserServiceImpl) RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error {
	return s.users.RemoveRole(ctx, userID, roleID)
}

// Authenticate verifies credentials with rate limiting keyed by (name, ip).
func (s *UserServiceImpl) Authenticate(ctx context.Context, name, password, ip string) (*model.User, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, name, ipHash)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errs.ErrRateLimited
	}

	u, err := s.users.ReadByName(ctx, name)
	if err != nil || !pkgcrypto.VerifyPassword(password, u.Password) {
		// Record failure; if the threshold was reached report rate-limited.
		if blocked, _, ferr := s.lim.Failure(ctx, name, ipHash); ferr == nil && blocked {
			return nil, errs.ErrRateLimited
		}
		// hide user existence on wrong password or lookup failure
		return nil, errs.ErrUnauthorized
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, name, ipHash)
	return u, nil
}

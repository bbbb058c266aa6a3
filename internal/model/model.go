// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Api is a registered remote service whose procedures are access-controlled.
// Password holds the argon2id digest of the API password; AccessKey is the
// shared secret used to sign and validate request credentials for this API.
type Api struct {
	ID          uuid.UUID
	Name        string // unique
	Address     string
	Category    string
	Description string
	Password    string // argon2id PHC digest
	PublicKey   []byte
	PrivateKey  []byte
	AccessKey   []byte
	Procedures  []Procedure
}

// Procedure is one invokable operation belonging to an API. Roles lists the
// names of roles granted access, populated only on aggregate reads.
type Procedure struct {
	ID          uuid.UUID
	ApiID       uuid.UUID // FK -> api.id
	Name        string    // unique within ApiID
	Description string
	Roles       []string
}

// Role is a named permission bundle scoped to one API.
type Role struct {
	ID              uuid.UUID
	ApiID           uuid.UUID // FK -> api.id
	Name            string    // unique within ApiID
	Multi           bool      // allow >1 concurrent session per user
	IPLock          bool      // bind token validity to the issuing IP
	AccessDuration  int32     // seconds
	RefreshDuration int32     // seconds
	AccessKey       []byte    // per-role signing secret shared with the owning API
	Procedures      []uuid.UUID
}

// User is an account that can be assigned roles and issued tokens.
type User struct {
	ID         uuid.UUID
	Name       string // unique
	Password   string // argon2id PHC digest
	Email      string
	Phone      string
	PublicKey  []byte
	PrivateKey []byte
	Roles      []UserRole
}

// UserRole is one role assignment of a user, carrying the per-API access
// secrets and session policy a caller needs to mint sessions.
type UserRole struct {
	RoleID          uuid.UUID
	ApiID           uuid.UUID
	Role            string
	Multi           bool
	IPLock          bool
	AccessDuration  int32
	RefreshDuration int32
	AccessKey       []byte
}

// Token is one issued session row. RefreshToken rotates on every refresh use;
// AuthToken is the group label shared by all sessions issued in one login.
type Token struct {
	AccessID     int32
	UserID       uuid.UUID
	RoleID       uuid.UUID
	RefreshToken string
	AuthToken    string
	Expire       time.Time
	IP           []byte
}

// ProfileMode describes how many values a role profile entry expects and
// whether a value is mandatory.
type ProfileMode int16

const (
	SingleOptional ProfileMode = iota
	SingleRequired
	MultipleOptional
	MultipleRequired
)

// RoleProfile declares a profile field required or accepted for users
// holding the role.
type RoleProfile struct {
	ID     int32
	RoleID uuid.UUID
	Name   string
	Type   DataType
	Mode   ProfileMode
}

// UserProfile is one typed profile value of a user. Order distinguishes
// multiple values stored under the same name.
type UserProfile struct {
	ID     int32
	UserID uuid.UUID
	Name   string
	Value  DataValue
	Order  int16
}

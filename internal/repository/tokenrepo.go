package repository

import (
	"context"
	"time"

	"github.com/gatewarden/authdb/internal/model"
	"github.com/gofrs/uuid/v5"
)

// TokenSelector picks token rows by exactly one of its fields.
type TokenSelector struct {
	AccessID  *int32
	AuthToken *string
	UserID    *uuid.UUID
}

// TokenUpdate lists the shared token fields an update may change. Refresh
// secrets are unique store-wide and only move through Insert and Rotate,
// never through a multi-row update.
type TokenUpdate struct {
	AuthToken *string
	Expire    *time.Time
	IP        []byte
}

// TokenRotation assigns a fresh refresh secret to one row of a group.
// Secrets must be distinct per row; refresh_token is unique store-wide.
type TokenRotation struct {
	AccessID     int32
	RefreshToken string
}

// TokenRepository provides lifecycle storage for issued tokens.
// Access ids must be preallocated through AccessIDAllocator.
type TokenRepository interface {
	// Insert stores freshly issued token rows.
	Insert(ctx context.Context, tokens []model.Token) error
	// ReadByAccess loads a single token by access id.
	ReadByAccess(ctx context.Context, accessID int32) (*model.Token, error)
	// ReadByRefresh loads a single token by its current refresh secret.
	ReadByRefresh(ctx context.Context, refreshToken string) (*model.Token, error)
	// ListByAuth lists all tokens sharing a group label.
	ListByAuth(ctx context.Context, authToken string) ([]model.Token, error)
	// ListByUser lists all tokens of a user.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Token, error)
	// CountActive counts rows of a user under one role with expire > now.
	CountActive(ctx context.Context, userID, roleID uuid.UUID, now time.Time) (int, error)
	// Update applies the rotation to all selected rows and reports how many changed.
	Update(ctx context.Context, sel TokenSelector, up TokenUpdate) (int64, error)
	// Rotate writes a distinct refresh secret to each listed row in one
	// transaction; shared field changes come from up. Reports rows changed.
	Rotate(ctx context.Context, rotations []TokenRotation, up TokenUpdate) (int64, error)
	// Delete removes all selected rows; zero rows affected is success.
	Delete(ctx context.Context, sel TokenSelector) (int64, error)
}

// AccessIDAllocator produces fresh, globally unique, strictly increasing
// access ids. Exhaustion of the id space fails with ErrIDExhausted.
type AccessIDAllocator interface {
	// NextN allocates n ids in ascending order.
	NextN(ctx context.Context, n int) ([]int32, error)
}

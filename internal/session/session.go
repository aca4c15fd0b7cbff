// Package session holds the live authorization fact for each signed-in user.
// While an entry exists its role is the one the authorization gate trusts.
package session

import (
	"context"

	"github.com/Skotchmaster/account_service/internal/domain"
)

type Entry struct {
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
	// RefreshID is the jti of the only refresh token accepted when rotation is on.
	RefreshID string `json:"refreshId,omitempty"`
}

type Store interface {
	// Get returns nil, nil when no entry exists.
	Get(ctx context.Context, userID string) (*Entry, error)
	Set(ctx context.Context, e Entry) error
	Delete(ctx context.Context, userID string) error
	// UpdateRole rewrites the role of an existing entry and leaves other fields alone.
	// It reports false without writing when the user has no entry.
	UpdateRole(ctx context.Context, userID string, role domain.Role) (bool, error)
}

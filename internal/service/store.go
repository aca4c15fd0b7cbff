package service

import (
	"context"

	"github.com/Skotchmaster/account_service/internal/models"
)

// UserStore is the credential store. Absent records are reported as repo.ErrNotFound
// and username collisions as repo.ErrDuplicate.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, offset, limit int) (int64, []models.User, error)
}

type Hasher interface {
	HashPassword(password string) (string, error)
	CheckPassword(hash, password string) bool
}

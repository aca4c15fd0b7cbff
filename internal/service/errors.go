package service

import (
	"errors"
	"time"

	"github.com/Skotchmaster/account_service/internal/domain"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid password")
	ErrAccountLocked       = errors.New("account locked")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrSamePassword        = errors.New("the new password can't be the same as the old password")
	ErrWrongPassword       = errors.New("wrong password")
	ErrUsernameExists      = errors.New("user already exists")
	ErrInvalidRole         = errors.New("invalid role")
)

// LockedError is returned while an account is locked. It matches ErrAccountLocked.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return domain.LockedMessage(e.Remaining)
}

func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

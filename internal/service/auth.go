package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/account_service/internal/domain"
	"github.com/Skotchmaster/account_service/internal/models"
	"github.com/Skotchmaster/account_service/internal/mykafka"
	"github.com/Skotchmaster/account_service/internal/repo"
	"github.com/Skotchmaster/account_service/internal/session"
	"github.com/Skotchmaster/account_service/pkg/logging"
	"github.com/Skotchmaster/account_service/pkg/tokens"
)

type AuthService struct {
	Users    UserStore
	Sessions session.Store
	Tokens   *tokens.Issuer
	Hasher   Hasher
	Lockout  domain.LockoutPolicy
	Events   *mykafka.Events
	// Rotation makes refresh tokens single use: only the jti recorded in the
	// session entry is accepted.
	Rotation bool
	Now      func() time.Time
}

type RegisterInput struct {
	Username string
	Password string
	models.Profile
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AuthService) lockout() domain.LockoutPolicy {
	if s.Lockout.MaxAttempts == 0 {
		return domain.DefaultLockoutPolicy()
	}
	return s.Lockout
}

func (s *AuthService) ValidateCredentials(ctx context.Context, username, password string) (domain.Identity, error) {
	username = strings.TrimSpace(username)
	l := logging.FromContext(ctx).With("svc", "auth.validate", "username", username)

	user, err := s.Users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.WarnContext(ctx, "login_failed", "status", 401, "reason", "user not found")
			return domain.Identity{}, ErrUserNotFound
		}
		return domain.Identity{}, fmt.Errorf("find user: %w", err)
	}

	policy := s.lockout()
	now := s.now()
	state := user.LockState()

	if remaining, locked := policy.Locked(state, now); locked {
		l.WarnContext(ctx, "login_failed", "status", 401, "reason", "account locked", "remaining", remaining.String())
		return domain.Identity{}, &LockedError{Remaining: remaining}
	}

	if !s.Hasher.CheckPassword(user.PasswordHash, password) {
		next, locked := policy.OnFailure(state, now)
		patch := models.UserPatch{FailedLoginAttempts: &next.FailedAttempts}
		if locked {
			patch.LockUntil = next.LockUntil
		}
		if _, err := s.Users.Update(ctx, user.ID, patch); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return domain.Identity{}, fmt.Errorf("record failed attempt: %w", err)
		}
		if locked {
			l.WarnContext(ctx, "account_locked", "user_id", user.ID, "attempts", next.FailedAttempts)
			s.Events.Emit(ctx, mykafka.UserEvent{
				Type:      mykafka.AccountLocked,
				UserID:    user.ID,
				Username:  user.Username,
				LockUntil: *next.LockUntil,
			})
		}
		l.WarnContext(ctx, "login_failed", "status", 401, "reason", "invalid password", "attempts", next.FailedAttempts)
		return domain.Identity{}, ErrInvalidCredentials
	}

	if policy.NeedsReset(state) {
		if _, err := s.Users.Update(ctx, user.ID, models.UserPatch{ClearLock: true}); err != nil {
			return domain.Identity{}, fmt.Errorf("reset lockout: %w", err)
		}
	}

	return user.Identity(), nil
}

// Login issues a token pair for an already verified identity and records its session.
func (s *AuthService) Login(ctx context.Context, id domain.Identity) (*tokens.Pair, error) {
	pair, err := s.Tokens.IssuePair(tokens.Subject{UserID: id.UserID, Username: id.Username})
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	entry := session.Entry{UserID: id.UserID, Role: id.Role}
	if s.Rotation {
		entry.RefreshID = pair.RefreshID
	}
	if err := s.Sessions.Set(ctx, entry); err != nil {
		return nil, fmt.Errorf("write session: %w", err)
	}

	logging.FromContext(ctx).InfoContext(ctx, "login_successful", "svc", "auth.login", "user_id", id.UserID,
		"access_exp", pair.AccessExp, "refresh_exp", pair.RefreshExp)
	return pair, nil
}

func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*tokens.Pair, error) {
	id, err := s.ValidateCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.Login(ctx, id)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		l.WarnContext(ctx, "refresh_failed", "status", 401, "reason", "invalid token", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}

	user, err := s.Users.FindByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.WarnContext(ctx, "refresh_failed", "status", 401, "reason", "user not found")
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	// The username was freed and taken by someone else.
	if user.ID != claims.UserID {
		l.WarnContext(ctx, "refresh_failed", "status", 401, "reason", "user id mismatch")
		return nil, ErrUserNotFound
	}

	if s.Rotation {
		entry, err := s.Sessions.Get(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("read session: %w", err)
		}
		if entry == nil || entry.RefreshID != claims.ID {
			l.WarnContext(ctx, "refresh_failed", "status", 401, "reason", "refresh token already used")
			return nil, ErrInvalidRefreshToken
		}
	}

	return s.Login(ctx, user.Identity())
}

func (s *AuthService) RevisePassword(ctx context.Context, caller domain.Identity, oldPassword, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.revise_password", "user_id", caller.UserID)

	if oldPassword == newPassword {
		return ErrSamePassword
	}
	if !domain.ValidPassword(newPassword) {
		return fmt.Errorf("%w: %s", ErrValidation, domain.PasswordRuleMessage)
	}

	user, err := s.Users.FindByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if !s.Hasher.CheckPassword(user.PasswordHash, oldPassword) {
		l.WarnContext(ctx, "revise_password_failed", "status", 401, "reason", "wrong password")
		return ErrWrongPassword
	}

	hash, err := s.Hasher.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.Users.Update(ctx, user.ID, models.UserPatch{PasswordHash: &hash}); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	l.InfoContext(ctx, "revise_password_success")
	return nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register", "username", in.Username)

	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if !domain.ValidPassword(in.Password) {
		return nil, fmt.Errorf("%w: %s", ErrValidation, domain.PasswordRuleMessage)
	}

	if _, err := s.Users.FindByUsername(ctx, in.Username); err == nil {
		l.WarnContext(ctx, "register_error", "status", 409, "reason", "user already exists")
		return nil, ErrUsernameExists
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash, err := s.Hasher.HashPassword(in.Password)
	if err != nil {
		l.ErrorContext(ctx, "register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := newUser(in.Username, hash, domain.RoleUser, in.Profile)
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.WarnContext(ctx, "register_error", "status", 409, "reason", "user already exists")
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.Events.Emit(ctx, mykafka.UserEvent{
		Type:     mykafka.UserRegistered,
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	})
	return s.Login(ctx, user.Identity())
}

func (s *AuthService) DeleteUser(ctx context.Context, caller domain.Identity) error {
	if _, err := s.Users.FindByID(ctx, caller.UserID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	return deleteUser(ctx, s.Users, s.Sessions, s.Events, caller.UserID)
}

func (s *AuthService) Profile(ctx context.Context, caller domain.Identity) (*models.User, error) {
	user, err := s.Users.FindByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}

func newUser(username, hash string, role domain.Role, p models.Profile) *models.User {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Email:        deref(p.Email),
		Name:         deref(p.Name),
		Phone:        deref(p.Phone),
		Address:      deref(p.Address),
		City:         deref(p.City),
		Avatar:       deref(p.Avatar),
		Gender:       deref(p.Gender),
		Description:  deref(p.Description),
	}
}

// deleteUser removes the record and then the session, so a live access token stops working.
func deleteUser(ctx context.Context, users UserStore, sessions session.Store, events *mykafka.Events, id string) error {
	l := logging.FromContext(ctx).With("svc", "users.delete", "user_id", id)

	deleted, err := users.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if err := sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	events.Emit(ctx, mykafka.UserEvent{Type: mykafka.UserDeleted, UserID: id, Username: deleted.Username})
	l.InfoContext(ctx, "delete_user_success")
	return nil
}

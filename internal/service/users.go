package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/account_service/internal/domain"
	"github.com/Skotchmaster/account_service/internal/models"
	"github.com/Skotchmaster/account_service/internal/mykafka"
	"github.com/Skotchmaster/account_service/internal/repo"
	"github.com/Skotchmaster/account_service/internal/session"
	"github.com/Skotchmaster/account_service/pkg/logging"
)

// UsersService is the administrative side of the user store. Role changes are
// pushed into live sessions so they apply to the next request of that user.
type UsersService struct {
	Users    UserStore
	Sessions session.Store
	Hasher   Hasher
	Events   *mykafka.Events
}

type CreateUserInput struct {
	Username string
	Password string
	Role     string
	models.Profile
}

type UpdateUserInput struct {
	Password *string
	Role     *string
	models.Profile
}

func parseRole(s string) (domain.Role, error) {
	r, err := domain.ParseRole(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRole, err)
	}
	return r, nil
}

func (s *UsersService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.create", "username", in.Username)

	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	if !domain.ValidPassword(in.Password) {
		return nil, fmt.Errorf("%w: %s", ErrValidation, domain.PasswordRuleMessage)
	}
	role := domain.RoleUser
	if in.Role != "" {
		r, err := parseRole(in.Role)
		if err != nil {
			return nil, err
		}
		role = r
	}

	hash, err := s.Hasher.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := newUser(in.Username, hash, role, in.Profile)
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.WarnContext(ctx, "create_user_error", "status", 409, "reason", "user already exists")
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.Events.Emit(ctx, mykafka.UserEvent{
		Type:     mykafka.UserCreated,
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	})
	l.InfoContext(ctx, "create_user_success", "user_id", user.ID)
	user.PasswordHash = ""
	return user, nil
}

func (s *UsersService) FindAll(ctx context.Context, offset, limit int) (int64, []models.User, error) {
	total, users, err := s.Users.List(ctx, offset, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("list users: %w", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return total, users, nil
}

func (s *UsersService) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *UsersService) Update(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	patch := models.UserPatch{Profile: in.Profile}
	if in.Password != nil {
		if !domain.ValidPassword(*in.Password) {
			return nil, fmt.Errorf("%w: %s", ErrValidation, domain.PasswordRuleMessage)
		}
		hash, err := s.Hasher.HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		patch.PasswordHash = &hash
	}
	if in.Role != nil {
		r, err := parseRole(*in.Role)
		if err != nil {
			return nil, err
		}
		patch.Role = &r
	}

	user, err := s.Users.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if patch.Role != nil {
		if _, err := s.Sessions.UpdateRole(ctx, id, user.Role); err != nil {
			return nil, fmt.Errorf("update session role: %w", err)
		}
	}

	logging.FromContext(ctx).InfoContext(ctx, "update_user_success", "svc", "users.update", "user_id", id)
	user.PasswordHash = ""
	return user, nil
}

func (s *UsersService) Delete(ctx context.Context, id string) error {
	return deleteUser(ctx, s.Users, s.Sessions, s.Events, id)
}

// AssignRole persists the role and rewrites the live session if the user has one.
// Without a session the change shows up at the user's next login.
func (s *UsersService) AssignRole(ctx context.Context, userID, role string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.assign_role", "user_id", userID)

	r, err := parseRole(role)
	if err != nil {
		return nil, err
	}
	user, err := s.Users.Update(ctx, userID, models.UserPatch{Role: &r})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("assign role: %w", err)
	}

	live, err := s.Sessions.UpdateRole(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("update session role: %w", err)
	}

	s.Events.Emit(ctx, mykafka.UserEvent{
		Type:     mykafka.RoleAssigned,
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(r),
	})
	l.InfoContext(ctx, "assign_role_success", "role", r, "session_updated", live)
	user.PasswordHash = ""
	return user, nil
}

// EnsureSuperAdmin creates the bootstrap account, or promotes it if it exists with another role.
func (s *UsersService) EnsureSuperAdmin(ctx context.Context, username, password string) (*models.User, error) {
	existing, err := s.Users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role == domain.RoleSuperAdmin {
			return existing, nil
		}
		return s.AssignRole(ctx, existing.ID, string(domain.RoleSuperAdmin))
	case errors.Is(err, repo.ErrNotFound):
		return s.Create(ctx, CreateUserInput{Username: username, Password: password, Role: string(domain.RoleSuperAdmin)})
	default:
		return nil, fmt.Errorf("find super admin: %w", err)
	}
}

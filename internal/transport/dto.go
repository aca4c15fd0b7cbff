package transport

import (
	"github.com/Skotchmaster/account_service/internal/models"
	"github.com/Skotchmaster/account_service/pkg/tokens"
)

type CredentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ProfileFields struct {
	Email       *string `json:"email"       validate:"omitempty,email"`
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	Avatar      *string `json:"avatar"`
	Gender      *string `json:"gender"`
	Description *string `json:"description"`
}

func (p ProfileFields) Profile() models.Profile {
	return models.Profile(p)
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,password"`
	ProfileFields
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type RevisePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,password"`
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,password"`
	Role     string `json:"role"     validate:"omitempty,role"`
	ProfileFields
}

type UpdateUserRequest struct {
	Password *string `json:"password" validate:"omitempty,password"`
	Role     *string `json:"role"     validate:"omitempty,role"`
	ProfileFields
}

type AssignRoleRequest struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role"   validate:"required,role"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func NewTokenPair(p *tokens.Pair) TokenPair {
	return TokenPair{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, ExpiresIn: p.ExpiresIn}
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type UsersPage struct {
	Data []models.User `json:"data"`
	Meta PageMeta      `json:"meta"`
}

type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Method     string `json:"method"`
	Message    string `json:"message"`
}

package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/account_service/internal/domain"
	"github.com/Skotchmaster/account_service/internal/middleware"
	"github.com/Skotchmaster/account_service/internal/service"
	"github.com/Skotchmaster/account_service/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

type messageResponse struct {
	Message string `json:"message"`
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body").SetInternal(err)
	}
	return c.Validate(req)
}

func caller(c echo.Context) (domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return id, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return id, nil
}

func (h *AuthHTTP) Register(c echo.Context) error {
	var req transport.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.Svc.Register(c.Request().Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Profile:  req.Profile(),
	})
	if err != nil {
		return statusFor(err, http.StatusUnauthorized)
	}
	return c.JSON(http.StatusCreated, transport.NewTokenPair(pair))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	var req transport.CredentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.Svc.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return statusFor(err, http.StatusUnauthorized)
	}
	return c.JSON(http.StatusOK, transport.NewTokenPair(pair))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	var req transport.RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.Svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return statusFor(err, http.StatusUnauthorized)
	}
	return c.JSON(http.StatusOK, transport.NewTokenPair(pair))
}

func (h *AuthHTTP) Profile(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	u, err := h.Svc.Profile(c.Request().Context(), id)
	if err != nil {
		return statusFor(err, http.StatusUnauthorized)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHTTP) RevisePassword(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req transport.RevisePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.Svc.RevisePassword(c.Request().Context(), id, req.OldPassword, req.NewPassword); err != nil {
		return statusFor(err, http.StatusUnauthorized)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password updated"})
}

func (h *AuthHTTP) DeleteUser(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	if err := h.Svc.DeleteUser(c.Request().Context(), id); err != nil {
		return statusFor(err, http.StatusUnauthorized)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "User deleted"})
}

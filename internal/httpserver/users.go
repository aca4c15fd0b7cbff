package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/account_service/internal/models"
	"github.com/Skotchmaster/account_service/internal/service"
	"github.com/Skotchmaster/account_service/internal/transport"
)

type UsersHTTP struct {
	Svc *service.UsersService
}

func (h *UsersHTTP) Create(c echo.Context) error {
	var req transport.CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	u, err := h.Svc.Create(c.Request().Context(), service.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
		Profile:  req.Profile(),
	})
	if err != nil {
		return statusFor(err, http.StatusNotFound)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *UsersHTTP) List(c echo.Context) error {
	page, size, offset := paginate(
		parseIntDefault(c.QueryParam("page"), 1),
		parseIntDefault(c.QueryParam("size"), defaultPageSize),
	)

	total, users, err := h.Svc.FindAll(c.Request().Context(), offset, size)
	if err != nil {
		return statusFor(err, http.StatusNotFound)
	}
	if users == nil {
		users = []models.User{}
	}

	pages := (total + int64(size) - 1) / int64(size)
	return c.JSON(http.StatusOK, transport.UsersPage{
		Data: users,
		Meta: transport.PageMeta{
			Page:       page,
			Size:       size,
			Total:      total,
			TotalPages: pages,
			HasPrev:    page > 1,
			HasNext:    int64(page) < pages,
		},
	})
}

func (h *UsersHTTP) Get(c echo.Context) error {
	u, err := h.Svc.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return statusFor(err, http.StatusNotFound)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UsersHTTP) AssignRole(c echo.Context) error {
	var req transport.AssignRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	u, err := h.Svc.AssignRole(c.Request().Context(), req.UserID, req.Role)
	if err != nil {
		return statusFor(err, http.StatusNotFound)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UsersHTTP) Update(c echo.Context) error {
	var req transport.UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	u, err := h.Svc.Update(c.Request().Context(), c.Param("id"), service.UpdateUserInput{
		Password: req.Password,
		Role:     req.Role,
		Profile:  req.Profile(),
	})
	if err != nil {
		return statusFor(err, http.StatusNotFound)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UsersHTTP) Delete(c echo.Context) error {
	if err := h.Svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return statusFor(err, http.StatusNotFound)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "User deleted"})
}

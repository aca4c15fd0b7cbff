package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/account_service/internal/service"
	"github.com/Skotchmaster/account_service/internal/transport"
	"github.com/Skotchmaster/account_service/pkg/logging"
)

const internalErrorMessage = "Internal error"

// statusFor maps service errors to HTTP errors. notFound is the status for a missing
// user: 401 in the caller's own account flows, 404 in administration. Unknown errors
// pass through and end up as 500.
func statusFor(err error, notFound int) error {
	var locked *service.LockedError
	switch {
	case errors.As(err, &locked):
		return echo.NewHTTPError(http.StatusUnauthorized, locked.Error()).SetInternal(err)
	case errors.Is(err, service.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
		return echo.NewHTTPError(http.StatusBadRequest, msg).SetInternal(err)
	case errors.Is(err, service.ErrInvalidRole):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid role").SetInternal(err)
	case errors.Is(err, service.ErrUsernameExists):
		return echo.NewHTTPError(http.StatusConflict, "User already exists").SetInternal(err)
	case errors.Is(err, service.ErrUserNotFound):
		return echo.NewHTTPError(notFound, "User not found").SetInternal(err)
	case errors.Is(err, service.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid password").SetInternal(err)
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token").SetInternal(err)
	case errors.Is(err, service.ErrSamePassword):
		return echo.NewHTTPError(http.StatusUnauthorized, "The new password can't be the same as the old password").SetInternal(err)
	case errors.Is(err, service.ErrWrongPassword):
		return echo.NewHTTPError(http.StatusUnauthorized, "Wrong password").SetInternal(err)
	default:
		return err
	}
}

// ErrorHandler renders every failure as
// {"statusCode","timestamp","path","method","message"}. Anything that is not an
// echo.HTTPError below 500 is reported as "Internal error" and logged in full.
func ErrorHandler(base *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ctx := c.Request().Context()
		l := logging.FromContext(ctx)
		if l == slog.Default() && base != nil {
			l = base
		}

		code := http.StatusInternalServerError
		msg := internalErrorMessage
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if code < http.StatusInternalServerError {
				msg = fmt.Sprint(he.Message)
			}
		}
		if code >= http.StatusInternalServerError {
			l.ErrorContext(ctx, "unhandled_error",
				"status", code,
				"path", c.Request().URL.Path,
				"method", c.Request().Method,
				"query", c.QueryString(),
				"remote_ip", c.RealIP(),
				"error", err,
			)
		}

		body := transport.ErrorBody{
			StatusCode: code,
			Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
			Path:       c.Request().URL.Path,
			Method:     c.Request().Method,
			Message:    msg,
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			l.ErrorContext(ctx, "write_error_response_failed", "error", err)
		}
	}
}

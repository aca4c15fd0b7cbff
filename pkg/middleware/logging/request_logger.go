package loggingmw

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/account_service/pkg/logging"
	"github.com/Skotchmaster/account_service/pkg/reqctx"
)

// RequestLogger puts a request-scoped logger into the request context and logs the outcome.
// Errors are rendered here, so outer middleware sees the final status.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if reqctx.ID(ctx) == "" {
				if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
					ctx = reqctx.With(ctx, rid)
				}
			}

			l := base.With(
				"method", c.Request().Method,
				"path", c.Path(),
				"url", c.Request().URL.Path,
				"remote_ip", c.RealIP(),
				"user_agent", c.Request().UserAgent(),
			)
			c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, l)))

			start := time.Now()
			err := next(c)
			dur := time.Since(start)

			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			ctx = c.Request().Context()

			switch {
			case status >= 500:
				l.ErrorContext(ctx, "request completed", "status", status, "duration_ms", dur.Milliseconds(), "error", errStr(err))
			case status >= 400:
				l.WarnContext(ctx, "request completed", "status", status, "duration_ms", dur.Milliseconds())
			default:
				l.InfoContext(ctx, "request completed", "status", status, "duration_ms", dur.Milliseconds(), "bytes", c.Response().Size)
			}
			return nil
		}
	}
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

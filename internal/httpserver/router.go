package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/account_service/internal/middleware"
	loggingmw "github.com/Skotchmaster/account_service/pkg/middleware/logging"
	"github.com/Skotchmaster/account_service/pkg/middleware/metrics"
	"github.com/Skotchmaster/account_service/pkg/reqctx"
)

type Deps struct {
	Auth    *AuthHTTP
	Users   *UsersHTTP
	Gate    *middleware.Gate
	Metrics *metrics.HTTP
	Logger  *slog.Logger

	CORSOrigins []string
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

// New assembles the echo instance: request id, CORS, body limit, metrics,
// request logging and the authorization gate, in that order, then the routes.
func New(d *Deps) *echo.Echo {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			c.SetRequest(c.Request().WithContext(reqctx.With(c.Request().Context(), id)))
		},
	}))
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  origins,
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
		ExposeHeaders: []string{echo.HeaderXRequestID},
	}))
	e.Use(echomw.BodyLimit("1M"))
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware())
	}
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(d.Gate.Middleware())

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "Hello World!") })
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready").SetInternal(err)
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", d.Metrics.Handler())
	}

	auth := e.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.GET("/profile", d.Auth.Profile)
	auth.PUT("/revise-password", d.Auth.RevisePassword)
	auth.DELETE("/delete-user", d.Auth.DeleteUser)

	users := e.Group("/users")
	users.POST("", d.Users.Create)
	users.GET("", d.Users.List)
	users.PUT("/assign-role", d.Users.AssignRole)
	users.GET("/:id", d.Users.Get)
	users.PUT("/:id", d.Users.Update)
	users.DELETE("/:id", d.Users.Delete)
}

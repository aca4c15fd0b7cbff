package middleware

import (
	"errors"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/account_service/internal/domain"
	"github.com/Skotchmaster/account_service/internal/policy"
	"github.com/Skotchmaster/account_service/internal/session"
	"github.com/Skotchmaster/account_service/pkg/logging"
	"github.com/Skotchmaster/account_service/pkg/tokens"
)

const (
	claimsKey   = "claims"
	identityKey = "identity"
)

// Gate authenticates bearer access tokens against the session store and enforces
// the route table. The role always comes from the session entry, never from the token.
// Routes missing from the table need authentication and admit any role.
type Gate struct {
	Tokens   *tokens.Issuer
	Sessions session.Store
	Policy   policy.Table
}

func (g *Gate) rule(c echo.Context) policy.Rule {
	r, ok := g.Policy.Lookup(c.Request().Method, c.Path())
	if !ok {
		return policy.Rule{}
	}
	return r
}

func (g *Gate) Middleware() echo.MiddlewareFunc {
	parse := echojwt.WithConfig(echojwt.Config{
		Skipper:     func(c echo.Context) bool { return g.rule(c).Public },
		ContextKey:  claimsKey,
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(_ echo.Context, auth string) (any, error) {
			return g.Tokens.VerifyAccess(auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			l := logging.FromContext(c.Request().Context())
			l.WarnContext(c.Request().Context(), "auth_failed", "status", 401, "reason", "bad or missing token", "error", err)
			var missing *echojwt.TokenExtractionError
			if errors.As(err, &missing) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing access token")
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired access token")
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return parse(g.authorize(next))
	}
}

func (g *Gate) authorize(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rule := g.rule(c)
		if rule.Public {
			return next(c)
		}

		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("handler", "gate")

		claims, ok := c.Get(claimsKey).(*tokens.Claims)
		if !ok || claims == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}

		entry, err := g.Sessions.Get(ctx, claims.UserID)
		if err != nil {
			return err
		}
		if entry == nil {
			l.WarnContext(ctx, "auth_failed", "status", 401, "reason", "no session", "user_id", claims.UserID)
			return echo.NewHTTPError(http.StatusUnauthorized, "Session expired or revoked")
		}

		id := domain.Identity{UserID: claims.UserID, Username: claims.Username, Role: entry.Role}
		if !rule.Allows(id.Role) {
			l.WarnContext(ctx, "access_denied", "status", 403, "user_id", id.UserID, "role", id.Role)
			return echo.NewHTTPError(http.StatusForbidden, "Forbidden resource")
		}

		c.Set(identityKey, id)
		ctx = logging.IntoContext(ctx, logging.FromContext(ctx).With("user_id", id.UserID))
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// IdentityFrom returns the caller resolved by the gate.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(identityKey).(domain.Identity)
	return id, ok
}

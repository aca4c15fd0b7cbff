package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/account_service/internal/domain"
	"github.com/Skotchmaster/account_service/internal/policy"
	"github.com/Skotchmaster/account_service/internal/session"
	"github.com/Skotchmaster/account_service/pkg/tokens"
)

type gateFixture struct {
	e        *echo.Echo
	issuer   *tokens.Issuer
	sessions *session.MemoryStore
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	issuer := &tokens.Issuer{AccessSecret: []byte("access"), RefreshSecret: []byte("refresh")}
	sessions := session.NewMemoryStore(0)

	tbl := policy.Default()
	tbl[policy.Key(http.MethodGet, "/admin-only")] = policy.Rule{Roles: []domain.Role{domain.RoleAdmin}}

	e := echo.New()
	gate := &Gate{Tokens: issuer, Sessions: sessions, Policy: tbl}
	e.Use(gate.Middleware())

	whoami := func(c echo.Context) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return c.NoContent(http.StatusNoContent)
		}
		return c.JSON(http.StatusOK, id)
	}
	e.POST("/auth/login", whoami)
	e.GET("/auth/profile", whoami)
	e.GET("/users", whoami)
	e.GET("/admin-only", whoami)
	e.GET("/unlisted", whoami)

	return &gateFixture{e: e, issuer: issuer, sessions: sessions}
}

func (f *gateFixture) do(method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *gateFixture) login(t *testing.T, userID string, role domain.Role) *tokens.Pair {
	t.Helper()
	pair, err := f.issuer.IssuePair(tokens.Subject{UserID: userID, Username: "user-" + userID})
	require.NoError(t, err)
	require.NoError(t, f.sessions.Set(context.Background(), session.Entry{UserID: userID, Role: role}))
	return pair
}

func TestGate_PublicRouteSkipsAuthentication(t *testing.T) {
	t.Parallel()

	f := newGateFixture(t)
	rec := f.do(http.MethodPost, "/auth/login", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodPost, "/auth/login", "garbage")
	assert.Equal(t, http.StatusNoContent, rec.Code, "public routes ignore bad tokens")
}

func TestGate_Authentication(t *testing.T) {
	t.Parallel()

	f := newGateFixture(t)
	pair := f.login(t, "u1", domain.RoleUser)

	tests := []struct {
		name   string
		bearer string
		want   int
	}{
		{name: "missing token", bearer: "", want: http.StatusUnauthorized},
		{name: "garbage token", bearer: "not-a-jwt", want: http.StatusUnauthorized},
		{name: "refresh token as bearer", bearer: pair.RefreshToken, want: http.StatusUnauthorized},
		{name: "valid access token", bearer: pair.AccessToken, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodGet, "/auth/profile", tt.bearer)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	rec := f.do(http.MethodGet, "/unlisted", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "routes missing from the table still need a token")
	rec = f.do(http.MethodGet, "/unlisted", pair.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGate_RevokedSession(t *testing.T) {
	t.Parallel()

	f := newGateFixture(t)
	pair := f.login(t, "u1", domain.RoleAdmin)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/auth/profile", pair.AccessToken).Code)

	require.NoError(t, f.sessions.Delete(context.Background(), "u1"))
	rec := f.do(http.MethodGet, "/auth/profile", pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGate_RoleFromSessionNotToken(t *testing.T) {
	t.Parallel()

	f := newGateFixture(t)
	pair := f.login(t, "u1", domain.RoleUser)

	rec := f.do(http.MethodGet, "/users", pair.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	updated, err := f.sessions.UpdateRole(context.Background(), "u1", domain.RoleAdmin)
	require.NoError(t, err)
	require.True(t, updated)

	rec = f.do(http.MethodGet, "/users", pair.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"Admin"`)
	assert.Contains(t, rec.Body.String(), `"userId":"u1"`)
}

func TestGate_NoRoleHierarchy(t *testing.T) {
	t.Parallel()

	f := newGateFixture(t)
	admin := f.login(t, "a1", domain.RoleAdmin)
	root := f.login(t, "s1", domain.RoleSuperAdmin)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/admin-only", admin.AccessToken).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/admin-only", root.AccessToken).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/users", root.AccessToken).Code)
}

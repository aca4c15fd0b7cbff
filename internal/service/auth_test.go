package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/account_service/internal/domain"
	"github.com/Skotchmaster/account_service/internal/session"
	"github.com/Skotchmaster/account_service/pkg/tokens"
)

func TestAuthService_RegisterThenLogin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		username string
		password string
	}{
		{username: "alice", password: "Abcdef12"},
		{username: "bob", password: "zZ9zzzzz"},
		{username: "carol", password: "A1b2C3d4E5f6G7h8I9j0"},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			ctx := context.Background()

			reg := f.register(t, tt.username, tt.password)
			assert.Equal(t, 900, reg.ExpiresIn)

			pair, err := f.auth.Authenticate(ctx, tt.username, tt.password)
			require.NoError(t, err)
			assert.Equal(t, 900, pair.ExpiresIn)
			assert.NotEmpty(t, pair.AccessToken)
			assert.NotEmpty(t, pair.RefreshToken)

			id := f.identity(t, pair)
			assert.Equal(t, tt.username, id.Username)
			assert.Equal(t, domain.RoleUser, id.Role)
		})
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "alice", "Abcdef12")

	_, err := f.auth.Register(context.Background(), RegisterInput{Username: "alice", Password: "Zyxwvu98"})
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "empty username", username: " ", password: "Abcdef12"},
		{name: "empty password", username: "user", password: ""},
		{name: "no digit", username: "user", password: "Abcdefgh"},
		{name: "symbol", username: "user", password: "Abcdef12!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Register(ctx, RegisterInput{Username: tt.username, Password: tt.password})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthService_ValidateCredentials_UnknownUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.auth.ValidateCredentials(context.Background(), "ghost", "Abcdef12")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_UsernameIsTrimmedOnLogin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "  alice ", "Abcdef12")

	for _, name := range []string{"alice", "  alice ", "alice\t"} {
		id, err := f.auth.ValidateCredentials(ctx, name, "Abcdef12")
		require.NoError(t, err, "%q", name)
		assert.Equal(t, "alice", id.Username)
	}
}

func TestAuthService_Lockout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "Abcdef12")

	for i := 1; i <= 2; i++ {
		_, err := f.auth.ValidateCredentials(ctx, "alice", "Wrong1234")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		u, err := f.store.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, i, u.FailedLoginAttempts)
		assert.Nil(t, u.LockUntil, "no lock before the third failure")
	}

	_, err := f.auth.ValidateCredentials(ctx, "alice", "Wrong1234")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	u, err := f.store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u.LockUntil, "third failure locks")

	_, err = f.auth.ValidateCredentials(ctx, "alice", "Abcdef12")
	require.ErrorIs(t, err, ErrAccountLocked)
	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, "The account is locked. Please try again in 5 minutes.", err.Error())

	f.clock.Advance(4*time.Minute + 30*time.Second)
	_, err = f.auth.ValidateCredentials(ctx, "alice", "Abcdef12")
	require.ErrorIs(t, err, ErrAccountLocked)
	assert.Equal(t, "The account is locked. Please try again in 30 seconds.", err.Error())

	f.clock.Advance(31 * time.Second)
	id, err := f.auth.ValidateCredentials(ctx, "alice", "Abcdef12")
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)

	u, err = f.store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, u.FailedLoginAttempts)
	assert.Nil(t, u.LockUntil)
}

func TestAuthService_SuccessResetsFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	pair := f.register(t, "alice", "Abcdef12")

	_, err := f.auth.ValidateCredentials(ctx, "alice", "Wrong1234")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.ValidateCredentials(ctx, "alice", "Wrong1234")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Authenticate(ctx, "alice", "Abcdef12")
	require.NoError(t, err)

	profile, err := f.auth.Profile(ctx, f.identity(t, pair))
	require.NoError(t, err)
	assert.Equal(t, 0, profile.FailedLoginAttempts)
	assert.Nil(t, profile.LockUntil)
	assert.Empty(t, profile.PasswordHash)
}

func TestAuthService_ExpiredLockRelocksOnNextFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "Abcdef12")

	for range 3 {
		_, _ = f.auth.ValidateCredentials(ctx, "alice", "Wrong1234")
	}
	f.clock.Advance(6 * time.Minute)

	_, err := f.auth.ValidateCredentials(ctx, "alice", "Wrong1234")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.ValidateCredentials(ctx, "alice", "Abcdef12")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestAuthService_RevisePassword(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	pair := f.register(t, "alice", "Abcdef12")
	id := f.identity(t, pair)

	err := f.auth.RevisePassword(ctx, id, "Abcdef12", "Abcdef12")
	assert.ErrorIs(t, err, ErrSamePassword)

	err = f.auth.RevisePassword(ctx, id, "Wrong1234", "Newpass12")
	assert.ErrorIs(t, err, ErrWrongPassword)

	err = f.auth.RevisePassword(ctx, id, "Abcdef12", "short")
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, f.auth.RevisePassword(ctx, id, "Abcdef12", "Newpass12"))

	_, err = f.auth.ValidateCredentials(ctx, "alice", "Abcdef12")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.ValidateCredentials(ctx, "alice", "Newpass12")
	assert.NoError(t, err)

	_, err = f.auth.Tokens.VerifyAccess(pair.AccessToken)
	assert.NoError(t, err, "existing tokens stay valid")
}

func TestAuthService_RevisePassword_SameWithoutAccount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ghost := domain.Identity{UserID: uuid.NewString(), Username: "ghost", Role: domain.RoleUser}

	err := f.auth.RevisePassword(context.Background(), ghost, "Abcdef12", "Abcdef12")
	assert.ErrorIs(t, err, ErrSamePassword)

	err = f.auth.RevisePassword(context.Background(), ghost, "Abcdef12", "Newpass12")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_Refresh(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	pair := f.register(t, "alice", "Abcdef12")

	next, err := f.auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 900, next.ExpiresIn)

	again, err := f.auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err, "without rotation a refresh token is reusable until expiry")
	assert.NotEmpty(t, again.AccessToken)
}

func TestAuthService_Refresh_UsesCurrentRole(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	pair := f.register(t, "alice", "Abcdef12")
	id := f.identity(t, pair)

	require.NoError(t, f.sessions.Delete(ctx, id.UserID))
	_, err := f.users.AssignRole(ctx, id.UserID, "Admin")
	require.NoError(t, err)

	entry, err := f.sessions.Get(ctx, id.UserID)
	require.NoError(t, err)
	assert.Nil(t, entry)

	next, err := f.auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, f.identity(t, next).Role)
}

func TestAuthService_Refresh_InvalidTokens(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	pair := f.register(t, "alice", "Abcdef12")
	claims, err := f.auth.Tokens.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	sub := tokens.Subject{UserID: claims.UserID, Username: claims.Username}

	expiredIssuer := *f.auth.Tokens
	expiredIssuer.Now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	expired, err := expiredIssuer.IssuePair(sub)
	require.NoError(t, err)

	forgedIssuer := tokens.Issuer{AccessSecret: []byte("x"), RefreshSecret: []byte("y")}
	forged, err := forgedIssuer.IssuePair(sub)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-valid-jwt"},
		{name: "expired", token: expired.RefreshToken},
		{name: "wrong secret", token: forged.RefreshToken},
		{name: "tampered", token: tamper(pair.RefreshToken)},
		{name: "access token", token: pair.AccessToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.auth.Refresh(ctx, tt.token)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidRefreshToken)
		})
	}

	_, err = f.auth.Refresh(ctx, expired.RefreshToken)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

// tamper flips the first signature character, which always carries signature bits.
func tamper(token string) string {
	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}

func TestAuthService_Refresh_DeletedUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	pair := f.register(t, "alice", "Abcdef12")

	require.NoError(t, f.auth.DeleteUser(ctx, f.identity(t, pair)))

	_, err := f.auth.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUserNotFound)

	f.register(t, "alice", "Abcdef12")
	_, err = f.auth.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUserNotFound, "a reused username does not inherit old tokens")
}

func TestAuthService_Refresh_Rotation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.auth.Rotation = true
	ctx := context.Background()
	pair := f.register(t, "alice", "Abcdef12")

	next, err := f.auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	_, err = f.auth.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "a consumed refresh token is rejected")

	_, err = f.auth.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)

	claims, err := f.auth.Tokens.VerifyAccess(next.AccessToken)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Delete(ctx, claims.UserID))
	_, err = f.auth.Refresh(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "no session means no refresh under rotation")
}

func TestAuthService_DeleteUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	pair := f.register(t, "alice", "Abcdef12")
	id := f.identity(t, pair)

	require.NoError(t, f.auth.DeleteUser(ctx, id))

	entry, err := f.sessions.Get(ctx, id.UserID)
	require.NoError(t, err)
	assert.Nil(t, entry)

	_, err = f.auth.Profile(ctx, id)
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, f.auth.DeleteUser(ctx, id), ErrUserNotFound)
}

func TestAuthService_Login_WritesSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := domain.Identity{UserID: uuid.NewString(), Username: "bob", Role: domain.RoleAdmin}

	pair, err := f.auth.Login(ctx, id)
	require.NoError(t, err)

	entry, err := f.sessions.Get(ctx, id.UserID)
	require.NoError(t, err)
	assert.Equal(t, session.Entry{UserID: id.UserID, Role: domain.RoleAdmin}, *entry)

	claims, err := f.auth.Tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id.UserID, claims.UserID)
	assert.Equal(t, "bob", claims.Username)
}

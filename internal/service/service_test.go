package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/account_service/internal/domain"
	"github.com/Skotchmaster/account_service/internal/hash"
	"github.com/Skotchmaster/account_service/internal/repo"
	"github.com/Skotchmaster/account_service/internal/session"
	"github.com/Skotchmaster/account_service/pkg/db"
	"github.com/Skotchmaster/account_service/pkg/tokens"
)

type fixture struct {
	auth     *AuthService
	users    *UsersService
	store    *repo.GormRepo
	sessions *session.MemoryStore
	clock    *clock
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gdb, err := db.Open(context.Background(), "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	store := &repo.GormRepo{DB: gdb}
	require.NoError(t, store.Migrate(context.Background()))

	sessions := session.NewMemoryStore(0)
	hasher := hash.Bcrypt{Cost: bcrypt.MinCost}
	clk := &clock{t: time.Now().UTC()}

	return &fixture{
		auth: &AuthService{
			Users:    store,
			Sessions: sessions,
			Tokens: &tokens.Issuer{
				AccessSecret:  []byte("test-jwt-secret"),
				RefreshSecret: []byte("test-refresh-secret"),
			},
			Hasher:  hasher,
			Lockout: domain.DefaultLockoutPolicy(),
			Now:     clk.Now,
		},
		users: &UsersService{
			Users:    store,
			Sessions: sessions,
			Hasher:   hasher,
		},
		store:    store,
		sessions: sessions,
		clock:    clk,
	}
}

func (f *fixture) register(t *testing.T, username, password string) *tokens.Pair {
	t.Helper()
	pair, err := f.auth.Register(context.Background(), RegisterInput{Username: username, Password: password})
	require.NoError(t, err)
	return pair
}

func (f *fixture) identity(t *testing.T, pair *tokens.Pair) domain.Identity {
	t.Helper()
	claims, err := f.auth.Tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	entry, err := f.sessions.Get(context.Background(), claims.UserID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	return domain.Identity{UserID: claims.UserID, Username: claims.Username, Role: entry.Role}
}

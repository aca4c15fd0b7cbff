package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

type Subject struct {
	UserID   string
	Username string
}

type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	AccessExp    time.Time
	RefreshExp   time.Time
	RefreshID    string
}

// Issuer signs and verifies HS256 access and refresh tokens with separate secrets.
type Issuer struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Now           func() time.Time
}

func (i *Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now().UTC()
	}
	return time.Now().UTC()
}

func (i *Issuer) accessTTL() time.Duration {
	if i.AccessTTL > 0 {
		return i.AccessTTL
	}
	return DefaultAccessTTL
}

func (i *Issuer) refreshTTL() time.Duration {
	if i.RefreshTTL > 0 {
		return i.RefreshTTL
	}
	return DefaultRefreshTTL
}

// ExpiresIn is the access token lifetime in seconds reported to clients.
func (i *Issuer) ExpiresIn() int {
	return int(i.accessTTL().Seconds())
}

func (i *Issuer) secret(kind Kind) []byte {
	if kind == Refresh {
		return i.RefreshSecret
	}
	return i.AccessSecret
}

func (i *Issuer) Sign(kind Kind, sub Subject, ttl time.Duration) (string, *Claims, error) {
	now := i.now()
	claims := &Claims{
		UserID:   sub.UserID,
		Username: sub.Username,
		Type:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sub.UserID,
			Issuer:    i.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret(kind))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (i *Issuer) IssuePair(sub Subject) (*Pair, error) {
	accessToken, accessClaims, err := i.Sign(Access, sub, i.accessTTL())
	if err != nil {
		return nil, err
	}
	refreshToken, refreshClaims, err := i.Sign(Refresh, sub, i.refreshTTL())
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    i.ExpiresIn(),
		AccessExp:    accessClaims.ExpiresAt.Time,
		RefreshExp:   refreshClaims.ExpiresAt.Time,
		RefreshID:    refreshClaims.ID,
	}, nil
}

func (i *Issuer) VerifyAccess(token string) (*Claims, error) {
	return ClaimsFromToken(token, i.AccessSecret, Access)
}

func (i *Issuer) VerifyRefresh(token string) (*Claims, error) {
	return ClaimsFromToken(token, i.RefreshSecret, Refresh)
}

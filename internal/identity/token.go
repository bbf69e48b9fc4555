// Package identity adapts bearer tokens minted by the identity collaborator
// into request actors.
package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"cityconnect/pkg/domain"
	dErrors "cityconnect/pkg/domain-errors"
)

// Claims are the access-token claims carrying the actor tuple.
type Claims struct {
	Role        string `json:"role"`
	Department  string `json:"department,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
	jwt.RegisteredClaims
}

// JTI returns the token id used for revocation.
func (c *Claims) JTI() string {
	return c.ID
}

// TTL returns how long the token remains valid after now, or zero if it has no expiry.
func (c *Claims) TTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if ttl := c.ExpiresAt.Sub(now); ttl > 0 {
		return ttl
	}
	return 0
}

// Verifier validates HS256 access tokens against a shared key, issuer and audience.
type Verifier struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewVerifier(signingKey, issuer, audience string) *Verifier {
	return &Verifier{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// Verify parses and validates a token.
//
// Errors: CodeUnauthorized for any malformed, expired or foreign token.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	},
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Issuer mints access tokens. It stands in for the identity collaborator in
// development tooling and tests.
type Issuer struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
	now        func() time.Time
}

type IssuerOption func(*Issuer)

// WithIssuerClock overrides the issue time. Intended for tests.
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

func NewIssuer(signingKey, issuer, audience string, ttl time.Duration, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue signs a token for actor.
func (i *Issuer) Issue(actor domain.Actor) (string, *Claims, error) {
	now := i.now()
	claims := &Claims{
		Role:        string(actor.Role),
		Department:  actor.Department,
		Affiliation: actor.Affiliation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.SubjectID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingKey)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

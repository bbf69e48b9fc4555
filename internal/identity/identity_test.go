package identity

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityconnect/internal/identity/revocation"
	"cityconnect/pkg/domain"
	dErrors "cityconnect/pkg/domain-errors"
	"cityconnect/pkg/requestcontext"
	"cityconnect/pkg/testutil"
)

const (
	testKey      = "test-signing-key-with-enough-entropy"
	testIssuer   = "https://identity.cityconnect.test"
	testAudience = "cityconnect-api"
)

func mustActor(t *testing.T, role domain.Role, dept, subject string) domain.Actor {
	t.Helper()
	a, err := domain.NewActor(role, dept, subject)
	require.NoError(t, err)
	return a
}

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer(testKey, testIssuer, testAudience, time.Hour)
	verifier := NewVerifier(testKey, testIssuer, testAudience)

	t.Run("roundtrip preserves the actor tuple", func(t *testing.T) {
		actor := mustActor(t, domain.RoleCitizen, "", "citizen-1").WithAffiliation("water")
		token, issued, err := issuer.Issue(actor)
		require.NoError(t, err)
		assert.NotEmpty(t, issued.JTI())

		claims, err := verifier.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, issued.JTI(), claims.JTI())

		got, err := ActorFromClaims(claims)
		require.NoError(t, err)
		assert.Equal(t, actor, got)
	})

	t.Run("expired token", func(t *testing.T) {
		past := NewIssuer(testKey, testIssuer, testAudience, time.Minute,
			WithIssuerClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
		token, _, err := past.Issue(mustActor(t, domain.RoleAdmin, "", "admin-1"))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Equal(t, "token has expired", dErrors.Message(err))
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := NewIssuer(testKey, testIssuer, "another-api", time.Hour)
		token, _, err := other.Issue(mustActor(t, domain.RoleAdmin, "", "admin-1"))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong key", func(t *testing.T) {
		other := NewIssuer("a-different-signing-key", testIssuer, testAudience, time.Hour)
		token, _, err := other.Issue(mustActor(t, domain.RoleAdmin, "", "admin-1"))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.Verify("not-a-jwt")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestClaimsTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute))}}

	assert.Equal(t, 10*time.Minute, c.TTL(now))
	assert.Equal(t, time.Duration(0), c.TTL(now.Add(time.Hour)))
	assert.Equal(t, time.Duration(0), (&Claims{}).TTL(now))
}

func TestActorFromClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims *Claims
	}{
		{name: "nil claims", claims: nil},
		{name: "unknown role", claims: &Claims{Role: "mayor", RegisteredClaims: jwt.RegisteredClaims{Subject: "s"}}},
		{name: "department without department", claims: &Claims{Role: "department", RegisteredClaims: jwt.RegisteredClaims{Subject: "s"}}},
		{name: "citizen with department", claims: &Claims{Role: "citizen", Department: "water", RegisteredClaims: jwt.RegisteredClaims{Subject: "s"}}},
		{name: "missing subject", claims: &Claims{Role: "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ActorFromClaims(tt.claims)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		})
	}

	t.Run("affiliation is dropped for non-citizens", func(t *testing.T) {
		a, err := ActorFromClaims(&Claims{Role: "department", Department: "roads", Affiliation: "water",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "official-1"}})
		require.NoError(t, err)
		assert.Equal(t, "roads", a.Department)
		assert.Empty(t, a.Affiliation)
	})
}

type failingChecker struct{}

func (failingChecker) IsRevoked(context.Context, string) (bool, error) {
	return false, assert.AnError
}

func TestRequireActor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := NewIssuer(testKey, testIssuer, testAudience, time.Hour)
	verifier := NewVerifier(testKey, testIssuer, testAudience)
	trl := revocation.NewInMemoryTRL()

	var seen domain.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Actor(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequireActor(verifier, trl, logger)(next)

	official := mustActor(t, domain.RoleDepartment, "roads", "official-1")
	token, claims, err := issuer.Issue(official)
	require.NoError(t, err)

	request := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/complaints", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		return testutil.DoRequest(handler, req)
	}

	t.Run("valid token injects actor", func(t *testing.T) {
		seen = domain.Actor{}
		rr := request("Bearer " + token)
		testutil.AssertStatus(t, rr, http.StatusNoContent)
		assert.Equal(t, official, seen)
	})

	t.Run("missing header", func(t *testing.T) {
		rr := request("")
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("wrong scheme", func(t *testing.T) {
		rr := request("Basic " + token)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("invalid token", func(t *testing.T) {
		rr := request("Bearer nope")
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("revoked token", func(t *testing.T) {
		revoked, revokedClaims, err := issuer.Issue(official)
		require.NoError(t, err)
		require.NoError(t, trl.Revoke(context.Background(), revokedClaims.JTI(), time.Hour))

		rr := request("Bearer " + revoked)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

		rr = request("Bearer " + token)
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})

	t.Run("revocation check failure is internal", func(t *testing.T) {
		h := RequireActor(verifier, failingChecker{}, logger)(next)
		req := httptest.NewRequest(http.MethodGet, "/complaints", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(h, req)
		testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
	})

	t.Run("nil checker skips revocation", func(t *testing.T) {
		require.NoError(t, trl.Revoke(context.Background(), claims.JTI(), time.Hour))
		h := RequireActor(verifier, nil, logger)(next)
		req := httptest.NewRequest(http.MethodGet, "/complaints", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(h, req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})
}

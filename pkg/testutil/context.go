package testutil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"cityconnect/pkg/domain"
	"cityconnect/pkg/requestcontext"
)

// MustActor builds a validated actor, failing the test on an invalid tuple.
func MustActor(t *testing.T, role domain.Role, department, subjectID string) domain.Actor {
	t.Helper()
	actor, err := domain.NewActor(role, department, subjectID)
	require.NoError(t, err, "invalid test actor")
	return actor
}

// WithActor attaches actor to the request as the auth middleware would.
func WithActor(req *http.Request, actor domain.Actor) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

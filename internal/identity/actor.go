package identity

import (
	"cityconnect/pkg/domain"
	dErrors "cityconnect/pkg/domain-errors"
)

// ActorFromClaims converts verified claims into a request actor.
//
// Errors: CodeUnauthorized when the claims do not form a valid actor tuple.
func ActorFromClaims(c *Claims) (domain.Actor, error) {
	if c == nil {
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "missing token claims")
	}
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return domain.Actor{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token role is not recognised")
	}
	actor, err := domain.NewActor(role, c.Department, c.Subject)
	if err != nil {
		return domain.Actor{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token does not identify a valid actor")
	}
	return actor.WithAffiliation(c.Affiliation), nil
}

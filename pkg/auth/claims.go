package auth

import "github.com/golang-jwt/jwt/v5"

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	ActorID string
	Name    string
	JTI     string
}

// AccessTokenClaims represents the typed JWT presented by stockroom clients.
// Token issuance lives with the identity provider; the service only needs
// enough to attribute every ledger mutation to an actor.
type AccessTokenClaims struct {
	ActorID string `json:"actor_id"`
	Name    string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

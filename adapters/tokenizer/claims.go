package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AudienceAccess is the audience of every session token.
const AudienceAccess = "session:access"

// AccessClaims are the standard claims of a session token. The subject is the
// digital id and the JWT ID is the session id.
type AccessClaims struct {
	jwt.RegisteredClaims
}

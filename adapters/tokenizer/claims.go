package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the registered claims of the inner signed envelope. The
// subject carries the identity ID; nothing else is embedded.
type SessionClaims struct {
	jwt.RegisteredClaims
}

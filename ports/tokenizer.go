package ports

import "github.com/forumhub/gatekeeper/core"

// Tokenizer converts between session claims and opaque token strings.
type Tokenizer interface {
	// Issue serializes the claim into an integrity-protected, encrypted
	// token string.
	Issue(claim *core.SessionClaim) (string, error)

	// Verify decodes a token and returns the embedded claim. Failures are
	// one of the core token sentinel errors.
	Verify(token string) (*core.SessionClaim, error)
}

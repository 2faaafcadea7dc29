package ports

import (
	"context"

	"github.com/forumhub/gatekeeper/core"
)

// CredentialStore persists identity records.
type CredentialStore interface {
	// Create persists a new identity. A duplicate username or email yields a
	// KindConflict error that does not reveal which field collided.
	Create(ctx context.Context, identity *core.Identity) (*core.Identity, error)

	// GetByEmail retrieves an identity by email. Missing identities yield a
	// KindNotFound error.
	GetByEmail(ctx context.Context, email string) (*core.Identity, error)

	// GetByID retrieves an identity by ID. Missing identities yield a
	// KindNotFound error.
	GetByID(ctx context.Context, id string) (*core.Identity, error)

	// UpdatePasswordHash applies update to the stored hash inside a
	// transaction holding a row lock, so concurrent changes for the same
	// identity serialize and the loser observes the winner's committed hash.
	// update receives the committed hash and returns its replacement;
	// returning an error aborts the transaction and is passed through.
	UpdatePasswordHash(ctx context.Context, id string, update func(currentHash string) (string, error)) error
}

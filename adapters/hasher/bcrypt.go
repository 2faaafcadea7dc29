package hasher

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/forumhub/gatekeeper/ports"
)

// Cost is the fixed bcrypt work factor for all stored hashes.
const Cost = 10

// dummyHash is a valid bcrypt hash of random bytes drawn at startup. It
// matches no password a client could present; verifying against it burns the
// same work as a real verification.
var dummyHash []byte

func init() {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		panic(fmt.Sprintf("hasher: failed to seed dummy hash: %v", err))
	}
	h, err := bcrypt.GenerateFromPassword(seed, Cost)
	if err != nil {
		panic(fmt.Sprintf("hasher: failed to generate dummy hash: %v", err))
	}
	dummyHash = h
}

// BcryptHasher implements ports.PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher with the fixed work factor.
func NewBcryptHasher() ports.PasswordHasher {
	return &BcryptHasher{cost: Cost}
}

// Hash produces a salted bcrypt hash of the plaintext.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether the plaintext matches the hash.
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// DummyVerify runs a full verification against the placeholder hash so a
// caller's failure path costs the same whether or not an identity matched.
func (h *BcryptHasher) DummyVerify(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plaintext))
}

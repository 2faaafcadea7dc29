package ports

// PasswordHasher provides one-way salted hashing of passwords.
type PasswordHasher interface {
	// Hash produces a salted hash of the plaintext. Two calls with the same
	// plaintext produce different hashes; both verify.
	Hash(plaintext string) (string, error)

	// Verify reports whether the plaintext matches the hash.
	Verify(plaintext, hash string) bool

	// DummyVerify burns the cost of a real verification against a fixed
	// placeholder hash. Callers invoke it when no identity matched so that
	// lookup misses and wrong passwords take indistinguishable time.
	DummyVerify(plaintext string)
}

package core

import "time"

// RoleUser is the role assigned to every identity at registration. Privilege
// escalation happens elsewhere; the auth core only carries the role through.
const RoleUser = "user"

// Identity is a credential-store record for a forum user. PasswordHash is
// owned exclusively by the credential store and must never be serialized
// across the server boundary.
type Identity struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// SessionClaim is the identity + expiry payload carried inside a session
// token. It is never persisted server-side: the token held by the client is
// the only record of the session.
type SessionClaim struct {
	SubjectID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the claim's expiry lies in the past at t.
func (c *SessionClaim) Expired(t time.Time) bool {
	return t.After(c.ExpiresAt)
}

// Package cookies owns the two cookies of the auth core: the locked-down
// session cookie and the script-readable CSRF cookie. Session cookie values
// are signed with a server-side secret separate from the token keys, so a
// tampered cookie is rejected before any token cryptography runs.
package cookies

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Names of the cookies owned by the auth core.
const (
	AuthTokenName = "auth_token"
	CSRFTokenName = "csrf_token"
)

// ErrInvalidSignature is returned when a signed cookie value fails
// verification.
var ErrInvalidSignature = errors.New("cookie signature mismatch")

// Codec signs, places and clears the auth cookies. secure controls the Secure
// attribute and is on in production.
type Codec struct {
	secret []byte
	secure bool
}

// NewCodec creates a Codec from the cookie-signing secret.
func NewCodec(secret []byte, secure bool) *Codec {
	return &Codec{secret: secret, secure: secure}
}

// Seal appends the value's signature, producing the on-the-wire cookie value.
func (c *Codec) Seal(value string) string {
	return value + "." + c.sign(value)
}

// Open verifies a sealed value and returns the original.
func (c *Codec) Open(sealed string) (string, error) {
	idx := strings.LastIndex(sealed, ".")
	if idx <= 0 || idx == len(sealed)-1 {
		return "", ErrInvalidSignature
	}
	value, sig := sealed[:idx], sealed[idx+1:]
	if !hmac.Equal([]byte(c.sign(value)), []byte(sig)) {
		return "", ErrInvalidSignature
	}
	return value, nil
}

func (c *Codec) sign(value string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// SetAuthToken places the sealed session token cookie. The cookie is fully
// locked down: httpOnly, SameSite=Strict, max-age matching the token expiry.
func (c *Codec) SetAuthToken(w http.ResponseWriter, token string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthTokenName,
		Value:    c.Seal(token),
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// AuthToken reads and opens the session token cookie from a request. A
// missing cookie surfaces as http.ErrNoCookie.
func (c *Codec) AuthToken(r *http.Request) (string, error) {
	cookie, err := r.Cookie(AuthTokenName)
	if err != nil {
		return "", err
	}
	return c.Open(cookie.Value)
}

// ClearAuthToken expires the session token cookie on the client.
func (c *Codec) ClearAuthToken(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthTokenName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// SetCSRFToken places the signed CSRF cookie. It must stay readable by client
// script, which echoes the raw part back in the X-CSRF-Token header.
func (c *Codec) SetCSRFToken(w http.ResponseWriter, signed string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFTokenName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: false,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

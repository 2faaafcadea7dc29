package tokenizer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/forumhub/gatekeeper/core"
	"github.com/forumhub/gatekeeper/ports"
)

const (
	headerAlg = "dir"
	headerEnc = "A256GCM"
)

// joseHeader is the protected header of the outer encrypted envelope.
type joseHeader struct {
	Alg string `json:"alg"`
	Enc string `json:"enc"`
}

// JWETokenizer issues sign-then-encrypt session tokens: the claim is signed
// into a compact JWS with HS256, and the whole JWS becomes the plaintext of a
// direct-mode A256GCM JWE. Verification undoes the layers in reverse —
// decrypt first, then check the signature, then the expiry.
type JWETokenizer struct {
	signingKey    []byte
	encryptionKey []byte
}

// NewJWETokenizer creates a tokenizer from the two symmetric keys. The
// encryption key must be exactly 32 bytes (AES-256).
func NewJWETokenizer(signingKey, encryptionKey []byte) (ports.Tokenizer, error) {
	if len(signingKey) == 0 {
		return nil, fmt.Errorf("signing key must not be empty")
	}
	if len(encryptionKey) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(encryptionKey))
	}
	return &JWETokenizer{signingKey: signingKey, encryptionKey: encryptionKey}, nil
}

// Issue serializes the claim into a signed-then-encrypted compact token.
func (t *JWETokenizer) Issue(claim *core.SessionClaim) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claim.SubjectID,
			IssuedAt:  jwt.NewNumericDate(claim.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claim.ExpiresAt),
		},
	}

	jws, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign claim: %w", err)
	}

	return t.encrypt([]byte(jws))
}

// Verify decrypts the outer envelope, verifies the inner signature and the
// expiry, and returns the embedded claim. Failures map onto the core token
// sentinel errors.
func (t *JWETokenizer) Verify(token string) (*core.SessionClaim, error) {
	jws, err := t.decrypt(token)
	if err != nil {
		return nil, err
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(string(jws), claims,
		func(tok *jwt.Token) (any, error) {
			return t.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, core.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, core.ErrTokenSignatureInvalid
		default:
			return nil, fmt.Errorf("%w: %v", core.ErrTokenMalformed, err)
		}
	}
	if !parsed.Valid {
		return nil, core.ErrTokenSignatureInvalid
	}

	return &core.SessionClaim{
		SubjectID: claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// encrypt wraps plaintext in a JWE compact serialization with alg "dir" and
// enc "A256GCM": five dot-separated base64url segments with an empty
// encrypted-key part, the encoded protected header bound as additional
// authenticated data.
func (t *JWETokenizer) encrypt(plaintext []byte) (string, error) {
	gcm, err := t.cipher()
	if err != nil {
		return "", err
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	headerJSON, err := json.Marshal(joseHeader{Alg: headerAlg, Enc: headerEnc})
	if err != nil {
		return "", fmt.Errorf("failed to marshal header: %w", err)
	}
	protected := base64.RawURLEncoding.EncodeToString(headerJSON)

	sealed := gcm.Seal(nil, iv, plaintext, []byte(protected))
	tagOffset := len(sealed) - gcm.Overhead()

	enc := base64.RawURLEncoding
	parts := []string{
		protected,
		"", // direct mode carries no encrypted key
		enc.EncodeToString(iv),
		enc.EncodeToString(sealed[:tagOffset]),
		enc.EncodeToString(sealed[tagOffset:]),
	}
	return strings.Join(parts, "."), nil
}

// decrypt opens a JWE compact serialization produced by encrypt. Structural
// problems are ErrTokenMalformed; an authentication failure of the ciphertext
// is ErrTokenDecryptionFailed.
func (t *JWETokenizer) decrypt(token string) ([]byte, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 5 {
		return nil, fmt.Errorf("%w: expected 5 segments, got %d", core.ErrTokenMalformed, len(parts))
	}
	if parts[1] != "" {
		return nil, fmt.Errorf("%w: unexpected encrypted key segment", core.ErrTokenMalformed)
	}

	enc := base64.RawURLEncoding
	headerJSON, err := enc.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid header encoding", core.ErrTokenMalformed)
	}
	var header joseHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("%w: invalid header", core.ErrTokenMalformed)
	}
	if header.Alg != headerAlg || header.Enc != headerEnc {
		return nil, fmt.Errorf("%w: unexpected algorithm %q/%q", core.ErrTokenMalformed, header.Alg, header.Enc)
	}

	iv, err := enc.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid iv encoding", core.ErrTokenMalformed)
	}
	ciphertext, err := enc.DecodeString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ciphertext encoding", core.ErrTokenMalformed)
	}
	tag, err := enc.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tag encoding", core.ErrTokenMalformed)
	}

	gcm, err := t.cipher()
	if err != nil {
		return nil, err
	}
	if len(iv) != gcm.NonceSize() || len(tag) != gcm.Overhead() {
		return nil, fmt.Errorf("%w: invalid iv or tag length", core.ErrTokenMalformed)
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), []byte(parts[0]))
	if err != nil {
		return nil, core.ErrTokenDecryptionFailed
	}
	return plaintext, nil
}

func (t *JWETokenizer) cipher() (cipher.AEAD, error) {
	block, err := aes.NewCipher(t.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gcm: %w", err)
	}
	return gcm, nil
}

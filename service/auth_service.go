package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/forumhub/gatekeeper/core"
	"github.com/forumhub/gatekeeper/internal/csrf"
	"github.com/forumhub/gatekeeper/ports"
)

// DefaultSessionTTL is the session lifetime used when no duration is
// configured.
const DefaultSessionTTL = 2 * time.Hour

// genericCredentialsMessage is the single client-visible message for every
// credential failure. Unknown email and wrong password must be
// indistinguishable.
const genericCredentialsMessage = "invalid credentials"

// Session is the result of a successful login: the encrypted session token,
// the CSRF token pair, and the expiry the cookie max-age must match.
type Session struct {
	Token     string
	CSRF      csrf.Pair
	ExpiresAt time.Time
}

// AuthService orchestrates registration, login, logout and password changes.
type AuthService struct {
	store      ports.CredentialStore
	hasher     ports.PasswordHasher
	tokenizer  ports.Tokenizer
	csrf       *csrf.Issuer
	eventPub   ports.EventPublisher
	logger     *slog.Logger
	sessionTTL time.Duration
}

// NewAuthService creates a new authentication service. A zero sessionTTL
// falls back to DefaultSessionTTL.
func NewAuthService(
	store ports.CredentialStore,
	hasher ports.PasswordHasher,
	tokenizer ports.Tokenizer,
	csrfIssuer *csrf.Issuer,
	eventPub ports.EventPublisher,
	logger *slog.Logger,
	sessionTTL time.Duration,
) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		store:      store,
		hasher:     hasher,
		tokenizer:  tokenizer,
		csrf:       csrfIssuer,
		eventPub:   eventPub,
		logger:     logger,
		sessionTTL: sessionTTL,
	}
}

// SessionTTL exposes the configured session lifetime so callers can align
// cookie max-age with token expiry.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// Register hashes the password and persists a new identity. Duplicates come
// back as a generic conflict that does not reveal which field collided.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*core.Identity, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	identity := &core.Identity{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         core.RoleUser,
	}

	created, err := s.store.Create(ctx, identity)
	if err != nil {
		return nil, err
	}

	if err := s.eventPub.PublishRegistered(ctx, created.ID, created.Username); err != nil {
		s.logger.Warn("failed to publish registration event", "error", err)
	}

	return created, nil
}

// Login verifies the credentials and, on success, issues a session token and
// a CSRF token pair. A missing account and a wrong password take the same
// verification cost and collapse into the same generic failure.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	identity, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		// Burn a verification anyway so the miss is not observable by
		// response time.
		s.hasher.DummyVerify(password)
		if core.IsKind(err, core.KindNotFound) {
			return nil, core.NewAuthentication(genericCredentialsMessage, err)
		}
		return nil, err
	}

	if !s.hasher.Verify(password, identity.PasswordHash) {
		return nil, core.NewAuthentication(genericCredentialsMessage, nil)
	}

	now := time.Now()
	claim := &core.SessionClaim{
		SubjectID: identity.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	token, err := s.tokenizer.Issue(claim)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	pair, err := s.csrf.Issue()
	if err != nil {
		return nil, fmt.Errorf("failed to issue csrf token: %w", err)
	}

	if err := s.eventPub.PublishLoggedIn(ctx, identity.ID); err != nil {
		s.logger.Warn("failed to publish login event", "error", err)
	}

	return &Session{Token: token, CSRF: pair, ExpiresAt: claim.ExpiresAt}, nil
}

// ValidateSession decodes and verifies a session token, returning the
// embedded claim.
func (s *AuthService) ValidateSession(token string) (*core.SessionClaim, error) {
	return s.tokenizer.Verify(token)
}

// Identity returns the identity a session claim resolves to.
func (s *AuthService) Identity(ctx context.Context, subjectID string) (*core.Identity, error) {
	return s.store.GetByID(ctx, subjectID)
}

// Logout requires a resolved identity. The session itself is stateless, so
// the only server-side work is the event; the cookie clearing happens at the
// transport.
func (s *AuthService) Logout(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return core.NewAuthentication(genericCredentialsMessage, nil)
	}
	if err := s.eventPub.PublishLoggedOut(ctx, subjectID); err != nil {
		s.logger.Warn("failed to publish logout event", "error", err)
	}
	return nil
}

// ChangePassword re-verifies the current password under the store's row lock
// and replaces the hash. A concurrent change loses cleanly: it re-verifies
// against the committed hash of the winner.
func (s *AuthService) ChangePassword(ctx context.Context, subjectID, current, newPassword string) error {
	err := s.store.UpdatePasswordHash(ctx, subjectID, func(currentHash string) (string, error) {
		if !s.hasher.Verify(current, currentHash) {
			return "", core.NewAuthentication("current password is incorrect", nil)
		}
		return s.hasher.Hash(newPassword)
	})
	if err != nil {
		return err
	}

	if err := s.eventPub.PublishPasswordChanged(ctx, subjectID); err != nil {
		s.logger.Warn("failed to publish password change event", "error", err)
	}
	return nil
}

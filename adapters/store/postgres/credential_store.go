package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/forumhub/gatekeeper/core"
	"github.com/forumhub/gatekeeper/ports"
)

// DB is the subset of pgxpool.Pool the store needs. Declared locally so tests
// can substitute a pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CredentialStore is a PostgreSQL implementation of ports.CredentialStore.
type CredentialStore struct {
	db DB
}

// NewCredentialStore creates a store backed by the given pool.
func NewCredentialStore(db DB) ports.CredentialStore {
	return &CredentialStore{db: db}
}

// Create persists a new identity. Unique violations on username or email
// collapse into one generic conflict so registration cannot be used to probe
// which field is taken.
func (s *CredentialStore) Create(ctx context.Context, identity *core.Identity) (*core.Identity, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`,
		identity.ID,
		identity.Username,
		identity.Email,
		identity.PasswordHash,
		identity.Role,
	).Scan(&identity.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, core.NewConflict("username or email already in use", err)
		}
		return nil, fmt.Errorf("failed to insert identity: %w", err)
	}
	return identity, nil
}

// GetByEmail retrieves an identity by email.
func (s *CredentialStore) GetByEmail(ctx context.Context, email string) (*core.Identity, error) {
	return s.get(ctx, `
		SELECT id, username, email, password_hash, role, created_at
		FROM users
		WHERE email = $1
	`, email)
}

// GetByID retrieves an identity by ID.
func (s *CredentialStore) GetByID(ctx context.Context, id string) (*core.Identity, error) {
	return s.get(ctx, `
		SELECT id, username, email, password_hash, role, created_at
		FROM users
		WHERE id = $1
	`, id)
}

func (s *CredentialStore) get(ctx context.Context, query string, arg any) (*core.Identity, error) {
	identity := &core.Identity{}
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&identity.ID,
		&identity.Username,
		&identity.Email,
		&identity.PasswordHash,
		&identity.Role,
		&identity.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.NewNotFound("identity not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query identity: %w", err)
	}
	return identity, nil
}

// UpdatePasswordHash runs the read-modify-write under a row lock so two
// concurrent password changes for the same identity serialize; the losing
// transaction sees the winner's committed hash.
func (s *CredentialStore) UpdatePasswordHash(ctx context.Context, id string, update func(currentHash string) (string, error)) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var currentHash string
	err = tx.QueryRow(ctx, `
		SELECT password_hash
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&currentHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.NewNotFound("identity not found", err)
	}
	if err != nil {
		return fmt.Errorf("failed to lock identity row: %w", err)
	}

	newHash, err := update(currentHash)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users
		SET password_hash = $1
		WHERE id = $2
	`, newHash, id); err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit password update: %w", err)
	}
	return nil
}

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"catalog-admin/internal/domain"

	"github.com/google/uuid"
)

// PostgresStore keeps sessions in the admin_sessions table
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewPostgresStore creates a store on db
func NewPostgresStore(db *sql.DB, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, ttl: ttl, now: time.Now}
}

func (s *PostgresStore) Create(ctx context.Context, tokens domain.Tokens, email string) (*domain.Session, error) {
	sess, err := newSession(tokens, email, s.ttl, s.now())
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO admin_sessions (id, email, access_token, refresh_token, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.db.ExecContext(
		ctx,
		query,
		sess.ID,
		sess.Email,
		sess.Tokens.AccessToken,
		sess.Tokens.RefreshToken,
		sess.CreatedAt,
		sess.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sess, nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := `
		SELECT id, email, access_token, refresh_token, created_at, expires_at
		FROM admin_sessions
		WHERE id = $1 AND expires_at > $2
	`

	sess := &domain.Session{}
	err := s.db.QueryRowContext(ctx, query, id, s.now()).Scan(
		&sess.ID,
		&sess.Email,
		&sess.Tokens.AccessToken,
		&sess.Tokens.RefreshToken,
		&sess.CreatedAt,
		&sess.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return sess, nil
}

func (s *PostgresStore) UpdateAccessToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `
		UPDATE admin_sessions
		SET access_token = $2, updated_at = $3
		WHERE id = $1 AND expires_at > $3
	`

	result, err := s.db.ExecContext(ctx, query, id, token, s.now())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

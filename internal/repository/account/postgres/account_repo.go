package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dayplanner/internal/logger"
	"dayplanner/internal/models/account"
	repo "dayplanner/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const accountColumns = `id, email, display_name, password_hash, verified, created_at, verified_at`

const uniqueViolation = "23505"

type Storage struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

func (s *Storage) Create(ctx context.Context, a *account.Account) (*account.Account, error) {
	start := time.Now()

	query := `INSERT INTO accounts (email, display_name, password_hash)
				VALUES ($1, $2, $3)
				RETURNING ` + accountColumns

	created, err := scanAccount(s.pool.QueryRow(ctx, query, a.Email, a.DisplayName, a.PasswordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, repo.ErrDuplicate
		}
		logger.Error("Repository: failed to create account", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return created, nil
}

func (s *Storage) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	a, err := scanAccount(s.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to get account by email", err)
		return nil, fmt.Errorf("getting account: %w", err)
	}
	return a, nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to get account by id", err)
		return nil, fmt.Errorf("getting account: %w", err)
	}
	return a, nil
}

func (s *Storage) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		logger.Error("Repository: failed to update password", err)
		return fmt.Errorf("updating password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) MarkVerified(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET verified = TRUE, verified_at = NOW() WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: failed to mark account verified", err)
		return fmt.Errorf("marking verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) SaveToken(ctx context.Context, t *account.OneTimeToken) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO one_time_tokens (token, account_id, purpose, expires_at)
			VALUES ($1, $2, $3, $4)`,
		t.Token, t.AccountID, t.Purpose, t.ExpiresAt)
	if err != nil {
		logger.Error("Repository: failed to save one-time token", err)
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

// ConsumeToken deletes the token and returns it, so a token can only be
// redeemed once. Expiry is the caller's concern.
func (s *Storage) ConsumeToken(ctx context.Context, token string, purpose account.TokenPurpose) (*account.OneTimeToken, error) {
	query := `DELETE FROM one_time_tokens
				WHERE token = $1 AND purpose = $2
				RETURNING token, account_id, purpose, expires_at, created_at`

	t := &account.OneTimeToken{}
	err := s.pool.QueryRow(ctx, query, token, purpose).Scan(
		&t.Token, &t.AccountID, &t.Purpose, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to consume token", err)
		return nil, fmt.Errorf("consuming token: %w", err)
	}
	return t, nil
}

func (s *Storage) DeleteExpiredTokens(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	query := `DELETE FROM one_time_tokens
				WHERE token IN (
					SELECT token FROM one_time_tokens
					WHERE expires_at < $1
					LIMIT $2
				)`

	tag, err := s.pool.Exec(ctx, query, cutoff, limit)
	if err != nil {
		logger.Error("Repository: failed to delete expired tokens", err)
		return 0, fmt.Errorf("deleting expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	a := &account.Account{}
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.DisplayName,
		&a.PasswordHash,
		&a.Verified,
		&a.CreatedAt,
		&a.VerifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

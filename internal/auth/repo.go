package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/hrforms/internal/platform/db"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

// Account is the credential view of a user.
type Account struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	IsDeleted    bool
}

// StoredRefreshToken is a persisted refresh token row.
type StoredRefreshToken struct {
	Token     string
	UserID    uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewOAuthAccount describes a user created from an identity provider profile.
type NewOAuthAccount struct {
	Email        string
	FirstName    string
	LastName     string
	AvatarURL    string
	PasswordHash string
	Role         string
}

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (Account, error)
	RoleNames(ctx context.Context, userID uuid.UUID) ([]string, error)
	SaveRefreshToken(ctx context.Context, token StoredRefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (StoredRefreshToken, error)
	RotateRefreshToken(ctx context.Context, old string, next StoredRefreshToken) error
	CreateOAuthAccount(ctx context.Context, account NewOAuthAccount) (Account, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id, email, COALESCE(password, ''), is_deleted`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.IsDeleted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// FindByEmail fetches an account by email, case-insensitively.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

// FindByID fetches an account by id.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id))
}

// RoleNames lists the active role names of a user.
func (r *PGRepository) RoleNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
SELECT r.name FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
WHERE ur.user_id = $1 AND ur.is_deleted = FALSE
ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return names, nil
}

// SaveRefreshToken inserts a refresh token row.
func (r *PGRepository) SaveRefreshToken(ctx context.Context, token StoredRefreshToken) error {
	return insertRefreshToken(ctx, r.pool, token)
}

func insertRefreshToken(ctx context.Context, q db.DBTX, token StoredRefreshToken) error {
	_, err := q.Exec(ctx, `
INSERT INTO refresh_tokens (id, token, user_id, issued_at, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())`,
		uuid.New(), token.Token, token.UserID,
		pgtype.Timestamptz{Time: token.IssuedAt.UTC(), Valid: true},
		pgtype.Timestamptz{Time: token.ExpiresAt.UTC(), Valid: true},
	)
	return err
}

// FindRefreshToken looks up a persisted refresh token by value.
func (r *PGRepository) FindRefreshToken(ctx context.Context, token string) (StoredRefreshToken, error) {
	var (
		out             StoredRefreshToken
		issued, expires pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx, `SELECT token, user_id, issued_at, expires_at FROM refresh_tokens WHERE token = $1`, token).
		Scan(&out.Token, &out.UserID, &issued, &expires)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StoredRefreshToken{}, shared.ErrNotFound
		}
		return StoredRefreshToken{}, err
	}
	out.IssuedAt = issued.Time
	out.ExpiresAt = expires.Time
	return out, nil
}

// RotateRefreshToken deletes old and inserts next in one transaction. It
// returns shared.ErrNotFound when old was already rotated away.
func (r *PGRepository) RotateRefreshToken(ctx context.Context, old string, next StoredRefreshToken) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, old)
		if err != nil {
			return fmt.Errorf("delete refresh token: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if err := insertRefreshToken(ctx, tx, next); err != nil {
			return fmt.Errorf("insert refresh token: %w", err)
		}
		return nil
	})
}

// CreateOAuthAccount inserts a user and assigns its initial role atomically.
func (r *PGRepository) CreateOAuthAccount(ctx context.Context, account NewOAuthAccount) (Account, error) {
	created := Account{ID: uuid.New(), Email: account.Email, PasswordHash: account.PasswordHash}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var roleID uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, account.Role).Scan(&roleID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.NotFound("Role not found", shared.Context{"api": "assignRole"})
			}
			return err
		}
		_, err := tx.Exec(ctx, `
INSERT INTO users (id, email, password, first_name, last_name, avatar, status, employee_id, created_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), 'INTERN', '0000', NOW())`,
			created.ID, account.Email, account.PasswordHash, account.FirstName, account.LastName, account.AvatarURL)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		_, err = tx.Exec(ctx, `
INSERT INTO user_roles (id, user_id, role_id, is_deleted, created_at)
VALUES ($1, $2, $3, FALSE, NOW())`, uuid.New(), created.ID, roleID)
		if err != nil {
			return fmt.Errorf("insert user role: %w", err)
		}
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	return created, nil
}

var _ Repository = (*PGRepository)(nil)

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/discord-relay/internal/apperror"
	"github.com/sakif/discord-relay/internal/model"
	"github.com/sakif/discord-relay/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, external_id, username, COALESCE(email, ''), avatar,
	COALESCE(refresh_token_hash, ''), created_at, updated_at`

// Upsert inserts or overwrites a user keyed by external_id.
//
// The write is a single INSERT ... ON CONFLICT(external_id) DO UPDATE, so
// two concurrent first logins for the same account cannot produce two
// rows. The row is then read back to fill ID and the timestamps.
//
// An email already owned by a different external_id fails the UNIQUE
// index and is reported as apperror.ErrConflict.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (external_id, username, email, avatar, refresh_token_hash, created_at, updated_at)
		 VALUES (?, ?, NULLIF(?, ''), ?, NULLIF(?, ''), ?, ?)
		 ON CONFLICT(external_id) DO UPDATE SET
			username           = excluded.username,
			email              = excluded.email,
			avatar             = excluded.avatar,
			refresh_token_hash = excluded.refresh_token_hash,
			updated_at         = excluded.updated_at`,
		user.ExternalID,
		user.Username,
		user.Email,
		user.Avatar,
		user.RefreshTokenHash,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return apperror.Conflict("user email", user.Email)
		}
		return fmt.Errorf("sqlite: upserting user (externalID=%s): %w", user.ExternalID, err)
	}

	stored, err := db.GetByExternalID(ctx, user.ExternalID)
	if err != nil {
		return fmt.Errorf("sqlite: reading back user %s: %w", user.ExternalID, err)
	}
	*user = *stored

	return nil
}

// GetByExternalID retrieves a user by provider id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (db *DB) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	u, err := db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", externalID)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", externalID, err)
	}
	return u, nil
}

// GetByRefreshHash retrieves the user whose current refresh token digests
// to hash. Returns apperror.ErrNotFound if nobody holds it.
func (db *DB) GetByRefreshHash(ctx context.Context, hash string) (*model.User, error) {
	if hash == "" {
		return nil, apperror.NotFound("user", "(empty refresh hash)")
	}

	u, err := db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE refresh_token_hash = ?`, hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Never echo the digest back; it identifies a live credential.
			return nil, apperror.NotFound("user", "(refresh token)")
		}
		return nil, fmt.Errorf("sqlite: getting user by refresh hash: %w", err)
	}
	return u, nil
}

// SwapRefreshHash is a compare-and-swap on refresh_token_hash. Exactly one
// of several concurrent redemptions of the same token wins.
func (db *DB) SwapRefreshHash(ctx context.Context, externalID, oldHash, newHash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = ?, updated_at = ?
		 WHERE external_id = ? AND refresh_token_hash = ?`,
		newHash, time.Now().UTC(), externalID, oldHash,
	)
	if err != nil {
		return fmt.Errorf("sqlite: swapping refresh hash for %s: %w", externalID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.InvalidToken("refresh token is no longer valid")
	}

	return nil
}

func (db *DB) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.ExternalID,
		&u.Username,
		&u.Email,
		&u.Avatar,
		&u.RefreshTokenHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

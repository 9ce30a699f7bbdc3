package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/messenger-auth/internal/model"
	"github.com/sakif/messenger-auth/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Upsert inserts or updates the user for the given provider identity.
//
// The internal ID is generated once, on first login, and kept forever after:
// later logins only refresh email/name/avatar in case the user changed them
// at the provider. Both branches run in one transaction so two concurrent
// first logins for the same account cannot insert twice.
func (db *DB) Upsert(ctx context.Context, identity model.Identity) (*model.User, error) {
	if identity.ProviderID == "" {
		return nil, fmt.Errorf("sqlite: upserting user: provider id must not be empty")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning upsert: %w", err)
	}
	defer tx.Rollback()

	user := &model.User{
		ProviderID: identity.ProviderID,
		Email:      identity.Email,
		Name:       identity.DisplayName,
		Avatar:     identity.PictureURL,
	}

	var existingID string
	var createdAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT id, created_at FROM users WHERE provider_id = ?`, identity.ProviderID,
	).Scan(&existingID, &createdAt)

	switch {
	case err == nil:
		user.ID = existingID
		user.CreatedAt = createdAt
		user.UpdatedAt = time.Now().UTC()
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET email = ?, name = ?, avatar = ?, updated_at = ?
			 WHERE id = ?`,
			user.Email,
			user.Name,
			user.Avatar,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}

	case errors.Is(err, sql.ErrNoRows):
		now := time.Now().UTC()
		user.ID = xid.New().String()
		user.CreatedAt = now
		user.UpdatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, provider_id, email, name, avatar, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			user.ID,
			user.ProviderID,
			user.Email,
			user.Name,
			user.Avatar,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: inserting user (providerID=%s): %w", user.ProviderID, err)
		}

	default:
		return nil, fmt.Errorf("sqlite: looking up user by provider_id %s: %w", identity.ProviderID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing upsert: %w", err)
	}

	return user, nil
}

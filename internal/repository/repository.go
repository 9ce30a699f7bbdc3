package repository

import (
	"context"

	"github.com/sakif/messenger-auth/internal/model"
)

// UserRepository is the user store the callback route writes to.
//
// Upsert creates the user on first login and refreshes the profile fields
// on every later one; the returned record always carries the stable
// internal ID.
type UserRepository interface {
	Upsert(ctx context.Context, identity model.Identity) (*model.User, error)
}

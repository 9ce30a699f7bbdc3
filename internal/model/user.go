// Package model defines the data structures used throughout the application.
package model

import "time"

// Identity is the profile the identity provider returns after a successful
// code exchange. It is received once per login and never persisted as-is.
//
// The JSON tags match Google's /oauth2/v2/userinfo response.
type Identity struct {
	ProviderID  string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	PictureURL  string `json:"picture"`
}

// User is the persisted projection of an Identity (the "UserRecord").
//
// ID is our own internal identifier (an xid), not the provider's. The
// provider id is kept in its own UNIQUE column so the same Google account
// always maps back to the same row.
type User struct {
	ID         string    `json:"id"         db:"id"`
	ProviderID string    `json:"providerId" db:"provider_id"`
	Email      string    `json:"email"      db:"email"`
	Name       string    `json:"name"       db:"name"`
	Avatar     string    `json:"avatar"     db:"avatar"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt"  db:"updated_at"`
}

// Package model defines the data structures used throughout the application.
package model

import "time"

// User is one locally known identity tied to one Discord account.
//
// ExternalID is the Discord snowflake, kept as a string because it does not
// fit every JSON consumer's number type. ID is our own surrogate key and is
// never exposed to clients.
//
// RefreshTokenHash holds the hex SHA-256 digest of the single refresh token
// currently valid for this user. The raw token is never stored.
type User struct {
	ID               int64     `json:"-"          db:"id"`
	ExternalID       string    `json:"externalId" db:"external_id"`
	Username         string    `json:"username"   db:"username"`
	Email            string    `json:"email"      db:"email"` // empty when the account hides it
	Avatar           string    `json:"avatar"     db:"avatar"`
	RefreshTokenHash string    `json:"-"          db:"refresh_token_hash"`
	CreatedAt        time.Time `json:"-"          db:"created_at"`
	UpdatedAt        time.Time `json:"-"          db:"updated_at"`
}

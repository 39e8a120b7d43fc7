// Package repository declares the storage contracts the service layer
// depends on. Implementations live in sub-packages (see sqlite).
package repository

import (
	"context"

	"github.com/sakif/discord-relay/internal/model"
)

// UserRepository persists one record per external identity.
//
// Lookups return apperror.ErrNotFound when no row matches.
type UserRepository interface {
	GetByExternalID(ctx context.Context, externalID string) (*model.User, error)
	GetByRefreshHash(ctx context.Context, hash string) (*model.User, error)

	// Upsert inserts the user if its ExternalID is new, otherwise overwrites
	// every profile and credential field. It must be atomic on ExternalID.
	// On return user.ID, CreatedAt and UpdatedAt reflect the stored row.
	Upsert(ctx context.Context, user *model.User) error

	// SwapRefreshHash replaces oldHash with newHash for externalID only if
	// oldHash is still the stored value. A lost race returns
	// apperror.ErrInvalidToken.
	SwapRefreshHash(ctx context.Context, externalID, oldHash, newHash string) error
}

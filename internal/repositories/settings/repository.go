// Package settings persists per-user preferences, one row per owner.
package settings

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/models"
)

type Repository interface {
	Get(ctx context.Context, ownerID string) (*models.Settings, error)
	Upsert(ctx context.Context, s models.Settings) error
}

// Package users persists master-user credential records.
package users

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/models"
)

type Repository interface {
	Create(ctx context.Context, u *models.MasterUser) error
	GetByUsername(ctx context.Context, username string) (*models.MasterUser, error)
	GetByID(ctx context.Context, id string) (*models.MasterUser, error)
	UpdateCredentials(ctx context.Context, id string, hash, salt []byte, kdf models.KDFParams) error
}

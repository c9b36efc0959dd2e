// Package entries persists sealed vault entries. Every operation is scoped
// to an owner: an id belonging to another owner behaves as missing.
package entries

import (
	"context"
	"time"

	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.Entry) error
	Get(ctx context.Context, ownerID, id string) (*models.Entry, error)
	List(ctx context.Context, ownerID, category string) ([]*models.Entry, error)
	Categories(ctx context.Context, ownerID string) ([]string, error)
	Update(ctx context.Context, ownerID, id string, p models.EntryPatch) (bool, error)
	ReplaceSecrets(ctx context.Context, ownerID, id string, password cryptox.Sealed, notes *cryptox.Sealed) error
	Touch(ctx context.Context, ownerID, id string, at time.Time) error
	Delete(ctx context.Context, ownerID, id string) (bool, error)
}

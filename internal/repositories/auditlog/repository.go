// Package auditlog persists the append-only audit trail.
package auditlog

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/models"
)

type Repository interface {
	Append(ctx context.Context, e *models.AuditLogEntry) error
	List(ctx context.Context, ownerID string, limit int) ([]models.AuditLogEntry, error)
}

package vault

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/models"
)

const DefaultAuditLimit = 50

func (s *Service) GetSettings(ctx context.Context) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return models.Settings{}, err
	}
	return sess.info.Settings, nil
}

// UpdateSettings stores the changed preferences. A new auto-lock timeout
// replaces the running timer; the clipboard timeout applies to the next copy.
func (s *Service) UpdateSettings(ctx context.Context, u models.SettingsUpdate) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return models.Settings{}, err
	}

	if u.ClipboardTimeoutSeconds != nil && *u.ClipboardTimeoutSeconds < 1 {
		return models.Settings{}, fmt.Errorf("%w: clipboard timeout must be at least 1 second", common.ErrValidation)
	}
	if u.AutoLockTimeoutSeconds != nil && *u.AutoLockTimeoutSeconds < 1 {
		return models.Settings{}, fmt.Errorf("%w: auto-lock timeout must be at least 1 second", common.ErrValidation)
	}

	next := u.Apply(sess.info.Settings)
	next.OwnerID = sess.info.UserID
	if err := s.store.UpsertSettings(ctx, next); err != nil {
		return models.Settings{}, err
	}

	rearm := next.AutoLockTimeoutSeconds != sess.info.Settings.AutoLockTimeoutSeconds
	sess.info.Settings = next
	if rearm {
		s.armLocked(sess)
	}
	return next, nil
}

// ListAuditLogs returns the newest audit records first. A non-positive
// limit uses DefaultAuditLimit.
func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	return s.store.ListAuditLogs(ctx, sess.info.UserID, limit)
}

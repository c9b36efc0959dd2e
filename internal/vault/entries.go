package vault

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/models"
	"github.com/dmitrijs2005/passvault/internal/store"
)

// AddEntry seals the password, and the notes when present, under the
// session key with fresh nonces and stores the entry.
func (s *Service) AddEntry(ctx context.Context, f models.EntryFields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return "", err
	}
	return s.addEntryLocked(ctx, s.store, sess, f)
}

func (s *Service) addEntryLocked(ctx context.Context, st store.CredentialStore, sess *session, f models.EntryFields) (string, error) {
	if strings.TrimSpace(f.Title) == "" {
		return "", common.ErrMissingTitle
	}
	if f.Password == "" {
		return "", common.ErrMissingPassword
	}
	if f.Category == "" {
		f.Category = s.cfg.DefaultCategory
	}

	now := s.now().UTC()
	e := &models.Entry{
		ID:        s.newID(),
		OwnerID:   sess.info.UserID,
		Title:     f.Title,
		Username:  f.Username,
		Email:     f.Email,
		URL:       f.URL,
		Category:  f.Category,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := sess.withKey(func(key []byte) error {
		var err error
		if e.Password, err = s.crypto.Encrypt([]byte(f.Password), key); err != nil {
			return err
		}
		if f.Notes != "" {
			notes, err := s.crypto.Encrypt([]byte(f.Notes), key)
			if err != nil {
				return err
			}
			e.Notes = &notes
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	err = st.Atomic(ctx, func(ctx context.Context, tx store.CredentialStore) error {
		if err := tx.InsertEntry(ctx, e); err != nil {
			return err
		}
		return s.audit(ctx, tx, e.OwnerID, models.ActionAddPassword, e.Title)
	})
	if err != nil {
		return "", err
	}
	return e.ID, nil
}

// GetEntry decrypts an entry and records the access. A record that fails
// authentication yields common.ErrDecryptionFailed.
func (s *Service) GetEntry(ctx context.Context, id string) (*models.EntryPlaintext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return nil, err
	}

	e, err := s.store.GetEntry(ctx, sess.info.UserID, id)
	if err != nil {
		return nil, err
	}
	p, err := s.open(sess, e)
	if err != nil {
		s.log.Error(ctx, "entry failed authentication", "entry", id)
		return nil, err
	}

	at := s.now().UTC()
	if err := s.store.TouchEntry(ctx, sess.info.UserID, id, at); err != nil {
		return nil, err
	}
	p.LastAccessed = &at
	return p, nil
}

func (s *Service) open(sess *session, e *models.Entry) (*models.EntryPlaintext, error) {
	p := &models.EntryPlaintext{
		ID:           e.ID,
		Title:        e.Title,
		Username:     e.Username,
		Email:        e.Email,
		URL:          e.URL,
		Category:     e.Category,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
		LastAccessed: e.LastAccessed,
	}
	err := sess.withKey(func(key []byte) error {
		pw, err := s.crypto.Decrypt(e.Password, key)
		if err != nil {
			return err
		}
		p.Password = string(pw)
		if e.Notes != nil {
			notes, err := s.crypto.Decrypt(*e.Notes, key)
			if err != nil {
				return err
			}
			p.Notes = string(notes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateEntry changes the fields set in u and always bumps updated_at.
// Secrets are re-sealed only when supplied; an empty Notes removes the
// notes. It reports false when no entry of the session's owner has id.
func (s *Service) UpdateEntry(ctx context.Context, id string, u models.EntryUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return false, err
	}

	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return false, common.ErrMissingTitle
	}
	if u.Password != nil && *u.Password == "" {
		return false, common.ErrMissingPassword
	}

	p := models.EntryPatch{
		Title:     u.Title,
		Username:  u.Username,
		Email:     u.Email,
		URL:       u.URL,
		Category:  u.Category,
		UpdatedAt: s.now().UTC(),
	}
	if p.Category != nil && *p.Category == "" {
		def := s.cfg.DefaultCategory
		p.Category = &def
	}

	err = sess.withKey(func(key []byte) error {
		if u.Password != nil {
			pw, err := s.crypto.Encrypt([]byte(*u.Password), key)
			if err != nil {
				return err
			}
			p.Password = &pw
		}
		if u.Notes != nil {
			if *u.Notes == "" {
				p.ClearNotes = true
				return nil
			}
			notes, err := s.crypto.Encrypt([]byte(*u.Notes), key)
			if err != nil {
				return err
			}
			p.Notes = &notes
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	var ok bool
	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.CredentialStore) error {
		var err error
		if ok, err = tx.UpdateEntry(ctx, sess.info.UserID, id, p); err != nil || !ok {
			return err
		}
		return s.audit(ctx, tx, sess.info.UserID, models.ActionUpdatePassword, id)
	})
	return ok, err
}

// DeleteEntry removes an entry of the session's owner. Deleting a missing
// id reports false and is not audited.
func (s *Service) DeleteEntry(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return false, err
	}

	var ok bool
	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.CredentialStore) error {
		var err error
		if ok, err = tx.DeleteEntry(ctx, sess.info.UserID, id); err != nil || !ok {
			return err
		}
		return s.audit(ctx, tx, sess.info.UserID, models.ActionDeletePassword, id)
	})
	return ok, err
}

// ListEntries returns entry summaries ordered by title. An empty category
// lists everything.
func (s *Service) ListEntries(ctx context.Context, category string) ([]models.EntrySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return nil, err
	}

	entries, err := s.store.ListEntries(ctx, sess.info.UserID, category)
	if err != nil {
		return nil, err
	}
	out := make([]models.EntrySummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Summary())
	}
	return out, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return nil, err
	}
	return s.store.ListCategories(ctx, sess.info.UserID)
}

// CopyPassword puts an entry's password on the clipboard for the session's
// clipboard timeout.
func (s *Service) CopyPassword(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return err
	}
	if s.clip == nil {
		return ErrNoClipboard
	}

	e, err := s.store.GetEntry(ctx, sess.info.UserID, id)
	if err != nil {
		return err
	}

	timeout := sess.info.Settings.ClipboardTimeout()
	err = sess.withKey(func(key []byte) error {
		pw, err := s.crypto.Decrypt(e.Password, key)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(pw)
		return s.clip.Copy(string(pw), timeout)
	})
	if err != nil {
		return err
	}

	return s.audit(ctx, s.store, sess.info.UserID, models.ActionCopyToClipboard,
		fmt.Sprintf("entry %s, clears in %s", id, timeout))
}

// GeneratePassphrase returns a random passphrase over the configured
// charset. A non-positive length uses the configured default.
func (s *Service) GeneratePassphrase(length int) (string, error) {
	if length <= 0 {
		length = s.cfg.GeneratorLength
	}
	return cryptox.GeneratePassphrase(length, s.cfg.GeneratorCharset)
}

package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/exportcodec"
	"github.com/dmitrijs2005/passvault/internal/models"
	"github.com/dmitrijs2005/passvault/internal/store"
)

// ImportResult counts what Import did with each envelope entry.
type ImportResult struct {
	Imported int
	// Skipped entries failed validation, e.g. had no title or password.
	Skipped int
}

// Export seals every entry of the session's owner under passphrase.
func (s *Service) Export(ctx context.Context, passphrase string) (*exportcodec.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return nil, err
	}

	env, err := s.exportLocked(ctx, sess, passphrase)
	if err != nil {
		return nil, err
	}
	if err := s.audit(ctx, s.store, sess.info.UserID, models.ActionExport,
		fmt.Sprintf("exported %d entries", env.EntriesCount)); err != nil {
		return nil, err
	}
	return env, nil
}

// ExportTo exports and saves the encoded envelope as name in dst. It
// returns the location reported by dst.
func (s *Service) ExportTo(ctx context.Context, dst exportcodec.Store, name, passphrase string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return "", err
	}

	env, err := s.exportLocked(ctx, sess, passphrase)
	if err != nil {
		return "", err
	}
	data, err := exportcodec.Encode(env)
	if err != nil {
		return "", err
	}
	loc, err := dst.Save(ctx, name, data)
	if err != nil {
		return "", err
	}

	if err := s.audit(ctx, s.store, sess.info.UserID, models.ActionExport,
		fmt.Sprintf("exported %d entries to %s", env.EntriesCount, loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (s *Service) exportLocked(ctx context.Context, sess *session, passphrase string) (*exportcodec.Envelope, error) {
	if passphrase == "" {
		return nil, common.ErrMissingPassphrase
	}
	entries, err := s.store.ListEntries(ctx, sess.info.UserID, "")
	if err != nil {
		return nil, err
	}

	plain := make([]models.EntryPlaintext, 0, len(entries))
	for _, e := range entries {
		p, err := s.open(sess, e)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		plain = append(plain, *p)
	}
	return s.codec.Seal(plain, passphrase)
}

// Import opens env with passphrase and adds each entry as new, with new ids
// and fresh nonces. Entries failing validation are skipped; any other
// failure aborts the whole import and nothing is stored.
func (s *Service) Import(ctx context.Context, env *exportcodec.Envelope, passphrase string) (ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return ImportResult{}, err
	}
	return s.importLocked(ctx, sess, env, passphrase, "envelope")
}

// ImportFrom loads and decodes name from src, then imports it.
func (s *Service) ImportFrom(ctx context.Context, src exportcodec.Store, name, passphrase string) (ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return ImportResult{}, err
	}

	data, err := src.Load(ctx, name)
	if err != nil {
		return ImportResult{}, err
	}
	env, err := exportcodec.Decode(data)
	if err != nil {
		return ImportResult{}, err
	}
	return s.importLocked(ctx, sess, env, passphrase, name)
}

func (s *Service) importLocked(ctx context.Context, sess *session, env *exportcodec.Envelope, passphrase, source string) (ImportResult, error) {
	entries, err := s.codec.Open(env, passphrase)
	if err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.CredentialStore) error {
		for _, p := range entries {
			_, err := s.addEntryLocked(ctx, tx, sess, p.Fields())
			switch {
			case err == nil:
				res.Imported++
			case errors.Is(err, common.ErrValidation):
				res.Skipped++
			default:
				return err
			}
		}
		return s.audit(ctx, tx, sess.info.UserID, models.ActionImport,
			fmt.Sprintf("imported %d entries from %s, skipped %d", res.Imported, source, res.Skipped))
	})
	if err != nil {
		return ImportResult{}, err
	}

	s.log.Info(ctx, "import finished", "imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}

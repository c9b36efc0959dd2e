package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/models"
	"github.com/dmitrijs2005/passvault/internal/store"
)

func (s *Service) checkPassphrase(username, passphrase string) error {
	if passphrase == "" {
		return common.ErrMissingPassphrase
	}
	if s.cfg.MinPassphraseScore > 0 && cryptox.Strength(passphrase, username) < s.cfg.MinPassphraseScore {
		return common.ErrWeakPassphrase
	}
	return nil
}

// normalizeUsername is applied wherever a username enters the vault, so the
// stored name, the lookup key and the lockout key always agree.
func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func (s *Service) currentKDF() models.KDFParams {
	return models.KDFParams{Scrypt: s.cfg.Scrypt, PBKDF2Iterations: s.cfg.PBKDF2Iterations}
}

// Register creates a master user with default settings and returns its id.
// It does not unlock the vault.
func (s *Service) Register(ctx context.Context, username, passphrase string) (string, error) {
	username = normalizeUsername(username)
	if username == "" {
		return "", common.ErrMissingUsername
	}
	if err := s.checkPassphrase(username, passphrase); err != nil {
		return "", err
	}

	_, err := s.store.FindUserByUsername(ctx, username)
	switch {
	case err == nil:
		return "", common.ErrUsernameTaken
	case !errors.Is(err, common.ErrNotFound):
		return "", err
	}

	kdf := s.currentKDF()
	h, err := s.crypto.HashPassword([]byte(passphrase), nil, kdf.PBKDF2Iterations)
	if err != nil {
		return "", err
	}

	u := &models.MasterUser{
		ID:           s.newID(),
		Username:     username,
		PasswordHash: h.Hash,
		PasswordSalt: h.Salt,
		KDF:          kdf,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u, s.defaultSettings()); err != nil {
		return "", err
	}

	s.log.Info(ctx, "user registered", "user", username)
	return u.ID, nil
}

// Login authenticates username and unlocks the vault. Once the lockout
// threshold is reached within the window the attempt is refused before any
// key derivation. An unknown user and a wrong password fail identically.
// A successful login replaces any session that was already open.
func (s *Service) Login(ctx context.Context, username, passphrase string) (err error) {
	username = normalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Store(int32(Authenticating))
	defer func() {
		if err != nil {
			s.restoreStateLocked()
		}
	}()

	now := s.now().UTC()
	if _, err := s.store.PruneFailedAttempts(ctx, now.Add(-s.cfg.AttemptRetention)); err != nil {
		return err
	}

	n, err := s.store.CountRecentFailedAttempts(ctx, username, now.Add(-s.cfg.LockoutWindow))
	if err != nil {
		return err
	}
	if n >= s.cfg.LockoutThreshold {
		s.log.Warn(ctx, "login refused, too many failed attempts", "user", username, "attempts", n)
		return common.ErrTooManyAttempts
	}

	u, err := s.store.FindUserByUsername(ctx, username)
	if errors.Is(err, common.ErrNotFound) {
		// same cost as a wrong password
		s.crypto.VerifyPassword([]byte(passphrase), make([]byte, cryptox.HashSize),
			common.GenerateRandByteArray(cryptox.SaltSize), s.cfg.PBKDF2Iterations)
		return s.failLogin(ctx, username, now)
	}
	if err != nil {
		return err
	}

	if !s.crypto.VerifyPassword([]byte(passphrase), u.PasswordHash, u.PasswordSalt, u.KDF.PBKDF2Iterations) {
		return s.failLogin(ctx, username, now)
	}

	key, err := s.crypto.DeriveKey([]byte(passphrase), u.PasswordSalt, u.KDF.Scrypt)
	if err != nil {
		return err
	}
	enclave := memguard.NewEnclave(key)

	settings, err := s.store.GetSettings(ctx, u.ID)
	if errors.Is(err, common.ErrNotFound) {
		d := s.defaultSettings()
		d.OwnerID = u.ID
		settings, err = &d, nil
	}
	if err != nil {
		return err
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.CredentialStore) error {
		if err := tx.ClearFailedAttempts(ctx, username); err != nil {
			return err
		}
		return s.audit(ctx, tx, u.ID, models.ActionLogin, "login succeeded")
	})
	if err != nil {
		return err
	}

	if s.sess != nil {
		if err := s.endSessionLocked(ctx, "replaced by new login"); err != nil {
			s.log.Warn(ctx, "closing previous session", "error", err)
		}
	}

	s.gen++
	s.sess = &session{
		info: SessionInfo{
			UserID:    u.ID,
			Username:  u.Username,
			StartedAt: now,
			Settings:  *settings,
		},
		key: enclave,
		gen: s.gen,
	}
	s.armLocked(s.sess)
	s.state.Store(int32(Unlocked))

	s.log.Info(ctx, "vault unlocked", "user", u.Username)
	return nil
}

func (s *Service) failLogin(ctx context.Context, username string, at time.Time) error {
	if err := s.store.RecordFailedAttempt(ctx, username, at); err != nil {
		return err
	}
	s.log.Warn(ctx, "login failed", "user", username)
	return common.ErrInvalidCredentials
}

func (s *Service) restoreStateLocked() {
	if s.sess != nil {
		s.state.Store(int32(Unlocked))
	} else {
		s.state.Store(int32(Locked))
	}
}

// Logout ends the session: it records LOGOUT, drops the key, cancels the
// auto-lock timer and clears the clipboard. It is a no-op when locked.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil
	}
	return s.endSessionLocked(ctx, "logout")
}

// Lock is Logout under the name the UI uses for an explicit lock.
func (s *Service) Lock(ctx context.Context) error {
	return s.Logout(ctx)
}

// endSessionLocked always tears the session down; the returned error is the
// audit write failure, if any.
func (s *Service) endSessionLocked(ctx context.Context, reason string) error {
	sess := s.sess
	s.sess = nil
	s.state.Store(int32(Locked))

	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	sess.key = nil

	if s.clip != nil {
		if err := s.clip.Clear(); err != nil {
			s.log.Warn(ctx, "clipboard clear failed", "error", err)
		}
	}

	err := s.audit(ctx, s.store, sess.info.UserID, models.ActionLogout, reason)
	s.log.Info(ctx, "vault locked", "user", sess.info.Username, "reason", reason)
	return err
}

// ResetAutoLock restarts the idle timer; the UI calls it on user activity.
func (s *Service) ResetAutoLock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return err
	}
	s.armLocked(sess)
	return nil
}

// armLocked replaces the session's auto-lock timer. Only the most recently
// armed timer of the current session can lock it.
func (s *Service) armLocked(sess *session) {
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	s.timerSeq++

	d := sess.info.Settings.AutoLockTimeout()
	if d <= 0 {
		return
	}
	gen, seq := sess.gen, s.timerSeq
	sess.timer = s.afterFunc(d, func() { s.autoLock(gen, seq) })
}

func (s *Service) autoLock(gen, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil || s.sess.gen != gen || s.timerSeq != seq {
		return
	}
	ctx := context.Background()
	if err := s.endSessionLocked(ctx, "auto-lock"); err != nil {
		s.log.Error(ctx, "auto-lock audit failed", "error", err)
	}
}

// ChangeMasterPassword re-verifies current, then re-keys the vault: a new
// salt and the configured KDF costs produce a new verifier and data key,
// and every entry is re-encrypted under the new key. The credential update
// and the re-encryption commit together; on failure the old key stays in
// use and nothing is written.
func (s *Service) ChangeMasterPassword(ctx context.Context, current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active()
	if err != nil {
		return err
	}

	u, err := s.store.FindUserByID(ctx, sess.info.UserID)
	if err != nil {
		return err
	}
	if !s.crypto.VerifyPassword([]byte(current), u.PasswordHash, u.PasswordSalt, u.KDF.PBKDF2Iterations) {
		s.log.Warn(ctx, "master password change refused", "user", u.Username)
		return common.ErrWrongCurrentPassword
	}
	if err := s.checkPassphrase(u.Username, next); err != nil {
		return err
	}

	kdf := s.currentKDF()
	h, err := s.crypto.HashPassword([]byte(next), nil, kdf.PBKDF2Iterations)
	if err != nil {
		return err
	}
	newKey, err := s.crypto.DeriveKey([]byte(next), h.Salt, kdf.Scrypt)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(newKey)

	var n int
	err = sess.withKey(func(oldKey []byte) error {
		return s.store.Atomic(ctx, func(ctx context.Context, tx store.CredentialStore) error {
			var err error
			n, err = s.rekey(ctx, tx, u.ID, oldKey, newKey)
			if err != nil {
				return err
			}
			if err := tx.UpdateUserCredentials(ctx, u.ID, h.Hash, h.Salt, kdf); err != nil {
				return err
			}
			return s.audit(ctx, tx, u.ID, models.ActionChangeMasterPassword,
				fmt.Sprintf("re-encrypted %d entries", n))
		})
	})
	if err != nil {
		return err
	}

	sess.key = memguard.NewEnclave(newKey)
	s.log.Info(ctx, "master password changed", "user", u.Username, "entries", n)
	return nil
}

func (s *Service) rekey(ctx context.Context, tx store.CredentialStore, ownerID string, oldKey, newKey []byte) (int, error) {
	entries, err := tx.ListEntries(ctx, ownerID, "")
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		pw, err := s.reseal(e.Password, oldKey, newKey)
		if err != nil {
			return 0, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		var notes *cryptox.Sealed
		if e.Notes != nil {
			sealed, err := s.reseal(*e.Notes, oldKey, newKey)
			if err != nil {
				return 0, fmt.Errorf("entry %s notes: %w", e.ID, err)
			}
			notes = &sealed
		}
		if err := tx.ReplaceEnvelopes(ctx, ownerID, e.ID, pw, notes); err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}

func (s *Service) reseal(in cryptox.Sealed, oldKey, newKey []byte) (cryptox.Sealed, error) {
	plain, err := s.crypto.Decrypt(in, oldKey)
	if err != nil {
		return cryptox.Sealed{}, err
	}
	defer common.WipeByteArray(plain)
	return s.crypto.Encrypt(plain, newKey)
}

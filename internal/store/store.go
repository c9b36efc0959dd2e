// Package store is the vault's credential store: persistence of master
// users, entries, settings, the audit trail and failed login attempts.
//
// SQLStore implements CredentialStore over a RepositoryManager. Every
// driver failure is reported as common.ErrPersistence; missing rows as
// common.ErrNotFound. Multi-statement units run through Atomic.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/models"
	"github.com/dmitrijs2005/passvault/internal/repositories/repomanager"
)

// CredentialStore is what the vault needs from persistence.
type CredentialStore interface {
	CreateUser(ctx context.Context, u *models.MasterUser, defaults models.Settings) error
	FindUserByUsername(ctx context.Context, username string) (*models.MasterUser, error)
	FindUserByID(ctx context.Context, id string) (*models.MasterUser, error)
	UpdateUserCredentials(ctx context.Context, userID string, hash, salt []byte, kdf models.KDFParams) error

	GetSettings(ctx context.Context, ownerID string) (*models.Settings, error)
	UpsertSettings(ctx context.Context, s models.Settings) error

	InsertEntry(ctx context.Context, e *models.Entry) error
	GetEntry(ctx context.Context, ownerID, id string) (*models.Entry, error)
	ListEntries(ctx context.Context, ownerID, category string) ([]*models.Entry, error)
	ListCategories(ctx context.Context, ownerID string) ([]string, error)
	UpdateEntry(ctx context.Context, ownerID, id string, p models.EntryPatch) (bool, error)
	ReplaceEnvelopes(ctx context.Context, ownerID, id string, password cryptox.Sealed, notes *cryptox.Sealed) error
	TouchEntry(ctx context.Context, ownerID, id string, at time.Time) error
	DeleteEntry(ctx context.Context, ownerID, id string) (bool, error)

	AppendAuditLog(ctx context.Context, e *models.AuditLogEntry) error
	ListAuditLogs(ctx context.Context, ownerID string, limit int) ([]models.AuditLogEntry, error)

	CountRecentFailedAttempts(ctx context.Context, username string, since time.Time) (int, error)
	RecordFailedAttempt(ctx context.Context, username string, at time.Time) error
	ClearFailedAttempts(ctx context.Context, username string) error
	PruneFailedAttempts(ctx context.Context, before time.Time) (int64, error)

	// Atomic runs fn against a store bound to one transaction. Nothing fn
	// wrote is visible unless fn returns nil.
	Atomic(ctx context.Context, fn func(ctx context.Context, s CredentialStore) error) error
}

type SQLStore struct {
	db   *sql.DB
	conn dbx.DBTX
	rm   repomanager.RepositoryManager
	inTx bool
}

func NewSQLStore(db *sql.DB, rm repomanager.RepositoryManager) *SQLStore {
	return &SQLStore{db: db, conn: db, rm: rm}
}

// wrap passes sentinel errors through and marks everything else as a
// persistence failure.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrUsernameTaken):
		return err
	default:
		return common.Persistence(op, err)
	}
}

func (s *SQLStore) Atomic(ctx context.Context, fn func(ctx context.Context, s CredentialStore) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	var fnErr error
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		fnErr = fn(ctx, &SQLStore{db: s.db, conn: tx, rm: s.rm, inTx: true})
		return fnErr
	})
	if err != nil && fnErr == nil {
		// begin or commit failed
		return common.Persistence("transaction", err)
	}
	return err
}

// CreateUser inserts u and its settings row in one transaction.
func (s *SQLStore) CreateUser(ctx context.Context, u *models.MasterUser, defaults models.Settings) error {
	return s.Atomic(ctx, func(ctx context.Context, cs CredentialStore) error {
		tx := cs.(*SQLStore)
		if err := s.rm.Users(tx.conn).Create(ctx, u); err != nil {
			return wrap("create user", err)
		}
		defaults.OwnerID = u.ID
		return wrap("create settings", s.rm.Settings(tx.conn).Upsert(ctx, defaults))
	})
}

func (s *SQLStore) FindUserByUsername(ctx context.Context, username string) (*models.MasterUser, error) {
	u, err := s.rm.Users(s.conn).GetByUsername(ctx, username)
	return u, wrap("find user", err)
}

func (s *SQLStore) FindUserByID(ctx context.Context, id string) (*models.MasterUser, error) {
	u, err := s.rm.Users(s.conn).GetByID(ctx, id)
	return u, wrap("find user", err)
}

func (s *SQLStore) UpdateUserCredentials(ctx context.Context, userID string, hash, salt []byte, kdf models.KDFParams) error {
	return wrap("update credentials", s.rm.Users(s.conn).UpdateCredentials(ctx, userID, hash, salt, kdf))
}

func (s *SQLStore) GetSettings(ctx context.Context, ownerID string) (*models.Settings, error) {
	st, err := s.rm.Settings(s.conn).Get(ctx, ownerID)
	return st, wrap("get settings", err)
}

func (s *SQLStore) UpsertSettings(ctx context.Context, st models.Settings) error {
	return wrap("upsert settings", s.rm.Settings(s.conn).Upsert(ctx, st))
}

func (s *SQLStore) InsertEntry(ctx context.Context, e *models.Entry) error {
	return wrap("insert entry", s.rm.Entries(s.conn).Create(ctx, e))
}

func (s *SQLStore) GetEntry(ctx context.Context, ownerID, id string) (*models.Entry, error) {
	e, err := s.rm.Entries(s.conn).Get(ctx, ownerID, id)
	return e, wrap("get entry", err)
}

func (s *SQLStore) ListEntries(ctx context.Context, ownerID, category string) ([]*models.Entry, error) {
	es, err := s.rm.Entries(s.conn).List(ctx, ownerID, category)
	return es, wrap("list entries", err)
}

func (s *SQLStore) ListCategories(ctx context.Context, ownerID string) ([]string, error) {
	cs, err := s.rm.Entries(s.conn).Categories(ctx, ownerID)
	return cs, wrap("list categories", err)
}

func (s *SQLStore) UpdateEntry(ctx context.Context, ownerID, id string, p models.EntryPatch) (bool, error) {
	ok, err := s.rm.Entries(s.conn).Update(ctx, ownerID, id, p)
	return ok, wrap("update entry", err)
}

func (s *SQLStore) ReplaceEnvelopes(ctx context.Context, ownerID, id string, password cryptox.Sealed, notes *cryptox.Sealed) error {
	return wrap("replace envelopes", s.rm.Entries(s.conn).ReplaceSecrets(ctx, ownerID, id, password, notes))
}

func (s *SQLStore) TouchEntry(ctx context.Context, ownerID, id string, at time.Time) error {
	return wrap("touch entry", s.rm.Entries(s.conn).Touch(ctx, ownerID, id, at))
}

func (s *SQLStore) DeleteEntry(ctx context.Context, ownerID, id string) (bool, error) {
	ok, err := s.rm.Entries(s.conn).Delete(ctx, ownerID, id)
	return ok, wrap("delete entry", err)
}

func (s *SQLStore) AppendAuditLog(ctx context.Context, e *models.AuditLogEntry) error {
	return wrap("append audit log", s.rm.AuditLog(s.conn).Append(ctx, e))
}

func (s *SQLStore) ListAuditLogs(ctx context.Context, ownerID string, limit int) ([]models.AuditLogEntry, error) {
	es, err := s.rm.AuditLog(s.conn).List(ctx, ownerID, limit)
	return es, wrap("list audit log", err)
}

func (s *SQLStore) CountRecentFailedAttempts(ctx context.Context, username string, since time.Time) (int, error) {
	n, err := s.rm.Attempts(s.conn).CountSince(ctx, username, since)
	return n, wrap("count failed attempts", err)
}

func (s *SQLStore) RecordFailedAttempt(ctx context.Context, username string, at time.Time) error {
	return wrap("record failed attempt", s.rm.Attempts(s.conn).Record(ctx, username, at))
}

func (s *SQLStore) ClearFailedAttempts(ctx context.Context, username string) error {
	return wrap("clear failed attempts", s.rm.Attempts(s.conn).Clear(ctx, username))
}

func (s *SQLStore) PruneFailedAttempts(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.rm.Attempts(s.conn).PruneBefore(ctx, before)
	return n, wrap("prune failed attempts", err)
}

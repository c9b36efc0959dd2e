// Package vault is the session layer of the password vault. A Service owns
// at most one unlocked session at a time: it authenticates the master user,
// enforces the failed-login lockout, keeps the derived data key in guarded
// memory, locks itself after the configured idle time and mediates every
// entry operation through the credential store.
//
// Every exported method is safe for concurrent use. Login holds the service
// lock until the session is fully established, so entry operations issued
// while a login is in flight wait for it instead of observing a half-built
// session.
package vault

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/config"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/exportcodec"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/models"
	"github.com/dmitrijs2005/passvault/internal/store"
	"github.com/dmitrijs2005/passvault/internal/timex"
	"github.com/google/uuid"
)

// State of a Service.
type State int32

const (
	Locked State = iota
	Authenticating
	Unlocked
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Authenticating:
		return "authenticating"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// Crypto is the set of primitives the vault needs; cryptox.Core implements it.
type Crypto interface {
	DeriveKey(passphrase, salt []byte, p cryptox.ScryptParams) ([]byte, error)
	HashPassword(passphrase, salt []byte, iterations int) (cryptox.PasswordHash, error)
	VerifyPassword(passphrase, hash, salt []byte, iterations int) bool
	Encrypt(plaintext, key []byte) (cryptox.Sealed, error)
	Decrypt(s cryptox.Sealed, key []byte) ([]byte, error)
}

// Clipboard is where CopyPassword puts secrets; *clipboard.Guard implements it.
type Clipboard interface {
	Copy(text string, timeout time.Duration) error
	Clear() error
}

var ErrNoClipboard = errors.New("no clipboard available")

// SessionInfo describes the unlocked session. It never carries key material.
type SessionInfo struct {
	UserID    string
	Username  string
	StartedAt time.Time
	Settings  models.Settings
}

type session struct {
	info  SessionInfo
	key   *memguard.Enclave
	gen   uint64
	timer timex.Timer
}

type Service struct {
	store  store.CredentialStore
	cfg    *config.Config
	log    logging.Logger
	crypto Crypto
	clip   Clipboard
	codec  *exportcodec.Codec

	now       func() time.Time
	afterFunc timex.AfterFunc
	newID     func() string

	state atomic.Int32

	mu       sync.Mutex
	sess     *session
	gen      uint64
	timerSeq uint64
}

type Option func(*Service)

func WithCrypto(c Crypto) Option {
	return func(s *Service) { s.crypto = c }
}

func WithClipboard(c Clipboard) Option {
	return func(s *Service) { s.clip = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAfterFunc replaces the timer used for auto-lock.
func WithAfterFunc(f timex.AfterFunc) Option {
	return func(s *Service) { s.afterFunc = f }
}

func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

func WithCodec(c *exportcodec.Codec) Option {
	return func(s *Service) { s.codec = c }
}

func NewService(st store.CredentialStore, cfg *config.Config, logger logging.Logger, opts ...Option) *Service {
	s := &Service{
		store:     st,
		cfg:       cfg,
		log:       logger,
		crypto:    cryptox.Core{},
		now:       time.Now,
		afterFunc: timex.RealAfterFunc,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	if s.codec == nil {
		s.codec = exportcodec.New(exportcodec.WithClock(s.now))
	}
	return s
}

// State reports the current state without waiting for an in-flight login.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Session returns the active session, if any.
func (s *Service) Session() (SessionInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return SessionInfo{}, false
	}
	return s.sess.info, true
}

// active returns the unlocked session or ErrNotAuthenticated. Callers hold mu.
func (s *Service) active() (*session, error) {
	if s.sess == nil {
		return nil, common.ErrNotAuthenticated
	}
	return s.sess, nil
}

// withKey opens the session key into locked memory for the duration of fn.
func (sess *session) withKey(fn func(key []byte) error) error {
	buf, err := sess.key.Open()
	if err != nil {
		return err
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}

func (s *Service) audit(ctx context.Context, st store.CredentialStore, ownerID, action, details string) error {
	return st.AppendAuditLog(ctx, &models.AuditLogEntry{
		OwnerID:   ownerID,
		Action:    action,
		Details:   details,
		Timestamp: s.now().UTC(),
	})
}

func (s *Service) defaultSettings() models.Settings {
	return models.Settings{
		ClipboardTimeoutSeconds: int(s.cfg.DefaultClipboardTimeout / time.Second),
		AutoLockTimeoutSeconds:  int(s.cfg.DefaultAutoLockTimeout / time.Second),
		Theme:                   s.cfg.DefaultTheme,
		Language:                s.cfg.DefaultLanguage,
	}
}

package vault

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/config"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/models"
	"github.com/dmitrijs2005/passvault/internal/repositories/repomanager"
	"github.com/dmitrijs2005/passvault/internal/store"
	"github.com/dmitrijs2005/passvault/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type countingCrypto struct {
	cryptox.Core
	derive atomic.Int32
	hash   atomic.Int32
	verify atomic.Int32
}

func (c *countingCrypto) DeriveKey(passphrase, salt []byte, p cryptox.ScryptParams) ([]byte, error) {
	c.derive.Add(1)
	return c.Core.DeriveKey(passphrase, salt, p)
}

func (c *countingCrypto) HashPassword(passphrase, salt []byte, iterations int) (cryptox.PasswordHash, error) {
	c.hash.Add(1)
	return c.Core.HashPassword(passphrase, salt, iterations)
}

func (c *countingCrypto) VerifyPassword(passphrase, hash, salt []byte, iterations int) bool {
	c.verify.Add(1)
	return c.Core.VerifyPassword(passphrase, hash, salt, iterations)
}

func (c *countingCrypto) kdfCalls() int32 {
	return c.derive.Load() + c.hash.Load() + c.verify.Load()
}

type copyCall struct {
	text    string
	timeout time.Duration
}

type fakeClipboard struct {
	mu     sync.Mutex
	copies []copyCall
	clears int
}

func (f *fakeClipboard) Copy(text string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies = append(f.copies, copyCall{text, timeout})
	return nil
}

func (f *fakeClipboard) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return nil
}

type harness struct {
	svc    *Service
	store  *store.SQLStore
	clock  *fakeClock
	timers *timex.ManualTimers
	crypto *countingCrypto
	clip   *fakeClipboard
	cfg    *config.Config
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = ":memory:"
	cfg.Scrypt = cryptox.ScryptParams{N: 1 << 14, R: 8, P: 1}
	cfg.PBKDF2Iterations = cryptox.MinPBKDF2Iterations
	return cfg
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	ctx := context.Background()

	db, rm, err := repomanager.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	h := &harness{
		store:  store.NewSQLStore(db, rm),
		clock:  &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		timers: &timex.ManualTimers{},
		crypto: &countingCrypto{},
		clip:   &fakeClipboard{},
		cfg:    cfg,
	}
	h.svc = NewService(h.store, cfg, logging.Nop(),
		WithCrypto(h.crypto),
		WithClipboard(h.clip),
		WithClock(h.clock.Now),
		WithAfterFunc(h.timers.AfterFunc),
	)
	t.Cleanup(func() { _ = h.svc.Logout(context.Background()) })
	return h
}

// unlocked registers and logs in a user.
func (h *harness) unlocked(t *testing.T, username, passphrase string) string {
	t.Helper()
	ctx := context.Background()
	id, err := h.svc.Register(ctx, username, passphrase)
	require.NoError(t, err)
	require.NoError(t, h.svc.Login(ctx, username, passphrase))
	return id
}

func (h *harness) actions(t *testing.T, ownerID string) []string {
	t.Helper()
	logs, err := h.store.ListAuditLogs(context.Background(), ownerID, 100)
	require.NoError(t, err)
	out := make([]string, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		out = append(out, logs[i].Action)
	}
	return out
}

func TestScenario_RegisterLoginAddGetLogout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.Equal(t, Locked, h.svc.State())
	uid := h.unlocked(t, "alice", "correct-horse-battery")
	assert.Equal(t, Unlocked, h.svc.State())

	id, err := h.svc.AddEntry(ctx, models.EntryFields{Title: "Mail", Password: "p@ss"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := h.svc.GetEntry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "p@ss", got.Password)
	assert.Equal(t, "general", got.Category)
	require.NotNil(t, got.LastAccessed)

	require.NoError(t, h.svc.Logout(ctx))
	assert.Equal(t, Locked, h.svc.State())

	_, err = h.svc.GetEntry(ctx, id)
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
	assert.ErrorIs(t, err, common.ErrAuthentication)

	assert.Equal(t, []string{models.ActionLogin, models.ActionAddPassword, models.ActionLogout}, h.actions(t, uid))
}

func TestRegister_Validation(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.MinPassphraseScore = 3 })
	ctx := context.Background()

	_, err := h.svc.Register(ctx, "  ", "gV7#qL9!zR2@wX5$")
	assert.ErrorIs(t, err, common.ErrMissingUsername)

	_, err = h.svc.Register(ctx, "alice", "")
	assert.ErrorIs(t, err, common.ErrMissingPassphrase)

	_, err = h.svc.Register(ctx, "alice", "password")
	assert.ErrorIs(t, err, common.ErrWeakPassphrase)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = h.svc.Register(ctx, "alice", "gV7#qL9!zR2@wX5$")
	require.NoError(t, err)

	_, err = h.svc.Register(ctx, "alice", "gV7#qL9!zR2@wX5$")
	assert.ErrorIs(t, err, common.ErrUsernameTaken)
}

func TestRegister_StoresCredentialsAndDefaults(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id, err := h.svc.Register(ctx, "alice", "correct-horse-battery")
	require.NoError(t, err)
	assert.Equal(t, Locked, h.svc.State(), "registration does not unlock")

	u, err := h.store.FindUserByID(ctx, id)
	require.NoError(t, err)
	assert.Len(t, u.PasswordSalt, cryptox.SaltSize)
	assert.Len(t, u.PasswordHash, cryptox.HashSize)
	assert.Equal(t, h.cfg.Scrypt, u.KDF.Scrypt)
	assert.Equal(t, h.cfg.PBKDF2Iterations, u.KDF.PBKDF2Iterations)

	st, err := h.store.GetSettings(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 30, st.ClipboardTimeoutSeconds)
	assert.Equal(t, 300, st.AutoLockTimeoutSeconds)
	assert.Equal(t, "dark", st.Theme)
	assert.Equal(t, "ar", st.Language)
}

func TestLogin_UnknownUserAndWrongPasswordLookAlike(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Register(ctx, "alice", "correct-horse-battery")
	require.NoError(t, err)

	errWrong := h.svc.Login(ctx, "alice", "nope")
	errUnknown := h.svc.Login(ctx, "mallory", "nope")
	require.ErrorIs(t, errWrong, common.ErrInvalidCredentials)
	require.ErrorIs(t, errUnknown, common.ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
	assert.Equal(t, Locked, h.svc.State())

	n, err := h.store.CountRecentFailedAttempts(ctx, "mallory", h.clock.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLogin_UsernameTrimmedLikeRegister(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Register(ctx, " alice ", "correct-horse-battery")
	require.NoError(t, err)

	require.NoError(t, h.svc.Login(ctx, " alice ", "correct-horse-battery"))
	info, ok := h.svc.Session()
	require.True(t, ok)
	assert.Equal(t, "alice", info.Username)
	require.NoError(t, h.svc.Logout(ctx))

	require.ErrorIs(t, h.svc.Login(ctx, "alice\t", "wrong"), common.ErrInvalidCredentials)
	n, err := h.store.CountRecentFailedAttempts(ctx, "alice", h.clock.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "failures count against the trimmed name")

	n, err = h.store.CountRecentFailedAttempts(ctx, "alice\t", h.clock.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLogin_LockoutSkipsKeyDerivation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Register(ctx, "alice", "correct-horse-battery")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.ErrorIs(t, h.svc.Login(ctx, "alice", "wrong"), common.ErrInvalidCredentials)
		h.clock.Advance(time.Minute)
	}

	before := h.crypto.kdfCalls()
	err = h.svc.Login(ctx, "alice", "correct-horse-battery")
	assert.ErrorIs(t, err, common.ErrTooManyAttempts)
	assert.ErrorIs(t, err, common.ErrLockout)
	assert.Equal(t, before, h.crypto.kdfCalls(), "lockout must not reach the KDF")
	assert.Equal(t, Locked, h.svc.State())

	// the first failure leaves the window after an hour
	h.clock.Advance(56 * time.Minute)
	require.NoError(t, h.svc.Login(ctx, "alice", "correct-horse-battery"))

	n, err := h.store.CountRecentFailedAttempts(ctx, "alice", h.clock.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "success clears failed attempts")
}

func TestLogin_PrunesOldAttempts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.store.RecordFailedAttempt(ctx, "ghost", h.clock.Now().Add(-25*time.Hour)))
	require.ErrorIs(t, h.svc.Login(ctx, "ghost", "x"), common.ErrInvalidCredentials)

	n, err := h.store.CountRecentFailedAttempts(ctx, "ghost", time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLogin_ReplacesPreviousSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	aliceID := h.unlocked(t, "alice", "correct-horse-battery")
	_, err := h.svc.Register(ctx, "bob", "tr0ub4dor-and-3")
	require.NoError(t, err)

	require.NoError(t, h.svc.Login(ctx, "bob", "tr0ub4dor-and-3"))
	info, ok := h.svc.Session()
	require.True(t, ok)
	assert.Equal(t, "bob", info.Username)
	assert.Equal(t, []string{models.ActionLogin, models.ActionLogout}, h.actions(t, aliceID))
}

func TestSessionIsolation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	aliceID := h.unlocked(t, "alice", "correct-horse-battery")
	entryID, err := h.svc.AddEntry(ctx, models.EntryFields{Title: "Mail", Password: "alice-secret"})
	require.NoError(t, err)
	require.NoError(t, h.svc.Logout(ctx))

	h.unlocked(t, "bob", "tr0ub4dor-and-3")

	_, err = h.svc.GetEntry(ctx, entryID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	stored, err := h.store.GetEntry(ctx, aliceID, entryID)
	require.NoError(t, err)
	_, err = h.svc.open(h.svc.sess, stored)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed, "bob's key must not open alice's envelope")
}

func TestLogout_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid := h.unlocked(t, "alice", "correct-horse-battery")

	require.NoError(t, h.svc.Logout(ctx))
	require.NoError(t, h.svc.Logout(ctx))
	require.NoError(t, h.svc.Lock(ctx))

	assert.Equal(t, []string{models.ActionLogin, models.ActionLogout}, h.actions(t, uid))
	assert.Equal(t, 1, h.clip.clears)
	assert.Zero(t, h.timers.Active())
	_, ok := h.svc.Session()
	assert.False(t, ok)
}

func TestAutoLock_Fires(t *testing.T) {
	h := newHarness(t)
	uid := h.unlocked(t, "alice", "correct-horse-battery")

	require.Equal(t, 1, h.timers.Len())
	assert.Equal(t, 300*time.Second, h.timers.Duration(0))

	h.timers.FireLast()
	assert.Equal(t, Locked, h.svc.State())
	assert.Equal(t, 1, h.clip.clears)

	logs, err := h.store.ListAuditLogs(context.Background(), uid, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ActionLogout, logs[0].Action)
	assert.Equal(t, "auto-lock", logs[0].Details)
}

func TestAutoLock_StaleTimerIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid := h.unlocked(t, "alice", "correct-horse-battery")

	require.NoError(t, h.svc.Logout(ctx))
	require.NoError(t, h.svc.Login(ctx, "alice", "correct-horse-battery"))
	require.Equal(t, 2, h.timers.Len())

	// timer of the first session fires late
	h.timers.Fire(0)
	assert.Equal(t, Unlocked, h.svc.State())
	assert.Equal(t, []string{models.ActionLogin, models.ActionLogout, models.ActionLogin}, h.actions(t, uid))

	h.timers.Fire(1)
	assert.Equal(t, Locked, h.svc.State())
	// firing again after the lock is a no-op
	h.timers.Fire(1)
	assert.Equal(t, []string{models.ActionLogin, models.ActionLogout, models.ActionLogin, models.ActionLogout}, h.actions(t, uid))
}

func TestResetAutoLock(t *testing.T) {
	h := newHarness(t)
	h.unlocked(t, "alice", "correct-horse-battery")

	require.NoError(t, h.svc.ResetAutoLock())
	require.Equal(t, 2, h.timers.Len())
	assert.Equal(t, 1, h.timers.Active())

	h.timers.Fire(0)
	assert.Equal(t, Unlocked, h.svc.State(), "superseded timer must not lock")

	h.timers.Fire(1)
	assert.Equal(t, Locked, h.svc.State())

	assert.ErrorIs(t, h.svc.ResetAutoLock(), common.ErrNotAuthenticated)
}

func TestUpdateSettings_RearmsAutoLock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid := h.unlocked(t, "alice", "correct-horse-battery")

	clip := 10
	st, err := h.svc.UpdateSettings(ctx, models.SettingsUpdate{ClipboardTimeoutSeconds: &clip})
	require.NoError(t, err)
	assert.Equal(t, 10, st.ClipboardTimeoutSeconds)
	assert.Equal(t, 1, h.timers.Len(), "clipboard change keeps the timer")

	lock := 60
	_, err = h.svc.UpdateSettings(ctx, models.SettingsUpdate{AutoLockTimeoutSeconds: &lock})
	require.NoError(t, err)
	require.Equal(t, 2, h.timers.Len())
	assert.Equal(t, time.Minute, h.timers.Duration(1))
	assert.Equal(t, 1, h.timers.Active())

	h.timers.Fire(0)
	assert.Equal(t, Unlocked, h.svc.State())
	h.timers.Fire(1)
	assert.Equal(t, Locked, h.svc.State())

	stored, err := h.store.GetSettings(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 60, stored.AutoLockTimeoutSeconds)
	assert.Equal(t, 10, stored.ClipboardTimeoutSeconds)

	// the next login picks the stored values up
	require.NoError(t, h.svc.Login(ctx, "alice", "correct-horse-battery"))
	assert.Equal(t, time.Minute, h.timers.Duration(2))
	got, err := h.svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, got.ClipboardTimeoutSeconds)
}

func TestUpdateSettings_Validation(t *testing.T) {
	h := newHarness(t)
	h.unlocked(t, "alice", "correct-horse-battery")

	zero := 0
	_, err := h.svc.UpdateSettings(context.Background(), models.SettingsUpdate{AutoLockTimeoutSeconds: &zero})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = h.svc.UpdateSettings(context.Background(), models.SettingsUpdate{ClipboardTimeoutSeconds: &zero})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestChangeMasterPassword_WrongCurrent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid := h.unlocked(t, "alice", "correct-horse-battery")

	before, err := h.store.FindUserByID(ctx, uid)
	require.NoError(t, err)

	err = h.svc.ChangeMasterPassword(ctx, "not-it", "brand-new-passphrase")
	assert.ErrorIs(t, err, common.ErrWrongCurrentPassword)

	after, err := h.store.FindUserByID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
	assert.Equal(t, before.PasswordSalt, after.PasswordSalt)
}

func TestChangeMasterPassword_ReencryptsEntries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid := h.unlocked(t, "alice", "correct-horse-battery")

	id1, err := h.svc.AddEntry(ctx, models.EntryFields{Title: "Mail", Password: "p@ss", Notes: "recovery codes"})
	require.NoError(t, err)
	id2, err := h.svc.AddEntry(ctx, models.EntryFields{Title: "Bank", Password: "1234"})
	require.NoError(t, err)

	oldRow, err := h.store.GetEntry(ctx, uid, id1)
	require.NoError(t, err)

	require.NoError(t, h.svc.ChangeMasterPassword(ctx, "correct-horse-battery", "brand-new-passphrase"))

	newRow, err := h.store.GetEntry(ctx, uid, id1)
	require.NoError(t, err)
	assert.NotEqual(t, oldRow.Password.Nonce, newRow.Password.Nonce)

	// the live session already uses the new key
	e, err := h.svc.GetEntry(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "recovery codes", e.Notes)

	require.NoError(t, h.svc.Logout(ctx))
	assert.ErrorIs(t, h.svc.Login(ctx, "alice", "correct-horse-battery"), common.ErrInvalidCredentials)
	require.NoError(t, h.svc.Login(ctx, "alice", "brand-new-passphrase"))

	e, err = h.svc.GetEntry(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, "1234", e.Password)
	e, err = h.svc.GetEntry(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "p@ss", e.Password)

	assert.Contains(t, h.actions(t, uid), models.ActionChangeMasterPassword)
}

func TestChangeMasterPassword_FailureKeepsOldKey(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid := h.unlocked(t, "alice", "correct-horse-battery")

	good, err := h.svc.AddEntry(ctx, models.EntryFields{Title: "Good", Password: "fine"})
	require.NoError(t, err)
	bad, err := h.svc.AddEntry(ctx, models.EntryFields{Title: "Bad", Password: "broken"})
	require.NoError(t, err)

	row, err := h.store.GetEntry(ctx, uid, bad)
	require.NoError(t, err)
	row.Password.Tag[0] ^= 0xff
	require.NoError(t, h.store.ReplaceEnvelopes(ctx, uid, bad, row.Password, nil))

	before, err := h.store.FindUserByID(ctx, uid)
	require.NoError(t, err)

	err = h.svc.ChangeMasterPassword(ctx, "correct-horse-battery", "brand-new-passphrase")
	require.ErrorIs(t, err, common.ErrDecryptionFailed)

	after, err := h.store.FindUserByID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordSalt, after.PasswordSalt)

	e, err := h.svc.GetEntry(ctx, good)
	require.NoError(t, err)
	assert.Equal(t, "fine", e.Password)
	assert.NotContains(t, h.actions(t, uid), models.ActionChangeMasterPassword)
}

func TestLockedServiceRejectsEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["add"] = h.svc.AddEntry(ctx, models.EntryFields{Title: "x", Password: "y"})
	_, checks["get"] = h.svc.GetEntry(ctx, "id")
	_, checks["update"] = h.svc.UpdateEntry(ctx, "id", models.EntryUpdate{})
	_, checks["delete"] = h.svc.DeleteEntry(ctx, "id")
	_, checks["list"] = h.svc.ListEntries(ctx, "")
	_, checks["categories"] = h.svc.ListCategories(ctx)
	checks["copy"] = h.svc.CopyPassword(ctx, "id")
	checks["passwd"] = h.svc.ChangeMasterPassword(ctx, "a", "b")
	_, checks["settings"] = h.svc.GetSettings(ctx)
	_, checks["update settings"] = h.svc.UpdateSettings(ctx, models.SettingsUpdate{})
	_, checks["audit"] = h.svc.ListAuditLogs(ctx, 0)
	_, checks["export"] = h.svc.Export(ctx, "X")
	_, checks["import"] = h.svc.Import(ctx, nil, "X")

	for name, err := range checks {
		assert.ErrorIs(t, err, common.ErrNotAuthenticated, name)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "locked", Locked.String())
	assert.Equal(t, "authenticating", Authenticating.String())
	assert.Equal(t, "unlocked", Unlocked.String())
	assert.Equal(t, "unknown", State(9).String())
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/passvault/internal/exportcodec"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/models"
	"github.com/dmitrijs2005/passvault/internal/vault"
)

// Vault is the session API the client drives; *vault.Service implements it.
type Vault interface {
	State() vault.State
	Session() (vault.SessionInfo, bool)

	Register(ctx context.Context, username, passphrase string) (string, error)
	Login(ctx context.Context, username, passphrase string) error
	Logout(ctx context.Context) error
	ResetAutoLock() error
	ChangeMasterPassword(ctx context.Context, current, next string) error

	AddEntry(ctx context.Context, f models.EntryFields) (string, error)
	GetEntry(ctx context.Context, id string) (*models.EntryPlaintext, error)
	UpdateEntry(ctx context.Context, id string, u models.EntryUpdate) (bool, error)
	DeleteEntry(ctx context.Context, id string) (bool, error)
	ListEntries(ctx context.Context, category string) ([]models.EntrySummary, error)
	ListCategories(ctx context.Context) ([]string, error)
	CopyPassword(ctx context.Context, id string) error
	GeneratePassphrase(length int) (string, error)

	GetSettings(ctx context.Context) (models.Settings, error)
	UpdateSettings(ctx context.Context, u models.SettingsUpdate) (models.Settings, error)
	ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLogEntry, error)

	ExportTo(ctx context.Context, dst exportcodec.Store, name, passphrase string) (string, error)
	ImportFrom(ctx context.Context, src exportcodec.Store, name, passphrase string) (vault.ImportResult, error)
}

type App struct {
	vault   Vault
	exports exportcodec.Store
	log     logging.Logger
	reader  *bufio.Reader
	out     io.Writer
}

func NewApp(v Vault, exports exportcodec.Store, logger logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		vault:   v,
		exports: exports,
		log:     logger,
		reader:  bufio.NewReader(in),
		out:     out,
	}
}

// Run blocks in the REPL until the user exits, then locks the vault.
func (a *App) Run(ctx context.Context) {
	a.println("passvault (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
	if err := a.vault.Logout(ctx); err != nil {
		a.log.Error(ctx, "logout on exit", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.vault.State() == vault.Unlocked
}

// touch restarts the auto-lock timer on user activity.
func (a *App) touch() {
	if a.isLoggedIn() {
		_ = a.vault.ResetAutoLock()
	}
}

func (a *App) status() string {
	if info, ok := a.vault.Session(); ok {
		return info.Username
	}
	return "locked"
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) text(prompt string) (string, error) {
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) secret(prompt string) ([]byte, error) {
	return GetPassword(a.reader, prompt, a.out)
}

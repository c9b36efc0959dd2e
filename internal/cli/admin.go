package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/models"
)

// Settings shows the preferences, or changes one with
// "settings set <clipboard|autolock|theme|language> <value>".
func (a *App) Settings(ctx context.Context, args []string) error {
	if len(args) == 0 {
		s, err := a.vault.GetSettings(ctx)
		if err != nil {
			return err
		}
		a.printSettings(s)
		return nil
	}
	if len(args) != 3 || args[0] != "set" {
		return fmt.Errorf("%w: settings [set <key> <value>]", errUsage)
	}

	var u models.SettingsUpdate
	key, value := args[1], args[2]
	switch key {
	case "clipboard", "autolock":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number of seconds", common.ErrValidation, key)
		}
		if key == "clipboard" {
			u.ClipboardTimeoutSeconds = &n
		} else {
			u.AutoLockTimeoutSeconds = &n
		}
	case "theme":
		u.Theme = &value
	case "language":
		u.Language = &value
	default:
		return fmt.Errorf("%w: unknown setting %q", common.ErrValidation, key)
	}

	s, err := a.vault.UpdateSettings(ctx, u)
	if err != nil {
		return err
	}
	a.printSettings(s)
	return nil
}

func (a *App) printSettings(s models.Settings) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "clipboard\t%ds\n", s.ClipboardTimeoutSeconds)
	fmt.Fprintf(tw, "autolock\t%ds\n", s.AutoLockTimeoutSeconds)
	fmt.Fprintf(tw, "theme\t%s\n", s.Theme)
	fmt.Fprintf(tw, "language\t%s\n", s.Language)
	_ = tw.Flush()
}

func (a *App) Audit(ctx context.Context, args []string) error {
	limit := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: audit [limit]", errUsage)
		}
		limit = n
	}
	logs, err := a.vault.ListAuditLogs(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, l := range logs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Timestamp.Local().Format("2006-01-02 15:04:05"), l.Action, l.Details)
	}
	return tw.Flush()
}

// Export writes an encrypted backup protected by a separate passphrase.
func (a *App) Export(ctx context.Context, args []string) error {
	name, err := oneArg(args, "export <name>")
	if err != nil {
		return err
	}
	if !a.isLoggedIn() {
		return common.ErrNotAuthenticated
	}
	pass, err := a.newSecret("export passphrase")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	loc, err := a.vault.ExportTo(ctx, a.exports, name, string(pass))
	if err != nil {
		return err
	}
	a.println("Exported to", loc)
	return nil
}

func (a *App) Import(ctx context.Context, args []string) error {
	name, err := oneArg(args, "import <name>")
	if err != nil {
		return err
	}
	if !a.isLoggedIn() {
		return common.ErrNotAuthenticated
	}
	pass, err := a.secret("Export passphrase")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	res, err := a.vault.ImportFrom(ctx, a.exports, name, string(pass))
	if err != nil {
		return err
	}
	a.printf("Imported %d entries, skipped %d.\n", res.Imported, res.Skipped)
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/models"
)

var errUsage = errors.New("usage")

func oneArg(args []string, usage string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: %s", errUsage, usage)
	}
	return args[0], nil
}

// Add prompts for the fields of a new entry. An empty password asks the
// vault to generate one.
func (a *App) Add(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrNotAuthenticated
	}

	var f models.EntryFields
	var err error
	for _, p := range []struct {
		prompt string
		dst    *string
	}{
		{"Title", &f.Title},
		{"Username (optional)", &f.Username},
		{"Email (optional)", &f.Email},
		{"URL (optional)", &f.URL},
		{"Category (optional)", &f.Category},
	} {
		if *p.dst, err = a.text(p.prompt); err != nil {
			return err
		}
	}

	pw, err := a.secret("Password (empty to generate)")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	f.Password = string(pw)
	if f.Password == "" {
		if f.Password, err = a.vault.GeneratePassphrase(0); err != nil {
			return err
		}
		a.println("Generated a password; use 'copy' to put it on the clipboard.")
	}

	if f.Notes, err = GetMultiline(a.reader, "Notes (optional)", a.out); err != nil {
		return err
	}

	id, err := a.vault.AddEntry(ctx, f)
	if err != nil {
		return err
	}
	a.println("Added entry", id)
	return nil
}

func (a *App) Get(ctx context.Context, args []string) error {
	id, err := oneArg(args, "get <id>")
	if err != nil {
		return err
	}
	e, err := a.vault.GetEntry(ctx, id)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", e.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", e.Title)
	fmt.Fprintf(tw, "Username:\t%s\n", e.Username)
	fmt.Fprintf(tw, "Email:\t%s\n", e.Email)
	fmt.Fprintf(tw, "URL:\t%s\n", e.URL)
	fmt.Fprintf(tw, "Category:\t%s\n", e.Category)
	fmt.Fprintf(tw, "Password:\t%s\n", e.Password)
	if e.Notes != "" {
		fmt.Fprintf(tw, "Notes:\t%s\n", e.Notes)
	}
	fmt.Fprintf(tw, "Updated:\t%s\n", e.UpdatedAt.Local().Format("2006-01-02 15:04"))
	return tw.Flush()
}

func (a *App) List(ctx context.Context, args []string) error {
	category := ""
	if len(args) > 0 {
		category = args[0]
	}
	list, err := a.vault.ListEntries(ctx, category)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.println("No entries.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tUSERNAME\tCATEGORY")
	for _, e := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Title, e.Username, e.Category)
	}
	return tw.Flush()
}

// Update prompts for each field; an empty answer keeps the current value
// and "-" clears an optional one.
func (a *App) Update(ctx context.Context, args []string) error {
	id, err := oneArg(args, "update <id>")
	if err != nil {
		return err
	}
	cur, err := a.vault.GetEntry(ctx, id)
	if err != nil {
		return err
	}

	var u models.EntryUpdate
	for _, p := range []struct {
		name string
		cur  string
		dst  **string
	}{
		{"Title", cur.Title, &u.Title},
		{"Username", cur.Username, &u.Username},
		{"Email", cur.Email, &u.Email},
		{"URL", cur.URL, &u.URL},
		{"Category", cur.Category, &u.Category},
		{"Notes", cur.Notes, &u.Notes},
	} {
		v, err := a.text(fmt.Sprintf("%s [%s]", p.name, p.cur))
		if err != nil {
			return err
		}
		switch v {
		case "":
		case "-":
			empty := ""
			*p.dst = &empty
		default:
			*p.dst = &v
		}
	}

	pw, err := a.secret("New password (empty to keep)")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	if len(pw) > 0 {
		s := string(pw)
		u.Password = &s
	}
	if u.IsEmpty() {
		a.println("Nothing to change.")
		return nil
	}

	ok, err := a.vault.UpdateEntry(ctx, id, u)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrNotFound
	}
	a.println("Updated entry", id)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := oneArg(args, "delete <id>")
	if err != nil {
		return err
	}
	yes, err := Confirm(a.reader, "Delete entry "+id+"?", a.out)
	if err != nil || !yes {
		return err
	}
	ok, err := a.vault.DeleteEntry(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		a.println("No such entry.")
		return nil
	}
	a.println("Deleted entry", id)
	return nil
}

func (a *App) Copy(ctx context.Context, args []string) error {
	id, err := oneArg(args, "copy <id>")
	if err != nil {
		return err
	}
	if err := a.vault.CopyPassword(ctx, id); err != nil {
		return err
	}
	s, err := a.vault.GetSettings(ctx)
	if err != nil {
		return err
	}
	a.printf("Password copied; clipboard clears in %ds.\n", s.ClipboardTimeoutSeconds)
	return nil
}

func (a *App) Categories(ctx context.Context) error {
	cats, err := a.vault.ListCategories(ctx)
	if err != nil {
		return err
	}
	for _, c := range cats {
		a.println(c)
	}
	return nil
}

// Generate prints a random passphrase and its estimated strength (0..4).
func (a *App) Generate(ctx context.Context, args []string) error {
	length := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("%w: gen [length]", errUsage)
		}
		length = n
	}
	p, err := a.vault.GeneratePassphrase(length)
	if err != nil {
		return err
	}
	a.println(p)
	a.printf("strength: %d/4\n", cryptox.Strength(p))
	return nil
}

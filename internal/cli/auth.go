package cli

import (
	"bytes"
	"context"
	"errors"

	"github.com/dmitrijs2005/passvault/internal/common"
)

var errMismatch = errors.New("passwords do not match")

// newSecret reads a secret twice and returns it when both match.
func (a *App) newSecret(prompt string) ([]byte, error) {
	first, err := a.secret(prompt)
	if err != nil {
		return nil, err
	}
	second, err := a.secret("Repeat " + prompt)
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)
	if !bytes.Equal(first, second) {
		common.WipeByteArray(first)
		return nil, errMismatch
	}
	return first, nil
}

// Register prompts for a username and a confirmed master password and
// creates the vault user. It does not log in.
func (a *App) Register(ctx context.Context) error {
	username, err := a.text("Enter username")
	if err != nil {
		return err
	}
	password, err := a.newSecret("master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.vault.Register(ctx, username, string(password)); err != nil {
		return err
	}
	a.println("Registered. Use 'login' to unlock the vault.")
	return nil
}

// Login prompts for credentials and unlocks the vault.
func (a *App) Login(ctx context.Context) error {
	username, err := a.text("Enter username")
	if err != nil {
		return err
	}
	password, err := a.secret("Master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.vault.Login(ctx, username, string(password)); err != nil {
		return err
	}
	a.println("Vault unlocked.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.vault.Logout(ctx); err != nil {
		return err
	}
	a.println("Vault locked.")
	return nil
}

// ChangePassword re-keys the vault under a new master password.
func (a *App) ChangePassword(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrNotAuthenticated
	}
	current, err := a.secret("Current master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)
	next, err := a.newSecret("new master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	if err := a.vault.ChangeMasterPassword(ctx, string(current), string(next)); err != nil {
		return err
	}
	a.println("Master password changed.")
	return nil
}

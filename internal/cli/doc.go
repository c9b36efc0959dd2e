// Package cli provides the interactive passvault command-line client.
//
// It reads commands from a line-oriented REPL and drives a vault session:
// register and unlock a vault, manage entries, copy passwords to the
// clipboard, generate passphrases, change the master password, edit
// settings, review the audit log and export or import encrypted backups.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or input ends. Every command typed while unlocked restarts the vault's
// auto-lock timer.
package cli

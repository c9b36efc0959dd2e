package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for REPL output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to. The real
// App satisfies it; tests provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	touch()

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context) error

	Add(ctx context.Context) error
	Get(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Update(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Copy(ctx context.Context, args []string) error
	Categories(ctx context.Context) error
	Generate(ctx context.Context, args []string) error

	Settings(ctx context.Context, args []string) error
	Audit(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
}

const (
	helpLocked   = "Available commands: register, login, gen [length], exit"
	helpUnlocked = "Available commands: add, get <id>, (l)ist [category], update <id>, delete <id>, copy <id>, " +
		"categories, gen [length], settings [set <key> <value>], audit [limit], passwd, " +
		"export <name>, import <name>, logout | lock, exit"
)

// runREPL reads a line from reader, parses the first token as the command
// and dispatches to a. The loop exits on EOF or when the user types "exit"
// or "quit". Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("passvault [%s] > ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		a.touch()

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpUnlocked)
			} else {
				printlnFn(helpLocked)
			}

		case "register":
			cmdErr = a.Register(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "logout", "lock":
			cmdErr = a.Logout(ctx)
		case "passwd":
			cmdErr = a.ChangePassword(ctx)

		case "add":
			cmdErr = a.Add(ctx)
		case "get", "show":
			cmdErr = a.Get(ctx, args)
		case "l", "list":
			cmdErr = a.List(ctx, args)
		case "update":
			cmdErr = a.Update(ctx, args)
		case "delete", "rm":
			cmdErr = a.Delete(ctx, args)
		case "copy":
			cmdErr = a.Copy(ctx, args)
		case "categories":
			cmdErr = a.Categories(ctx)
		case "gen":
			cmdErr = a.Generate(ctx, args)

		case "settings":
			cmdErr = a.Settings(ctx, args)
		case "audit":
			cmdErr = a.Audit(ctx, args)
		case "export":
			cmdErr = a.Export(ctx, args)
		case "import":
			cmdErr = a.Import(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}

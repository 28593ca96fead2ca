package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isSignedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Users(ctx context.Context) error
	Chat(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads a line from the provided scanner, parses the first token
// as the command, and dispatches to methods on a. Unknown commands are
// reported back to the user. The loop exits on scanner EOF or when the
// user types "exit" or "quit". Handlers print their own errors, so return
// values are ignored here.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(promptStyle.Render(fmt.Sprintf("duochat %s> ", statusFn())))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isSignedIn() {
				printlnFn("Available commands: users, chat, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "users":
			_ = a.Users(ctx)

		case "chat":
			_ = a.Chat(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func (a *App) getStatus() string {
	if a.session.SignedIn {
		return fmt.Sprintf("(%s)", a.session.DisplayName)
	}
	return "(signed out)"
}

func (a *App) Root(ctx context.Context) {
	printlnFn(infoStyle.Render("Welcome to duochat (type 'help' for commands)"))
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

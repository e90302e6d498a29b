package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL drives. App implements it.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Borrow(ctx context.Context, args []string) error
	Return(ctx context.Context, args []string) error
	Available(ctx context.Context, args []string) error
	Loans(ctx context.Context) error
	Logout(ctx context.Context) error
	Exit(ctx context.Context)
}

// runREPL reads commands from reader until EOF, "exit" or "quit", or until
// ctx is canceled. Prompts and replies go to out. Unknown or empty input simply prompts again.
//
//	Not logged in:  help, register, login, available <id>, exit
//	Logged in:      help, borrow [id qty], return [id qty], available <id>,
//	                loans, logout, exit
//
// Handlers report their own errors to the user; the loop only stops when
// input ends.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	defer a.Exit(ctx)

	for ctx.Err() == nil {
		fmt.Fprintf(out, "lib %s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help", "?":
			if a.isLoggedIn() {
				fmt.Fprintln(out, "Available commands: borrow, return, available, loans, logout, exit")
			} else {
				fmt.Fprintln(out, "Available commands: register, login, available, exit")
			}
		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "borrow", "b":
			_ = a.Borrow(ctx, args)
		case "return", "r":
			_ = a.Return(ctx, args)
		case "available", "a":
			_ = a.Available(ctx, args)
		case "loans", "l":
			_ = a.Loans(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "exit", "quit":
			fmt.Fprintln(out, "See you soon")
			return
		default:
			fmt.Fprintln(out, "Unknown command:", cmd, "(type 'help' for commands)")
		}

		if errors.Is(err, io.EOF) {
			return
		}
	}
}

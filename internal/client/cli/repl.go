package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	report(err error)

	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	Items(ctx context.Context) error
	More(ctx context.Context) error
	Search(ctx context.Context, args []string) error
	Show(ctx context.Context, ref string) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, ref string) error
	Delete(ctx context.Context, ref string) error
	Attach(ctx context.Context, ref string, paths []string) error
	Detach(ctx context.Context, ref, n string) error
	Save(ctx context.Context, ref, n, dir string) error

	Categories(ctx context.Context) error
	AddCategory(ctx context.Context, args []string) error
	RenameCategory(ctx context.Context, args []string) error
	RemoveCategory(ctx context.Context, name string) error

	Tags(ctx context.Context) error
	AddTag(ctx context.Context, name string) error
	RenameTag(ctx context.Context, name, to string) error
	RemoveTag(ctx context.Context, name string) error

	Reminders(ctx context.Context) error
	Remind(ctx context.Context, args []string) error
	Unremind(ctx context.Context, ref string) error

	Lock(ctx context.Context, arg string) error
	Settings(ctx context.Context) error
}

const helpSignedOut = `Available commands:
  login                         sign in with your Google account
  settings                      show settings
  lock [on|off]                 biometric lock
  exit | quit                   leave the program`

const helpSignedIn = `Available commands:
  items | ls                    list items
  more                          load the next page
  search [text] [#tag] [@category] [sort:title|created|updated] [asc|desc]
                                filter the list; no arguments clears filters
  show <n>                      item details
  add                           create an item
  edit <n>                      edit an item
  delete <n>                    delete an item
  attach <n> <path>...          upload files to an item
  detach <n> <file>             remove a file from an item
  save <n> <file> [dir]         download a file of an item
  categories                    list categories
  addcategory <name> [#color] [icon:<name>]
  renamecategory <name> <new name> [#color] [icon:<name>]
  rmcategory <name>             delete a category
  tags                          list tags
  addtag <name>                 create a tag
  renametag <name> <new name>   rename a tag
  rmtag <name>                  delete a tag
  reminders                     upcoming reminders
  remind <n> <when> [note]      when: +30m, +2h, +3d, tomorrow, 2026-01-31 [09:00]
  unremind <n>                  delete a reminder
  lock [on|off]                 biometric lock
  settings                      show settings
  logout                        sign out
  exit | quit                   leave the program`

// signedOutCommands run without a session.
var signedOutCommands = map[string]bool{
	"help": true, "login": true, "settings": true, "lock": true, "exit": true, "quit": true,
}

// runREPL starts a simple read–eval–print loop for the docvault CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Errors returned by command handlers are handed to a.report, which shows
// them as toasts. The loop itself never stops on a command error.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("docvault %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if !signedOutCommands[cmd] && !a.isLoggedIn() {
			printlnFn("Please login first")
			continue
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpSignedOut)
			}

		case "login":
			a.report(a.Login(ctx))
		case "logout":
			a.report(a.Logout(ctx))

		case "items", "ls":
			a.report(a.Items(ctx))
		case "more":
			a.report(a.More(ctx))
		case "search":
			a.report(a.Search(ctx, args))
		case "show":
			a.report(a.Show(ctx, arg(args, 0)))
		case "add":
			a.report(a.Add(ctx))
		case "edit":
			a.report(a.Edit(ctx, arg(args, 0)))
		case "delete", "rm":
			a.report(a.Delete(ctx, arg(args, 0)))
		case "attach":
			if len(args) < 2 {
				printlnFn("Usage: attach <item> <path>...")
				continue
			}
			a.report(a.Attach(ctx, args[0], args[1:]))
		case "detach":
			a.report(a.Detach(ctx, arg(args, 0), arg(args, 1)))
		case "save":
			a.report(a.Save(ctx, arg(args, 0), arg(args, 1), arg(args, 2)))

		case "categories":
			a.report(a.Categories(ctx))
		case "addcategory":
			if len(args) == 0 {
				printlnFn("Usage: addcategory <name> [#color] [icon:<name>]")
				continue
			}
			a.report(a.AddCategory(ctx, args))
		case "renamecategory":
			a.report(a.RenameCategory(ctx, args))
		case "rmcategory":
			a.report(a.RemoveCategory(ctx, strings.Join(args, " ")))

		case "tags":
			a.report(a.Tags(ctx))
		case "addtag":
			if len(args) == 0 {
				printlnFn("Usage: addtag <name>")
				continue
			}
			a.report(a.AddTag(ctx, strings.Join(args, " ")))
		case "renametag":
			if len(args) != 2 {
				printlnFn("Usage: renametag <name> <new name>")
				continue
			}
			a.report(a.RenameTag(ctx, args[0], args[1]))
		case "rmtag":
			a.report(a.RemoveTag(ctx, arg(args, 0)))

		case "reminders":
			a.report(a.Reminders(ctx))
		case "remind":
			a.report(a.Remind(ctx, args))
		case "unremind":
			a.report(a.Unremind(ctx, arg(args, 0)))

		case "lock":
			a.report(a.Lock(ctx, arg(args, 0)))
		case "settings":
			a.report(a.Settings(ctx))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

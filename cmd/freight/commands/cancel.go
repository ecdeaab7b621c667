package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/zulfikawr/freight/cmd/freight/ui"
	"github.com/zulfikawr/freight/internal/client"
	"github.com/zulfikawr/freight/internal/logging"
)

// Cancel executes the cancel command
func Cancel(args []string) error {
	verbosity, filteredArgs := countVerbosity(args)

	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	fs.Usage = cancelHelp
	serverURL := fs.String("server", "", "server base URL")
	fs.StringVar(serverURL, "s", "", "")
	if err := fs.Parse(filteredArgs); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	if verbosity > 0 {
		logging.SetLevel(verbosity)
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("cancel requires a session id")
	}
	if *serverURL == "" {
		return fmt.Errorf("cancel requires --server")
	}
	sessionID := fs.Arg(0)

	sender, err := client.NewHTTPSender(*serverURL, client.DefaultPolicy(), client.SendBinary, false)
	if err != nil {
		return err
	}

	if err := sender.Cancel(context.Background(), sessionID); err != nil {
		return err
	}

	fmt.Printf("%sCancelled%s session %s, server-side chunks removed\n", ui.C.Green, ui.C.Reset, sessionID)
	return nil
}

func cancelHelp() {
	c := ui.C
	fmt.Println(c.Bold + c.Green + "freight cancel" + c.Reset + " - Abort an upload session and delete its chunks")
	fmt.Println()
	fmt.Println(c.Bold + "Usage:" + c.Reset)
	fmt.Println("  " + c.Green + "freight cancel" + c.Reset + " -s <url> <session-id>")
	fmt.Println()
	fmt.Println(c.Bold + "Flags:" + c.Reset)
	fmt.Println("  " + c.Yellow + "-s, --server" + c.Reset + "      server base URL")
	fmt.Println("  " + c.Yellow + "-v, --verbose" + c.Reset + "     verbose logging")
}

package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/zulfikawr/freight/cmd/freight/ui"
	"github.com/zulfikawr/freight/internal/client"
	"github.com/zulfikawr/freight/internal/logging"
	uipkg "github.com/zulfikawr/freight/internal/ui"
)

// Status executes the status command
func Status(args []string) error {
	verbosity, filteredArgs := countVerbosity(args)

	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Usage = statusHelp
	serverURL := fs.String("server", "", "server base URL")
	fs.StringVar(serverURL, "s", "", "")
	if err := fs.Parse(filteredArgs); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	if verbosity > 0 {
		logging.SetLevel(verbosity)
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("status requires a session id")
	}
	if *serverURL == "" {
		return fmt.Errorf("status requires --server")
	}
	sessionID := fs.Arg(0)

	sender, err := client.NewHTTPSender(*serverURL, client.DefaultPolicy(), client.SendBinary, false)
	if err != nil {
		return err
	}

	st, err := sender.Status(context.Background(), sessionID)
	if err != nil {
		return err
	}

	c := ui.C
	fmt.Println(c.Bold + "Session " + st.SessionID + c.Reset)
	if st.FileName != "" {
		fmt.Printf("  %-16s %s\n", "File:", st.FileName)
	}
	fmt.Printf("  %-16s %d/%d\n", "Chunks:", len(st.ReceivedChunks), st.TotalChunks)
	fmt.Printf("  %-16s %s\n", "Uploaded:", uipkg.FormatBytes(st.UploadedBytes))
	fmt.Printf("  %-16s %.1f%%\n", "Progress:", st.ProgressPercentage)
	switch {
	case st.Completed:
		fmt.Printf("  %-16s %scompleted%s\n", "State:", c.Green, c.Reset)
	case st.Failed:
		fmt.Printf("  %-16s %sfailed%s (%s)\n", "State:", c.Red, c.Reset, st.ErrorMessage)
	default:
		fmt.Printf("  %-16s in progress\n", "State:")
	}
	fmt.Printf("  %-16s %s\n", "Last update:", st.LastUpdatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

func statusHelp() {
	c := ui.C
	fmt.Println(c.Bold + c.Green + "freight status" + c.Reset + " - Show the progress of one upload session")
	fmt.Println()
	fmt.Println(c.Bold + "Usage:" + c.Reset)
	fmt.Println("  " + c.Green + "freight status" + c.Reset + " -s <url> <session-id>")
	fmt.Println()
	fmt.Println(c.Bold + "Flags:" + c.Reset)
	fmt.Println("  " + c.Yellow + "-s, --server" + c.Reset + "      server base URL")
	fmt.Println("  " + c.Yellow + "-v, --verbose" + c.Reset + "     verbose logging")
}

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

// Sessions executes the sessions command
func Sessions(args []string) error {
	verbosity, filteredArgs := countVerbosity(args)

	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	fs.Usage = sessionsHelp
	serverURL := fs.String("server", "", "server base URL")
	fs.StringVar(serverURL, "s", "", "")
	resumable := fs.Bool("resumable", false, "only sessions that can resume")
	if err := fs.Parse(filteredArgs); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	if verbosity > 0 {
		logging.SetLevel(verbosity)
	}

	if *serverURL == "" {
		return fmt.Errorf("sessions requires --server")
	}

	sender, err := client.NewHTTPSender(*serverURL, client.DefaultPolicy(), client.SendBinary, false)
	if err != nil {
		return err
	}

	c := ui.C
	if *resumable {
		records, err := sender.ListResumable(context.Background())
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println(c.Dim + "No resumable sessions." + c.Reset)
			return nil
		}
		fmt.Println(c.Bold + "Resumable sessions:" + c.Reset)
		for _, rec := range records {
			fmt.Printf("  %s  %s  %d/%d chunks, %d missing, next %d\n",
				rec.SessionID, rec.FileName,
				len(rec.ReceivedChunks), rec.TotalChunks,
				len(rec.MissingChunks), rec.NextExpectedChunk)
		}
		return nil
	}

	statuses, err := sender.ListAll(context.Background())
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		fmt.Println(c.Dim + "No sessions." + c.Reset)
		return nil
	}
	fmt.Println(c.Bold + "Sessions:" + c.Reset)
	for _, st := range statuses {
		state := "in progress"
		if st.Completed {
			state = c.Green + "completed" + c.Reset
		} else if st.Failed {
			state = c.Red + "failed" + c.Reset
		}
		fmt.Printf("  %s  %s  %d/%d chunks  %s  %s\n",
			st.SessionID, st.FileName,
			len(st.ReceivedChunks), st.TotalChunks,
			uipkg.FormatBytes(st.UploadedBytes), state)
	}
	return nil
}

func sessionsHelp() {
	c := ui.C
	fmt.Println(c.Bold + c.Green + "freight sessions" + c.Reset + " - List upload sessions on a server")
	fmt.Println()
	fmt.Println(c.Bold + "Usage:" + c.Reset)
	fmt.Println("  " + c.Green + "freight sessions" + c.Reset + " -s <url> [--resumable]")
	fmt.Println()
	fmt.Println(c.Bold + "Flags:" + c.Reset)
	fmt.Println("  " + c.Yellow + "-s, --server" + c.Reset + "      server base URL")
	fmt.Println("  " + c.Yellow + "--resumable" + c.Reset + "       only sessions that can resume")
	fmt.Println("  " + c.Yellow + "-v, --verbose" + c.Reset + "     verbose logging")
}

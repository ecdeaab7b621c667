package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/zulfikawr/freight/cmd/freight/ui"
	"github.com/zulfikawr/freight/internal/client"
	"github.com/zulfikawr/freight/internal/config"
	"github.com/zulfikawr/freight/internal/discovery"
	"github.com/zulfikawr/freight/internal/errors"
	"github.com/zulfikawr/freight/internal/logging"
	uipkg "github.com/zulfikawr/freight/internal/ui"
)

// Send executes the send command
func Send(args []string) error {
	// Load configuration (config file → env vars)
	cfg, err := config.LoadConfig()
	if err != nil {
		return errors.ConfigError("Failed to load configuration", err)
	}

	// Count -v flags and filter them out
	verbosity, filteredArgs := countVerbosity(args)

	fs := flag.NewFlagSet("send", flag.ExitOnError)
	fs.Usage = sendHelp
	// Use config defaults for flags (config → env → flags precedence)
	serverURL := fs.String("server", "", "server base URL (e.g. http://host:8080)")
	fs.StringVar(serverURL, "s", "", "")
	discover := fs.Bool("discover", false, "find a server via mDNS")
	chunkSizeStr := fs.String("chunk-size", cfg.ChunkSize, "chunk size (e.g. 5MiB)")
	workers := fs.Int("workers", cfg.Workers, "parallel upload workers")
	retries := fs.Int("retries", cfg.RetryAttempts, "retry attempts per chunk")
	multipart := fs.Bool("multipart", false, "send chunks as multipart forms instead of raw bodies")
	compress := fs.Bool("compress", cfg.Compress, "zstd-compress chunk bodies (raw mode only)")
	resumeID := fs.String("resume", "", "resume an existing session id")
	if err := fs.Parse(filteredArgs); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	// Set log level based on verbosity
	if verbosity > 0 {
		logging.SetLevel(verbosity)
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("send requires a file path")
	}
	path := fs.Arg(0)
	if _, err := os.Stat(path); err != nil {
		return errors.FileNotFoundError(path, err)
	}

	base, err := resolveServer(*serverURL, *discover)
	if err != nil {
		return err
	}

	chunkSize, err := config.ParseSize(*chunkSizeStr)
	if err != nil {
		return fmt.Errorf("invalid chunk size: %w", err)
	}

	mode := client.SendBinary
	if *multipart {
		mode = client.SendMultipart
	}
	policy := client.DefaultPolicy()
	policy.MaxAttempts = *retries

	sender, err := client.NewHTTPSender(base, policy, mode, *compress)
	if err != nil {
		return err
	}

	var task *client.Task
	if *resumeID != "" {
		task, err = client.ResumeTask(*resumeID, path, chunkSize)
	} else {
		task, err = client.NewTask(path, chunkSize)
	}
	if err != nil {
		return err
	}
	defer task.Close()

	fmt.Fprintf(os.Stderr, "Uploading %s (%s, %d chunks) to %s\n",
		task.FileName, uipkg.FormatBytes(task.TotalSize), len(task.Chunks), base)
	fmt.Fprintf(os.Stderr, "Session: %s\n", task.SessionID)

	pump := client.NewPump(sender, task, *workers)
	registry := client.NewRegistry()
	registry.Add(pump)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pump.Start(ctx)

	// On interrupt, snapshot the session so a restarted process can resume.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, saving session for resume...")
		saveForResume(registry, base, chunkSize)
		pump.Pause()
		cancel()
		os.Exit(130)
	}()

	bar := uipkg.ProgressBar{Out: os.Stderr, Total: task.TotalSize}
	for ev := range pump.Events() {
		switch ev.Type {
		case client.EventChunkDone:
			bar.Update(ev.Uploaded)
		case client.EventStateChange:
			if ev.State == client.TaskCompleting {
				bar.Update(task.TotalSize)
				bar.Finish()
				fmt.Fprintln(os.Stderr, "All chunks delivered, assembling...")
			}
		case client.EventDone:
			switch ev.State {
			case client.TaskCompleted:
				fmt.Fprintf(os.Stderr, "%sDone:%s server stored %q\n", ui.C.Green, ui.C.Reset, ev.Dest)
			case client.TaskFailed:
				return fmt.Errorf("upload failed: %s\n\nresume with: freight send --resume %s --server %s %s",
					task.ErrorMessage(), task.SessionID, base, path)
			case client.TaskCancelled:
				fmt.Fprintln(os.Stderr, "Upload cancelled")
			}
		}
	}

	// Completed cleanly; drop any stale resume snapshot.
	if store, err := client.NewRefreshStore(); err == nil {
		_ = store.Clear()
	}
	return nil
}

// resolveServer picks the upload target: an explicit URL wins, otherwise
// mDNS discovery.
func resolveServer(explicit string, discover bool) (string, error) {
	if explicit != "" {
		return strings.TrimRight(explicit, "/"), nil
	}
	if !discover {
		return "", fmt.Errorf("no server given: pass --server or --discover")
	}

	fmt.Fprintln(os.Stderr, "Searching for freight servers...")
	services, err := discovery.Browse(context.Background(), 3*time.Second)
	if err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}
	if len(services) == 0 {
		return "", errors.ConnectionError("local network", fmt.Errorf("no freight servers found via mDNS"))
	}

	svc := services[0]
	fmt.Fprintf(os.Stderr, "Found %s at %s\n", svc.Name, svc.URL)
	return svc.URL, nil
}

// saveForResume snapshots the active uploads to the refresh state file.
func saveForResume(registry *client.Registry, base string, chunkSize int64) {
	store, err := client.NewRefreshStore()
	if err != nil {
		return
	}
	var saved []client.SavedSession
	for _, p := range registry.Active() {
		t := p.Task()
		saved = append(saved, client.SavedSession{
			SessionID: t.SessionID,
			FilePath:  t.FilePath,
			ServerURL: base,
			ChunkSize: chunkSize,
		})
	}
	if err := store.Save(saved); err == nil && len(saved) > 0 {
		fmt.Fprintf(os.Stderr, "Resume with: freight send --resume %s --server %s %s\n",
			saved[0].SessionID, base, saved[0].FilePath)
	}
}

func sendHelp() {
	c := ui.C
	fmt.Println(c.Bold + c.Green + "freight send" + c.Reset + " - Upload a file in resumable chunks")
	fmt.Println()
	fmt.Println(c.Bold + "Usage:" + c.Reset)
	fmt.Println("  " + c.Green + "freight send" + c.Reset + " [flags] <path>")
	fmt.Println()
	fmt.Println(c.Bold + "Description:" + c.Reset)
	fmt.Println("  Slice a file into chunks and upload them in parallel with automatic")
	fmt.Println("  retries. An interrupted upload can resume: only the chunks the server")
	fmt.Println("  does not already hold are sent again.")
	fmt.Println()
	fmt.Println(c.Bold + "Flags:" + c.Reset)
	fmt.Println("  " + c.Yellow + "-s, --server" + c.Reset + "      server base URL (e.g. http://host:8080)")
	fmt.Println("  " + c.Yellow + "--discover" + c.Reset + "        find a server on the LAN via mDNS")
	fmt.Println("  " + c.Yellow + "--chunk-size" + c.Reset + "      chunk size (default 5MiB)")
	fmt.Println("  " + c.Yellow + "--workers" + c.Reset + "         parallel upload workers (default 3)")
	fmt.Println("  " + c.Yellow + "--retries" + c.Reset + "         retry attempts per chunk (default 3)")
	fmt.Println("  " + c.Yellow + "--multipart" + c.Reset + "       send chunks as multipart forms")
	fmt.Println("  " + c.Yellow + "--compress" + c.Reset + "        zstd-compress chunk bodies")
	fmt.Println("  " + c.Yellow + "--resume" + c.Reset + "          resume an existing session id")
	fmt.Println("  " + c.Yellow + "-v, --verbose" + c.Reset + "     verbose logging")
	fmt.Println()
	fmt.Println(c.Bold + "Examples:" + c.Reset)
	fmt.Println("  " + c.Green + "freight send" + c.Reset + " -s http://host:8080 ./backup.tar   " + c.Dim + "# Upload a file" + c.Reset)
	fmt.Println("  " + c.Green + "freight send" + c.Reset + " --discover ./photo.jpg             " + c.Dim + "# Find the server via mDNS" + c.Reset)
	fmt.Println("  " + c.Green + "freight send" + c.Reset + " --compress --workers 5 ./huge.img  " + c.Dim + "# Compressed, 5 workers" + c.Reset)
	fmt.Println("  " + c.Green + "freight send" + c.Reset + " --resume <id> -s <url> ./huge.img  " + c.Dim + "# Resume an upload" + c.Reset)
}

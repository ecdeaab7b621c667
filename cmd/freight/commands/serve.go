package commands

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zulfikawr/freight/cmd/freight/ui"
	"github.com/zulfikawr/freight/internal/config"
	"github.com/zulfikawr/freight/internal/errors"
	"github.com/zulfikawr/freight/internal/logging"
	"github.com/zulfikawr/freight/internal/server"
	uipkg "github.com/zulfikawr/freight/internal/ui"
)

// Serve executes the serve command
func Serve(args []string) error {
	// Load configuration (config file → env vars)
	cfg, err := config.LoadConfig()
	if err != nil {
		return errors.ConfigError("Failed to load configuration", err)
	}

	// Count -v flags and filter them out
	verbosity, filteredArgs := countVerbosity(args)

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.Usage = serveHelp
	// Use config defaults for flags (config → env → flags precedence)
	listen := fs.String("listen", cfg.ListenAddr, "listen address")
	fs.StringVar(listen, "l", cfg.ListenAddr, "")
	dest := fs.String("dest", cfg.StorageDir, "destination directory for uploads")
	fs.StringVar(dest, "d", cfg.StorageDir, "")
	maxConcurrent := fs.Int("max-concurrent", cfg.MaxConcurrent, "concurrent chunk upload ceiling")
	rateLimit := fs.Float64("rate-limit", cfg.RateLimitMbps, "bandwidth limit in Mbps")
	http3 := fs.Bool("http3", cfg.EnableHTTP3, "enable the QUIC/HTTP3 listener")
	noQR := fs.Bool("no-qr", cfg.NoQR, "disable QR")
	noDiscovery := fs.Bool("no-discovery", cfg.NoDiscovery, "disable mDNS advertising")
	if err := fs.Parse(filteredArgs); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	// Set log level based on verbosity
	if verbosity > 0 {
		logging.SetLevel(verbosity)
	}

	// Ensure destination exists
	if err := os.MkdirAll(*dest, 0o755); err != nil {
		return errors.PermissionError("create directory", *dest, err)
	}

	cfg.ListenAddr = *listen
	cfg.StorageDir = *dest
	cfg.MaxConcurrent = *maxConcurrent
	cfg.RateLimitMbps = *rateLimit
	cfg.EnableHTTP3 = *http3
	cfg.NoDiscovery = *noDiscovery

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	url, err := srv.Start()
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer func() { _ = srv.Shutdown() }()

	fmt.Fprintf(os.Stderr, "Receiving uploads into '%s'\n", *dest)
	fmt.Fprintf(os.Stderr, "Local URL: %s\n", url)
	fmt.Fprintf(os.Stderr, "Metrics: %s/metrics\n", url)
	if *rateLimit > 0 {
		fmt.Fprintf(os.Stderr, "Rate limit: %.1f Mbps\n", *rateLimit)
	}
	if *http3 {
		fmt.Fprintln(os.Stderr, "HTTP/3: enabled (self-signed certificate)")
	}

	if !*noQR {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, ui.C.Bold+"Scan QR code to upload from another device:"+ui.C.Reset)
		_ = uipkg.PrintQR(url)
		fmt.Fprintln(os.Stderr)
	}

	fmt.Fprint(os.Stderr, "\n"+ui.C.Yellow+"Press Ctrl+C to stop server"+ui.C.Reset+"\n")

	// Wait for interrupt signal for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	fmt.Println("\nShutting down gracefully...")

	return nil
}

func serveHelp() {
	c := ui.C
	fmt.Println(c.Bold + c.Green + "freight serve" + c.Reset + " - Receive chunked uploads into a directory")
	fmt.Println()
	fmt.Println(c.Bold + "Usage:" + c.Reset)
	fmt.Println("  " + c.Green + "freight serve" + c.Reset + " [flags]")
	fmt.Println()
	fmt.Println(c.Bold + "Description:" + c.Reset)
	fmt.Println("  Start an upload server. Clients send files in chunks, out of order and")
	fmt.Println("  in parallel; interrupted uploads can resume where they left off.")
	fmt.Println()
	fmt.Println(c.Bold + "Flags:" + c.Reset)
	fmt.Println("  " + c.Yellow + "-l, --listen" + c.Reset + "        listen address (default :8080)")
	fmt.Println("  " + c.Yellow + "-d, --dest" + c.Reset + "          destination directory for uploads (default uploads)")
	fmt.Println("  " + c.Yellow + "--max-concurrent" + c.Reset + "    concurrent chunk upload ceiling (default 10)")
	fmt.Println("  " + c.Yellow + "--rate-limit" + c.Reset + "        limit inbound bandwidth in Mbps (0 = unlimited)")
	fmt.Println("  " + c.Yellow + "--http3" + c.Reset + "             enable the QUIC/HTTP3 listener")
	fmt.Println("  " + c.Yellow + "--no-qr" + c.Reset + "             skip printing the QR code")
	fmt.Println("  " + c.Yellow + "--no-discovery" + c.Reset + "      disable mDNS advertising")
	fmt.Println("  " + c.Yellow + "-v, --verbose" + c.Reset + "       verbose logging (use -vv for more detail)")
	fmt.Println()
	fmt.Println(c.Bold + "Examples:" + c.Reset)
	fmt.Println("  " + c.Green + "freight serve" + c.Reset + "                           " + c.Dim + "# Save uploads to ./uploads" + c.Reset)
	fmt.Println("  " + c.Green + "freight serve" + c.Reset + " -d /srv/incoming -l :9000 " + c.Dim + "# Custom directory and port" + c.Reset)
	fmt.Println("  " + c.Green + "freight serve" + c.Reset + " --rate-limit 50           " + c.Dim + "# Limit to 50 Mbps" + c.Reset)
}

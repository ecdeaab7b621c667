package commands

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/zulfikawr/freight/cmd/freight/ui"
	"github.com/zulfikawr/freight/internal/config"
	"github.com/zulfikawr/freight/internal/errors"
)

// Config executes the config command
func Config(args []string) error {
	if len(args) == 0 {
		configHelp()
		return nil
	}

	switch args[0] {
	case "show":
		cfg, err := config.LoadConfig()
		if err != nil {
			return errors.ConfigError("Failed to load configuration", err)
		}
		fmt.Println(ui.C.Bold + "Current Configuration:" + ui.C.Reset)
		fmt.Printf("  Config file: %s\n", config.GetConfigPath())
		fmt.Println()
		fmt.Printf("  %-24s %s\n", "Listen Address:", cfg.ListenAddr)
		fmt.Printf("  %-24s %s\n", "Storage Directory:", cfg.StorageDir)
		fmt.Printf("  %-24s %s\n", "Temp Dir Prefix:", cfg.TempDirPrefix)
		fmt.Printf("  %-24s %s\n", "Max Chunk Size:", cfg.MaxChunkSize)
		fmt.Printf("  %-24s %d\n", "Max Chunk Count:", cfg.MaxChunkCount)
		fmt.Printf("  %-24s %s\n", "Max File Size:", cfg.MaxFileSize)
		fmt.Printf("  %-24s %d\n", "Max Concurrent Uploads:", cfg.MaxConcurrent)
		fmt.Printf("  %-24s %.1f Mbps\n", "Rate Limit:", cfg.RateLimitMbps)
		fmt.Printf("  %-24s %v\n", "HTTP/3:", cfg.EnableHTTP3)
		fmt.Printf("  %-24s %v\n", "Auto Cleanup:", cfg.AutoCleanup)
		fmt.Printf("  %-24s %dh\n", "Cleanup Delay:", cfg.CleanupDelayHours)
		fmt.Printf("  %-24s %s\n", "Blocked Extensions:", strings.Join(cfg.BlockedExtensions, ", "))
		fmt.Printf("  %-24s %s\n", "Chunk Size:", cfg.ChunkSize)
		fmt.Printf("  %-24s %d\n", "Workers:", cfg.Workers)
		fmt.Printf("  %-24s %d\n", "Retry Attempts:", cfg.RetryAttempts)
		fmt.Printf("  %-24s %v\n", "Compress:", cfg.Compress)

	case "edit":
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		configPath := config.GetConfigPath()

		// Create config file if it doesn't exist
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := config.SaveConfig(config.DefaultConfig()); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}
			fmt.Printf("Created new config file at: %s\n", configPath)
		}

		cmd := fmt.Sprintf("%s %s", editor, configPath)
		fmt.Printf("Opening %s...\n", configPath)
		if err := syscall.Exec("/bin/sh", []string{"/bin/sh", "-c", cmd}, os.Environ()); err != nil {
			return fmt.Errorf("failed to open editor: %w", err)
		}

	case "path":
		fmt.Println(config.GetConfigPath())

	case "-h", "--help", "help":
		configHelp()

	default:
		fmt.Printf("Unknown config subcommand: %s\n", args[0])
		configHelp()
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}

	return nil
}

func configHelp() {
	c := ui.C
	fmt.Println(c.Bold + c.Green + "freight config" + c.Reset + " - Manage configuration file")
	fmt.Println()
	fmt.Println(c.Bold + "Usage:" + c.Reset)
	fmt.Println("  " + c.Green + "freight config show" + c.Reset + "  Display current configuration")
	fmt.Println("  " + c.Green + "freight config edit" + c.Reset + "  Open config file in $EDITOR")
	fmt.Println("  " + c.Green + "freight config path" + c.Reset + "  Show config file path")
	fmt.Println()
	fmt.Println(c.Bold + "Configuration File:" + c.Reset)
	fmt.Println("  Location: ~/.config/freight/freight.yaml")
	fmt.Println("  Format:   YAML")
	fmt.Println()
	fmt.Println(c.Dim + "Values can also be set via environment variables:" + c.Reset)
	fmt.Println(c.Dim + "  FREIGHT_RATE_LIMIT_MBPS=10 freight serve" + c.Reset)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	units "github.com/docker/go-units"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Server
	ListenAddr    string  `mapstructure:"listen_addr"`
	StorageDir    string  `mapstructure:"storage_dir"`
	TempDirPrefix string  `mapstructure:"temp_dir_prefix"`
	MaxChunkSize  string  `mapstructure:"max_chunk_size"`
	MaxChunkCount int     `mapstructure:"max_chunk_count"`
	MaxFileSize   string  `mapstructure:"max_file_size"`
	MaxConcurrent int     `mapstructure:"max_concurrent_uploads"`
	RateLimitMbps float64 `mapstructure:"rate_limit_mbps"`
	EnableHTTP3   bool    `mapstructure:"enable_http3"`
	NoDiscovery   bool    `mapstructure:"no_discovery"`
	NoQR          bool    `mapstructure:"no_qr"`

	// Cleanup of terminal sessions
	AutoCleanup       bool `mapstructure:"auto_cleanup"`
	CleanupDelayHours int  `mapstructure:"cleanup_delay_hours"`

	// Filename validation
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	BlockedExtensions []string `mapstructure:"blocked_extensions"`

	// CORS
	CORSOrigins     []string `mapstructure:"cors_origins"`
	CORSMethods     []string `mapstructure:"cors_methods"`
	CORSHeaders     []string `mapstructure:"cors_headers"`
	CORSCredentials bool     `mapstructure:"cors_credentials"`
	CORSMaxAge      int      `mapstructure:"cors_max_age"`

	// Client
	ChunkSize     string `mapstructure:"chunk_size"`
	Workers       int    `mapstructure:"workers"`
	RetryAttempts int    `mapstructure:"retry_attempts"`
	Compress      bool   `mapstructure:"compress"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:        ":8080",
		StorageDir:        "uploads",
		TempDirPrefix:     "temp_",
		MaxChunkSize:      "100MiB",
		MaxChunkCount:     10000,
		MaxFileSize:       "50GiB",
		MaxConcurrent:     10,
		RateLimitMbps:     0, // no limit
		EnableHTTP3:       false,
		AutoCleanup:       true,
		CleanupDelayHours: 24,
		AllowedExtensions: nil, // empty = anything not blocked
		BlockedExtensions: []string{"exe", "bat", "cmd", "scr", "com", "pif"},
		CORSOrigins:       []string{"*"},
		CORSMethods:       []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		CORSHeaders:       []string{"*"},
		CORSCredentials:   false,
		CORSMaxAge:        3600,
		ChunkSize:         "5MiB",
		Workers:           3,
		RetryAttempts:     3,
		Compress:          false,
	}
}

// LoadConfig loads configuration from file or creates default config
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("freight")
	viper.SetConfigType("yaml")

	if homeDir, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".config", "freight"))
		viper.AddConfigPath(homeDir)
	}
	viper.AddConfigPath("/etc/freight")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("FREIGHT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found - use defaults (not an error)
			return config, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

// ParseSize converts a human-readable size ("5MiB", "100MB", "1073741824")
// into a byte count.
func ParseSize(s string) (int64, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n, nil
}

// MaxChunkSizeBytes returns the configured maximum chunk size in bytes.
func (c *Config) MaxChunkSizeBytes() (int64, error) {
	return ParseSize(c.MaxChunkSize)
}

// MaxFileSizeBytes returns the configured maximum file size in bytes.
func (c *Config) MaxFileSizeBytes() (int64, error) {
	return ParseSize(c.MaxFileSize)
}

// ChunkSizeBytes returns the configured client chunk size in bytes.
func (c *Config) ChunkSizeBytes() (int64, error) {
	return ParseSize(c.ChunkSize)
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "~/.config/freight/freight.yaml"
	}

	return filepath.Join(homeDir, ".config", "freight", "freight.yaml")
}

// SaveConfig saves the current configuration to file
func SaveConfig(config *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "freight")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "freight.yaml")

	viper.Set("listen_addr", config.ListenAddr)
	viper.Set("storage_dir", config.StorageDir)
	viper.Set("temp_dir_prefix", config.TempDirPrefix)
	viper.Set("max_chunk_size", config.MaxChunkSize)
	viper.Set("max_chunk_count", config.MaxChunkCount)
	viper.Set("max_file_size", config.MaxFileSize)
	viper.Set("max_concurrent_uploads", config.MaxConcurrent)
	viper.Set("rate_limit_mbps", config.RateLimitMbps)
	viper.Set("enable_http3", config.EnableHTTP3)
	viper.Set("no_discovery", config.NoDiscovery)
	viper.Set("no_qr", config.NoQR)
	viper.Set("auto_cleanup", config.AutoCleanup)
	viper.Set("cleanup_delay_hours", config.CleanupDelayHours)
	viper.Set("allowed_extensions", config.AllowedExtensions)
	viper.Set("blocked_extensions", config.BlockedExtensions)
	viper.Set("cors_origins", config.CORSOrigins)
	viper.Set("cors_methods", config.CORSMethods)
	viper.Set("cors_headers", config.CORSHeaders)
	viper.Set("cors_credentials", config.CORSCredentials)
	viper.Set("cors_max_age", config.CORSMaxAge)
	viper.Set("chunk_size", config.ChunkSize)
	viper.Set("workers", config.Workers)
	viper.Set("retry_attempts", config.RetryAttempts)
	viper.Set("compress", config.Compress)

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}

	return nil
}

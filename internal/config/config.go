package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dl-alexandre/mrisync/internal/sync/pattern"
	"github.com/dl-alexandre/mrisync/internal/utils"
	"github.com/mitchellh/go-homedir"
)

const (
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.json"
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "MRISYNC_"
)

// Config holds application configuration
type Config struct {
	// CredentialsFile is the service-account key JSON
	CredentialsFile string `json:"credentialsFile"`

	// RootFolderID is the Drive folder the MRI tree is mirrored into
	RootFolderID string `json:"rootFolderId"`

	// RootFolderPath locates the destination by path from My Drive when
	// RootFolderID is empty, e.g. "Research/MRI"
	RootFolderPath string `json:"rootFolderPath,omitempty"`

	// FolderPatterns select directories; any match keeps the folder
	FolderPatterns []string `json:"folderPatterns"`

	// FilePattern selects files inside kept directories
	FilePattern string `json:"filePattern"`

	// SeriesPattern is matched against the DICOM SeriesDescription tag
	SeriesPattern string `json:"seriesPattern"`

	// UpdateFiles re-uploads files whose local copy is newer
	UpdateFiles bool `json:"updateFiles"`

	// RemoveExtraneous deletes remote entries that are not wanted locally
	RemoveExtraneous bool `json:"removeExtraneous"`

	// PermanentDelete skips the Drive trash when removing entries
	PermanentDelete bool `json:"permanentDelete"`

	// Concurrency bounds parallel uploads within one folder
	Concurrency int `json:"concurrency"`

	// MaxRetries is the maximum number of retries for API calls
	MaxRetries int `json:"maxRetries"`

	// RetryBaseDelay is the base delay for exponential backoff in milliseconds
	RetryBaseDelay int `json:"retryBaseDelay"`

	// RunTimeout bounds a whole sync run, in seconds; 0 disables it
	RunTimeout int `json:"runTimeout"`

	// LogLevel sets the logging verbosity (quiet, normal, verbose, debug)
	LogLevel string `json:"logLevel"`

	// LogFile receives JSON log lines in addition to the console
	LogFile string `json:"logFile"`

	// MetricsFile is written in the Prometheus text format after each run
	MetricsFile string `json:"metricsFile"`

	// ColorOutput enables colored verbose reports
	ColorOutput bool `json:"colorOutput"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		FolderPatterns: []string{utils.DefaultFolderPattern},
		FilePattern:    utils.DefaultFilePattern,
		SeriesPattern:  utils.DefaultContentPattern,
		Concurrency:    1,
		MaxRetries:     utils.DefaultMaxRetries,
		RetryBaseDelay: utils.DefaultRetryDelayMs,
		RunTimeout:     0,
		LogLevel:       "normal",
		ColorOutput:    true,
	}
}

// Load loads configuration with precedence: CLI flags > env vars > config file > defaults.
// An empty path uses the default config location.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, utils.ConfigError("Cannot locate config file", err)
		}
	}

	if err := cfg.loadFromFile(path); err != nil {
		// Config file not existing is not an error
		if !os.IsNotExist(err) {
			return nil, utils.ConfigError("Failed to load config file "+path, err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.ExpandPaths(); err != nil {
		return nil, utils.ConfigError("Failed to expand paths", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, utils.ConfigError("Invalid configuration", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv(EnvPrefix + "CREDENTIALS"); v != "" {
		c.CredentialsFile = v
	}
	if v := os.Getenv(EnvPrefix + "FOLDER_ID"); v != "" {
		c.RootFolderID = v
	}
	if v := os.Getenv(EnvPrefix + "FOLDER_PATH"); v != "" {
		c.RootFolderPath = v
	}
	if v := os.Getenv(EnvPrefix + "FOLDER_PATTERNS"); v != "" {
		c.FolderPatterns = splitList(v)
	}
	if v := os.Getenv(EnvPrefix + "FILE_PATTERN"); v != "" {
		c.FilePattern = v
	}
	if v := os.Getenv(EnvPrefix + "SERIES_PATTERN"); v != "" {
		c.SeriesPattern = v
	}
	if v := os.Getenv(EnvPrefix + "UPDATE_FILES"); v != "" {
		c.UpdateFiles = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "REMOVE_EXTRANEOUS"); v != "" {
		c.RemoveExtraneous = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "PERMANENT_DELETE"); v != "" {
		c.PermanentDelete = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency = n
		}
	}
	if v := os.Getenv(EnvPrefix + "MAX_RETRIES"); v != "" {
		if retries, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = retries
		}
	}
	if v := os.Getenv(EnvPrefix + "RETRY_BASE_DELAY"); v != "" {
		if delay, err := strconv.Atoi(v); err == nil {
			c.RetryBaseDelay = delay
		}
	}
	if v := os.Getenv(EnvPrefix + "RUN_TIMEOUT"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			c.RunTimeout = timeout
		}
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FILE"); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv(EnvPrefix + "METRICS_FILE"); v != "" {
		c.MetricsFile = v
	}
	if v := os.Getenv(EnvPrefix + "COLOR_OUTPUT"); v != "" {
		c.ColorOutput = parseBool(v)
	}
}

// ExpandPaths resolves a leading ~ in every path field
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.CredentialsFile, &c.LogFile, &c.MetricsFile} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Save saves the configuration to path, or the default location when empty
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file with restricted permissions
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.FolderPatterns) == 0 {
		return fmt.Errorf("at least one folder pattern is required")
	}
	for _, expr := range c.FolderPatterns {
		if _, err := pattern.Compile(expr); err != nil {
			return fmt.Errorf("invalid folder pattern %q: %w", expr, err)
		}
	}
	if _, err := pattern.Compile(c.FilePattern); err != nil {
		return fmt.Errorf("invalid file pattern %q: %w", c.FilePattern, err)
	}
	if _, err := pattern.Compile(c.SeriesPattern); err != nil {
		return fmt.Errorf("invalid series pattern %q: %w", c.SeriesPattern, err)
	}

	if c.Concurrency < 1 || c.Concurrency > 16 {
		return fmt.Errorf("concurrency must be between 1 and 16, got: %d", c.Concurrency)
	}

	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max retries must be between 0 and 10, got: %d", c.MaxRetries)
	}

	if c.RetryBaseDelay < 100 || c.RetryBaseDelay > 60000 {
		return fmt.Errorf("retry base delay must be between 100ms and 60000ms, got: %d", c.RetryBaseDelay)
	}

	if c.RunTimeout < 0 || c.RunTimeout > 86400 {
		return fmt.Errorf("run timeout must be between 0 and 86400 seconds, got: %d", c.RunTimeout)
	}

	validLogLevels := []string{"quiet", "normal", "verbose", "debug"}
	isValid := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			isValid = true
			break
		}
	}
	if !isValid {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}

// GetRetryBaseDelay returns the retry base delay as a duration
func (c *Config) GetRetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelay) * time.Millisecond
}

// GetRunTimeout returns the run timeout as a duration
func (c *Config) GetRunTimeout() time.Duration {
	return time.Duration(c.RunTimeout) * time.Second
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return homedir.Expand(dir)
	}
	homeDir, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "mrisync"), nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// splitList splits a semicolon separated env value, dropping blanks.
// Commas are left alone since they appear in regex quantifiers.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dl-alexandre/mrisync/internal/utils"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.FolderPatterns) != 1 || cfg.FolderPatterns[0] != utils.DefaultFolderPattern {
		t.Errorf("Expected default folder pattern, got %v", cfg.FolderPatterns)
	}

	if cfg.FilePattern != utils.DefaultFilePattern {
		t.Errorf("Expected default file pattern, got '%s'", cfg.FilePattern)
	}

	if cfg.UpdateFiles || cfg.RemoveExtraneous || cfg.PermanentDelete {
		t.Error("Expected mutating options to be off by default")
	}

	if cfg.MaxRetries != 3 {
		t.Errorf("Expected max retries 3, got %d", cfg.MaxRetries)
	}

	if cfg.LogLevel != "normal" {
		t.Errorf("Expected log level 'normal', got '%s'", cfg.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{"valid default config", func(c *Config) {}, ""},
		{"no folder patterns", func(c *Config) { c.FolderPatterns = nil }, "at least one folder pattern"},
		{"bad folder pattern", func(c *Config) { c.FolderPatterns = []string{`^s\d{5}$`, `(`} }, "invalid folder pattern"},
		{"bad file pattern", func(c *Config) { c.FilePattern = `[` }, "invalid file pattern"},
		{"bad series pattern", func(c *Config) { c.SeriesPattern = `t1sag(` }, "invalid series pattern"},
		{"empty file pattern is allowed", func(c *Config) { c.FilePattern = "" }, ""},
		{"concurrency zero", func(c *Config) { c.Concurrency = 0 }, "concurrency must be between 1 and 16"},
		{"max retries too high", func(c *Config) { c.MaxRetries = 11 }, "max retries must be between 0 and 10"},
		{"retry base delay too low", func(c *Config) { c.RetryBaseDelay = 50 }, "retry base delay must be between 100ms and 60000ms"},
		{"negative timeout", func(c *Config) { c.RunTimeout = -1 }, "run timeout must be between 0 and 86400 seconds"},
		{"invalid log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing '%s', got nil", tt.errorMsg)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestConfigDurationGetters(t *testing.T) {
	cfg := &Config{RetryBaseDelay: 1000, RunTimeout: 60}

	if d := cfg.GetRetryBaseDelay(); d != 1000*time.Millisecond {
		t.Errorf("Expected retry base delay 1000ms, got %v", d)
	}
	if d := cfg.GetRunTimeout(); d != 60*time.Second {
		t.Errorf("Expected run timeout 60s, got %v", d)
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)

	cfg := DefaultConfig()
	cfg.CredentialsFile = "/etc/mrisync/key.json"
	cfg.RootFolderID = "0AbCdEf"
	cfg.FolderPatterns = []string{`^s\d{5}$`, `^hlp17umm\d{5}_\d{5}$`}
	cfg.UpdateFiles = true
	cfg.MaxRetries = 5

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Expected mode 0600, got %o", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.RootFolderID != "0AbCdEf" || loaded.CredentialsFile != "/etc/mrisync/key.json" {
		t.Errorf("Loaded config mismatch: %+v", loaded)
	}
	if len(loaded.FolderPatterns) != 2 || !loaded.UpdateFiles || loaded.MaxRetries != 5 {
		t.Errorf("Loaded config mismatch: %+v", loaded)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Expected defaults, got error: %v", err)
	}
	if cfg.FilePattern != utils.DefaultFilePattern {
		t.Errorf("Expected default file pattern, got %q", cfg.FilePattern)
	}
}

func TestLoad_InvalidFileIsConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected error for malformed config")
	}
	if code := utils.ExitCodeFor(err); code != utils.ExitConfigInvalid {
		t.Errorf("Expected exit code %d, got %d", utils.ExitConfigInvalid, code)
	}
}

func TestLoad_InvalidPatternIsConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	data, _ := json.Marshal(map[string]interface{}{"filePattern": "(unclosed"})
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if code := utils.ExitCodeFor(err); code != utils.ExitConfigInvalid {
		t.Errorf("Expected exit code %d, got %d (%v)", utils.ExitConfigInvalid, code, err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvPrefix+"CREDENTIALS", "/keys/sa.json")
	t.Setenv(EnvPrefix+"FOLDER_ID", "root-from-env")
	t.Setenv(EnvPrefix+"FOLDER_PATTERNS", `^s\d{5}$; ^study\d{1,3}$ ;`)
	t.Setenv(EnvPrefix+"UPDATE_FILES", "yes")
	t.Setenv(EnvPrefix+"REMOVE_EXTRANEOUS", "1")
	t.Setenv(EnvPrefix+"CONCURRENCY", "4")
	t.Setenv(EnvPrefix+"MAX_RETRIES", "not-a-number")
	t.Setenv(EnvPrefix+"LOG_LEVEL", "debug")
	t.Setenv(EnvPrefix+"RUN_TIMEOUT", "3600")

	cfg := DefaultConfig()
	cfg.loadFromEnv()

	if cfg.CredentialsFile != "/keys/sa.json" || cfg.RootFolderID != "root-from-env" {
		t.Errorf("Env overrides not applied: %+v", cfg)
	}
	want := []string{`^s\d{5}$`, `^study\d{1,3}$`}
	if len(cfg.FolderPatterns) != len(want) {
		t.Fatalf("Expected %v, got %v", want, cfg.FolderPatterns)
	}
	for i := range want {
		if cfg.FolderPatterns[i] != want[i] {
			t.Errorf("Pattern %d: expected %q, got %q", i, want[i], cfg.FolderPatterns[i])
		}
	}
	if !cfg.UpdateFiles || !cfg.RemoveExtraneous {
		t.Error("Expected boolean env overrides to be applied")
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Expected concurrency 4, got %d", cfg.Concurrency)
	}
	if cfg.MaxRetries != utils.DefaultMaxRetries {
		t.Errorf("Unparseable env value should be ignored, got %d", cfg.MaxRetries)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %q", cfg.LogLevel)
	}
	if cfg.GetRunTimeout() != time.Hour {
		t.Errorf("Expected run timeout 1h, got %v", cfg.GetRunTimeout())
	}
}

func TestLoad_RunTimeoutFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(`{"runTimeout": 900}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GetRunTimeout() != 15*time.Minute {
		t.Errorf("Expected run timeout 15m, got %v", cfg.GetRunTimeout())
	}
}

func TestExpandPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CredentialsFile = "~/keys/sa.json"
	cfg.LogFile = "/var/log/mrisync.log"

	if err := cfg.ExpandPaths(); err != nil {
		t.Fatalf("ExpandPaths failed: %v", err)
	}
	if strings.HasPrefix(cfg.CredentialsFile, "~") {
		t.Errorf("Expected ~ to be expanded, got %q", cfg.CredentialsFile)
	}
	if !strings.HasSuffix(cfg.CredentialsFile, filepath.Join("keys", "sa.json")) {
		t.Errorf("Unexpected expansion %q", cfg.CredentialsFile)
	}
	if cfg.LogFile != "/var/log/mrisync.log" {
		t.Errorf("Absolute path should be unchanged, got %q", cfg.LogFile)
	}
}

func TestGetConfigDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvPrefix+"CONFIG_DIR", dir)

	got, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir failed: %v", err)
	}
	if got != dir {
		t.Errorf("Expected %q, got %q", dir, got)
	}

	path, err := GetConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, ConfigFileName) {
		t.Errorf("Unexpected config path %q", path)
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "TRUE", " yes ", "1", "on"} {
		if !parseBool(s) {
			t.Errorf("Expected %q to parse as true", s)
		}
	}
	for _, s := range []string{"false", "0", "no", "", "maybe"} {
		if parseBool(s) {
			t.Errorf("Expected %q to parse as false", s)
		}
	}
}

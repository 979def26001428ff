package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns defaults completed with the fields Validate requires
func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Sheets.BaseURL = "https://sheets.example.com"
	cfg.Sheets.SpreadsheetID = "sheet-1"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://damadam.pk", cfg.Site.BaseURL)
	assert.Equal(t, "Profiles", cfg.Sheets.ProfilesTab)
	assert.Equal(t, "Target", cfg.Sheets.TargetTab)
	assert.Equal(t, "Logs", cfg.Sheets.LogTab)
	assert.Equal(t, "Dashboard", cfg.Sheets.DashboardTab)
	assert.Equal(t, 800*time.Millisecond, cfg.Sheets.WriteDelay)
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 0, cfg.Sync.MaxPerRun, "default is unlimited")
	assert.Equal(t, 20, cfg.Sync.BatchSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing spreadsheet ID",
			mutate:  func(c *Config) { c.Sheets.SpreadsheetID = "" },
			wantErr: "spreadsheet ID is required",
		},
		{
			name:    "missing site URL",
			mutate:  func(c *Config) { c.Site.BaseURL = "" },
			wantErr: "site base URL is required",
		},
		{
			name:    "missing tab names",
			mutate:  func(c *Config) { c.Sheets.TargetTab = "" },
			wantErr: "profiles and target tab names are required",
		},
		{
			name:    "negative write delay",
			mutate:  func(c *Config) { c.Sheets.WriteDelay = -time.Second },
			wantErr: "write delay cannot be negative",
		},
		{
			name:    "zero requests per minute",
			mutate:  func(c *Config) { c.RateLimit.RequestsPerMinute = 0 },
			wantErr: "requests per minute must be positive",
		},
		{
			name:    "zero retry attempts",
			mutate:  func(c *Config) { c.Retry.MaxAttempts = 0 },
			wantErr: "retry max attempts must be positive",
		},
		{
			name:    "negative max per run",
			mutate:  func(c *Config) { c.Sync.MaxPerRun = -1 },
			wantErr: "max per run cannot be negative",
		},
		{
			name: "min delay above max delay",
			mutate: func(c *Config) {
				c.Sync.MinDelay = time.Second
				c.Sync.MaxDelay = 100 * time.Millisecond
			},
			wantErr: "min delay cannot exceed max delay",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Sheets.SpreadsheetID = ""
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spreadsheet ID is required")
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sheets:
  base_url: https://sheets.example.com
  spreadsheet_id: from-file
sync:
  batch_size: 5
logging:
  level: debug
`), 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "from-file", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, 5, cfg.Sync.BatchSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "Profiles", cfg.Sheets.ProfilesTab, "unset keys keep their defaults")
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PROFILESYNC_SPREADSHEET_ID", "from-env")
	t.Setenv("PROFILESYNC_SHEETS_TOKEN", "tok-env")
	t.Setenv("PROFILESYNC_REQUESTS_PER_MINUTE", "12")
	t.Setenv("PROFILESYNC_MAX_PER_RUN", "40")
	t.Setenv("PROFILESYNC_WRITE_DELAY", "1500ms")
	t.Setenv("PROFILESYNC_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "from-env", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, "tok-env", cfg.Sheets.Token)
	assert.Equal(t, 12, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 40, cfg.Sync.MaxPerRun)
	assert.Equal(t, 1500*time.Millisecond, cfg.Sheets.WriteDelay)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFromEnvIgnoresBadValues(t *testing.T) {
	t.Setenv("PROFILESYNC_REQUESTS_PER_MINUTE", "not-a-number")
	t.Setenv("PROFILESYNC_WRITE_DELAY", "-5s")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 800*time.Millisecond, cfg.Sheets.WriteDelay)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := validConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"spreadsheet-id":      "from-flag",
		"sheets-token":        "tok-flag",
		"max-per-run":         15,
		"batch-size":          10,
		"requests-per-minute": 30,
		"log-level":           "debug",
	})

	assert.Equal(t, "from-flag", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, "tok-flag", cfg.Sheets.Token)
	assert.Equal(t, 15, cfg.Sync.MaxPerRun)
	assert.Equal(t, 10, cfg.Sync.BatchSize)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestMergeCommandLineFlagsSkipsEmpty(t *testing.T) {
	cfg := validConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"spreadsheet-id": "",
		"batch-size":     0,
	})

	assert.Equal(t, "sheet-1", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, 20, cfg.Sync.BatchSize)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sheets:
  base_url: https://sheets.example.com
  spreadsheet_id: from-file
`), 0600))
	t.Setenv("PROFILESYNC_SPREADSHEET_ID", "from-env")

	cfg, err := Load(path, map[string]interface{}{"spreadsheet-id": "from-flag"})
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Sheets.SpreadsheetID, "flags beat env and file")

	cfg, err = Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Sheets.SpreadsheetID, "env beats file")
}

func TestSaveRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := validConfig()
	cfg.Sync.BatchSize = 7
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "sheet-1", loaded.Sheets.SpreadsheetID)
	assert.Equal(t, 7, loaded.Sync.BatchSize)
}

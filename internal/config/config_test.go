package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:      AppConfig{Environment: "development"},
		Logger:   LoggerConfig{Level: "info"},
		Database: DatabaseConfig{Path: "/some/path/tagwright.db"},
		Jobs:     JobsConfig{Workers: 2, QueueSize: 64},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},  // case insensitive
		{"trace", false}, // not supported
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Limits(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Path = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Jobs.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.RateLimit.BURCreatePerMinute = -1
	assert.Error(t, cfg.Validate())
}

func TestExpandDatabasePath_EmptyUsesDefault(t *testing.T) {
	cfg := &Config{}

	require.NoError(t, cfg.expandDatabasePath())

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "Tagwright", "tagwright.db"), cfg.Database.Path)
	assert.Equal(t, filepath.Join(homeDir, "Tagwright"), cfg.DataDir())
}

func TestExpandDatabasePath_TildeExpansion(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Path: "~/data/bur.db"}}

	require.NoError(t, cfg.expandDatabasePath())

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "data", "bur.db"), cfg.Database.Path)
}

func TestExpandDatabasePath_RelativePath(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Path: "relative/bur.db"}}

	require.NoError(t, cfg.expandDatabasePath())

	assert.True(t, filepath.IsAbs(cfg.Database.Path))
	assert.Contains(t, cfg.Database.Path, "relative/bur.db")
}

func TestGetConfigValue_Precedence(t *testing.T) {
	assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_KEY", "default-value"))

	t.Setenv(EnvPrefix+"TEST_KEY", "env-value")
	assert.Equal(t, "env-value", getConfigValue("", "TEST_KEY", "default-value"))

	assert.Equal(t, "default-value", getConfigValue("", "NONEXISTENT_KEY", "default-value"))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env"), "-db-path", "/tmp/tw/tagwright.db"})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "/tmp/tw/tagwright.db", cfg.Database.Path)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, JobsConfig{Workers: 2, QueueSize: 64}, cfg.Jobs)
	assert.Equal(t, 10, cfg.RateLimit.BURCreatePerMinute)
	assert.Equal(t, 20, cfg.RateLimit.LoginPerMinute)
	assert.Equal(t, "[bulk]", cfg.Forum.TopicPrefix)
}

func TestLoad_Precedence(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "TAGWRIGHT_LOG_LEVEL=debug\nTAGWRIGHT_SERVER_PORT=7000\nTAGWRIGHT_JOB_WORKERS=8\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	// Registered with t.Setenv so the values written by the .env loader are restored.
	t.Setenv(EnvPrefix+"LOG_LEVEL", "")
	t.Setenv(EnvPrefix+"JOB_WORKERS", "")
	t.Setenv(EnvPrefix+"SERVER_PORT", "9000")
	t.Setenv(EnvPrefix+"ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load([]string{
		"-env-file", envFile,
		"-db-path", "/tmp/tw.db",
		"-job-workers", "4",
		"-job-inline", "yes",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level) // .env
	assert.Equal(t, "9000", cfg.Server.Port)   // env beats .env
	assert.Equal(t, 4, cfg.Jobs.Workers)       // flag beats .env
	assert.True(t, cfg.Jobs.Inline)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load([]string{"-env-file", "", "-db-path", "/tmp/tw.db", "-access-token-duration", "soon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access token duration")
}

func TestLoad_UnknownFlag(t *testing.T) {
	_, err := Load([]string{"-no-such-flag"})
	assert.Error(t, err)
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := `# Test env file
TW_TEST_ENV=staging
# Comment line
TW_TEST_QUOTED="some value"
TW_TEST_SINGLE='another value'
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	t.Setenv("TW_TEST_ENV", "")
	t.Setenv("TW_TEST_QUOTED", "")
	t.Setenv("TW_TEST_SINGLE", "")

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "staging", os.Getenv("TW_TEST_ENV"))
	assert.Equal(t, "some value", os.Getenv("TW_TEST_QUOTED"))
	assert.Equal(t, "another value", os.Getenv("TW_TEST_SINGLE"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := `VALID_KEY=valid_value
INVALID LINE WITHOUT EQUALS
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	err := loadEnvFile(envFile)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	assert.Error(t, loadEnvFile("/nonexistent/file/.env"))
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("TW_TEST_VAR", "original-value")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`TW_TEST_VAR=new-value`), 0o644))

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "original-value", os.Getenv("TW_TEST_VAR"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}

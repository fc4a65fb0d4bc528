package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without env or file",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "utf-8", cfg.Ingest.Encoding)
				assert.True(t, cfg.Ingest.DayFirst)
				assert.Equal(t, 5, cfg.Report.TopN)
				assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
				assert.Equal(t, 15*time.Second, cfg.Telemetry.RuntimeInterval)
			},
		},
		{
			name: "environment overrides defaults",
			env: map[string]string{
				"LOTPULSE_SERVER_PORT":              "9090",
				"LOTPULSE_INGEST_ENCODING":          "windows-1252",
				"LOTPULSE_INGEST_DAY_FIRST":         "false",
				"LOTPULSE_REPORT_TOP_N":             "3",
				"LOTPULSE_SESSION_TTL":              "30m",
				"LOTPULSE_SECURITY_ALLOWED_ORIGINS": "http://a.test,http://b.test",
				"LOTPULSE_LOGGING_FORMAT":           "TEXT",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "windows-1252", cfg.Ingest.Encoding)
				assert.False(t, cfg.Ingest.DayFirst)
				assert.Equal(t, 3, cfg.Report.TopN)
				assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
				assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "file values apply and env wins over file",
			file: "server:\n  port: 7070\nreport:\n  top_n: 7\ningest:\n  encoding: iso-8859-15\n",
			env: map[string]string{
				"LOTPULSE_REPORT_TOP_N": "4",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 4, cfg.Report.TopN)
				assert.Equal(t, "iso-8859-15", cfg.Ingest.Encoding)
				// untouched keys keep their defaults
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"LOTPULSE_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "unknown encoding",
			env:     map[string]string{"LOTPULSE_INGEST_ENCODING": "klingon-8"},
			wantErr: true,
		},
		{
			name:    "top n below one",
			env:     map[string]string{"LOTPULSE_REPORT_TOP_N": "0"},
			wantErr: true,
		},
		{
			name:    "malformed duration",
			env:     map[string]string{"LOTPULSE_SESSION_TTL": "soon"},
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "server: [unclosed",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// keep the developer's config file out of the test
			t.Setenv(EnvPrefix+"_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
			if tt.file != "" {
				t.Setenv(EnvPrefix+"_CONFIG_FILE", writeConfigFile(t, tt.file))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfigFile(t, "logging:\n  output: sideways\nreport:\n  timezone: UTC\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	// unknown outputs fall back to console
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, "UTC", cfg.Report.Location().String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default is valid", func(*Config) {}, ""},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, "read timeout"},
		{"cors without origins", func(c *Config) { c.Security.AllowedOrigins = nil }, "allowed origin"},
		{"cors disabled without origins", func(c *Config) {
			c.Security.EnableCORS = false
			c.Security.AllowedOrigins = nil
		}, ""},
		{"bad rate limit", func(c *Config) { c.Security.RateLimit.RPS = 0 }, "rate limit"},
		{"bad upload limit", func(c *Config) { c.Ingest.MaxUploadBytes = 0 }, "max upload"},
		{"bad timezone", func(c *Config) { c.Report.Timezone = "Mars/Olympus" }, "timezone"},
		{"bad sample ratio", func(c *Config) { c.Telemetry.SampleRatio = 1.5 }, "sample ratio"},
		{"bad exporter", func(c *Config) { c.Telemetry.TraceExporter = "jaeger" }, "trace exporter"},
		{"negative runtime interval", func(c *Config) { c.Telemetry.RuntimeInterval = -time.Second }, "runtime interval"},
		{"no sessions", func(c *Config) { c.Session.MaxSessions = 0 }, "max_sessions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReportLocation(t *testing.T) {
	assert.Equal(t, time.Local, ReportConfig{}.Location())
	assert.Equal(t, time.Local, ReportConfig{Timezone: "local"}.Location())
	assert.Equal(t, "UTC", ReportConfig{Timezone: "UTC"}.Location().String())
}

func TestServerAddress(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8081", ServerConfig{Host: "127.0.0.1", Port: 8081}.Address())
	assert.Equal(t, ":8080", ServerConfig{Port: 8080}.Address())
}

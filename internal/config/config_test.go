package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "threadweave.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Reconstruct.ReportEvery != 250_000 {
		t.Errorf("expected report_every 250000, got %d", cfg.Reconstruct.ReportEvery)
	}
	if !cfg.Reconstruct.Chronological {
		t.Error("chronological should default to true")
	}
	if len(cfg.Reconstruct.Placeholders) != 2 {
		t.Errorf("expected default placeholders, got %v", cfg.Reconstruct.Placeholders)
	}
	if cfg.Reader.BufferSize != 16<<20 {
		t.Errorf("expected 16MiB buffer, got %s", cfg.Reader.BufferSize)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
reconstruct:
  min_comments: 3
  chronological: false
  placeholders: ["[deleted]", "[removed]", "[null]"]
reader:
  buffer_size: 2MiB
logging:
  level: debug
store:
  path: threads.db
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Reconstruct.MinComments != 3 {
		t.Errorf("expected min_comments 3, got %d", cfg.Reconstruct.MinComments)
	}
	if cfg.Reconstruct.Chronological {
		t.Error("explicit false should override the default")
	}
	if cfg.Reconstruct.ReportEvery != 250_000 {
		t.Errorf("unset field should keep default, got %d", cfg.Reconstruct.ReportEvery)
	}
	if len(cfg.Reconstruct.Placeholders) != 3 {
		t.Errorf("expected 3 placeholders, got %v", cfg.Reconstruct.Placeholders)
	}
	if cfg.Reader.BufferSize != 2<<20 {
		t.Errorf("expected 2MiB, got %d", cfg.Reader.BufferSize)
	}
	if cfg.Store.Path != "threads.db" || cfg.Logging.Level != "debug" {
		t.Errorf("unexpected store/logging: %+v %+v", cfg.Store, cfg.Logging)
	}
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: warn\nreconstruct:\n  workers: 2\n")
	t.Setenv("THREADWEAVE_LOG_LEVEL", "error")
	t.Setenv("THREADWEAVE_WORKERS", "6")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("expected env level error, got %s", cfg.Logging.Level)
	}
	if cfg.Reconstruct.Workers != 6 {
		t.Errorf("expected env workers 6, got %d", cfg.Reconstruct.Workers)
	}
}

func TestLoad_PathFromEnv(t *testing.T) {
	path := writeConfig(t, "reconstruct:\n  subreddit: news\n")
	t.Setenv(EnvConfigPath, path)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Reconstruct.Subreddit != "news" {
		t.Errorf("expected subreddit news, got %q", cfg.Reconstruct.Subreddit)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"negative min", "reconstruct:\n  min_comments: -1\n", "min_comments"},
		{"empty marker", "reconstruct:\n  placeholders: [\"[deleted]\", \" \"]\n", "placeholders[1]"},
		{"bad size", "reader:\n  buffer_size: lots\n", "invalid size"},
		{"tiny buffer", "reader:\n  buffer_size: 1KiB\n", "below 64KiB"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"bad yaml", "reconstruct: [", "parsing config"},
	}
	for _, tt := range tests {
		_, err := Load(writeConfig(t, tt.body))
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error %q should mention %q", tt.name, err, tt.want)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestLoad_BadEnvInteger(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("THREADWEAVE_WORKERS", "many")
	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric THREADWEAVE_WORKERS")
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]SizeBytes{
		"":      0,
		"4096":  4096,
		"64KiB": 64 << 10,
		"16MiB": 16 << 20,
		"1 MB":  1_000_000,
	}
	for in, want := range tests {
		got, err := ParseSize(in)
		if err != nil {
			t.Errorf("ParseSize(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseSize(%q) = %d, want %d", in, got, want)
		}
	}
}

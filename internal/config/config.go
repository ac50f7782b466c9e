package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"threadweave/internal/thread"
)

// EnvConfigPath names the env var holding the config file path.
const EnvConfigPath = "THREADWEAVE_CONFIG"

const defaultBufferSize = 16 << 20

// Config is the full runtime configuration.
type Config struct {
	Reconstruct ReconstructConfig `yaml:"reconstruct"`
	Reader      ReaderConfig      `yaml:"reader"`
	Logging     LoggingConfig     `yaml:"logging"`
	Store       StoreConfig       `yaml:"store"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ReconstructConfig holds the pipeline policy.
type ReconstructConfig struct {
	MinComments   int      `yaml:"min_comments"`
	MaxThreads    int      `yaml:"max_threads"`
	Subreddit     string   `yaml:"subreddit"`
	ReportEvery   int      `yaml:"report_every"`
	Workers       int      `yaml:"workers"` // 0 means one per CPU
	SortedInput   bool     `yaml:"sorted_input"`
	Chronological bool     `yaml:"chronological"`
	Placeholders  []string `yaml:"placeholders"`
}

// ReaderConfig sizes the line reader. BufferSize bounds the longest line.
type ReaderConfig struct {
	BufferSize SizeBytes `yaml:"buffer_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Sink   string `yaml:"sink"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// SizeBytes is a byte count read from strings like "16MiB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseSize(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s SizeBytes) String() string { return humanize.IBytes(uint64(s)) }

// ParseSize parses a human byte size. An empty string is zero.
func ParseSize(raw string) (SizeBytes, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		return SizeBytes(v), nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return SizeBytes(i), nil
	}
	return 0, fmt.Errorf("invalid size value: %q", raw)
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Reconstruct: ReconstructConfig{
			ReportEvery:   250_000,
			Chronological: true,
			Placeholders:  append([]string(nil), thread.DefaultPlaceholders...),
		},
		Reader:  ReaderConfig{BufferSize: defaultBufferSize},
		Logging: LoggingConfig{Level: "info", Format: "text", Sink: "stderr"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// $THREADWEAVE_CONFIG when path is empty) and environment overrides. A
// missing file is only an error when a path was given.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays THREADWEAVE_* variables.
func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"THREADWEAVE_LOG_LEVEL":        &cfg.Logging.Level,
		"THREADWEAVE_LOG_FORMAT":       &cfg.Logging.Format,
		"THREADWEAVE_LOG_SINK":         &cfg.Logging.Sink,
		"THREADWEAVE_DB":               &cfg.Store.Path,
		"THREADWEAVE_METRICS_TEXTFILE": &cfg.Metrics.Textfile,
		"THREADWEAVE_SUBREDDIT":        &cfg.Reconstruct.Subreddit,
	}
	for key, dst := range strs {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"THREADWEAVE_WORKERS":      &cfg.Reconstruct.Workers,
		"THREADWEAVE_MIN_COMMENTS": &cfg.Reconstruct.MinComments,
	}
	for key, dst := range ints {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", key, v)
		}
		*dst = n
	}

	if v := os.Getenv("THREADWEAVE_BUFFER_SIZE"); v != "" {
		size, err := ParseSize(v)
		if err != nil {
			return fmt.Errorf("THREADWEAVE_BUFFER_SIZE: %w", err)
		}
		cfg.Reader.BufferSize = size
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	r := c.Reconstruct
	if r.MinComments < 0 {
		errs = append(errs, errors.New("reconstruct.min_comments must be >= 0"))
	}
	if r.MaxThreads < 0 {
		errs = append(errs, errors.New("reconstruct.max_threads must be >= 0"))
	}
	if r.ReportEvery < 0 {
		errs = append(errs, errors.New("reconstruct.report_every must be >= 0"))
	}
	if r.Workers < 0 {
		errs = append(errs, errors.New("reconstruct.workers must be >= 0"))
	}
	for i, p := range r.Placeholders {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("reconstruct.placeholders[%d] is empty", i))
		}
	}
	if c.Reader.BufferSize < 64<<10 {
		errs = append(errs, fmt.Errorf("reader.buffer_size %s is below 64KiB", c.Reader.BufferSize))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be text or json", c.Logging.Format))
	}
	return errors.Join(errs...)
}

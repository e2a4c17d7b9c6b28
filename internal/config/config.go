package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/xorcrack/internal/crack"
	"github.com/RowanDark/xorcrack/internal/env"
)

const (
	homeDirName   = ".xorcrack"
	homeFileName  = "config.yaml"
	localFileName = "xorcrack.yml"
)

// Config captures the xorcrack configuration resolved from defaults, optional
// files, and environment overrides.
type Config struct {
	ServerAddr string `yaml:"server_addr"`
	AuthToken  string `yaml:"auth_token"`
	Alphabet   string `yaml:"alphabet"`
	Strict     bool   `yaml:"strict"`
	MaxConns   int    `yaml:"max_conns"`
	AuditLog   string `yaml:"audit_log"`
	RecipesDir string `yaml:"recipes_dir"`

	// TraceFile receives a JSON line per sampled RPC span.
	TraceFile        string  `yaml:"trace_file"`
	TraceSampleRatio float64 `yaml:"trace_sample_ratio"`

	// MetricsAddr serves /metrics over HTTP when set.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the built-in configuration. RecipesDir is relative to the
// home directory and is expanded by Load.
func Default() Config {
	return Config{
		ServerAddr: "127.0.0.1:50051",
		Alphabet:   "default",
		MaxConns:   64,
		RecipesDir: filepath.Join("~", homeDirName, "recipes"),
	}
}

// Load resolves the configuration using defaults, configuration files, and
// environment overrides. Files are applied in order, later ones winning:
//  1. ~/.xorcrack/config.yaml
//  2. ./xorcrack.yml
//
// Environment variables prefixed with XORCRACK_ have the highest precedence.
func Load() (Config, error) {
	cfg := Default()

	if err := loadHomeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLocalConfig(&cfg); err != nil {
		return Config{}, err
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	cfg.RecipesDir = expandHome(cfg.RecipesDir)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServerAddr) == "" {
		return errors.New("server_addr cannot be empty")
	}
	if _, err := crack.AlphabetByName(c.Alphabet); err != nil {
		return fmt.Errorf("alphabet: %w", err)
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("max_conns must not be negative, got %d", c.MaxConns)
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("trace_sample_ratio must be between 0 and 1, got %g", c.TraceSampleRatio)
	}
	return nil
}

// Redacted returns a copy safe for printing.
func (c Config) Redacted() Config {
	if c.AuthToken != "" {
		c.AuthToken = "********"
	}
	return c
}

func loadHomeConfig(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		// No home directory means no per-user config.
		return nil
	}
	return loadFile(cfg, filepath.Join(home, homeDirName, homeFileName))
}

func loadLocalConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	return loadFile(cfg, filepath.Join(wd, localFileName))
}

// LoadFile applies a single YAML file on top of cfg.
func LoadFile(cfg *Config, path string) error {
	return loadFile(cfg, path)
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// fileConfig uses pointers so that keys absent from a file leave earlier
// values untouched.
type fileConfig struct {
	ServerAddr *string `yaml:"server_addr"`
	AuthToken  *string `yaml:"auth_token"`
	Alphabet   *string `yaml:"alphabet"`
	Strict     *bool   `yaml:"strict"`
	MaxConns   *int    `yaml:"max_conns"`
	AuditLog   *string `yaml:"audit_log"`
	RecipesDir *string `yaml:"recipes_dir"`

	TraceFile        *string  `yaml:"trace_file"`
	TraceSampleRatio *float64 `yaml:"trace_sample_ratio"`
	MetricsAddr      *string  `yaml:"metrics_addr"`
}

func applyFileConfig(cfg *Config, data []byte) error {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	if fc.ServerAddr != nil {
		cfg.ServerAddr = strings.TrimSpace(*fc.ServerAddr)
	}
	if fc.AuthToken != nil {
		cfg.AuthToken = strings.TrimSpace(*fc.AuthToken)
	}
	if fc.Alphabet != nil {
		cfg.Alphabet = strings.TrimSpace(*fc.Alphabet)
	}
	if fc.Strict != nil {
		cfg.Strict = *fc.Strict
	}
	if fc.MaxConns != nil {
		cfg.MaxConns = *fc.MaxConns
	}
	if fc.AuditLog != nil {
		cfg.AuditLog = strings.TrimSpace(*fc.AuditLog)
	}
	if fc.RecipesDir != nil {
		cfg.RecipesDir = strings.TrimSpace(*fc.RecipesDir)
	}
	if fc.TraceFile != nil {
		cfg.TraceFile = strings.TrimSpace(*fc.TraceFile)
	}
	if fc.TraceSampleRatio != nil {
		cfg.TraceSampleRatio = *fc.TraceSampleRatio
	}
	if fc.MetricsAddr != nil {
		cfg.MetricsAddr = strings.TrimSpace(*fc.MetricsAddr)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if val, ok := env.Lookup("XORCRACK_SERVER_ADDR", "XORCRACK_SERVER"); ok {
		cfg.ServerAddr = val
	}
	if val, ok := env.Lookup("XORCRACK_AUTH_TOKEN", "XORCRACK_TOKEN"); ok {
		cfg.AuthToken = val
	}
	if val, ok := env.Lookup("XORCRACK_ALPHABET"); ok {
		cfg.Alphabet = val
	}
	if val, ok := env.Lookup("XORCRACK_STRICT"); ok {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("XORCRACK_STRICT: %w", err)
		}
		cfg.Strict = parsed
	}
	if val, ok := env.Lookup("XORCRACK_MAX_CONNS"); ok {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("XORCRACK_MAX_CONNS: %w", err)
		}
		cfg.MaxConns = parsed
	}
	if val, ok := env.Lookup("XORCRACK_AUDIT_LOG"); ok {
		cfg.AuditLog = val
	}
	if val, ok := env.Lookup("XORCRACK_RECIPES_DIR"); ok {
		cfg.RecipesDir = val
	}
	if val, ok := env.Lookup("XORCRACK_TRACE_FILE"); ok {
		cfg.TraceFile = val
	}
	if val, ok := env.Lookup("XORCRACK_TRACE_SAMPLE_RATIO"); ok {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("XORCRACK_TRACE_SAMPLE_RATIO: %w", err)
		}
		cfg.TraceSampleRatio = parsed
	}
	if val, ok := env.Lookup("XORCRACK_METRICS_ADDR"); ok {
		cfg.MetricsAddr = val
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

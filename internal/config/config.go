// Package config loads calculette settings from TOML or YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "CALCULETTE_CONFIG"

// Config is the complete application configuration.
type Config struct {
	Evaluator EvaluatorConfig `toml:"evaluator" yaml:"evaluator"`
	Explain   ExplainConfig   `toml:"explain" yaml:"explain"`
	Log       LogConfig       `toml:"log" yaml:"log"`
}

// EvaluatorConfig holds settings for the eval command.
type EvaluatorConfig struct {
	// Prec is the precision of calculations in bits.
	Prec uint `toml:"prec" yaml:"prec"`
	// Format is the result format: a fmt verb for *big.Float or "js".
	Format string `toml:"format" yaml:"format"`
}

// ExplainConfig selects and configures the explanation provider.
type ExplainConfig struct {
	// Provider is "simulated" or "ollama".
	Provider string       `toml:"provider" yaml:"provider"`
	Delay    Duration     `toml:"delay" yaml:"delay"`
	Ollama   OllamaConfig `toml:"ollama" yaml:"ollama"`
}

// OllamaConfig holds the Ollama server settings.
type OllamaConfig struct {
	BaseURL string   `toml:"base_url" yaml:"base_url"`
	Model   string   `toml:"model" yaml:"model"`
	Timeout Duration `toml:"timeout" yaml:"timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `toml:"level" yaml:"level"`
	// File is where the TUI writes logs. Empty discards them.
	File string `toml:"file" yaml:"file"`
}

// Duration wraps time.Duration for text config formats.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses a duration scalar.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a string like \"1.5s\"", value.Line)
	}
	return d.UnmarshalText([]byte(value.Value))
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// Load loads configuration from a file. Files ending in .yaml or .yml are
// YAML; anything else is TOML.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(b, detectFormat(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Format is a config file syntax.
type Format int

const (
	// TOML is the default format.
	TOML Format = iota
	// YAML is used for .yaml and .yml files.
	YAML
)

func (f Format) String() string {
	switch f {
	case TOML:
		return "toml"
	case YAML:
		return "yaml"
	default:
		return "Format(?)"
	}
}

// Parse decodes configuration in the given format and applies defaults.
func Parse(b []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case TOML:
		md, err := toml.NewDecoder(bytes.NewReader(b)).Decode(&cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing TOML: %w", err)
		}
		if un := md.Undecoded(); len(un) > 0 {
			return nil, fmt.Errorf("unknown keys: %v", un)
		}
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		// An empty document is an empty config.
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %v", format)
	}
	cfg.applyDefaults()
	cfg.expandEnvVars()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault loads the file named by CALCULETTE_CONFIG or the first file
// found in the default locations. If there is no file, the result is the
// default configuration, and path is empty.
func LoadDefault() (cfg *Config, path string, err error) {
	path = os.Getenv(EnvVar)
	if path == "" {
		for _, p := range SearchPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path == "" {
		return Default(), "", nil
	}
	cfg, err = Load(path)
	return cfg, path, err
}

// SearchPaths lists the default config file locations in order.
func SearchPaths() []string {
	paths := []string{"./calculette.toml", "./calculette.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths,
			filepath.Join(dir, "calculette", "config.toml"),
			filepath.Join(dir, "calculette", "config.yaml"),
		)
	}
	return paths
}

func detectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return TOML
	}
}

func (c *Config) applyDefaults() {
	if c.Evaluator.Prec == 0 {
		c.Evaluator.Prec = 53
	}
	if c.Evaluator.Format == "" {
		c.Evaluator.Format = "%g"
	}
	if c.Explain.Provider == "" {
		c.Explain.Provider = "simulated"
	}
	if c.Explain.Delay.Duration == 0 {
		c.Explain.Delay.Duration = 1500 * time.Millisecond
	}
	if c.Explain.Ollama.BaseURL == "" {
		c.Explain.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Explain.Ollama.Model == "" {
		c.Explain.Ollama.Model = "mistral:7b"
	}
	if c.Explain.Ollama.Timeout.Duration == 0 {
		c.Explain.Ollama.Timeout.Duration = 120 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) expandEnvVars() {
	c.Explain.Ollama.BaseURL = os.ExpandEnv(c.Explain.Ollama.BaseURL)
	c.Log.File = os.ExpandEnv(c.Log.File)
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	switch c.Explain.Provider {
	case "simulated", "ollama":
	default:
		return fmt.Errorf("unknown explain provider %q", c.Explain.Provider)
	}
	if c.Explain.Delay.Duration < 0 {
		return fmt.Errorf("negative explain delay %v", c.Explain.Delay)
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// SlogLevel returns the configured level. Unknown names are info.
func (c LogConfig) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

package entcheck

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the .entcheck.yaml configuration file.
type Config struct {
	// Per-code severity overrides, e.g. "relation-reference-not-key": "error".
	Severity map[string]string `yaml:"severity,omitempty"`

	// Codes that are never reported.
	Disable []string `yaml:"disable,omitempty"`

	// Glob patterns (relative to the config file) of .ent files to skip.
	Exclude []string `yaml:"exclude,omitempty"`

	// Schema config for the schema command.
	Schema SchemaConfig `yaml:"schema,omitempty"`

	// Dir is the directory holding the config file. Not read from YAML.
	Dir string `yaml:"-"`
}

// SchemaConfig holds settings for the schema command.
type SchemaConfig struct {
	// SQL dialect (e.g., "postgres", "sqlite")
	Dialect string `yaml:"dialect,omitempty"`

	// Output file; empty means stdout
	Out string `yaml:"out,omitempty"`
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".entcheck.yaml", ".entcheck.yml", "entcheck.yaml", "entcheck.yml"}

var validSeverities = map[string]bool{
	"error":       true,
	"warning":     true,
	"information": true,
	"hint":        true,
}

// LoadConfig finds and loads the nearest .entcheck.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	for code, sev := range cfg.Severity {
		if !validSeverities[sev] {
			return nil, fmt.Errorf("%w: %s: severity %q for %s", ErrInvalidConfig, path, sev, code)
		}
	}

	cfg.Dir = filepath.Dir(path)

	return &cfg, nil
}

// Excluded reports whether a file path matches one of the exclude patterns.
func (c *Config) Excluded(path string) bool {
	rel := path

	if c.Dir != "" {
		if r, err := filepath.Rel(c.Dir, path); err == nil {
			rel = r
		}
	}

	for _, pattern := range c.Exclude {
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}

		if matched, _ := filepath.Match(pattern, filepath.Base(path)); matched {
			return true
		}
	}

	return false
}

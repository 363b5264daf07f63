package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads and validates a configuration file.
//
// The path is made absolute and symlinks are resolved so that Dir is the real
// directory of the file. The format is chosen by extension: .json, or .yaml
// and .yml.
//
// Parameters:
//   - path: Path to the configuration file, relative to the current directory or absolute
//
// Returns:
//   - *Config: The parsed configuration with commands in document order
//   - error: Error if the file can't be read, parsed, or fails validation
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(real)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", real, err)
	}

	commands, err := Parse(data, filepath.Ext(real))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", real, err)
	}

	cfg := &Config{
		Path:     real,
		Dir:      filepath.Dir(real),
		Commands: commands,
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", real, err)
	}
	return cfg, nil
}

// Parse decodes configuration data in the format implied by ext
// (".json", ".yaml" or ".yml", case-insensitive).
func Parse(data []byte, ext string) ([]CommandSpec, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return parseJSON(data)
	case ".yaml", ".yml":
		return parseYAML(data)
	case "":
		return nil, fmt.Errorf("could not recognise extension for config file")
	default:
		return nil, fmt.Errorf("unknown file extension for config file: %s", ext)
	}
}

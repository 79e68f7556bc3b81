// Package config resolves SDK configuration from a YAML file, environment
// overrides and built-in defaults, in that order of increasing precedence.
//
// The home-directory default for key storage lives here, at the application
// boundary; the keys package only ever sees explicit directories.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultRegistry is the public AIRC registry.
const DefaultRegistry = "https://slashvibe.dev"

// Config is the resolved SDK configuration.
type Config struct {
	// Registry is the base URL of the AIRC registry.
	Registry string `yaml:"registry"`
	// Handle is the agent name used for registration and signing.
	Handle string `yaml:"handle"`
	// SignRequests attaches X-AIRC-Signature headers to outbound calls.
	SignRequests bool `yaml:"signRequests"`
	// StorageRoot is the directory holding key material and config.
	StorageRoot string `yaml:"storageRoot"`
}

// Default returns the built-in configuration. StorageRoot is ~/.airc when a
// home directory can be resolved, empty otherwise.
func Default() Config {
	cfg := Config{Registry: DefaultRegistry}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.StorageRoot = filepath.Join(home, ".airc")
	}
	return cfg
}

// Load reads configuration from path, falling back to <storage root>/
// config.yaml when path is empty. A missing file is not an error; a present
// but unparsable file is. Environment overrides are applied last: they win
// over the file, and AIRC_STORAGE_ROOT also moves where the default file is
// looked for.
func Load(path string) (Config, error) {
	cfg := Default()
	applyEnvOverrides(&cfg)

	candidates := make([]string, 0, 2)
	if path != "" {
		candidates = append(candidates, path)
	} else if cfg.StorageRoot != "" {
		candidates = append(candidates, filepath.Join(cfg.StorageRoot, "config.yaml"))
	}

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			if os.IsNotExist(err) && path == "" {
				continue
			}
			return Config{}, fmt.Errorf("config: reading %s: %w", candidate, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", candidate, err)
		}
		break
	}

	applyEnvOverrides(&cfg)
	cfg.Registry = strings.TrimRight(cfg.Registry, "/")
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AIRC_REGISTRY"); v != "" {
		cfg.Registry = v
	}
	if v := os.Getenv("AIRC_HANDLE"); v != "" {
		cfg.Handle = v
	}
	if v := os.Getenv("AIRC_STORAGE_ROOT"); v != "" {
		cfg.StorageRoot = v
	}
	if v := os.Getenv("AIRC_SIGN_REQUESTS"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.SignRequests = parsed
		}
	}
}

// SigningKeyDir is where signing-key artifacts live.
func (c Config) SigningKeyDir() string {
	return filepath.Join(c.StorageRoot, "keys")
}

// RecoveryKeyDir is where recovery-key artifacts live, separate from
// signing keys so the two can carry different permissions.
func (c Config) RecoveryKeyDir() string {
	return filepath.Join(c.StorageRoot, "recovery")
}

// pkg/config/source.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read as configuration.
const EnvPrefix = "SSLARTIFACT_"

// ConfigSource represents a configuration source that can load values into koanf.
// Sources are loaded in priority order (lowest first), with higher priority sources
// overriding lower priority values.
//
// Built-in sources and their priorities:
//   - DefaultSource (10): Hardcoded default values
//   - FileSource (20): Config file (YAML)
//   - DotEnvSource (25): .env file exported into the process environment
//   - EnvSource (30): Environment variables (SSLARTIFACT_*)
//   - FlagSource (40): Command-line flags
type ConfigSource interface {
	// Name returns a human-readable name for this source (for logging/debugging)
	Name() string

	// Priority returns the load priority. Lower values are loaded first,
	// higher values override lower ones.
	Priority() int

	// Load loads configuration values into the provided koanf instance.
	Load(k *koanf.Koanf) error
}

// DefaultSource provides hardcoded default configuration values.
type DefaultSource struct{}

func (s *DefaultSource) Name() string  { return "defaults" }
func (s *DefaultSource) Priority() int { return 10 }

func (s *DefaultSource) Load(k *koanf.Koanf) error {
	if err := k.Load(confmap.Provider(DefaultConfigAsMap(), "."), nil); err != nil {
		return fmt.Errorf("error loading defaults: %w", err)
	}
	return nil
}

// FileSource loads configuration from a YAML file.
type FileSource struct {
	Path string // Path to config file (optional, silently skipped if empty or missing)
}

func (s *FileSource) Name() string  { return "file:" + s.Path }
func (s *FileSource) Priority() int { return 20 }

func (s *FileSource) Load(k *koanf.Koanf) error {
	if s.Path == "" {
		return nil
	}

	if _, err := os.Stat(s.Path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error checking config file %s: %w", s.Path, err)
	}

	if err := k.Load(file.Provider(s.Path), yaml.Parser()); err != nil {
		return fmt.Errorf("error loading config file %s: %w", s.Path, err)
	}
	return nil
}

// DotEnvSource exports variables from a .env file into the process
// environment without overriding variables that are already set. It loads
// nothing into koanf itself; EnvSource picks the values up.
type DotEnvSource struct {
	Path string // Defaults to ".env" in the working directory
}

func (s *DotEnvSource) Name() string  { return "dotenv" }
func (s *DotEnvSource) Priority() int { return 25 }

func (s *DotEnvSource) Load(*koanf.Koanf) error {
	path := s.Path
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// EnvSource loads configuration from environment variables. The first
// underscore after the prefix separates section from key:
//
//	SSLARTIFACT_LOG_LEVEL       -> log.level
//	SSLARTIFACT_SCAN_OUTPUT_DIR -> scan.output_dir
type EnvSource struct {
	Prefix string // Environment variable prefix (default: "SSLARTIFACT_")
}

func (s *EnvSource) Name() string  { return "env" }
func (s *EnvSource) Priority() int { return 30 }

func (s *EnvSource) Load(k *koanf.Koanf) error {
	prefix := s.Prefix
	if prefix == "" {
		prefix = EnvPrefix
	}

	if err := k.Load(env.Provider(prefix, ".", func(key string) string {
		return EnvKey(prefix, key)
	}), nil); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}
	return nil
}

// EnvKey converts an environment variable name into a configuration key.
func EnvKey(prefix, name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, prefix))
	return strings.Replace(key, "_", ".", 1)
}

// FlagSource loads configuration from command-line flags. Only flags listed
// in flagKeys are considered, and unchanged flags never override values
// from lower priority sources.
type FlagSource struct {
	Flags *pflag.FlagSet
}

func (s *FlagSource) Name() string  { return "flags" }
func (s *FlagSource) Priority() int { return 40 }

func (s *FlagSource) Load(k *koanf.Koanf) error {
	if s.Flags == nil {
		return nil
	}

	provider := posflag.ProviderWithFlag(s.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key := FlagKey(f.Name)
		if key == "" {
			return "", nil
		}
		return key, posflag.FlagVal(s.Flags, f)
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("error loading command-line flags: %w", err)
	}

	if debug, err := s.Flags.GetBool("debug"); err == nil && debug {
		_ = k.Set("log.level", "debug")
	}
	return nil
}

// DefaultSources returns the standard configuration sources.
// Order: defaults -> file -> .env -> env -> flags
func DefaultSources(configPath string, flags *pflag.FlagSet) []ConfigSource {
	return []ConfigSource{
		&DefaultSource{},
		&FileSource{Path: configPath},
		&DotEnvSource{},
		&EnvSource{Prefix: EnvPrefix},
		&FlagSource{Flags: flags},
	}
}

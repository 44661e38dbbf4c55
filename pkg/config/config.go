// pkg/config/config.go
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
)

var validate = validator.New()

// Manager handles loading and accessing application configuration.
type Manager struct {
	koanfInstance *koanf.Koanf
	currentConfig Config
	mu            sync.RWMutex
}

// NewManager creates a new Manager with an empty koanf instance.
func NewManager() *Manager {
	return &Manager{koanfInstance: koanf.New(".")}
}

// DefaultConfig returns a new Config struct populated with hardcoded default values.
// These serve as the baseline configuration if no other sources override them.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level: "warn",
		},
		Scan: ScanConfig{
			Threads:        10,
			Program:        "sslscan",
			SearchRoot:     "/",
			SSLScanTimeout: "0",
			TestSSLTimeout: "240s",
		},
	}
}

// DefaultConfigAsMap converts the DefaultConfig struct to a map[string]interface{}
// for koanf's confmap.Provider.
func DefaultConfigAsMap() map[string]interface{} {
	def := DefaultConfig()
	return map[string]interface{}{
		"log.level": def.Log.Level,

		"scan.threads":         def.Scan.Threads,
		"scan.program":         def.Scan.Program,
		"scan.path":            def.Scan.Path,
		"scan.output_dir":      def.Scan.OutputDir,
		"scan.search_root":     def.Scan.SearchRoot,
		"scan.sslscan_timeout": def.Scan.SSLScanTimeout,
		"scan.testssl_timeout": def.Scan.TestSSLTimeout,
	}
}

// Load loads the default sources: defaults, the optional config file,
// .env, SSLARTIFACT_* environment variables and flags.
func (m *Manager) Load(flags *pflag.FlagSet, configPath string) error {
	return m.LoadWithSources(DefaultSources(configPath, flags))
}

// LoadWithSources loads every source in priority order (lowest first), then
// unmarshals and validates the merged result.
func (m *Manager) LoadWithSources(sources []ConfigSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ordered := append([]ConfigSource(nil), sources...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority() < ordered[j].Priority() })

	for _, src := range ordered {
		if err := src.Load(m.koanfInstance); err != nil {
			return fmt.Errorf("load %s: %w", src.Name(), err)
		}
	}

	var newCfg Config
	if err := m.koanfInstance.UnmarshalWithConf("", &newCfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("error unmarshaling final config: %w", err)
	}
	if err := validate.Struct(newCfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := newCfg.Scan.Timeouts(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	m.currentConfig = newCfg
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentConfig
}

// Timeouts returns the per-tool timeouts keyed by tool name.
func (s ScanConfig) Timeouts() (map[string]time.Duration, error) {
	sslscan, err := ParseTimeout(s.SSLScanTimeout)
	if err != nil {
		return nil, fmt.Errorf("scan.sslscan_timeout: %w", err)
	}
	testssl, err := ParseTimeout(s.TestSSLTimeout)
	if err != nil {
		return nil, fmt.Errorf("scan.testssl_timeout: %w", err)
	}
	return map[string]time.Duration{
		"sslscan":    sslscan,
		"testssl.sh": testssl,
	}, nil
}

// ParseTimeout accepts a whole number of seconds or a Go duration string.
// Empty means no limit.
func ParseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	var d time.Duration
	if _, err := strconv.Atoi(raw); err == nil {
		secs, err := cast.ToInt64E(raw)
		if err != nil {
			return 0, err
		}
		d = time.Duration(secs) * time.Second
	} else if d, err = cast.ToDurationE(raw); err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %q", raw)
	}
	return d, nil
}

// flagKeys maps CLI flag names onto configuration keys.
var flagKeys = map[string]string{
	"log-level":   "log.level",
	"threads":     "scan.threads",
	"program":     "scan.program",
	"path":        "scan.path",
	"output":      "scan.output_dir",
	"search-root": "scan.search_root",
}

// FlagKey returns the configuration key a flag overrides, or "".
func FlagKey(flag string) string {
	return flagKeys[flag]
}

// BindFlags defines the global flags that feed configuration.
func BindFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig()
	flags.String("log-level", defaults.Log.Level, "Log level (trace, debug, info, warn, error)")
	flags.Bool("debug", false, "Enable debug logging")
}

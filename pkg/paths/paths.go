// Package paths resolves per-user locations for sslartifact.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigFileName is the name of the user configuration file.
const ConfigFileName = "config.yaml"

// ConfigDir returns the config directory for sslartifact.
// Order: XDG_CONFIG_HOME/sslartifact, platform-specific fallback.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sslartifact")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("AppData"); appData != "" {
			return filepath.Join(appData, "sslartifact")
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sslartifact")
}

// DefaultConfigFile is the config file read when --config is not given.
// It need not exist.
func DefaultConfigFile() string {
	return filepath.Join(ConfigDir(), ConfigFileName)
}

// pkg/config/types.go
package config

// Config is the root configuration structure for sslartifact.
type Config struct {
	Log  LogConfig  `description:"Logging configuration" koanf:"log"`
	Scan ScanConfig `description:"Scan configuration" koanf:"scan"`
}

// LogConfig holds logging related configuration.
type LogConfig struct {
	Level string `description:"Log level (trace, debug, info, warn, error)" koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
}

// ScanConfig holds defaults for new and resumed runs.
type ScanConfig struct {
	Threads    int    `description:"Number of concurrent scanner processes" koanf:"threads" validate:"min=1"`
	Program    string `description:"Scanner to drive: sslscan | testssl.sh" koanf:"program" validate:"oneof=sslscan testssl.sh"`
	Path       string `description:"Scanner executable or directory to search" koanf:"path"`
	OutputDir  string `description:"Output directory for new runs" koanf:"output_dir"`
	SearchRoot string `description:"Filesystem root searched when the scanner is not on PATH" koanf:"search_root"`

	// Timeouts accept a Go duration ("4m") or a number of seconds ("240").
	// Zero disables the limit.
	SSLScanTimeout string `description:"Per-target timeout for sslscan" koanf:"sslscan_timeout"`
	TestSSLTimeout string `description:"Per-target timeout for testssl.sh" koanf:"testssl_timeout"`
}

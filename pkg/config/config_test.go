package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_UsesDotDelimiter(t *testing.T) {
	manager := NewManager()
	require.NotNil(t, manager.koanfInstance)
	assert.Equal(t, ".", manager.koanfInstance.Delim())
}

func TestNewManager_ManagersAreIndependent(t *testing.T) {
	m1 := NewManager()
	m2 := NewManager()
	assert.NotSame(t, m1.koanfInstance, m2.koanfInstance)
}

func TestDefaultConfig_ReturnsExpectedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Scan.Threads)
	assert.Equal(t, "sslscan", cfg.Scan.Program)
	assert.Equal(t, "/", cfg.Scan.SearchRoot)
	assert.Equal(t, "240s", cfg.Scan.TestSSLTimeout)
}

func TestManager_Load_LoadsDefaultsWhenNoFlags(t *testing.T) {
	chdirTemp(t)
	manager := NewManager()
	require.NoError(t, manager.Load(newTestFlagSet(), ""))

	cfg := manager.Get()
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestManager_Load_OverridesWithFlags(t *testing.T) {
	chdirTemp(t)
	flags := newTestFlagSet()
	require.NoError(t, flags.Parse([]string{"--threads", "3", "--program", "testssl.sh", "--output", "/tmp/out"}))

	manager := NewManager()
	require.NoError(t, manager.Load(flags, ""))

	cfg := manager.Get()
	assert.Equal(t, 3, cfg.Scan.Threads)
	assert.Equal(t, "testssl.sh", cfg.Scan.Program)
	assert.Equal(t, "/tmp/out", cfg.Scan.OutputDir)
}

func TestManager_Load_UnchangedFlagsKeepFileValues(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan:\n  threads: 4\n"), 0o600))

	manager := NewManager()
	require.NoError(t, manager.Load(newTestFlagSet(), path))
	assert.Equal(t, 4, manager.Get().Scan.Threads)
}

func TestManager_Load_DebugFlagSetsLogLevelToDebug(t *testing.T) {
	chdirTemp(t)
	flags := newTestFlagSet()
	require.NoError(t, flags.Parse([]string{"--debug"}))

	manager := NewManager()
	require.NoError(t, manager.Load(flags, ""))
	assert.Equal(t, "debug", manager.Get().Log.Level)
}

func TestManager_Load_RejectsInvalidValues(t *testing.T) {
	chdirTemp(t)
	cases := map[string][]string{
		"zero threads":  {"--threads", "0"},
		"unknown tool":  {"--program", "nikto"},
		"bad log level": {"--log-level", "loud"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			flags := newTestFlagSet()
			require.NoError(t, flags.Parse(args))
			err := NewManager().Load(flags, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestManager_Load_RejectsBadTimeout(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SSLARTIFACT_SCAN_TESTSSL_TIMEOUT", "soon")
	err := NewManager().Load(newTestFlagSet(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan.testssl_timeout")
}

func TestScanConfig_Timeouts(t *testing.T) {
	timeouts, err := DefaultConfig().Scan.Timeouts()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), timeouts["sslscan"])
	assert.Equal(t, 240*time.Second, timeouts["testssl.sh"])
}

func TestParseTimeout(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"0", 0},
		{"240", 240 * time.Second},
		{" 90 ", 90 * time.Second},
		{"4m", 4 * time.Minute},
		{"1m30s", 90 * time.Second},
	}
	for _, tc := range cases {
		got, err := ParseTimeout(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseTimeout("-5s")
	assert.Error(t, err)
	_, err = ParseTimeout("-5")
	assert.Error(t, err)
	_, err = ParseTimeout("later")
	assert.Error(t, err)
}

func TestBindFlags_AddsGlobalFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)

	debug := flags.Lookup("debug")
	require.NotNil(t, debug)
	assert.Equal(t, "false", debug.DefValue)

	level := flags.Lookup("log-level")
	require.NotNil(t, level)
	assert.Equal(t, "warn", level.DefValue)
}

func TestFlagKey(t *testing.T) {
	assert.Equal(t, "scan.output_dir", FlagKey("output"))
	assert.Equal(t, "scan.threads", FlagKey("threads"))
	assert.Empty(t, FlagKey("resume"))
}

// newTestFlagSet mirrors the flags the scan command registers.
func newTestFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	flags.Int("threads", 10, "")
	flags.String("program", "sslscan", "")
	flags.String("path", "", "")
	flags.StringP("output", "o", "", "")
	flags.Bool("resume", false, "")
	return flags
}

// chdirTemp isolates tests from a stray .env in the working directory.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

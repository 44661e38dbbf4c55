package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSource_Load(t *testing.T) {
	k := koanf.New(".")
	src := &DefaultSource{}
	assert.Equal(t, 10, src.Priority())
	assert.Equal(t, "defaults", src.Name())

	require.NoError(t, src.Load(k))
	assert.Equal(t, "warn", k.String("log.level"))
	assert.Equal(t, 10, k.Int("scan.threads"))
	assert.Equal(t, "240s", k.String("scan.testssl_timeout"))
}

func TestFileSource_Load_SkipsMissing(t *testing.T) {
	k := koanf.New(".")
	require.NoError(t, (&FileSource{}).Load(k), "empty path should skip silently")
	require.NoError(t, (&FileSource{Path: "/nonexistent/path/config.yaml"}).Load(k))
	assert.Empty(t, k.Keys())
}

func TestFileSource_Load_ValidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log:
  level: info
scan:
  threads: 4
  program: testssl.sh
  output_dir: /srv/scans
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	k := koanf.New(".")
	src := &FileSource{Path: configPath}
	assert.Equal(t, 20, src.Priority())
	assert.Equal(t, "file:"+configPath, src.Name())

	require.NoError(t, src.Load(k))
	assert.Equal(t, "info", k.String("log.level"))
	assert.Equal(t, 4, k.Int("scan.threads"))
	assert.Equal(t, "testssl.sh", k.String("scan.program"))
	assert.Equal(t, "/srv/scans", k.String("scan.output_dir"))
}

func TestFileSource_Load_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("scan: [unclosed"), 0o644))

	err := (&FileSource{Path: configPath}).Load(koanf.New("."))
	require.Error(t, err)
	assert.Contains(t, err.Error(), configPath)
}

func TestEnvSource_Load(t *testing.T) {
	t.Setenv("SSLARTIFACT_LOG_LEVEL", "error")
	t.Setenv("SSLARTIFACT_SCAN_THREADS", "7")
	t.Setenv("SSLARTIFACT_SCAN_OUTPUT_DIR", "/data/out")

	k := koanf.New(".")
	src := &EnvSource{}
	assert.Equal(t, 30, src.Priority())

	require.NoError(t, src.Load(k))
	assert.Equal(t, "error", k.String("log.level"))
	assert.Equal(t, 7, k.Int("scan.threads"))
	assert.Equal(t, "/data/out", k.String("scan.output_dir"))
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "log.level", EnvKey(EnvPrefix, "SSLARTIFACT_LOG_LEVEL"))
	assert.Equal(t, "scan.search_root", EnvKey(EnvPrefix, "SSLARTIFACT_SCAN_SEARCH_ROOT"))
	assert.Equal(t, "scan.testssl_timeout", EnvKey(EnvPrefix, "SSLARTIFACT_SCAN_TESTSSL_TIMEOUT"))
}

func TestDotEnvSource_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SSLARTIFACT_SCAN_THREADS=5\nSSLARTIFACT_LOG_LEVEL=info\n"), 0o600))

	// Existing variables win over the file.
	t.Setenv("SSLARTIFACT_LOG_LEVEL", "error")
	t.Setenv("SSLARTIFACT_SCAN_THREADS", "")
	require.NoError(t, os.Unsetenv("SSLARTIFACT_SCAN_THREADS"))

	manager := NewManager()
	require.NoError(t, manager.LoadWithSources([]ConfigSource{
		&DefaultSource{},
		&DotEnvSource{Path: path},
		&EnvSource{},
	}))

	cfg := manager.Get()
	assert.Equal(t, 5, cfg.Scan.Threads)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestDotEnvSource_Load_MissingFile(t *testing.T) {
	src := &DotEnvSource{Path: filepath.Join(t.TempDir(), ".env")}
	assert.Equal(t, 25, src.Priority())
	require.NoError(t, src.Load(koanf.New(".")))
}

func TestFlagSource_Load_NilFlags(t *testing.T) {
	src := &FlagSource{}
	assert.Equal(t, 40, src.Priority())
	assert.Equal(t, "flags", src.Name())
	require.NoError(t, src.Load(koanf.New(".")), "nil flags should skip silently")
}

func TestFlagSource_Load_MapsChangedFlags(t *testing.T) {
	k := koanf.New(".")
	require.NoError(t, (&DefaultSource{}).Load(k))

	flags := newTestFlagSet()
	require.NoError(t, flags.Parse([]string{"--path", "/opt/sslscan", "--resume"}))

	require.NoError(t, (&FlagSource{Flags: flags}).Load(k))
	assert.Equal(t, "/opt/sslscan", k.String("scan.path"))
	assert.Equal(t, 10, k.Int("scan.threads"), "unchanged flags keep lower priority values")
	assert.False(t, k.Exists("resume"), "unmapped flags are ignored")
}

func TestFlagSource_Load_DebugFlag(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	require.NoError(t, flags.Parse([]string{"--debug"}))

	k := koanf.New(".")
	require.NoError(t, (&FlagSource{Flags: flags}).Load(k))
	assert.Equal(t, "debug", k.String("log.level"))
}

func TestDefaultSources_Order(t *testing.T) {
	sources := DefaultSources("/tmp/config.yaml", nil)

	require.Len(t, sources, 5)
	names := make([]string, 0, len(sources))
	for i, src := range sources {
		names = append(names, src.Name())
		if i > 0 {
			assert.Greater(t, src.Priority(), sources[i-1].Priority())
		}
	}
	assert.Equal(t, []string{"defaults", "file:/tmp/config.yaml", "dotenv", "env", "flags"}, names)
}

func TestLoadWithSources_CustomSource(t *testing.T) {
	custom := &mockConfigSource{
		name:     "custom",
		priority: 22,
		loadFunc: func(k *koanf.Koanf) error {
			return k.Set("scan.threads", 2)
		},
	}

	manager := NewManager()
	require.NoError(t, manager.LoadWithSources([]ConfigSource{&DefaultSource{}, custom, &EnvSource{}}))
	assert.Equal(t, 2, manager.Get().Scan.Threads)
}

func TestLoadWithSources_PriorityOrdering(t *testing.T) {
	t.Setenv("SSLARTIFACT_LOG_LEVEL", "error")

	manager := NewManager()
	require.NoError(t, manager.LoadWithSources([]ConfigSource{
		&EnvSource{},     // priority 30
		&DefaultSource{}, // priority 10, loaded first despite order
	}))
	assert.Equal(t, "error", manager.Get().Log.Level)
}

func TestLoadWithSources_SourceErrorNamesSource(t *testing.T) {
	failing := &mockConfigSource{
		name:     "broken",
		priority: 15,
		loadFunc: func(*koanf.Koanf) error { return assert.AnError },
	}
	err := NewManager().LoadWithSources([]ConfigSource{&DefaultSource{}, failing})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "load broken")
}

type mockConfigSource struct {
	name     string
	priority int
	loadFunc func(k *koanf.Koanf) error
}

func (m *mockConfigSource) Name() string  { return m.name }
func (m *mockConfigSource) Priority() int { return m.priority }
func (m *mockConfigSource) Load(k *koanf.Koanf) error {
	if m.loadFunc != nil {
		return m.loadFunc(k)
	}
	return nil
}

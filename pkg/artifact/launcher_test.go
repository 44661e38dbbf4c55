//go:build !windows

package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vulntor/sslartifact/pkg/jobstore"
	"github.com/vulntor/sslartifact/pkg/target"
	"github.com/vulntor/sslartifact/pkg/tool"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scanner.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestExecLauncher_CapturesStdout(t *testing.T) {
	script := writeScript(t, "echo \"scanned $@\"\nexit 3\n")
	out := filepath.Join(t.TempDir(), "raw")

	p, err := ExecLauncher{}.Start(Command{Path: script, Args: []string{"10.0.0.1:443"}, StdoutFile: out})
	require.NoError(t, err)
	require.NoError(t, p.Wait(), "non-zero exit is a completed scan")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "scanned 10.0.0.1:443\n", string(data))
}

func TestExecLauncher_MissingBinary(t *testing.T) {
	_, err := ExecLauncher{}.Start(Command{Path: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
}

func TestExecute_RealSubprocesses(t *testing.T) {
	// Writes the xml artifact the way sslscan does and prints to stdout.
	script := writeScript(t, `for a in "$@"; do
  case "$a" in
    --xml=*) echo "<document/>" > "${a#--xml=}" ;;
  esac
done
case "$3" in
  slow*) sleep 5 ;;
esac
echo "report for $3"
`)

	o := NewOrchestrator().WithTimeout(tool.SSLScan, 300*time.Millisecond)
	dir := t.TempDir()
	h, err := o.StartRun(context.Background(), target.NewSet("10.0.0.1:443", "slow:443"), tool.SSLScan, script, dir)
	require.NoError(t, err)

	summary, err := o.Execute(context.Background(), h, 2)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Completed)
	require.Equal(t, 1, summary.TimedOut)

	raw, err := os.ReadFile(filepath.Join(dir, "10.0.0.1_443"))
	require.NoError(t, err)
	require.Equal(t, "report for 10.0.0.1:443\n", string(raw))
	require.FileExists(t, filepath.Join(dir, "xml", "10.0.0.1_443.xml"))

	recs := records(t, h.StorePath)
	require.Equal(t, jobstore.StatusCompleted, recs["10.0.0.1:443"].Status)
	require.Equal(t, jobstore.StatusTimeout, recs["slow:443"].Status)
}

func TestExecute_TestSSLReplacesStaleArtifacts(t *testing.T) {
	// Refuses existing non-empty output files unless --overwrite is given,
	// like testssl.sh.
	script := writeScript(t, `overwrite=
for a in "$@"; do
  [ "$a" = "--overwrite" ] && overwrite=1
done
files=
while [ $# -gt 1 ]; do
  case "$1" in
    --csvfile|--jsonfile|--logfile)
      if [ -s "$2" ] && [ -z "$overwrite" ]; then
        echo "$2 exists" >&2
        exit 245
      fi
      files="$files $2"
      shift ;;
  esac
  shift
done
for f in $files; do
  echo "fresh $1" > "$f"
done
`)

	dir := t.TempDir()
	stale := filepath.Join(dir, "csv", "10.0.0.1_443.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o750))
	require.NoError(t, os.WriteFile(stale, []byte("partial header\n"), 0o600))

	o := NewOrchestrator()
	h, err := o.StartRun(context.Background(), target.NewSet("10.0.0.1:443"), tool.TestSSL, script, dir)
	require.NoError(t, err)

	summary, err := o.Execute(context.Background(), h, 1)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Completed)

	for _, path := range []string{
		stale,
		filepath.Join(dir, "json", "10.0.0.1_443.json"),
		filepath.Join(dir, "10.0.0.1_443"),
	} {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "fresh 10.0.0.1:443\n", string(data))
	}
}

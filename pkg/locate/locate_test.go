package locate

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeExecutable(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), mode))
}

func TestWalk(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	root := t.TempDir()
	writeExecutable(t, filepath.Join(root, "a", "sslscan"), 0o644)
	writeExecutable(t, filepath.Join(root, "b", "c", "sslscan"), 0o755)

	t.Run("finds executable and skips non-executable match", func(t *testing.T) {
		got, err := Walk("sslscan", root)
		require.NoError(t, err)
		require.Equal(t, filepath.Join(root, "b", "c", "sslscan"), got)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := Walk("testssl.sh", root)
		require.Error(t, err)
		require.True(t, IsNotFound(err))

		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		require.Equal(t, "testssl.sh", nf.Name)
	})
}

func TestLocate_PrefersPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	binDir := t.TempDir()
	writeExecutable(t, filepath.Join(binDir, "fake-scanner"), 0o755)
	t.Setenv("PATH", binDir)

	got, err := Locate("fake-scanner", t.TempDir())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(binDir, "fake-scanner"), got)
}

func TestResolve(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	root := t.TempDir()
	exe := filepath.Join(root, "opt", "testssl", "testssl.sh")
	writeExecutable(t, exe, 0o755)
	t.Setenv("PATH", t.TempDir())

	t.Run("executable hint is used as-is", func(t *testing.T) {
		got, err := Resolve("testssl.sh", exe, "")
		require.NoError(t, err)
		require.Equal(t, exe, got)
	})

	t.Run("directory hint becomes search root", func(t *testing.T) {
		got, err := Resolve("testssl.sh", filepath.Join(root, "opt"), "")
		require.NoError(t, err)
		require.Equal(t, exe, got)
	})

	t.Run("empty hint uses default root", func(t *testing.T) {
		got, err := Resolve("testssl.sh", "", root)
		require.NoError(t, err)
		require.Equal(t, exe, got)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Resolve("sslscan", filepath.Join(root, "opt"), "")
		require.True(t, IsNotFound(err))
	})
}

func TestOnPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	dir := t.TempDir()
	writeExecutable(t, filepath.Join(dir, "testssl.sh"), 0o755)
	t.Setenv("PATH", dir)

	got, err := OnPath("testssl.sh")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "testssl.sh"), got)

	_, err = OnPath("sslscan")
	require.True(t, IsNotFound(err))
	require.Contains(t, err.Error(), "under PATH")
}

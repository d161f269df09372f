package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePassphraseExplicitFlagWins(t *testing.T) {
	pass, src, err := ResolvePassphrase("flag-pass", true, "ignored.txt", "ignored.ab")
	require.NoError(t, err)
	require.Equal(t, []byte("flag-pass"), pass)
	require.Equal(t, PassphraseFlag, src)
}

func TestResolvePassphraseFromFileVerbatim(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pass.txt")
	require.NoError(t, os.WriteFile(path, []byte("has trailing newline\n"), 0o600))

	pass, src, err := ResolvePassphrase("", false, path, "input.ab")
	require.NoError(t, err)
	require.Equal(t, []byte("has trailing newline\n"), pass, "passphrase bytes must never be trimmed")
	require.Equal(t, PassphraseFile, src)
}

func TestResolvePassphraseSidecarFallback(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "backup.ab")
	sidecar := input + ".passphrase.txt"
	require.NoError(t, os.WriteFile(sidecar, []byte("sidecar-pass"), 0o600))

	pass, src, err := ResolvePassphrase("", false, "", input)
	require.NoError(t, err)
	require.Equal(t, []byte("sidecar-pass"), pass)
	require.Equal(t, PassphraseSidecar, src)
}

func TestResolvePassphraseNoneFound(t *testing.T) {
	dir := t.TempDir()
	pass, src, err := ResolvePassphrase("", false, "", filepath.Join(dir, "nope.ab"))
	require.NoError(t, err)
	require.Nil(t, pass)
	require.Equal(t, PassphraseNone, src)
}

func TestDefaultOutputName(t *testing.T) {
	require.Equal(t, "backup.tar", DefaultOutputName("backup.ab", ".tar"))
	require.Equal(t, "path/to/backup.stripped.ab", DefaultOutputName("path/to/backup.ab", ".stripped.ab"))
	require.Equal(t, "backup.tar", DefaultOutputName("backup.adb", ".tar"))
}

func TestDefaultOutputNameLeavesUnrecognizedExtensions(t *testing.T) {
	require.Equal(t, "backup.dat.tar", DefaultOutputName("backup.dat", ".tar"))
}

func TestDefaultSplitPrefix(t *testing.T) {
	require.Equal(t, "abarms_split_backup", DefaultSplitPrefix("/some/dir/backup.ab"))
}

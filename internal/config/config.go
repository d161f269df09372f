// Package config resolves the inputs shared by every abtool operation
// that are not specific to any one of them: which passphrase to use,
// and what to name an output file the user didn't name explicitly.
// Grounded on abarms/__main__.py's begin_input/get_passphrase and the
// default-output-name conventions scattered through its ab_* functions.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/abtool/abtool/internal/aberrors"
)

// PassphraseSource names where a resolved passphrase came from, purely
// for logging - it never affects the bytes used.
type PassphraseSource int

const (
	PassphraseNone PassphraseSource = iota
	PassphraseFlag
	PassphraseFile
	PassphraseSidecar
	PassphrasePrompt
)

// ResolvePassphrase implements the discovery order spec.md §6 and the
// reference implementation specify: an explicit --passphrase value
// wins outright; failing that, an explicit --passfile is read
// verbatim; failing that, a sidecar file named "<input>.passphrase.txt"
// is tried; only if none of those produce a value does the caller fall
// back to interactive prompting (not handled here - that's a terminal
// concern owned by internal/cli).
//
// Passphrase bytes are used exactly as read: no trimming of
// whitespace or trailing newlines, ever, since the original format's
// KDF treats the passphrase as an opaque byte string and a "helpful"
// strip would silently change every derived key.
func ResolvePassphrase(explicit string, explicitSet bool, passfile, inputPath string) ([]byte, PassphraseSource, error) {
	if explicitSet {
		return []byte(explicit), PassphraseFlag, nil
	}
	if passfile != "" {
		b, err := readExact(passfile)
		if err != nil {
			return nil, PassphraseNone, aberrors.Wrap(aberrors.KindInputMissing, err, "unable to read passphrase file %q", passfile)
		}
		return b, PassphraseFile, nil
	}
	if inputPath != "" && inputPath != "-" {
		sidecar := inputPath + ".passphrase.txt"
		if b, err := readExact(sidecar); err == nil {
			return b, PassphraseSidecar, nil
		}
	}
	return nil, PassphraseNone, nil
}

func readExact(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// inputExts are the extensions DefaultOutputName/DefaultSplitPrefix
// strip before appending a new suffix, matching the reference CLI's
// os.path.splitext + "ext in input_exts" check: an input whose
// extension isn't one of these is left untouched, not stripped.
var inputExts = map[string]bool{
	".ab":  true,
	".adb": true,
}

// DefaultOutputName derives an output filename from an input path,
// stripping a recognized Android Backup extension (.ab/.adb) and
// appending newSuffix, matching the suffix conventions the reference
// CLI applies per subcommand when -o/--output is omitted. An input
// with an unrecognized extension keeps it; newSuffix is appended to
// the full original path instead. A "-" input (stdin) yields "-"
// (stdout).
func DefaultOutputName(inputPath, newSuffix string) string {
	if IsStdioName(inputPath) {
		return inputPath
	}
	base := inputPath
	if ext := filepath.Ext(base); inputExts[strings.ToLower(ext)] {
		base = strings.TrimSuffix(base, ext)
	}
	return base + newSuffix
}

// DefaultSplitPrefix derives the output filename prefix used by split
// when --prefix is omitted: "abarms_split_<input-without-ext>".
func DefaultSplitPrefix(inputPath string) string {
	base := filepath.Base(inputPath)
	if ext := filepath.Ext(base); inputExts[strings.ToLower(ext)] {
		base = strings.TrimSuffix(base, ext)
	}
	return "abarms_split_" + base
}

// IsStdioName reports whether path is the conventional "-" meaning
// stdin or stdout, depending on context.
func IsStdioName(path string) bool {
	return path == "-"
}

// TrimmedEqual reports whether two passphrases are byte-for-byte
// identical; nothing is trimmed from either side before comparing.
func TrimmedEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}

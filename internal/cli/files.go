package cli

import (
	"io"
	"os"

	"github.com/abtool/abtool/internal/aberrors"
	"github.com/abtool/abtool/internal/config"
)

// openInput opens path for reading, treating "-" as stdin, per
// spec.md §6's "-" convention.
func openInput(path string) (io.ReadCloser, error) {
	if config.IsStdioName(path) {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, aberrors.Wrap(aberrors.KindInputMissing, err, "unable to open input %q", path)
	}
	return f, nil
}

// createOutput creates path for writing, treating "-" as stdout and
// refusing to silently clobber an existing file unless overwrite is
// set, per spec.md §6/§7 (OutputExists).
func createOutput(path string, overwrite bool) (io.WriteCloser, error) {
	if config.IsStdioName(path) {
		return nopWriteCloser{os.Stdout}, nil
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, aberrors.Wrap(aberrors.KindOutputExists, err, "output %q already exists (use --force to overwrite)", path)
		}
		return nil, aberrors.Wrap(aberrors.KindOutputExists, err, "unable to create output %q", path)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

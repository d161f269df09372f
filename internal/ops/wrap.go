package ops

import (
	"io"

	"github.com/abtool/abtool/internal/abcodec"
)

// Wrap reads a bare TAR stream from r and writes a fresh AB file to w,
// with the given version and compression/encryption settings. Grounded
// on ab_wrap, which is begin_ab_output followed by copy_input_to_output.
func Wrap(r io.Reader, w io.Writer, version int, compress, encrypt bool, passphrase []byte, cfg abcodec.Config, progress ProgressReporter) error {
	if progress == nil {
		progress = NopProgress{}
	}
	out, err := CreateOutput(w, version, compress, encrypt, false, passphrase, cfg)
	if err != nil {
		return err
	}
	n, err := io.Copy(out.Body, r)
	progress.Report(n, 0)
	if err != nil {
		out.Close()
		return err
	}
	progress.Done()
	return out.Close()
}

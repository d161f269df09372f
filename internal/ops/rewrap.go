package ops

import (
	"io"

	"github.com/abtool/abtool/internal/abcodec"
)

// RewrapOptions controls which of rewrap's three modes runs (spec.md
// §4.7 / ab_strip):
//
//   - default: fully decode the body (decrypt, unpad, decompress) and
//     re-encode it under the new settings - the only mode that can
//     change the compression setting.
//   - KeepCompression: decrypt and unpad, but pass the (possibly still
//     compressed) bytes straight through untouched; NewCompress is
//     ignored and the output's compression flag mirrors the input's.
//   - a plain change of encryption with the same compression setting
//     is just the default path with NewCompress == input's setting;
//     it is not a separate code path.
type RewrapOptions struct {
	NewVersion      int
	NewCompress     bool
	NewEncrypt      bool
	KeepCompression bool
	OutPassphrase   []byte
}

// Rewrap re-encodes in under opts, writing the result to w. The input
// pipeline must have been opened with keepCompression matching
// opts.KeepCompression (OpenInput's keepCompression argument), so its
// Body already yields the right kind of bytes for this mode.
func Rewrap(in *InputPipeline, w io.Writer, opts RewrapOptions, cfg abcodec.Config, progress ProgressReporter) error {
	if progress == nil {
		progress = NopProgress{}
	}

	compress := opts.NewCompress
	encrypt := opts.NewEncrypt
	outPassphrase := opts.OutPassphrase
	passthroughCompressed := false
	if opts.KeepCompression {
		compress = in.Header.Compression
		passthroughCompressed = in.StillCompressed()
		// ab_strip's keep-compression branch hardcodes encryption to
		// none and never calls begin_output_encryption - it never
		// re-encrypts a passthrough body, regardless of -e/--output-passphrase.
		encrypt = false
		outPassphrase = nil
	}

	version := opts.NewVersion
	if version == 0 {
		version = in.Header.Version
	}

	out, err := CreateOutput(w, version, compress, encrypt, passthroughCompressed, outPassphrase, cfg)
	if err != nil {
		return err
	}

	n, err := io.Copy(out.Body, in.Body)
	progress.Report(n, 0)
	if err != nil {
		out.Close()
		return err
	}
	progress.Done()
	return out.Close()
}

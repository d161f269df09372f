// Package ops implements the six Android Backup operations abtool
// exposes - ls, rewrap, split, merge, unwrap, wrap - choreographed
// over internal/abcodec, internal/tariter and internal/stage. Grounded
// on abarms/__main__.py's ab_ls/ab_strip/ab_split/ab_merge/ab_unwrap/
// ab_wrap and their shared begin_ab_input/begin_ab_output helpers.
package ops

import (
	"bufio"
	"io"

	"github.com/abtool/abtool/internal/abcodec"
	"github.com/abtool/abtool/internal/stage"
)

// ProgressReporter receives coarse-grained byte-progress updates as an
// operation streams a file; implementations decide how (or whether) to
// render them. It generalizes the reference implementation's
// prev_percent-throttled report_progress.
type ProgressReporter interface {
	// Report is called with bytes processed so far and, when known,
	// the total expected; total is 0 when it isn't known in advance
	// (e.g. reading from a pipe).
	Report(done, total int64)
	Done()
}

// NopProgress discards all updates.
type NopProgress struct{}

func (NopProgress) Report(done, total int64) {}
func (NopProgress) Done()                    {}

// InputPipeline is an opened, decoded-as-needed AB input: Body yields
// the TAR byte stream (still compressed, if keepCompression was
// requested and the source was compressed).
type InputPipeline struct {
	Header          *abcodec.Header
	Body            io.Reader
	stillCompressed bool
}

// StillCompressed reports whether Body's bytes are zlib-compressed TAR
// data rather than raw TAR data - true only when the source was
// compressed and the caller asked to keep it that way.
func (p *InputPipeline) StillCompressed() bool { return p.stillCompressed }

// OpenInput parses an AB header from r and returns a pipeline whose
// Body yields decrypted (if needed) TAR bytes. When keepCompression is
// true and the source is compressed, Body yields the still-compressed
// bytes instead of transparently inflating them - this is what
// rewrap's --keep-compression mode needs: decrypt and unpad, but don't
// touch the compression layer.
func OpenInput(r io.Reader, passphrase []byte, keepCompression bool, cfg abcodec.Config) (*InputPipeline, error) {
	br := bufio.NewReaderSize(r, 4096)
	header, err := abcodec.ParseHeader(br, passphrase, cfg)
	if err != nil {
		return nil, err
	}

	var body io.Reader = br
	if header.Encryption == "AES-256" {
		decrypted, err := stage.NewBodyDecryptReader(br, header.MasterKey, header.MasterIV)
		if err != nil {
			return nil, err
		}
		body = decrypted
	}

	stillCompressed := false
	if header.Compression {
		if keepCompression {
			stillCompressed = true
		} else {
			inflated, err := stage.NewInflateReader(body)
			if err != nil {
				return nil, err
			}
			body = inflated
		}
	}

	return &InputPipeline{Header: header, Body: body, stillCompressed: stillCompressed}, nil
}

// OutputPipeline is an opened AB output: Body is where the caller
// writes TAR bytes (or, when keepCompression was requested at input
// time and mirrored here, still-compressed bytes to pass through
// unchanged); Close finalizes every layered stage and must always be
// called.
type OutputPipeline struct {
	Body    io.Writer
	closers []io.Closer
}

func (p *OutputPipeline) Close() error {
	var firstErr error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CreateOutput writes an AB header to w per version/compress/encrypt,
// and returns a pipeline whose Body accepts TAR bytes (raw, unless
// passthroughCompressed is true, in which case the caller is expected
// to write already-zlib-compressed bytes directly, matching
// --keep-compression's output half).
func CreateOutput(w io.Writer, version int, compress, encrypt bool, passthroughCompressed bool, passphrase []byte, cfg abcodec.Config) (*OutputPipeline, error) {
	params, err := abcodec.WriteHeader(w, version, compress, encrypt, passphrase, cfg)
	if err != nil {
		return nil, err
	}

	out := &OutputPipeline{Body: w}

	var sink io.Writer = w
	if encrypt {
		ew, err := stage.NewBodyEncryptWriter(w, params.MasterKey, params.MasterIV)
		if err != nil {
			return nil, err
		}
		out.closers = append(out.closers, ew)
		sink = ew
	}

	if compress && !passthroughCompressed {
		zw := stage.NewDeflateWriter(sink)
		out.closers = append(out.closers, zw)
		sink = zw
	}

	out.Body = sink
	return out, nil
}

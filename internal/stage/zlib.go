package stage

import (
	"io"

	"github.com/klauspost/compress/zlib"
)

// NewInflateReader wraps r in a zlib decompressor. It mirrors the
// reference implementation's `zlib.decompressobj(0)`: zlib-format
// framing with header detection (wbits=0 semantics), not raw deflate.
// The returned ReadCloser must be closed by the caller once drained.
func NewInflateReader(r io.Reader) (io.ReadCloser, error) {
	return zlib.NewReader(r)
}

// NewDeflateWriter wraps w in a zlib compressor at the library's
// default compression level. This is intentionally higher than the
// level Android itself uses; the reference implementation's own
// comment warns this makes `--compress` slower than the original
// Android backup tool in exchange for a smaller output file.
func NewDeflateWriter(w io.Writer) io.WriteCloser {
	zw, _ := zlib.NewWriterLevel(w, zlib.DefaultCompression)
	return zw
}

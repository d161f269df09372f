// Package stage implements the composable byte-stream filter
// abstraction the Android Backup codec is built from (spec.md §4.4),
// plus the concrete crypto and zlib filter stages (§4.2, §4.3) that
// are stacked over it. Filters are composed by construction: each
// decode or encode pipeline builds a fixed chain of stages based on
// what the AB header declares, never by runtime type inspection.
package stage

import "io"

// DefaultBlockSize is used when a caller doesn't need a specific pull
// size; it matches the buffer size the reference implementation reads
// from decompressors and cipher stages with.
const DefaultBlockSize = 16 * 1024 * 1024

// Stage is a byte-in/byte-out transform with two hooks: OnData is
// called with each chunk read from (or written to) the inner
// stream, and OnEOF is called exactly once, at end of input (or at
// Flush on the write side), to emit any buffered finalization output
// (e.g. PKCS#7 padding, a cipher's final block, a decompressor's
// trailer). Neither hook performs I/O itself.
type Stage interface {
	OnData(data []byte) ([]byte, error)
	OnEOF() ([]byte, error)
}

// Teller is implemented by readers that can report their current
// read offset, so progress reporting can pass through filter stages
// to the underlying file the way spec.md §4.4 requires.
type Teller interface {
	Tell() (int64, error)
}

// FilterReader drives a Stage in pull mode over an inner io.Reader: it
// reads blockSize-sized chunks from inner, pushes them through the
// stage, and buffers the result until the caller's requested size is
// satisfied or inner reaches EOF.
type FilterReader struct {
	inner     io.Reader
	blockSize int
	stage     Stage
	buf       []byte
	eof       bool
}

// NewFilterReader constructs a pull-mode filter reader.
func NewFilterReader(inner io.Reader, blockSize int, s Stage) *FilterReader {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &FilterReader{inner: inner, blockSize: blockSize, stage: s}
}

// Read implements io.Reader. It never returns more than len(p) bytes,
// and only returns (0, io.EOF) once the stage's finalization output
// has also been fully drained.
func (f *FilterReader) Read(p []byte) (int, error) {
	for !f.eof && len(f.buf) < len(p) {
		chunk := make([]byte, f.blockSize)
		n, err := f.inner.Read(chunk)
		if n > 0 {
			out, serr := f.stage.OnData(chunk[:n])
			if serr != nil {
				return 0, serr
			}
			f.buf = append(f.buf, out...)
		}
		if err == io.EOF {
			out, serr := f.stage.OnEOF()
			if serr != nil {
				return 0, serr
			}
			f.buf = append(f.buf, out...)
			f.eof = true
			break
		} else if err != nil {
			return 0, err
		} else if n == 0 {
			// Inner reader returned (0, nil); avoid spinning forever.
			continue
		}
	}

	if len(f.buf) == 0 {
		if f.eof {
			return 0, io.EOF
		}
		return 0, nil
	}

	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

// ReadAll drains the filter to completion, equivalent to the reference
// implementation's read(-1) ("read all remaining").
func (f *FilterReader) ReadAll() ([]byte, error) {
	return io.ReadAll(f)
}

// Tell passes the current read offset through to the inner stream,
// when it supports reporting one, so progress reporting can track
// bytes consumed from the real underlying file across any number of
// stacked filters.
func (f *FilterReader) Tell() (int64, error) {
	if t, ok := f.inner.(Teller); ok {
		return t.Tell()
	}
	if s, ok := f.inner.(io.Seeker); ok {
		return s.Seek(0, io.SeekCurrent)
	}
	return 0, errNotTellable
}

var errNotTellable = errorString("inner reader does not support Tell")

type errorString string

func (e errorString) Error() string { return string(e) }

// FilterWriteCloser drives a Stage in push mode over an inner
// io.Writer: each Write pushes data through the stage immediately,
// and Close invokes the stage's finalization hook before flushing and
// closing the inner sink, in that order.
type FilterWriteCloser struct {
	inner io.Writer
	stage Stage
	ended bool
}

// NewFilterWriter constructs a push-mode filter writer.
func NewFilterWriter(inner io.Writer, s Stage) *FilterWriteCloser {
	return &FilterWriteCloser{inner: inner, stage: s}
}

// Write implements io.Writer.
func (f *FilterWriteCloser) Write(p []byte) (int, error) {
	out, err := f.stage.OnData(p)
	if err != nil {
		return 0, err
	}
	if len(out) > 0 {
		if _, err := f.inner.Write(out); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush invokes the stage's finalize hook (on the first call only, so
// the stage is finalized once however often Flush and Close run),
// writes its output to the inner sink, and flushes the inner sink if
// it supports flushing. It does not close the inner sink.
func (f *FilterWriteCloser) Flush() error {
	var out []byte
	var err error
	if !f.ended {
		f.ended = true
		out, err = f.stage.OnEOF()
	}
	if err != nil {
		return err
	}
	if len(out) > 0 {
		if _, err := f.inner.Write(out); err != nil {
			return err
		}
	}
	if fl, ok := f.inner.(interface{ Flush() error }); ok {
		return fl.Flush()
	}
	return nil
}

// Close flushes then, if the inner sink is a Closer, closes it.
func (f *FilterWriteCloser) Close() error {
	if err := f.Flush(); err != nil {
		return err
	}
	if c, ok := f.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

package ops

import (
	"io"

	"github.com/abtool/abtool/internal/aberrors"
	"github.com/abtool/abtool/internal/abcodec"
	"github.com/abtool/abtool/internal/tariter"
)

// Merge concatenates the TAR entries of every input in inputs into a
// single output AB file, in order, with exactly one end-of-archive
// marker at the very end. All inputs must declare the same AB version;
// a mismatch is fatal, matching ab_merge's CatastrophicFailure.
func Merge(inputs []*InputPipeline, w io.Writer, version int, compress, encrypt bool, passphrase []byte, cfg abcodec.Config, progress ProgressReporter) error {
	if progress == nil {
		progress = NopProgress{}
	}
	if len(inputs) == 0 {
		return aberrors.New(aberrors.KindInputMissing, "merge requires at least one input file")
	}
	for _, in := range inputs {
		if in.Header.Version != inputs[0].Header.Version {
			return aberrors.New(aberrors.KindVersionMismatch,
				"cannot merge Android Backup files of different versions: %d != %d",
				in.Header.Version, inputs[0].Header.Version)
		}
	}
	if version == 0 {
		version = inputs[0].Header.Version
	}

	out, err := CreateOutput(w, version, compress, encrypt, false, passphrase, cfg)
	if err != nil {
		return err
	}

	var total int64
	for _, in := range inputs {
		it := tariter.New(in.Body)
		for {
			h, err := it.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				out.Close()
				return err
			}
			if len(h.Preamble) > 0 {
				if _, err := out.Body.Write(h.Preamble); err != nil {
					out.Close()
					return err
				}
			}
			if _, err := out.Body.Write(h.Raw); err != nil {
				out.Close()
				return err
			}
			if err := it.CopyBody(out.Body, h); err != nil {
				out.Close()
				return err
			}
			total += int64(len(h.Preamble)) + int64(len(h.Raw)) + h.Size + h.Leftover
			progress.Report(total, 0)
		}
	}

	// Two zero blocks: the merged stream's single end-of-archive marker.
	if _, err := out.Body.Write(make([]byte, 2*512)); err != nil {
		out.Close()
		return err
	}

	progress.Done()
	return out.Close()
}

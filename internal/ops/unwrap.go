package ops

import "io"

// Unwrap strips the AB header and crypto/compression framing from in,
// writing the bare TAR stream to w. Grounded on ab_unwrap, which is
// begin_ab_input followed by a straight copy_input_to_output.
func Unwrap(in *InputPipeline, w io.Writer, progress ProgressReporter) error {
	if progress == nil {
		progress = NopProgress{}
	}
	n, err := io.Copy(w, in.Body)
	progress.Report(n, 0)
	progress.Done()
	return err
}

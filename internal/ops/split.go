package ops

import (
	"io"
	"strings"

	"github.com/abtool/abtool/internal/tariter"
)

// SplitSink creates the output file for one contiguous run of entries
// sharing an app name. appNum is the monotonic, zero-based index of
// the run itself (not of the app name - the same app can recur in a
// later, separately-numbered run), matching the reference's appnum
// counter used in its "%s_%03d_%s.ab" default naming.
type SplitSink interface {
	Create(appName string, appNum int) (*OutputPipeline, error)
}

// Split routes in's TAR entries into one AB output file per
// contiguous run of entries sharing a top-level app (entries whose
// path matches "apps/<app>/..." route to that app, everything else to
// "other"), per ab_split's "if app is None or happ != app" state
// check: a new file opens whenever the current entry's app differs
// from the *immediately preceding* entry's, even if that app name was
// seen earlier in the stream. Every output file is opened with the
// same version/compress/encrypt settings, begins with the most
// recently seen PAX global header (if any), and is closed before
// Split returns (even on error, for any file already opened).
func Split(in *InputPipeline, sink SplitSink, progress ProgressReporter) error {
	if progress == nil {
		progress = NopProgress{}
	}

	var cur *OutputPipeline
	curApp := ""
	haveApp := false
	appNum := 0
	var total int64

	closeCur := func() error {
		if cur == nil {
			return nil
		}
		err := cur.Close()
		cur = nil
		return err
	}

	it := tariter.New(in.Body)
	for {
		h, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			closeCur()
			return err
		}

		appName := appNameFor(h.Path)
		if !haveApp || appName != curApp {
			if cerr := closeCur(); cerr != nil {
				return cerr
			}
			o, cerr := sink.Create(appName, appNum)
			if cerr != nil {
				return cerr
			}
			cur = o
			curApp = appName
			haveApp = true
			appNum++
			if raw := it.LastGlobalRaw(); len(raw) > 0 {
				if _, werr := cur.Body.Write(raw); werr != nil {
					closeCur()
					return werr
				}
			}
		}

		if len(h.Preamble) > 0 {
			if _, werr := cur.Body.Write(h.Preamble); werr != nil {
				closeCur()
				return werr
			}
		}
		if _, werr := cur.Body.Write(h.Raw); werr != nil {
			closeCur()
			return werr
		}
		if berr := it.CopyBody(cur.Body, h); berr != nil {
			closeCur()
			return berr
		}
		total += int64(len(h.Preamble)) + int64(len(h.Raw)) + h.Size + h.Leftover
		progress.Report(total, 0)
	}

	progress.Done()
	return closeCur()
}

func appNameFor(path string) string {
	const prefix = "apps/"
	if !strings.HasPrefix(path, prefix) {
		return "other"
	}
	rest := path[len(prefix):]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return "other"
}

// SplitCreateFunc adapts a plain function to SplitSink.
type SplitCreateFunc func(appName string, appNum int) (*OutputPipeline, error)

func (f SplitCreateFunc) Create(appName string, appNum int) (*OutputPipeline, error) {
	return f(appName, appNum)
}

var _ SplitSink = SplitCreateFunc(nil)

package cli

import (
	"os"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/abtool/abtool/internal/config"
	"github.com/abtool/abtool/internal/ops"
)

// progressFor builds a ProgressReporter for an operation writing to
// outputPath, suppressing it entirely when outputPath is "-" (stdout),
// per spec.md §6's "-" convention for piping abtool's output into
// another program.
func progressFor(label, outputPath string) ops.ProgressReporter {
	if config.IsStdioName(outputPath) {
		return ops.NopProgress{}
	}
	return newProgress(label, 0)
}

// barProgress renders an mpb progress bar on a terminal, and falls
// back to throttled zerolog debug events off a terminal - generalizing
// the reference implementation's prev_percent-throttled report_progress
// to a real progress widget when one is useful.
type barProgress struct {
	bar        *mpb.Bar
	container  *mpb.Progress
	lastLogged int
}

// newProgress builds a ProgressReporter for a single operation named
// label, with the total size when known (0 otherwise, e.g. reading
// from a pipe).
func newProgress(label string, total int64) ops.ProgressReporter {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return &logProgress{label: label}
	}
	p := mpb.New(mpb.WithOutput(os.Stderr), mpb.WithWidth(40))
	barTotal := total
	if barTotal <= 0 {
		barTotal = 100
	}
	bar := p.AddBar(barTotal,
		mpb.PrependDecorators(decor.Name(label)),
		mpb.AppendDecorators(decor.Percentage(), decor.Elapsed(decor.ET_STYLE_GO)),
	)
	return &barProgress{bar: bar, container: p}
}

func (b *barProgress) Report(done, total int64) {
	if total > 0 {
		b.bar.SetTotal(total, false)
	}
	b.bar.SetCurrent(done)
}

func (b *barProgress) Done() {
	b.bar.SetCurrent(b.bar.Current())
	b.bar.Abort(false)
	b.container.Wait()
}

// logProgress throttles progress to one debug log line per 10% step,
// matching report_progress's prev_percent gate.
type logProgress struct {
	label      string
	lastLogged int
	start      time.Time
}

func (l *logProgress) Report(done, total int64) {
	if total <= 0 {
		return
	}
	pct := int(done * 100 / total)
	if pct-l.lastLogged < 10 && pct != 100 {
		return
	}
	l.lastLogged = pct
	log.Debug().Str("op", l.label).Int("percent", pct).Msg("progress")
}

func (l *logProgress) Done() {
	log.Debug().Str("op", l.label).Msg("done")
}

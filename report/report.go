// Package report prints human-readable progress for a translation run.
//
// Every message is a single level-tagged line ([INFO], [OK], [WARN],
// [ERROR], [DEBUG]) written to one io.Writer. User-facing text goes
// through i18n.T so the messages follow the UI language.
package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/minios-linux/transtree/i18n"
	"github.com/minios-linux/transtree/langmeta"
)

// Options configures a Reporter.
type Options struct {
	// NoColor disables ANSI colours.
	NoColor bool
	// Progress shows a per-file line progress bar.
	Progress bool
	// Verbose enables Debug output.
	Verbose bool
}

// Summary is the final tally printed by Finish.
type Summary struct {
	Files        int
	Translated   int
	Failed       int
	Skipped      int
	Lines        int
	LineFailures int
	Calls        int
	Elapsed      time.Duration
}

// Reporter writes run progress. It is safe for concurrent use.
type Reporter struct {
	mu      sync.Mutex
	out     io.Writer
	opts    Options
	bar     *progressbar.ProgressBar
	barPath string

	info, ok, warn, fail, debug, bold *color.Color
}

// New returns a Reporter writing to out.
func New(out io.Writer, opts Options) *Reporter {
	r := &Reporter{
		out:   out,
		opts:  opts,
		info:  color.New(color.FgBlue),
		ok:    color.New(color.FgGreen),
		warn:  color.New(color.FgYellow, color.Bold),
		fail:  color.New(color.FgRed),
		debug: color.New(color.FgCyan),
		bold:  color.New(color.Bold),
	}
	if opts.NoColor {
		for _, c := range []*color.Color{r.info, r.ok, r.warn, r.fail, r.debug, r.bold} {
			c.DisableColor()
		}
	}
	return r
}

// ---------------------------------------------------------------------------
// Level-tagged lines
// ---------------------------------------------------------------------------

func (r *Reporter) line(c *color.Color, tag, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearBar()
	fmt.Fprintf(r.out, "%s %s\n", c.Sprint(tag), fmt.Sprintf(format, args...))
}

// Info prints an informational line.
func (r *Reporter) Info(format string, args ...any) { r.line(r.info, "[INFO]", format, args...) }

// Success prints a success line.
func (r *Reporter) Success(format string, args ...any) { r.line(r.ok, "[OK]", format, args...) }

// Warning prints a warning line.
func (r *Reporter) Warning(format string, args ...any) { r.line(r.warn, "[WARN]", format, args...) }

// Error prints an error line.
func (r *Reporter) Error(format string, args ...any) { r.line(r.fail, "[ERROR]", format, args...) }

// Debug prints a line only in verbose mode.
func (r *Reporter) Debug(format string, args ...any) {
	if r.opts.Verbose {
		r.line(r.debug, "[DEBUG]", format, args...)
	}
}

// ---------------------------------------------------------------------------
// Run events
// ---------------------------------------------------------------------------

// Start announces a run.
func (r *Reporter) Start(root, pipeline, from, to, engine string) {
	r.mu.Lock()
	fmt.Fprintf(r.out, "%s\n", r.bold.Sprint(i18n.T("Translating %s", root)))
	r.mu.Unlock()

	r.Info("%s", i18n.T("Pipeline: %s", pipeline))
	r.Info("%s", i18n.T("Languages: %s -> %s", langmeta.Label(from), langmeta.Label(to)))
	r.Info("%s", i18n.T("Engine: %s", engine))
}

// FileStart announces that path is being processed.
func (r *Reporter) FileStart(path string) {
	r.Info("%s", i18n.T("Processing: %s", path))
}

// FileDone reports a rewritten file.
func (r *Reporter) FileDone(path string, lines, changed int) {
	r.Success("%s", i18n.T("Done: %s (%d of %d lines translated)", path, changed, lines))
}

// FileFailed reports a file that could not be processed.
func (r *Reporter) FileFailed(path string, err error) {
	r.Error("%s", i18n.T("Error processing file %s: %v", path, err))
}

// FileSkipped reports a file left alone because it has not changed since
// the last run.
func (r *Reporter) FileSkipped(path string) {
	r.Info("%s", i18n.T("Skipped (unchanged since last run): %s", path))
}

// DirSkipped reports a path the traversal could not read.
func (r *Reporter) DirSkipped(path string, err error) {
	r.Warning("%s", i18n.T("Skipped unreadable path %s: %v", path, err))
}

// LineFailed reports a single failed translation; the line is kept as is.
func (r *Reporter) LineFailed(text string, err error) {
	r.Warning("%s", i18n.T("Translation failed for text: %s. Error: %v", text, err))
}

// Finish prints the run summary.
func (r *Reporter) Finish(s Summary) {
	r.mu.Lock()
	r.finishBar()
	r.mu.Unlock()

	msg := i18n.N("%d file processed", "%d files processed", s.Files, s.Files)
	msg += i18n.T(": %d translated, %d failed, %d skipped", s.Translated, s.Failed, s.Skipped)
	if s.Failed > 0 {
		r.Warning("%s", msg)
	} else {
		r.Success("%s", msg)
	}
	if s.LineFailures > 0 {
		r.Warning("%s", i18n.N("%d line kept untranslated", "%d lines kept untranslated", s.LineFailures, s.LineFailures))
	}
	r.Info("%s", i18n.T("Lines: %d, translation calls: %d, elapsed: %s", s.Lines, s.Calls, s.Elapsed.Round(time.Millisecond)))
}

// ---------------------------------------------------------------------------
// Progress bar
// ---------------------------------------------------------------------------

// Progress returns a per-line callback that drives a progress bar for
// path, or nil when progress bars are disabled.
func (r *Reporter) Progress(path string) func(done, total int) {
	if !r.opts.Progress {
		return nil
	}
	return func(done, total int) {
		r.mu.Lock()
		defer r.mu.Unlock()

		if r.bar == nil || r.barPath != path {
			r.finishBar()
			r.bar = r.newBar(path, total)
			r.barPath = path
		}
		_ = r.bar.Set(done)
		if done >= total {
			r.finishBar()
		}
	}
}

func (r *Reporter) newBar(path string, total int) *progressbar.ProgressBar {
	desc := path
	if !r.opts.NoColor {
		desc = "[cyan]" + path + "[reset]"
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionEnableColorCodes(!r.opts.NoColor),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

// clearBar wipes a bar that is mid-way so a message line can be printed.
// Caller holds r.mu.
func (r *Reporter) clearBar() {
	if r.bar != nil {
		_ = r.bar.Clear()
	}
}

// finishBar ends the current bar on its own line. Caller holds r.mu.
func (r *Reporter) finishBar() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	fmt.Fprintln(r.out)
	r.bar = nil
	r.barPath = ""
}

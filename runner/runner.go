// Package runner drives one pipeline over a directory tree: it walks the
// tree, rewrites each selected file and reports progress. A failing file
// never stops the run.
package runner

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/transtree/config"
	"github.com/minios-linux/transtree/extract"
	"github.com/minios-linux/transtree/lockfile"
	"github.com/minios-linux/transtree/rewrite"
	"github.com/minios-linux/transtree/translate"
	"github.com/minios-linux/transtree/walk"
)

// Reporter receives per-file events. *report.Reporter implements it.
type Reporter interface {
	FileStart(path string)
	FileDone(path string, lines, changed int)
	FileFailed(path string, err error)
	FileSkipped(path string)
	DirSkipped(path string, err error)
	Progress(path string) func(done, total int)
}

// Options configures a run.
type Options struct {
	// Root is the directory tree to process.
	Root string
	// Pipeline selects files and the extraction mode.
	Pipeline *config.Pipeline
	// Translator translates extracted text.
	Translator extract.Translator
	// Reporter receives progress events.
	Reporter Reporter
	// Jobs is the number of files processed at once (default 1). Progress
	// bars are only shown when Jobs is 1.
	Jobs int
	// Lock enables incremental mode when non-nil: files whose content
	// matches the recorded checksum are skipped, and the lock file is
	// updated and saved at the end of the run.
	Lock *lockfile.LockFile
}

// Stats is the outcome of a run.
type Stats struct {
	// Files is the number of files selected by the walk.
	Files int
	// Translated is the number of files rewritten.
	Translated int
	// Failed is the number of files that could not be processed.
	Failed int
	// Skipped is the number of files left alone in incremental mode.
	Skipped int
	// Lines is the number of lines in rewritten files.
	Lines int
	// Changed is the number of lines whose content changed.
	Changed int
	// LineFailures is the number of lines kept because translation failed.
	LineFailures int
}

// Filter returns the walk filter for p. The config and lock files are
// always excluded.
func Filter(p *config.Pipeline) walk.Filter {
	return walk.Filter{
		Suffixes:     p.Suffixes,
		ExcludeDirs:  p.ExcludeDirs,
		ExcludeFiles: p.Excluded(config.FileName, lockfile.LockFileName),
	}
}

// Files lists the files Run would process, without touching them.
func Files(root string, p *config.Pipeline, onSkip func(path string, err error)) iter.Seq[string] {
	return walk.Files(root, Filter(p), onSkip)
}

// Run processes every file selected by opts.Pipeline under opts.Root.
//
// Per-file errors are reported and counted; the only error returned is the
// context's, when the run was interrupted.
func Run(ctx context.Context, opts Options) (Stats, error) {
	if opts.Pipeline == nil {
		return Stats{}, fmt.Errorf("no pipeline given")
	}
	if opts.Translator == nil {
		return Stats{}, fmt.Errorf("no translator given")
	}
	if opts.Reporter == nil {
		return Stats{}, fmt.Errorf("no reporter given")
	}
	if _, err := extract.New(opts.Pipeline.Mode, opts.Translator); err != nil {
		return Stats{}, fmt.Errorf("pipeline %q: %w", opts.Pipeline.Name, err)
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return Stats{}, fmt.Errorf("resolving %s: %w", opts.Root, err)
	}

	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}

	r := &run{opts: opts, root: root, progress: jobs == 1}

	var g errgroup.Group
	g.SetLimit(jobs)

	var keys []string
	for path := range Files(root, opts.Pipeline, opts.Reporter.DirSkipped) {
		if ctx.Err() != nil {
			break
		}
		r.add(func(s *Stats) { s.Files++ })
		keys = append(keys, lockfile.FileKey(root, path))

		g.Go(func() error {
			r.file(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		r.saveLock(nil, false)
		return r.stats, err
	}
	r.saveLock(keys, true)
	return r.stats, nil
}

type run struct {
	opts     Options
	root     string
	progress bool

	mu    sync.Mutex
	stats Stats
}

func (r *run) add(f func(s *Stats)) {
	r.mu.Lock()
	f(&r.stats)
	r.mu.Unlock()
}

func (r *run) file(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}

	name := r.opts.Pipeline.Name
	key := lockfile.FileKey(r.root, path)
	rep := r.opts.Reporter

	if r.opts.Lock != nil {
		if data, err := os.ReadFile(path); err == nil && !r.opts.Lock.IsChanged(name, key, string(data)) {
			rep.FileSkipped(path)
			r.add(func(s *Stats) { s.Skipped++ })
			return
		}
	}

	rep.FileStart(path)

	ft := &fileTranslator{inner: r.opts.Translator}
	pipe, err := extract.New(r.opts.Pipeline.Mode, ft)
	if err != nil {
		rep.FileFailed(path, err)
		r.add(func(s *Stats) { s.Failed++ })
		return
	}

	var progress rewrite.Progress
	if r.progress {
		progress = rep.Progress(path)
	}

	res, err := rewrite.File(ctx, path, pipe, progress)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		rep.FileFailed(path, err)
		r.add(func(s *Stats) { s.Failed++ })
		if r.opts.Lock != nil {
			r.opts.Lock.Forget(name, key)
		}
		return
	}

	rep.FileDone(path, res.Lines, res.Changed)
	r.add(func(s *Stats) {
		s.Translated++
		s.Lines += res.Lines
		s.Changed += res.Changed
		s.LineFailures += ft.failures
	})

	if r.opts.Lock == nil {
		return
	}
	// A file with failed lines still holds untranslated text: leave it out
	// of the lock so the next incremental run retries it.
	if ft.failures > 0 {
		r.opts.Lock.Forget(name, key)
		return
	}
	if data, err := os.ReadFile(path); err == nil {
		r.opts.Lock.Update(name, key, string(data))
	}
}

// saveLock writes the lock file. After a complete walk, keys is the full set
// of files and entries for anything else are dropped.
func (r *run) saveLock(keys []string, complete bool) {
	if r.opts.Lock == nil {
		return
	}
	if complete {
		r.opts.Lock.Clean(r.opts.Pipeline.Name, keys)
	}
	if err := r.opts.Lock.Save(); err != nil {
		r.opts.Reporter.FileFailed(r.opts.Lock.Path(), err)
	}
}

// fileTranslator counts failed translations within one file. Files are
// processed line by line on a single goroutine, so no locking is needed.
type fileTranslator struct {
	inner    extract.Translator
	failures int
}

func (f *fileTranslator) Translate(ctx context.Context, text string) translate.Outcome {
	out := f.inner.Translate(ctx, text)
	if !out.OK() && ctx.Err() == nil {
		f.failures++
	}
	return out
}

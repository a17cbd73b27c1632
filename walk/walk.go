// Package walk discovers the files a pipeline should rewrite.
//
// The walk is lazy and lexical: directories named in Filter.ExcludeDirs are
// pruned before they are read, and files are matched on their base name
// against raw string suffixes.
package walk

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// Filter selects files by base name.
type Filter struct {
	// Suffixes are raw name endings. No extension parsing happens, so "md"
	// matches "notes.md" and "notesmd" alike.
	Suffixes []string
	// ExcludeDirs are directory base names pruned with their subtrees.
	ExcludeDirs []string
	// ExcludeFiles are file base names never yielded.
	ExcludeFiles []string
}

// Match reports whether a file with the given base name is selected.
func (f Filter) Match(name string) bool {
	for _, ex := range f.ExcludeFiles {
		if name == ex {
			return false
		}
	}
	for _, s := range f.Suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

func (f Filter) skipDir(name string) bool {
	for _, ex := range f.ExcludeDirs {
		if name == ex {
			return true
		}
	}
	return false
}

// Files returns the absolute paths of all selected files under root, in
// lexical depth-first order. Each file is yielded once.
//
// Entries that cannot be read are reported to onSkip (which may be nil) and
// the walk continues with the next entry. The root itself is never pruned.
func Files(root string, f Filter, onSkip func(path string, err error)) iter.Seq[string] {
	skip := func(path string, err error) {
		if onSkip != nil {
			onSkip(path, err)
		}
	}

	return func(yield func(string) bool) {
		abs, err := filepath.Abs(root)
		if err != nil {
			skip(root, err)
			return
		}

		filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				skip(path, err)
				if path == abs {
					return err
				}
				// Unreadable directory: WalkDir already gave up on its
				// contents, keep going with its siblings.
				return nil
			}

			if d.IsDir() {
				if path != abs && f.skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}

			if !f.Match(d.Name()) || !isRegular(path, d) {
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// isRegular accepts regular files and symlinks that resolve to one. A
// symlink whose target cannot be resolved is accepted as well, so reading
// it is reported as a failure instead of the file dropping out of the run.
func isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return info.Mode().IsRegular()
}

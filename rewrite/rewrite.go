// Package rewrite applies a line pipeline to a file in place.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/minios-linux/transtree/extract"
)

// ErrEncoding reports a file that is not valid UTF-8.
var ErrEncoding = errors.New("file is not valid UTF-8")

// Result summarises one rewritten file.
type Result struct {
	// Lines is the number of lines in the file.
	Lines int
	// Changed is the number of lines whose content differs after processing.
	Changed int
}

// Progress is called after each processed line with the 1-based line
// number and the total. It may be nil.
type Progress func(done, total int)

// File reads path, runs every line through p and writes the result back to
// the same path with the original permissions.
//
// The whole file is read before anything is written. If ctx is cancelled
// while lines are being processed, the file is left untouched and ctx.Err()
// is returned.
func File(ctx context.Context, path string, p extract.Pipeline, progress Progress) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return Result{}, fmt.Errorf("reading %s: %w", path, ErrEncoding)
	}

	lines := SplitLines(string(data))
	res := Result{Lines: len(lines)}

	var b strings.Builder
	b.Grow(len(data))
	for i, line := range lines {
		out := p.Process(ctx, line)
		if out != line {
			res.Changed++
		}
		b.WriteString(out)
		if progress != nil {
			progress(i+1, len(lines))
		}
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	if err := os.WriteFile(path, []byte(b.String()), info.Mode().Perm()); err != nil {
		return res, fmt.Errorf("writing %s: %w", path, err)
	}
	return res, nil
}

// SplitLines splits s into lines, each keeping its "\n" terminator. A final
// line without a terminator is returned as is; an empty string yields no
// lines.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Package extract decides, line by line, which text is sent for
// translation and how the translated line is put back together.
//
// Two policies exist:
//
//   - Comments: only lines that look like comments are translated; their
//     indentation is kept. Every other line passes through untouched.
//   - Lines: every non-blank line is translated as a whole; blank lines
//     become a bare newline.
//
// Lines are passed with their terminator ("\n", "\r\n", or none for a final
// line without one). A translated line always ends with the original
// terminator, or "\n" when there was none.
package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/minios-linux/transtree/config"
	"github.com/minios-linux/transtree/translate"
)

// Translator translates one piece of text. *translate.Adapter implements it.
type Translator interface {
	Translate(ctx context.Context, text string) translate.Outcome
}

// Pipeline rewrites a single line.
type Pipeline interface {
	// Name identifies the policy ("comments" or "lines").
	Name() string
	// Process returns the rewritten line. It never fails: on translation
	// failure the original content is kept.
	Process(ctx context.Context, line string) string
}

// New returns the pipeline for mode.
func New(mode config.Mode, t Translator) (Pipeline, error) {
	if t == nil {
		return nil, fmt.Errorf("translator is nil")
	}
	switch mode {
	case config.ModeComments:
		return &Comments{t: t}, nil
	case config.ModeLines:
		return &Lines{t: t}, nil
	default:
		return nil, fmt.Errorf("unknown extraction mode %q", mode)
	}
}

// IsComment reports whether line looks like a comment. The test is purely
// textual on the trimmed line: it starts with "//", "/*" or "*", or ends
// with "*/". String literals are not recognised, so a code line such as
// `x = "*/"` counts as a comment.
func IsComment(line string) bool {
	s := strings.TrimSpace(line)
	return strings.HasPrefix(s, "//") ||
		strings.HasPrefix(s, "/*") ||
		strings.HasPrefix(s, "*") ||
		strings.HasSuffix(s, "*/")
}

// Comments translates comment lines only.
type Comments struct {
	t Translator
}

// Name implements Pipeline.
func (c *Comments) Name() string { return string(config.ModeComments) }

// Process implements Pipeline.
func (c *Comments) Process(ctx context.Context, line string) string {
	if !IsComment(line) {
		return line
	}

	text, ok := reply(c.t.Translate(ctx, strings.TrimSpace(line)))
	if !ok {
		return line
	}

	_, eol := SplitTerminator(line)
	indent := line[:len(line)-len(strings.TrimLeftFunc(line, unicode.IsSpace))]
	return indent + text + newline(eol)
}

// Lines translates every non-blank line as a whole.
type Lines struct {
	t Translator
}

// Name implements Pipeline.
func (l *Lines) Name() string { return string(config.ModeLines) }

// Process implements Pipeline.
func (l *Lines) Process(ctx context.Context, line string) string {
	content, eol := SplitTerminator(line)
	if strings.TrimSpace(content) == "" {
		return newline(eol)
	}

	text, ok := reply(l.t.Translate(ctx, content))
	if !ok {
		return content + newline(eol)
	}
	return text + newline(eol)
}

// SplitTerminator splits a line into its content and its terminator
// ("\r\n", "\n" or "").
func SplitTerminator(line string) (content, eol string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	default:
		return line, ""
	}
}

func newline(eol string) string {
	if eol == "" {
		return "\n"
	}
	return eol
}

// reply returns the translation flattened to one line. ok is false when the
// translation failed or holds nothing but whitespace, and the original text
// must be kept.
func reply(out translate.Outcome) (text string, ok bool) {
	if !out.OK() {
		return "", false
	}
	text = singleLine(out.Text())
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// singleLine keeps a translation on one line so the file's line count
// never changes.
func singleLine(s string) string {
	return lineBreaks.Replace(strings.TrimRight(s, "\r\n"))
}

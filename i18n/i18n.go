// Package i18n localises transtree's own messages (run banner, per-file
// progress, summary). Catalogues are gettext .po files embedded from
// locales/<lang>/LC_MESSAGES/transtree.po and read with gotext.
//
// T and N translate and format in one step, so callers write
//
//	i18n.T("Processing: %s", path)
//
// and the msgid doubles as the English text.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const (
	domain = "transtree"
	// fallback is the language of the msgids themselves.
	fallback = "en"
)

var (
	po      *gotext.Locale
	current = fallback
)

// Languages returns the languages with an embedded catalogue, sorted.
func Languages() []string {
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil
	}
	var langs []string
	for _, e := range entries {
		if e.IsDir() {
			langs = append(langs, e.Name())
		}
	}
	sort.Strings(langs)
	return langs
}

// Init selects the interface language and returns the one actually used.
// An empty lang is detected from the environment. A locale such as
// "ko_KR" uses the "ko" catalogue; a language without a catalogue falls
// back to the English msgids.
func Init(lang string) string {
	if lang == "" {
		lang = detectLanguage()
	}

	match := matchCatalogue(lang)
	if match == "" {
		po = nil
		current = fallback
		return current
	}

	po = gotext.NewLocaleFSWithPath(match, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
	current = match
	return current
}

// Lang returns the language selected by the last Init.
func Lang() string { return current }

// T translates msgid and formats it with args.
func T(msgid string, args ...any) string {
	if po == nil {
		return sprintf(msgid, args)
	}
	// The catalogue lookup must not format: args are applied afterwards
	// so a msgid without verbs is returned verbatim.
	return sprintf(po.Get(msgid, noArgs...), args)
}

// N translates the plural pair for count n and formats it with args.
func N(singular, plural string, n int, args ...any) string {
	if po == nil {
		msg := plural
		if n == 1 {
			msg = singular
		}
		return sprintf(msg, args)
	}
	return sprintf(po.GetN(singular, plural, n, noArgs...), args)
}

var noArgs []any

func sprintf(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// matchCatalogue maps a locale name to an embedded catalogue: exact match
// first, then the bare language ("pt_BR" -> "pt").
func matchCatalogue(lang string) string {
	lang = strings.ReplaceAll(lang, "-", "_")
	available := Languages()
	has := func(l string) bool {
		for _, a := range available {
			if strings.EqualFold(a, l) {
				return true
			}
		}
		return false
	}
	if has(lang) {
		return lang
	}
	if i := strings.IndexByte(lang, '_'); i > 0 && has(lang[:i]) {
		return strings.ToLower(lang[:i])
	}
	return ""
}

// detectLanguage reads the locale from LANGUAGE, LC_ALL, LC_MESSAGES and
// LANG, in gettext's order of priority.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		val, _, _ = strings.Cut(val, ".")
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		return val
	}
	return fallback
}

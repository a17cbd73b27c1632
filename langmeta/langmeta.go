// Package langmeta provides language metadata (English and native names)
// used in prompts for LLM backends and in the run banner.
package langmeta

import (
	"fmt"
	"regexp"
	"strings"
)

// Meta describes a language.
type Meta struct {
	// English is the English name, used in LLM prompts.
	English string
	// Native is the name in the language itself, used in the UI.
	Native string
}

// Registry contains canonical language metadata for the languages the
// Google Translate endpoint supports most commonly. Locale variants are
// resolved in Resolve() via normalization and base fallback.
var Registry = map[string]Meta{
	"ar":    {English: "Arabic", Native: "العربية"},
	"bg":    {English: "Bulgarian", Native: "Български"},
	"cs":    {English: "Czech", Native: "Čeština"},
	"da":    {English: "Danish", Native: "Dansk"},
	"de":    {English: "German", Native: "Deutsch"},
	"el":    {English: "Greek", Native: "Ελληνικά"},
	"en":    {English: "English", Native: "English"},
	"es":    {English: "Spanish", Native: "Español"},
	"fa":    {English: "Persian", Native: "فارسی"},
	"fi":    {English: "Finnish", Native: "Suomi"},
	"fr":    {English: "French", Native: "Français"},
	"he":    {English: "Hebrew", Native: "עברית"},
	"hi":    {English: "Hindi", Native: "हिन्दी"},
	"hu":    {English: "Hungarian", Native: "Magyar"},
	"id":    {English: "Indonesian", Native: "Bahasa Indonesia"},
	"it":    {English: "Italian", Native: "Italiano"},
	"ja":    {English: "Japanese", Native: "日本語"},
	"ko":    {English: "Korean", Native: "한국어"},
	"nl":    {English: "Dutch", Native: "Nederlands"},
	"no":    {English: "Norwegian", Native: "Norsk"},
	"pl":    {English: "Polish", Native: "Polski"},
	"pt":    {English: "Portuguese", Native: "Português"},
	"pt-BR": {English: "Brazilian Portuguese", Native: "Português (Brasil)"},
	"ro":    {English: "Romanian", Native: "Română"},
	"ru":    {English: "Russian", Native: "Русский"},
	"sk":    {English: "Slovak", Native: "Slovenčina"},
	"sv":    {English: "Swedish", Native: "Svenska"},
	"th":    {English: "Thai", Native: "ไทย"},
	"tr":    {English: "Turkish", Native: "Türkçe"},
	"uk":    {English: "Ukrainian", Native: "Українська"},
	"vi":    {English: "Vietnamese", Native: "Tiếng Việt"},
	"zh":    {English: "Chinese", Native: "中文"},
	"zh-CN": {English: "Simplified Chinese", Native: "简体中文"},
	"zh-TW": {English: "Traditional Chinese", Native: "繁體中文"},
}

// Auto is the pseudo-code for source language detection.
const Auto = "auto"

var codeRe = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z0-9]{2,8})*$`)

// Canonicalize normalizes a language code: "ko_kr" -> "ko-KR".
func Canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort metadata for a language code, supporting
// variants like pt_BR, pt-BR and base-language fallbacks. Unknown codes
// resolve to themselves.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := Canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{English: lang, Native: lang}
}

// EnglishName returns the English name of lang, or lang itself.
func EnglishName(lang string) string {
	return Resolve(lang).English
}

// Label formats a language for display: "한국어 (ko)".
func Label(lang string) string {
	if strings.EqualFold(lang, Auto) {
		return Auto
	}
	m := Resolve(lang)
	if m.Native == lang {
		return lang
	}
	return fmt.Sprintf("%s (%s)", m.Native, lang)
}

// Validate checks that lang looks like a language code. "auto" is only
// accepted when allowAuto is set.
func Validate(lang string, allowAuto bool) error {
	if strings.EqualFold(lang, Auto) {
		if allowAuto {
			return nil
		}
		return fmt.Errorf("%q is only valid as a source language", lang)
	}
	if !codeRe.MatchString(Canonicalize(lang)) {
		return fmt.Errorf("invalid language code %q", lang)
	}
	return nil
}

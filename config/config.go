// Package config holds transtree's run settings and pipeline definitions.
//
// Settings come from four layers, highest priority first:
//
//  1. command-line flags (see BindFlags)
//  2. environment variables, optionally loaded from <root>/.env
//  3. <root>/.transtree.yaml
//  4. built-in defaults (Defaults)
//
// The built-in pipelines reproduce the two original translation scripts:
// "comments" rewrites comment lines of web sources, "docs" rewrites every
// line of Markdown files.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/minios-linux/transtree/langmeta"
)

// Mode selects how a pipeline extracts text from a line.
type Mode string

const (
	// ModeComments translates only lines that look like comments.
	ModeComments Mode = "comments"
	// ModeLines translates every non-blank line as a whole.
	ModeLines Mode = "lines"
)

// Built-in pipeline names.
const (
	PipelineComments = "comments"
	PipelineDocs     = "docs"
)

// Engine IDs.
const (
	EngineGoogle = "google"
	EngineGemini = "gemini"
	EngineOpenAI = "openai"
	EngineEcho   = "echo"
)

// Pipeline describes one runnable translation pipeline.
type Pipeline struct {
	// Name is the pipeline identifier used on the command line.
	Name string `yaml:"-"`
	// Identifier is the pipeline's own script name. It is always part of
	// ExcludeFiles so a pipeline never rewrites itself.
	Identifier string `yaml:"identifier,omitempty"`
	// Mode is the extraction policy.
	Mode Mode `yaml:"mode"`
	// Suffixes are raw file-name endings; "md" and ".md" are different.
	Suffixes []string `yaml:"suffixes"`
	// ExcludeDirs are directory base names pruned from the walk.
	ExcludeDirs []string `yaml:"exclude_dirs,omitempty"`
	// ExcludeFiles are file base names never rewritten.
	ExcludeFiles []string `yaml:"exclude_files,omitempty"`
}

// Engine configures the translation backend.
type Engine struct {
	// ID is one of EngineGoogle, EngineGemini, EngineOpenAI, EngineEcho.
	ID string `yaml:"id,omitempty"`
	// Model is the model name for LLM backends.
	Model string `yaml:"model,omitempty"`
	// BaseURL overrides the API base URL (openai-compatible backends).
	BaseURL string `yaml:"base_url,omitempty"`
	// APIKey is read from the environment when empty.
	APIKey string `yaml:"api_key,omitempty"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// MaxRetries bounds retries on rate limiting and server errors.
	MaxRetries int `yaml:"max_retries,omitempty"`
	// Verbose enables request tracing.
	Verbose bool `yaml:"-"`
}

// Settings is the fully merged run configuration.
type Settings struct {
	// Root is the directory tree to translate.
	Root string `yaml:"-"`
	// SourceLang is the source language code, "auto" for detection.
	SourceLang string `yaml:"source_lang,omitempty"`
	// TargetLang is the fixed destination language.
	TargetLang string `yaml:"target_lang,omitempty"`
	// Engine is the translation backend.
	Engine Engine `yaml:"engine,omitempty"`
	// Delay is the pause before each translation call.
	Delay time.Duration `yaml:"delay,omitempty"`
	// RPS switches to a token-bucket limiter when > 0.
	RPS float64 `yaml:"rps,omitempty"`
	// Burst is the token-bucket burst size.
	Burst int `yaml:"burst,omitempty"`
	// Jobs is the number of files processed concurrently.
	Jobs int `yaml:"jobs,omitempty"`
	// CacheSize is the number of memoized translations (0 disables).
	CacheSize int `yaml:"cache_size,omitempty"`
	// Incremental skips files unchanged since the last successful run.
	Incremental bool `yaml:"incremental,omitempty"`
	// Pipelines holds the pipeline definitions keyed by name.
	Pipelines map[string]*Pipeline `yaml:"pipelines,omitempty"`
}

// DefaultDelay is the mandatory pause before every translation call.
const DefaultDelay = 100 * time.Millisecond

var defaultExcludeDirs = []string{"node_modules", "dist", "venv", ".git"}

// Defaults returns the built-in settings.
func Defaults() *Settings {
	return &Settings{
		Root:       ".",
		SourceLang: "auto",
		TargetLang: "ko",
		Engine: Engine{
			ID:         EngineGoogle,
			Timeout:    60 * time.Second,
			MaxRetries: 3,
		},
		Delay:     DefaultDelay,
		Burst:     1,
		Jobs:      1,
		CacheSize: 512,
		Pipelines: DefaultPipelines(),
	}
}

// DefaultPipelines returns the two built-in pipelines.
func DefaultPipelines() map[string]*Pipeline {
	return map[string]*Pipeline{
		PipelineComments: {
			Name:       PipelineComments,
			Identifier: "translate_comments.py",
			Mode:       ModeComments,
			// "md" without a dot is intentional: it is matched as a raw
			// suffix, so it also picks up names like "readmemd".
			Suffixes:     []string{".js", ".ts", ".html", ".css", ".json", "md"},
			ExcludeDirs:  append([]string(nil), defaultExcludeDirs...),
			ExcludeFiles: []string{"translate_comments.py"},
		},
		PipelineDocs: {
			Name:         PipelineDocs,
			Identifier:   "translate_md.py",
			Mode:         ModeLines,
			Suffixes:     []string{".md"},
			ExcludeDirs:  append([]string(nil), defaultExcludeDirs...),
			ExcludeFiles: []string{"translate_comments.py", "translate_md.py"},
		},
	}
}

// Pipeline returns the named pipeline.
func (s *Settings) Pipeline(name string) (*Pipeline, error) {
	p, ok := s.Pipelines[name]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline %q (available: %s)", name, strings.Join(s.PipelineNames(), ", "))
	}
	return p, nil
}

// PipelineNames returns the configured pipeline names, sorted.
func (s *Settings) PipelineNames() []string {
	names := make([]string, 0, len(s.Pipelines))
	for name := range s.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the merged settings before any file is touched.
func (s *Settings) Validate() error {
	if s.Root == "" {
		return fmt.Errorf("root directory is empty")
	}
	if strings.TrimSpace(s.TargetLang) == "" {
		return fmt.Errorf("target language is empty")
	}
	if err := langmeta.Validate(s.TargetLang, false); err != nil {
		return fmt.Errorf("target language: %w", err)
	}
	if err := langmeta.Validate(s.SourceLang, true); err != nil {
		return fmt.Errorf("source language: %w", err)
	}
	switch s.Engine.ID {
	case EngineGoogle, EngineGemini, EngineOpenAI, EngineEcho:
	default:
		return fmt.Errorf("unknown engine %q (valid: %s, %s, %s, %s)",
			s.Engine.ID, EngineGoogle, EngineGemini, EngineOpenAI, EngineEcho)
	}
	if s.Delay < 0 {
		return fmt.Errorf("delay must not be negative (got %s)", s.Delay)
	}
	if s.RPS < 0 {
		return fmt.Errorf("rps must not be negative (got %g)", s.RPS)
	}
	if s.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1 (got %d)", s.Jobs)
	}
	if s.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative (got %d)", s.CacheSize)
	}
	for _, name := range s.PipelineNames() {
		if err := s.Pipelines[name].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) validate() error {
	switch p.Mode {
	case ModeComments, ModeLines:
	default:
		return fmt.Errorf("pipeline %q: unknown mode %q (valid: %s, %s)", p.Name, p.Mode, ModeComments, ModeLines)
	}
	if len(p.Suffixes) == 0 {
		return fmt.Errorf("pipeline %q: no suffixes configured", p.Name)
	}
	for _, s := range p.Suffixes {
		if s == "" {
			return fmt.Errorf("pipeline %q: empty suffix", p.Name)
		}
	}
	return nil
}

// Excluded returns the pipeline's excluded file names, including its own
// identifier and any extra names given.
func (p *Pipeline) Excluded(extra ...string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, f := range p.ExcludeFiles {
		add(f)
	}
	add(p.Identifier)
	for _, f := range extra {
		add(f)
	}
	return out
}

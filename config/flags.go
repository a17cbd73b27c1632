package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Flags holds the command-line overrides. Only flags the user actually set
// are applied, so file and environment values survive otherwise.
type Flags struct {
	Root        string
	ConfigPath  string
	SourceLang  string
	TargetLang  string
	Engine      string
	Model       string
	BaseURL     string
	APIKey      string
	Delay       time.Duration
	RPS         float64
	Burst       int
	Jobs        int
	CacheSize   int
	Retries     int
	Timeout     time.Duration
	Incremental bool
	Reset       bool
	Verbose     bool
	NoProgress  bool
	NoColor     bool
	UILang      string

	fs *pflag.FlagSet
}

// BindFlags registers the persistent flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	d := Defaults()

	fs.StringVar(&f.Root, "root", d.Root, "Root directory to translate")
	fs.StringVar(&f.ConfigPath, "config", "", "Config file (default <root>/"+FileName+")")
	fs.StringVar(&f.SourceLang, "from", d.SourceLang, "Source language code (auto = detect)")
	fs.StringVar(&f.TargetLang, "to", d.TargetLang, "Target language code")
	fs.StringVar(&f.Engine, "engine", d.Engine.ID, "Translation engine: google, gemini, openai, echo")
	fs.StringVar(&f.Model, "model", "", "Model name (gemini, openai)")
	fs.StringVar(&f.BaseURL, "base-url", "", "API base URL (openai-compatible endpoints)")
	fs.StringVar(&f.APIKey, "api-key", "", "API key (default from "+EnvAPIKey+" or engine variables)")
	fs.DurationVar(&f.Delay, "delay", d.Delay, "Pause before each translation call")
	fs.Float64Var(&f.RPS, "rps", 0, "Requests per second; > 0 replaces the fixed delay with a token bucket")
	fs.IntVar(&f.Burst, "burst", d.Burst, "Token bucket burst size (with --rps)")
	fs.IntVarP(&f.Jobs, "jobs", "j", d.Jobs, "Files processed concurrently")
	fs.IntVar(&f.CacheSize, "cache-size", d.CacheSize, "Translations memoized per run (0 disables)")
	fs.IntVar(&f.Retries, "retries", d.Engine.MaxRetries, "Max retries on rate limit or server errors")
	fs.DurationVar(&f.Timeout, "timeout", d.Engine.Timeout, "Per-request timeout")
	fs.BoolVar(&f.Incremental, "incremental", false, "Skip files unchanged since the last run (uses the lock file)")
	fs.BoolVar(&f.Reset, "reset", false, "Forget the pipeline's lock file records before running")
	fs.BoolVarP(&f.Verbose, "verbose", "v", false, "Verbose output")
	fs.BoolVar(&f.NoProgress, "no-progress", false, "Disable per-file progress bars")
	fs.BoolVar(&f.NoColor, "no-color", false, "Disable colored output")
	fs.StringVar(&f.UILang, "ui-lang", "", "Interface language (default from LANGUAGE/LC_ALL/LANG)")

	return f
}

func (f *Flags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}

// Apply copies explicitly set flags into s.
func (f *Flags) Apply(s *Settings) {
	if f.changed("from") {
		s.SourceLang = f.SourceLang
	}
	if f.changed("to") {
		s.TargetLang = f.TargetLang
	}
	if f.changed("engine") {
		s.Engine.ID = f.Engine
	}
	if f.changed("model") {
		s.Engine.Model = f.Model
	}
	if f.changed("base-url") {
		s.Engine.BaseURL = f.BaseURL
	}
	if f.changed("api-key") {
		s.Engine.APIKey = f.APIKey
	}
	if f.changed("delay") {
		s.Delay = f.Delay
	}
	if f.changed("rps") {
		s.RPS = f.RPS
	}
	if f.changed("burst") {
		s.Burst = f.Burst
	}
	if f.changed("jobs") {
		s.Jobs = f.Jobs
	}
	if f.changed("cache-size") {
		s.CacheSize = f.CacheSize
	}
	if f.changed("retries") {
		s.Engine.MaxRetries = f.Retries
	}
	if f.changed("timeout") {
		s.Engine.Timeout = f.Timeout
	}
	if f.changed("incremental") {
		s.Incremental = f.Incremental
	}
	s.Engine.Verbose = f.Verbose
}

// Load builds the merged settings: defaults, then .env and the config file
// found in the root, then environment variables, then flags.
func (f *Flags) Load() (*Settings, string, error) {
	s := Defaults()
	s.Root = f.Root

	if err := LoadEnvFile(s.Root); err != nil {
		return nil, "", err
	}
	path, err := s.LoadFile(s.Root, f.ConfigPath)
	if err != nil {
		return nil, "", err
	}
	if err := s.ApplyEnv(); err != nil {
		return nil, "", err
	}
	f.Apply(s)
	// Only now is the engine final; a key from the file, TRANSTREE_API_KEY
	// or --api-key wins over the engine's own variables.
	if s.Engine.APIKey == "" {
		s.Engine.APIKey = APIKeyFromEnv(s.Engine.ID)
	}
	if err := s.Validate(); err != nil {
		return nil, "", err
	}
	return s, path, nil
}

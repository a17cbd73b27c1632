package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvFileName is the optional dotenv file read from the root directory.
const EnvFileName = ".env"

// Environment variable names.
const (
	EnvAPIKey     = "TRANSTREE_API_KEY"
	EnvEngine     = "TRANSTREE_ENGINE"
	EnvModel      = "TRANSTREE_MODEL"
	EnvBaseURL    = "TRANSTREE_BASE_URL"
	EnvSourceLang = "TRANSTREE_SOURCE_LANG"
	EnvTargetLang = "TRANSTREE_TARGET_LANG"
	EnvDelay      = "TRANSTREE_DELAY"
)

// engineKeyVars lists the engine-specific API key variables, checked after
// EnvAPIKey.
var engineKeyVars = map[string][]string{
	EngineGemini: {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	EngineOpenAI: {"OPENAI_API_KEY", "GROQ_API_KEY"},
}

// LoadEnvFile loads <dir>/.env into the process environment. Variables
// already set are left untouched. A missing file is not an error.
func LoadEnvFile(dir string) error {
	path := filepath.Join(dir, EnvFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides s with TRANSTREE_* variables. Engine-specific key
// variables are not read here: the engine may still change, so they are
// resolved by Flags.Load once the engine is final.
func (s *Settings) ApplyEnv() error {
	if v := os.Getenv(EnvEngine); v != "" {
		s.Engine.ID = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		s.Engine.Model = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		s.Engine.BaseURL = v
	}
	if v := os.Getenv(EnvSourceLang); v != "" {
		s.SourceLang = v
	}
	if v := os.Getenv(EnvTargetLang); v != "" {
		s.TargetLang = v
	}
	if v := os.Getenv(EnvDelay); v != "" {
		d, err := parseDelay(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDelay, err)
		}
		s.Delay = d
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		s.Engine.APIKey = v
	}
	return nil
}

// APIKeyFromEnv returns the first non-empty API key variable for engine.
func APIKeyFromEnv(engine string) string {
	if v := os.Getenv(EnvAPIKey); v != "" {
		return v
	}
	for _, name := range engineKeyVars[engine] {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// parseDelay accepts a Go duration ("250ms") or a bare number of
// milliseconds ("250").
func parseDelay(v string) (time.Duration, error) {
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q", v)
	}
	return d, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the optional per-project configuration file.
const FileName = ".transtree.yaml"

// LoadFile merges <dir>/.transtree.yaml (or path, when non-empty) into s.
// A missing default file is not an error; a missing explicit path is.
//
// Pipelines declared in the file replace built-in pipelines of the same
// name entirely. Omitted exclude_dirs fall back to the built-in list.
func (s *Settings) LoadFile(dir, path string) (string, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return "", nil
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	// Decode over the current values so only keys present in the file
	// override them.
	pipelines := s.Pipelines
	s.Pipelines = nil
	if err := yaml.Unmarshal(data, s); err != nil {
		s.Pipelines = pipelines
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}
	declared := s.Pipelines
	s.Pipelines = pipelines
	if s.Pipelines == nil {
		s.Pipelines = make(map[string]*Pipeline)
	}

	for name, p := range declared {
		if p == nil {
			return "", fmt.Errorf("%s: pipeline %q is empty", path, name)
		}
		p.Name = name
		if p.Mode == "" {
			p.Mode = ModeComments
		}
		if p.ExcludeDirs == nil {
			p.ExcludeDirs = append([]string(nil), defaultExcludeDirs...)
		}
		if err := p.validate(); err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
		s.Pipelines[name] = p
	}

	return path, nil
}

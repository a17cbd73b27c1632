// Package lockfile implements transtree.lock, a lock file that records the
// MD5 checksum of every file as it was written by the last run. This
// enables incremental runs: a file whose content still matches its
// recorded checksum was already translated and is skipped, so output is
// never sent for translation a second time.
//
// The lock file is stored in the root of the translated tree.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "transtree.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the transtree.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // pipeline -> relative path -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path

	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}
	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported version %d (max %d)", path, lf.Version, Version)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// FileKey builds the key for a file: its path relative to root, with
// forward slashes so lock files are portable.
func FileKey(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

// IsChanged reports whether content differs from what was recorded for
// key under pipeline. Unknown keys are always changed.
func (lf *LockFile) IsChanged(pipeline, key, content string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	keys, ok := lf.Checksums[pipeline]
	if !ok {
		return true
	}
	oldHash, ok := keys[key]
	if !ok {
		return true
	}
	return oldHash != Hash(content)
}

// Update records the checksum of content for key under pipeline.
func (lf *LockFile) Update(pipeline, key, content string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[pipeline] == nil {
		lf.Checksums[pipeline] = make(map[string]string)
	}
	lf.Checksums[pipeline][key] = Hash(content)
}

// Forget drops the record for key, so the file is processed again on the
// next run.
func (lf *LockFile) Forget(pipeline, key string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if keys := lf.Checksums[pipeline]; keys != nil {
		delete(keys, key)
	}
}

// Clean removes entries that are no longer present in currentKeys, so
// deleted or renamed files do not accumulate.
func (lf *LockFile) Clean(pipeline string, currentKeys []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	existing := lf.Checksums[pipeline]
	if existing == nil {
		return
	}

	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}

	for k := range existing {
		if !valid[k] {
			delete(existing, k)
		}
	}
	if len(existing) == 0 {
		delete(lf.Checksums, pipeline)
	}
}

// RemovePipeline removes all checksums for a pipeline.
func (lf *LockFile) RemovePipeline(pipeline string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Checksums, pipeline)
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of pipelines and total files in the lock file.
func (lf *LockFile) Stats() (pipelines, files int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	pipelines = len(lf.Checksums)
	for _, m := range lf.Checksums {
		files += len(m)
	}
	return
}

// Pipelines returns the sorted list of pipelines with records.
func (lf *LockFile) Pipelines() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return lf.pipelines()
}

// pipelines is Pipelines without locking. Caller holds lf.mu.
func (lf *LockFile) pipelines() []string {
	names := make([]string, 0, len(lf.Checksums))
	for p := range lf.Checksums {
		names = append(names, p)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Human-readable summary
// ---------------------------------------------------------------------------

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	names := lf.pipelines()
	if len(names) == 0 {
		return "empty"
	}

	files := 0
	parts := make([]string, 0, len(names))
	for _, p := range names {
		n := len(lf.Checksums[p])
		files += n
		parts = append(parts, fmt.Sprintf("%s: %d files", p, n))
	}
	return fmt.Sprintf("%d pipelines, %d files (%s)", len(names), files, strings.Join(parts, ", "))
}

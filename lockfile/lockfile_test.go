package lockfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newLockFile() *LockFile {
	return &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
	}
}

func TestHashDeterministic(t *testing.T) {
	h1 := Hash("hello world")
	h2 := Hash("hello world")
	if h1 != h2 {
		t.Errorf("Hash not deterministic: %s != %s", h1, h2)
	}
	if h1 != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Errorf("Hash = %s, want md5 hex digest", h1)
	}
	if h3 := Hash("different"); h1 == h3 {
		t.Errorf("Hash collision: %s == %s", h1, h3)
	}
}

func TestFileKey(t *testing.T) {
	root := filepath.Join("tmp", "project")
	tests := []struct {
		path, want string
	}{
		{filepath.Join(root, "a.js"), "a.js"},
		{filepath.Join(root, "src", "b", "c.md"), "src/b/c.md"},
	}
	for _, tt := range tests {
		if got := FileKey(root, tt.path); got != tt.want {
			t.Errorf("FileKey(%q, %q) = %q, want %q", root, tt.path, got, tt.want)
		}
	}
}

func TestLoadNonExistent(t *testing.T) {
	lf, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error for non-existent file: %v", err)
	}
	if lf.Version != Version {
		t.Errorf("Version = %d, want %d", lf.Version, Version)
	}
	if len(lf.Checksums) != 0 {
		t.Errorf("Checksums not empty: %v", lf.Checksums)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	lf, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	lf.Update("comments", "src/a.js", "// 안녕\n")
	lf.Update("comments", "src/b.js", "code\n")
	lf.Update("docs", "README.md", "# 제목\n")

	if err := lf.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, LockFileName)
	if lf.Path() != path {
		t.Errorf("Path() = %q, want %q", lf.Path(), path)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Lock file not created at %s", path)
	}

	lf2, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}

	pipelines, files := lf2.Stats()
	if pipelines != 2 {
		t.Errorf("pipelines = %d, want 2", pipelines)
	}
	if files != 3 {
		t.Errorf("files = %d, want 3", files)
	}
	if lf2.IsChanged("docs", "README.md", "# 제목\n") {
		t.Error("reloaded entry should match")
	}
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LockFileName), []byte("checksums: [\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "parsing") {
		t.Fatalf("err = %v, want parsing error", err)
	}
}

func TestLoadFutureVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LockFileName), []byte("version: 99\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestIsChanged(t *testing.T) {
	lf := newLockFile()

	if !lf.IsChanged("comments", "a.js", "x") {
		t.Error("new entry should be changed")
	}

	lf.Update("comments", "a.js", "x")
	if lf.IsChanged("comments", "a.js", "x") {
		t.Error("unchanged entry should not be changed")
	}
	if !lf.IsChanged("comments", "a.js", "x\n") {
		t.Error("modified entry should be changed")
	}
	if !lf.IsChanged("docs", "a.js", "x") {
		t.Error("different pipeline should be changed")
	}
}

func TestForget(t *testing.T) {
	lf := newLockFile()
	lf.Update("docs", "a.md", "x")
	lf.Forget("docs", "a.md")
	lf.Forget("missing", "a.md")

	if !lf.IsChanged("docs", "a.md", "x") {
		t.Error("forgotten entry should be changed")
	}
}

func TestClean(t *testing.T) {
	lf := newLockFile()
	lf.Update("docs", "a.md", "a")
	lf.Update("docs", "b.md", "b")
	lf.Update("docs", "c.md", "c")
	lf.Update("comments", "a.js", "a")

	lf.Clean("docs", []string{"a.md", "c.md"})

	if _, ok := lf.Checksums["docs"]["b.md"]; ok {
		t.Error("stale entry b.md should be removed")
	}
	if len(lf.Checksums["docs"]) != 2 {
		t.Errorf("docs entries = %d, want 2", len(lf.Checksums["docs"]))
	}
	if len(lf.Checksums["comments"]) != 1 {
		t.Error("other pipelines must not be touched")
	}

	lf.Clean("docs", nil)
	if _, ok := lf.Checksums["docs"]; ok {
		t.Error("empty pipeline should be dropped")
	}

	lf.Clean("unknown", nil)
}

func TestRemovePipelineAndPipelines(t *testing.T) {
	lf := newLockFile()
	lf.Update("docs", "a.md", "a")
	lf.Update("comments", "a.js", "a")

	got := lf.Pipelines()
	if len(got) != 2 || got[0] != "comments" || got[1] != "docs" {
		t.Errorf("Pipelines() = %v, want [comments docs]", got)
	}

	lf.RemovePipeline("docs")
	if got := lf.Pipelines(); len(got) != 1 || got[0] != "comments" {
		t.Errorf("Pipelines() after remove = %v", got)
	}
}

func TestSummary(t *testing.T) {
	lf := newLockFile()
	if got := lf.Summary(); got != "empty" {
		t.Errorf("Summary() = %q, want empty", got)
	}

	lf.Update("docs", "a.md", "a")
	lf.Update("docs", "b.md", "b")
	lf.Update("comments", "a.js", "a")

	want := "2 pipelines, 3 files (comments: 1 files, docs: 2 files)"
	if got := lf.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := newLockFile().Save(); err == nil {
		t.Error("Save without path should fail")
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minios-linux/transtree/config"
	"github.com/minios-linux/transtree/lockfile"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		config.EnvAPIKey, config.EnvEngine, config.EnvModel, config.EnvBaseURL,
		config.EnvSourceLang, config.EnvTargetLang, config.EnvDelay,
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestCommandsRegistered(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"comments", "docs", "run", "list", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered (got %v, %v)", name, cmd, err)
		}
	}
	for _, flag := range []string{
		"root", "config", "from", "to", "engine", "model", "base-url", "api-key",
		"delay", "rps", "burst", "jobs", "cache-size", "retries", "timeout",
		"incremental", "reset", "no-progress", "no-color", "ui-lang", "verbose",
	} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s missing", flag)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "transtree version dev\n") {
		t.Errorf("output = %q", out)
	}
}

func TestList(t *testing.T) {
	clearEnv(t)
	root := writeTree(t, map[string]string{
		"src/app.js":          "// x\n",
		"node_modules/dep.js": "// y\n",
		"notes.txt":           "z\n",
	})

	out, err := execute(t, "list", "comments", "--root", root, "--no-color")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1 || !strings.HasSuffix(lines[0], filepath.Join("src", "app.js")) {
		t.Errorf("list output = %q", out)
	}
}

func TestDocsWithEchoEngine(t *testing.T) {
	clearEnv(t)
	root := writeTree(t, map[string]string{
		"README.md":   "# Title\n   \nText\n",
		"src/main.js": "// keep\n",
	})

	out, err := execute(t, "docs", "--root", root, "--engine", "echo", "--delay", "0", "--no-color", "--no-progress", "--ui-lang", "en")
	if err != nil {
		t.Fatalf("docs: %v\n%s", err, out)
	}

	data, err := os.ReadFile(filepath.Join(root, "README.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "# Title\n\nText\n" {
		t.Errorf("README.md = %q", data)
	}
	js, _ := os.ReadFile(filepath.Join(root, "src", "main.js"))
	if string(js) != "// keep\n" {
		t.Errorf("docs pipeline touched a .js file: %q", js)
	}
	for _, want := range []string{"[INFO] Pipeline: docs", "[INFO] Engine: echo", "1 file processed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestResetClearsPipelineRecords(t *testing.T) {
	clearEnv(t)
	root := writeTree(t, map[string]string{"README.md": "Text\n", "src/a.js": "// x\n"})
	base := []string{"--root", root, "--engine", "echo", "--delay", "0", "--no-color", "--no-progress", "--ui-lang", "en"}

	if _, err := execute(t, append([]string{"comments", "--incremental"}, base...)...); err != nil {
		t.Fatalf("comments: %v", err)
	}
	if _, err := execute(t, append([]string{"docs", "--incremental"}, base...)...); err != nil {
		t.Fatalf("docs: %v", err)
	}
	out, err := execute(t, append([]string{"docs", "--incremental"}, base...)...)
	if err != nil || !strings.Contains(out, "1 skipped") {
		t.Fatalf("second incremental run: %v\n%s", err, out)
	}

	out, err = execute(t, append([]string{"docs", "--incremental", "--reset"}, base...)...)
	if err != nil {
		t.Fatalf("reset run: %v", err)
	}
	for _, want := range []string{"Lock file records for docs cleared", "1 translated, 0 failed, 0 skipped"} {
		if !strings.Contains(out, want) {
			t.Errorf("reset run output missing %q\n%s", want, out)
		}
	}

	// Without --incremental the records are dropped and the run is a plain one.
	out, err = execute(t, append([]string{"docs", "--reset", "--verbose"}, base...)...)
	if err != nil {
		t.Fatalf("reset without incremental: %v", err)
	}
	if !strings.Contains(out, "lock file keeps 1 pipelines, 2 files") {
		t.Errorf("verbose reset output missing lock stats\n%s", out)
	}
	lock, err := lockfile.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if got := lock.Pipelines(); len(got) != 1 || got[0] != "comments" {
		t.Errorf("pipelines after reset = %v, want [comments]", got)
	}
}

func TestRunUnknownPipeline(t *testing.T) {
	clearEnv(t)
	_, err := execute(t, "run", "nope", "--root", t.TempDir(), "--engine", "echo")
	if err == nil || !strings.Contains(err.Error(), "unknown pipeline") {
		t.Fatalf("err = %v, want unknown pipeline", err)
	}
}

func TestInvalidSettingsRejected(t *testing.T) {
	clearEnv(t)
	root := writeTree(t, map[string]string{"a.md": "text\n"})

	_, err := execute(t, "docs", "--root", root, "--jobs", "0")
	if err == nil {
		t.Fatal("expected error for --jobs 0")
	}
	data, _ := os.ReadFile(filepath.Join(root, "a.md"))
	if string(data) != "text\n" {
		t.Error("file touched despite configuration error")
	}
}

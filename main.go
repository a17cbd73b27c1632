// transtree: translate the comments and documentation of a source tree in place.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/minios-linux/transtree/config"
	"github.com/minios-linux/transtree/i18n"
	"github.com/minios-linux/transtree/lockfile"
	"github.com/minios-linux/transtree/ratelimit"
	"github.com/minios-linux/transtree/report"
	"github.com/minios-linux/transtree/runner"
	"github.com/minios-linux/transtree/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.New(color.FgRed).Sprint("[ERROR]"), fmt.Sprintf(format, args...))
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	var flags *config.Flags

	root := &cobra.Command{
		Use:   "transtree",
		Short: "Translate source comments and Markdown documents in place",
		Long: `transtree walks a directory tree and machine-translates text in place.

Pipelines:
  comments   Translate comment lines of .js .ts .html .css .json and *md files
  docs       Translate every line of .md files

Each line is sent to the translation engine on its own; a line that fails
to translate is left as it was. Directories node_modules, dist, venv and
.git are skipped. Files are overwritten without backup.

Engines:
  google   Google Translate web endpoint (default, no key)
  gemini   Google Gemini (GEMINI_API_KEY or GOOGLE_API_KEY)
  openai   OpenAI-compatible chat completions (OpenAI, Groq, Ollama, custom)
  echo     No translation; rewrite files unchanged (dry run)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			i18n.Init(flags.UILang)
			if flags.NoColor {
				color.NoColor = true
			}
		},
	}

	// Global persistent flags, inherited by all subcommands
	flags = config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newPipelineCmd(flags, config.PipelineComments, "Translate comment lines in web sources"),
		newPipelineCmd(flags, config.PipelineDocs, "Translate every line of Markdown files"),
		newRunCmd(flags),
		newListCmd(flags),
		newVersionCmd(),
	)

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logError("%v", err)
		stop()
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "transtree version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// comments / docs / run (translate a tree)
// ---------------------------------------------------------------------------

func newPipelineCmd(flags *config.Flags, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), flags, name, cmd.OutOrStdout())
		},
	}
}

func newRunCmd(flags *config.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <pipeline>",
		Short: "Run a pipeline by name (built-in or from " + config.FileName + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), flags, args[0], cmd.OutOrStdout())
		},
	}
}

func runPipeline(ctx context.Context, flags *config.Flags, name string, out io.Writer) error {
	s, cfgPath, err := flags.Load()
	if err != nil {
		return err
	}
	p, err := s.Pipeline(name)
	if err != nil {
		return err
	}

	rep := report.New(out, report.Options{
		NoColor:  flags.NoColor,
		Progress: !flags.NoProgress && s.Jobs == 1 && isTerminal(out),
		Verbose:  flags.Verbose,
	})
	if cfgPath != "" {
		rep.Debug("config: %s", cfgPath)
	}
	rep.Debug("interface language: %s (catalogues: %v)", i18n.Lang(), i18n.Languages())

	svc, err := translate.NewService(ctx, s.Engine)
	if err != nil {
		return err
	}
	adapter, err := translate.NewAdapter(svc, translate.AdapterOptions{
		Source:    s.SourceLang,
		Target:    s.TargetLang,
		Limiter:   ratelimit.New(s.Delay, s.RPS, s.Burst),
		CacheSize: s.CacheSize,
		OnFailure: rep.LineFailed,
	})
	if err != nil {
		return err
	}

	lock, err := openLock(s, p.Name, flags.Reset, rep)
	if err != nil {
		return err
	}

	rep.Start(s.Root, p.Name, s.SourceLang, s.TargetLang, adapter.ServiceName())
	start := time.Now()

	stats, err := runner.Run(ctx, runner.Options{
		Root:       s.Root,
		Pipeline:   p,
		Translator: adapter,
		Reporter:   rep,
		Jobs:       s.Jobs,
		Lock:       lock,
	})

	rep.Finish(report.Summary{
		Files:        stats.Files,
		Translated:   stats.Translated,
		Failed:       stats.Failed,
		Skipped:      stats.Skipped,
		Lines:        stats.Lines,
		LineFailures: stats.LineFailures,
		Calls:        adapter.Calls(),
		Elapsed:      time.Since(start),
	})

	if errors.Is(err, context.Canceled) {
		return errors.New(i18n.T("interrupted; the file being processed was left unchanged"))
	}
	return err
}

// openLock loads the lock file for an incremental run. With reset, the
// pipeline's records are dropped first; without --incremental the lock is
// then saved and no lock is returned.
func openLock(s *config.Settings, pipeline string, reset bool, rep *report.Reporter) (*lockfile.LockFile, error) {
	if !s.Incremental && !reset {
		return nil, nil
	}
	lock, err := lockfile.Load(s.Root)
	if err != nil {
		return nil, err
	}
	if reset {
		lock.RemovePipeline(pipeline)
		rep.Info("%s", i18n.T("Lock file records for %s cleared", pipeline))
		pipelines, files := lock.Stats()
		rep.Debug("lock file keeps %d pipelines, %d files", pipelines, files)
		if !s.Incremental {
			return nil, lock.Save()
		}
	}
	rep.Debug("lock file %s: %s (pipelines: %v)", lock.Path(), lock.Summary(), lock.Pipelines())
	return lock, nil
}

// isTerminal reports whether w is a terminal. Progress bars are only drawn
// on terminals.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ---------------------------------------------------------------------------
// list (read-only: show the files a pipeline would rewrite)
// ---------------------------------------------------------------------------

func newListCmd(flags *config.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "list <pipeline>",
		Short: "List the files a pipeline would rewrite, without translating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := flags.Load()
			if err != nil {
				return err
			}
			p, err := s.Pipeline(args[0])
			if err != nil {
				return err
			}

			rep := report.New(cmd.ErrOrStderr(), report.Options{NoColor: flags.NoColor})
			out := cmd.OutOrStdout()
			for path := range runner.Files(s.Root, p, rep.DirSkipped) {
				fmt.Fprintln(out, path)
			}
			return cmd.Context().Err()
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/linkcheck/internal/config"
	"github.com/roach88/linkcheck/internal/harness"
	"github.com/roach88/linkcheck/internal/process"
	"github.com/roach88/linkcheck/internal/report"
	"github.com/roach88/linkcheck/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Tool      string
	Timeout   time.Duration
	Target    string
	Scratch   string
	NoIsolate bool
	Filter    string
	History   string
	NoColor   bool
	DotEnv    string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [suite.yaml]",
		Short: "Run a test suite against linkgen",
		Long: `Run a test suite against the tool under test.

Without a suite file the built-in linkgen suite runs. Tests run one at a
time in declaration order; each gets a fresh scratch directory.

Configuration is layered: defaults, .env, LINKCHECK_* environment
variables, the suite file's settings block, then flags.

Exit codes:
  0      - All tests passed
  1-255  - Number of failed tests (clamped to 255)
  126    - Command error (bad suite file, bad configuration)
  130    - Interrupted; cases not yet started are skipped

A run with exactly 126 (or 130) failures exits with the same status as a
command error (or an interrupt); the summary line tells them apart.

Examples:
  linkcheck run
  linkcheck run --tool ./target/release/linkgen
  linkcheck run suites/linkgen.yaml --filter "Print*"
  linkcheck run --history runs.db -v`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, optionalArg(args), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Tool, "tool", "", "path to the tool under test (default "+config.DefaultTool+")")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-test timeout (default "+process.DefaultTimeout.String()+")")
	cmd.Flags().StringVar(&opts.Target, "target", "", "directory the tool links into (default: directory of the tool)")
	cmd.Flags().StringVar(&opts.Scratch, "scratch", "", "parent of per-test scratch directories (default: system temp dir)")
	cmd.Flags().BoolVar(&opts.NoIsolate, "no-isolate", false, "run the tool in the current directory instead of the scratch directory")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run tests whose name matches this glob")
	cmd.Flags().StringVar(&opts.History, "history", "", "record the run in this SQLite database")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "disable coloured output")
	cmd.Flags().StringVar(&opts.DotEnv, "env-file", config.DefaultDotEnv, "dotenv file to read configuration from")

	return cmd
}

func runSuite(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := config.Load(opts.DotEnv)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	loaded, err := loadSuite(path)
	if err != nil {
		return err
	}
	if err := cfg.ApplySettings(loaded.Settings); err != nil {
		return WrapExitError(ExitCommandError, "invalid suite settings", err)
	}
	if err := applyRunFlags(&cfg, opts, cmd); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}

	if err := cfg.ResolveTool(); err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve tool", err)
	}

	suite, err := loaded.Suite.Filter(opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --filter", err)
	}

	logger.Debug("configuration resolved",
		"suite", suite.Name,
		"tool", cfg.Tool,
		"timeout", cfg.Timeout,
		"isolate", cfg.Isolate,
		"history", cfg.History,
	)

	ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reporter := report.New(cmd.OutOrStdout(), report.Options{
		Verbose: opts.Verbose,
		NoColor: cfg.NoColor,
	})
	reporters := []harness.Reporter{reporter}

	if cfg.History != "" {
		st, err := store.Open(cfg.History)
		if err != nil {
			// History is optional; a broken database never changes the result.
			logger.Warn("history disabled", "path", cfg.History, "error", err)
		} else {
			defer st.Close()
			rec, err := st.NewRecorder(ctx, suite.Name, cfg.Tool, logger)
			if err != nil {
				logger.Warn("history disabled", "path", cfg.History, "error", err)
			} else {
				reporters = append(reporters, rec)
				defer func() {
					logger.Info("run recorded", "run", rec.Run().ID)
				}()
			}
		}
	}

	sum := harness.NewRunner(cfg.Engine(logger), harness.Multi(reporters...), logger).Run(ctx, suite)

	if ctx.Err() != nil {
		return NewExitError(ExitInterrupted, fmt.Sprintf("run interrupted after %d of %d tests", sum.Run, sum.Total))
	}
	if code := report.ExitCode(sum); code != ExitSuccess {
		return NewExitError(code, fmt.Sprintf("%d tests failed", sum.Failed))
	}
	return nil
}

// applyRunFlags overlays flags that were set explicitly.
func applyRunFlags(cfg *config.Config, opts *RunOptions, cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("tool") {
		cfg.Tool = opts.Tool
	}
	if flags.Changed("timeout") {
		if opts.Timeout <= 0 {
			return fmt.Errorf("--timeout must be positive, got %s", opts.Timeout)
		}
		cfg.Timeout = opts.Timeout
	}
	if flags.Changed("target") {
		cfg.Target = opts.Target
	}
	if flags.Changed("scratch") {
		cfg.ScratchRoot = opts.Scratch
	}
	if opts.NoIsolate {
		cfg.Isolate = false
	}
	if flags.Changed("history") {
		cfg.History = opts.History
	}
	if opts.NoColor {
		cfg.NoColor = true
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

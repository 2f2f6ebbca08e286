package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/roach88/linkcheck/internal/config"
	"github.com/roach88/linkcheck/internal/harness"
	"github.com/roach88/linkcheck/internal/report"
	"github.com/roach88/linkcheck/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	RunID    string
	DotEnv   string
}

// RunDetail is the JSON payload for a single run.
type RunDetail struct {
	Run      store.Run             `json:"run"`
	Verdicts []store.VerdictRecord `json:"verdicts"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `Show runs recorded with 'linkcheck run --history'.

Lists runs newest first, or the verdicts of one run with --run.
The database defaults to LINKCHECK_HISTORY.

Examples:
  linkcheck history --history runs.db
  linkcheck history --history runs.db --limit 5
  linkcheck history --history runs.db --run 01928c4e-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "history", "", "path to the history database")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the verdicts of this run")
	cmd.Flags().StringVar(&opts.DotEnv, "env-file", config.DefaultDotEnv, "dotenv file to read configuration from")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	path := opts.Database
	if path == "" {
		cfg, err := config.Load(opts.DotEnv)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load configuration", err)
		}
		path = cfg.History
	}
	if path == "" {
		return formatter.Fail(ExitCommandError, ErrCodeNoHistory,
			"no history database: pass --history or set "+config.EnvHistory, nil)
	}

	st, err := store.Open(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeHistory, "failed to open history", err)
	}
	defer st.Close()

	ctx := commandContext(cmd)
	if opts.RunID != "" {
		return showRun(ctx, st, opts, formatter)
	}
	return listRuns(ctx, st, opts, formatter)
}

func listRuns(ctx context.Context, st *store.Store, opts *HistoryOptions, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeHistory, "failed to list runs", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(runs, "")
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "SUITE", "STARTED", "RUN/TOTAL", "FAILED")
	for _, r := range runs {
		failed := strconv.Itoa(r.Failed)
		if !r.Finished() {
			failed = "incomplete"
		}
		t.Row(
			r.ID,
			r.Suite,
			r.StartedAt.Local().Format(time.DateTime),
			fmt.Sprintf("%d/%d", r.Run, r.Total),
			failed,
		)
	}
	fmt.Fprintln(formatter.Writer, t.Render())
	return nil
}

func showRun(ctx context.Context, st *store.Store, opts *HistoryOptions, formatter *OutputFormatter) error {
	run, err := st.GetRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNoSuchRun, fmt.Sprintf("no run with ID %s", opts.RunID), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeHistory, "failed to read run", err)
	}
	records, err := st.RunVerdicts(ctx, run.ID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeHistory, "failed to read verdicts", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(RunDetail{Run: run, Verdicts: records}, "")
	}

	fmt.Fprintf(formatter.Writer, "Run %s: suite %s, started %s\n",
		run.ID, run.Suite, run.StartedAt.Local().Format(time.DateTime))
	if run.Tool != "" {
		fmt.Fprintf(formatter.Writer, "Tool: %s\n", run.Tool)
	}

	rep := report.New(formatter.Writer, report.Options{Verbose: opts.Verbose, NoColor: true})
	for _, rec := range records {
		v, err := verdictFromRecord(rec)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeHistory, "corrupt verdict", err)
		}
		rep.Verdict(v)
	}
	if !run.Finished() {
		fmt.Fprintln(formatter.Writer, "Run did not finish.")
		return nil
	}
	rep.Summary(harness.Summary{Suite: run.Suite, Total: run.Total, Run: run.Run, Failed: run.Failed})
	return nil
}

func verdictFromRecord(rec store.VerdictRecord) (harness.Verdict, error) {
	status, err := harness.ParseStatus(rec.Status)
	if err != nil {
		return harness.Verdict{}, fmt.Errorf("verdict %d: %w", rec.Seq, err)
	}
	return harness.Verdict{
		Name:        rec.Name,
		Status:      status,
		Reason:      rec.Reason,
		Label:       rec.Label,
		Detail:      rec.Detail,
		ExitCode:    rec.ExitCode,
		Duration:    rec.Duration,
		TeardownErr: rec.TeardownErr,
	}, nil
}

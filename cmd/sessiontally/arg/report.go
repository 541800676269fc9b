package arg

import (
	"fmt"

	"github.com/spf13/cobra"

	xlog "github.com/SoarinFerret/SessionTally/internal/log"
	"github.com/SoarinFerret/SessionTally/internal/logline"
	"github.com/SoarinFerret/SessionTally/internal/report"
	"github.com/SoarinFerret/SessionTally/internal/state"
	"github.com/SoarinFerret/SessionTally/internal/tally"
)

var (
	format   string
	workers  int
	layout   string
	savePath string
)

var reportCmd = &cobra.Command{
	Use:   "report <logfile>",
	Short: "Tally a session log and print per-user totals",
	Long: `Tally a session log and print one line per user, sorted by name:

  <user> <sessions> <total seconds>

Examples:
  sessiontally report sessions.log
  sessiontally report --format json --workers 4 sessions.log
  sessiontally report --layout "2006-01-02 15:04:05" --save state.json sessions.log`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd, args[0])
	},
}

func init() {
	reportCmd.Flags().StringVarP(&format, "format", "f", "", "Output format (text, json, yaml)")
	reportCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Users reconciled concurrently")
	reportCmd.Flags().StringVarP(&layout, "layout", "l", "", "Go time layout of the timestamp field")
	reportCmd.Flags().StringVarP(&savePath, "save", "s", "", "Also store the run in this state file")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, path string) error {
	logger := xlog.WithComponent("report")

	opts := tally.Options{
		Parser:  logline.New(pick(layout, cfg.Parser.TimeLayout)),
		Workers: cfg.Report.Workers,
		Logger:  logger,
	}
	if workers > 0 {
		opts.Workers = workers
	}

	res, err := tally.ProcessFile(cmd.Context(), path, opts)
	if err != nil {
		return err
	}

	if savePath != "" {
		mgr, err := state.NewManager(savePath)
		if err != nil {
			return fmt.Errorf("open state: %w", err)
		}
		if _, err := mgr.Record(path, res); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
	}

	if len(res.Report) == 0 {
		logger.Info().Msg("No valid log entries found or no sessions were processed.")
		return nil
	}
	return report.Render(cmd.OutOrStdout(), res.Report, pick(format, cfg.Report.Format))
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

package arg

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/SoarinFerret/SessionTally/internal/ipc"
	"github.com/SoarinFerret/SessionTally/internal/report"
	"github.com/SoarinFerret/SessionTally/internal/state"
)

var refresh bool

var showCmd = &cobra.Command{
	Use:   "show [source]",
	Short: "Show the daemon's latest report for a source",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := ""
		if len(args) > 0 {
			source = args[0]
		}

		obj, closeFn, err := daemonObject()
		if err != nil {
			return err
		}
		defer closeFn()

		if refresh {
			if err := obj.Call(ipc.InterfaceName+".Refresh", 0).Store(); err != nil {
				return fmt.Errorf("failed to refresh: %w", err)
			}
		}

		var jsonResult string
		if err := obj.Call(ipc.InterfaceName+".GetReport", 0, source).Store(&jsonResult); err != nil {
			return fmt.Errorf("failed to get report: %w", err)
		}

		var run state.Run
		if err := json.Unmarshal([]byte(jsonResult), &run); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}

		out := cmd.OutOrStdout()
		f := pick(format, cfg.Report.Format)
		if f == report.FormatText {
			fmt.Fprintf(out, "Source: %s (generated %s)\n", run.Source, run.GeneratedAt.Format(time.RFC3339))
		}
		return report.Render(out, run.Users, f)
	},
}

var userCmd = &cobra.Command{
	Use:   "user <username> [source]",
	Short: "Show one user's session totals from the daemon",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]
		source := ""
		if len(args) > 1 {
			source = args[1]
		}

		obj, closeFn, err := daemonObject()
		if err != nil {
			return err
		}
		defer closeFn()

		var jsonResult string
		if err := obj.Call(ipc.InterfaceName+".GetUserSummary", 0, source, username).Store(&jsonResult); err != nil {
			return fmt.Errorf("failed to get user summary: %w", err)
		}

		var us ipc.UserSummary
		if err := json.Unmarshal([]byte(jsonResult), &us); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		printUserSummary(cmd.OutOrStdout(), us)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "Re-tally all sources before showing")
	showCmd.Flags().StringVarP(&format, "format", "f", "", "Output format (text, json, yaml)")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(userCmd)
}

func printUserSummary(w io.Writer, us ipc.UserSummary) {
	fmt.Fprintf(w, "User: %s\n", us.User)
	fmt.Fprintf(w, "Source: %s\n", us.Source)
	fmt.Fprintf(w, "Sessions: %d\n", us.Sessions)
	duration := time.Duration(us.TotalSeconds * float64(time.Second))
	fmt.Fprintf(w, "Total time: %s\n", formatDuration(duration))
}

func formatDuration(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	sign := ""
	if neg {
		sign = "-"
	}
	if h > 0 {
		return fmt.Sprintf("%s%dh %dm %ds", sign, h, m, s)
	} else if m > 0 {
		return fmt.Sprintf("%s%dm %ds", sign, m, s)
	}
	return fmt.Sprintf("%s%ds", sign, s)
}

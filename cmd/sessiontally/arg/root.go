package arg

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SoarinFerret/SessionTally/internal/config"
	xlog "github.com/SoarinFerret/SessionTally/internal/log"
)

var (
	configPath string
	logLevel   string
	quiet      bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sessiontally [logfile]",
	Short: "sessiontally reports per-user session counts and durations",
	Long: `sessiontally reads a log of "<time> <user> Start|End" lines, pairs
starts with ends per user and prints each user's session count and total
seconds. With no subcommand it behaves like "sessiontally report <logfile>".`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadOptional(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		xlog.Configure(xlog.Config{
			Level:   level,
			Console: true,
			Quiet:   quiet || cfg.Report.SuppressLogging,
		})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd, args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/sessiontally/config.toml", "Path to the TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress diagnostic logging")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

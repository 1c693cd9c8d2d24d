package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"staffdesk/internal/analytics"
	"staffdesk/internal/config"
)

// newAnalyticsCmd creates the 'analytics' command group
func newAnalyticsCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Inspect local usage analytics",
		Long: "Summarize or prune the local usage analytics database. Events are\n" +
			"recorded per server operation when analytics is enabled in config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newAnalyticsSummaryCmd(stdout, cfg))
	cmd.AddCommand(newAnalyticsCleanupCmd(stdout, cfg))

	return cmd
}

// newAnalyticsSummaryCmd creates the 'analytics summary' subcommand
func newAnalyticsSummaryCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show per-operation usage aggregates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyGlobalFlags(cmd, cfg)

			tracker, err := analytics.NewTracker(config.GetAnalyticsDBPath(), true)
			if err != nil {
				return fmt.Errorf("failed to open analytics database: %w", err)
			}
			defer func() { _ = tracker.Close() }()

			days, _ := cmd.Flags().GetInt("days")
			summaries, err := tracker.Summary(days)
			if err != nil {
				return err
			}

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				if summaries == nil {
					summaries = []analytics.OperationSummary{}
				}
				return printJSON(stdout, summaries)
			}

			if len(summaries) == 0 {
				_, _ = fmt.Fprintln(stdout, "No recorded operations.")
				if cfg.NoPrompt {
					_, _ = fmt.Fprintln(stdout, ResultInfoOnly)
				}
				return nil
			}

			_, _ = fmt.Fprintf(stdout, "%-24s %-8s %-8s %s\n", "OPERATION", "COUNT", "OK", "AVG MS")
			for _, s := range summaries {
				_, _ = fmt.Fprintf(stdout, "%-24s %-8d %-8d %.1f\n",
					s.Operation, s.Count, s.Successes, s.AvgDurationMs)
			}
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultInfoOnly)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().Int("days", 30, "Only include events from the last N days")

	return cmd
}

// newAnalyticsCleanupCmd creates the 'analytics cleanup' subcommand
func newAnalyticsCleanupCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete events older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyGlobalFlags(cmd, cfg)

			configPath, _ := cmd.Flags().GetString("config")
			if configPath == "" {
				configPath = cfg.ConfigPath
			}
			fileCfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			retention, _ := cmd.Flags().GetInt("retention")
			if retention <= 0 {
				retention = fileCfg.GetAnalyticsRetentionDays()
			}

			tracker, err := analytics.NewTracker(config.GetAnalyticsDBPath(), true)
			if err != nil {
				return fmt.Errorf("failed to open analytics database: %w", err)
			}
			defer func() { _ = tracker.Close() }()

			deleted, err := tracker.Cleanup(retention)
			if err != nil {
				return err
			}

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				return printJSON(stdout, map[string]any{"deleted": deleted, "retention_days": retention})
			}
			_, _ = fmt.Fprintf(stdout, "Deleted %d events older than %d days\n", deleted, retention)
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultActionCompleted)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().Int("retention", 0, "Retention period in days (default from config)")

	return cmd
}

package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/member-qa/internal/analyze"
	"github.com/sells-group/member-qa/internal/feed"
)

var analyzeFormat string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Report data-quality anomalies in the member message feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		messages, err := newFeedSource(cfg).Fetch(cmd.Context())
		if err != nil {
			return &feed.FetchError{Err: err}
		}

		report := analyze.Run(messages, time.Now())
		zap.L().Info("feed analyzed",
			zap.Int("messages", report.Total),
			zap.Int("anomalies", report.Anomalies()),
		)
		return analyze.Write(cmd.OutOrStdout(), report, analyzeFormat)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", analyze.FormatText, "output format: text, json or yaml")
	rootCmd.AddCommand(analyzeCmd)
}

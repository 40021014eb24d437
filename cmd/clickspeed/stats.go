package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/revoirb612/pedamint-hcoding/internal/model"
	"github.com/revoirb612/pedamint-hcoding/internal/stats"
)

const defaultTrendWindow = 5

var (
	statsSince    string
	statsLast     int
	statsDuration int
	statsWindow   int
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show session history stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsDuration, "duration", 0, "only sessions of this length in seconds")
	cmd.Flags().IntVar(&statsWindow, "window", defaultTrendWindow, "moving average window")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsWindow <= 0 {
		return fmt.Errorf("--window must be > 0")
	}

	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	log, err := commandLogger(cmd, fileCfg)
	if err != nil {
		return err
	}
	st, err := openStore(log)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	cfg := model.StatsConfig{
		Since:    sinceTime,
		Last:     statsLast,
		Duration: statsDuration,
		Window:   statsWindow,
	}
	sessions, err := st.ListSessions(commandContext(cmd), cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, sessions); err != nil {
		return err
	}
	if len(sessions) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	return stats.RenderTrend(out, sessions, cfg.Window)
}
